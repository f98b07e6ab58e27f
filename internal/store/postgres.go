// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

const (
	candidatesTable  = "candidates"
	historyTable     = "candidate_history"
	assignmentsTable = "assignments"
	employeesTable   = "employees"

	// rows per multi-row INSERT, keeps every statement under the
	// 65535 bind parameter limit
	insertChunkSize = 1000

	pqUniqueViolation = "23505"

	// seq is a BIGSERIAL; rows of one upload share created_at, so pool
	// order follows the sequence
	insertOrder = "seq ASC"
)

var (
	candidateCols  = []string{"id", "name", "phone", "age", "address", "company", "position", "education", "experience_level"}
	historyCols    = []string{"id", "candidate_id", "name", "phone", "age", "address", "company", "position", "education", "experience_level", "is_active", "created_at", "deleted_at", "uploaded_by"}
	assignmentCols = []string{"id", "employee_id", "candidate_id", "status", "notes", "created_at"}
	employeeCols   = []string{"id", "full_name", "position"}
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresStore implements Store on PostgreSQL through database/sql and lib/pq.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewPostgresStore wraps an open *sql.DB.
func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *PostgresStore) ListActiveCandidates(ctx context.Context) ([]models.CandidateRecord, error) {
	return listCandidates(ctx, s.db)
}

func (s *PostgresStore) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryRecord, error) {
	return listHistory(ctx, s.db, filter)
}

func (s *PostgresStore) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	return listAssignments(ctx, s.db)
}

func (s *PostgresStore) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	return listEmployees(ctx, s.db)
}

// Snapshot reads everything inside one read-only repeatable-read transaction.
func (s *PostgresStore) Snapshot(ctx context.Context) (models.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var snap models.Snapshot
	if snap.ActiveCandidates, err = listCandidates(ctx, tx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.History, err = listHistory(ctx, tx, models.HistoryFilter{}); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Assignments, err = listAssignments(ctx, tx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Employees, err = listEmployees(ctx, tx); err != nil {
		return models.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}

	s.logger.Debug("snapshot read", map[string]interface{}{
		"activeCandidates": len(snap.ActiveCandidates),
		"history":          len(snap.History),
		"assignments":      len(snap.Assignments),
		"employees":        len(snap.Employees),
	})
	return snap, nil
}

// CommitResolutionPlan applies plan in a single transaction. A missing row to
// update or retire aborts the whole plan with ErrConflict.
func (s *PostgresStore) CommitResolutionPlan(ctx context.Context, plan models.ResolutionPlan) (result models.CommitResult, err error) {
	if plan.Empty() {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()

	inserts := make([]models.CandidateRecord, 0, len(plan.Inserts)+len(plan.Replaces))
	inserts = append(inserts, plan.Inserts...)

	for _, upd := range plan.Updates {
		if err = updateCandidate(ctx, tx, upd, now); err != nil {
			return models.CommitResult{}, err
		}
	}

	for _, rep := range plan.Replaces {
		if err = s.retireCandidate(ctx, tx, rep); err != nil {
			return models.CommitResult{}, err
		}
		inserts = append(inserts, rep.Insert)
	}

	for i := range inserts {
		if inserts[i].ID == "" {
			inserts[i].ID = s.newID()
		}
	}
	if err = insertCandidates(ctx, tx, inserts, now); err != nil {
		return models.CommitResult{}, err
	}

	history := make([]models.HistoryRecord, len(plan.History))
	copy(history, plan.History)
	for i := range history {
		if history[i].ID == "" {
			history[i].ID = s.newID()
		}
	}
	if err = insertHistory(ctx, tx, history); err != nil {
		return models.CommitResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.CommitResult{}, fmt.Errorf("commit plan: %w", err)
	}

	return models.CommitResult{
		Inserted:        len(plan.Inserts),
		Updated:         len(plan.Updates),
		Replaced:        len(plan.Replaces),
		HistoryAppended: len(history),
	}, nil
}

// CommitAssignments inserts assignments in one transaction. A candidate that
// is already assigned aborts the batch with ErrConflict.
func (s *PostgresStore) CommitAssignments(ctx context.Context, assignments []models.Assignment) (stored []models.Assignment, err error) {
	if len(assignments) == 0 {
		return []models.Assignment{}, nil
	}

	now := s.now()
	stored = make([]models.Assignment, len(assignments))
	for i, a := range assignments {
		if a.ID == "" {
			a.ID = s.newID()
		}
		if a.Status == "" {
			a.Status = models.AssignmentPending
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		stored[i] = a
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for start := 0; start < len(stored); start += insertChunkSize {
		end := min(start+insertChunkSize, len(stored))

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto(assignmentsTable)
		ib.Cols(assignmentCols...)
		for _, a := range stored[start:end] {
			ib.Values(a.ID, a.EmployeeID, a.CandidateID, string(a.Status), a.Notes, a.CreatedAt)
		}
		query, args := ib.Build()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			err = classify("insert assignments", err)
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assignments: %w", err)
	}
	return stored, nil
}

// retireCandidate removes the active row and flips its archive entries. A
// candidate with no archive entry gets one written as already deleted.
func (s *PostgresStore) retireCandidate(ctx context.Context, tx *sql.Tx, rep models.Replacement) error {
	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(candidatesTable)
	del.Where(del.Equal("id", rep.Retired.ID))
	query, args := del.Build()
	if err := expectOneRow(ctx, tx, query, args, "retire candidate "+rep.Retired.ID); err != nil {
		return err
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(historyTable)
	ub.Set(ub.Assign("is_active", false), ub.Assign("deleted_at", rep.DeletedAt))
	ub.Where(ub.Equal("candidate_id", rep.Retired.ID), ub.Equal("is_active", true))
	query, args = ub.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("archive candidate %s: %w", rep.Retired.ID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	entry := models.NewHistoryRecord(rep.Retired, "", rep.DeletedAt)
	entry.ID = s.newID()
	entry.IsActive = false
	deletedAt := rep.DeletedAt
	entry.DeletedAt = &deletedAt
	return insertHistory(ctx, tx, []models.HistoryRecord{entry})
}

func updateCandidate(ctx context.Context, tx *sql.Tx, c models.CandidateRecord, now time.Time) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(candidatesTable)
	ub.Set(
		ub.Assign("name", c.Name),
		ub.Assign("phone", c.Phone),
		ub.Assign("phone_normalized", identity.NormalizePhone(c.Phone)),
		ub.Assign("age", nullInt(c.Age)),
		ub.Assign("address", c.Address),
		ub.Assign("company", c.Company),
		ub.Assign("position", c.Position),
		ub.Assign("education", c.Education),
		ub.Assign("experience_level", string(c.ExperienceLevel)),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", c.ID))
	query, args := ub.Build()
	return expectOneRow(ctx, tx, query, args, "update candidate "+c.ID)
}

func insertCandidates(ctx context.Context, ex execer, records []models.CandidateRecord, now time.Time) error {
	for start := 0; start < len(records); start += insertChunkSize {
		end := min(start+insertChunkSize, len(records))

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto(candidatesTable)
		ib.Cols(append(append([]string{}, candidateCols...), "phone_normalized", "created_at", "updated_at")...)
		for _, c := range records[start:end] {
			ib.Values(c.ID, c.Name, c.Phone, nullInt(c.Age), c.Address, c.Company, c.Position, c.Education,
				string(c.ExperienceLevel), identity.NormalizePhone(c.Phone), now, now)
		}
		query, args := ib.Build()
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return classify("insert candidates", err)
		}
	}
	return nil
}

func insertHistory(ctx context.Context, ex execer, entries []models.HistoryRecord) error {
	for start := 0; start < len(entries); start += insertChunkSize {
		end := min(start+insertChunkSize, len(entries))

		ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
		ib.InsertInto(historyTable)
		ib.Cols(append(append([]string{}, historyCols...), "phone_normalized")...)
		for _, h := range entries[start:end] {
			ib.Values(h.ID, h.CandidateID, h.Name, h.Phone, nullInt(h.Age), h.Address, h.Company, h.Position,
				h.Education, string(h.ExperienceLevel), h.IsActive, h.CreatedAt, nullTime(h.DeletedAt), h.UploadedBy,
				identity.NormalizePhone(h.Phone))
		}
		query, args := ib.Build()
		if _, err := ex.ExecContext(ctx, query, args...); err != nil {
			return classify("insert history", err)
		}
	}
	return nil
}

func listCandidates(ctx context.Context, q querier) ([]models.CandidateRecord, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateCols...)
	sb.From(candidatesTable)
	sb.OrderBy(insertOrder)
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	out := []models.CandidateRecord{}
	for rows.Next() {
		var (
			c   models.CandidateRecord
			age sql.NullInt64
			exp string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &age, &c.Address, &c.Company, &c.Position, &c.Education, &exp); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Age = intFromNull(age)
		c.ExperienceLevel = models.ExperienceLevel(exp)
		out = append(out, c)
	}
	return out, rows.Err()
}

func listHistory(ctx context.Context, q querier, filter models.HistoryFilter) ([]models.HistoryRecord, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(historyCols...)
	sb.From(historyTable)

	var conds []string
	if filter.Phone != "" {
		conds = append(conds, sb.Equal("phone_normalized", identity.NormalizePhone(filter.Phone)))
	}
	if filter.UploadedBy != "" {
		conds = append(conds, sb.Equal("uploaded_by", filter.UploadedBy))
	}
	if filter.ActiveOnly {
		conds = append(conds, sb.Equal("is_active", true))
	}
	if len(conds) > 0 {
		sb.Where(conds...)
	}
	sb.OrderBy(insertOrder)
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []models.HistoryRecord{}
	for rows.Next() {
		var (
			h         models.HistoryRecord
			age       sql.NullInt64
			exp       string
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&h.ID, &h.CandidateID, &h.Name, &h.Phone, &age, &h.Address, &h.Company, &h.Position,
			&h.Education, &exp, &h.IsActive, &h.CreatedAt, &deletedAt, &h.UploadedBy); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Age = intFromNull(age)
		h.ExperienceLevel = models.ExperienceLevel(exp)
		if deletedAt.Valid {
			t := deletedAt.Time
			h.DeletedAt = &t
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func listAssignments(ctx context.Context, q querier) ([]models.Assignment, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(assignmentCols...)
	sb.From(assignmentsTable)
	sb.OrderBy("created_at ASC", "id ASC")
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := []models.Assignment{}
	for rows.Next() {
		var (
			a      models.Assignment
			status string
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.CandidateID, &status, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Status = models.AssignmentStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func listEmployees(ctx context.Context, q querier) ([]models.Employee, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(employeeCols...)
	sb.From(employeesTable)
	sb.OrderBy("full_name ASC", "id ASC")
	query, args := sb.Build()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	out := []models.Employee{}
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.FullName, &e.Position); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func expectOneRow(ctx context.Context, ex execer, query string, args []interface{}, what string) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return nil
}

// classify maps unique violations onto ErrConflict.
func classify(what string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w (%s)", what, ErrConflict, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

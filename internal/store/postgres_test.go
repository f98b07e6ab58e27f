package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/models"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(db, logger.NewTestLogger(t))
	s.now = func() time.Time { return testNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return s, mock
}

func intPtr(i int) *int { return &i }

func TestPostgresStore_Snapshot(t *testing.T) {
	s, mock := newMockStore(t)
	deleted := testNow.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM candidates ORDER BY seq ASC`).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("c1", "Ana", "555-0101", 31, "Cairo", "Acme", "Sales", "BCom", "mid").
			AddRow("c2", "Ben", "0100", nil, "", "", "", "", ""))
	mock.ExpectQuery(`SELECT (.+) FROM candidate_history`).
		WillReturnRows(sqlmock.NewRows(historyCols).
			AddRow("h1", "c1", "Ana", "555-0101", 31, "Cairo", "Acme", "Sales", "BCom", "mid", true, testNow, nil, "mgr").
			AddRow("h0", "c0", "Old", "0999", nil, "", "", "", "", "", false, testNow.Add(-48*time.Hour), deleted, "mgr"))
	mock.ExpectQuery(`SELECT (.+) FROM assignments`).
		WillReturnRows(sqlmock.NewRows(assignmentCols).
			AddRow("a1", "e1", "c1", "pending", "Campaign: X | Priority: low", testNow))
	mock.ExpectQuery(`SELECT (.+) FROM employees`).
		WillReturnRows(sqlmock.NewRows(employeeCols).AddRow("e1", "Emp One", "Recruiter"))
	mock.ExpectCommit()

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.ActiveCandidates, 2)
	assert.Equal(t, 31, *snap.ActiveCandidates[0].Age)
	assert.Equal(t, models.ExperienceMid, snap.ActiveCandidates[0].ExperienceLevel)
	assert.Nil(t, snap.ActiveCandidates[1].Age)

	require.Len(t, snap.History, 2)
	assert.Nil(t, snap.History[0].DeletedAt)
	require.NotNil(t, snap.History[1].DeletedAt)
	assert.Equal(t, deleted, *snap.History[1].DeletedAt)
	assert.False(t, snap.History[1].IsActive)

	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, models.AssignmentPending, snap.Assignments[0].Status)
	require.Len(t, snap.Employees, 1)
	assert.Equal(t, "Emp One", snap.Employees[0].FullName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListActiveCandidatesKeepsUploadOrder(t *testing.T) {
	s, mock := newMockStore(t)

	// same created_at; ids sort opposite to upload order
	mock.ExpectQuery(`SELECT (.+) FROM candidates ORDER BY seq ASC$`).
		WillReturnRows(sqlmock.NewRows(candidateCols).
			AddRow("f0", "First", "0101", nil, "", "", "", "", "").
			AddRow("a9", "Second", "0102", nil, "", "", "", "", ""))

	out, err := s.ListActiveCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"First", "Second"}, []string{out[0].Name, out[1].Name})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SnapshotReadFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM candidates`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list candidates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListHistoryFilters(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM candidate_history WHERE phone_normalized = \$1 AND uploaded_by = \$2 AND is_active = \$3 ORDER BY seq ASC`).
		WithArgs("5550101", "mgr", true).
		WillReturnRows(sqlmock.NewRows(historyCols))

	out, err := s.ListHistory(context.Background(), models.HistoryFilter{Phone: "+555 0101", UploadedBy: "mgr", ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitResolutionPlan(t *testing.T) {
	s, mock := newMockStore(t)

	plan := models.ResolutionPlan{
		Inserts: []models.CandidateRecord{{ID: "n1", Name: "New", Phone: "0300"}},
		Updates: []models.CandidateRecord{{ID: "c1", Name: "Ana", Phone: "0101", Age: intPtr(32), Company: "Acme"}},
		Replaces: []models.Replacement{{
			Retired:   models.CandidateRecord{ID: "c2", Name: "Ben", Phone: "0200"},
			Insert:    models.CandidateRecord{ID: "n2", Name: "Ben Two", Phone: "0200"},
			DeletedAt: testNow,
		}},
		History: []models.HistoryRecord{
			{CandidateID: "c1", Name: "Ana", Phone: "0101", IsActive: true, CreatedAt: testNow, UploadedBy: "mgr"},
			{CandidateID: "n2", Name: "Ben Two", Phone: "0200", IsActive: true, CreatedAt: testNow, UploadedBy: "mgr"},
			{CandidateID: "n1", Name: "New", Phone: "0300", IsActive: true, CreatedAt: testNow, UploadedBy: "mgr"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE candidates SET (.+) WHERE id = \$\d+`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM candidates WHERE id = \$1`).WithArgs("c2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE candidate_history SET is_active = \$1, deleted_at = \$2 WHERE candidate_id = \$3 AND is_active = \$4`).
		WithArgs(false, testNow, "c2", true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO candidate_history`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO candidates`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO candidate_history`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	res, err := s.CommitResolutionPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, models.CommitResult{Inserted: 1, Updated: 1, Replaced: 1, HistoryAppended: 3}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitResolutionPlanConflict(t *testing.T) {
	s, mock := newMockStore(t)

	plan := models.ResolutionPlan{
		Updates: []models.CandidateRecord{{ID: "gone", Name: "A", Phone: "1"}},
		History: []models.HistoryRecord{{CandidateID: "gone", Name: "A", Phone: "1"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE candidates SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.CommitResolutionPlan(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitResolutionPlanEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	res, err := s.CommitResolutionPlan(context.Background(), models.ResolutionPlan{
		Skipped: []models.CandidateRecord{{Name: "A", Phone: "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommitResult{}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitAssignments(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO assignments \(id, employee_id, candidate_id, status, notes, created_at\) VALUES`).
		WithArgs("gen-1", "e1", "c1", "pending", "Campaign: X | Priority: normal", testNow,
			"gen-2", "e1", "c2", "pending", "Campaign: X | Priority: normal", testNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	stored, err := s.CommitAssignments(context.Background(), []models.Assignment{
		{EmployeeID: "e1", CandidateID: "c1", Notes: "Campaign: X | Priority: normal"},
		{EmployeeID: "e1", CandidateID: "c2", Status: models.AssignmentPending, Notes: "Campaign: X | Priority: normal"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "gen-1", stored[0].ID)
	assert.Equal(t, models.AssignmentPending, stored[0].Status)
	assert.Equal(t, testNow, stored[1].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitAssignmentsAlreadyAssigned(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO assignments`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "assignments_candidate_id_key"})
	mock.ExpectRollback()

	_, err := s.CommitAssignments(context.Background(), []models.Assignment{{EmployeeID: "e1", CandidateID: "c1"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "assignments_candidate_id_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

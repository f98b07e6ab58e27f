// Package resolution turns a batch, a policy and its duplicate matches into a
// commit plan. It performs no I/O; the caller applies the plan atomically.
package resolution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

// Options carries the caller context and the injectable clock and id source.
type Options struct {
	UploadedBy string
	Strategy   identity.Strategy
	Now        func() time.Time
	NewID      func() string
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = identity.DefaultStrategy
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Resolve builds the plan for batch under policy.
//
//   - skip: duplicates are dropped; only new records are inserted.
//   - merge: active duplicates are updated in place with the incoming
//     non-empty fields; history-only duplicates are inserted fresh.
//   - replace: active duplicates are retired and the incoming record is
//     inserted as a new row; history-only duplicates are inserted fresh.
//
// Every insert and update appends exactly one history entry tagged with
// UploadedBy. A repeated identity key inside the batch is written once, for
// its first row; later rows are reported as skipped.
func Resolve(batch []models.CandidateRecord, policy models.ResolutionPolicy, duplicates []models.DuplicateMatch, opts Options) (models.ResolutionPlan, error) {
	if !policy.Valid() {
		return models.ResolutionPlan{}, apperrors.NewValidationError("policy",
			fmt.Sprintf("unknown resolution policy %q, expected skip, merge or replace", policy))
	}
	for i, rec := range batch {
		if err := models.Validate(rec); err != nil {
			field := "record"
			if fe, ok := err.(*models.FieldError); ok {
				field = fe.Field
			}
			return models.ResolutionPlan{}, apperrors.NewRecordValidationError(field, i, err.Error())
		}
	}

	opts = opts.withDefaults()
	now := opts.Now()
	byKey := indexMatches(duplicates, opts.Strategy)

	plan := models.ResolutionPlan{
		Inserts:  []models.CandidateRecord{},
		Updates:  []models.CandidateRecord{},
		Replaces: []models.Replacement{},
		History:  []models.HistoryRecord{},
		Skipped:  []models.CandidateRecord{},
	}

	insert := func(rec models.CandidateRecord) models.CandidateRecord {
		rec.ID = opts.NewID()
		plan.History = append(plan.History, models.NewHistoryRecord(rec, opts.UploadedBy, now))
		return rec
	}

	seen := make(map[string]bool, len(batch))
	for _, rec := range batch {
		key := opts.Strategy.Key(rec)
		if key != "" {
			if seen[key] {
				plan.Skipped = append(plan.Skipped, rec)
				continue
			}
			seen[key] = true
		}

		match, isDuplicate := byKey[key]
		if key == "" || !isDuplicate {
			plan.Inserts = append(plan.Inserts, insert(rec))
			continue
		}

		activeMatch := match.Source == models.SourceActive && match.Active != nil

		switch policy {
		case models.PolicySkip:
			plan.Skipped = append(plan.Skipped, rec)

		case models.PolicyMerge:
			if !activeMatch {
				plan.Inserts = append(plan.Inserts, insert(rec))
				continue
			}
			merged := MergeNonEmpty(*match.Active, rec)
			plan.Updates = append(plan.Updates, merged)
			plan.History = append(plan.History, models.NewHistoryRecord(merged, opts.UploadedBy, now))

		case models.PolicyReplace:
			if !activeMatch {
				plan.Inserts = append(plan.Inserts, insert(rec))
				continue
			}
			plan.Replaces = append(plan.Replaces, models.Replacement{
				Retired:   *match.Active,
				Insert:    insert(rec),
				DeletedAt: now,
			})
		}
	}

	return plan, nil
}

// indexMatches keys matches by identity. When a key appears under both
// sources the active match wins.
func indexMatches(matches []models.DuplicateMatch, strategy identity.Strategy) map[string]models.DuplicateMatch {
	out := make(map[string]models.DuplicateMatch, len(matches))
	for _, m := range matches {
		key := strategy.Key(m.Incoming)
		if key == "" {
			continue
		}
		if prev, ok := out[key]; ok && prev.Source == models.SourceActive {
			continue
		}
		out[key] = m
	}
	return out
}

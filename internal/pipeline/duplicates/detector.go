// Package duplicates partitions an incoming batch against the active
// candidate set and the history archive.
package duplicates

import (
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

// Result is the three-way partition of a batch. Every incoming record lands
// in exactly one bucket, in input order.
type Result struct {
	NewRecords          []models.CandidateRecord `json:"newRecords"`
	DuplicatesInActive  []models.DuplicateMatch  `json:"duplicatesInActive"`
	DuplicatesInHistory []models.DuplicateMatch  `json:"duplicatesInHistory"`
}

// DuplicatesFound reports whether the batch needs a resolution decision.
// When true no row of the batch may be committed until a policy is chosen.
func (r Result) DuplicatesFound() bool {
	return len(r.DuplicatesInActive) > 0 || len(r.DuplicatesInHistory) > 0
}

// Matches returns both duplicate buckets, active first.
func (r Result) Matches() []models.DuplicateMatch {
	out := make([]models.DuplicateMatch, 0, len(r.DuplicatesInActive)+len(r.DuplicatesInHistory))
	out = append(out, r.DuplicatesInActive...)
	return append(out, r.DuplicatesInHistory...)
}

// Detector runs detection under one identity strategy.
type Detector struct {
	strategy identity.Strategy
}

func NewDetector(strategy identity.Strategy) *Detector {
	if strategy == "" {
		strategy = identity.DefaultStrategy
	}
	return &Detector{strategy: strategy}
}

// Detect partitions batch using the default identity strategy.
func Detect(batch []models.CandidateRecord, active []models.CandidateRecord, history []models.HistoryRecord) Result {
	return NewDetector(identity.DefaultStrategy).Detect(batch, active, history)
}

// Detect partitions batch. An active match takes precedence over a history
// match for the same record. A history match withholds the record whether or
// not that archive entry is still active. Unidentifiable records are new.
func (d *Detector) Detect(batch []models.CandidateRecord, active []models.CandidateRecord, history []models.HistoryRecord) Result {
	activeByKey := make(map[string]int, len(active))
	for i, c := range active {
		key := d.strategy.Key(c)
		if key == "" {
			continue
		}
		// first active row wins if the store ever holds two
		if _, seen := activeByKey[key]; !seen {
			activeByKey[key] = i
		}
	}

	historyByKey := make(map[string][]models.HistoryRecord)
	for _, h := range history {
		key := d.strategy.HistoryKey(h)
		if key == "" {
			continue
		}
		historyByKey[key] = append(historyByKey[key], h)
	}

	res := Result{
		NewRecords:          make([]models.CandidateRecord, 0, len(batch)),
		DuplicatesInActive:  []models.DuplicateMatch{},
		DuplicatesInHistory: []models.DuplicateMatch{},
	}

	for _, rec := range batch {
		key := d.strategy.Key(rec)
		if key == "" {
			res.NewRecords = append(res.NewRecords, rec)
			continue
		}

		if idx, ok := activeByKey[key]; ok {
			existing := active[idx]
			res.DuplicatesInActive = append(res.DuplicatesInActive, models.DuplicateMatch{
				Incoming: rec,
				Source:   models.SourceActive,
				Active:   &existing,
				History:  historyByKey[key],
			})
			continue
		}

		if entries, ok := historyByKey[key]; ok {
			res.DuplicatesInHistory = append(res.DuplicatesInHistory, models.DuplicateMatch{
				Incoming: rec,
				Source:   models.SourceHistory,
				History:  entries,
			})
			continue
		}

		res.NewRecords = append(res.NewRecords, rec)
	}

	return res
}

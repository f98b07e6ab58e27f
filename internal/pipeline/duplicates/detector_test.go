package duplicates

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

func cand(name, phone string) models.CandidateRecord {
	return models.CandidateRecord{Name: name, Phone: phone}
}

func hist(candidateID, phone string, active bool) models.HistoryRecord {
	h := models.HistoryRecord{CandidateID: candidateID, Name: "H", Phone: phone, IsActive: active, CreatedAt: time.Unix(0, 0)}
	if !active {
		deleted := time.Unix(100, 0)
		h.DeletedAt = &deleted
	}
	return h
}

func TestDetect_EmptyStateReturnsBatchUnchanged(t *testing.T) {
	for _, n := range []int{0, 1, 5, 50} {
		t.Run(fmt.Sprintf("batch of %d", n), func(t *testing.T) {
			batch := make([]models.CandidateRecord, n)
			for i := range batch {
				// repeats inside a batch are not the detector's concern
				batch[i] = cand(fmt.Sprintf("C%d", i), fmt.Sprintf("%04d", i%3))
			}

			res := Detect(batch, nil, nil)
			assert.Equal(t, batch, res.NewRecords)
			assert.Empty(t, res.DuplicatesInActive)
			assert.Empty(t, res.DuplicatesInHistory)
			assert.False(t, res.DuplicatesFound())
		})
	}
}

func TestDetect_Partitions(t *testing.T) {
	active := []models.CandidateRecord{
		{ID: "c1", Name: "Active One", Phone: "555-0001"},
	}
	history := []models.HistoryRecord{
		hist("c1", "5550001", true),
		hist("c9", "5550009", false),
		hist("c8", "5550008", true),
	}
	batch := []models.CandidateRecord{
		cand("In Active", "(555) 0001"),
		cand("In Deleted History", "555 0009"),
		cand("In Live History", "5550008"),
		cand("Brand New", "5550010"),
		cand("No Phone", ""),
		cand("Junk Phone", "n/a"),
	}

	res := Detect(batch, active, history)

	require.True(t, res.DuplicatesFound())
	require.Len(t, res.DuplicatesInActive, 1)
	m := res.DuplicatesInActive[0]
	assert.Equal(t, models.SourceActive, m.Source)
	assert.Equal(t, "In Active", m.Incoming.Name)
	require.NotNil(t, m.Active)
	assert.Equal(t, "c1", m.Active.ID)
	assert.Len(t, m.History, 1, "history is attached for context but does not change the bucket")

	require.Len(t, res.DuplicatesInHistory, 2)
	assert.Equal(t, "In Deleted History", res.DuplicatesInHistory[0].Incoming.Name)
	assert.Equal(t, "In Live History", res.DuplicatesInHistory[1].Incoming.Name)
	for _, hm := range res.DuplicatesInHistory {
		assert.Equal(t, models.SourceHistory, hm.Source)
		assert.Nil(t, hm.Active)
	}

	require.Len(t, res.NewRecords, 3)
	assert.Equal(t, "Brand New", res.NewRecords[0].Name)
	assert.Equal(t, "No Phone", res.NewRecords[1].Name)
	assert.Equal(t, "Junk Phone", res.NewRecords[2].Name)

	assert.Len(t, res.Matches(), 3)
	assert.Equal(t, models.SourceActive, res.Matches()[0].Source)
}

func TestDetect_EmptyPhoneNeverDuplicate(t *testing.T) {
	active := []models.CandidateRecord{{ID: "x", Name: "Blank", Phone: ""}}
	history := []models.HistoryRecord{hist("y", "", false)}

	res := Detect([]models.CandidateRecord{cand("Blank", ""), cand("Dashes", "--")}, active, history)

	assert.Len(t, res.NewRecords, 2)
	assert.False(t, res.DuplicatesFound())
}

func TestDetect_EveryRecordInExactlyOneBucket(t *testing.T) {
	active := []models.CandidateRecord{{ID: "a", Name: "A", Phone: "1"}, {ID: "b", Name: "B", Phone: "2"}}
	history := []models.HistoryRecord{hist("a", "1", true), hist("z", "3", false)}
	batch := []models.CandidateRecord{cand("1", "1"), cand("2", "2"), cand("3", "3"), cand("4", "4"), cand("5", "")}

	res := Detect(batch, active, history)
	total := len(res.NewRecords) + len(res.DuplicatesInActive) + len(res.DuplicatesInHistory)
	assert.Equal(t, len(batch), total)
}

func TestDetector_PhoneAndNameStrategy(t *testing.T) {
	d := NewDetector(identity.StrategyPhoneAndName)
	active := []models.CandidateRecord{{ID: "a", Name: "Alice", Phone: "0101"}}

	res := d.Detect([]models.CandidateRecord{cand("alice", "0101"), cand("Bob", "0101")}, active, nil)

	require.Len(t, res.DuplicatesInActive, 1)
	assert.Equal(t, "alice", res.DuplicatesInActive[0].Incoming.Name)
	require.Len(t, res.NewRecords, 1)
	assert.Equal(t, "Bob", res.NewRecords[0].Name)
}

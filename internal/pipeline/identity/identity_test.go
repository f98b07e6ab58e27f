package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-workers/internal/models"
)

func rec(name, phone string) models.CandidateRecord {
	return models.CandidateRecord{Name: name, Phone: phone}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+1 (555) 010-0101": "15550100101",
		"0101":              "0101",
		"  ":                "",
		"n/a":               "",
		"٠١٢":               "٠١٢",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestMatches_DefaultStrategy(t *testing.T) {
	tests := []struct {
		name string
		a, b models.CandidateRecord
		want bool
	}{
		{"formatting ignored", rec("A", "555-0101"), rec("B", "(555) 0101"), true},
		{"different digits", rec("A", "5550101"), rec("A", "5550102"), false},
		{"empty never matches empty", rec("A", ""), rec("A", ""), false},
		{"non-digit phone is unidentifiable", rec("A", "n/a"), rec("A", "n/a"), false},
		{"name is not part of the key", rec("Alice", "0101"), rec("Bob", "0101"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.a, tt.b))
			assert.Equal(t, tt.want, Matches(tt.b, tt.a), "symmetric")
		})
	}
}

func TestStrategies(t *testing.T) {
	a := rec("Alice  Smith", "555-0101")
	b := rec("alice smith", "5550101")
	c := rec("Bob", "5550101")

	assert.False(t, StrategyExactPhone.Matches(a, b))
	assert.True(t, StrategyExactPhone.Matches(b, c))

	assert.True(t, StrategyPhoneAndName.Matches(a, b))
	assert.False(t, StrategyPhoneAndName.Matches(b, c))
	assert.Equal(t, "", StrategyPhoneAndName.Key(rec("", "0101")))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyNormalizedPhone, s)

	s, err = ParseStrategy("phone_and_name")
	require.NoError(t, err)
	assert.Equal(t, StrategyPhoneAndName, s)

	_, err = ParseStrategy("fuzzy")
	assert.Error(t, err)
}

func TestHistoryKey(t *testing.T) {
	h := models.HistoryRecord{Name: "A", Phone: "+1 555 0101"}
	assert.Equal(t, "15550101", StrategyNormalizedPhone.HistoryKey(h))
}

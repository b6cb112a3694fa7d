package fill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "  HSBC Midcap Fund  ", "hsbc midcap fund"},
		{"strips special characters", "HSBC Midcap Fund (Growth)", "hsbc midcap fund growth"},
		{"drops regular plan suffix", "HSBC Midcap Fund Regular Plan", "hsbc midcap fund"},
		{"drops retail plan suffix", "HSBC Value Fund retail plan", "hsbc value fund"},
		{"drops long term plan suffix", "HSBC Tax Saver long term plan", "hsbc tax saver"},
		{"collapses inner whitespace", "hsbc   midcap    fund", "hsbc midcap fund"},
		{"keeps dots", "Fund 1.5", "fund 1.5"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("hsbc midcap fund", "hsbc midcap fund"))
	assert.Equal(t, 100, similarity("", ""))

	// One character off a long name stays well above the cutoff.
	assert.GreaterOrEqual(t, similarity("hsbc midcap fund", "hsbc midcap fond"), 90)

	// Unrelated names score low.
	assert.Less(t, similarity("hsbc midcap fund", "axis bluechip"), 50)
}

func TestBestMatch(t *testing.T) {
	candidates := []string{
		"hsbc midcap fund",
		"hsbc financial services fund",
		"hsbc india export opportunities fund",
	}

	t.Run("close match above cutoff", func(t *testing.T) {
		got, ok := BestMatch("hsbc midcap fond", candidates, FuzzyCutoff)
		assert.True(t, ok)
		assert.Equal(t, "hsbc midcap fund", got)
	})

	t.Run("no match below cutoff", func(t *testing.T) {
		_, ok := BestMatch("completely different scheme", candidates, FuzzyCutoff)
		assert.False(t, ok)
	})

	t.Run("empty candidates", func(t *testing.T) {
		_, ok := BestMatch("anything", nil, FuzzyCutoff)
		assert.False(t, ok)
	})
}

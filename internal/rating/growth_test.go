package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elmarb/edurate/internal/ratingconfig"
)

func TestBonusFromHistory(t *testing.T) {
	growth := ratingconfig.GrowthBonus{Rate: 0.5, Min: -5, Max: 5, HistoryLimit: 3}

	tests := []struct {
		name   string
		scores []float64 // most recent first
		want   float64
	}{
		{
			name:   "no history is neutral",
			scores: nil,
			want:   0,
		},
		{
			name:   "single prior period is neutral",
			scores: []float64{70},
			want:   0,
		},
		{
			name: "improvement rewarded",
			// latest 20, mean (20+14)/2 = 17 -> (20-17)*0.5 = 1.5
			scores: []float64{20, 14},
			want:   1.5,
		},
		{
			name: "regression penalized",
			// latest 10, mean (10+20)/2 = 15 -> (10-15)*0.5 = -2.5
			scores: []float64{10, 20},
			want:   -2.5,
		},
		{
			name: "bonus clamped at max",
			// latest 25, mean (25+1)/2 = 13 -> 6 -> clamp 5
			scores: []float64{25, 1},
			want:   5,
		},
		{
			name:   "penalty clamped at min",
			scores: []float64{1, 25},
			want:   -5,
		},
		{
			name: "history capped at limit",
			// only the 3 most recent count: latest 18, mean (18+12+12)/3 = 14 -> 2
			scores: []float64{18, 12, 12, 90},
			want:   2,
		},
		{
			name:   "flat history is neutral",
			scores: []float64{15, 15, 15},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BonusFromHistory(tt.scores, growth)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

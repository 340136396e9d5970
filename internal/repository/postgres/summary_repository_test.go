package postgres

import (
	"math"
	"testing"
)

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		name          string
		recent, prior float64
		want          float64
	}{
		{"growth", 1500, 1000, 50},
		{"decline", 500, 1000, -50},
		{"flat", 1000, 1000, 0},
		{"no prior period", 1000, 0, 0},
		{"no sales at all", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := growthRate(tt.recent, tt.prior)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("growthRate(%v, %v) = %v, want %v", tt.recent, tt.prior, got, tt.want)
			}
		})
	}
}

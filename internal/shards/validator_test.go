package shards

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"webshard/internal/npz"
)

func TestFiniteFeatures(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want bool
	}{
		{"all finite", []float64{0, 1.5, -2.25, 1e300}, true},
		{"empty", []float64{}, true},
		{"nan first", []float64{math.NaN(), 0.1}, false},
		{"nan last", []float64{0.1, math.NaN()}, false},
		{"positive inf", []float64{1, math.Inf(1)}, false},
		{"negative inf", []float64{math.Inf(-1), 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr := npz.Array{Shape: []int{len(tt.data)}, Data: tt.data}
			assert.Equal(t, tt.want, FiniteFeatures(arr))
		})
	}
}

package statutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestWilcoxonSignedRankExact(t *testing.T) {
	result := WilcoxonSignedRank([]float64{1.1, 2.2, 3.3}, 0)
	require.True(t, result.Available)
	assert.True(t, result.Exact)
	assert.Equal(t, 6.0, result.Statistic)
	assert.InDelta(t, 0.25, result.P, 1e-12)

	result = WilcoxonSignedRank([]float64{1, -2, 3, 4, 5}, 0)
	assert.Equal(t, 13.0, result.Statistic)
	assert.InDelta(t, 0.1875, result.P, 1e-12)

	result = WilcoxonSignedRank([]float64{-0.9, -0.8, -0.7}, 0)
	assert.Equal(t, 0.0, result.Statistic)
	assert.InDelta(t, 0.25, result.P, 1e-12)
}

func TestWilcoxonSignedRankNormalWithTies(t *testing.T) {
	result := WilcoxonSignedRank([]float64{1, 1, 1}, 0)
	require.True(t, result.Available)
	assert.False(t, result.Exact)

	// V = 6, mean 3, variance 3.5 - 24/48 = 3
	z := (6 - 3 - 0.5) / math.Sqrt(3)
	assert.InDelta(t, 2*distuv.UnitNormal.Survival(z), result.P, 1e-12)
}

func TestWilcoxonSignedRankUnavailable(t *testing.T) {
	result := WilcoxonSignedRank([]float64{0, 0, math.NaN()}, 0)
	assert.False(t, result.Available)
	assert.True(t, math.IsNaN(result.P))
	assert.NotEmpty(t, result.Reason)
	assert.Contains(t, result.String(), "unavailable")
}

func TestMannWhitney(t *testing.T) {
	result := MannWhitney([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.True(t, result.Available)
	assert.True(t, result.Exact)
	assert.Equal(t, 0.0, result.Statistic)
	assert.InDelta(t, 0.1, result.P, 1e-12)

	result = MannWhitney([]float64{4, 5, 6}, []float64{1, 2, 3})
	assert.Equal(t, 9.0, result.Statistic)
	assert.InDelta(t, 0.1, result.P, 1e-12)

	result = MannWhitney([]float64{1, 3, 5, 7}, []float64{2, 4, 6, 8})
	assert.Equal(t, 6.0, result.Statistic)
	assert.InDelta(t, 48.0/70, result.P, 1e-12)
}

func TestMannWhitneyNormalWithTies(t *testing.T) {
	result := MannWhitney([]float64{1, 1, 2, 2}, []float64{3, 3, 4, 4})
	require.True(t, result.Available)
	assert.False(t, result.Exact)

	sigma := math.Sqrt((16.0 / 12) * (9 - 24.0/56))
	z := (0 - 8 + 0.5) / sigma
	assert.InDelta(t, 2*distuv.UnitNormal.CDF(z), result.P, 1e-12)
	assert.InDelta(t, 0.0265, result.P, 1e-3)
}

func TestMannWhitneyUnavailable(t *testing.T) {
	assert.False(t, MannWhitney(nil, []float64{1, 2}).Available)
	assert.False(t, MannWhitney([]float64{1, 1}, []float64{1, 1}).Available)
}

func TestKruskalWallis(t *testing.T) {
	result := KruskalWallis([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {}})
	require.True(t, result.Available)
	assert.InDelta(t, 7.2, result.Statistic, 1e-12)
	assert.InDelta(t, math.Exp(-3.6), result.P, 1e-12)

	assert.False(t, KruskalWallis([][]float64{{1, 2, 3}}).Available)
	assert.False(t, KruskalWallis([][]float64{{1, 1}, {1, 1}}).Available)
}

func TestRankSumCountsTotal(t *testing.T) {
	counts := rankSumCounts(3, 4)

	var total float64

	for _, c := range counts {
		total += c
	}

	// C(7, 3)
	assert.Equal(t, 35.0, total)
	assert.Len(t, counts, 3*4+1)
}

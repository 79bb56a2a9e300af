package statutils

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaries(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5, Mean(x), 1e-12)
	assert.InDelta(t, 4.5, Median(x), 1e-12)
	assert.InDelta(t, 2, PopSD(x), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7), SampleSD(x), 1e-12)

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.True(t, math.IsNaN(SampleSD([]float64{1})))

	assert.Equal(t, []float64{1, 3}, Finite([]float64{1, math.NaN(), 3, math.Inf(1)}))
}

func TestNormalTwoSidedP(t *testing.T) {
	assert.InDelta(t, 0.05, NormalTwoSidedP(1.959963985), 1e-9)
	assert.InDelta(t, 0.05, NormalTwoSidedP(-1.959963985), 1e-9)
	assert.InDelta(t, 1, NormalTwoSidedP(0), 1e-12)
	assert.True(t, math.IsNaN(NormalTwoSidedP(math.NaN())))
}

func TestBenjaminiHochberg(t *testing.T) {
	adjusted := BenjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.005})
	expected := []float64{0.02, 0.04, 0.04, 0.02}

	for i := range expected {
		assert.InDelta(t, expected[i], adjusted[i], 1e-12)
	}

	withNaN := BenjaminiHochberg([]float64{0.01, math.NaN(), 0.02})
	assert.InDelta(t, 0.02, withNaN[0], 1e-12)
	assert.True(t, math.IsNaN(withNaN[1]))
	assert.InDelta(t, 0.02, withNaN[2], 1e-12)

	assert.InDelta(t, 0.95, BenjaminiHochberg([]float64{0.9, 0.95})[0], 1e-12)
	assert.Empty(t, BenjaminiHochberg(nil))
}

func TestBonferroni(t *testing.T) {
	adjusted := Bonferroni([]float64{0.01, math.NaN(), 0.3, 0.7})

	assert.InDelta(t, 0.03, adjusted[0], 1e-12)
	assert.True(t, math.IsNaN(adjusted[1]))
	assert.InDelta(t, 0.9, adjusted[2], 1e-12)
	assert.Equal(t, 1.0, adjusted[3])
}

func TestGini(t *testing.T) {
	assert.InDelta(t, 0, Gini([]float64{1, 1, 1, 1}), 1e-12)
	assert.InDelta(t, 0.75, Gini([]float64{0, 1, 0, 0}), 1e-12)
	assert.True(t, math.IsNaN(Gini([]float64{0, 0})))
	assert.True(t, math.IsNaN(Gini(nil)))
}

func TestStandardize(t *testing.T) {
	z, ok := Standardize([]float64{1, 2, 3})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{-1, 0, 1}, z, 1e-12)

	_, ok = Standardize([]float64{2, 2, 2})
	assert.False(t, ok)

	_, ok = Standardize([]float64{2})
	assert.False(t, ok)
}

func TestExpressionSummaries(t *testing.T) {
	x := []float64{0, 0, math.E - 1, 3}

	assert.InDelta(t, (1+math.Log(4))/4, Log1pMean(x), 1e-12)
	assert.InDelta(t, 0.5, FractionPositive(x), 1e-12)
	assert.True(t, math.IsNaN(FractionPositive(nil)))
}

func TestAverageRanks(t *testing.T) {
	ranks := AverageRanks([]float64{10, 20, 20, math.NaN(), 5})

	assert.Equal(t, 2.0, ranks[0])
	assert.Equal(t, 3.5, ranks[1])
	assert.Equal(t, 3.5, ranks[2])
	assert.True(t, math.IsNaN(ranks[3]))
	assert.Equal(t, 1.0, ranks[4])
}

func TestRankDescendingRandomTiesWithoutTies(t *testing.T) {
	ranks := RankDescendingRandomTies([]float64{0.3, 0.9, 0.1, 0.5}, NewRNG(1))
	assert.Equal(t, []int{3, 1, 4, 2}, ranks)
}

func TestRankDescendingRandomTiesIsPermutation(t *testing.T) {
	values := []float64{0.5, 0.5, 0.5, 0.2, 0.9, 0.2, math.NaN()}
	seen := map[[7]int]bool{}

	for seed := uint32(1); seed <= 50; seed++ {
		ranks := RankDescendingRandomTies(values, NewRNG(seed))

		sorted := append([]int(nil), ranks...)
		sort.Ints(sorted)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, sorted)

		// untied values keep their place
		assert.Equal(t, 1, ranks[4])
		assert.Equal(t, 7, ranks[6])
		assert.ElementsMatch(t, []int{2, 3, 4}, ranks[:3])
		assert.ElementsMatch(t, []int{5, 6}, []int{ranks[3], ranks[5]})

		var key [7]int
		copy(key[:], ranks)
		seen[key] = true
	}

	// the tie order is not fixed by index
	assert.Greater(t, len(seen), 1)
}

func TestSpearman(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 10, 9}

	assert.InDelta(t, 1, Spearman(x, x), 1e-12)
	assert.InDelta(t, 1-12.0/990, Spearman(x, y), 1e-12)
	assert.InDelta(t, -1, Spearman(x, []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Spearman([]float64{1, 2}, []float64{1, 2})))
	assert.True(t, math.IsNaN(Spearman(x, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})))
}

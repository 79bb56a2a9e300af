package statutils

import (
	"math"
	"sort"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/stat"
)

/*AverageRanks 1-based ascending ranks, ties get the average of their positions.
NaN values get a NaN rank and are not counted */
func AverageRanks(x []float64) []float64 {
	ranks := make([]float64, len(x))
	idx := make([]int, 0, len(x))

	for i, v := range x {
		if math.IsNaN(v) {
			ranks[i] = math.NaN()
			continue
		}

		idx = append(idx, i)
	}

	sort.SliceStable(idx, func(i, j int) bool {
		return x[idx[i]] < x[idx[j]]
	})

	for i := 0; i < len(idx); {
		j := i

		for j < len(idx) && x[idx[j]] == x[idx[i]] {
			j++
		}

		avg := float64(i+j+1) / 2

		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}

		i = j
	}

	return ranks
}

/*tieSizes sizes of the groups of equal values (groups of one included) */
func tieSizes(x []float64) []int {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	var sizes []int

	for i := 0; i < len(sorted); {
		j := i

		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}

		sizes = append(sizes, j-i)
		i = j
	}

	return sizes
}

func hasTies(x []float64) bool {
	for _, size := range tieSizes(x) {
		if size > 1 {
			return true
		}
	}

	return false
}

/*tieCorrection sum of t^3 - t over the tie groups */
func tieCorrection(x []float64) float64 {
	var sum float64

	for _, size := range tieSizes(x) {
		t := float64(size)
		sum += t*t*t - t
	}

	return sum
}

/*NewRNG seeded random source used for tie-breaking and sampling */
func NewRNG(seed uint32) *fastrand.RNG {
	rng := &fastrand.RNG{}
	rng.Seed(seed)

	return rng
}

/*RankDescendingRandomTies ranks 1..n where the largest value gets rank 1. Exact ties
are ordered uniformly at random using rng. NaN values are ranked last */
func RankDescendingRandomTies(x []float64, rng *fastrand.RNG) []int {
	type entry struct {
		idx   int
		value float64
		key   uint32
	}

	entries := make([]entry, len(x))

	for i, v := range x {
		entries[i] = entry{idx: i, value: v, key: rng.Uint32()}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		aNaN, bNaN := math.IsNaN(a.value), math.IsNaN(b.value)

		switch {
		case aNaN != bNaN:
			return bNaN
		case !aNaN && a.value != b.value:
			return a.value > b.value
		case a.key != b.key:
			return a.key < b.key
		default:
			return a.idx < b.idx
		}
	})

	ranks := make([]int, len(x))

	for pos, e := range entries {
		ranks[e.idx] = pos + 1
	}

	return ranks
}

/*Spearman rank correlation of two equally long vectors without missing values.
NaN when fewer than 3 pairs or when one vector is constant */
func Spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 3 {
		return math.NaN()
	}

	return stat.Correlation(AverageRanks(x), AverageRanks(y), nil)
}

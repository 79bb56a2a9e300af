/* Statistics shared by the co-dependency, pathway and comparison stages */

package statutils

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

/*Finite return the values that are neither NaN nor Inf */
func Finite(x []float64) []float64 {
	out := make([]float64, 0, len(x))

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		out = append(out, v)
	}

	return out
}

/*Mean arithmetic mean, NaN for an empty slice */
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	return stat.Mean(x, nil)
}

/*Median median averaging the two middle values, NaN for an empty slice */
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	median, err := stats.Median(x)

	if err != nil {
		return math.NaN()
	}

	return median
}

/*PopSD population standard deviation (denominator n) */
func PopSD(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	return stat.PopStdDev(x, nil)
}

/*SampleSD sample standard deviation (denominator n-1) */
func SampleSD(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}

	return stat.StdDev(x, nil)
}

/*Quartiles min, lower quartile, median, upper quartile, max */
func Quartiles(x []float64) [5]float64 {
	var out [5]float64

	if len(x) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}

		return out
	}

	out[0], _ = stats.Min(x)
	out[1], _ = stats.Percentile(x, 25)
	out[2] = Median(x)
	out[3], _ = stats.Percentile(x, 75)
	out[4], _ = stats.Max(x)

	return out
}

/*NormalTwoSidedP two-sided p-value of a standard normal statistic */
func NormalTwoSidedP(z float64) float64 {
	if math.IsNaN(z) {
		return math.NaN()
	}

	return 2 * distuv.UnitNormal.Survival(math.Abs(z))
}

/*BenjaminiHochberg BH adjusted p-values. NaN entries are left NaN and not counted */
func BenjaminiHochberg(pvalues []float64) []float64 {
	adjusted := make([]float64, len(pvalues))
	idx := make([]int, 0, len(pvalues))

	for i, p := range pvalues {
		adjusted[i] = math.NaN()

		if !math.IsNaN(p) {
			idx = append(idx, i)
		}
	}

	n := len(idx)

	if n == 0 {
		return adjusted
	}

	sort.SliceStable(idx, func(i, j int) bool {
		return pvalues[idx[i]] < pvalues[idx[j]]
	})

	minP := 1.0

	for i := n - 1; i >= 0; i-- {
		value := pvalues[idx[i]] * float64(n) / float64(i+1)

		if value < minP {
			minP = value
		}

		adjusted[idx[i]] = minP
	}

	return adjusted
}

/*Bonferroni Bonferroni adjusted p-values. NaN entries are left NaN and not counted */
func Bonferroni(pvalues []float64) []float64 {
	adjusted := make([]float64, len(pvalues))
	n := 0

	for _, p := range pvalues {
		if !math.IsNaN(p) {
			n++
		}
	}

	for i, p := range pvalues {
		if math.IsNaN(p) {
			adjusted[i] = math.NaN()
			continue
		}

		adjusted[i] = math.Min(1, p*float64(n))
	}

	return adjusted
}

/*Gini Gini inequality index of non-negative values. NaN when empty or summing to zero */
func Gini(x []float64) float64 {
	n := len(x)

	if n == 0 {
		return math.NaN()
	}

	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	var sum, weighted float64

	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}

	if sum == 0 {
		return math.NaN()
	}

	nf := float64(n)

	return 2*weighted/(nf*sum) - (nf+1)/nf
}

/*Standardize z-score with the sample standard deviation. ok is false when the
variance is undefined or zero */
func Standardize(x []float64) (z []float64, ok bool) {
	if len(x) < 2 {
		return nil, false
	}

	mean, sd := stat.MeanStdDev(x, nil)

	if sd == 0 || math.IsNaN(sd) {
		return nil, false
	}

	z = make([]float64, len(x))

	for i, v := range x {
		z[i] = (v - mean) / sd
	}

	return z, true
}

/*Log1pMean mean of log(1 + x) */
func Log1pMean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	var sum float64

	for _, v := range x {
		sum += math.Log1p(v)
	}

	return sum / float64(len(x))
}

/*FractionPositive fraction of values strictly greater than zero */
func FractionPositive(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	count := 0

	for _, v := range x {
		if v > 0 {
			count++
		}
	}

	return float64(count) / float64(len(x))
}

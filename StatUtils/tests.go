package statutils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

/*EXACTLIMIT sample size under which exact rank distributions are used */
const EXACTLIMIT = 50

/*TestResult outcome of a hypothesis test. When Available is false, P and Statistic
are NaN and Reason says why no p-value could be computed */
type TestResult struct {
	Method    string
	Statistic float64
	P         float64
	N         int
	Exact     bool
	Available bool
	Reason    string
}

/*Unavailable build the explicit "no p-value" marker */
func Unavailable(method string, n int, format string, args ...interface{}) TestResult {
	return TestResult{
		Method:    method,
		Statistic: math.NaN(),
		P:         math.NaN(),
		N:         n,
		Reason:    fmt.Sprintf(format, args...),
	}
}

func (r TestResult) String() string {
	if !r.Available {
		return fmt.Sprintf("%s: unavailable (%s)", r.Method, r.Reason)
	}

	return fmt.Sprintf("%s: statistic=%g p=%g n=%d", r.Method, r.Statistic, r.P, r.N)
}

func normalTwoSided(z float64) float64 {
	return 2 * math.Min(distuv.UnitNormal.CDF(z), distuv.UnitNormal.Survival(z))
}

func continuity(z float64) float64 {
	switch {
	case z > 0:
		return 0.5
	case z < 0:
		return -0.5
	default:
		return 0
	}
}

/*signedRankCounts counts[k] = number of subsets of {1..n} summing to k */
func signedRankCounts(n int) []float64 {
	maxSum := n * (n + 1) / 2
	counts := make([]float64, maxSum+1)
	counts[0] = 1

	for i := 1; i <= n; i++ {
		for k := maxSum; k >= i; k-- {
			counts[k] += counts[k-i]
		}
	}

	return counts
}

/*rankSumCounts counts[w] = number of m-subsets of {1..m+n} whose rank sum minus
m(m+1)/2 equals w */
func rankSumCounts(m, n int) []float64 {
	total := m + n
	maxSum := 0

	for i := total - m + 1; i <= total; i++ {
		maxSum += i
	}

	dp := make([][]float64, m+1)

	for j := range dp {
		dp[j] = make([]float64, maxSum+1)
	}

	dp[0][0] = 1

	for item := 1; item <= total; item++ {
		upper := item

		if upper > m {
			upper = m
		}

		for j := upper; j >= 1; j-- {
			for s := maxSum; s >= item; s-- {
				dp[j][s] += dp[j-1][s-item]
			}
		}
	}

	offset := m * (m + 1) / 2
	counts := make([]float64, maxSum-offset+1)
	copy(counts, dp[m][offset:])

	return counts
}

/*exactTwoSided two-sided p-value of statistic s against a symmetric count distribution */
func exactTwoSided(counts []float64, s float64, center float64) float64 {
	var total, tail float64

	for _, c := range counts {
		total += c
	}

	k := int(math.Round(s))

	if s > center {
		for i := k; i < len(counts); i++ {
			tail += counts[i]
		}
	} else {
		for i := 0; i <= k && i < len(counts); i++ {
			tail += counts[i]
		}
	}

	return math.Min(1, 2*tail/total)
}

/*WilcoxonSignedRank two-sided one-sample Wilcoxon signed-rank test of x against mu.
Zero differences are dropped. Exact distribution for n < EXACTLIMIT without ties or
zeros, normal approximation with continuity and tie correction otherwise */
func WilcoxonSignedRank(x []float64, mu float64) TestResult {
	const method = "wilcoxon_signed_rank"

	var diffs []float64
	zeros := false

	for _, v := range Finite(x) {
		d := v - mu

		if d == 0 {
			zeros = true
			continue
		}

		diffs = append(diffs, d)
	}

	n := len(diffs)

	if n == 0 {
		return Unavailable(method, 0, "no non-zero observations")
	}

	abs := make([]float64, n)

	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}

	ranks := AverageRanks(abs)

	var v float64

	for i, d := range diffs {
		if d > 0 {
			v += ranks[i]
		}
	}

	nf := float64(n)
	center := nf * (nf + 1) / 4
	ties := hasTies(abs)
	result := TestResult{Method: method, Statistic: v, N: n, Available: true}

	if n < EXACTLIMIT && !ties && !zeros {
		result.Exact = true
		result.P = exactTwoSided(signedRankCounts(n), v, center)
		return result
	}

	sigma := math.Sqrt(nf*(nf+1)*(2*nf+1)/24 - tieCorrection(abs)/48)

	if sigma == 0 || math.IsNaN(sigma) {
		return Unavailable(method, n, "zero variance of the statistic")
	}

	z := v - center
	z = (z - continuity(z)) / sigma
	result.P = normalTwoSided(z)

	return result
}

/*MannWhitney two-sided Wilcoxon rank-sum test of x against y. The statistic is
W = rank sum of x minus nx(nx+1)/2 */
func MannWhitney(x, y []float64) TestResult {
	const method = "wilcoxon_rank_sum"

	x, y = Finite(x), Finite(y)
	nx, ny := len(x), len(y)

	if nx == 0 || ny == 0 {
		return Unavailable(method, nx+ny, "one group is empty (nx=%d, ny=%d)", nx, ny)
	}

	combined := append(append([]float64(nil), x...), y...)
	ranks := AverageRanks(combined)

	var rankSum float64

	for i := 0; i < nx; i++ {
		rankSum += ranks[i]
	}

	nxf, nyf := float64(nx), float64(ny)
	w := rankSum - nxf*(nxf+1)/2
	center := nxf * nyf / 2
	result := TestResult{Method: method, Statistic: w, N: nx + ny, Available: true}

	if nx < EXACTLIMIT && ny < EXACTLIMIT && !hasTies(combined) {
		result.Exact = true
		result.P = exactTwoSided(rankSumCounts(nx, ny), w, center)
		return result
	}

	total := nxf + nyf
	sigma := math.Sqrt((nxf * nyf / 12) * ((total + 1) - tieCorrection(combined)/(total*(total-1))))

	if sigma == 0 || math.IsNaN(sigma) {
		return Unavailable(method, nx+ny, "zero variance of the statistic")
	}

	z := w - center
	z = (z - continuity(z)) / sigma
	result.P = normalTwoSided(z)

	return result
}

/*KruskalWallis k-sample rank test with tie correction; empty groups are ignored */
func KruskalWallis(groups [][]float64) TestResult {
	const method = "kruskal_wallis"

	var values []float64
	var sizes []int

	for _, group := range groups {
		group = Finite(group)

		if len(group) == 0 {
			continue
		}

		values = append(values, group...)
		sizes = append(sizes, len(group))
	}

	n := len(values)

	if len(sizes) < 2 {
		return Unavailable(method, n, "fewer than two non-empty groups")
	}

	ranks := AverageRanks(values)
	nf := float64(n)

	var h float64
	start := 0

	for _, size := range sizes {
		var sum float64

		for _, r := range ranks[start : start+size] {
			sum += r
		}

		h += sum * sum / float64(size)
		start += size
	}

	h = 12*h/(nf*(nf+1)) - 3*(nf+1)
	denominator := 1 - tieCorrection(values)/(nf*nf*nf-nf)

	if denominator == 0 || math.IsNaN(denominator) {
		return Unavailable(method, n, "all observations are identical")
	}

	h /= denominator
	df := float64(len(sizes) - 1)

	return TestResult{
		Method:    method,
		Statistic: h,
		P:         distuv.ChiSquared{K: df}.Survival(h),
		N:         n,
		Available: true,
	}
}

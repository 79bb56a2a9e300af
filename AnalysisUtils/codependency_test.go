package analysisutils

import (
	"fmt"
	"math"
	"sort"
	"testing"

	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func cdiRecords(target string, values []float64, fdr func(i int) float64) []scoring.CDIRecord {
	records := make([]scoring.CDIRecord, len(values))

	for i, value := range values {
		records[i] = scoring.CDIRecord{
			ReferenceGene: "FEN1",
			TargetGene:    target,
			SampleID:      fmt.Sprintf("S%02d_p_P", i),
			NCDI:          value,
			FDR:           fdr(i),
		}
	}

	return records
}

func alternating(n int, a, b float64) []float64 {
	values := make([]float64, n)

	for i := range values {
		values[i] = a

		if i%2 == 1 {
			values[i] = b
		}
	}

	return values
}

func defaultCoDepOptions() CoDepOptions {
	return CoDepOptions{MinSamples: 30, SampleFDR: 0.05, Alpha: 0.05, MinFraction: 0.5, Seed: 2019}
}

func TestAggregateCoDependencyClosedForm(t *testing.T) {
	allSignificant := func(int) float64 { return 0.01 }
	halfSignificant := func(i int) float64 { return 0.01 + float64(i%2) }

	var records []scoring.CDIRecord
	records = append(records, cdiRecords("PCNA", alternating(32, 0.4, 0.6), allSignificant)...)
	records = append(records, cdiRecords("RFC4", alternating(32, -0.1, 0.3), halfSignificant)...)
	records = append(records, cdiRecords("FEW", alternating(30, 0.4, 0.6), allSignificant)...)
	records = append(records, cdiRecords("FLAT", alternating(40, 0.2, 0.2), allSignificant)...)
	records = append(records, scoring.CDIRecord{ReferenceGene: "FEN1", TargetGene: "PCNA", NCDI: math.NaN(), FDR: 1})

	summaries := AggregateCoDependency(records, defaultCoDepOptions())
	require.Len(t, summaries, 2)

	byGene := make(map[string]CoDepSummary)

	for _, summary := range summaries {
		byGene[summary.TargetGene] = summary
	}

	assert.NotContains(t, byGene, "FEW")
	assert.NotContains(t, byGene, "FLAT")

	pcna, rfc4 := byGene["PCNA"], byGene["RFC4"]

	assert.Equal(t, 32, pcna.N)
	assert.InDelta(t, 0.5, pcna.Mean, 1e-12)
	assert.InDelta(t, 0.1, pcna.SD, 1e-12)
	assert.InDelta(t, 0.5/(0.1/math.Sqrt(32)), pcna.Z, 1e-9)

	zRFC4 := 0.1 / (0.2 / math.Sqrt(32))
	pRFC4 := 2 * distuv.UnitNormal.Survival(zRFC4)
	pPCNA := 2 * distuv.UnitNormal.Survival(pcna.Z)

	assert.InDelta(t, zRFC4, rfc4.Z, 1e-9)
	assert.InDelta(t, pRFC4, rfc4.P, 1e-12)
	assert.InDelta(t, pRFC4, rfc4.PAdj, 1e-12)
	assert.InDelta(t, math.Min(2*pPCNA, pRFC4), pcna.PAdj, 1e-12)

	assert.Equal(t, 1, pcna.Rank)
	assert.Equal(t, 2, rfc4.Rank)
}

func TestAggregateCoDependencySignificanceRule(t *testing.T) {
	allSignificant := func(int) float64 { return 0.01 }
	halfSignificant := func(i int) float64 { return 0.01 + float64(i%2) }
	mostlySignificant := func(i int) float64 { return 0.01 + float64(i%4/3) }

	var records []scoring.CDIRecord
	records = append(records, cdiRecords("BOTH", alternating(32, 0.4, 0.6), allSignificant)...)
	records = append(records, cdiRecords("HALF", alternating(32, 0.4, 0.6), halfSignificant)...)
	records = append(records, cdiRecords("MOST", alternating(32, 0.4, 0.6), mostlySignificant)...)
	records = append(records, cdiRecords("NULL", alternating(32, -0.5, 0.5), allSignificant)...)

	summaries := AggregateCoDependency(records, defaultCoDepOptions())
	byGene := make(map[string]CoDepSummary)

	for _, summary := range summaries {
		byGene[summary.TargetGene] = summary
	}

	assert.True(t, byGene["BOTH"].Significant)
	assert.Less(t, byGene["HALF"].PAdj, 0.05)
	assert.InDelta(t, 0.5, byGene["HALF"].Fraction, 1e-12)
	assert.False(t, byGene["HALF"].Significant)
	assert.InDelta(t, 0.75, byGene["MOST"].Fraction, 1e-12)
	assert.True(t, byGene["MOST"].Significant)
	assert.Equal(t, 1.0, byGene["NULL"].Fraction)
	assert.False(t, byGene["NULL"].Significant)

	var partners []string

	for _, partner := range SignificantPartners(summaries) {
		partners = append(partners, partner.TargetGene)
	}

	sort.Strings(partners)
	assert.Equal(t, []string{"BOTH", "MOST"}, partners)
}

func TestAggregateCoDependencyRanks(t *testing.T) {
	significant := func(int) float64 { return 0.01 }
	var records []scoring.CDIRecord

	for g := 0; g < 8; g++ {
		low := 0.1 * float64(g/2)
		records = append(records, cdiRecords(fmt.Sprintf("G%d", g), alternating(32, low, low+0.2), significant)...)
	}

	for _, seed := range []uint32{1, 2, 3} {
		opts := defaultCoDepOptions()
		opts.Seed = seed

		summaries := AggregateCoDependency(records, opts)
		require.Len(t, summaries, 8)

		ranks := make([]int, len(summaries))
		byRank := make(map[int]string)

		for i, summary := range summaries {
			ranks[i] = summary.Rank
			byRank[summary.Rank] = summary.TargetGene
		}

		sort.Ints(ranks)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, ranks)
		assert.Contains(t, []string{"G6", "G7"}, byRank[1])
		assert.Contains(t, []string{"G0", "G1"}, byRank[8])
	}
}

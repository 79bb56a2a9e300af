package analysisutils

import (
	"fmt"
	"math"
	"regexp"
	"testing"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stagePattern = regexp.MustCompile(`_[^_]+_([A-Za-z])$`)

var stages = utils.StageConfig{Pattern: stagePattern.String(), Primary: "P", Recurrent: "R"}

func expressionRows(sample string, values []float64, subtypes []string) []ModuleScoreRow {
	rows := make([]ModuleScoreRow, len(values))

	for i, value := range values {
		rows[i] = ModuleScoreRow{
			SampleID:   sample,
			CellID:     fmt.Sprintf("%s_%d", sample, i),
			Expression: map[string]float64{"FEN1": value},
		}

		if subtypes != nil {
			rows[i].Subtype = subtypes[i]
		}
	}

	return rows
}

func TestSummarizeExpression(t *testing.T) {
	rows := expressionRows("Neftel_MGH1_P", []float64{0, 0, 1, 3}, []string{"AC", "AC", "MES", ""})
	rows = append(rows, ModuleScoreRow{SampleID: "Neftel_MGH1_P", Expression: map[string]float64{"FEN1": math.NaN()}})

	summaries := SummarizeExpression(rows, "FEN1", stagePattern, false)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, "Neftel", summary.Study)
	assert.Equal(t, "P", summary.Stage)
	assert.Equal(t, 4, summary.Cells)
	assert.InDelta(t, (math.Log(2)+math.Log(4))/4, summary.MeanLog1p, 1e-12)
	assert.Equal(t, 0.5, summary.Median)
	assert.Equal(t, 0.5, summary.FracExpressing)
	assert.InDelta(t, 2*(3*1+4*3)/(4.0*4)-5.0/4, summary.Gini, 1e-12)

	bySubtype := SummarizeExpression(rows, "FEN1", stagePattern, true)
	require.Len(t, bySubtype, 2)
	assert.Equal(t, "AC", bySubtype[0].Subtype)
	assert.Equal(t, 2, bySubtype[0].Cells)
	assert.Equal(t, "MES", bySubtype[1].Subtype)

	_, err := summary.Metric("variance")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestStandardizeWithinStudy(t *testing.T) {
	summaries := []ExpressionSummary{
		{SampleID: "A_1_P", Study: "A", MeanLog1p: 1},
		{SampleID: "A_2_R", Study: "A", MeanLog1p: 3},
		{SampleID: "B_1_P", Study: "B", MeanLog1p: 2},
		{SampleID: "B_2_R", Study: "B", MeanLog1p: 2},
		{SampleID: "C_1_P", Study: "C", MeanLog1p: 5},
	}

	rows, err := StandardizeWithinStudy(summaries, MetricMeanLog1p)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, -1/math.Sqrt2, rows[0].Value, 1e-12)
	assert.InDelta(t, 1/math.Sqrt2, rows[1].Value, 1e-12)

	_, err = StandardizeWithinStudy(summaries, "variance")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func stageRows(study string, primary, recurrent []float64) []StandardizedRow {
	var rows []StandardizedRow

	for i, value := range primary {
		rows = append(rows, StandardizedRow{
			ExpressionSummary: ExpressionSummary{Gene: "FEN1", SampleID: fmt.Sprintf("%s_p%d_P", study, i), Study: study, Stage: "P"},
			Metric:            MetricMeanLog1p,
			Value:             value,
		})
	}

	for i, value := range recurrent {
		rows = append(rows, StandardizedRow{
			ExpressionSummary: ExpressionSummary{Gene: "FEN1", SampleID: fmt.Sprintf("%s_r%d_R", study, i), Study: study, Stage: "R"},
			Metric:            MetricMeanLog1p,
			Value:             value,
		})
	}

	return rows
}

func TestCompareStages(t *testing.T) {
	rows := stageRows("Big", []float64{-1.5, -1, -0.5}, []float64{0.5, 1, 1.5})
	rows = append(rows, stageRows("Small", []float64{-1, 0}, []float64{1})...)

	results := CompareStages(rows, stages, 5)
	require.Len(t, results, 3)

	big, small, pooled := results[0], results[1], results[2]
	require.Equal(t, "Big", big.Scope)
	require.Equal(t, "Small", small.Scope)
	require.Equal(t, POOLED, pooled.Scope)

	assert.True(t, big.Test.Available)
	assert.InDelta(t, 0.1, big.Test.P, 1e-12)
	assert.Equal(t, map[string]int{"P": 3, "R": 3}, big.Groups)

	assert.False(t, small.Test.Available)
	assert.True(t, math.IsNaN(small.Test.P))
	assert.NotEmpty(t, small.Test.Reason)

	// raw p-values: the pooled test is not adjusted for the per-study tests
	raw := statutils.MannWhitney([]float64{-1.5, -1, -0.5, -1, 0}, []float64{0.5, 1, 1.5, 1})
	assert.True(t, pooled.Test.Available)
	assert.Equal(t, raw.P, pooled.Test.P)
	assert.Equal(t, "FEN1", pooled.Gene)
}

func TestCompareSubtypes(t *testing.T) {
	var rows []StandardizedRow

	for i, subtype := range []string{"AC", "AC", "MES", "MES", "NPC", "NPC", "OPC"} {
		rows = append(rows, StandardizedRow{
			ExpressionSummary: ExpressionSummary{Gene: "FEN1", SampleID: fmt.Sprintf("A_%d_P", i), Study: "A", Subtype: subtype},
			Metric:            MetricMeanLog1p,
			Value:             float64(i),
		})
	}

	rows = append(rows, StandardizedRow{
		ExpressionSummary: ExpressionSummary{Gene: "FEN1", SampleID: "B_1_P", Study: "B", Subtype: "AC"},
		Value:             1,
	})

	results := CompareSubtypes(rows, 5)
	require.Len(t, results, 3)

	assert.Equal(t, "A", results[0].Scope)
	assert.True(t, results[0].Test.Available)
	assert.Equal(t, map[string]int{"AC": 2, "OPC": 1, "MES": 2, "NPC": 2}, results[0].Groups)

	assert.Equal(t, "B", results[1].Scope)
	assert.False(t, results[1].Test.Available)

	assert.Equal(t, POOLED, results[2].Scope)
	assert.True(t, results[2].Test.Available)
}

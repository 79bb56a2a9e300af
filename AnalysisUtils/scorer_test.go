package analysisutils

import (
	"context"
	"math"
	"testing"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorerSources(t *testing.T) []SampleSource {
	return []SampleSource{
		brokenSource{id: "S0_x_P"},
		sutils.Preloaded(newSample(t, "S1_a_P", []string{"FEN1", "PCNA"}, [][]float64{{1, 0, 2}, {3, 1, 0}})),
		sutils.Preloaded(newSample(t, "S2_b_R", []string{"PCNA", "VIM"}, [][]float64{{1, 1, 1}, {0, 2, 0}})),
		sutils.Preloaded(newSample(t, "S3_c_P", []string{"FEN1", "PCNA"}, [][]float64{{0, 5, 1}, {2, 2, 2}})),
	}
}

func scorerOptions(logger log.FieldLogger) ScoreOptions {
	return ScoreOptions{
		ReferenceGenes: []string{"FEN1"},
		GeneSets:       []gsutils.GeneSet{{Name: "P_test", Genes: []string{"PCNA"}}},
		Stemness:       []scoring.StemnessMethod{scoring.GeneCounts, scoring.Entropy},
		Threads:        3,
		Logger:         logger,
	}
}

func TestScoreSamplesIsolatesFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	engine := stubEngine{failModule: map[string]bool{"S3_c_P": true}}

	results, err := ScoreSamples(context.Background(), scorerSources(t), engine, scorerOptions(logger))
	require.NoError(t, err)

	assert.Equal(t, []string{"S1_a_P", "S2_b_R", "S3_c_P"}, results.Processed)
	assert.Equal(t, []string{"S0_x_P", "S1_a_P", "S2_b_R", "S3_c_P"}, results.FailedSamples())

	require.Len(t, results.CDI, 2)
	assert.Equal(t, "S1_a_P", results.CDI[0].SampleID)
	assert.Equal(t, "S3_c_P", results.CDI[1].SampleID)

	assert.Equal(t, map[string]int{
		StageLoad:         1,
		StageCoDependency: 1,
		StageModuleScore:  1,
		StageStemness:     3,
		StageExpression:   1,
	}, results.FailureCounts())

	assert.Equal(t, 2, results.Succeeded[StageCoDependency])
	assert.Equal(t, 2, results.Succeeded[StageModuleScore])
	assert.Equal(t, 3, results.Succeeded[StageStemness])

	require.Len(t, results.Rows, 9)

	for _, row := range results.Rows {
		switch row.SampleID {
		case "S1_a_P":
			assert.Contains(t, row.Scores, "P_test")
			assert.False(t, math.IsNaN(row.Expression["FEN1"]))
		case "S2_b_R":
			assert.True(t, math.IsNaN(row.Expression["FEN1"]))
		case "S3_c_P":
			assert.Empty(t, row.Scores)
		}

		assert.Contains(t, row.Stemness, string(scoring.GeneCounts))
		assert.NotContains(t, row.Stemness, string(scoring.Entropy))
	}

	var loggedLoad bool

	for _, entry := range hook.AllEntries() {
		if entry.Level == log.WarnLevel && entry.Data["sample"] == "S0_x_P" && entry.Data["stage"] == StageLoad {
			loggedLoad = true
		}
	}

	assert.True(t, loggedLoad)
}

func TestScoreSamplesOrderIndependent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	engine := stubEngine{}
	sources := scorerSources(t)

	forward, err := ScoreSamples(context.Background(), sources, engine, scorerOptions(logger))
	require.NoError(t, err)

	reversed := make([]SampleSource, len(sources))

	for i, source := range sources {
		reversed[len(sources)-1-i] = source
	}

	backward, err := ScoreSamples(context.Background(), reversed, engine, scorerOptions(logger))
	require.NoError(t, err)

	assert.Equal(t, forward.CDI, backward.CDI)
	assert.Equal(t, forward.Processed, backward.Processed)
	require.Equal(t, len(forward.Rows), len(backward.Rows))

	for i := range forward.Rows {
		assert.Equal(t, forward.Rows[i].CellID, backward.Rows[i].CellID)
		assert.Equal(t, forward.Rows[i].Scores, backward.Rows[i].Scores)
	}
}

func TestScoreSamplesCellFilter(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sample := newSample(t, "S1_a_P", []string{"FEN1", "PCNA"}, [][]float64{{1, 0, 2}, {3, 1, 0}})
	sample.Meta = &sutils.Metadata{
		Columns: []string{"malignant"},
		Values:  map[string][]string{"malignant": {"yes", "no", "yes"}},
	}

	opts := scorerOptions(logger)
	opts.CellFilter.Column = "malignant"
	opts.CellFilter.Values = []string{"yes"}

	results, err := ScoreSamples(context.Background(), []SampleSource{sutils.Preloaded(sample)}, stubEngine{}, opts)
	require.NoError(t, err)
	require.Len(t, results.Rows, 2)
	assert.Equal(t, 2.0, results.Rows[1].Expression["FEN1"])
}

func TestScoreSamplesCancelled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ScoreSamples(ctx, scorerSources(t), stubEngine{}, scorerOptions(logger))
	assert.ErrorIs(t, err, context.Canceled)
}

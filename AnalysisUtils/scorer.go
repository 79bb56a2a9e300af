/* Multi-sample aggregation and statistical summaries of the per-sample scores */

package analysisutils

import (
	"context"
	"math"
	"sort"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

/*Sub-analyses of the per-sample scorer, used in logs and failure counts */
const (
	StageLoad         = "load"
	StageCoDependency = "codependency"
	StageModuleScore  = "module_score"
	StageStemness     = "stemness"
	StageExpression   = "expression"
)

/*SampleSource a sample that can be loaded on demand */
type SampleSource interface {
	SampleID() string
	Load() (*sutils.Sample, error)
}

/*ModuleScoreRow per-cell scores of one sample. Missing values are NaN or absent */
type ModuleScoreRow struct {
	SampleID   string
	CellID     string
	Scores     map[string]float64
	Stemness   map[string]float64
	Expression map[string]float64
	Subtype    string
}

/*Failure one sub-analysis that failed for one sample */
type Failure struct {
	SampleID string
	Stage    string
	Detail   string
	Err      error
}

/*ScoreOptions what the scorer computes for every sample */
type ScoreOptions struct {
	ReferenceGenes []string
	GeneSets       []gsutils.GeneSet
	Stemness       []scoring.StemnessMethod
	CellFilter     utils.CellFilter
	Threads        int
	Logger         log.FieldLogger
}

/*ScoreResults merged per-sample results, sorted by sample id */
type ScoreResults struct {
	CDI       []scoring.CDIRecord
	Rows      []ModuleScoreRow
	Processed []string
	Failures  []Failure
	Succeeded map[string]int
}

/*FailureCounts number of failures per sub-analysis */
func (r *ScoreResults) FailureCounts() map[string]int {
	counts := make(map[string]int)

	for _, failure := range r.Failures {
		counts[failure.Stage]++
	}

	return counts
}

/*FailedSamples ids of the samples with at least one failed sub-analysis */
func (r *ScoreResults) FailedSamples() []string {
	seen := make(map[string]bool)
	var ids []string

	for _, failure := range r.Failures {
		if !seen[failure.SampleID] {
			seen[failure.SampleID] = true
			ids = append(ids, failure.SampleID)
		}
	}

	sort.Strings(ids)

	return ids
}

type sampleResult struct {
	id        string
	loaded    bool
	cdi       []scoring.CDIRecord
	rows      []ModuleScoreRow
	failures  []Failure
	succeeded []string
}

func (r *sampleResult) fail(stage, detail string, err error, logger log.FieldLogger) {
	r.failures = append(r.failures, Failure{SampleID: r.id, Stage: stage, Detail: detail, Err: err})

	logger.WithFields(log.Fields{
		"sample": r.id,
		"stage":  stage,
		"detail": detail,
		"err":    err,
	}).Warn("sub-analysis failed, sample contribution omitted")
}

/*ScoreSamples run the scoring engine over every sample on a bounded worker pool. A failing
sub-analysis only drops that sample's contribution to that sub-result. The returned error is
only set when the context is cancelled */
func ScoreSamples(ctx context.Context, sources []SampleSource, engine scoring.ScoringEngine,
	opts ScoreOptions) (*ScoreResults, error) {
	logger := opts.Logger

	if logger == nil {
		logger = log.StandardLogger()
	}

	threads := opts.Threads

	if threads < 1 {
		threads = 1
	}

	timer := utils.Timer()
	perSample := make([]*sampleResult, len(sources))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for i, source := range sources {
		i, source := i, source

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			perSample[i] = scoreSample(source, engine, opts, logger)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(perSample, func(i, j int) bool {
		return perSample[i].id < perSample[j].id
	})

	results := &ScoreResults{Succeeded: make(map[string]int)}

	for _, sample := range perSample {
		if sample.loaded {
			results.Processed = append(results.Processed, sample.id)
		}

		results.CDI = append(results.CDI, sample.cdi...)
		results.Rows = append(results.Rows, sample.rows...)
		results.Failures = append(results.Failures, sample.failures...)

		for _, stage := range sample.succeeded {
			results.Succeeded[stage]++
		}
	}

	logger.WithFields(log.Fields{
		"samples":   len(sources),
		"processed": len(results.Processed),
		"failures":  len(results.Failures),
		"cells":     len(results.Rows),
		"seconds":   timer().Seconds(),
	}).Info("per-sample scoring done")

	return results, nil
}

func scoreSample(source SampleSource, engine scoring.ScoringEngine, opts ScoreOptions,
	logger log.FieldLogger) *sampleResult {
	result := &sampleResult{id: source.SampleID()}
	sample, err := source.Load()

	if err != nil {
		result.fail(StageLoad, "", err, logger)
		return result
	}

	if opts.CellFilter.Column != "" {
		if sample, err = sample.SubsetCells(opts.CellFilter.Column, opts.CellFilter.Values); err != nil {
			result.fail(StageLoad, "cell filter", err, logger)
			return result
		}
	}

	result.loaded = true

	for _, gene := range opts.ReferenceGenes {
		records, err := engine.CoDependency(gene, sample)

		if err != nil {
			result.fail(StageCoDependency, gene, err, logger)
			continue
		}

		result.cdi = append(result.cdi, records...)
		result.succeeded = append(result.succeeded, StageCoDependency)
	}

	cells := sample.Cells()
	rows := make([]ModuleScoreRow, len(cells))

	for i, cell := range cells {
		rows[i] = ModuleScoreRow{
			SampleID:   result.id,
			CellID:     cell,
			Scores:     make(map[string]float64, len(opts.GeneSets)),
			Stemness:   make(map[string]float64, len(opts.Stemness)),
			Expression: make(map[string]float64, len(opts.ReferenceGenes)),
		}
	}

	if len(opts.GeneSets) > 0 {
		if scores, err := engine.ModuleScore(opts.GeneSets, sample); err != nil {
			result.fail(StageModuleScore, "", err, logger)
		} else {
			for name, values := range scores {
				for i := range rows {
					rows[i].Scores[name] = values[i]
				}
			}

			result.succeeded = append(result.succeeded, StageModuleScore)
		}
	}

	for _, method := range opts.Stemness {
		values, err := engine.Stemness(sample, method)

		if err != nil {
			result.fail(StageStemness, string(method), err, logger)
			continue
		}

		for i := range rows {
			rows[i].Stemness[string(method)] = values[i]
		}

		result.succeeded = append(result.succeeded, StageStemness)
	}

	for _, gene := range opts.ReferenceGenes {
		gene = gsutils.NormalizeSymbol(gene)
		values, err := sample.Expression(gene)

		if err != nil {
			result.fail(StageExpression, gene, err, logger)

			for i := range rows {
				rows[i].Expression[gene] = math.NaN()
			}

			continue
		}

		for i := range rows {
			rows[i].Expression[gene] = values[i]
		}

		result.succeeded = append(result.succeeded, StageExpression)
	}

	result.rows = rows

	return result
}

/*EntrySources adapt collection entries to the scorer */
func EntrySources(entries []sutils.Entry) []SampleSource {
	sources := make([]SampleSource, len(entries))

	for i, entry := range entries {
		sources[i] = entry
	}

	return sources
}

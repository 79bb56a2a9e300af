package reportutils

import (
	"encoding/json"
	"sort"
	"time"

	analysis "github.com/NMikolajewicz/Brakel-2025/AnalysisUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	"github.com/google/uuid"
)

/*RunSummary completeness counts of a run, written next to the tables */
type RunSummary struct {
	RunID               string         `json:"run_id"`
	Started             time.Time      `json:"started"`
	Finished            time.Time      `json:"finished"`
	ReferenceGenes      []string       `json:"reference_genes"`
	GeneSets            int            `json:"gene_sets"`
	SamplesTotal        int            `json:"samples_total"`
	SamplesProcessed    int            `json:"samples_processed"`
	SamplesFailed       []string       `json:"samples_failed"`
	Failures            map[string]int `json:"failures"`
	Cells               int            `json:"cells"`
	GenesTested         int            `json:"genes_tested"`
	SignificantGenes    int            `json:"significant_genes"`
	SignificantByGroup  map[string]int `json:"significant_by_group"`
	PathwaysTested      int            `json:"pathways_tested"`
	SignificantPathways int            `json:"significant_pathways"`
	Comparisons         int            `json:"comparisons"`
	UnavailableTests    int            `json:"unavailable_tests"`
	Outputs             []string       `json:"outputs"`
}

/*NewRunSummary summary with a fresh run id */
func NewRunSummary(referenceGenes []string) *RunSummary {
	return &RunSummary{
		RunID:              uuid.NewString(),
		Started:            time.Now(),
		ReferenceGenes:     referenceGenes,
		Failures:           make(map[string]int),
		SignificantByGroup: make(map[string]int),
	}
}

/*AddScores record the per-sample scorer counts */
func (r *RunSummary) AddScores(total int, results *analysis.ScoreResults) {
	r.SamplesTotal = total
	r.SamplesProcessed = len(results.Processed)
	r.SamplesFailed = results.FailedSamples()
	r.Failures = results.FailureCounts()
	r.Cells = len(results.Rows)
}

/*AddCoDependency record the aggregated gene counts */
func (r *RunSummary) AddCoDependency(summaries []analysis.CoDepSummary) {
	r.GenesTested += len(summaries)
	r.SignificantGenes += len(analysis.SignificantPartners(summaries))
}

/*AddGroupCoDependency record the significant partners found within one study group */
func (r *RunSummary) AddGroupCoDependency(group string, summaries []analysis.CoDepSummary) {
	r.SignificantByGroup[group] = len(analysis.SignificantPartners(summaries))
}

/*AddPathways record the aggregated pathway counts */
func (r *RunSummary) AddPathways(summaries []analysis.PathwaySummary) {
	r.PathwaysTested += len(summaries)

	for _, summary := range summaries {
		if summary.Significant {
			r.SignificantPathways++
		}
	}
}

/*AddComparisons record the comparison test counts */
func (r *RunSummary) AddComparisons(results []analysis.ComparisonResult) {
	r.Comparisons += len(results)

	for _, result := range results {
		if !result.Test.Available {
			r.UnavailableTests++
		}
	}
}

/*AddOutput record a written file */
func (r *RunSummary) AddOutput(fname string) {
	r.Outputs = append(r.Outputs, fname)
}

/*Write close the summary and write it as indented JSON */
func (r *RunSummary) Write(fname string) error {
	r.Finished = time.Now()
	sort.Strings(r.Outputs)

	data, err := json.MarshalIndent(r, "", "  ")

	if err != nil {
		return err
	}

	writer, err := utils.OpenWriter(fname)

	if err != nil {
		return err
	}

	if _, err = writer.Write(append(data, '\n')); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

package analysisutils

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
)

/*Per-sample expression metrics */
const (
	MetricMeanLog1p      = "mean_log1p"
	MetricMedian         = "median"
	MetricFracExpressing = "frac_expressing"
	MetricGini           = "gini"
)

/*POOLED scope of the tests run across every study */
const POOLED = "pooled"

/*ErrUnknownMetric metric name not supported */
var ErrUnknownMetric = errors.New("unknown expression metric")

/*ExpressionSummary expression of a gene summarised over the cells of one sample (or of
one subtype within a sample) */
type ExpressionSummary struct {
	Gene           string
	SampleID       string
	Study          string
	Stage          string
	Subtype        string
	Cells          int
	MeanLog1p      float64
	Median         float64
	FracExpressing float64
	Gini           float64
}

/*Metric value of a metric by name */
func (s ExpressionSummary) Metric(name string) (float64, error) {
	switch name {
	case MetricMeanLog1p:
		return s.MeanLog1p, nil
	case MetricMedian:
		return s.Median, nil
	case MetricFracExpressing:
		return s.FracExpressing, nil
	case MetricGini:
		return s.Gini, nil
	default:
		return math.NaN(), fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
}

/*SummarizeExpression per-sample (or per sample and subtype) summaries of a gene's
expression. Study and stage come from the sample id; unassigned cells are ignored when
splitting by subtype */
func SummarizeExpression(rows []ModuleScoreRow, gene string, pattern *regexp.Regexp,
	bySubtype bool) []ExpressionSummary {
	type key struct{ sample, subtype string }

	values := make(map[key][]float64)
	var keys []key

	for _, row := range rows {
		value, ok := row.Expression[gene]

		if !present(value, ok) {
			continue
		}

		k := key{sample: row.SampleID}

		if bySubtype {
			if row.Subtype == "" {
				continue
			}

			k.subtype = row.Subtype
		}

		if _, isInside := values[k]; !isInside {
			keys = append(keys, k)
		}

		values[k] = append(values[k], value)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sample != keys[j].sample {
			return keys[i].sample < keys[j].sample
		}

		return keys[i].subtype < keys[j].subtype
	})

	summaries := make([]ExpressionSummary, len(keys))

	for i, k := range keys {
		study, stage := sutils.ParseSampleMeta(k.sample, pattern)
		cells := values[k]

		summaries[i] = ExpressionSummary{
			Gene:           gene,
			SampleID:       k.sample,
			Study:          study,
			Stage:          stage,
			Subtype:        k.subtype,
			Cells:          len(cells),
			MeanLog1p:      statutils.Log1pMean(cells),
			Median:         statutils.Median(cells),
			FracExpressing: statutils.FractionPositive(cells),
			Gini:           statutils.Gini(cells),
		}
	}

	return summaries
}

/*StandardizedRow a summary with its metric standardised within its study */
type StandardizedRow struct {
	ExpressionSummary
	Metric string
	Value  float64
}

/*StandardizeWithinStudy z-score the metric within each study (sample standard deviation).
Studies whose metric has an undefined or null variance contribute no row */
func StandardizeWithinStudy(summaries []ExpressionSummary, metric string) ([]StandardizedRow, error) {
	byStudy := make(map[string][]ExpressionSummary)
	var studies []string

	for _, summary := range summaries {
		value, err := summary.Metric(metric)

		if err != nil {
			return nil, err
		}

		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}

		if _, isInside := byStudy[summary.Study]; !isInside {
			studies = append(studies, summary.Study)
		}

		byStudy[summary.Study] = append(byStudy[summary.Study], summary)
	}

	sort.Strings(studies)

	var rows []StandardizedRow

	for _, study := range studies {
		group := byStudy[study]
		values := make([]float64, len(group))

		for i, summary := range group {
			values[i], _ = summary.Metric(metric)
		}

		z, ok := statutils.Standardize(values)

		if !ok {
			continue
		}

		for i, summary := range group {
			rows = append(rows, StandardizedRow{ExpressionSummary: summary, Metric: metric, Value: z[i]})
		}
	}

	return rows, nil
}

/*ComparisonResult one rank test of the standardised metric. P-values are raw: no
multiple-testing adjustment is applied across the per-study and pooled tests */
type ComparisonResult struct {
	Contrast string
	Scope    string
	Gene     string
	Metric   string
	Groups   map[string]int
	Test     statutils.TestResult
}

func studiesOf(rows []StandardizedRow) []string {
	seen := make(map[string]bool)
	var studies []string

	for _, row := range rows {
		if !seen[row.Study] {
			seen[row.Study] = true
			studies = append(studies, row.Study)
		}
	}

	sort.Strings(studies)

	return append(studies, POOLED)
}

func inScope(row StandardizedRow, scope string) bool {
	return scope == POOLED || row.Study == scope
}

func geneAndMetric(rows []StandardizedRow) (string, string) {
	if len(rows) == 0 {
		return "", ""
	}

	return rows[0].Gene, rows[0].Metric
}

/*CompareStages Wilcoxon rank-sum test of primary against recurrent tumours, per study and
pooled. A scope with at most minRows usable rows is reported unavailable */
func CompareStages(rows []StandardizedRow, stage utils.StageConfig, minRows int) []ComparisonResult {
	gene, metric := geneAndMetric(rows)
	var results []ComparisonResult

	for _, scope := range studiesOf(rows) {
		var primary, recurrent []float64

		for _, row := range rows {
			if !inScope(row, scope) {
				continue
			}

			switch row.Stage {
			case stage.Primary:
				primary = append(primary, row.Value)
			case stage.Recurrent:
				recurrent = append(recurrent, row.Value)
			}
		}

		result := ComparisonResult{
			Contrast: "stage",
			Scope:    scope,
			Gene:     gene,
			Metric:   metric,
			Groups:   map[string]int{stage.Primary: len(primary), stage.Recurrent: len(recurrent)},
		}

		if usable := len(primary) + len(recurrent); usable <= minRows {
			result.Test = statutils.Unavailable("wilcoxon_rank_sum", usable,
				"%d usable rows, more than %d required", usable, minRows)
		} else {
			result.Test = statutils.MannWhitney(primary, recurrent)
		}

		results = append(results, result)
	}

	return results
}

/*CompareSubtypes Kruskal-Wallis test of the standardised metric across subtypes, per study
and pooled. A scope with at most minRows usable rows is reported unavailable */
func CompareSubtypes(rows []StandardizedRow, minRows int) []ComparisonResult {
	gene, metric := geneAndMetric(rows)
	var results []ComparisonResult

	for _, scope := range studiesOf(rows) {
		groups := make(map[string][]float64)
		usable := 0

		for _, row := range rows {
			if !inScope(row, scope) || row.Subtype == "" {
				continue
			}

			groups[row.Subtype] = append(groups[row.Subtype], row.Value)
			usable++
		}

		result := ComparisonResult{
			Contrast: "subtype",
			Scope:    scope,
			Gene:     gene,
			Metric:   metric,
			Groups:   make(map[string]int, len(groups)),
		}

		var ordered [][]float64

		for _, subtype := range SUBTYPES {
			if values, isInside := groups[subtype]; isInside {
				result.Groups[subtype] = len(values)
				ordered = append(ordered, values)
			}
		}

		if usable <= minRows {
			result.Test = statutils.Unavailable("kruskal_wallis", usable,
				"%d usable rows, more than %d required", usable, minRows)
		} else {
			result.Test = statutils.KruskalWallis(ordered)
		}

		results = append(results, result)
	}

	return results
}

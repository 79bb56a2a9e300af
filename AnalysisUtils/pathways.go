package analysisutils

import (
	"math"
	"sort"

	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
	log "github.com/sirupsen/logrus"
)

/*MINCOMPLETECELLS fewest complete cells a sample needs to enter the correlation */
const MINCOMPLETECELLS = 3

/*CorrelationRecord Spearman correlation of a score column with the feature in one sample */
type CorrelationRecord struct {
	Pathway     string
	SampleID    string
	Feature     string
	Correlation float64
}

/*PathwaySummary correlation of a pathway with the feature across samples */
type PathwaySummary struct {
	Pathway         string
	Feature         string
	MeanCorrelation float64
	N               int
	Test            statutils.TestResult
	PAdj            float64
	Significant     bool
}

/*ColumnGetter extracts one named value of a row, false when absent */
type ColumnGetter func(row ModuleScoreRow, column string) (float64, bool)

/*ScoreColumn read gene-set scores */
func ScoreColumn(row ModuleScoreRow, column string) (float64, bool) {
	value, ok := row.Scores[column]
	return value, ok
}

/*StemnessColumn read stemness indices */
func StemnessColumn(row ModuleScoreRow, column string) (float64, bool) {
	value, ok := row.Stemness[column]
	return value, ok
}

func present(value float64, ok bool) bool {
	return ok && !math.IsNaN(value) && !math.IsInf(value, 0)
}

/*groupRows rows per sample id, samples sorted */
func groupRows(rows []ModuleScoreRow) ([]string, map[string][]ModuleScoreRow) {
	bySample := make(map[string][]ModuleScoreRow)
	var ids []string

	for _, row := range rows {
		if _, isInside := bySample[row.SampleID]; !isInside {
			ids = append(ids, row.SampleID)
		}

		bySample[row.SampleID] = append(bySample[row.SampleID], row)
	}

	sort.Strings(ids)

	return ids, bySample
}

/*PathwayCorrelations per-sample Spearman correlation of each column with the feature's
expression. Within a sample, only cells holding a value for every column and for the
feature enter the computation. Columns missing in every cell of a sample are dropped for
that sample first, and samples left with fewer than MINCOMPLETECELLS complete cells are
skipped */
func PathwayCorrelations(rows []ModuleScoreRow, columns []string, get ColumnGetter, feature string,
	logger log.FieldLogger) []CorrelationRecord {
	ids, bySample := groupRows(rows)
	var records []CorrelationRecord

	for _, id := range ids {
		cells := bySample[id]
		var kept []string

		for _, column := range columns {
			for _, row := range cells {
				if present(get(row, column)) {
					kept = append(kept, column)
					break
				}
			}
		}

		if dropped := len(columns) - len(kept); dropped > 0 {
			logger.WithFields(log.Fields{
				"sample":  id,
				"dropped": dropped,
			}).Info("columns without any value dropped from the sample correlation")
		}

		if len(kept) == 0 {
			continue
		}

		var featureValues []float64
		matrix := make([][]float64, len(kept))

		for _, row := range cells {
			expression, ok := row.Expression[feature]

			if !present(expression, ok) {
				continue
			}

			complete := true
			values := make([]float64, len(kept))

			for k, column := range kept {
				value, ok := get(row, column)

				if !present(value, ok) {
					complete = false
					break
				}

				values[k] = value
			}

			if !complete {
				continue
			}

			featureValues = append(featureValues, expression)

			for k := range kept {
				matrix[k] = append(matrix[k], values[k])
			}
		}

		if len(featureValues) < MINCOMPLETECELLS {
			logger.WithFields(log.Fields{
				"sample":   id,
				"complete": len(featureValues),
			}).Warn("too few complete cells, sample skipped from correlations")
			continue
		}

		for k, column := range kept {
			rho := statutils.Spearman(matrix[k], featureValues)

			if math.IsNaN(rho) {
				continue
			}

			records = append(records, CorrelationRecord{
				Pathway:     column,
				SampleID:    id,
				Feature:     feature,
				Correlation: rho,
			})
		}
	}

	return records
}

/*AggregatePathways mean correlation per pathway and one-sample Wilcoxon signed-rank test of
the per-sample correlations against zero. Bonferroni adjustment runs across the pathways
with an available p-value. Sorted by adjusted p-value, then name */
func AggregatePathways(records []CorrelationRecord, alpha float64) []PathwaySummary {
	type key struct{ pathway, feature string }

	values := make(map[key][]float64)
	var keys []key

	for _, record := range records {
		k := key{record.Pathway, record.Feature}

		if _, isInside := values[k]; !isInside {
			keys = append(keys, k)
		}

		values[k] = append(values[k], record.Correlation)
	}

	summaries := make([]PathwaySummary, len(keys))
	pvalues := make([]float64, len(keys))

	for i, k := range keys {
		test := statutils.WilcoxonSignedRank(values[k], 0)
		summaries[i] = PathwaySummary{
			Pathway:         k.pathway,
			Feature:         k.feature,
			MeanCorrelation: statutils.Mean(values[k]),
			N:               len(values[k]),
			Test:            test,
		}

		pvalues[i] = math.NaN()

		if test.Available {
			pvalues[i] = test.P
		}
	}

	padj := statutils.Bonferroni(pvalues)

	for i := range summaries {
		summaries[i].PAdj = padj[i]
		summaries[i].Significant = !math.IsNaN(padj[i]) && padj[i] < alpha
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].PAdj, summaries[j].PAdj

		switch {
		case math.IsNaN(a) != math.IsNaN(b):
			return math.IsNaN(b)
		case !math.IsNaN(a) && a != b:
			return a < b
		case summaries[i].Pathway != summaries[j].Pathway:
			return summaries[i].Pathway < summaries[j].Pathway
		default:
			return summaries[i].Feature < summaries[j].Feature
		}
	})

	return summaries
}

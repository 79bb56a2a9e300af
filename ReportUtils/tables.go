/* Result tables, plots, database export and run summary */

package reportutils

import (
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"

	analysis "github.com/NMikolajewicz/Brakel-2025/AnalysisUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
)

/*NA written for missing values */
const NA = "NA"

/*FormatFloat compact float, NA when missing */
func FormatFloat(value float64) string {
	if math.IsNaN(value) {
		return NA
	}

	return strconv.FormatFloat(value, 'g', 8, 64)
}

/*writeTable write a tab separated table, compressed according to the extension */
func writeTable(fname string, header []string, records [][]string) error {
	writer, err := utils.OpenWriter(fname)

	if err != nil {
		return err
	}

	table := csv.NewWriter(writer)
	table.Comma = '\t'

	if err = table.Write(header); err != nil {
		writer.Close()
		return err
	}

	if err = table.WriteAll(records); err != nil {
		writer.Close()
		return fmt.Errorf("writing %s: %w", fname, err)
	}

	return writer.Close()
}

/*WriteCoDependency per-gene co-dependency statistics */
func WriteCoDependency(fname string, summaries []analysis.CoDepSummary) error {
	header := []string{"reference_gene", "target_gene", "rank", "mean_ncdi", "median_ncdi", "sd_ncdi",
		"n_samples", "n_significant", "fraction_significant", "z", "p_value", "p_adj", "significant"}
	records := make([][]string, len(summaries))

	for i, s := range summaries {
		records[i] = []string{
			s.ReferenceGene, s.TargetGene, strconv.Itoa(s.Rank),
			FormatFloat(s.Mean), FormatFloat(s.Median), FormatFloat(s.SD),
			strconv.Itoa(s.N), strconv.Itoa(s.NSignificant), FormatFloat(s.Fraction),
			FormatFloat(s.Z), FormatFloat(s.P), FormatFloat(s.PAdj), strconv.FormatBool(s.Significant),
		}
	}

	return writeTable(fname, header, records)
}

/*WritePathways per-pathway (or per stemness index) correlation statistics */
func WritePathways(fname string, summaries []analysis.PathwaySummary) error {
	header := []string{"pathway", "feature", "mean_correlation", "n_samples", "statistic", "p_value",
		"p_adj", "significant", "note"}
	records := make([][]string, len(summaries))

	for i, s := range summaries {
		records[i] = []string{
			s.Pathway, s.Feature, FormatFloat(s.MeanCorrelation), strconv.Itoa(s.N),
			FormatFloat(s.Test.Statistic), FormatFloat(s.Test.P), FormatFloat(s.PAdj),
			strconv.FormatBool(s.Significant), s.Test.Reason,
		}
	}

	return writeTable(fname, header, records)
}

/*WriteComparisons stage and subtype contrasts. P-values are raw */
func WriteComparisons(fname string, results []analysis.ComparisonResult) error {
	header := []string{"contrast", "scope", "gene", "metric", "groups", "method", "statistic",
		"p_value_raw", "available", "note"}
	records := make([][]string, len(results))

	for i, r := range results {
		records[i] = []string{
			r.Contrast, r.Scope, r.Gene, r.Metric, formatGroups(r.Groups), r.Test.Method,
			FormatFloat(r.Test.Statistic), FormatFloat(r.Test.P), strconv.FormatBool(r.Test.Available),
			r.Test.Reason,
		}
	}

	return writeTable(fname, header, records)
}

func formatGroups(groups map[string]int) string {
	names := make([]string, 0, len(groups))

	for name := range groups {
		names = append(names, name)
	}

	sort.Strings(names)

	out := ""

	for i, name := range names {
		if i > 0 {
			out += ","
		}

		out += fmt.Sprintf("%s=%d", name, groups[name])
	}

	return out
}

/*WriteSubtypeFractions per-sample subtype proportions */
func WriteSubtypeFractions(fname string, fractions []analysis.SubtypeFraction) error {
	header := []string{"sample", "subtype", "cells", "fraction"}
	records := make([][]string, len(fractions))

	for i, f := range fractions {
		records[i] = []string{f.SampleID, f.Subtype, strconv.Itoa(f.Cells), FormatFloat(f.Fraction)}
	}

	return writeTable(fname, header, records)
}

/*WriteCellTable one line per cell: scores, stemness indices, expression and subtype */
func WriteCellTable(fname string, rows []analysis.ModuleScoreRow, sets, stemness, genes []string) error {
	header := []string{"sample", "cell"}
	header = append(header, sets...)
	header = append(header, stemness...)
	header = append(header, genes...)
	header = append(header, "subtype")

	lookup := func(values map[string]float64, key string) string {
		value, ok := values[key]

		if !ok {
			return NA
		}

		return FormatFloat(value)
	}

	records := make([][]string, len(rows))

	for i, row := range rows {
		record := []string{row.SampleID, row.CellID}

		for _, set := range sets {
			record = append(record, lookup(row.Scores, set))
		}

		for _, method := range stemness {
			record = append(record, lookup(row.Stemness, method))
		}

		for _, gene := range genes {
			record = append(record, lookup(row.Expression, gene))
		}

		subtype := row.Subtype

		if subtype == "" {
			subtype = NA
		}

		records[i] = append(record, subtype)
	}

	return writeTable(fname, header, records)
}

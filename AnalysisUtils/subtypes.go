package analysisutils

import (
	"math"
	"sort"
)

/*SUBTYPES canonical subtypes, in tie-break order: on equal scores the first one wins */
var SUBTYPES = []string{"AC", "OPC", "MES", "NPC"}

/*CombineSubtypeScores score of each canonical subtype: the unweighted mean of the scores
of its programs. A program score that is absent or NaN makes the subtype score NaN */
func CombineSubtypeScores(scores map[string]float64, programs map[string][]string) map[string]float64 {
	combined := make(map[string]float64, len(programs))

	for subtype, columns := range programs {
		if len(columns) == 0 {
			combined[subtype] = math.NaN()
			continue
		}

		var sum float64

		for _, column := range columns {
			value, ok := scores[column]

			if !ok {
				value = math.NaN()
			}

			sum += value
		}

		combined[subtype] = sum / float64(len(columns))
	}

	return combined
}

/*AssignSubtype arg-max over the finite combined scores. Ties go to the subtype listed
first in SUBTYPES; no finite score leaves the cell unassigned ("") */
func AssignSubtype(combined map[string]float64) string {
	best := ""
	bestScore := math.Inf(-1)

	for _, subtype := range SUBTYPES {
		score, ok := combined[subtype]

		if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}

		if best == "" || score > bestScore {
			best = subtype
			bestScore = score
		}
	}

	return best
}

/*AssignSubtypes fill the Subtype of every row */
func AssignSubtypes(rows []ModuleScoreRow, programs map[string][]string) {
	for i := range rows {
		rows[i].Subtype = AssignSubtype(CombineSubtypeScores(rows[i].Scores, programs))
	}
}

/*SubtypeFraction share of a sample's assigned cells falling in one subtype */
type SubtypeFraction struct {
	SampleID string
	Subtype  string
	Cells    int
	Fraction float64
}

/*SubtypeFractions per-sample subtype proportions over the assigned cells */
func SubtypeFractions(rows []ModuleScoreRow) []SubtypeFraction {
	ids, bySample := groupRows(rows)
	var fractions []SubtypeFraction

	for _, id := range ids {
		counts := make(map[string]int)
		total := 0

		for _, row := range bySample[id] {
			if row.Subtype == "" {
				continue
			}

			counts[row.Subtype]++
			total++
		}

		if total == 0 {
			continue
		}

		subtypes := make([]string, 0, len(counts))

		for subtype := range counts {
			subtypes = append(subtypes, subtype)
		}

		sort.Strings(subtypes)

		for _, subtype := range subtypes {
			fractions = append(fractions, SubtypeFraction{
				SampleID: id,
				Subtype:  subtype,
				Cells:    counts[subtype],
				Fraction: float64(counts[subtype]) / float64(total),
			})
		}
	}

	return fractions
}

package scoringutils

import (
	"fmt"
	"math"

	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
)

/*Stemness per-cell stemness index computed with the given method */
func (e *NativeEngine) Stemness(m ExpressionMatrix, method StemnessMethod) ([]float64, error) {
	switch method {
	case GeneCounts:
		return geneCountsIndex(m)
	case Entropy:
		return entropyIndex(m)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

/*geneCountsIndex percentile rank of the number of detected genes per cell, in [0, 1].
Cells detecting more genes are considered less differentiated */
func geneCountsIndex(m ExpressionMatrix) ([]float64, error) {
	nbCells := len(m.Cells())

	if nbCells < 2 {
		return nil, fmt.Errorf("sample %s: gene_counts needs at least two cells", m.SampleID())
	}

	counts := make([]float64, nbCells)
	total := 0.0

	for _, gene := range uniqueGenes(m) {
		row, _ := m.Row(gene)

		for cell, value := range row {
			if value > 0 {
				counts[cell]++
				total++
			}
		}
	}

	if total == 0 {
		return nil, fmt.Errorf("sample %s: no gene detected in any cell", m.SampleID())
	}

	ranks := statutils.AverageRanks(counts)

	for cell := range ranks {
		ranks[cell] = (ranks[cell] - 1) / float64(nbCells-1)
	}

	return ranks, nil
}

/*entropyIndex Shannon entropy of each cell's expression distribution, normalised by the
entropy of a uniform distribution over the measured genes. Cells without any expression
score NaN */
func entropyIndex(m ExpressionMatrix) ([]float64, error) {
	genes := uniqueGenes(m)
	nbCells := len(m.Cells())

	if len(genes) < 2 {
		return nil, fmt.Errorf("sample %s: entropy needs at least two genes", m.SampleID())
	}

	rows := make([][]float64, len(genes))
	totals := make([]float64, nbCells)

	for i, gene := range genes {
		rows[i], _ = m.Row(gene)

		for cell, value := range rows[i] {
			if value < 0 || math.IsNaN(value) {
				return nil, fmt.Errorf("sample %s: entropy needs non-negative expression (%s)",
					m.SampleID(), gene)
			}

			totals[cell] += value
		}
	}

	entropy := make([]float64, nbCells)
	norm := math.Log(float64(len(genes)))

	for cell := range entropy {
		if totals[cell] == 0 {
			entropy[cell] = math.NaN()
			continue
		}

		for _, row := range rows {
			if row[cell] == 0 {
				continue
			}

			p := row[cell] / totals[cell]
			entropy[cell] -= p * math.Log(p)
		}

		entropy[cell] /= norm
	}

	return entropy, nil
}

package scoringutils

import (
	"fmt"
	"math"
	"sort"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
	"github.com/valyala/fastrand"
)

/*expressionBins assign each gene to one of nbBins equal-frequency bins of mean expression */
func expressionBins(genes []string, rows map[string][]float64, nbBins int) (map[string]int, [][]string) {
	means := make(map[string]float64, len(genes))
	ordered := append([]string(nil), genes...)

	for _, gene := range genes {
		means[gene] = statutils.Mean(rows[gene])
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if means[ordered[i]] != means[ordered[j]] {
			return means[ordered[i]] < means[ordered[j]]
		}

		return ordered[i] < ordered[j]
	})

	if nbBins > len(ordered) {
		nbBins = len(ordered)
	}

	binOf := make(map[string]int, len(ordered))
	bins := make([][]string, nbBins)

	for rank, gene := range ordered {
		bin := rank * nbBins / len(ordered)
		binOf[gene] = bin
		bins[bin] = append(bins[bin], gene)
	}

	return binOf, bins
}

/*drawControls pick up to n distinct genes of the bin (partial Fisher-Yates) */
func drawControls(bin []string, n int, rng *fastrand.RNG) []string {
	pool := append([]string(nil), bin...)

	if n > len(pool) {
		n = len(pool)
	}

	for i := 0; i < n; i++ {
		j := i + int(rng.Uint32n(uint32(len(pool)-i)))
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:n]
}

func meanOverGenes(genes []string, rows map[string][]float64, nbCells int) []float64 {
	scores := make([]float64, nbCells)

	for _, gene := range genes {
		for cell, value := range rows[gene] {
			scores[cell] += value
		}
	}

	for cell := range scores {
		scores[cell] /= float64(len(genes))
	}

	return scores
}

/*ModuleScore per-cell score of each gene set: mean expression of the set members minus the
mean expression of control genes drawn from the same mean-expression bins. Scores are not
scaled. A set with no member measured in the sample scores NaN in every cell */
func (e *NativeEngine) ModuleScore(sets []gsutils.GeneSet, m ExpressionMatrix) (map[string][]float64, error) {
	nbCells := len(m.Cells())

	if nbCells == 0 {
		return nil, fmt.Errorf("sample %s: %w", m.SampleID(), sutils.ErrNoCells)
	}

	if e.Bins < 1 || e.Controls < 1 {
		return nil, fmt.Errorf("module score needs at least one bin and one control (got %d, %d)",
			e.Bins, e.Controls)
	}

	genes := uniqueGenes(m)
	rows := make(map[string][]float64, len(genes))

	for _, gene := range genes {
		rows[gene], _ = m.Row(gene)
	}

	binOf, bins := expressionBins(genes, rows, e.Bins)
	rng := e.sampleRNG(m.SampleID())
	scores := make(map[string][]float64, len(sets))

	for _, set := range sets {
		var features []string

		for _, gene := range set.Genes {
			if _, isInside := rows[gene]; isInside {
				features = append(features, gene)
			}
		}

		if len(features) == 0 {
			missing := make([]float64, nbCells)

			for cell := range missing {
				missing[cell] = math.NaN()
			}

			scores[set.Name] = missing
			continue
		}

		controlSet := make(map[string]bool)
		var controls []string

		for _, feature := range features {
			for _, control := range drawControls(bins[binOf[feature]], e.Controls, rng) {
				if !controlSet[control] {
					controlSet[control] = true
					controls = append(controls, control)
				}
			}
		}

		featureScore := meanOverGenes(features, rows, nbCells)
		controlScore := meanOverGenes(controls, rows, nbCells)

		for cell := range featureScore {
			featureScore[cell] -= controlScore[cell]
		}

		scores[set.Name] = featureScore
	}

	return scores, nil
}

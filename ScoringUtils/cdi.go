package scoringutils

import (
	"fmt"
	"math"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
	stats "github.com/glycerine/golang-fisher-exact"
)

/*MINPVALUE floor applied to Fisher p-values before the log transform */
const MINPVALUE = 1e-300

func detected(row []float64) ([]bool, int) {
	mask := make([]bool, len(row))
	count := 0

	for i, value := range row {
		if value > 0 {
			mask[i] = true
			count++
		}
	}

	return mask, count
}

/*upperTailCDI -log10 of the one-sided Fisher p-value for an overlap of at least n11 cells */
func upperTailCDI(n11, nRef, nTarget, nCells int) float64 {
	n12 := nRef - n11
	n21 := nTarget - n11
	n22 := nCells - nRef - nTarget + n11

	_, _, right, _ := stats.FisherExactTest(n11, n12, n21, n22)

	if math.IsNaN(right) {
		return math.NaN()
	}

	return -math.Log10(math.Max(math.Min(right, 1), MINPVALUE))
}

/*CoDependency normalized co-dependency index between the reference gene and every other
gene of the sample. The index is the Fisher upper-tail CDI of the detection overlap divided by
the CDI of the largest overlap the two detection counts allow. FDR is Benjamini-Hochberg
across the tested targets of the sample */
func (e *NativeEngine) CoDependency(referenceGene string, m ExpressionMatrix) ([]CDIRecord, error) {
	referenceGene = gsutils.NormalizeSymbol(referenceGene)
	refRow, ok := m.Row(referenceGene)

	if !ok {
		return nil, fmt.Errorf("%s in sample %s: %w", referenceGene, m.SampleID(), sutils.ErrMissingGene)
	}

	nCells := len(refRow)

	if nCells == 0 {
		return nil, fmt.Errorf("sample %s: %w", m.SampleID(), sutils.ErrNoCells)
	}

	refMask, nRef := detected(refRow)

	if nRef < e.MinDetected {
		return nil, fmt.Errorf("sample %s: %s detected in %d cells, %d required",
			m.SampleID(), referenceGene, nRef, e.MinDetected)
	}

	var records []CDIRecord
	var pvalues []float64

	for _, gene := range uniqueGenes(m) {
		if gene == referenceGene {
			continue
		}

		row, _ := m.Row(gene)
		mask, nTarget := detected(row)
		record := CDIRecord{
			ReferenceGene: referenceGene,
			TargetGene:    gene,
			SampleID:      m.SampleID(),
			NCDI:          math.NaN(),
			FDR:           math.NaN(),
		}

		if nTarget < e.MinDetected {
			record.FDR = 1
			records = append(records, record)
			pvalues = append(pvalues, math.NaN())
			continue
		}

		n11 := 0

		for i := range mask {
			if mask[i] && refMask[i] {
				n11++
			}
		}

		cdi := upperTailCDI(n11, nRef, nTarget, nCells)
		cdiMax := upperTailCDI(minInt(nRef, nTarget), nRef, nTarget, nCells)

		if cdiMax > 0 {
			record.NCDI = cdi / cdiMax
		}

		records = append(records, record)
		pvalues = append(pvalues, math.Pow(10, -cdi))
	}

	fdr := statutils.BenjaminiHochberg(pvalues)

	for i := range records {
		if !math.IsNaN(fdr[i]) {
			records[i].FDR = fdr[i]
		}
	}

	return records, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

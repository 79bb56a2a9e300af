package analysisutils

import (
	"errors"
	"fmt"
	"testing"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newSample(t *testing.T, id string, genes []string, rows [][]float64) *sutils.Sample {
	nbCells := len(rows[0])
	cells := make([]string, nbCells)

	for i := range cells {
		cells[i] = fmt.Sprintf("%s_cell%d", id, i)
	}

	var data []float64

	for _, row := range rows {
		data = append(data, row...)
	}

	sample, err := sutils.NewSample(id, genes, cells, mat.NewDense(len(genes), nbCells, data))
	require.NoError(t, err)

	return sample
}

type brokenSource struct {
	id string
}

func (b brokenSource) SampleID() string {
	return b.id
}

func (b brokenSource) Load() (*sutils.Sample, error) {
	return nil, errors.New("unreadable container")
}

/*stubEngine deterministic engine with injectable failures */
type stubEngine struct {
	failModule map[string]bool
}

func (e stubEngine) CoDependency(reference string, m scoring.ExpressionMatrix) ([]scoring.CDIRecord, error) {
	if _, ok := m.Row(reference); !ok {
		return nil, fmt.Errorf("%s: %w", reference, sutils.ErrMissingGene)
	}

	var records []scoring.CDIRecord

	for _, gene := range m.Genes() {
		if gene == reference {
			continue
		}

		records = append(records, scoring.CDIRecord{
			ReferenceGene: reference,
			TargetGene:    gene,
			SampleID:      m.SampleID(),
			NCDI:          0.5,
			FDR:           0.01,
		})
	}

	return records, nil
}

func (e stubEngine) ModuleScore(sets []gsutils.GeneSet, m scoring.ExpressionMatrix) (map[string][]float64, error) {
	if e.failModule[m.SampleID()] {
		return nil, errors.New("module score failed")
	}

	scores := make(map[string][]float64)

	for _, set := range sets {
		row, ok := m.Row(set.Genes[0])

		if !ok {
			row = make([]float64, len(m.Cells()))
		}

		scores[set.Name] = row
	}

	return scores, nil
}

func (e stubEngine) Stemness(m scoring.ExpressionMatrix, method scoring.StemnessMethod) ([]float64, error) {
	if method == scoring.Entropy {
		return nil, errors.New("entropy failed")
	}

	return make([]float64, len(m.Cells())), nil
}

package sampleutils

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

/*ErrMissingGene the requested gene is not measured in the sample */
var ErrMissingGene = errors.New("gene not measured in sample")

/*ErrNoCells the sample (or the requested subset) holds no cell */
var ErrNoCells = errors.New("sample has no cell")

/*Sample one pre-processed single-cell sample: a genes x cells expression matrix */
type Sample struct {
	ID        string
	Expr      *mat.Dense
	Meta      *Metadata
	genes     []string
	cells     []string
	geneIndex map[string]int
}

/*Metadata per-cell annotations, one value per cell for each column */
type Metadata struct {
	Columns []string
	Values  map[string][]string
}

/*NewSample build a sample. Gene symbols are uppercased; the matrix must be genes x cells */
func NewSample(id string, genes, cells []string, expr *mat.Dense) (*Sample, error) {
	if len(cells) == 0 || expr == nil {
		return nil, fmt.Errorf("sample %s: %w", id, ErrNoCells)
	}

	nbGenes, nbCells := expr.Dims()

	if nbGenes != len(genes) || nbCells != len(cells) {
		return nil, fmt.Errorf("sample %s: matrix is %d x %d but %d genes and %d cells are listed",
			id, nbGenes, nbCells, len(genes), len(cells))
	}

	sample := &Sample{
		ID:        id,
		Expr:      expr,
		genes:     make([]string, len(genes)),
		cells:     append([]string(nil), cells...),
		geneIndex: make(map[string]int, len(genes)),
	}

	for i, gene := range genes {
		gene = strings.ToUpper(strings.TrimSpace(gene))
		sample.genes[i] = gene

		if _, isInside := sample.geneIndex[gene]; !isInside {
			sample.geneIndex[gene] = i
		}
	}

	return sample, nil
}

/*SampleID id of the sample */
func (s *Sample) SampleID() string {
	return s.ID
}

/*Genes measured gene symbols (uppercase), in matrix row order */
func (s *Sample) Genes() []string {
	return s.genes
}

/*Cells cell ids, in matrix column order */
func (s *Sample) Cells() []string {
	return s.cells
}

/*HasGene whether the gene is measured */
func (s *Sample) HasGene(gene string) bool {
	_, isInside := s.geneIndex[strings.ToUpper(gene)]
	return isInside
}

/*Row copy of the expression of a gene across cells */
func (s *Sample) Row(gene string) ([]float64, bool) {
	index, isInside := s.geneIndex[strings.ToUpper(gene)]

	if !isInside {
		return nil, false
	}

	return mat.Row(nil, index, s.Expr), true
}

/*Expression expression of a gene, ErrMissingGene when absent */
func (s *Sample) Expression(gene string) ([]float64, error) {
	row, ok := s.Row(gene)

	if !ok {
		return nil, fmt.Errorf("%s in sample %s: %w", gene, s.ID, ErrMissingGene)
	}

	return row, nil
}

/*MetaValues per-cell values of a metadata column */
func (s *Sample) MetaValues(column string) ([]string, bool) {
	if s.Meta == nil {
		return nil, false
	}

	values, isInside := s.Meta.Values[column]

	return values, isInside
}

/*SubsetCells restrict the sample to the cells whose metadata column holds one of the values */
func (s *Sample) SubsetCells(column string, values []string) (*Sample, error) {
	annotations, ok := s.MetaValues(column)

	if !ok {
		return nil, fmt.Errorf("sample %s: no metadata column %q", s.ID, column)
	}

	keep := make(map[string]bool, len(values))

	for _, value := range values {
		keep[value] = true
	}

	var kept []int

	for cell, value := range annotations {
		if keep[value] {
			kept = append(kept, cell)
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("sample %s with %s in %v: %w", s.ID, column, values, ErrNoCells)
	}

	nbGenes, _ := s.Expr.Dims()
	expr := mat.NewDense(nbGenes, len(kept), nil)
	cells := make([]string, len(kept))

	for j, cell := range kept {
		cells[j] = s.cells[cell]

		for i := 0; i < nbGenes; i++ {
			expr.Set(i, j, s.Expr.At(i, cell))
		}
	}

	subset, err := NewSample(s.ID, s.genes, cells, expr)

	if err != nil {
		return nil, err
	}

	subset.Meta = &Metadata{Columns: s.Meta.Columns, Values: make(map[string][]string, len(s.Meta.Columns))}

	for _, col := range s.Meta.Columns {
		column := make([]string, len(kept))

		for j, cell := range kept {
			column[j] = s.Meta.Values[col][cell]
		}

		subset.Meta.Values[col] = column
	}

	return subset, nil
}

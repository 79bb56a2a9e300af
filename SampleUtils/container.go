package sampleutils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

/*Files of a sample container directory */
const (
	MATRIXFILE   = "matrix.npy"
	GENESFILE    = "genes.tsv"
	CELLSFILE    = "cells.tsv"
	METADATAFILE = "metadata.tsv"
)

/*findFile return the plain or compressed version of a container file */
func findFile(dir, name string) (string, bool) {
	for _, candidate := range []string{name, name + ".gz", name + ".bz2"} {
		fname := filepath.Join(dir, candidate)

		if _, err := os.Stat(fname); err == nil {
			return fname, true
		}
	}

	return filepath.Join(dir, name), false
}

/*LoadSample read a sample container directory */
func LoadSample(dir, id string) (*Sample, error) {
	genesFile, _ := findFile(dir, GENESFILE)
	genes, err := utils.LoadIDList(genesFile)

	if err != nil {
		return nil, fmt.Errorf("sample %s genes: %w", id, err)
	}

	cellsFile, _ := findFile(dir, CELLSFILE)
	cells, err := utils.LoadIDList(cellsFile)

	if err != nil {
		return nil, fmt.Errorf("sample %s cells: %w", id, err)
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("sample %s: %w", id, ErrNoCells)
	}

	expr, err := ReadMatrix(filepath.Join(dir, MATRIXFILE))

	if err != nil {
		return nil, fmt.Errorf("sample %s matrix: %w", id, err)
	}

	sample, err := NewSample(id, genes, cells, expr)

	if err != nil {
		return nil, err
	}

	if metaFile, found := findFile(dir, METADATAFILE); found {
		if sample.Meta, err = ReadMetadata(metaFile, cells); err != nil {
			return nil, fmt.Errorf("sample %s metadata: %w", id, err)
		}
	}

	return sample, nil
}

/*ReadMatrix read a 2D float64 or float32 npy matrix, row or column major */
func ReadMatrix(fname string) (*mat.Dense, error) {
	reader, err := gonpy.NewFileReader(fname)

	if err != nil {
		return nil, err
	}

	if len(reader.Shape) != 2 {
		return nil, fmt.Errorf("%s: expected a 2D matrix, got shape %v", fname, reader.Shape)
	}

	nbRows, nbCols := reader.Shape[0], reader.Shape[1]

	if nbRows == 0 || nbCols == 0 {
		return nil, fmt.Errorf("%s: %w", fname, ErrNoCells)
	}

	var data []float64

	switch {
	case strings.HasSuffix(reader.Dtype, "f8"):
		data, err = reader.GetFloat64()
	case strings.HasSuffix(reader.Dtype, "f4"):
		var single []float32

		if single, err = reader.GetFloat32(); err == nil {
			data = make([]float64, len(single))

			for i, value := range single {
				data[i] = float64(value)
			}
		}
	default:
		return nil, fmt.Errorf("%s: unsupported dtype %s", fname, reader.Dtype)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}

	if reader.ColumnMajor {
		rowMajor := make([]float64, len(data))

		for j := 0; j < nbCols; j++ {
			for i := 0; i < nbRows; i++ {
				rowMajor[i*nbCols+j] = data[j*nbRows+i]
			}
		}

		data = rowMajor
	}

	return mat.NewDense(nbRows, nbCols, data), nil
}

/*WriteMatrix write a matrix as a row-major float64 npy file */
func WriteMatrix(fname string, m mat.Matrix) error {
	nbRows, nbCols := m.Dims()
	data := make([]float64, 0, nbRows*nbCols)

	for i := 0; i < nbRows; i++ {
		for j := 0; j < nbCols; j++ {
			data = append(data, m.At(i, j))
		}
	}

	writer, err := gonpy.NewFileWriter(fname)

	if err != nil {
		return err
	}

	writer.Shape = []int{nbRows, nbCols}

	return writer.WriteFloat64(data)
}

/*ReadMetadata read a per-cell annotation table (header, first column cell id) and align
it on the cell order. Cells absent from the table get empty values */
func ReadMetadata(fname string, cells []string) (*Metadata, error) {
	stream, err := utils.OpenStream(fname)

	if err != nil {
		return nil, err
	}

	defer stream.Close()

	reader := csv.NewReader(stream)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()

	if err != nil {
		return nil, fmt.Errorf("header of %s: %w", fname, err)
	}

	if len(header) < 2 {
		return nil, fmt.Errorf("%s: at least one annotation column is required", fname)
	}

	cellIndex := make(map[string]int, len(cells))

	for i, cell := range cells {
		cellIndex[cell] = i
	}

	meta := &Metadata{Columns: header[1:], Values: make(map[string][]string, len(header)-1)}

	for _, column := range meta.Columns {
		meta.Values[column] = make([]string, len(cells))
	}

	for {
		record, err := reader.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fname, err)
		}

		cell, isInside := cellIndex[record[0]]

		if !isInside {
			continue
		}

		for col := 1; col < len(record) && col < len(header); col++ {
			meta.Values[header[col]][cell] = record[col]
		}
	}

	return meta, nil
}

/*WriteMetadata write the per-cell annotation table of a sample */
func WriteMetadata(fname string, cells []string, meta *Metadata) error {
	writer, err := utils.OpenWriter(fname)

	if err != nil {
		return err
	}

	table := csv.NewWriter(writer)
	table.Comma = '\t'
	table.Write(append([]string{"cell"}, meta.Columns...))

	for i, cell := range cells {
		record := []string{cell}

		for _, column := range meta.Columns {
			record = append(record, meta.Values[column][i])
		}

		table.Write(record)
	}

	table.Flush()

	if err = table.Error(); err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

/*WriteSample write a sample container directory */
func WriteSample(dir string, sample *Sample) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := WriteMatrix(filepath.Join(dir, MATRIXFILE), sample.Expr); err != nil {
		return fmt.Errorf("sample %s matrix: %w", sample.ID, err)
	}

	if err := utils.WriteIDList(filepath.Join(dir, GENESFILE), sample.Genes()); err != nil {
		return err
	}

	if err := utils.WriteIDList(filepath.Join(dir, CELLSFILE), sample.Cells()); err != nil {
		return err
	}

	if sample.Meta != nil {
		return WriteMetadata(filepath.Join(dir, METADATAFILE), sample.Cells(), sample.Meta)
	}

	return nil
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fname, content string) {
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o644))
}

func TestCreateContainerSumsInputs(t *testing.T) {
	dir := t.TempDir()
	SEP = "\t"
	THREADNB = 2
	CELLSIDFNAME = utils.Filename(filepath.Join(dir, "cells.xgi"))
	GENESIDFNAME = utils.Filename(filepath.Join(dir, "genes.ygi"))
	METAFNAME = filepath.Join(dir, "meta.tsv")

	require.NoError(t, utils.WriteIDList(CELLSIDFNAME.String(), []string{"c1", "c2", "c3"}))
	require.NoError(t, utils.WriteIDList(GENESIDFNAME.String(), []string{"fen1", "PCNA"}))
	writeFile(t, METAFNAME, "cell\tmalignant\nc2\tno\nc1\tyes\nc3\tyes\n")
	writeFile(t, filepath.Join(dir, "a.coo"), "0\t0\t2\n2\t1\t1.5\n")
	writeFile(t, filepath.Join(dir, "b.coo"), "# second lane\n0\t0\t1\n1\t1\t4\n")

	out := filepath.Join(dir, "Neftel_p1_P")
	require.NoError(t, createContainer("Neftel_p1_P", []string{
		filepath.Join(dir, "a.coo"), filepath.Join(dir, "b.coo")}, out))

	sample, err := sutils.LoadSample(out, "Neftel_p1_P")
	require.NoError(t, err)

	fen1, err := sample.Expression("FEN1")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 0}, fen1)

	pcna, err := sample.Expression("PCNA")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 4, 1.5}, pcna)

	malignant, ok := sample.MetaValues("malignant")
	require.True(t, ok)
	assert.Equal(t, []string{"yes", "no", "yes"}, malignant)
}

func TestCreateContainerRejectsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	SEP = "\t"
	THREADNB = 1
	METAFNAME = ""
	CELLSIDFNAME = utils.Filename(filepath.Join(dir, "cells.xgi"))
	GENESIDFNAME = utils.Filename(filepath.Join(dir, "genes.ygi"))

	require.NoError(t, utils.WriteIDList(CELLSIDFNAME.String(), []string{"c1"}))
	require.NoError(t, utils.WriteIDList(GENESIDFNAME.String(), []string{"FEN1"}))
	writeFile(t, filepath.Join(dir, "a.coo"), "3\t0\t1\n")

	err := createContainer("s", []string{filepath.Join(dir, "a.coo")}, filepath.Join(dir, "s"))
	assert.ErrorContains(t, err, "outside of 1 cells x 1 genes")
}

func TestCreateContainerRejectsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	SEP = "\t"
	THREADNB = 1
	METAFNAME = ""
	CELLSIDFNAME = utils.Filename(filepath.Join(dir, "cells.xgi"))
	GENESIDFNAME = utils.Filename(filepath.Join(dir, "genes.ygi"))

	require.NoError(t, utils.WriteIDList(CELLSIDFNAME.String(), []string{"c1"}))
	require.NoError(t, utils.WriteIDList(GENESIDFNAME.String(), []string{"FEN1"}))
	writeFile(t, filepath.Join(dir, "empty.coo"), "")

	err := createContainer("s", []string{filepath.Join(dir, "empty.coo")}, filepath.Join(dir, "s"))
	assert.ErrorContains(t, err, "hold no entry")
	assert.NoDirExists(t, filepath.Join(dir, "s"))

	err = createContainer("s", []string{filepath.Join(dir, "absent.coo")}, filepath.Join(dir, "s"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateIndex(t *testing.T) {
	dir := t.TempDir()
	SEP = "\t"
	THREADNB = 1
	METAFNAME = ""
	CELLSIDFNAME = utils.Filename(filepath.Join(dir, "cells.xgi"))
	GENESIDFNAME = utils.Filename(filepath.Join(dir, "genes.ygi"))

	require.NoError(t, utils.WriteIDList(CELLSIDFNAME.String(), []string{"c1", "c2"}))
	require.NoError(t, utils.WriteIDList(GENESIDFNAME.String(), []string{"FEN1"}))
	writeFile(t, filepath.Join(dir, "a.coo"), "1\t0\t1\n")

	for _, id := range []string{"Wang_p2_R", "Wang_p1_P"} {
		require.NoError(t, createContainer(id, []string{filepath.Join(dir, "a.coo")}, filepath.Join(dir, "samples", id)))
	}

	root := filepath.Join(dir, "collection")
	require.NoError(t, createIndex([]string{
		filepath.Join(dir, "samples", "Wang_p2_R"),
		filepath.Join(dir, "samples", "Wang_p1_P"),
	}, root))

	collection, err := sutils.OpenCollection(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Wang_p1_P", "Wang_p2_R"}, collection.IDs())

	assert.Error(t, createIndex([]string{filepath.Join(dir, "missing")}, root))
}

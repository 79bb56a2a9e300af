package scrnautils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderCompression(t *testing.T) {
	dir := t.TempDir()

	for _, ext := range []string{".tsv", ".tsv.gz", ".tsv.bz2"} {
		t.Run(ext, func(t *testing.T) {
			fname := filepath.Join(dir, "ids"+ext)
			require.NoError(t, WriteIDList(fname, []string{"CELL1", "CELL2", "CELL3"}))

			ids, err := LoadIDList(fname)
			require.NoError(t, err)
			assert.Equal(t, []string{"CELL1", "CELL2", "CELL3"}, ids)

			nbLines, err := CountNbLines(fname)
			require.NoError(t, err)
			assert.Equal(t, 3, nbLines)
		})
	}
}

func TestLoadIDListKeepsFirstColumn(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "cells.tsv")
	require.NoError(t, os.WriteFile(fname, []byte("AAAC\tcluster1\nAAAG cluster2\n\nAAAT\n"), 0o644))

	ids, err := LoadIDList(fname)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAC", "AAAG", "AAAT"}, ids)
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, _, err := OpenReader(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = CountNbLines(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFilenameSet(t *testing.T) {
	var fname Filename

	assert.Error(t, fname.Set(filepath.Join(t.TempDir(), "nope")))

	existing := filepath.Join(t.TempDir(), "yes.tsv")
	require.NoError(t, os.WriteFile(existing, []byte("x\n"), 0o644))
	require.NoError(t, fname.Set(existing))
	assert.Equal(t, existing, fname.String())
}

func TestArrayFlagsAndRankByCount(t *testing.T) {
	var flags ArrayFlags
	require.NoError(t, flags.Set("a"))
	require.NoError(t, flags.Set("b"))
	assert.Equal(t, "a\tb", flags.String())

	ranked := RankByCount(map[string]int{"x": 1, "y": 3, "z": 3})
	assert.Equal(t, PairList{{"y", 3}, {"z", 3}, {"x", 1}}, ranked)
}

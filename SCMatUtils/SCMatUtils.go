/* Suite of functions dedicated to build single-cell sample containers from sparse COO matrices */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	"gonum.org/v1/gonum/mat"
)

/*INFILES multiple input files (COO matrices or sample directories) */
var INFILES utils.ArrayFlags

/*CELLSIDFNAME file name file with ordered cell IDs (one ID per line) */
var CELLSIDFNAME utils.Filename

/*GENESIDFNAME file name file with ordered gene symbols (one symbol per line) */
var GENESIDFNAME utils.Filename

/*METAFNAME per-cell annotation table */
var METAFNAME string

/*SAMPLEID id of the sample container */
var SAMPLEID string

/*CREATECONTAINER create a sample container from COO matrices */
var CREATECONTAINER bool

/*CREATEINDEX register sample containers into a collection index */
var CREATEINDEX bool

/*SEP separator of the COO input */
var SEP string

/*FILENAMEOUT  output directory */
var FILENAMEOUT string

/*THREADNB number of COO files read concurrently */
var THREADNB int

/*MUTEX global mutex */
var MUTEX sync.Mutex

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
#################### MODULE TO BUILD SINGLE CELL SAMPLE CONTAINERS ########################

USAGE: SCMatUtils -coo -in <cooFile> (-in <cooFile2> ...) -xgi <fname> -ygi <fname> -id <sampleID> -out <dir> (-meta <fname> -threads <int>)
       SCMatUtils -index -in <sampleDir> -in <sampleDir2> ... -out <collectionRoot>

`)
		flag.PrintDefaults()
	}

	flag.StringVar(&FILENAMEOUT, "out", "", "output directory (sample container or collection root)")
	flag.Var(&INFILES, "in", "name of the input file(s) or sample directories")
	flag.Var(&CELLSIDFNAME, "xgi", "name of the file containing the ordered list of cell IDs (one ID per line)")
	flag.Var(&GENESIDFNAME, "ygi", "name of the file containing the ordered list of gene symbols (one symbol per line)")
	flag.StringVar(&METAFNAME, "meta", "", "per-cell annotation table (header, first column cell ID)")
	flag.StringVar(&SAMPLEID, "id", "", "sample ID (default: output directory name)")
	flag.StringVar(&SEP, "delimiter", "\t", "delimiter used in the COO file (default \t)")
	flag.BoolVar(&CREATECONTAINER, "coo", false,
		`transform one or multiple COO matrices (cell pos, gene pos, value) into a sample container. Values of multiple inputs are summed
                USAGE: SCMatUtils -coo -in <cooFile> -xgi <fname> -ygi <fname> -out <dir>`)
	flag.BoolVar(&CREATEINDEX, "index", false,
		`write the samples.tsv index of a collection root from sample directories
                USAGE: SCMatUtils -index -in <sampleDir1> -in <sampleDir2> ... -out <root>`)
	flag.IntVar(&THREADNB, "threads", 1, "threads concurrency")
	flag.Parse()

	tStart := time.Now()

	switch {
	case FILENAMEOUT == "":
		log.Fatal("Error -out must be provided!")
	case len(INFILES) == 0:
		log.Fatal("Error at least one input (-in) must be provided!")
	case CREATECONTAINER:
		switch {
		case CELLSIDFNAME == "":
			log.Fatal("Error -xgi file must be provided!")
		case GENESIDFNAME == "":
			log.Fatal("Error -ygi file must be provided!")
		}

		if SAMPLEID == "" {
			SAMPLEID = filepath.Base(filepath.Clean(FILENAMEOUT))
		}

		utils.Check(createContainer(SAMPLEID, INFILES, FILENAMEOUT))
	case CREATEINDEX:
		utils.Check(createIndex(INFILES, FILENAMEOUT))
	default:
		flag.Usage()
		return
	}

	tDiff := time.Since(tStart)
	fmt.Printf("done in time: %f s \n", tDiff.Seconds())
}

func createContainer(id string, cooFiles []string, outdir string) error {
	fmt.Printf("load indexes...\n")
	cells, err := utils.LoadIDList(CELLSIDFNAME.String())

	if err != nil {
		return err
	}

	genes, err := utils.LoadIDList(GENESIDFNAME.String())

	if err != nil {
		return err
	}

	nbEntries := 0

	for _, fname := range cooFiles {
		nbLines, err := utils.CountNbLines(fname)

		if err != nil {
			return err
		}

		nbEntries += nbLines
	}

	if nbEntries == 0 {
		return fmt.Errorf("sample %s: the COO input(s) hold no entry", id)
	}

	expr := mat.NewDense(len(genes), len(cells), nil)

	fmt.Printf("reading %d entries from %d COO file(s)...\n", nbEntries, len(cooFiles))

	if err = readCOOFilesThreading(cooFiles, expr); err != nil {
		return err
	}

	sample, err := sutils.NewSample(id, genes, cells, expr)

	if err != nil {
		return err
	}

	if METAFNAME != "" {
		if sample.Meta, err = sutils.ReadMetadata(METAFNAME, cells); err != nil {
			return err
		}
	}

	fmt.Printf("writing sample container %s...\n", outdir)

	return sutils.WriteSample(outdir, sample)
}

func readCOOFilesThreading(cooFiles []string, expr *mat.Dense) error {
	var waiting sync.WaitGroup

	threads := make(chan int, THREADNB)
	errs := make([]error, len(cooFiles))

	for i := 0; i < THREADNB; i++ {
		threads <- i
	}

	for i, fname := range cooFiles {
		threadID := <-threads
		waiting.Add(1)

		go func(i int, fname string, threadID int) {
			defer waiting.Done()
			errs[i] = readCOOFile(fname, expr)
			threads <- threadID
		}(i, fname, threadID)
	}

	waiting.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

/*readCOOFile add the values of a COO file (cell pos, gene pos, value) to a genes x cells matrix */
func readCOOFile(fname string, expr *mat.Dense) error {
	scanner, closer, err := utils.OpenReader(fname)

	if err != nil {
		return err
	}

	defer utils.CloseFile(closer)

	nbGenes, nbCells := expr.Dims()
	nbLine := 0

	for scanner.Scan() {
		nbLine++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || line[0] == '#' {
			continue
		}

		split := strings.Split(line, SEP)

		if len(split) < 3 {
			return fmt.Errorf("%s line %d: expected cell, gene and value, got %q", fname, nbLine, line)
		}

		cellPos, err := strconv.Atoi(split[0])

		if err != nil {
			return fmt.Errorf("%s line %d: %w", fname, nbLine, err)
		}

		genePos, err := strconv.Atoi(split[1])

		if err != nil {
			return fmt.Errorf("%s line %d: %w", fname, nbLine, err)
		}

		value, err := strconv.ParseFloat(split[2], 64)

		if err != nil {
			return fmt.Errorf("%s line %d: %w", fname, nbLine, err)
		}

		if cellPos < 0 || cellPos >= nbCells || genePos < 0 || genePos >= nbGenes {
			return fmt.Errorf("%s line %d: position (%d, %d) outside of %d cells x %d genes",
				fname, nbLine, cellPos, genePos, nbCells, nbGenes)
		}

		MUTEX.Lock()
		expr.Set(genePos, cellPos, expr.At(genePos, cellPos)+value)
		MUTEX.Unlock()
	}

	return scanner.Err()
}

/*createIndex each directory must hold a loadable sample container; its name is the sample ID */
func createIndex(dirs []string, root string) error {
	var entries []sutils.Entry

	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	for _, dir := range dirs {
		id := filepath.Base(filepath.Clean(dir))

		if _, err := sutils.LoadSample(dir, id); err != nil {
			return fmt.Errorf("sample directory %s: %w", dir, err)
		}

		abs, err := filepath.Abs(dir)

		if err != nil {
			return err
		}

		entries = append(entries, sutils.Entry{ID: id, Dir: abs})
		fmt.Printf("sample %s registered\n", id)
	}

	absRoot, err := filepath.Abs(root)

	if err != nil {
		return err
	}

	return sutils.WriteIndex(absRoot, entries)
}

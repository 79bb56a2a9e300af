/* Suite of functions dedicated to generate simulated single-cell RNA-seq sample collections */

package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path"
	"sync"
	"time"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/mat"
)

/*STUDIES study names used as sample id prefixes */
var STUDIES utils.ArrayFlags

/*OUTDIR  output collection root */
var OUTDIR string

/*REFGENE reference gene co-detected with the partner genes */
var REFGENE string

/*CELLNB Number of cells per sample */
var CELLNB int

/*PATIENTNB Number of patients per study (one sample each, stages alternate) */
var PATIENTNB int

/*GENENB Number of background genes */
var GENENB int

/*PARTNERNB Number of genes co-detected with the reference gene */
var PARTNERNB int

/*PROGRAMNB Number of genes per subtype program */
var PROGRAMNB int

/*MEAN  mean of the library size factor dist */
var MEAN float64

/*STD  std of the library size factor dist */
var STD float64

/*SEED  Seed used for random processes*/
var SEED int

/*THREADNB number of samples simulated concurrently */
var THREADNB int

/*SIMULATE simulate a collection */
var SIMULATE bool

/*THREADSCHANNEL  thread ID->channel*/
var THREADSCHANNEL chan int

/*WAITING  waiting group*/
var WAITING *sync.WaitGroup

/*MUTEX  global mutex*/
var MUTEX sync.Mutex

/*SUBTYPEPROGRAMS simulated subtype programs and the gene-set columns they are written to */
var SUBTYPEPROGRAMS = []struct {
	subtype string
	sets    []string
}{
	{"AC", []string{"AC"}},
	{"OPC", []string{"OPC"}},
	{"MES", []string{"MES1", "MES2"}},
	{"NPC", []string{"NPC1", "NPC2"}},
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
#################### MODULE TO CREATE SIMULATED SINGLE CELL RNA-SEQ COLLECTIONS ########################

USAGE: SCSimUtils -simulate -out <dir> (-study <name> -study <name> -patients <int> -nb <int> -genes <int>
                  -ref <gene> -partners <int> -program <int> -mean <float> -std <float> -seed <int> -threads <int>)

`)
		flag.PrintDefaults()
	}

	flag.StringVar(&OUTDIR, "out", "", "root directory of the simulated collection")
	flag.Var(&STUDIES, "study", "study name (can be given several times, default: Neftel Wang Couturier)")
	flag.StringVar(&REFGENE, "ref", "FEN1", "reference gene")
	flag.IntVar(&CELLNB, "nb", 200, "Number of cells per sample")
	flag.IntVar(&PATIENTNB, "patients", 12, "Number of patients per study")
	flag.IntVar(&GENENB, "genes", 500, "Number of background genes")
	flag.IntVar(&PARTNERNB, "partners", 10, "Number of genes co-detected with the reference gene")
	flag.IntVar(&PROGRAMNB, "program", 20, "Number of genes per subtype program")
	flag.Float64Var(&MEAN, "mean", 1.0, "Average library size factor per cell")
	flag.Float64Var(&STD, "std", 0.3, "Std. of the library size factor per cell")
	flag.IntVar(&SEED, "seed", 2019, "Seed used for random processes")
	flag.IntVar(&THREADNB, "threads", 1, "threads concurrency")
	flag.BoolVar(&SIMULATE, "simulate", false, "Simulate a single-cell RNA-seq collection")
	flag.Parse()

	switch {
	case SIMULATE:
		if OUTDIR == "" {
			log.Fatal("Error -out flag must be provided")
		}

		if len(STUDIES) == 0 {
			STUDIES = utils.ArrayFlags{"Neftel", "Wang", "Couturier"}
		}

		tStart := time.Now()
		simulateCollection(OUTDIR)
		fmt.Printf("done in time: %f s \n", time.Since(tStart).Seconds())
	default:
		fmt.Printf("USAGE: SCSimUtils -simulate -out <dir> (-study <name> -patients <int> -nb <int> -genes <int>)\n")
	}
}

/*simulatedGenes gene list: reference, partners, program genes then background genes */
func simulatedGenes() (genes []string, partners []string, programs map[string][]string) {
	genes = append(genes, gsutils.NormalizeSymbol(REFGENE))
	programs = make(map[string][]string)

	for i := 0; i < PARTNERNB; i++ {
		partners = append(partners, fmt.Sprintf("PARTNER%d", i+1))
	}

	genes = append(genes, partners...)

	for _, program := range SUBTYPEPROGRAMS {
		for i := 0; i < PROGRAMNB; i++ {
			programs[program.subtype] = append(programs[program.subtype], fmt.Sprintf("%s_G%d", program.subtype, i+1))
		}

		genes = append(genes, programs[program.subtype]...)
	}

	for i := 0; i < GENENB; i++ {
		genes = append(genes, fmt.Sprintf("GENE%d", i+1))
	}

	return genes, partners, programs
}

/*simulatedGeneSets subtype programs split into the set columns, plus the partner module */
func simulatedGeneSets(partners []string, programs map[string][]string) []gsutils.GeneSet {
	var sets []gsutils.GeneSet

	for _, program := range SUBTYPEPROGRAMS {
		genes := programs[program.subtype]
		size := len(genes) / len(program.sets)

		for i, name := range program.sets {
			end := (i + 1) * size

			if i == len(program.sets)-1 {
				end = len(genes)
			}

			sets = append(sets, gsutils.GeneSet{Name: name, Genes: genes[i*size : end]})
		}
	}

	return append(sets, gsutils.GeneSet{Name: "PARTNERS", Genes: partners})
}

func simulateCollection(outdir string) {
	utils.Check(os.MkdirAll(outdir, 0o755))

	genes, partners, programs := simulatedGenes()

	setsFile := path.Join(outdir, "genesets.tsv")
	utils.Check(gsutils.WriteWideTable(setsFile, simulatedGeneSets(partners, programs)))
	fmt.Printf("gene sets written: %s\n", setsFile)

	var entries []sutils.Entry

	for _, study := range STUDIES {
		for patient := 0; patient < PATIENTNB; patient++ {
			stage := "P"

			if patient%2 == 1 {
				stage = "R"
			}

			id := fmt.Sprintf("%s_pt%d_%s", study, patient+1, stage)
			entries = append(entries, sutils.Entry{ID: id, Dir: path.Join(outdir, id)})
		}
	}

	THREADSCHANNEL = make(chan int, THREADNB)
	WAITING = &sync.WaitGroup{}

	for i := 0; i < THREADNB; i++ {
		THREADSCHANNEL <- i
	}

	for it, entry := range entries {
		threadID := <-THREADSCHANNEL
		WAITING.Add(1)

		go func(it int, entry sutils.Entry, threadID int) {
			defer WAITING.Done()

			sample := simulateSample(entry.ID, it, genes, partners, programs)
			utils.Check(sutils.WriteSample(entry.Dir, sample))

			MUTEX.Lock()
			fmt.Printf("sample %s written (%d cells)\n", entry.ID, len(sample.Cells()))
			MUTEX.Unlock()

			THREADSCHANNEL <- threadID
		}(it, entry, threadID)
	}

	WAITING.Wait()

	utils.Check(sutils.WriteIndex(outdir, entries))
	fmt.Printf("collection index written: %s\n", path.Join(outdir, sutils.INDEXFILE))
}

/*simulateSample one sample: each cell draws a library size and a subtype; partner genes
follow the detection of the reference gene */
func simulateSample(id string, it int, genes, partners []string, programs map[string][]string) *sutils.Sample {
	rng := &fastrand.RNG{}
	rng.Seed(uint32(SEED + it))
	norm := rand.New(rand.NewSource(int64(SEED + it)))

	geneIndex := make(map[string]int, len(genes))

	for i, gene := range genes {
		geneIndex[gene] = i
	}

	expr := mat.NewDense(len(genes), CELLNB, nil)
	cells := make([]string, CELLNB)
	malignant := make([]string, CELLNB)
	subtypes := make([]string, CELLNB)

	draw := func(p float64) bool {
		return float64(rng.Uint32n(1000000))/1000000.0 < math.Min(p, 0.95)
	}

	count := func() float64 {
		return float64(1 + rng.Uint32n(5))
	}

	for cell := 0; cell < CELLNB; cell++ {
		cells[cell] = fmt.Sprintf("%s_c%d", id, cell+1)
		library := math.Max(0.2, norm.NormFloat64()*STD+MEAN)
		subtype := SUBTYPEPROGRAMS[rng.Uint32n(uint32(len(SUBTYPEPROGRAMS)))].subtype
		subtypes[cell] = subtype
		malignant[cell] = "yes"

		if draw(0.1) {
			malignant[cell] = "no"
		}

		refDetected := draw(0.5 * library)

		if refDetected {
			expr.Set(0, cell, count())
		}

		for _, partner := range partners {
			p := 0.1 * library

			if refDetected {
				p = 0.85 * library
			}

			if draw(p) {
				expr.Set(geneIndex[partner], cell, count())
			}
		}

		for _, program := range SUBTYPEPROGRAMS {
			p := 0.1 * library

			if program.subtype == subtype {
				p = 0.7 * library
			}

			for _, gene := range programs[program.subtype] {
				if draw(p) {
					expr.Set(geneIndex[gene], cell, count())
				}
			}
		}

		for g := 1 + len(partners) + len(SUBTYPEPROGRAMS)*PROGRAMNB; g < len(genes); g++ {
			if draw(0.3 * library) {
				expr.Set(g, cell, count())
			}
		}
	}

	sample, err := sutils.NewSample(id, genes, cells, expr)
	utils.Check(err)

	sample.Meta = &sutils.Metadata{
		Columns: []string{"malignant", "simulated_subtype"},
		Values: map[string][]string{
			"malignant":         malignant,
			"simulated_subtype": subtypes,
		},
	}

	return sample
}

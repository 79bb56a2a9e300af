package analysisutils

import (
	"hash/fnv"
	"math"
	"sort"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
)

/*CoDepOptions cross-sample aggregation parameters */
type CoDepOptions struct {
	MinSamples  int
	SampleFDR   float64
	Alpha       float64
	MinFraction float64
	Seed        uint32
}

/*CoDepOptionsFromConfig aggregation parameters of the run configuration */
func CoDepOptionsFromConfig(config utils.Config) CoDepOptions {
	return CoDepOptions{
		MinSamples:  config.CoDependency.MinSamples,
		SampleFDR:   config.CoDependency.SampleFDR,
		Alpha:       config.CoDependency.Alpha,
		MinFraction: config.CoDependency.MinFraction,
		Seed:        config.Seed,
	}
}

/*CoDepSummary pooled co-dependency of a target gene with a reference gene */
type CoDepSummary struct {
	ReferenceGene string
	TargetGene    string
	Mean          float64
	Median        float64
	SD            float64
	N             int
	NSignificant  int
	Fraction      float64
	Z             float64
	P             float64
	PAdj          float64
	Significant   bool
	Rank          int
}

type pairKey struct {
	reference string
	target    string
}

/*AggregateCoDependency pool per-sample ncdi values by (reference, target) gene. Targets
valid in at most MinSamples samples or with an undefined or null spread are dropped. The
mean is tested against zero with z = mean / (sd / sqrt(n)), p-values are BH adjusted per
reference gene. Ranks (1 = highest mean) break exact ties at random */
func AggregateCoDependency(records []scoring.CDIRecord, opts CoDepOptions) []CoDepSummary {
	values := make(map[pairKey][]float64)
	significant := make(map[pairKey]int)

	for _, record := range records {
		if math.IsNaN(record.NCDI) || math.IsInf(record.NCDI, 0) {
			continue
		}

		key := pairKey{record.ReferenceGene, record.TargetGene}
		values[key] = append(values[key], record.NCDI)

		if record.FDR < opts.SampleFDR {
			significant[key]++
		}
	}

	byReference := make(map[string][]CoDepSummary)

	for key, ncdi := range values {
		n := len(ncdi)

		if n <= opts.MinSamples {
			continue
		}

		sd := statutils.PopSD(ncdi)

		if sd == 0 || math.IsNaN(sd) {
			continue
		}

		summary := CoDepSummary{
			ReferenceGene: key.reference,
			TargetGene:    key.target,
			Mean:          statutils.Mean(ncdi),
			Median:        statutils.Median(ncdi),
			SD:            sd,
			N:             n,
			NSignificant:  significant[key],
			Fraction:      float64(significant[key]) / float64(n),
		}

		summary.Z = summary.Mean / (sd / math.Sqrt(float64(n)))
		summary.P = statutils.NormalTwoSidedP(summary.Z)
		byReference[key.reference] = append(byReference[key.reference], summary)
	}

	references := make([]string, 0, len(byReference))

	for reference := range byReference {
		references = append(references, reference)
	}

	sort.Strings(references)

	var summaries []CoDepSummary

	for _, reference := range references {
		genes := byReference[reference]

		sort.Slice(genes, func(i, j int) bool {
			return genes[i].TargetGene < genes[j].TargetGene
		})

		pvalues := make([]float64, len(genes))
		means := make([]float64, len(genes))

		for i, gene := range genes {
			pvalues[i] = gene.P
			means[i] = gene.Mean
		}

		padj := statutils.BenjaminiHochberg(pvalues)
		ranks := statutils.RankDescendingRandomTies(means, statutils.NewRNG(referenceSeed(opts.Seed, reference)))

		for i := range genes {
			genes[i].PAdj = padj[i]
			genes[i].Rank = ranks[i]
			genes[i].Significant = padj[i] < opts.Alpha && genes[i].Fraction > opts.MinFraction
		}

		sort.Slice(genes, func(i, j int) bool {
			return genes[i].Rank < genes[j].Rank
		})

		summaries = append(summaries, genes...)
	}

	return summaries
}

func referenceSeed(seed uint32, reference string) uint32 {
	hash := fnv.New32a()
	hash.Write([]byte(reference))

	return seed ^ hash.Sum32()
}

/*SignificantPartners summaries passing both the meta-analytic and the per-sample criteria */
func SignificantPartners(summaries []CoDepSummary) []CoDepSummary {
	var partners []CoDepSummary

	for _, summary := range summaries {
		if summary.Significant {
			partners = append(partners, summary)
		}
	}

	return partners
}

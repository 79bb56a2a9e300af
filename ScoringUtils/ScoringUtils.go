/* Per-sample scoring capabilities: co-dependency index, module scores and stemness */

package scoringutils

import (
	"errors"
	"hash/fnv"

	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	"github.com/valyala/fastrand"
)

/*ExpressionMatrix minimal read access to a genes x cells sample */
type ExpressionMatrix interface {
	SampleID() string
	Genes() []string
	Cells() []string
	Row(gene string) ([]float64, bool)
}

/*CDIRecord co-dependency of one gene pair in one sample */
type CDIRecord struct {
	ReferenceGene string
	TargetGene    string
	SampleID      string
	NCDI          float64
	FDR           float64
}

/*StemnessMethod name of a stemness index */
type StemnessMethod string

/*Available stemness indices */
const (
	GeneCounts StemnessMethod = "gene_counts"
	Entropy    StemnessMethod = "entropy"
)

/*ErrUnknownMethod stemness method not implemented by the engine */
var ErrUnknownMethod = errors.New("unknown stemness method")

/*ScoringEngine the per-sample computations the pipeline depends on */
type ScoringEngine interface {
	CoDependency(referenceGene string, m ExpressionMatrix) ([]CDIRecord, error)
	ModuleScore(sets []gsutils.GeneSet, m ExpressionMatrix) (map[string][]float64, error)
	Stemness(m ExpressionMatrix, method StemnessMethod) ([]float64, error)
}

/*NativeEngine ScoringEngine computed in-process */
type NativeEngine struct {
	Seed        uint32
	MinDetected int
	Bins        int
	Controls    int
}

/*NewNativeEngine engine parametrized by the run configuration */
func NewNativeEngine(config utils.Config) *NativeEngine {
	return &NativeEngine{
		Seed:        config.Seed,
		MinDetected: config.CoDependency.MinDetected,
		Bins:        config.ModuleScore.Bins,
		Controls:    config.ModuleScore.Controls,
	}
}

/*sampleRNG RNG depending only on the seed and the sample id, never on processing order */
func (e *NativeEngine) sampleRNG(sampleID string) *fastrand.RNG {
	hash := fnv.New32a()
	hash.Write([]byte(sampleID))

	rng := &fastrand.RNG{}
	rng.Seed(e.Seed ^ hash.Sum32())

	return rng
}

/*uniqueGenes genes of the matrix, first occurrence only */
func uniqueGenes(m ExpressionMatrix) []string {
	genes := m.Genes()
	seen := make(map[string]bool, len(genes))
	unique := make([]string, 0, len(genes))

	for _, gene := range genes {
		if seen[gene] {
			continue
		}

		seen[gene] = true
		unique = append(unique, gene)
	}

	return unique
}

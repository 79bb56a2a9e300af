package scrnautils

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"
)

/*GeneSetSource one gene-set catalog to load */
type GeneSetSource struct {
	Catalog   string `yaml:"catalog"`
	Path      string `yaml:"path"`
	Kind      string `yaml:"kind"`
	Sheet     string `yaml:"sheet,omitempty"`
	Separator string `yaml:"separator,omitempty"`
	Exclude   string `yaml:"exclude,omitempty"`
	Optional  bool   `yaml:"optional"`
}

/*GroupPattern a named study grouping matched by substring on the sample ID */
type GroupPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

/*CellFilter keep only the cells whose metadata column holds one of the values */
type CellFilter struct {
	Column string   `yaml:"column"`
	Values []string `yaml:"values"`
}

/*CoDependencyConfig cross-sample aggregation parameters */
type CoDependencyConfig struct {
	MinSamples  int     `yaml:"min_samples"`
	SampleFDR   float64 `yaml:"sample_fdr"`
	Alpha       float64 `yaml:"alpha"`
	MinFraction float64 `yaml:"min_fraction"`
	MinDetected int     `yaml:"min_detected"`
}

/*ModuleScoreConfig module score parameters */
type ModuleScoreConfig struct {
	Bins     int `yaml:"bins"`
	Controls int `yaml:"controls"`
}

/*StageConfig sample ID convention used to derive study and tumor stage */
type StageConfig struct {
	Pattern   string `yaml:"pattern"`
	Primary   string `yaml:"primary"`
	Recurrent string `yaml:"recurrent"`
}

/*ComparisonConfig comparative statistics parameters */
type ComparisonConfig struct {
	Metric  string      `yaml:"metric"`
	MinRows int         `yaml:"min_rows"`
	Stage   StageConfig `yaml:"stage"`
}

/*OutputConfig what to write and where */
type OutputConfig struct {
	Prefix    string `yaml:"prefix"`
	Plots     bool   `yaml:"plots"`
	CellTable bool   `yaml:"cell_table"`
	Database  string `yaml:"database,omitempty"`
}

/*LogConfig logging parameters */
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

/*Config process-scoped configuration passed to every stage */
type Config struct {
	ReferenceGenes []string            `yaml:"reference_genes"`
	SampleRoot     string              `yaml:"sample_root"`
	GeneSets       []GeneSetSource     `yaml:"gene_sets"`
	Groups         []GroupPattern      `yaml:"groups"`
	CellFilter     CellFilter          `yaml:"cell_filter"`
	Threads        int                 `yaml:"threads"`
	Seed           uint32              `yaml:"seed"`
	Stemness       []string            `yaml:"stemness"`
	CoDependency   CoDependencyConfig  `yaml:"codependency"`
	ModuleScore    ModuleScoreConfig   `yaml:"module_score"`
	PathwayAlpha   float64             `yaml:"pathway_alpha"`
	PathwayPattern string              `yaml:"pathway_pattern"`
	Subtypes       map[string][]string `yaml:"subtypes"`
	Comparison     ComparisonConfig    `yaml:"comparison"`
	Output         OutputConfig        `yaml:"output"`
	Log            LogConfig           `yaml:"log"`
}

/*ErrInvalidConfig returned by Validate */
var ErrInvalidConfig = errors.New("invalid configuration")

/*DefaultConfig the configuration used when no file or flag overrides it */
func DefaultConfig() Config {
	return Config{
		ReferenceGenes: []string{"FEN1"},
		Groups: []GroupPattern{
			{Name: "neftel", Pattern: "Neftel"},
			{Name: "wang", Pattern: "Wang"},
			{Name: "couturier", Pattern: "Couturier"},
		},
		Threads:  1,
		Seed:     2019,
		Stemness: []string{"gene_counts", "entropy"},
		CoDependency: CoDependencyConfig{
			MinSamples:  30,
			SampleFDR:   0.05,
			Alpha:       0.05,
			MinFraction: 0.5,
			MinDetected: 3,
		},
		ModuleScore: ModuleScoreConfig{
			Bins:     24,
			Controls: 100,
		},
		PathwayAlpha: 0.05,
		Subtypes: map[string][]string{
			"AC":  {"AC_Neftel"},
			"OPC": {"OPC_Neftel"},
			"MES": {"MES1_Neftel", "MES2_Neftel"},
			"NPC": {"NPC1_Neftel", "NPC2_Neftel"},
		},
		Comparison: ComparisonConfig{
			Metric:  "mean_log1p",
			MinRows: 5,
			Stage: StageConfig{
				Pattern:   `_[^_]+_([A-Za-z])$`,
				Primary:   "P",
				Recurrent: "R",
			},
		},
		Output: OutputConfig{
			Prefix: "codependency",
			Plots:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

/*LoadConfig read a YAML file on top of the default configuration */
func LoadConfig(fname string) (Config, error) {
	config := DefaultConfig()

	if fname == "" {
		return config, nil
	}

	content, err := os.ReadFile(fname)

	if err != nil {
		return config, fmt.Errorf("reading config %s: %w", fname, err)
	}

	var overrides struct {
		Subtypes map[string][]string `yaml:"subtypes"`
	}

	if err = yaml.Unmarshal(content, &overrides); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", fname, err)
	}

	// a subtypes mapping in the file replaces the default one instead of merging into it
	if overrides.Subtypes != nil {
		config.Subtypes = nil
	}

	if err = yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", fname, err)
	}

	return config, nil
}

/*Clone deep copy of the configuration */
func (c Config) Clone() Config {
	var clone Config

	err := copier.CopyWithOption(&clone, &c, copier.Option{DeepCopy: true})
	Check(err)

	return clone
}

/*Validate check the parameters that would make a stage meaningless */
func (c Config) Validate() error {
	switch {
	case len(c.ReferenceGenes) == 0:
		return fmt.Errorf("%w: at least one reference gene is required", ErrInvalidConfig)
	case c.SampleRoot == "":
		return fmt.Errorf("%w: sample_root is required", ErrInvalidConfig)
	case c.Threads < 1:
		return fmt.Errorf("%w: threads must be >= 1", ErrInvalidConfig)
	case c.CoDependency.MinSamples < 0:
		return fmt.Errorf("%w: min_samples must be >= 0", ErrInvalidConfig)
	case c.CoDependency.MinFraction < 0 || c.CoDependency.MinFraction > 1:
		return fmt.Errorf("%w: min_fraction must be within [0, 1]", ErrInvalidConfig)
	case c.ModuleScore.Bins < 1 || c.ModuleScore.Controls < 1:
		return fmt.Errorf("%w: module score bins and controls must be >= 1", ErrInvalidConfig)
	case c.Comparison.MinRows < 0:
		return fmt.Errorf("%w: min_rows must be >= 0", ErrInvalidConfig)
	}

	if _, err := regexp.Compile(c.Comparison.Stage.Pattern); err != nil {
		return fmt.Errorf("%w: stage pattern: %v", ErrInvalidConfig, err)
	}

	if _, err := regexp.Compile(c.PathwayPattern); err != nil {
		return fmt.Errorf("%w: pathway pattern: %v", ErrInvalidConfig, err)
	}

	for _, source := range c.GeneSets {
		if source.Exclude == "" {
			continue
		}

		if _, err := regexp.Compile(source.Exclude); err != nil {
			return fmt.Errorf("%w: exclude pattern of %s: %v", ErrInvalidConfig, source.Catalog, err)
		}
	}

	return nil
}

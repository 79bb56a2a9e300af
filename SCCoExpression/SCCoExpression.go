/* Co-expression and pathway correlation of reference genes across single-cell RNA-seq samples */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
)

/*CONFIGFILE yaml configuration file (optional) */
var CONFIGFILE utils.Filename

/*SAMPLEROOT root of the sample collection */
var SAMPLEROOT string

/*REFGENES reference genes */
var REFGENES utils.ArrayFlags

/*GENESETS gene-set sources as catalog=path */
var GENESETS utils.ArrayFlags

/*OPTGENESETS optional gene-set sources as catalog=path */
var OPTGENESETS utils.ArrayFlags

/*PATHWAYPATTERN regexp selecting the gene sets correlated with the reference genes */
var PATHWAYPATTERN string

/*CELLFILTER keep cells with column=value1,value2 */
var CELLFILTER string

/*FILENAMEOUT output prefix */
var FILENAMEOUT string

/*THREADNB number of samples scored concurrently */
var THREADNB int

/*SEED seed used for random processes */
var SEED int

/*MINSAMPLES co-dependency minimum support */
var MINSAMPLES int

/*METRIC expression metric of the comparisons */
var METRIC string

/*DATABASE sqlite export path */
var DATABASE string

/*PLOTS write HTML plots */
var PLOTS bool

/*CELLTABLE write the per-cell table */
var CELLTABLE bool

/*LOGLEVEL logging level */
var LOGLEVEL string

/*JSONLOG log as JSON */
var JSONLOG bool

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
#################### CO-EXPRESSION AND PATHWAY CORRELATION ACROSS scRNA-SEQ SAMPLES ########################

USAGE: SCCoExpression -root <dir> -gene <symbol> -geneset <catalog=file> (-config <yaml> -optional_geneset <catalog=file>
                      -filter <column=v1,v2> -pathways <regexp> -threads <int> -seed <int> -min_samples <int> -metric <name>
                      -out <prefix> -db <file> -plots -cells -log_level <level> -json_log)

`)
		flag.PrintDefaults()
	}

	flag.Var(&CONFIGFILE, "config", "yaml configuration file, command line flags take precedence")
	flag.StringVar(&SAMPLEROOT, "root", "", "root directory of the sample collection")
	flag.Var(&REFGENES, "gene", "reference gene (can be given several times)")
	flag.Var(&GENESETS, "geneset", "gene-set source as catalog=file (table, xlsx or gmt)")
	flag.Var(&OPTGENESETS, "optional_geneset", "optional gene-set source as catalog=file")
	flag.StringVar(&PATHWAYPATTERN, "pathways", "", "regexp selecting the gene sets used as pathways (default: all)")
	flag.StringVar(&CELLFILTER, "filter", "", "keep only the cells whose metadata column=value1,value2")
	flag.StringVar(&FILENAMEOUT, "out", "", "prefix of the output files")
	flag.IntVar(&THREADNB, "threads", 1, "number of samples scored concurrently")
	flag.IntVar(&SEED, "seed", 2019, "seed used for random processes")
	flag.IntVar(&MINSAMPLES, "min_samples", 30, "a target gene is kept when tested in more samples than this")
	flag.StringVar(&METRIC, "metric", "mean_log1p", "comparison metric: mean_log1p, median, frac_expressing or gini")
	flag.StringVar(&DATABASE, "db", "", "sqlite database receiving the result tables")
	flag.BoolVar(&PLOTS, "plots", true, "write the HTML plots")
	flag.BoolVar(&CELLTABLE, "cells", false, "write the per-cell score table")
	flag.StringVar(&LOGLEVEL, "log_level", "info", "logging level")
	flag.BoolVar(&JSONLOG, "json_log", false, "log as JSON")
	flag.Parse()

	tStart := time.Now()

	config, err := buildConfig()

	if err != nil {
		log.Fatal(err)
	}

	logger, err := utils.NewLogger(config.Log, os.Stderr)

	if err != nil {
		log.Fatal(err)
	}

	if err = run(context.Background(), config, logger); err != nil {
		logger.Fatal(err)
	}

	tDiff := time.Since(tStart)
	fmt.Printf("done in time: %f s \n", tDiff.Seconds())
}

/*parseSources catalog=path arguments */
func parseSources(values []string, optional bool) ([]utils.GeneSetSource, error) {
	var sources []utils.GeneSetSource

	for _, value := range values {
		split := strings.SplitN(value, "=", 2)

		if len(split) != 2 || split[0] == "" || split[1] == "" {
			return nil, fmt.Errorf("gene-set source %q is not catalog=file", value)
		}

		sources = append(sources, utils.GeneSetSource{Catalog: split[0], Path: split[1], Optional: optional})
	}

	return sources, nil
}

/*buildConfig defaults, then the yaml file, then the flags explicitly set */
func buildConfig() (utils.Config, error) {
	config, err := utils.LoadConfig(CONFIGFILE.String())

	if err != nil {
		return config, err
	}

	var flagErr error

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			config.SampleRoot = SAMPLEROOT
		case "gene":
			config.ReferenceGenes = []string(REFGENES)
		case "geneset", "optional_geneset":
			config.GeneSets = nil
		case "pathways":
			config.PathwayPattern = PATHWAYPATTERN
		case "filter":
			split := strings.SplitN(CELLFILTER, "=", 2)

			if len(split) != 2 {
				flagErr = fmt.Errorf("-filter %q is not column=value1,value2", CELLFILTER)
				return
			}

			config.CellFilter = utils.CellFilter{Column: split[0], Values: strings.Split(split[1], ",")}
		case "out":
			config.Output.Prefix = FILENAMEOUT
		case "threads":
			config.Threads = THREADNB
		case "seed":
			config.Seed = uint32(SEED)
		case "min_samples":
			config.CoDependency.MinSamples = MINSAMPLES
		case "metric":
			config.Comparison.Metric = METRIC
		case "db":
			config.Output.Database = DATABASE
		case "plots":
			config.Output.Plots = PLOTS
		case "cells":
			config.Output.CellTable = CELLTABLE
		case "log_level":
			config.Log.Level = LOGLEVEL
		case "json_log":
			config.Log.JSON = JSONLOG
		}
	})

	if flagErr != nil {
		return config, flagErr
	}

	if len(GENESETS) > 0 || len(OPTGENESETS) > 0 {
		required, err := parseSources(GENESETS, false)

		if err != nil {
			return config, err
		}

		optional, err := parseSources(OPTGENESETS, true)

		if err != nil {
			return config, err
		}

		config.GeneSets = append(required, optional...)
	}

	return config, config.Validate()
}

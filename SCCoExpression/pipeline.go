package main

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	analysis "github.com/NMikolajewicz/Brakel-2025/AnalysisUtils"
	gsutils "github.com/NMikolajewicz/Brakel-2025/GeneSetUtils"
	report "github.com/NMikolajewicz/Brakel-2025/ReportUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	sutils "github.com/NMikolajewicz/Brakel-2025/SampleUtils"
	scoring "github.com/NMikolajewicz/Brakel-2025/ScoringUtils"
	"github.com/go-echarts/go-echarts/v2/components"
	log "github.com/sirupsen/logrus"
)

/*pipeline state shared by the stages of one run */
type pipeline struct {
	config  utils.Config
	logger  log.FieldLogger
	summary *report.RunSummary
	charts  []components.Charter
	codep   []analysis.CoDepSummary
}

func (p *pipeline) output(suffix string) string {
	fname := fmt.Sprintf("%s.%s", p.config.Output.Prefix, suffix)
	p.summary.AddOutput(fname)

	return fname
}

/*run the whole pipeline. Only the gene-set catalog, the collection root and the outputs
can abort it; per-sample failures are logged and counted */
func run(ctx context.Context, config utils.Config, logger log.FieldLogger) error {
	config = config.Clone()

	if err := config.Validate(); err != nil {
		return err
	}

	stagePattern := regexp.MustCompile(config.Comparison.Stage.Pattern)
	p := &pipeline{config: config, logger: logger, summary: report.NewRunSummary(config.ReferenceGenes)}

	logger.WithFields(log.Fields{"run": p.summary.RunID, "root": config.SampleRoot}).Info("starting run")

	catalog, err := gsutils.LoadCatalog(config.GeneSets, logger)

	if err != nil {
		return err
	}

	p.summary.GeneSets = catalog.Len()

	var pathwaySets []string

	for _, set := range catalog.Select(regexp.MustCompile(config.PathwayPattern)) {
		pathwaySets = append(pathwaySets, set.Name)
	}

	logger.WithFields(log.Fields{"sets": catalog.Len(), "pathways": len(pathwaySets)}).Info("gene sets loaded")

	collection, err := sutils.OpenCollection(config.SampleRoot)

	if err != nil {
		return err
	}

	partition := collection.Partition(config.Groups)

	for _, group := range config.Groups {
		logger.WithFields(log.Fields{"group": group.Name, "samples": len(partition[group.Name])}).Info("study group")
	}

	methods := make([]scoring.StemnessMethod, len(config.Stemness))

	for i, method := range config.Stemness {
		methods[i] = scoring.StemnessMethod(method)
	}

	results, err := analysis.ScoreSamples(ctx, analysis.EntrySources(collection.Entries),
		scoring.NewNativeEngine(config), analysis.ScoreOptions{
			ReferenceGenes: config.ReferenceGenes,
			GeneSets:       catalog.Sets(),
			Stemness:       methods,
			CellFilter:     config.CellFilter,
			Threads:        config.Threads,
			Logger:         logger,
		})

	if err != nil {
		return err
	}

	p.summary.AddScores(len(collection.Entries), results)
	analysis.AssignSubtypes(results.Rows, config.Subtypes)

	if err = p.coDependency(results.CDI, partition); err != nil {
		return err
	}

	var allPathways []analysis.PathwaySummary
	var allComparisons []analysis.ComparisonResult

	for _, gene := range config.ReferenceGenes {
		gene = gsutils.NormalizeSymbol(gene)

		pathways, err := p.pathways(gene, results.Rows, pathwaySets, config.Stemness)

		if err != nil {
			return err
		}

		comparisons, err := p.comparisons(gene, results.Rows, stagePattern)

		if err != nil {
			return err
		}

		allPathways = append(allPathways, pathways...)
		allComparisons = append(allComparisons, comparisons...)
	}

	if err = report.WriteSubtypeFractions(p.output("subtypes.tsv"),
		analysis.SubtypeFractions(results.Rows)); err != nil {
		return err
	}

	if config.Output.CellTable {
		genes := make([]string, len(config.ReferenceGenes))

		for i, gene := range config.ReferenceGenes {
			genes[i] = gsutils.NormalizeSymbol(gene)
		}

		if err = report.WriteCellTable(p.output("cells.tsv.gz"), results.Rows, catalog.Names(),
			config.Stemness, genes); err != nil {
			return err
		}
	}

	if config.Output.Plots && len(p.charts) > 0 {
		if err = report.WritePlots(p.output("plots.html"), p.charts...); err != nil {
			return err
		}
	}

	if config.Output.Database != "" {
		if err = report.ExportSQLite(ctx, config.Output.Database, p.summary.RunID, p.codep,
			allPathways, allComparisons); err != nil {
			return err
		}

		p.summary.AddOutput(config.Output.Database)
	}

	if err = p.summary.Write(p.output("summary.json")); err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"run":         p.summary.RunID,
		"processed":   p.summary.SamplesProcessed,
		"failed":      len(p.summary.SamplesFailed),
		"genes":       p.summary.GenesTested,
		"significant": p.summary.SignificantGenes,
		"pathways":    p.summary.PathwaysTested,
	}).Info("run done")

	return nil
}

/*coDependency pooled over every sample, then within each study group */
func (p *pipeline) coDependency(records []scoring.CDIRecord, partition map[string][]string) error {
	opts := analysis.CoDepOptionsFromConfig(p.config)
	summaries := analysis.AggregateCoDependency(records, opts)
	p.codep = summaries
	p.summary.AddCoDependency(summaries)

	if err := report.WriteCoDependency(p.output("codependency.tsv"), summaries); err != nil {
		return err
	}

	for _, gene := range p.config.ReferenceGenes {
		p.charts = append(p.charts, report.RankPlot(gsutils.NormalizeSymbol(gene), summaries))
	}

	groups := make([]string, 0, len(partition))

	for group := range partition {
		groups = append(groups, group)
	}

	sort.Strings(groups)

	for _, group := range groups {
		members := make(map[string]bool, len(partition[group]))

		for _, id := range partition[group] {
			members[id] = true
		}

		var subset []scoring.CDIRecord

		for _, record := range records {
			if members[record.SampleID] {
				subset = append(subset, record)
			}
		}

		groupSummaries := analysis.AggregateCoDependency(subset, opts)
		p.summary.AddGroupCoDependency(group, groupSummaries)

		p.logger.WithFields(log.Fields{
			"group":       group,
			"genes":       len(groupSummaries),
			"significant": len(analysis.SignificantPartners(groupSummaries)),
		}).Info("study group co-dependency")

		if err := report.WriteCoDependency(p.output(group+".codependency.tsv"), groupSummaries); err != nil {
			return err
		}
	}

	for rank, pair := range utils.RankByCount(p.summary.SignificantByGroup) {
		p.logger.WithFields(log.Fields{
			"rank":        rank + 1,
			"group":       pair.Key,
			"significant": pair.Value,
		}).Info("study groups by significant partners")
	}

	return nil
}

/*pathways gene-set and stemness correlations with the expression of one gene */
func (p *pipeline) pathways(gene string, rows []analysis.ModuleScoreRow, sets,
	stemness []string) ([]analysis.PathwaySummary, error) {
	records := analysis.PathwayCorrelations(rows, sets, analysis.ScoreColumn, gene, p.logger)
	summaries := analysis.AggregatePathways(records, p.config.PathwayAlpha)
	p.summary.AddPathways(summaries)

	if err := report.WritePathways(p.output(gene+".pathways.tsv"), summaries); err != nil {
		return nil, err
	}

	p.charts = append(p.charts, report.VolcanoPlot(gene+" pathway correlation", summaries))

	stemRecords := analysis.PathwayCorrelations(rows, stemness, analysis.StemnessColumn, gene, p.logger)
	stemSummaries := analysis.AggregatePathways(stemRecords, p.config.PathwayAlpha)

	if err := report.WritePathways(p.output(gene+".stemness.tsv"), stemSummaries); err != nil {
		return nil, err
	}

	return summaries, nil
}

/*comparisons stage and subtype contrasts of one gene. P-values stay raw */
func (p *pipeline) comparisons(gene string, rows []analysis.ModuleScoreRow,
	stagePattern *regexp.Regexp) ([]analysis.ComparisonResult, error) {
	metric := p.config.Comparison.Metric
	minRows := p.config.Comparison.MinRows

	perSample, err := analysis.StandardizeWithinStudy(
		analysis.SummarizeExpression(rows, gene, stagePattern, false), metric)

	if err != nil {
		return nil, err
	}

	perSubtype, err := analysis.StandardizeWithinStudy(
		analysis.SummarizeExpression(rows, gene, stagePattern, true), metric)

	if err != nil {
		return nil, err
	}

	results := analysis.CompareStages(perSample, p.config.Comparison.Stage, minRows)
	results = append(results, analysis.CompareSubtypes(perSubtype, minRows)...)
	p.summary.AddComparisons(results)

	for _, result := range results {
		p.logger.WithFields(log.Fields{
			"gene":     gene,
			"contrast": result.Contrast,
			"scope":    result.Scope,
		}).Info(result.Test.String())
	}

	for _, box := range report.StageBoxPlots(perSample, p.config.Comparison.Stage) {
		p.charts = append(p.charts, box)
	}

	return results, report.WriteComparisons(p.output(gene+".comparisons.tsv"), results)
}

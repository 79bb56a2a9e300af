package reportutils

import (
	"fmt"
	"math"
	"sort"

	analysis "github.com/NMikolajewicz/Brakel-2025/AnalysisUtils"
	utils "github.com/NMikolajewicz/Brakel-2025/SCRNAUtils"
	statutils "github.com/NMikolajewicz/Brakel-2025/StatUtils"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

/*RankPlot mean ncdi against rank, significant partners in their own series */
func RankPlot(reference string, summaries []analysis.CoDepSummary) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s co-dependency rank", reference)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "rank", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mean ncdi", Type: "value"}),
	)

	var background, partners []opts.ScatterData

	for _, summary := range summaries {
		if summary.ReferenceGene != reference {
			continue
		}

		point := opts.ScatterData{
			Name:       summary.TargetGene,
			Value:      []interface{}{summary.Rank, summary.Mean},
			SymbolSize: 4,
		}

		if summary.Significant {
			point.SymbolSize = 8
			partners = append(partners, point)
			continue
		}

		background = append(background, point)
	}

	scatter.AddSeries("tested", background).AddSeries("significant", partners)

	return scatter
}

/*VolcanoPlot mean correlation against -log10 adjusted p-value */
func VolcanoPlot(title string, summaries []analysis.PathwaySummary) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "mean correlation", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "-log10 adjusted p", Type: "value"}),
	)

	var other, significant []opts.ScatterData

	for _, summary := range summaries {
		if math.IsNaN(summary.PAdj) {
			continue
		}

		point := opts.ScatterData{
			Name:       summary.Pathway,
			Value:      []interface{}{summary.MeanCorrelation, -math.Log10(math.Max(summary.PAdj, 1e-300))},
			SymbolSize: 6,
		}

		if summary.Significant {
			significant = append(significant, point)
			continue
		}

		other = append(other, point)
	}

	scatter.AddSeries("not significant", other).AddSeries("significant", significant)

	return scatter
}

/*StageBoxPlots one box plot of the standardised metric by stage for each study */
func StageBoxPlots(rows []analysis.StandardizedRow, stage utils.StageConfig) []*charts.BoxPlot {
	byStudy := make(map[string]map[string][]float64)

	for _, row := range rows {
		if byStudy[row.Study] == nil {
			byStudy[row.Study] = make(map[string][]float64)
		}

		byStudy[row.Study][row.Stage] = append(byStudy[row.Study][row.Stage], row.Value)
	}

	studies := make([]string, 0, len(byStudy))

	for study := range byStudy {
		studies = append(studies, study)
	}

	sort.Strings(studies)

	var plots []*charts.BoxPlot

	for _, study := range studies {
		box := charts.NewBoxPlot()
		metric := ""

		if len(rows) > 0 {
			metric = rows[0].Metric
		}

		box.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: study, Subtitle: fmt.Sprintf("standardised %s", metric)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "z"}),
		)

		var labels []string
		var data []opts.BoxPlotData

		for _, code := range []string{stage.Primary, stage.Recurrent} {
			values := byStudy[study][code]

			if len(values) == 0 {
				continue
			}

			quartiles := statutils.Quartiles(values)
			labels = append(labels, code)
			data = append(data, opts.BoxPlotData{Name: code, Value: quartiles[:]})
		}

		box.SetXAxis(labels).AddSeries(study, data)
		plots = append(plots, box)
	}

	return plots
}

/*WritePlots render charts into one HTML page */
func WritePlots(fname string, charters ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(charters...)

	writer, err := utils.OpenWriter(fname)

	if err != nil {
		return err
	}

	if err = page.Render(writer); err != nil {
		writer.Close()
		return fmt.Errorf("rendering %s: %w", fname, err)
	}

	return writer.Close()
}

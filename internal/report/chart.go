package report

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// RenderMAEChart renders an interactive HTML page with the local MAE and
// slope of every window.
func RenderMAEChart(info *daminfo.DamInfo, res *szi.Result) ([]byte, error) {
	recs := res.Scan.Records
	if len(recs) == 0 {
		return nil, errNoRecords
	}

	x := make([]string, len(recs))
	mae := make([]opts.LineData, len(recs))
	slope := make([]opts.LineData, len(recs))
	for i, r := range recs {
		x[i] = strconv.FormatFloat(r.MedianZ, 'f', 2, 64)
		mae[i] = opts.LineData{Value: r.Fit.MAE}
		slope[i] = opts.LineData{Value: r.Fit.Slope}
	}

	subtitle := fmt.Sprintf("dam=%.2f m, %s window medZ=%.2f, absolute window medZ=%.2f",
		info.Elevation, res.Selection.Mode, res.Selection.Window.MedianZ, res.Scan.Best.MedianZ)

	maeChart := charts.NewLine()
	maeChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: info.Name + " local MAE", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: info.Name + ": local MAE", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "median Z (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MAE (m2)"}),
	)
	maeChart.SetXAxis(x).AddSeries("mae", mae)

	slopeChart := charts.NewLine()
	slopeChart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: info.Name + ": local slope"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "median Z (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "dS/dZ (m2/m)"}),
	)
	slopeChart.SetXAxis(x).AddSeries("slope", slope)

	page := components.NewPage()
	page.AddCharts(maeChart, slopeChart)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMAEChart writes the chart page to path.
func WriteMAEChart(path string, info *daminfo.DamInfo, res *szi.Result) error {
	html, err := RenderMAEChart(info, res)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// errNoRecords is returned by plots that need window records
var errNoRecords = errors.New("no window records to plot")

var (
	colorSamples  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	colorWindow   = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	colorSelected = color.RGBA{R: 38, G: 139, B: 210, A: 255}
	colorAbsolute = color.RGBA{R: 133, G: 153, B: 0, A: 255}
	colorDam      = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// curve samples m at every whole meter strictly between Z0 and zMax.
func curve(m szi.Model, zMax float64, f func(szi.Model, float64) (float64, float64)) plotter.XYs {
	var xys plotter.XYs
	for z := math.Floor(m.Z0) + 1; z < math.Floor(zMax); z++ {
		x, y := f(m, z)
		xys = append(xys, plotter.XY{X: x, Y: y})
	}
	return xys
}

func areaAt(m szi.Model, z float64) (float64, float64) { return z, m.Area(z) }

func volumeVsArea(m szi.Model, z float64) (float64, float64) { return m.Area(z), m.Volume(z) }

func seriesXYs(series szi.Series) plotter.XYs {
	xys := make(plotter.XYs, len(series))
	for i, p := range series {
		xys[i] = plotter.XY{X: p.Z, Y: p.S}
	}
	return xys
}

func addScatter(p *plot.Plot, name string, xys plotter.XYs, c color.Color, radius vg.Length) error {
	if len(xys) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = radius
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}

func addLine(p *plot.Plot, name string, xys plotter.XYs, c color.Color, dashed bool) error {
	if len(xys) < 2 {
		return nil
	}
	l, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = vg.Points(1.5)
	if dashed {
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	p.Add(l)
	if name != "" {
		p.Legend.Add(name, l)
	}
	return nil
}

// addVLine draws a vertical marker at x spanning [ymin, ymax].
func addVLine(p *plot.Plot, name string, x, ymin, ymax float64, c color.Color) error {
	return addLine(p, name, plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}}, c, true)
}

func windowXYs(series szi.Series, w szi.Window) plotter.XYs {
	if w.Start < 0 || w.End > len(series) || w.Start >= w.End {
		return nil
	}
	return seriesXYs(series[w.Start:w.End])
}

func modelTitle(info *daminfo.DamInfo, m szi.Model) string {
	return fmt.Sprintf("%s: %s", info.Name, m)
}

// PlotModel draws the samples, the selected window and both models.
func PlotModel(path string, info *daminfo.DamInfo, res *szi.Result) error {
	p, err := newModelPlot(info, res)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func newModelPlot(info *daminfo.DamInfo, res *szi.Result) (*plot.Plot, error) {
	series := res.Prepared.Series
	zMax := series[len(series)-1].Z

	p := plot.New()
	p.Title.Text = modelTitle(info, res.Model)
	p.X.Label.Text = "Z (m)"
	p.Y.Label.Text = "S (m2)"
	p.Legend.Top = true
	p.Legend.Left = true

	err := errors.Join(
		addScatter(p, "S(Zi)", seriesXYs(series), colorSamples, vg.Points(2)),
		addScatter(p, "selected window", windowXYs(series, res.Selection.Window), colorWindow, vg.Points(3)),
		addLine(p, fmt.Sprintf("%s model", res.Selection.Mode), curve(res.Model, zMax, areaAt), colorSelected, false),
		addLine(p, "absolute model", curve(res.AbsoluteModel, zMax, areaAt), colorAbsolute, true),
	)
	if err != nil {
		return nil, fmt.Errorf("model plot: %w", err)
	}
	return p, nil
}

// PlotSlope draws the MAE and linear slope of every window against its
// median elevation, one above the other.
func PlotSlope(path string, info *daminfo.DamInfo, res *szi.Result) error {
	recs := res.Scan.Records
	if len(recs) == 0 {
		return errNoRecords
	}

	mae, slope, err := recordPlots(info, res)
	if err != nil {
		return err
	}
	return saveStacked(path, [][]*plot.Plot{{mae}, {slope}})
}

func recordPlots(info *daminfo.DamInfo, res *szi.Result) (*plot.Plot, *plot.Plot, error) {
	recs := res.Scan.Records
	maeXYs := make(plotter.XYs, len(recs))
	slopeXYs := make(plotter.XYs, len(recs))
	maes := make([]float64, len(recs))
	slopes := make([]float64, len(recs))
	for i, r := range recs {
		maeXYs[i] = plotter.XY{X: r.MedianZ, Y: r.Fit.MAE}
		slopeXYs[i] = plotter.XY{X: r.MedianZ, Y: r.Fit.Slope}
		maes[i], slopes[i] = r.Fit.MAE, r.Fit.Slope
	}

	mae := plot.New()
	mae.Title.Text = fmt.Sprintf("%s: local MAE", info.Name)
	mae.X.Label.Text = "median Z (m)"
	mae.Y.Label.Text = "MAE (m2)"
	err := errors.Join(
		addLine(mae, "", maeXYs, colorSamples, false),
		addScatter(mae, "absolute best", plotter.XYs{{X: res.Scan.Best.MedianZ, Y: res.Scan.Best.Fit.MAE}}, colorAbsolute, vg.Points(4)),
		addScatter(mae, "selected", plotter.XYs{{X: res.Selection.Window.MedianZ, Y: res.Selection.Window.Fit.MAE}}, colorWindow, vg.Points(4)),
		addVLine(mae, "dam", info.Elevation, floats.Min(maes), floats.Max(maes), colorDam),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("mae plot: %w", err)
	}

	slope := plot.New()
	slope.Title.Text = fmt.Sprintf("%s: local slope", info.Name)
	slope.X.Label.Text = "median Z (m)"
	slope.Y.Label.Text = "dS/dZ (m2/m)"
	err = errors.Join(
		addLine(slope, "", slopeXYs, colorSelected, false),
		addScatter(slope, "selected", plotter.XYs{{X: res.Selection.Window.MedianZ, Y: res.Selection.Window.Fit.Slope}}, colorWindow, vg.Points(4)),
		addVLine(slope, "dam", info.Elevation, floats.Min(slopes), floats.Max(slopes), colorDam),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("slope plot: %w", err)
	}

	return mae, slope, nil
}

// PlotCombo stacks the model plot over the local MAE plot. Without window
// records only the model plot is drawn.
func PlotCombo(path string, info *daminfo.DamInfo, res *szi.Result) error {
	model, err := newModelPlot(info, res)
	if err != nil {
		return err
	}
	areas := res.Prepared.Series.Areas()
	if err := addVLine(model, "dam", info.Elevation, floats.Min(areas), floats.Max(areas), colorDam); err != nil {
		return fmt.Errorf("dam marker: %w", err)
	}
	if info.HasPDB {
		if err := addVLine(model, "PDB", info.PDBElevation, floats.Min(areas), floats.Max(areas), colorSamples); err != nil {
			return fmt.Errorf("PDB marker: %w", err)
		}
	}

	if len(res.Scan.Records) == 0 {
		if err := model.Save(plotWidth, plotHeight, path); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		return nil
	}

	mae, _, err := recordPlots(info, res)
	if err != nil {
		return err
	}
	mae.X.Min, mae.X.Max = model.X.Min, model.X.Max
	return saveStacked(path, [][]*plot.Plot{{model}, {mae}})
}

// PlotVS draws the volume/area relationship implied by both models.
func PlotVS(path string, info *daminfo.DamInfo, res *szi.Result) error {
	series := res.Prepared.Series
	zMax := series[len(series)-1].Z

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: V(S)", info.Name)
	p.X.Label.Text = "S (m2)"
	p.Y.Label.Text = "V (m3)"
	p.Legend.Top = true
	p.Legend.Left = true

	err := errors.Join(
		addLine(p, fmt.Sprintf("%s model", res.Selection.Mode), curve(res.Model, zMax, volumeVsArea), colorSelected, false),
		addLine(p, "absolute model", curve(res.AbsoluteModel, zMax, volumeVsArea), colorAbsolute, true),
	)
	if err != nil {
		return fmt.Errorf("V(S) plot: %w", err)
	}

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func saveStacked(path string, plots [][]*plot.Plot) error {
	img := vgimg.New(plotWidth, plotHeight*vg.Length(len(plots))/1.5)
	dc := draw.New(img)

	t := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
		PadY:      vg.Points(12),
	}

	canvases := plot.Align(plots, t, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

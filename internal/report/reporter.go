package report

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khlaifiabilel/dem4water/internal/daminfo"
	"github.com/khlaifiabilel/dem4water/internal/szi"
)

// Artifacts lists the files written for one run.
type Artifacts struct {
	Model     string
	Table     string
	ModelPlot string
	SlopePlot string
	ComboPlot string
	VSPlot    string
}

// Reporter writes every artifact of a run next to outfile.
type Reporter struct {
	outfile string
	logger  *zap.SugaredLogger
}

// NewReporter creates a Reporter for outfile, the model plot path. The
// other artifacts share its base name.
func NewReporter(outfile string, logger *zap.SugaredLogger) *Reporter {
	return &Reporter{outfile: outfile, logger: logger}
}

// Paths returns the artifact names without writing anything.
func (r *Reporter) Paths() Artifacts {
	base := BasePath(r.outfile)
	return Artifacts{
		Model:     base + ".json",
		Table:     base + "_szi.dat",
		ModelPlot: r.outfile,
		SlopePlot: base + "_slope.png",
		ComboPlot: base + "_combo.png",
		VSPlot:    base + "_VS.png",
	}
}

// Write emits the JSON model and the table, then the plots. Plots that
// need window records are skipped on short scans; any other failure
// aborts the run.
func (r *Reporter) Write(info *daminfo.DamInfo, res *szi.Result) (Artifacts, error) {
	a := r.Paths()

	if err := WriteModel(a.Model, NewModelDocument(info, res.Model)); err != nil {
		return a, err
	}
	r.logger.Infof("%s: model written to %s", info.Name, a.Model)

	if err := szi.SaveTable(a.Table, res.Prepared.Series); err != nil {
		return a, err
	}

	plots := []struct {
		path string
		draw func(string, *daminfo.DamInfo, *szi.Result) error
	}{
		{a.ModelPlot, PlotModel},
		{a.SlopePlot, PlotSlope},
		{a.ComboPlot, PlotCombo},
		{a.VSPlot, PlotVS},
	}
	for _, p := range plots {
		err := p.draw(p.path, info, res)
		switch {
		case errors.Is(err, errNoRecords):
			r.logger.Infof("skipping %s: no window records", p.path)
		case err != nil:
			return a, fmt.Errorf("plot %s: %w", p.path, err)
		default:
			r.logger.Debugf("plot written to %s", p.path)
		}
	}

	return a, nil
}

// WriteExtras writes the optional msgpack dump and HTML chart when their
// paths are set.
func (r *Reporter) WriteExtras(recordsPath, htmlPath string, info *daminfo.DamInfo, res *szi.Result) error {
	if recordsPath != "" {
		if err := WriteRecords(recordsPath, NewRecordDump(info.ID, info.Name, info.Elevation, res)); err != nil {
			return err
		}
		r.logger.Infof("window records written to %s", recordsPath)
	}
	if htmlPath != "" {
		err := WriteMAEChart(htmlPath, info, res)
		if errors.Is(err, errNoRecords) {
			r.logger.Infof("skipping %s: no window records", htmlPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mae chart: %w", err)
		}
	}
	return nil
}

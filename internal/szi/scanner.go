package szi

import (
	"fmt"

	"go.uber.org/zap"
)

// Window is the fit of one sliding window series[Start:End].
type Window struct {
	Start   int     `json:"start" msgpack:"start"`
	End     int     `json:"end" msgpack:"end"`
	MedianZ float64 `json:"median_z" msgpack:"median_z"`
	MedianS float64 `json:"median_s" msgpack:"median_s"`
	Fit     Fit     `json:"fit" msgpack:"fit"`
}

// Shortage tells why the scan was cut short.
type Shortage int

const (
	// ShortageNone means the sliding window loop ran normally.
	ShortageNone Shortage = iota
	// ShortageData means there were too few samples above the start index.
	ShortageData
	// ShortageOutOfRange means the first window already lies above dam+zmaxoffset.
	ShortageOutOfRange
)

func (s Shortage) String() string {
	switch s {
	case ShortageData:
		return "data_shortage"
	case ShortageOutOfRange:
		return "out_of_range"
	}
	return "none"
}

// ScanResult holds every window record plus the lowest-MAE window.
// Windows that could not be fitted are absent from Records; their start
// indices are listed in Skipped, so consecutive records are not always
// adjacent windows.
type ScanResult struct {
	Records  []Window
	Best     Window
	Shortage Shortage
	Skipped  []int
}

// Scanner slides a fixed-size window over a prepared series.
type Scanner struct {
	params Params
	logger *zap.SugaredLogger
}

// NewScanner creates a Scanner for p
func NewScanner(p Params, logger *zap.SugaredLogger) *Scanner {
	return &Scanner{params: p, logger: logger}
}

// Scan fits every window from start upward while the window median stays
// under dam+zmaxoffset. On a short series a single fit over series[1:] is
// returned instead, and when the first window is already too high that
// window alone is fitted. Best is the first window with the lowest MAE.
func (sc *Scanner) Scan(series Series, start int) (*ScanResult, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrEmptySeries, len(series))
	}

	z, s := series.Elevations(), series.Areas()
	z0, s0 := z[0], s[0]
	w := sc.params.WinSize
	ceiling := sc.params.DamElevation + sc.params.ZMaxOffset
	n := len(series)

	if start+w >= n-1 {
		sc.logger.Warnf("data shortage: %d samples from index %d cannot hold windows of %d, fitting all samples", n, start, w)
		win, err := sc.fit(z, s, 1, n, z0, s0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoModel, err)
		}
		return &ScanResult{Best: win, Shortage: ShortageData}, nil
	}

	if Median(z[start:start+w]) >= ceiling {
		sc.logger.Errorf("zmaxoffset too restrictive: first window median %.2f is above %.2f",
			Median(z[start:start+w]), ceiling)
		sc.logger.Warn("maybe the dam elevation estimate is not correct")
		win, err := sc.fit(z, s, start, start+w, z0, s0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoModel, err)
		}
		return &ScanResult{Best: win, Shortage: ShortageOutOfRange}, nil
	}

	res := &ScanResult{}
	found := false
	for i := start; i+w < n-1 && Median(z[i:i+w]) < ceiling; i++ {
		win, err := sc.fit(z, s, i, i+w, z0, s0)
		if err != nil {
			sc.logger.Debugf("skipping window at %d: %v", i, err)
			res.Skipped = append(res.Skipped, i)
			continue
		}
		res.Records = append(res.Records, win)
		if !found || win.Fit.MAE < res.Best.Fit.MAE {
			res.Best = win
			found = true
		}
		sc.logger.Debugf("window %d: medZ=%.2f alpha=%.4f beta=%.4f slope=%.2f mae=%.2f",
			i, win.MedianZ, win.Fit.Alpha, win.Fit.Beta, win.Fit.Slope, win.Fit.MAE)
	}
	if len(res.Skipped) > 0 {
		sc.logger.Infof("skipped %d degenerate windows out of %d (starting at %v)",
			len(res.Skipped), len(res.Skipped)+len(res.Records), res.Skipped)
	}
	if !found {
		return nil, ErrNoModel
	}

	sc.logger.Infof("scanned %d windows, absolute best at %d (medZ=%.2f, mae=%.2f)",
		len(res.Records), res.Best.Start, res.Best.MedianZ, res.Best.Fit.MAE)
	return res, nil
}

func (sc *Scanner) fit(z, s []float64, from, to int, z0, s0 float64) (Window, error) {
	f, err := FitWindow(z[from:to], s[from:to], z0, s0)
	if err != nil {
		return Window{}, err
	}
	return Window{
		Start:   from,
		End:     to,
		MedianZ: Median(z[from:to]),
		MedianS: Median(s[from:to]),
		Fit:     f,
	}, nil
}

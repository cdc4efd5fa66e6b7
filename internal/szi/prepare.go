package szi

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Prepared is a series ready for scanning.
type Prepared struct {
	// Series is the ascending series the scanner works on
	Series Series
	// Full is the ascending series before any selection_mode truncation
	Full Series
	// Start is the index of the first window
	Start int
}

// RemoveJumps drops samples whose area jumps by more than ratio relative to
// the last kept sample, in either direction. It works on raw input order.
// Pairs involving a non-positive area are never compared. Since a dropped
// sample never becomes the reference, a run of collapsed areas is dropped
// as a whole, e.g. 5000 4800 20 18 15 0 keeps 5000 4800 0.
func RemoveJumps(series Series, ratio float64) Series {
	if len(series) == 0 {
		return nil
	}
	out := make(Series, 0, len(series))
	out = append(out, series[0])
	for _, p := range series[1:] {
		last := out[len(out)-1]
		if last.S > 0 && p.S > 0 {
			r := p.S / last.S
			if r > ratio || r < 1/ratio {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// FilterSmallAreas drops samples whose area is below minArea. The lowest
// elevation sample is always kept since it anchors the model.
func FilterSmallAreas(series Series, minArea float64) Series {
	if len(series) == 0 {
		return nil
	}
	base := 0
	for i, p := range series {
		if p.Z < series[base].Z {
			base = i
		}
	}
	out := make(Series, 0, len(series))
	for i, p := range series {
		if i == base || p.S >= minArea {
			out = append(out, p)
		}
	}
	return out
}

// Ascending returns the series ordered by ascending elevation. Input in
// descending contour order is reversed; ascending input is copied as is.
func Ascending(series Series) Series {
	out := slices.Clone(series)
	if len(out) > 1 && out[0].Z > out[len(out)-1].Z {
		slices.Reverse(out)
	}
	return out
}

// StartIndex returns the index of the first sample above damElevation-zMinOffset,
// or len(series) when every sample lies below that floor.
func StartIndex(series Series, damElevation, zMinOffset float64) int {
	floor := damElevation - zMinOffset
	for i, p := range series {
		if p.Z > floor {
			return i
		}
	}
	return len(series)
}

// SelectLower keeps the baseline and the winSize samples directly above it.
func SelectLower(series Series, winSize int) Series {
	if len(series) <= winSize+1 {
		return slices.Clone(series)
	}
	return slices.Clone(series[:winSize+1])
}

// Preparer turns raw S(Zi) samples into a scan-ready series.
type Preparer struct {
	params Params
	logger *zap.SugaredLogger
}

// NewPreparer creates a Preparer for p
func NewPreparer(p Params, logger *zap.SugaredLogger) *Preparer {
	return &Preparer{params: p, logger: logger}
}

// Prepare applies the optional small-area filter and jump removal in raw
// order, sorts the result by ascending elevation, then picks the start index
// according to the selection mode.
func (pr *Preparer) Prepare(raw Series) (*Prepared, error) {
	series := raw
	if pr.params.FilterArea {
		minArea := pr.params.MinArea()
		series = FilterSmallAreas(series, minArea)
		pr.logger.Infof("small area filter (%.0f m2): %d -> %d samples", minArea, len(raw), len(series))
	}

	before := len(series)
	series = RemoveJumps(series, pr.params.JumpRatio)
	if dropped := before - len(series); dropped > 0 {
		pr.logger.Infof("removed %d samples with area jumps over x%.1f", dropped, pr.params.JumpRatio)
	}

	series = Ascending(series)
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: %d samples left after filtering", ErrEmptySeries, len(series))
	}

	prep := &Prepared{Full: series}
	switch pr.params.SelectionMode {
	case SelectionFirsts:
		prep.Series = SelectLower(series, pr.params.WinSize)
		prep.Start = 1
	default:
		prep.Series = series
		prep.Start = StartIndex(series, pr.params.DamElevation, pr.params.ZMinOffset)
	}

	pr.logger.Debugf("prepared %d samples, Z0=%.2f S0=%.2f start=%d",
		len(prep.Series), prep.Series[0].Z, prep.Series[0].S, prep.Start)
	return prep, nil
}

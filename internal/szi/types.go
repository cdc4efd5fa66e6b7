// Package szi turns stage/area samples S(Zi) into a reservoir power-law model.
// A series of (elevation, area) samples is prepared, scanned with a sliding
// window of local fits, and one window is chosen by a pluggable selection strategy.
package szi

import (
	"fmt"
	"strings"
)

// Sample is one (elevation, flooded area) pair. Z is in meters, S in square meters.
type Sample struct {
	Z float64
	S float64
}

// Series is an ordered list of samples. Once prepared it is sorted by
// ascending elevation and its first sample is the baseline (Z0, S0).
type Series []Sample

// Elevations returns the Z column
func (s Series) Elevations() []float64 {
	z := make([]float64, len(s))
	for i, p := range s {
		z[i] = p.Z
	}
	return z
}

// Areas returns the S column
func (s Series) Areas() []float64 {
	a := make([]float64, len(s))
	for i, p := range s {
		a[i] = p.S
	}
	return a
}

// Baseline returns the reference sample (Z0, S0).
func (s Series) Baseline() Sample {
	if len(s) == 0 {
		return Sample{}
	}
	return s[0]
}

// Mode names a selection strategy
type Mode string

const (
	ModeAbsolute Mode = "absolute"
	ModeFirst    Mode = "first"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode validates a maemode option value.
func ParseMode(v string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(v))); m {
	case ModeAbsolute, ModeFirst, ModeHybrid:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (expected absolute, first or hybrid)", ErrInvalidMode, v)
}

// SelectionMode controls how the scan start index is chosen
type SelectionMode string

const (
	// SelectionBest starts scanning just below the dam elevation.
	SelectionBest SelectionMode = "best"
	// SelectionFirsts keeps only the samples directly following Z0.
	SelectionFirsts SelectionMode = "firsts"
)

// ParseSelectionMode validates a selection_mode option value.
func ParseSelectionMode(v string) (SelectionMode, error) {
	switch m := SelectionMode(strings.ToLower(strings.TrimSpace(v))); m {
	case SelectionBest, SelectionFirsts:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (expected best or firsts)", ErrInvalidSelectionMode, v)
}

// ParseFilterArea converts the filter_area option to a boolean.
func ParseFilterArea(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "enabled":
		return true, nil
	case "disabled":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q (expected enabled or disabled)", ErrInvalidFilterArea, v)
}

// DefaultMinArea is the small-area filter threshold in square meters.
const DefaultMinArea = 100000.0

// ReferenceAreaFraction is the share of a known water-body area under which
// samples are considered noise when filtering small areas.
const ReferenceAreaFraction = 0.15

// Params holds the validated options of one model run.
type Params struct {
	WinSize       int
	ZMaxOffset    float64
	ZMinOffset    float64
	DamElevation  float64
	Mode          Mode
	DSlopeThresh  float64
	SelectionMode SelectionMode
	JumpRatio     float64
	FilterArea    bool
	// ReferenceArea is the area of the reservoir water body, 0 when unknown.
	ReferenceArea float64
}

// DefaultParams returns the stock options for a dam at damElevation.
func DefaultParams(damElevation float64) Params {
	return Params{
		WinSize:       11,
		ZMaxOffset:    30,
		ZMinOffset:    10,
		DamElevation:  damElevation,
		Mode:          ModeAbsolute,
		DSlopeThresh:  1000,
		SelectionMode: SelectionBest,
		JumpRatio:     10,
	}
}

// Validate checks option ranges and enum values.
func (p Params) Validate() error {
	if p.WinSize < 2 {
		return fmt.Errorf("winsize must be at least 2, got %d", p.WinSize)
	}
	if p.ZMaxOffset < 0 || p.ZMinOffset < 0 {
		return fmt.Errorf("zmaxoffset and zminoffset must be positive, got %v and %v", p.ZMaxOffset, p.ZMinOffset)
	}
	if p.JumpRatio <= 1 {
		return fmt.Errorf("jump_ratio must be greater than 1, got %v", p.JumpRatio)
	}
	if p.DSlopeThresh <= 0 {
		return fmt.Errorf("dslopethresh must be positive, got %v", p.DSlopeThresh)
	}
	if _, err := ParseMode(string(p.Mode)); err != nil {
		return err
	}
	if _, err := ParseSelectionMode(string(p.SelectionMode)); err != nil {
		return err
	}
	return nil
}

// MinArea returns the small-area filter threshold for these options.
func (p Params) MinArea() float64 {
	if p.ReferenceArea > 0 {
		return min(DefaultMinArea, ReferenceAreaFraction*p.ReferenceArea)
	}
	return DefaultMinArea
}

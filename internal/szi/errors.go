package szi

import "errors"

var (
	// ErrDegenerateWindow is returned when a window has fewer than two
	// points strictly above the baseline, so no log-linear fit exists.
	ErrDegenerateWindow = errors.New("degenerate window")
	// ErrNoModel is returned when no window could be fitted at all.
	ErrNoModel = errors.New("no model could be fitted")
	// ErrEmptySeries is returned when preparation leaves no usable sample.
	ErrEmptySeries = errors.New("empty S(Zi) series")

	ErrInvalidMode          = errors.New("invalid maemode")
	ErrInvalidSelectionMode = errors.New("invalid selection_mode")
	ErrInvalidFilterArea    = errors.New("invalid filter_area")
)

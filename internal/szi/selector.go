package szi

import (
	"go.uber.org/zap"
)

// Selection is the window retained by a Selector.
type Selection struct {
	Mode   Mode
	Window Window
	// Found is false when the strategy fell back to the absolute best window.
	Found bool
}

// Selector defines the interface for window selection strategies.
// Implementations never modify the scan result.
type Selector interface {
	// Select picks one window among the scan records
	Select(res *ScanResult) Selection

	// Mode names the strategy
	Mode() Mode
}

// NewSelector creates the Selector for p.Mode.
func NewSelector(p Params, logger *zap.SugaredLogger) (Selector, error) {
	mode, err := ParseMode(string(p.Mode))
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeFirst:
		return &FirstSelector{logger: logger}, nil
	case ModeHybrid:
		return &HybridSelector{
			damElevation: p.DamElevation,
			zMinOffset:   p.ZMinOffset,
			zMaxOffset:   p.ZMaxOffset,
			dSlopeThresh: p.DSlopeThresh,
			logger:       logger,
		}, nil
	default:
		return &AbsoluteSelector{}, nil
	}
}

// AbsoluteSelector keeps the window with the lowest MAE.
type AbsoluteSelector struct{}

func (AbsoluteSelector) Mode() Mode { return ModeAbsolute }

func (AbsoluteSelector) Select(res *ScanResult) Selection {
	return Selection{Mode: ModeAbsolute, Window: res.Best, Found: true}
}

func fallback(mode Mode, res *ScanResult) Selection {
	return Selection{Mode: mode, Window: res.Best}
}

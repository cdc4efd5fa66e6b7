package szi

import (
	"math"

	"go.uber.org/zap"
)

// HybridSelector first keeps the lowest-MAE window whose median elevation
// lies within [dam, dam+zmaxoffset], then walks toward lower windows while
// they stay above dam-zminoffset and the slope of the linear trend is stable.
//
// The last record is never a pass 1 candidate, and the pass 2 walk starts
// two records below the pass 1 window: the step right below it is not tested.
type HybridSelector struct {
	damElevation float64
	zMinOffset   float64
	zMaxOffset   float64
	dSlopeThresh float64
	logger       *zap.SugaredLogger
}

func (h *HybridSelector) Mode() Mode { return ModeHybrid }

func (h *HybridSelector) Select(res *ScanResult) Selection {
	recs := res.Records

	best := -1
	for j := 0; j < len(recs)-1; j++ {
		r := recs[j]
		if r.MedianZ < h.damElevation || r.MedianZ > h.damElevation+h.zMaxOffset {
			continue
		}
		if best < 0 || r.Fit.MAE < recs[best].Fit.MAE {
			best = j
		}
	}
	if best < 0 {
		h.logger.Warnf("hybrid pass #1: no window with median elevation in [%.2f, %.2f], keeping absolute best",
			h.damElevation, h.damElevation+h.zMaxOffset)
		return fallback(ModeHybrid, res)
	}
	h.logger.Infof("Hybrid pass #1 => window %d (medZ=%.2f, mae=%.2f)", best, recs[best].MedianZ, recs[best].Fit.MAE)

	floor := h.damElevation - h.zMinOffset
	for k := best - 2; k >= 0; k-- {
		if recs[k].MedianZ < floor {
			break
		}
		if !(math.Abs(SlopeDerivative(recs, k)) < h.dSlopeThresh) {
			break
		}
		best = k
	}
	h.logger.Infof("Hybrid pass #2 => window %d (medZ=%.2f, mae=%.2f)", best, recs[best].MedianZ, recs[best].Fit.MAE)

	return Selection{Mode: ModeHybrid, Window: recs[best], Found: true}
}

// SlopeDerivative returns the change of linear slope per meter of median
// elevation between records k and k+1. Equal medians give an infinite or
// NaN value, which never passes a threshold test.
func SlopeDerivative(recs []Window, k int) float64 {
	if k+1 >= len(recs) {
		return math.NaN()
	}
	return (recs[k+1].Fit.Slope - recs[k].Fit.Slope) / (recs[k+1].MedianZ - recs[k].MedianZ)
}

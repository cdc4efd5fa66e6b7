package szi

import (
	"go.uber.org/zap"
)

// minFirstRecords is the smallest record count the first-minimum search accepts
const minFirstRecords = 5

// FirstSelector keeps the lowest-elevation window whose MAE is a local
// minimum among its neighbours within two positions.
type FirstSelector struct {
	logger *zap.SugaredLogger
}

func (f *FirstSelector) Mode() Mode { return ModeFirst }

func (f *FirstSelector) Select(res *ScanResult) Selection {
	mae := make([]float64, len(res.Records))
	for i, r := range res.Records {
		mae[i] = r.Fit.MAE
	}

	if len(mae) < minFirstRecords {
		f.logger.Infof("not enough local mae data (%d windows), keeping absolute best", len(mae))
		return fallback(ModeFirst, res)
	}

	if j, ok := FirstLocalMinimum(mae); ok {
		f.logger.Infof("first local mae minimum at window %d (medZ=%.2f, mae=%.2f)",
			j, res.Records[j].MedianZ, mae[j])
		return Selection{Mode: ModeFirst, Window: res.Records[j], Found: true}
	}

	f.logger.Info("search for first local mae minimum failed, keeping absolute best")
	return fallback(ModeFirst, res)
}

// FirstLocalMinimum returns the first index j whose value is strictly below
// every neighbour within two positions. At both ends only the neighbours
// that exist are compared: index 0 against 1 and 2, index 1 against 0, 2
// and 3, and symmetrically for the last two indexes. It needs at least 5 values.
func FirstLocalMinimum(v []float64) (int, bool) {
	n := len(v)
	if n < minFirstRecords {
		return 0, false
	}
	for j := 0; j < n; j++ {
		ok := true
		for k := max(0, j-2); k <= min(n-1, j+2); k++ {
			if k == j {
				continue
			}
			if v[j] >= v[k] {
				ok = false
				break
			}
		}
		if ok {
			return j, true
		}
	}
	return 0, false
}

package szi

import (
	"fmt"

	"go.uber.org/zap"
)

// Result is everything one model estimation produced.
type Result struct {
	Params    Params
	Prepared  *Prepared
	Scan      *ScanResult
	Selection Selection
	// Model is anchored on the selected window
	Model Model
	// AbsoluteModel is anchored on the lowest-MAE window
	AbsoluteModel Model
}

// Estimator runs preparation, scanning and selection with one set of options.
type Estimator struct {
	params   Params
	preparer *Preparer
	scanner  *Scanner
	selector Selector
	logger   *zap.SugaredLogger
}

// NewEstimator validates p and builds the pipeline.
func NewEstimator(p Params, logger *zap.SugaredLogger) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model options: %w", err)
	}
	selector, err := NewSelector(p, logger)
	if err != nil {
		return nil, err
	}
	return &Estimator{
		params:   p,
		preparer: NewPreparer(p, logger),
		scanner:  NewScanner(p, logger),
		selector: selector,
		logger:   logger,
	}, nil
}

// Estimate fits the stage/area model on raw samples.
func (e *Estimator) Estimate(raw Series) (*Result, error) {
	prep, err := e.preparer.Prepare(raw)
	if err != nil {
		return nil, err
	}

	scan, err := e.scanner.Scan(prep.Series, prep.Start)
	if err != nil {
		return nil, err
	}

	var sel Selection
	if scan.Shortage != ShortageNone {
		// selection needs window records, which a short scan does not produce
		sel = Selection{Mode: e.selector.Mode(), Window: scan.Best}
	} else {
		sel = e.selector.Select(scan)
	}

	base := prep.Series.Baseline()
	res := &Result{
		Params:        e.params,
		Prepared:      prep,
		Scan:          scan,
		Selection:     sel,
		Model:         NewModel(base, sel.Window.Fit),
		AbsoluteModel: NewModel(base, scan.Best.Fit),
	}

	e.logger.Infof("%s model: %s (mae=%.2f)", sel.Mode, res.Model, sel.Window.Fit.MAE)
	return res, nil
}

package szi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Fit is the result of fitting one window of samples.
type Fit struct {
	// Power law S = S0 + Alpha*(Z-Z0)^Beta
	Alpha float64 `json:"alpha" msgpack:"alpha"`
	Beta  float64 `json:"beta" msgpack:"beta"`
	// Linear regression S = Intercept + Slope*Z
	Slope     float64 `json:"slope" msgpack:"slope"`
	Intercept float64 `json:"intercept" msgpack:"intercept"`
	// MAE is the mean absolute error of the power law over the window
	MAE float64 `json:"mae" msgpack:"mae"`
}

// Model is a fitted stage/area relationship anchored at the baseline sample.
type Model struct {
	Z0    float64
	S0    float64
	V0    float64
	Alpha float64
	Beta  float64
}

// NewModel anchors a window fit at baseline b. V0 is always 0.
func NewModel(b Sample, f Fit) Model {
	return Model{Z0: b.Z, S0: b.S, Alpha: f.Alpha, Beta: f.Beta}
}

// Area evaluates S(z). Elevations at or below Z0 return S0.
func (m Model) Area(z float64) float64 {
	dz := z - m.Z0
	if dz <= 0 {
		return m.S0
	}
	return m.S0 + m.Alpha*math.Pow(dz, m.Beta)
}

// Volume evaluates V(z), the integral of S from Z0 to z.
func (m Model) Volume(z float64) float64 {
	dz := z - m.Z0
	if dz <= 0 {
		return m.V0
	}
	return m.V0 + m.S0*dz + m.Alpha/(m.Beta+1)*math.Pow(dz, m.Beta+1)
}

// String formats the model the way it is reported in the logs
func (m Model) String() string {
	return fmt.Sprintf("S(Z) = %.2f + %.2f * ( Z - %.2f ) ^ %.2f", m.S0, m.Alpha, m.Z0, m.Beta)
}

// FitWindow fits the power law and the linear trend on the samples (z, s)
// given the baseline (z0, s0). The power law is fitted by least squares in
// log space on the points strictly above the baseline, and its MAE is
// measured on every point of the window.
func FitWindow(z, s []float64, z0, s0 float64) (Fit, error) {
	if len(z) != len(s) {
		return Fit{}, fmt.Errorf("mismatched window: %d elevations, %d areas", len(z), len(s))
	}

	logZ := make([]float64, 0, len(z))
	logS := make([]float64, 0, len(s))
	for i := range z {
		dz, ds := z[i]-z0, s[i]-s0
		if dz <= 0 || ds <= 0 {
			continue
		}
		logZ = append(logZ, math.Log(dz))
		logS = append(logS, math.Log(ds))
	}
	if len(logZ) < 2 || floats.Min(logZ) == floats.Max(logZ) {
		return Fit{}, fmt.Errorf("%w: %d usable points out of %d", ErrDegenerateWindow, len(logZ), len(z))
	}

	// stat.LinearRegression returns (intercept, slope)
	logAlpha, beta := stat.LinearRegression(logZ, logS, nil, false)

	coeffs, err := FitPolynomial(z, s, 1)
	if err != nil {
		return Fit{}, fmt.Errorf("linear trend: %w", err)
	}

	f := Fit{
		Alpha:     math.Exp(logAlpha),
		Beta:      beta,
		Intercept: coeffs[0],
		Slope:     coeffs[1],
	}
	m := Model{Z0: z0, S0: s0, Alpha: f.Alpha, Beta: f.Beta}
	f.MAE = meanAbsoluteError(z, s, m.Area)

	return f, nil
}

// FitPolynomial solves the least squares polynomial of the given degree
// through (x, y) with a QR decomposition of the Vandermonde matrix.
// Coefficients are returned lowest power first.
func FitPolynomial(x, y []float64, degree int) ([]float64, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("mismatched input: %d x values, %d y values", n, len(y))
	}
	if n <= degree {
		return nil, fmt.Errorf("need more than %d points for degree %d, got %d", degree, degree, n)
	}

	X := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= degree; j++ {
			X.Set(i, j, math.Pow(x[i], float64(j)))
		}
	}

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(degree+1, nil)
	if err := qr.SolveVecTo(coeffs, false, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("solving polynomial regression: %w", err)
	}

	out := make([]float64, degree+1)
	for i := range out {
		out[i] = coeffs.AtVec(i)
	}
	return out, nil
}

func meanAbsoluteError(x, y []float64, predict func(float64) float64) float64 {
	if len(y) == 0 {
		return 0
	}
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = math.Abs(predict(x[i]) - y[i])
	}
	return stat.Mean(residuals, nil)
}

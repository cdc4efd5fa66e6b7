package szi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func powerLawSeries(z0, s0, alpha, beta float64, zs ...float64) ([]float64, []float64) {
	s := make([]float64, len(zs))
	for i, z := range zs {
		s[i] = s0 + alpha*math.Pow(z-z0, beta)
	}
	return zs, s
}

func TestFitWindow(t *testing.T) {
	tests := []struct {
		name    string
		z0, s0  float64
		alpha   float64
		beta    float64
		zs      []float64
		epsilon float64
	}{
		{
			name:    "square law from zero",
			alpha:   2,
			beta:    2,
			zs:      []float64{1, 2, 3, 4, 5},
			epsilon: 1e-9,
		},
		{
			name:    "reservoir scale with offset baseline",
			z0:      412.5,
			s0:      15000,
			alpha:   31622.7766,
			beta:    1.5,
			zs:      []float64{420, 421, 422, 423, 424, 425, 426, 427, 428, 429, 430},
			epsilon: 1e-6,
		},
		{
			name:    "sublinear growth",
			z0:      100,
			alpha:   5e5,
			beta:    0.7,
			zs:      []float64{101, 103, 107, 111, 120},
			epsilon: 1e-6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, s := powerLawSeries(tt.z0, tt.s0, tt.alpha, tt.beta, tt.zs...)

			f, err := FitWindow(z, s, tt.z0, tt.s0)
			require.NoError(t, err)

			assert.InEpsilon(t, tt.alpha, f.Alpha, tt.epsilon)
			assert.InEpsilon(t, tt.beta, f.Beta, tt.epsilon)
			assert.InDelta(t, 0, f.MAE, 1e-6*tt.alpha)
			assert.Greater(t, f.Slope, 0.0)
		})
	}
}

func TestFitWindowIsDeterministic(t *testing.T) {
	z := []float64{101, 102, 103, 104, 105, 106, 107}
	s := []float64{1200, 2950, 5100, 8300, 10900, 15500, 18100}

	first, err := FitWindow(z, s, 100, 0)
	require.NoError(t, err)
	second, err := FitWindow(z, s, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Greater(t, first.MAE, 0.0)
}

func TestFitWindowLinearTrend(t *testing.T) {
	// S = -500 + 25*Z on a straight line
	z := []float64{30, 31, 32, 33, 34}
	s := make([]float64, len(z))
	for i := range z {
		s[i] = -500 + 25*z[i]
	}

	f, err := FitWindow(z, s, 20, 0)
	require.NoError(t, err)
	assert.InDelta(t, 25, f.Slope, 1e-9)
	assert.InDelta(t, -500, f.Intercept, 1e-7)
}

func TestFitWindowDegenerate(t *testing.T) {
	tests := []struct {
		name string
		z    []float64
		s    []float64
	}{
		{name: "all below baseline", z: []float64{1, 2, 3}, s: []float64{0, 0, 0}},
		{name: "single usable point", z: []float64{10, 11, 12}, s: []float64{0, 0, 50}},
		{name: "same elevation", z: []float64{12, 12, 12}, s: []float64{10, 20, 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitWindow(tt.z, tt.s, 5, 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerateWindow))
		})
	}
}

func TestFitPolynomial(t *testing.T) {
	x := []float64{-2, -1, 0, 1, 2, 3}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 1 - 2*v + 0.5*v*v
	}

	coeffs, err := FitPolynomial(x, y, 2)
	require.NoError(t, err)
	require.Len(t, coeffs, 3)
	assert.InDelta(t, 1, coeffs[0], 1e-9)
	assert.InDelta(t, -2, coeffs[1], 1e-9)
	assert.InDelta(t, 0.5, coeffs[2], 1e-9)

	_, err = FitPolynomial([]float64{1}, []float64{2}, 1)
	assert.Error(t, err)
}

func TestModelAreaAndVolume(t *testing.T) {
	m := Model{Z0: 100, S0: 10, Alpha: 3, Beta: 2}

	assert.Equal(t, 10.0, m.Area(100))
	assert.Equal(t, 10.0, m.Area(90))
	assert.InDelta(t, 10+3*4, m.Area(102), 1e-12)

	// V(z) = S0*dz + alpha/(beta+1)*dz^(beta+1)
	assert.InDelta(t, 10*3+1*27, m.Volume(103), 1e-12)
	assert.Equal(t, 0.0, m.Volume(99))
	assert.Contains(t, m.String(), "S(Z) = 10.00 + 3.00 * ( Z - 100.00 ) ^ 2.00")
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{name: "empty", data: nil, expected: 0},
		{name: "odd", data: []float64{3, 1, 2}, expected: 2},
		{name: "even averages middle pair", data: []float64{4, 1, 3, 2}, expected: 2.5},
		{name: "single", data: []float64{7}, expected: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Median(tt.data))
		})
	}

	data := []float64{3, 1, 2}
	Median(data)
	assert.Equal(t, []float64{3, 1, 2}, data, "input must not be sorted in place")
}

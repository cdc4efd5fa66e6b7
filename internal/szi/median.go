package szi

import "sort"

// Median returns the middle value of data, averaging the two middle values
// when len(data) is even. The input slice is not modified and an empty
// slice yields 0.
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

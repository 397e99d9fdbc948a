// Package stats holds the sample statistics used by the uncertainty budgets.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// SampleStdDev is the Bessel-corrected (n-1) standard deviation.
// Fewer than two values give 0.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd := stat.StdDev(values, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// StdErrorOfMean is SampleStdDev/√n.
func StdErrorOfMean(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return SampleStdDev(values) / math.Sqrt(float64(len(values)))
}

func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}

func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// MaxAbsDeviation returns max|x-ref|.
func MaxAbsDeviation(values []float64, ref float64) float64 {
	dev := 0.0
	for _, v := range values {
		if d := math.Abs(v - ref); d > dev {
			dev = d
		}
	}
	return dev
}

// Clean replaces NaN and ±Inf with 0 and returns how many were replaced.
// The input is not modified.
func Clean(values []float64) ([]float64, int) {
	out := make([]float64, len(values))
	n := 0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
			continue
		}
		out[i] = v
	}
	return out, n
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

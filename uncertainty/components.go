// Package uncertainty turns raw calibration inputs into standard-uncertainty
// components and combines them into a budget.
//
// All functions are pure. NaN and infinite inputs are treated as 0, which
// can understate an uncertainty when a form field was left empty; callers
// that care should check their inputs with models.Number.Valid and report it.
package uncertainty

import (
	"math"

	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
)

var (
	sqrt3    = math.Sqrt(3)
	twoSqrt3 = 2 * math.Sqrt(3)
)

// Custom builds a component u = |source|/divisor. A non-positive divisor is
// treated as 1.
func Custom(name string, source, divisor float64, dist models.Distribution, unit models.Unit) models.Component {
	source = stats.Finite(source)
	divisor = stats.Finite(divisor)
	if divisor <= 0 {
		divisor = 1
	}
	return models.Component{
		Name:         name,
		Source:       source,
		Divisor:      divisor,
		Value:        math.Abs(source) / divisor,
		Unit:         unit,
		Distribution: dist,
		Sensitivity:  1,
		DoF:          models.Infinite(),
	}
}

// Rectangular is halfWidth/√3.
func Rectangular(name string, halfWidth float64, unit models.Unit) models.Component {
	return Custom(name, halfWidth, sqrt3, models.Rectangular, unit)
}

// Resolution is (resolution×readability)/(2√3), the rounding error of a
// digital indication.
func Resolution(name string, resolution, readability float64, unit models.Unit) models.Component {
	return Custom(name, stats.Finite(resolution)*stats.Finite(readability), twoSqrt3, models.Rectangular, unit)
}

// ThermometerResolution is (rg×rd)/3.
func ThermometerResolution(name string, rg, rd float64, unit models.Unit) models.Component {
	return Custom(name, stats.Finite(rg)*stats.Finite(rd), 3, models.Rectangular, unit)
}

// Repeatability is the standard error of the mean of readings, with n-1
// degrees of freedom.
func Repeatability(name string, readings []float64, unit models.Unit) models.Component {
	clean, _ := stats.Clean(readings)
	n := len(clean)
	c := Custom(name, stats.SampleStdDev(clean), math.Sqrt(float64(max(n, 1))), models.Normal, unit)
	if n >= 2 {
		c.DoF = models.DoF(n - 1)
	}
	return c
}

// Reference is a certificate expanded uncertainty divided by its coverage
// factor.
func Reference(name string, expanded, k float64, unit models.Unit) models.Component {
	return Custom(name, expanded, k, models.Normal, unit)
}

// ReferenceFromMPE is mpe/(3√3), used for reference weights known only by
// their class MPE.
func ReferenceFromMPE(name string, mpe float64, unit models.Unit) models.Component {
	return Custom(name, mpe, 3*sqrt3, models.Rectangular, unit)
}

// Drift is drift/√3.
func Drift(name string, drift float64, unit models.Unit) models.Component {
	return Rectangular(name, drift, unit)
}

// Hysteresis is |(uucAvg-uucLowest)-(refAvg-refLowest)|/√3.
func Hysteresis(name string, uucAvg, uucLowest, refAvg, refLowest float64, unit models.Unit) models.Component {
	d := (stats.Finite(uucAvg) - stats.Finite(uucLowest)) - (stats.Finite(refAvg) - stats.Finite(refLowest))
	return Rectangular(name, d, unit)
}

// Eccentricity scales the largest off-centre deviation found at eccLoad to
// load: maxDeviation×load/(2×eccLoad×√3).
func Eccentricity(name string, maxDeviation, load, eccLoad float64, unit models.Unit) models.Component {
	eccLoad = stats.Finite(eccLoad)
	if eccLoad <= 0 {
		return Custom(name, 0, twoSqrt3, models.Rectangular, unit)
	}
	src := stats.Finite(maxDeviation) * stats.Finite(load) / eccLoad
	return Custom(name, src, twoSqrt3, models.Rectangular, unit)
}

// Placeholder is a zero term for a contribution whose formula is not
// implemented yet. It is flagged as a gap in reports.
func Placeholder(name string, unit models.Unit) models.Component {
	c := Custom(name, 0, 1, models.Rectangular, unit)
	c.Gap = true
	return c
}

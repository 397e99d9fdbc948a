// Package budget resolves tolerances and assembles uncertainty budgets into
// report rows.
package budget

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrUnknownClass = errors.New("unknown accuracy class")
	ErrNoMPE        = errors.New("no mpe for nominal value")
)

// Point is what a tolerance strategy may look at.
type Point struct {
	TestLoad   float64
	Applied    float64
	Indication float64
	// Deviation is the error or correction checked against the tolerance.
	Deviation float64
	Expanded  float64
}

// Tolerance resolves the acceptance limit for one test point, in the same
// unit as Point.Deviation.
type Tolerance interface {
	Name() string
	Resolve(p Point) (float64, error)
}

type Fixed struct {
	Value float64
}

func (Fixed) Name() string { return "fixed" }

func (f Fixed) Resolve(Point) (float64, error) { return math.Abs(f.Value), nil }

// OIMLR76 is the maximum permissible error of a non-automatic weighing
// instrument. E is the verification scale interval in the unit of the test
// load. InService doubles the initial-verification MPE.
type OIMLR76 struct {
	Class     string
	E         float64
	InService bool
}

// upper band limits in multiples of e for 0.5e and 1e; beyond is 1.5e
var r76Bands = map[string][2]float64{
	"I":    {50000, 200000},
	"II":   {5000, 20000},
	"III":  {500, 2000},
	"IIII": {50, 200},
}

func (OIMLR76) Name() string { return "oiml-r76" }

func (o OIMLR76) Resolve(p Point) (float64, error) {
	bands, ok := r76Bands[strings.ToUpper(strings.TrimSpace(o.Class))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, o.Class)
	}
	if o.E <= 0 {
		return 0, fmt.Errorf("verification interval e must be > 0")
	}
	m := math.Abs(p.TestLoad) / o.E
	mpe := 1.5 * o.E
	switch {
	case m <= bands[0]:
		mpe = 0.5 * o.E
	case m <= bands[1]:
		mpe = 1.0 * o.E
	}
	if o.InService {
		mpe *= 2
	}
	return mpe, nil
}

// OIMLR111 is the MPE of a weight, looked up by nominal value (grams) and
// class. The result is in grams.
type OIMLR111 struct {
	Class string
}

var r111Classes = []string{"E1", "E2", "F1", "F2", "M1"}

// nominal in g -> mpe in mg for E1, E2, F1, F2, M1
var r111Table = map[float64][5]float64{
	50000: {25, 75, 250, 750, 2500},
	20000: {10, 30, 100, 300, 1000},
	10000: {5, 16, 50, 160, 500},
	5000:  {2.5, 8, 25, 80, 250},
	2000:  {1.0, 3.0, 10, 30, 100},
	1000:  {0.5, 1.6, 5, 16, 50},
	500:   {0.25, 0.8, 2.5, 8, 25},
	200:   {0.10, 0.3, 1.0, 3, 10},
	100:   {0.05, 0.16, 0.5, 1.6, 5},
	50:    {0.03, 0.10, 0.3, 1.0, 3},
	20:    {0.025, 0.08, 0.25, 0.8, 2.5},
	10:    {0.020, 0.06, 0.20, 0.6, 2},
	5:     {0.016, 0.05, 0.16, 0.5, 1.6},
	2:     {0.012, 0.04, 0.12, 0.4, 1.2},
	1:     {0.010, 0.03, 0.10, 0.3, 1.0},
	0.5:   {0.008, 0.025, 0.08, 0.25, 0.8},
	0.2:   {0.006, 0.020, 0.06, 0.20, 0.6},
	0.1:   {0.005, 0.016, 0.05, 0.16, 0.5},
	0.05:  {0.004, 0.012, 0.04, 0.12, 0.4},
	0.02:  {0.003, 0.010, 0.03, 0.10, 0.3},
	0.01:  {0.003, 0.008, 0.025, 0.08, 0.25},
	0.005: {0.003, 0.006, 0.020, 0.06, 0.20},
	0.002: {0.003, 0.006, 0.020, 0.06, 0.20},
	0.001: {0.003, 0.006, 0.020, 0.06, 0.20},
}

func (OIMLR111) Name() string { return "oiml-r111" }

func (o OIMLR111) Resolve(p Point) (float64, error) {
	col := -1
	for i, c := range r111Classes {
		if strings.EqualFold(c, strings.TrimSpace(o.Class)) {
			col = i
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownClass, o.Class)
	}
	mpe, ok := R111MPE(p.TestLoad)
	if !ok {
		return 0, fmt.Errorf("%w: %g g", ErrNoMPE, p.TestLoad)
	}
	return mpe[col] / 1000, nil
}

// R111MPE returns the table row for a nominal value in grams.
func R111MPE(nominal float64) ([5]float64, bool) {
	for n, row := range r111Table {
		if math.Abs(n-nominal) <= 1e-9*math.Max(1, n) {
			return row, true
		}
	}
	return [5]float64{}, false
}

// R111Nominals lists the tabulated nominal values in grams, ascending.
func R111Nominals() []float64 {
	out := make([]float64, 0, len(r111Table))
	for n := range r111Table {
		out = append(out, n)
	}
	sort.Float64s(out)
	return out
}

// CMC accepts a deviation up to max(U, testLoad×RelativeFactor).
type CMC struct {
	RelativeFactor float64
}

func (CMC) Name() string { return "cmc" }

func (c CMC) Resolve(p Point) (float64, error) {
	return math.Max(p.Expanded, math.Abs(p.TestLoad)*c.RelativeFactor), nil
}

package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
	"github.com/CK6170/calunc-go/uncertainty"
)

// TestPoint is the measured side of a report row.
type TestPoint struct {
	Label      string
	Channel    string
	TestLoad   float64
	Applied    float64
	Indication float64
}

// BuildRow computes the budget for one test point and checks
// |indication-applied| against the tolerance.
func BuildRow(tp TestPoint, components []models.Component, tol Tolerance, opts uncertainty.Options, withDoF bool) (models.Row, error) {
	var b models.Budget
	if withDoF {
		b = uncertainty.BudgetWithDoF(components, opts)
	} else {
		b = uncertainty.Budget(components, opts)
	}
	applied := stats.Finite(tp.Applied)
	indication := stats.Finite(tp.Indication)
	errv := indication - applied
	row := models.Row{
		Label:      tp.Label,
		Channel:    tp.Channel,
		TestLoad:   stats.Finite(tp.TestLoad),
		Applied:    applied,
		Indication: indication,
		Error:      errv,
		Budget:     b,
	}
	if tol == nil {
		return row, fmt.Errorf("no tolerance strategy")
	}
	limit, err := tol.Resolve(Point{
		TestLoad:   row.TestLoad,
		Applied:    applied,
		Indication: indication,
		Deviation:  errv,
		Expanded:   b.Expanded,
	})
	if err != nil {
		return row, err
	}
	row.Check = models.ToleranceCheck{
		Value:     math.Abs(errv),
		Tolerance: limit,
		Pass:      math.Abs(errv) <= limit,
	}
	row.Verdict = row.Check.Verdict()
	return row, nil
}

// Builder collects rows and warnings for one calculation pass.
type Builder struct {
	Kind      string
	Unit      models.Unit
	Tolerance Tolerance
	Options   uncertainty.Options
	WithDoF   bool

	rows     []models.Row
	warnings []string
	seen     map[string]bool
}

func NewBuilder(kind string, unit models.Unit, tol Tolerance, opts uncertainty.Options) *Builder {
	return &Builder{Kind: kind, Unit: unit, Tolerance: tol, Options: opts, seen: make(map[string]bool)}
}

// Add builds and appends a row. Placeholder components are reported once.
func (b *Builder) Add(tp TestPoint, components []models.Component) error {
	return b.AddWith(tp, components, b.Tolerance)
}

// AddWith is Add with a tolerance other than the builder's own.
func (b *Builder) AddWith(tp TestPoint, components []models.Component, tol Tolerance) error {
	row, err := BuildRow(tp, components, tol, b.Options, b.WithDoF)
	if err != nil {
		return fmt.Errorf("%s: %w", pointName(tp, len(b.rows)), err)
	}
	for _, c := range components {
		if c.Gap {
			b.Warn("%s is not modelled and held at 0", c.Name)
		}
	}
	b.rows = append(b.rows, row)
	return nil
}

// Warn records a warning once.
func (b *Builder) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if b.seen[msg] {
		return
	}
	b.seen[msg] = true
	b.warnings = append(b.warnings, msg)
}

func (b *Builder) Warnings() []string { return b.warnings }

func (b *Builder) Report() *models.Report {
	return &models.Report{
		Kind:      b.Kind,
		Unit:      b.Unit,
		Rows:      b.rows,
		Warnings:  b.warnings,
		CreatedAt: time.Now().UTC(),
	}
}

func pointName(tp TestPoint, idx int) string {
	if tp.Label != "" {
		return tp.Label
	}
	return fmt.Sprintf("point %d", idx+1)
}

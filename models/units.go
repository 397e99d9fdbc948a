package models

import (
	"errors"
	"fmt"
)

type Unit string

const (
	Milligram Unit = "mg"
	Gram      Unit = "g"
	Kilogram  Unit = "kg"
	Celsius   Unit = "°C"
	RelHum    Unit = "%RH"
)

var ErrUnitMismatch = errors.New("unit mismatch")

// grams per unit, mass units only
var massScale = map[Unit]float64{
	Milligram: 0.001,
	Gram:      1,
	Kilogram:  1000,
}

func (u Unit) IsMass() bool {
	_, ok := massScale[u]
	return ok
}

// Quantity is a value tagged with its unit. Every mg/g/kg conversion in the
// calculators goes through Convert.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func Q(v float64, u Unit) Quantity { return Quantity{Value: v, Unit: u} }

func Milligrams(v float64) Quantity { return Quantity{Value: v, Unit: Milligram} }
func Grams(v float64) Quantity      { return Quantity{Value: v, Unit: Gram} }

func (q Quantity) Convert(to Unit) (Quantity, error) {
	if q.Unit == to {
		return q, nil
	}
	from, ok1 := massScale[q.Unit]
	dst, ok2 := massScale[to]
	if !ok1 || !ok2 {
		return Quantity{}, fmt.Errorf("%w: cannot convert %s to %s", ErrUnitMismatch, q.Unit, to)
	}
	return Quantity{Value: q.Value * from / dst, Unit: to}, nil
}

// MustConvert is for conversions between known mass units.
func (q Quantity) MustConvert(to Unit) float64 {
	c, err := q.Convert(to)
	if err != nil {
		panic(err)
	}
	return c.Value
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

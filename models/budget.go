package models

import (
	"encoding/json"
	"math"
	"time"
)

type Distribution string

const (
	Normal      Distribution = "normal"
	Rectangular Distribution = "rectangular"
	Triangular  Distribution = "triangular"
	UShaped     Distribution = "u-shaped"
)

// InfiniteDoF is the degrees-of-freedom value used for "infinite" in stored
// reports. Anything at or above it is treated as infinite.
const InfiniteDoF = 1e26

// DoF is a degrees-of-freedom value. +Inf is written as InfiniteDoF in JSON.
type DoF float64

func Infinite() DoF { return DoF(math.Inf(1)) }

func (d DoF) IsInfinite() bool {
	return math.IsInf(float64(d), 1) || float64(d) >= InfiniteDoF
}

func (d DoF) MarshalJSON() ([]byte, error) {
	if d.IsInfinite() {
		return json.Marshal(InfiniteDoF)
	}
	if math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// Component is one standard-uncertainty contribution: Value = Source/Divisor.
type Component struct {
	Name         string       `json:"name"`
	Source       float64      `json:"source"`
	Divisor      float64      `json:"divisor"`
	Value        float64      `json:"value"`
	Unit         Unit         `json:"unit"`
	Distribution Distribution `json:"distribution"`
	Sensitivity  float64      `json:"sensitivity"`
	DoF          DoF          `json:"dof"`
	// Gap marks a placeholder term that is held at zero.
	Gap bool `json:"gap,omitempty"`
}

// Contribution is |c·u| in measurand units.
func (c Component) Contribution() float64 {
	s := c.Sensitivity
	if s == 0 {
		s = 1
	}
	return math.Abs(s * c.Value)
}

type Budget struct {
	Components     []Component `json:"components"`
	Combined       float64     `json:"combined"`
	CoverageFactor float64     `json:"coverageFactor"`
	Expanded       float64     `json:"expanded"`
	EffectiveDoF   DoF         `json:"effectiveDoF,omitempty"`
}

// Lookup returns the component with the given name.
func (b Budget) Lookup(name string) (Component, bool) {
	for _, c := range b.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

type ToleranceCheck struct {
	Value     float64 `json:"value"`
	Tolerance float64 `json:"tolerance"`
	Pass      bool    `json:"pass"`
}

func (t ToleranceCheck) Verdict() Verdict {
	if t.Pass {
		return Pass
	}
	return Fail
}

// Row is one test point of a report.
type Row struct {
	Label      string         `json:"label,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	TestLoad   float64        `json:"testLoad"`
	Applied    float64        `json:"applied"`
	Indication float64        `json:"indication"`
	Error      float64        `json:"error"`
	Budget     Budget         `json:"budget"`
	Check      ToleranceCheck `json:"check"`
	Verdict    Verdict        `json:"verdict"`
}

type Report struct {
	Kind      string    `json:"kind"`
	Unit      Unit      `json:"unit"`
	Rows      []Row     `json:"rows"`
	Warnings  []string  `json:"warnings,omitempty"`
	Extra     any       `json:"extra,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Passed reports whether every row passed.
func (r *Report) Passed() bool {
	for _, row := range r.Rows {
		if row.Verdict != Pass {
			return false
		}
	}
	return len(r.Rows) > 0
}

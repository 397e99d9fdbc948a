package modern

import (
	"fmt"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
	"github.com/CK6170/calunc-go/uncertainty"
)

// ThermometerInput is the thermometer wizard, all values in °C.
type ThermometerInput struct {
	// Us is the standard uncertainty of the reference thermometer.
	Us models.Number `json:"us"`
	// UsDoF defaults to infinite.
	UsDoF     *models.Number     `json:"usDof,omitempty"`
	Rg        models.Number      `json:"rg"`
	Rd        models.Number      `json:"rd"`
	Tolerance *budget.Spec       `json:"tolerance,omitempty"`
	Points    []ThermometerPoint `json:"points"`
}

type ThermometerPoint struct {
	Setpoint  models.Number   `json:"setpoint"`
	Reference []models.Number `json:"reference,omitempty"`
	Readings  []models.Number `json:"readings"`
}

// ThermometerRow carries the values the thermometer certificate prints next
// to each budget.
type ThermometerRow struct {
	Setpoint   float64    `json:"setpoint"`
	Correction float64    `json:"correction"`
	Veff       models.DoF `json:"veff"`
}

func ComputeThermometer(in ThermometerInput, opts Options) (*models.Report, error) {
	if len(in.Points) == 0 {
		return nil, fmt.Errorf("thermometer: no points")
	}
	tol, err := opts.tolerance(in.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("thermometer: %w", err)
	}
	f := newFields(KindThermometer, opts)
	b := budget.NewBuilder(string(KindThermometer), models.Celsius, tol, opts.Uncertainty)
	b.WithDoF = true

	us := f.num("us", in.Us)
	rg := f.num("rg", in.Rg)
	rd := f.num("rd", in.Rd)
	usDoF := models.Infinite()
	if v := f.opt(in.UsDoF, 0); v > 0 {
		usDoF = models.DoF(v)
	}

	extra := make([]ThermometerRow, 0, len(in.Points))
	for i, p := range in.Points {
		name := fmt.Sprintf("points[%d]", i)
		setpoint := f.num(name+".setpoint", p.Setpoint)
		readings := f.nums(name+".readings", p.Readings)
		applied := setpoint
		if len(p.Reference) > 0 {
			applied = stats.Mean(f.nums(name+".reference", p.Reference))
		}

		cus := uncertainty.Custom("us", us, 1, models.Normal, models.Celsius)
		cus.DoF = usDoF
		comps := []models.Component{
			cus,
			uncertainty.Repeatability("ur", readings, models.Celsius),
			uncertainty.ThermometerResolution("ud", rg, rd, models.Celsius),
		}
		indication := stats.Mean(readings)
		tp := budget.TestPoint{
			Label:      fmt.Sprintf("%g °C", setpoint),
			TestLoad:   setpoint,
			Applied:    applied,
			Indication: indication,
		}
		if err := b.Add(tp, comps); err != nil {
			return nil, fmt.Errorf("thermometer: %w", err)
		}
		extra = append(extra, ThermometerRow{
			Setpoint:   setpoint,
			Correction: applied - indication,
			Veff:       uncertainty.EffectiveDoF(comps),
		})
	}
	f.flush(b)
	report := b.Report()
	report.Extra = extra
	return report, nil
}

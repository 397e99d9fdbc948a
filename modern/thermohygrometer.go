package modern

import (
	"fmt"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
	"github.com/CK6170/calunc-go/uncertainty"
)

const (
	ChannelTemperature = "temperature"
	ChannelHumidity    = "humidity"
)

type ThermohygrometerInput struct {
	Temperature *HygroChannel `json:"temperature,omitempty"`
	Humidity    *HygroChannel `json:"humidity,omitempty"`
}

// HygroChannel is one measurand of a thermohygrometer (°C or %RH).
type HygroChannel struct {
	ReferenceU     models.Number `json:"referenceU"`
	ReferenceK     models.Number `json:"referenceK"`
	ReferenceDrift models.Number `json:"referenceDrift"`
	Resolution     models.Number `json:"resolution"`
	Tolerance      *budget.Spec  `json:"tolerance,omitempty"`
	Points         []HygroPoint  `json:"points"`
}

type HygroPoint struct {
	Setpoint  models.Number   `json:"setpoint"`
	Reference []models.Number `json:"reference"`
	Readings  []models.Number `json:"readings"`
}

func ComputeThermohygrometer(in ThermohygrometerInput, opts Options) (*models.Report, error) {
	if in.Temperature == nil && in.Humidity == nil {
		return nil, fmt.Errorf("thermohygrometer: no channels")
	}
	f := newFields(KindThermohygrometer, opts)
	b := budget.NewBuilder(string(KindThermohygrometer), "", nil, opts.Uncertainty)

	channels := []struct {
		name string
		unit models.Unit
		ch   *HygroChannel
	}{
		{ChannelTemperature, models.Celsius, in.Temperature},
		{ChannelHumidity, models.RelHum, in.Humidity},
	}
	for _, c := range channels {
		if c.ch == nil {
			continue
		}
		if err := addHygroChannel(b, f, c.name, c.unit, c.ch, opts); err != nil {
			return nil, fmt.Errorf("thermohygrometer: %w", err)
		}
	}
	f.flush(b)
	return b.Report(), nil
}

func addHygroChannel(b *budget.Builder, f *fields, channel string, unit models.Unit, ch *HygroChannel, opts Options) error {
	tol, err := opts.tolerance(ch.Tolerance)
	if err != nil {
		return fmt.Errorf("%s: %w", channel, err)
	}
	refU := f.num(channel+".referenceU", ch.ReferenceU)
	refK := f.opt(&ch.ReferenceK, 2)
	drift := f.num(channel+".referenceDrift", ch.ReferenceDrift)
	res := f.num(channel+".resolution", ch.Resolution)

	for i, p := range ch.Points {
		name := fmt.Sprintf("%s.points[%d]", channel, i)
		setpoint := f.num(name+".setpoint", p.Setpoint)
		ref := f.nums(name+".reference", p.Reference)
		uuc := f.nums(name+".readings", p.Readings)
		refAvg, uucAvg := stats.Mean(ref), stats.Mean(uuc)

		comps := []models.Component{
			uncertainty.Reference("u_ref", refU, refK, unit),
			uncertainty.Drift("u_drift", drift, unit),
			uncertainty.Resolution("u_res", res, 1, unit),
			uncertainty.Repeatability("u_rep", uuc, unit),
			uncertainty.Hysteresis("u_hys", uucAvg, stats.Min(uuc), refAvg, stats.Min(ref), unit),
		}
		tp := budget.TestPoint{
			Label:      fmt.Sprintf("%g %s", setpoint, unit),
			Channel:    channel,
			TestLoad:   setpoint,
			Applied:    refAvg,
			Indication: uucAvg,
		}
		if len(ref) == 0 {
			tp.Applied = setpoint
		}
		if err := b.AddWith(tp, comps, tol); err != nil {
			return fmt.Errorf("%s: %w", channel, err)
		}
	}
	return nil
}

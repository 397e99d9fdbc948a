package modern

import (
	"fmt"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
	"github.com/CK6170/calunc-go/uncertainty"
)

// ScaleInput is the weighing-scale wizard. Loads and indications are in g,
// readability and reference MPE in mg.
type ScaleInput struct {
	Readability   models.Number `json:"readability"`
	ReferenceMPE  models.Number `json:"referenceMpe"`
	Tolerance     *budget.Spec  `json:"tolerance,omitempty"`
	Linearity     []ScalePoint  `json:"linearity"`
	Eccentricity  *ScaleSeries  `json:"eccentricity,omitempty"`
	Repeatability *ScaleSeries  `json:"repeatability,omitempty"`
}

type ScalePoint struct {
	Load     models.Number   `json:"load"`
	Readings []models.Number `json:"readings"`
	// ReferenceMPE overrides the input-wide reference MPE (mg).
	ReferenceMPE *models.Number `json:"referenceMpe,omitempty"`
}

// ScaleSeries is a set of indications at one load. For eccentricity the
// first reading is the centre position.
type ScaleSeries struct {
	Load     models.Number   `json:"load"`
	Readings []models.Number `json:"readings"`
}

type ScaleSummary struct {
	RepeatabilityStdDev float64 `json:"repeatabilityStdDev"`
	RepeatabilityTrials int     `json:"repeatabilityTrials"`
	EccentricityLoad    float64 `json:"eccentricityLoad"`
	EccentricityMaxDev  float64 `json:"eccentricityMaxDeviation"`
}

func ComputeScale(in ScaleInput, opts Options) (*models.Report, error) {
	if len(in.Linearity) == 0 {
		return nil, fmt.Errorf("scale: no linearity points")
	}
	tol, err := opts.tolerance(in.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	f := newFields(KindScale, opts)
	b := budget.NewBuilder(string(KindScale), models.Gram, tol, opts.Uncertainty)

	d := models.Milligrams(f.num("readability", in.Readability)).MustConvert(models.Gram)
	mpe := models.Milligrams(f.num("referenceMpe", in.ReferenceMPE)).MustConvert(models.Gram)

	var summary ScaleSummary
	var repReadings []float64
	if in.Repeatability != nil {
		repReadings = f.nums("repeatability.readings", in.Repeatability.Readings)
		summary.RepeatabilityStdDev = stats.SampleStdDev(repReadings)
		summary.RepeatabilityTrials = len(repReadings)
	}
	eccLoad, eccDev := 0.0, 0.0
	if in.Eccentricity != nil && len(in.Eccentricity.Readings) > 0 {
		ecc := f.nums("eccentricity.readings", in.Eccentricity.Readings)
		eccLoad = f.num("eccentricity.load", in.Eccentricity.Load)
		eccDev = stats.MaxAbsDeviation(ecc[1:], ecc[0])
		summary.EccentricityLoad = eccLoad
		summary.EccentricityMaxDev = eccDev
	}

	for i, p := range in.Linearity {
		name := fmt.Sprintf("linearity[%d]", i)
		load := f.num(name+".load", p.Load)
		readings := f.nums(name+".readings", p.Readings)
		pointMPE := mpe
		if p.ReferenceMPE != nil {
			pointMPE = models.Milligrams(f.num(name+".referenceMpe", *p.ReferenceMPE)).MustConvert(models.Gram)
		}
		rep := readings
		if len(rep) < 2 {
			rep = repReadings
		}
		comps := []models.Component{
			uncertainty.Resolution("u_round0", d, 1, models.Gram),
			uncertainty.Resolution("u_round1", d, 1, models.Gram),
			uncertainty.ReferenceFromMPE("u_ref", pointMPE, models.Gram),
			uncertainty.Repeatability("u_rep", rep, models.Gram),
			uncertainty.Eccentricity("u_ecc", eccDev, load, eccLoad, models.Gram),
			uncertainty.Placeholder("u_hys", models.Gram),
		}
		if len(readings) == 0 {
			b.Warn("%s has no readings", name)
		}
		tp := budget.TestPoint{
			Label:      fmt.Sprintf("%g g", load),
			TestLoad:   load,
			Applied:    load,
			Indication: stats.Mean(readings),
		}
		if err := b.Add(tp, comps); err != nil {
			return nil, fmt.Errorf("scale: %w", err)
		}
	}
	f.flush(b)
	report := b.Report()
	report.Extra = summary
	return report, nil
}

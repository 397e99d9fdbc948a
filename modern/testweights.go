package modern

import (
	"fmt"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/stats"
	"github.com/CK6170/calunc-go/uncertainty"
)

// AirDensityRef is ρ0 of the conventional mass definition, kg/m³.
const AirDensityRef = 1.2

// TestWeightsInput is one weight compared against a reference by ABBA
// cycles. Masses are in g, balance indications and uncertainties in mg,
// densities in kg/m³.
type TestWeightsInput struct {
	Nominal          models.Number  `json:"nominal"`
	Class            string         `json:"class,omitempty"`
	ReferenceMass    models.Number  `json:"referenceMass"`
	ReferenceU       models.Number  `json:"referenceU"`
	ReferenceK       models.Number  `json:"referenceK"`
	ReferenceDrift   models.Number  `json:"referenceDrift"`
	AirDensity       *models.Number `json:"airDensity,omitempty"`
	TestDensity      *models.Number `json:"testDensity,omitempty"`
	ReferenceDensity *models.Number `json:"referenceDensity,omitempty"`
	Tolerance        *budget.Spec   `json:"tolerance,omitempty"`
	Cycles           []ABBACycle    `json:"cycles"`
}

// ABBACycle holds the four indications A1 B1 B2 A2 (A reference, B test).
type ABBACycle struct {
	A1 models.Number `json:"a1"`
	B1 models.Number `json:"b1"`
	B2 models.Number `json:"b2"`
	A2 models.Number `json:"a2"`
}

// Dmci is the test-minus-reference difference of one ABBA cycle.
func Dmci(a1, b1, b2, a2 float64) float64 {
	return ((b1 + b2) - (a1 + a2)) / 2
}

// BuoyancyCorrection in g for a reference of conventional mass mcr (g).
func BuoyancyCorrection(mcr, airDensity, testDensity, refDensity float64) float64 {
	if testDensity <= 0 || refDensity <= 0 {
		return 0
	}
	return mcr * (airDensity - AirDensityRef) * (1/testDensity - 1/refDensity)
}

type TestWeightsSummary struct {
	Dmci               []float64 `json:"dmci"`
	MeanDmci           float64   `json:"meanDmci"`
	BuoyancyCorrection float64   `json:"buoyancyCorrection"`
	ConventionalMass   float64   `json:"conventionalMass"`
}

func ComputeTestWeights(in TestWeightsInput, opts Options) (*models.Report, error) {
	if len(in.Cycles) == 0 {
		return nil, fmt.Errorf("test-weights: no ABBA cycles")
	}
	spec := in.Tolerance
	if (spec == nil || spec.Strategy == "") && in.Class != "" {
		spec = &budget.Spec{Strategy: "oiml-r111", Params: map[string]any{"class": in.Class}}
	}
	tol, err := opts.tolerance(spec)
	if err != nil {
		return nil, fmt.Errorf("test-weights: %w", err)
	}
	f := newFields(KindTestWeights, opts)
	b := budget.NewBuilder(string(KindTestWeights), models.Gram, tol, opts.Uncertainty)

	nominal := f.num("nominal", in.Nominal)
	mcr := f.num("referenceMass", in.ReferenceMass)
	refU := models.Milligrams(f.num("referenceU", in.ReferenceU)).MustConvert(models.Gram)
	refK := f.opt(&in.ReferenceK, 2)
	drift := models.Milligrams(f.num("referenceDrift", in.ReferenceDrift)).MustConvert(models.Gram)
	rhoA := f.opt(in.AirDensity, AirDensityRef)
	rhoT := f.opt(in.TestDensity, 8000)
	rhoR := f.opt(in.ReferenceDensity, 8000)

	diffs := make([]float64, len(in.Cycles))
	for i, c := range in.Cycles {
		name := fmt.Sprintf("cycles[%d]", i)
		diffs[i] = Dmci(
			f.num(name+".a1", c.A1),
			f.num(name+".b1", c.B1),
			f.num(name+".b2", c.B2),
			f.num(name+".a2", c.A2),
		)
	}
	meanDiff := models.Milligrams(stats.Mean(diffs)).MustConvert(models.Gram)
	diffsG := make([]float64, len(diffs))
	for i, d := range diffs {
		diffsG[i] = models.Milligrams(d).MustConvert(models.Gram)
	}
	bc := BuoyancyCorrection(mcr, rhoA, rhoT, rhoR)
	mct := mcr + meanDiff + bc

	comps := []models.Component{
		uncertainty.Repeatability("u_w", diffsG, models.Gram),
		uncertainty.Reference("u_mcr", refU, refK, models.Gram),
		uncertainty.Drift("u_drift", drift, models.Gram),
		uncertainty.Placeholder("u_b", models.Gram),
		uncertainty.Placeholder("u_ba", models.Gram),
	}
	tp := budget.TestPoint{
		Label:      fmt.Sprintf("%g g", nominal),
		TestLoad:   nominal,
		Applied:    nominal,
		Indication: mct,
	}
	if err := b.Add(tp, comps); err != nil {
		return nil, fmt.Errorf("test-weights: %w", err)
	}
	f.flush(b)
	report := b.Report()
	report.Extra = TestWeightsSummary{
		Dmci:               diffs,
		MeanDmci:           stats.Mean(diffs),
		BuoyancyCorrection: bc,
		ConventionalMass:   mct,
	}
	return report, nil
}

package uncertainty

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/CK6170/calunc-go/models"
)

const DefaultCoverageFactor = 2.0

type Options struct {
	CoverageFactor float64
}

func DefaultOptions() Options {
	return Options{CoverageFactor: DefaultCoverageFactor}
}

func (o Options) k() float64 {
	if o.CoverageFactor <= 0 || math.IsNaN(o.CoverageFactor) {
		return DefaultCoverageFactor
	}
	return o.CoverageFactor
}

// Combine is the root-sum-square of the sensitivity-weighted components.
// Components are assumed independent.
func Combine(components []models.Component) float64 {
	if len(components) == 0 {
		return 0
	}
	v := make([]float64, len(components))
	for i, c := range components {
		v[i] = c.Contribution()
	}
	return floats.Norm(v, 2)
}

func Expand(combined, k float64) float64 {
	return combined * k
}

// EffectiveDoF is the Welch–Satterthwaite estimate uc⁴/Σ((cᵢuᵢ)⁴/νᵢ).
// Infinite-DoF terms add nothing to the denominator; if nothing remains the
// result is +Inf.
func EffectiveDoF(components []models.Component) models.DoF {
	uc := Combine(components)
	den := 0.0
	for _, c := range components {
		if c.DoF.IsInfinite() || c.DoF <= 0 {
			continue
		}
		den += math.Pow(c.Contribution(), 4) / float64(c.DoF)
	}
	if den == 0 {
		return models.Infinite()
	}
	return models.DoF(math.Pow(uc, 4) / den)
}

// Budget combines the components and expands by the coverage factor.
func Budget(components []models.Component, opts Options) models.Budget {
	k := opts.k()
	uc := Combine(components)
	return models.Budget{
		Components:     components,
		Combined:       uc,
		CoverageFactor: k,
		Expanded:       Expand(uc, k),
	}
}

// BudgetWithDoF is Budget plus the effective degrees of freedom.
func BudgetWithDoF(components []models.Component, opts Options) models.Budget {
	b := Budget(components, opts)
	b.EffectiveDoF = EffectiveDoF(components)
	return b
}

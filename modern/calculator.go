package modern

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/uncertainty"
)

// Version is stamped into saved reports.
const Version = "0.3.0"

type Kind string

const (
	KindScale            Kind = "scale"
	KindThermometer      Kind = "thermometer"
	KindThermohygrometer Kind = "thermohygrometer"
	KindTestWeights      Kind = "test-weights"
)

var ErrUnknownKind = errors.New("unknown calculator kind")

// Options carries the policy shared by all calculators.
type Options struct {
	Uncertainty uncertainty.Options
	Registry    *budget.Registry
	// Fallback is used when an input names no tolerance strategy.
	Fallback budget.Spec
	Logger   *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Uncertainty: uncertainty.DefaultOptions(),
		Registry:    budget.DefaultRegistry(),
		Fallback:    budget.Spec{Strategy: "cmc", Params: map[string]any{"relativeFactor": 0.0}},
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) tolerance(spec *budget.Spec) (budget.Tolerance, error) {
	reg := o.Registry
	if reg == nil {
		reg = budget.DefaultRegistry()
	}
	s := o.Fallback
	if spec != nil && spec.Strategy != "" {
		s = *spec
	}
	if s.Strategy == "" {
		return budget.CMC{}, nil
	}
	return reg.BuildSpec(s)
}

type computeFunc func(raw []byte, opts Options) (*models.Report, error)

func decodeAnd[T any](fn func(T, Options) (*models.Report, error)) computeFunc {
	return func(raw []byte, opts Options) (*models.Report, error) {
		var in T
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
		return fn(in, opts)
	}
}

var calculators = map[Kind]computeFunc{
	KindScale:            decodeAnd(ComputeScale),
	KindThermometer:      decodeAnd(ComputeThermometer),
	KindThermohygrometer: decodeAnd(ComputeThermohygrometer),
	KindTestWeights:      decodeAnd(ComputeTestWeights),
}

// Kinds lists the available calculators.
func Kinds() []Kind {
	out := make([]Kind, 0, len(calculators))
	for k := range calculators {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := calculators[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Compute decodes raw as the input of the given calculator and runs it.
func Compute(kind Kind, raw []byte, opts Options) (*models.Report, error) {
	fn, ok := calculators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return fn(raw, opts)
}

// fields turns form numbers into floats, coercing missing values to 0 and
// remembering which ones were coerced.
type fields struct {
	kind    Kind
	log     *slog.Logger
	coerced []string
}

func newFields(kind Kind, opts Options) *fields {
	return &fields{kind: kind, log: opts.logger()}
}

func (f *fields) num(name string, n models.Number) float64 {
	if n.Valid() {
		return n.Float()
	}
	f.coerced = append(f.coerced, name)
	f.log.Warn("input coerced to 0", "kind", f.kind, "field", name)
	return 0
}

// opt is num for optional fields: missing, empty or zero values fall back
// to def silently.
func (f *fields) opt(n *models.Number, def float64) float64 {
	if n == nil || !n.Valid() || *n == 0 {
		return def
	}
	return n.Float()
}

func (f *fields) nums(name string, ns []models.Number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = f.num(fmt.Sprintf("%s[%d]", name, i), n)
	}
	return out
}

func (f *fields) flush(b *budget.Builder) {
	for _, name := range f.coerced {
		b.Warn("%s is empty or not a number, using 0", name)
	}
}

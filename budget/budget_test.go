package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/uncertainty"
)

func TestOIMLR76Bands(t *testing.T) {
	tol := OIMLR76{Class: "III", E: 1}
	cases := []struct {
		load float64
		want float64
	}{
		{0, 0.5}, {500, 0.5}, {501, 1}, {2000, 1}, {2001, 1.5}, {6000, 1.5},
	}
	for _, c := range cases {
		got, err := tol.Resolve(Point{TestLoad: c.load})
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "load %g", c.load)
	}

	inService := OIMLR76{Class: "ii", E: 0.1, InService: true}
	got, err := inService.Resolve(Point{TestLoad: 100})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got, 1e-12)
}

func TestOIMLR76Errors(t *testing.T) {
	_, err := OIMLR76{Class: "V", E: 1}.Resolve(Point{})
	assert.ErrorIs(t, err, ErrUnknownClass)
	_, err = OIMLR76{Class: "I", E: 0}.Resolve(Point{})
	assert.Error(t, err)
}

func TestOIMLR111(t *testing.T) {
	got, err := OIMLR111{Class: "F1"}.Resolve(Point{TestLoad: 1000})
	require.NoError(t, err)
	assert.InDelta(t, 0.005, got, 1e-12)

	got, err = OIMLR111{Class: "m1"}.Resolve(Point{TestLoad: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.0008, got, 1e-12)

	_, err = OIMLR111{Class: "F1"}.Resolve(Point{TestLoad: 3})
	assert.ErrorIs(t, err, ErrNoMPE)
	_, err = OIMLR111{Class: "X"}.Resolve(Point{TestLoad: 1})
	assert.ErrorIs(t, err, ErrUnknownClass)

	assert.Len(t, R111Nominals(), 24)
	assert.Equal(t, 0.001, R111Nominals()[0])
}

func TestCMC(t *testing.T) {
	c := CMC{RelativeFactor: 1e-4}
	got, _ := c.Resolve(Point{TestLoad: 1000, Expanded: 0.05})
	assert.InDelta(t, 0.1, got, 1e-12)
	got, _ = c.Resolve(Point{TestLoad: 100, Expanded: 0.05})
	assert.InDelta(t, 0.05, got, 1e-12)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"cmc", "fixed", "oiml-r111", "oiml-r76"}, r.Names())

	tol, err := r.Build("oiml-r76", map[string]any{"class": "III", "e": 0.1})
	require.NoError(t, err)
	assert.Equal(t, "oiml-r76", tol.Name())

	_, err = r.Build("oiml-r76", map[string]any{"class": "III"})
	assert.Error(t, err)

	_, err = r.Build("nope", nil)
	assert.Error(t, err)

	tol, err = r.BuildSpec(Spec{Strategy: "fixed", Params: map[string]any{"value": int64(2)}})
	require.NoError(t, err)
	v, _ := tol.Resolve(Point{})
	assert.Equal(t, 2.0, v)

	_, err = r.Build("cmc", map[string]any{"relativeFactor": "big"})
	assert.Error(t, err)
}

func TestBuildRow(t *testing.T) {
	comps := []models.Component{
		uncertainty.Custom("a", 0.03, 1, models.Normal, models.Gram),
		uncertainty.Custom("b", 0.04, 1, models.Normal, models.Gram),
	}
	row, err := BuildRow(TestPoint{TestLoad: 100, Applied: 100, Indication: 100.2}, comps, Fixed{Value: 0.1}, uncertainty.DefaultOptions(), false)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, row.Error, 1e-9)
	assert.InDelta(t, 0.05, row.Budget.Combined, 1e-12)
	assert.InDelta(t, 0.1, row.Budget.Expanded, 1e-12)
	assert.Equal(t, models.Fail, row.Verdict)

	row, err = BuildRow(TestPoint{TestLoad: 100, Applied: 100, Indication: 99.95}, comps, Fixed{Value: 0.1}, uncertainty.DefaultOptions(), false)
	require.NoError(t, err)
	assert.Equal(t, models.Pass, row.Verdict)
	assert.InDelta(t, 0.05, row.Check.Value, 1e-9)
}

func TestBuildRowNoTolerance(t *testing.T) {
	_, err := BuildRow(TestPoint{}, nil, nil, uncertainty.DefaultOptions(), false)
	assert.Error(t, err)
}

func TestBuilderWarnsOnGapsOnce(t *testing.T) {
	b := NewBuilder("scale", models.Gram, Fixed{Value: 1}, uncertainty.DefaultOptions())
	comps := []models.Component{uncertainty.Placeholder("u_hys", models.Gram)}
	require.NoError(t, b.Add(TestPoint{TestLoad: 1, Applied: 1, Indication: 1}, comps))
	require.NoError(t, b.Add(TestPoint{TestLoad: 2, Applied: 2, Indication: 2}, comps))

	rep := b.Report()
	assert.Len(t, rep.Rows, 2)
	assert.Equal(t, []string{"u_hys is not modelled and held at 0"}, rep.Warnings)
	assert.True(t, rep.Passed())
}

func TestBuilderPropagatesToleranceError(t *testing.T) {
	b := NewBuilder("test-weights", models.Gram, OIMLR111{Class: "F1"}, uncertainty.DefaultOptions())
	err := b.Add(TestPoint{Label: "3 g", TestLoad: 3}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 g")
	assert.ErrorIs(t, err, ErrNoMPE)
}

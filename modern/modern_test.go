package modern

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CK6170/calunc-go/models"
)

func compute(t *testing.T, kind Kind, raw string) *models.Report {
	t.Helper()
	rep, err := Compute(kind, []byte(raw), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, rep)
	return rep
}

func component(t *testing.T, row models.Row, name string) models.Component {
	t.Helper()
	c, ok := row.Budget.Lookup(name)
	require.True(t, ok, "component %s", name)
	return c
}

func TestScaleReadabilityScenario(t *testing.T) {
	rep := compute(t, KindScale, `{
		"readability": 100,
		"referenceMpe": 60,
		"tolerance": {"strategy": "fixed", "params": {"value": 0.1}},
		"linearity": [{"load": 100, "readings": [100.0]}]
	}`)
	require.Len(t, rep.Rows, 1)
	row := rep.Rows[0]

	assert.InDelta(t, 0.02887, component(t, row, "u_round0").Value, 1e-5)
	assert.InDelta(t, 0.02887, component(t, row, "u_round1").Value, 1e-5)
	assert.InDelta(t, 0.01155, component(t, row, "u_ref").Value, 1e-5)
	assert.True(t, component(t, row, "u_hys").Gap)

	assert.InDelta(t, 0.0425, row.Budget.Combined, 1e-4)
	assert.InDelta(t, 0.0850, row.Budget.Expanded, 2e-4)
	assert.Equal(t, models.Pass, row.Verdict)
	assert.Contains(t, rep.Warnings, "u_hys is not modelled and held at 0")
	assert.Equal(t, models.Gram, rep.Unit)
}

func TestScaleRepeatabilityAndEccentricity(t *testing.T) {
	rep := compute(t, KindScale, `{
		"readability": 1,
		"referenceMpe": 0.5,
		"tolerance": {"strategy": "oiml-r76", "params": {"class": "II", "e": 0.01}},
		"repeatability": {"load": 100, "readings": [100.001, 100.002, 100.000, 100.001]},
		"eccentricity": {"load": 50, "readings": [50.000, 50.002, 49.999, 50.001, 50.000]},
		"linearity": [
			{"load": 50, "readings": [50.001]},
			{"load": 100, "readings": [100.003, 100.002]}
		]
	}`)
	require.Len(t, rep.Rows, 2)

	summary, ok := rep.Extra.(ScaleSummary)
	require.True(t, ok)
	assert.Equal(t, 4, summary.RepeatabilityTrials)
	assert.InDelta(t, 0.002, summary.EccentricityMaxDev, 1e-9)

	// single reading falls back to the repeatability series
	urep := component(t, rep.Rows[0], "u_rep")
	assert.Equal(t, models.DoF(3), urep.DoF)
	// two readings use their own spread
	assert.Equal(t, models.DoF(1), component(t, rep.Rows[1], "u_rep").DoF)

	ecc50 := component(t, rep.Rows[0], "u_ecc").Value
	ecc100 := component(t, rep.Rows[1], "u_ecc").Value
	assert.InDelta(t, 2*ecc50, ecc100, 1e-12)

	// class II, e=0.01 g, 100 g = 10000e -> 1e
	assert.InDelta(t, 0.01, rep.Rows[1].Check.Tolerance, 1e-12)
	assert.True(t, rep.Passed())
}

func TestScaleRequiresPoints(t *testing.T) {
	_, err := Compute(KindScale, []byte(`{"readability": 1}`), DefaultOptions())
	assert.Error(t, err)
}

func TestScaleCoercesEmptyFields(t *testing.T) {
	rep := compute(t, KindScale, `{
		"readability": "",
		"referenceMpe": "abc",
		"linearity": [{"load": 10, "readings": [10, ""]}]
	}`)
	assert.Contains(t, rep.Warnings, "readability is empty or not a number, using 0")
	assert.Contains(t, rep.Warnings, "referenceMpe is empty or not a number, using 0")
	assert.Contains(t, rep.Warnings, "linearity[0].readings[1] is empty or not a number, using 0")
	row := rep.Rows[0]
	assert.False(t, math.IsNaN(row.Budget.Expanded))
	assert.Equal(t, 0.0, component(t, row, "u_round0").Value)
}

func TestScalePointMPECoerced(t *testing.T) {
	rep := compute(t, KindScale, `{
		"readability": 10,
		"referenceMpe": 5,
		"linearity": [{"load": 10, "readings": [10], "referenceMpe": ""}]
	}`)
	assert.Contains(t, rep.Warnings, "linearity[0].referenceMpe is empty or not a number, using 0")
	assert.Equal(t, 0.0, component(t, rep.Rows[0], "u_ref").Value)
}

func TestThermometerScenario(t *testing.T) {
	rep := compute(t, KindThermometer, `{
		"us": 0.023, "rg": 0.5, "rd": 1,
		"tolerance": {"strategy": "fixed", "params": {"value": 0.5}},
		"points": [
			{"setpoint": 20, "readings": [20.0, 20.1, 19.9]},
			{"setpoint": 50, "reference": [50.02, 50.0], "readings": [50.1, 50.1, 50.1]}
		]
	}`)
	require.Len(t, rep.Rows, 2)
	row := rep.Rows[0]

	ur := component(t, row, "ur")
	ud := component(t, row, "ud")
	us := component(t, row, "us")
	assert.InDelta(t, 0.1/math.Sqrt(3), ur.Value, 1e-9)
	assert.InDelta(t, 0.1667, ud.Value, 1e-4)
	uc := math.Sqrt(us.Value*us.Value + ur.Value*ur.Value + ud.Value*ud.Value)
	assert.InDelta(t, uc, row.Budget.Combined, 1e-12)
	assert.InDelta(t, 2*uc, row.Budget.Expanded, 1e-12)
	assert.False(t, row.Budget.EffectiveDoF.IsInfinite())

	// constant readings: only infinite-DoF terms carry weight
	assert.True(t, rep.Rows[1].Budget.EffectiveDoF.IsInfinite())
	assert.InDelta(t, 0.09, rep.Rows[1].Error, 1e-9)

	extra, ok := rep.Extra.([]ThermometerRow)
	require.True(t, ok)
	assert.InDelta(t, -0.09, extra[1].Correction, 1e-9)
	assert.True(t, extra[1].Veff.IsInfinite())

	b, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"effectiveDoF":1e+26`)
}

func TestThermometerReferenceDoF(t *testing.T) {
	rep := compute(t, KindThermometer, `{
		"us": 0.1, "usDof": 10, "rg": 0, "rd": 0,
		"points": [{"setpoint": 0, "readings": [0, 0]}]
	}`)
	assert.InDelta(t, 10, float64(rep.Rows[0].Budget.EffectiveDoF), 1e-9)
	// cmc fallback with factor 0: |error| <= U
	assert.Equal(t, models.Pass, rep.Rows[0].Verdict)
}

func TestThermohygrometer(t *testing.T) {
	rep := compute(t, KindThermohygrometer, `{
		"temperature": {
			"referenceU": 0.1, "referenceK": 2, "referenceDrift": 0.05, "resolution": 0.1,
			"tolerance": {"strategy": "fixed", "params": {"value": 0.5}},
			"points": [{"setpoint": 20, "reference": [20.0, 20.2], "readings": [20.1, 20.3]}]
		},
		"humidity": {
			"referenceU": 1.5, "referenceDrift": 0.5, "resolution": 1,
			"tolerance": {"strategy": "fixed", "params": {"value": 3}},
			"points": [{"setpoint": 50, "reference": [50, 50, 51], "readings": [54, 55, 55]}]
		}
	}`)
	require.Len(t, rep.Rows, 2)
	temp, hum := rep.Rows[0], rep.Rows[1]
	assert.Equal(t, ChannelTemperature, temp.Channel)
	assert.Equal(t, ChannelHumidity, hum.Channel)

	assert.InDelta(t, 0.05, component(t, temp, "u_ref").Value, 1e-12)
	assert.InDelta(t, 0.05/math.Sqrt(3), component(t, temp, "u_drift").Value, 1e-12)
	assert.InDelta(t, 0.1/(2*math.Sqrt(3)), component(t, temp, "u_res").Value, 1e-12)
	assert.InDelta(t, 0, component(t, temp, "u_hys").Value, 1e-9)
	assert.Equal(t, models.Celsius, component(t, temp, "u_ref").Unit)
	assert.Equal(t, models.Pass, temp.Verdict)

	// default k=2 when omitted
	assert.InDelta(t, 0.75, component(t, hum, "u_ref").Value, 1e-12)
	// uuc: 54.667-54, ref: 50.333-50
	wantHys := math.Abs((54.0+55+55)/3-54-((50.0+50+51)/3-50)) / math.Sqrt(3)
	assert.InDelta(t, wantHys, component(t, hum, "u_hys").Value, 1e-9)
	assert.Equal(t, models.RelHum, component(t, hum, "u_rep").Unit)
	assert.Equal(t, models.Fail, hum.Verdict)
}

func TestThermohygrometerNeedsChannel(t *testing.T) {
	_, err := Compute(KindThermohygrometer, []byte(`{}`), DefaultOptions())
	assert.Error(t, err)
}

func TestTestWeights(t *testing.T) {
	rep := compute(t, KindTestWeights, `{
		"nominal": 100, "class": "F1",
		"referenceMass": 100.0001, "referenceU": 0.05, "referenceK": 2, "referenceDrift": 0.02,
		"cycles": [
			{"a1": 0, "b1": 0.12, "b2": 0.10, "a2": 0.02},
			{"a1": 0.01, "b1": 0.13, "b2": 0.11, "a2": 0.01}
		]
	}`)
	require.Len(t, rep.Rows, 1)
	row := rep.Rows[0]

	sum, ok := rep.Extra.(TestWeightsSummary)
	require.True(t, ok)
	require.Len(t, sum.Dmci, 2)
	assert.InDelta(t, 0.10, sum.Dmci[0], 1e-12)
	assert.InDelta(t, 0.11, sum.Dmci[1], 1e-12)
	assert.InDelta(t, 0.105, sum.MeanDmci, 1e-12)
	assert.Equal(t, 0.0, sum.BuoyancyCorrection)
	assert.InDelta(t, 100.000205, sum.ConventionalMass, 1e-9)

	assert.InDelta(t, 0.000025, component(t, row, "u_mcr").Value, 1e-12)
	assert.InDelta(t, 0.00002/math.Sqrt(3), component(t, row, "u_drift").Value, 1e-12)
	assert.True(t, component(t, row, "u_b").Gap)
	assert.True(t, component(t, row, "u_ba").Gap)
	assert.InDelta(t, 0.0005, row.Check.Tolerance, 1e-12)
	assert.Equal(t, models.Pass, row.Verdict)
	assert.Len(t, rep.Warnings, 2)
}

func TestBuoyancyCorrection(t *testing.T) {
	// steel test weight against a denser reference in light air
	got := BuoyancyCorrection(1000, 1.1, 7950, 8000)
	want := 1000 * (1.1 - 1.2) * (1/7950.0 - 1/8000.0)
	assert.InDelta(t, want, got, 1e-15)
	assert.Equal(t, 0.0, BuoyancyCorrection(1000, 1.1, 0, 8000))
}

func TestTestWeightsUnknownNominal(t *testing.T) {
	_, err := Compute(KindTestWeights, []byte(`{"nominal": 3, "class": "F1", "cycles": [{"a1":0,"b1":0,"b2":0,"a2":0}]}`), DefaultOptions())
	assert.Error(t, err)
}

func TestUnknownKind(t *testing.T) {
	_, err := Compute("balance", []byte(`{}`), DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = ParseKind("nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, []Kind{KindScale, KindTestWeights, KindThermohygrometer, KindThermometer}, Kinds())
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput([]byte(`{"kind": "thermometer", "input": {"us": 1}}`), "")
	require.NoError(t, err)
	assert.Equal(t, KindThermometer, in.Kind)
	assert.JSONEq(t, `{"us": 1}`, string(in.Input))

	in, err = DecodeInput([]byte(`{"us": 1}`), KindThermometer)
	require.NoError(t, err)
	assert.Equal(t, KindThermometer, in.Kind)

	_, err = DecodeInput([]byte(`{"us": 1}`), "")
	assert.Error(t, err)
}

func TestInputFileRoundTripAndReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.json")
	in := &InputFile{Kind: KindThermometer, Input: json.RawMessage(`{"us":0.023,"rg":0.5,"rd":1,"points":[{"setpoint":20,"readings":[20,20.1,19.9]}]}`)}
	require.NoError(t, PersistInput(path, in))

	loaded, err := LoadInput(path, "")
	require.NoError(t, err)
	rep, err := Compute(loaded.Kind, loaded.Input, DefaultOptions())
	require.NoError(t, err)

	out := ReportPath(path)
	assert.Equal(t, filepath.Join(dir, "probe_report.json"), out)
	require.NoError(t, SaveReport(out, loaded.Kind, loaded.Input, rep))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var saved map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &saved))
	assert.Contains(t, saved, "input_data")
	assert.Contains(t, saved, "result_data")
	_, err = os.Stat(filepath.Join(dir, "probe_report.version"))
	assert.NoError(t, err)
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "a_report.json", ReportPath("a.json"))
	assert.Equal(t, "a_report.json", ReportPath("a"))
	assert.Equal(t, "SCALE_report.json", ReportPath("SCALE.JSON"))
	assert.Equal(t, "scale_report_report.json", ReportPath("scale_report.json"))
}

type fakeSource struct {
	values []models.Quantity
	err    error
	i      int
}

func (f *fakeSource) ReadStable() (models.Quantity, error) {
	if f.i >= len(f.values) {
		return models.Quantity{}, f.err
	}
	q := f.values[f.i]
	f.i++
	return q, nil
}

func TestCollectReadings(t *testing.T) {
	src := &fakeSource{values: []models.Quantity{
		models.Grams(1), models.Grams(100.01), models.Milligrams(100020), models.Grams(99.99),
	}}
	var updates []SampleUpdate
	got, err := CollectReadings(context.Background(), src, 1, 3, models.Gram, func(u SampleUpdate) {
		updates = append(updates, u)
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 100.01, got[0], 1e-9)
	assert.InDelta(t, 100.02, got[1], 1e-9)
	assert.InDelta(t, 99.99, got[2], 1e-9)

	require.Len(t, updates, 5)
	assert.Equal(t, SamplePhaseIgnoring, updates[0].Phase)
	assert.Equal(t, SamplePhaseFinished, updates[4].Phase)
	assert.Equal(t, got, updates[4].Readings)
}

func TestCollectReadingsErrors(t *testing.T) {
	_, err := CollectReadings(context.Background(), nil, 0, 1, models.Gram, nil)
	assert.Error(t, err)

	_, err = CollectReadings(context.Background(), &fakeSource{}, 0, 0, models.Gram, nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = CollectReadings(context.Background(), &fakeSource{err: boom}, 0, 2, models.Gram, nil)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CollectReadings(ctx, &fakeSource{values: []models.Quantity{models.Grams(1)}}, 0, 1, models.Gram, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatchFile(t *testing.T) {
	old := WatchDebounce
	WatchDebounce = 20 * time.Millisecond
	defer func() { WatchDebounce = old }()

	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchFile(ctx, path, func() { changed <- struct{}{} })
	}()

	// give the watcher time to register, then touch an unrelated file and ours
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(path, []byte(`{"us": 1}`), 0644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
	cancel()
	assert.NoError(t, <-done)
}

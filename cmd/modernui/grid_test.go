package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CK6170/calunc-go/modern"
)

func TestScaleGridRecomputes(t *testing.T) {
	raw := json.RawMessage(`{
		"readability": 1, "referenceMpe": 0.5,
		"repeatability": {"load": 100, "readings": [100.001, 100.002]},
		"linearity": [{"load": 50, "readings": [50.001]}, {"load": 100}]
	}`)
	g, err := newReadingsGrid(modern.KindScale, raw)
	require.NoError(t, err)
	require.Len(t, g.rows, 3)
	assert.Equal(t, "rep 100 g", g.rows[0].label)
	assert.Equal(t, []int{2, 1, 1}, g.widths())
	assert.Equal(t, "100.002", g.get(0, 1))

	require.True(t, g.appendCell(2))
	g.set(2, 0, "100.004")
	g.set(2, 1, "")
	out, err := g.encode()
	require.NoError(t, err)

	rep, err := modern.Compute(modern.KindScale, out, modern.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Contains(t, rep.Warnings, "linearity[1].readings[1] is empty or not a number, using 0")
}

func TestTestWeightsGridFixedRows(t *testing.T) {
	raw := json.RawMessage(`{"nominal": 100, "cycles": [{"a1": 0, "b1": 0.1, "b2": 0.1, "a2": 0}]}`)
	g, err := newReadingsGrid(modern.KindTestWeights, raw)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, g.widths())
	assert.False(t, g.appendCell(0))

	g.fill(0, []float64{0.01, 0.12, 0.11, 0.02})
	out, err := g.encode()
	require.NoError(t, err)
	var doc struct {
		Cycles []map[string]float64 `json:"cycles"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, 0.12, doc.Cycles[0]["b1"])
}

func TestThermohygrometerGridChannels(t *testing.T) {
	raw := json.RawMessage(`{
		"humidity": {"points": [{"setpoint": 50, "reference": [50, 51], "readings": [52, 53]}]}
	}`)
	g, err := newReadingsGrid(modern.KindThermohygrometer, raw)
	require.NoError(t, err)
	require.Len(t, g.rows, 2)
	assert.Equal(t, "H ref 50 %RH", g.rows[0].label)
	assert.Equal(t, "H uuc 50 %RH", g.rows[1].label)
}

func TestGridWithoutReadings(t *testing.T) {
	_, err := newReadingsGrid(modern.KindThermometer, json.RawMessage(`{"us": 1}`))
	assert.Error(t, err)
	_, err = newReadingsGrid("pressure", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, modern.ErrUnknownKind)
}

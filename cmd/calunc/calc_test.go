package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CK6170/calunc-go/models"
)

const thermometerInput = `{
	"kind": "thermometer",
	"input": {"us": 0.023, "rg": 0.5, "rd": 1, "points": [{"setpoint": 20, "readings": [20.0, 20.1, 19.9]}]}
}`

// testConfig writes a config whose sqlite store lives in a temp dir.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"[store]\ndriver = \"sqlite\"\npath = \""+filepath.ToSlash(filepath.Join(dir, "records.db"))+"\"\n"), 0600))
	return cfgPath
}

// executeWith runs the root command with fresh flag values.
func executeWith(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	calcOut, calcSave, calcJSON, calcWatch, calcRecord = "", false, false, false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) (string, error) {
	return executeWith(t, testConfig(t), args...)
}

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probe.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCalcJSON(t *testing.T) {
	path := writeInput(t, thermometerInput)
	out, err := execute(t, "calc", path, "--json")
	require.NoError(t, err)

	var rep models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "thermometer", rep.Kind)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, models.Pass, rep.Rows[0].Verdict)
}

func TestCalcTextAndSave(t *testing.T) {
	path := writeInput(t, `{"us": 0.023, "rg": 0.5, "rd": 1, "points": [{"setpoint": 20, "readings": [20.0, 20.1, 19.9]}]}`)
	out, err := execute(t, "calc", "thermometer", path, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "thermometer report")
	assert.Contains(t, out, "PASS")

	_, err = os.Stat(filepath.Join(filepath.Dir(path), "probe_report.json"))
	assert.NoError(t, err)
}

func TestCalcRefusesToOverwriteInput(t *testing.T) {
	body := `{"us": 0.023, "rg": 0.5, "rd": 1, "points": [{"setpoint": 20, "readings": [20.0, 20.1, 19.9]}]}`
	path := filepath.Join(t.TempDir(), "scale_report.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := execute(t, "calc", "thermometer", path, "--out", path)
	assert.ErrorContains(t, err, "overwrite the input")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(b))

	_, err = execute(t, "calc", "thermometer", path, "--save")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(path), "scale_report_report.json"))
	assert.NoError(t, err)
}

func TestCalcErrors(t *testing.T) {
	path := writeInput(t, `{"us": 1}`)
	_, err := execute(t, "calc", path)
	assert.Error(t, err)

	_, err = execute(t, "calc", "pressure", path)
	assert.Error(t, err)

	_, err = execute(t, "calc", "thermometer", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	out, err := execute(t, "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "test-weights")
	assert.Contains(t, out, "oiml-r76")
}

func TestRecordsRoundTrip(t *testing.T) {
	path := writeInput(t, thermometerInput)

	cfgPath := testConfig(t)
	run := func(args ...string) string {
		out, err := executeWith(t, cfgPath, args...)
		require.NoError(t, err)
		return out
	}

	run("calc", path, "--record")
	list := run("records", "list")
	assert.Contains(t, list, "thermometer")

	lines := bytes.Split(bytes.TrimSpace([]byte(list)), []byte("\n"))
	require.Len(t, lines, 2)
	id := string(bytes.Fields(lines[1])[0])

	shown := run("records", "show", id)
	assert.Contains(t, shown, `"input_data"`)
	assert.Contains(t, shown, `"result_data"`)
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/CK6170/calunc-go/modern"
)

// gridRow is one editable line of readings. Array rows map to a JSON array
// under key and can grow; fixed rows map to scalar fields of obj.
type gridRow struct {
	label string
	obj   map[string]any
	key   string
	keys  []string
	cells []string
}

func (r *gridRow) growable() bool { return r.key != "" }

// readingsGrid exposes the repeated readings of an input document for
// editing and writes them back into it.
type readingsGrid struct {
	kind modern.Kind
	doc  map[string]any
	rows []gridRow
}

func newReadingsGrid(kind modern.Kind, raw json.RawMessage) (*readingsGrid, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	g := &readingsGrid{kind: kind, doc: doc}
	switch kind {
	case modern.KindScale:
		g.addSeries(doc, "repeatability", "rep")
		g.addSeries(doc, "eccentricity", "ecc")
		g.addPoints(doc["linearity"], "load", "g", "readings", "")
	case modern.KindThermometer:
		g.addPoints(doc["points"], "setpoint", "°C", "readings", "")
	case modern.KindThermohygrometer:
		for _, ch := range []struct{ name, unit, short string }{
			{modern.ChannelTemperature, "°C", "T"},
			{modern.ChannelHumidity, "%RH", "H"},
		} {
			c, ok := doc[ch.name].(map[string]any)
			if !ok {
				continue
			}
			g.addPoints(c["points"], "setpoint", ch.unit, "reference", ch.short+" ref ")
			g.addPoints(c["points"], "setpoint", ch.unit, "readings", ch.short+" uuc ")
		}
	case modern.KindTestWeights:
		cycles, _ := doc["cycles"].([]any)
		for i, c := range cycles {
			obj, ok := c.(map[string]any)
			if !ok {
				continue
			}
			row := gridRow{label: fmt.Sprintf("cycle %d", i+1), obj: obj, keys: []string{"a1", "b1", "b2", "a2"}}
			for _, k := range row.keys {
				row.cells = append(row.cells, cellText(obj[k]))
			}
			g.rows = append(g.rows, row)
		}
	default:
		return nil, fmt.Errorf("%w: %q", modern.ErrUnknownKind, kind)
	}
	if len(g.rows) == 0 {
		return nil, fmt.Errorf("%s input has no readings to edit", kind)
	}
	return g, nil
}

func (g *readingsGrid) addSeries(doc map[string]any, field, label string) {
	obj, ok := doc[field].(map[string]any)
	if !ok {
		return
	}
	g.rows = append(g.rows, arrayRow(fmt.Sprintf("%s %s g", label, cellText(obj["load"])), obj, "readings"))
}

func (g *readingsGrid) addPoints(list any, labelField, unit, key, prefix string) {
	points, _ := list.([]any)
	for _, p := range points {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if _, has := obj[key]; !has && key != "readings" {
			continue
		}
		g.rows = append(g.rows, arrayRow(fmt.Sprintf("%s%s %s", prefix, cellText(obj[labelField]), unit), obj, key))
	}
}

func arrayRow(label string, obj map[string]any, key string) gridRow {
	row := gridRow{label: label, obj: obj, key: key}
	vals, _ := obj[key].([]any)
	for _, v := range vals {
		row.cells = append(row.cells, cellText(v))
	}
	if len(row.cells) == 0 {
		row.cells = []string{""}
	}
	return row
}

func (g *readingsGrid) widths() []int {
	out := make([]int, len(g.rows))
	for i, r := range g.rows {
		out[i] = len(r.cells)
	}
	return out
}

func (g *readingsGrid) set(row, col int, s string) {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row].cells) {
		return
	}
	g.rows[row].cells[col] = s
}

func (g *readingsGrid) get(row, col int) string {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row].cells) {
		return ""
	}
	return g.rows[row].cells[col]
}

// appendCell adds an empty reading to an array row.
func (g *readingsGrid) appendCell(row int) bool {
	if row < 0 || row >= len(g.rows) || !g.rows[row].growable() {
		return false
	}
	g.rows[row].cells = append(g.rows[row].cells, "")
	return true
}

// fill replaces a row's cells with measured values.
func (g *readingsGrid) fill(row int, values []float64) {
	if row < 0 || row >= len(g.rows) {
		return
	}
	r := &g.rows[row]
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if !r.growable() {
		copy(r.cells, cells)
		return
	}
	r.cells = cells
}

// encode writes the cells back and returns the input JSON. Cells that are
// not numbers are kept as strings so the calculator reports them.
func (g *readingsGrid) encode() (json.RawMessage, error) {
	for _, r := range g.rows {
		if r.growable() {
			vals := make([]any, len(r.cells))
			for i, c := range r.cells {
				vals[i] = cellValue(c)
			}
			r.obj[r.key] = vals
			continue
		}
		for i, k := range r.keys {
			r.obj[k] = cellValue(r.cells[i])
		}
	}
	return json.Marshal(g.doc)
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		return x.String()
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

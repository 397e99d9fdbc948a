package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CK6170/calunc-go/internal/config"
	"github.com/CK6170/calunc-go/internal/logging"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/modern"
	"github.com/CK6170/calunc-go/ui"
)

type screen int

const (
	screenEntry screen = iota
	screenReport
	screenGrid
)

type model struct {
	scr  screen
	cfg  config.Config
	opts modern.Options

	// entry
	pathInput textinput.Model
	kindIdx   int

	path     string
	in       *modern.InputFile
	rep      *models.Report
	lastErr  error
	infoLine string

	vp            viewport.Model
	width, height int

	// grid editor
	grid  *readingsGrid
	focus *ui.FocusGrid
	cell  textinput.Model

	// file watch
	watchCancel context.CancelFunc
	watchRunID  int

	// balance
	sess         *modern.Session
	sampleCancel context.CancelFunc
	sampleRunID  int
}

func initialModel(cfg config.Config, log *slog.Logger) model {
	in := textinput.New()
	in.Placeholder = "Path to input .json"
	in.Focus()
	in.CharLimit = 512
	in.Width = 60

	cell := textinput.New()
	cell.CharLimit = 32
	cell.Width = 12

	opts := cfg.CalcOptions()
	opts.Logger = log
	m := model{
		scr:       screenEntry,
		cfg:       cfg,
		opts:      opts,
		pathInput: in,
		cell:      cell,
		vp:        viewport.New(80, 20),
	}
	// support passing the input path as arg
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		m.pathInput.SetValue(os.Args[1])
		m.pathInput.CursorEnd()
	}
	return m
}

type errMsg struct{ err error }
type loadedMsg struct {
	path string
	in   *modern.InputFile
	rep  *models.Report
}
type fileChangedMsg struct{ runID int }
type connectedMsg struct{ sess *modern.Session }
type sampleDoneMsg struct {
	runID    int
	row      int
	readings []float64
}
type sampleProgMsg struct {
	runID int
	u     modern.SampleUpdate
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) fallbackKind() modern.Kind {
	kinds := modern.Kinds()
	return kinds[m.kindIdx%len(kinds)]
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(5, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		switch m.scr {
		case screenEntry:
			return m.updateEntryKey(msg)
		case screenReport:
			return m.updateReportKey(msg)
		case screenGrid:
			return m.updateGridKey(msg)
		}

	case errMsg:
		m.lastErr = msg.err
		return m, nil

	case loadedMsg:
		m.path, m.in, m.rep = msg.path, msg.in, msg.rep
		m.lastErr = nil
		m.scr = screenReport
		m.vp.SetContent(ui.FormatReport(m.rep))
		return m, nil

	case fileChangedMsg:
		if msg.runID != m.watchRunID || m.watchCancel == nil {
			return m, nil
		}
		m.infoLine = "Input changed, recomputed."
		return m, tea.Batch(m.loadCmd(m.path), m.waitChangeCmd(msg.runID))

	case connectedMsg:
		m.sess = msg.sess
		m.infoLine = fmt.Sprintf("Balance %s on %s", m.sess.Serial, m.sess.Config.Port)
		return m, nil

	case sampleProgMsg:
		if msg.runID != m.sampleRunID {
			return m, nil
		}
		m.infoLine = fmt.Sprintf("Sampling %d/%d (%s)", msg.u.Done, msg.u.Target, msg.u.Current)
		return m, nil

	case sampleDoneMsg:
		if msg.runID != m.sampleRunID || m.grid == nil {
			return m, nil
		}
		m.sampleCancel = nil
		m.grid.fill(msg.row, msg.readings)
		m.focus.Resize(m.grid.widths()...)
		m.loadCell()
		m.infoLine = fmt.Sprintf("Sampled %d readings", len(msg.readings))
		m.recompute()
		return m, nil
	}

	// default: let inputs update
	switch m.scr {
	case screenEntry:
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	case screenGrid:
		var cmd tea.Cmd
		m.cell, cmd = m.cell.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render("calunc "+modern.Version) + "\n")
	b.WriteString(ui.HelpStyle.Render("Ctrl+C to quit.") + "\n\n")
	if m.infoLine != "" {
		b.WriteString(ui.OKStyle.Render(m.infoLine) + "\n")
	}
	if m.lastErr != nil {
		b.WriteString(ui.ErrStyle.Render("Error: "+m.lastErr.Error()) + "\n")
	}
	b.WriteString("\n")

	switch m.scr {
	case screenEntry:
		b.WriteString(m.viewEntry())
	case screenReport:
		b.WriteString(m.viewReport())
	case screenGrid:
		b.WriteString(m.viewGrid())
	}
	return b.String()
}

func (m model) viewEntry() string {
	var b strings.Builder
	b.WriteString("Input JSON:\n")
	b.WriteString(m.pathInput.View() + "\n\n")
	b.WriteString(fmt.Sprintf("Kind for bare inputs: %s\n\n", m.fallbackKind()))
	b.WriteString(ui.HelpStyle.Render("Enter to compute. Tab to change the kind.") + "\n")
	return b.String()
}

func (m model) viewReport() string {
	var b strings.Builder
	b.WriteString(m.vp.View() + "\n\n")
	watch := "w watch"
	if m.watchCancel != nil {
		watch = "w stop watching"
	}
	b.WriteString(ui.HelpStyle.Render("e edit readings, s save report, r reload, "+watch+", b back") + "\n")
	return b.String()
}

func (m model) viewGrid() string {
	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render(fmt.Sprintf("Readings (%s)", m.in.Kind)) + "\n\n")
	labelW := 0
	for _, r := range m.grid.rows {
		labelW = max(labelW, len(r.label))
	}
	for i, r := range m.grid.rows {
		b.WriteString(fmt.Sprintf("%-*s ", labelW, r.label))
		for j, c := range r.cells {
			if m.focus.Focused(i, j) {
				b.WriteString("[" + m.cell.View() + "] ")
				continue
			}
			if c == "" {
				c = "·"
			}
			b.WriteString(fmt.Sprintf(" %-10s ", c))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.rep != nil {
		b.WriteString(summarize(m.rep) + "\n\n")
	}
	b.WriteString(ui.HelpStyle.Render("Tab/Shift+Tab move, Up/Down rows, Ctrl+N add reading, Ctrl+B sample row from balance, Ctrl+W write input, Esc back") + "\n")
	return b.String()
}

// summarize is the one line per row shown under the grid.
func summarize(r *models.Report) string {
	var b strings.Builder
	for _, row := range r.Rows {
		label := row.Label
		if row.Channel != "" {
			label = row.Channel + " " + label
		}
		v := ui.OKStyle.Render(string(row.Verdict))
		if row.Verdict != models.Pass {
			v = ui.ErrStyle.Render(string(row.Verdict))
		}
		b.WriteString(fmt.Sprintf("%-16s U=%-10.4g err=%-+10.4g %s\n", label, row.Budget.Expanded, row.Error, v))
	}
	for _, w := range r.Warnings {
		b.WriteString(ui.WarnStyle.Render("warning: "+w) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) updateEntryKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "enter":
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, func() tea.Msg { return errMsg{err: fmt.Errorf("input path is empty")} }
		}
		return m, m.loadCmd(path)
	case "tab":
		m.kindIdx = (m.kindIdx + 1) % len(modern.Kinds())
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(k)
	return m, cmd
}

func (m model) updateReportKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "b":
		m.stopWatch()
		m.scr = screenEntry
		return m, nil
	case "r":
		return m, m.loadCmd(m.path)
	case "s":
		dst := modern.ReportPath(m.path)
		if err := modern.SaveReport(dst, m.in.Kind, m.in.Input, m.rep); err != nil {
			m.lastErr = err
			return m, nil
		}
		m.infoLine = "Saved " + filepath.Base(dst)
		return m, nil
	case "w":
		if m.watchCancel != nil {
			m.stopWatch()
			m.infoLine = "Stopped watching."
			return m, nil
		}
		return m, m.startWatch()
	case "e":
		g, err := newReadingsGrid(m.in.Kind, m.in.Input)
		if err != nil {
			m.lastErr = err
			return m, nil
		}
		m.stopWatch()
		m.grid = g
		m.focus = ui.NewFocusGrid(g.widths()...)
		m.cell.Focus()
		m.loadCell()
		m.scr = screenGrid
		return m, textinput.Blink
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(k)
	return m, cmd
}

func (m model) updateGridKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "esc":
		m.stopSample()
		m.commitCell()
		m.recompute()
		m.vp.SetContent(ui.FormatReport(m.rep))
		m.scr = screenReport
		return m, nil
	case "tab", "enter":
		m.moveFocus(m.focus.Next)
		return m, nil
	case "shift+tab":
		m.moveFocus(m.focus.Prev)
		return m, nil
	case "up":
		m.moveFocus(m.focus.Up)
		return m, nil
	case "down":
		m.moveFocus(m.focus.Down)
		return m, nil
	case "ctrl+n":
		row, _ := m.focus.Pos()
		m.commitCell()
		if m.grid.appendCell(row) {
			m.focus.Resize(m.grid.widths()...)
			m.focus.Set(row, m.grid.widths()[row]-1)
			m.loadCell()
			m.recompute()
		}
		return m, nil
	case "ctrl+w":
		m.commitCell()
		m.recompute()
		if err := modern.PersistInput(m.path, m.in); err != nil {
			m.lastErr = err
			return m, nil
		}
		m.infoLine = "Wrote " + filepath.Base(m.path)
		return m, nil
	case "ctrl+b":
		return m, m.sampleRowCmd()
	}

	var cmd tea.Cmd
	m.cell, cmd = m.cell.Update(k)
	// recompute on every keystroke
	m.commitCell()
	m.recompute()
	return m, cmd
}

func (m *model) moveFocus(move func()) {
	m.commitCell()
	move()
	m.loadCell()
}

func (m *model) commitCell() {
	if m.grid == nil {
		return
	}
	row, col := m.focus.Pos()
	m.grid.set(row, col, strings.TrimSpace(m.cell.Value()))
}

func (m *model) loadCell() {
	row, col := m.focus.Pos()
	m.cell.SetValue(m.grid.get(row, col))
	m.cell.CursorEnd()
}

// recompute re-encodes the grid into the input and recalculates the report.
func (m *model) recompute() {
	raw, err := m.grid.encode()
	if err != nil {
		m.lastErr = err
		return
	}
	m.in.Input = raw
	rep, err := modern.Compute(m.in.Kind, raw, m.opts)
	if err != nil {
		m.lastErr = err
		return
	}
	m.lastErr = nil
	m.rep = rep
}

func (m model) loadCmd(path string) tea.Cmd {
	fallback := m.fallbackKind()
	opts := m.opts
	return func() tea.Msg {
		in, err := modern.LoadInput(path, fallback)
		if err != nil {
			return errMsg{err: err}
		}
		rep, err := modern.Compute(in.Kind, in.Input, opts)
		if err != nil {
			return errMsg{err: err}
		}
		return loadedMsg{path: path, in: in, rep: rep}
	}
}

// watchChanges carries file events from the watcher goroutine to the
// program; one buffered slot coalesces bursts.
var watchChanges = make(chan int, 1)

func (m *model) startWatch() tea.Cmd {
	m.stopWatch()
	m.watchRunID++
	runID := m.watchRunID
	ctx, cancel := context.WithCancel(context.Background())
	m.watchCancel = cancel
	path := m.path
	log := m.opts.Logger
	go func() {
		err := modern.WatchFile(ctx, path, func() {
			select {
			case watchChanges <- runID:
			default:
			}
		})
		if err != nil {
			log.Warn("watch stopped", "path", path, "err", err)
		}
	}()
	m.infoLine = "Watching " + filepath.Base(path)
	return m.waitChangeCmd(runID)
}

func (m model) waitChangeCmd(runID int) tea.Cmd {
	return func() tea.Msg {
		for id := range watchChanges {
			if id == runID {
				return fileChangedMsg{runID: id}
			}
		}
		return nil
	}
}

func (m *model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchRunID++
}

// sampleUnit is the unit a kind's balance readings are entered in.
func sampleUnit(kind modern.Kind) (models.Unit, bool) {
	switch kind {
	case modern.KindScale:
		return models.Gram, true
	case modern.KindTestWeights:
		return models.Milligram, true
	}
	return "", false
}

func (m *model) sampleRowCmd() tea.Cmd {
	unit, ok := sampleUnit(m.in.Kind)
	if !ok {
		return func() tea.Msg { return errMsg{err: fmt.Errorf("balance sampling is only for scale and test-weights inputs")} }
	}
	m.commitCell()
	m.stopSample()
	m.sampleRunID++
	runID := m.sampleRunID
	row, _ := m.focus.Pos()
	n := m.focus.Width(row)
	ctx, cancel := context.WithCancel(context.Background())
	m.sampleCancel = cancel

	sess := m.sess
	serialCfg := m.cfg.SerialConfig()
	connect := func() tea.Msg {
		if sess != nil {
			return nil
		}
		s, err := modern.Connect(serialCfg)
		if err != nil {
			return errMsg{err: err}
		}
		if err := modern.Probe(s); err != nil {
			_ = s.Close()
			return errMsg{err: err}
		}
		sess = s
		return connectedMsg{sess: s}
	}
	return tea.Sequence(connect, func() tea.Msg {
		if sess == nil {
			return nil
		}
		readings, err := modern.CollectReadings(ctx, sess.Balance, 0, n, unit, nil)
		if err != nil {
			return errMsg{err: err}
		}
		return sampleDoneMsg{runID: runID, row: row, readings: readings}
	})
}

func (m *model) stopSample() {
	if m.sampleCancel != nil {
		m.sampleCancel()
		m.sampleCancel = nil
	}
}

func (m *model) shutdown() {
	m.stopWatch()
	m.stopSample()
	if m.sess != nil {
		_ = m.sess.Close()
		m.sess = nil
	}
}

// tuiLogger writes to a file in the temp dir; the alt screen owns stderr.
func tuiLogger(level string) (*slog.Logger, func()) {
	f, err := os.OpenFile(filepath.Join(os.TempDir(), "calunc-modernui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return logging.New(level, io.Discard), func() {}
	}
	return logging.New(level, f), func() { _ = f.Close() }
}

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Println("config:", err)
		os.Exit(1)
	}
	log, closeLog := tuiLogger(cfg.Log.Level)
	defer closeLog()

	p := tea.NewProgram(initialModel(cfg, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

package serial

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CK6170/calunc-go/models"
	goserial "github.com/tarm/serial"
)

var (
	ErrUnstable  = errors.New("balance: weight not stable")
	ErrOverload  = errors.New("balance: overload")
	ErrUnderload = errors.New("balance: underload")
	ErrBusy      = errors.New("balance: command not executable")
	ErrSyntax    = errors.New("balance: syntax error")
)

type Config struct {
	Port    string        `json:"port"`
	Baud    int           `json:"baud"`
	Timeout time.Duration `json:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Baud <= 0 {
		c.Baud = 9600
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	return c
}

func (c Config) serialConfig() *goserial.Config {
	return &goserial.Config{
		Name:        c.Port,
		Baud:        c.Baud,
		Parity:      goserial.ParityNone,
		Size:        8,
		StopBits:    goserial.Stop1,
		ReadTimeout: c.Timeout,
	}
}

// Balance talks MT-SICS (level 0) to a laboratory balance.
type Balance struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	rd   *bufio.Reader
	cfg  Config
}

func OpenBalance(cfg Config) (*Balance, error) {
	cfg = cfg.withDefaults()
	if cfg.Port == "" {
		return nil, fmt.Errorf("missing serial port")
	}
	port, err := goserial.OpenPort(cfg.serialConfig())
	if err != nil {
		return nil, err
	}
	return NewBalance(port, cfg), nil
}

// NewBalance wraps an already open link.
func NewBalance(rw io.ReadWriteCloser, cfg Config) *Balance {
	return &Balance{port: rw, rd: bufio.NewReader(rw), cfg: cfg.withDefaults()}
}

func (b *Balance) Close() error { return b.port.Close() }

func (b *Balance) Port() string { return b.cfg.Port }

// command sends cmd and returns the first response line without CR LF.
func (b *Balance) command(cmd string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.port, cmd+"\r\n"); err != nil {
		return "", fmt.Errorf("write %s: %w", cmd, err)
	}
	line, err := b.rd.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s response: %w", cmd, err)
	}
	line = strings.TrimRight(line, "\r\n")
	switch strings.TrimSpace(line) {
	case "ES":
		return "", ErrSyntax
	case "ET", "EL":
		return "", fmt.Errorf("balance: %s error on %s", strings.TrimSpace(line), cmd)
	}
	return line, nil
}

// ReadStable sends S and waits for a stable weight.
func (b *Balance) ReadStable() (models.Quantity, error) {
	line, err := b.command("S")
	if err != nil {
		return models.Quantity{}, err
	}
	q, stable, err := ParseWeight(line)
	if err != nil {
		return models.Quantity{}, err
	}
	if !stable {
		return q, ErrUnstable
	}
	return q, nil
}

// ReadImmediate sends SI and returns the current weight, stable or not.
func (b *Balance) ReadImmediate() (models.Quantity, bool, error) {
	line, err := b.command("SI")
	if err != nil {
		return models.Quantity{}, false, err
	}
	return ParseWeight(line)
}

func (b *Balance) Zero() error {
	line, err := b.command("Z")
	if err != nil {
		return err
	}
	return statusError(line, "Z")
}

// SerialNumber sends I4.
func (b *Balance) SerialNumber() (string, error) {
	line, err := b.command("I4")
	if err != nil {
		return "", err
	}
	f := strings.Fields(line)
	if len(f) < 3 || f[0] != "I4" || f[1] != "A" {
		if err := statusError(line, "I4"); err != nil {
			return "", err
		}
		return "", fmt.Errorf("unexpected I4 response %q", line)
	}
	return strings.Trim(strings.Join(f[2:], " "), `"`), nil
}

// ParseWeight parses an S/SI response such as "S S     100.00 g".
func ParseWeight(line string) (models.Quantity, bool, error) {
	f := strings.Fields(line)
	if len(f) < 2 || f[0] != "S" {
		return models.Quantity{}, false, fmt.Errorf("unexpected weight response %q", line)
	}
	if f[1] != "S" && f[1] != "D" {
		return models.Quantity{}, false, statusError(line, "S")
	}
	if len(f) < 4 {
		return models.Quantity{}, false, fmt.Errorf("short weight response %q", line)
	}
	v, err := strconv.ParseFloat(f[2], 64)
	if err != nil {
		return models.Quantity{}, false, fmt.Errorf("bad weight value %q: %w", f[2], err)
	}
	u := models.Unit(f[3])
	if !u.IsMass() {
		return models.Quantity{}, false, fmt.Errorf("%w: balance unit %q", models.ErrUnitMismatch, f[3])
	}
	return models.Q(v, u), f[1] == "S", nil
}

func statusError(line, cmd string) error {
	f := strings.Fields(line)
	if len(f) < 2 || f[0] != cmd {
		return fmt.Errorf("unexpected %s response %q", cmd, line)
	}
	switch f[1] {
	case "A":
		return nil
	case "I":
		return ErrBusy
	case "+":
		return ErrOverload
	case "-":
		return ErrUnderload
	}
	return fmt.Errorf("unexpected %s response %q", cmd, line)
}

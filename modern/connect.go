package modern

import (
	"fmt"
	"strings"

	serialpkg "github.com/CK6170/calunc-go/serial"
)

// Session is an open connection to a balance.
type Session struct {
	Config  serialpkg.Config
	Balance *serialpkg.Balance
	Serial  string
}

// Connect opens the balance, auto-detecting the port when none is set.
func Connect(cfg serialpkg.Config) (*Session, error) {
	if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = serialpkg.AutoDetectPort(cfg)
		if cfg.Port == "" {
			return nil, fmt.Errorf("could not auto-detect serial port")
		}
	}
	bal, err := serialpkg.OpenBalance(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{Config: cfg, Balance: bal}, nil
}

func (s *Session) Close() error {
	if s == nil || s.Balance == nil {
		return nil
	}
	return s.Balance.Close()
}

// Probe asks the balance for its serial number.
func Probe(s *Session) error {
	if s == nil || s.Balance == nil {
		return fmt.Errorf("not connected")
	}
	sn, err := s.Balance.SerialNumber()
	if err != nil {
		return err
	}
	s.Serial = sn
	return nil
}

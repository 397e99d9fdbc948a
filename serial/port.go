package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// AutoDetectPort scans common serial ports for a balance answering I4.
func AutoDetectPort(cfg Config) string {
	if runtime.GOOS == "windows" {
		for i := 1; i <= 64; i++ {
			portName := fmt.Sprintf("COM%d", i)
			if TestPort(portName, cfg.Baud) {
				return portName
			}
		}
		return ""
	}

	candidates := make([]string, 0, 32)
	for _, pat := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*", "/dev/cu.*"} {
		matches, _ := filepath.Glob(pat)
		for _, m := range matches {
			if _, err := os.Stat(m); err == nil {
				candidates = append(candidates, m)
			}
		}
	}
	for _, portName := range candidates {
		if TestPort(portName, cfg.Baud) {
			return portName
		}
	}
	return ""
}

// TestPort opens name and asks for the serial number.
func TestPort(name string, baud int) bool {
	b, err := OpenBalance(Config{Port: name, Baud: baud, Timeout: 300 * time.Millisecond})
	if err != nil {
		return false
	}
	defer func() { _ = b.Close() }()
	_, err = b.SerialNumber()
	return err == nil
}

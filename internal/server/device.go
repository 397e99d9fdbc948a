package server

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/modern"
)

// BalanceSession is the one balance the server talks to.
type BalanceSession struct {
	mu   sync.Mutex
	sess *modern.Session

	// One active operation at a time
	opCancel context.CancelFunc
	opKind   string
}

func (d *BalanceSession) cancelLocked() {
	if d.opCancel != nil {
		d.opCancel()
		d.opCancel = nil
		d.opKind = ""
	}
}

func (d *BalanceSession) disconnectLocked() error {
	var err error
	if d.sess != nil {
		err = d.sess.Close()
	}
	d.sess = nil
	return err
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ConnectRequest
	if r.ContentLength != 0 {
		if err := s.readJSON(r, &req); err != nil {
			s.writeJSON(w, 400, APIError{Error: err.Error()})
			return
		}
	}
	cfg := s.opts.Serial
	if strings.TrimSpace(req.Port) != "" {
		cfg.Port = strings.TrimSpace(req.Port)
	}
	if req.Baud > 0 {
		cfg.Baud = req.Baud
	}

	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()

	s.dev.cancelLocked()
	_ = s.dev.disconnectLocked()

	sess, err := s.opts.Dial(cfg)
	if err != nil {
		s.writeJSON(w, 400, APIError{Error: err.Error()})
		return
	}
	if err := modern.Probe(sess); err != nil {
		_ = sess.Close()
		s.writeJSON(w, 400, APIError{Error: "balance probe failed: " + err.Error()})
		return
	}
	s.dev.sess = sess
	s.log.Info("balance connected", "port", sess.Config.Port, "serial", sess.Serial)

	s.writeJSON(w, 200, ConnectResponse{
		Connected: true,
		Port:      sess.Config.Port,
		Serial:    sess.Serial,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.cancelLocked()
	_ = s.dev.disconnectLocked()
	s.writeJSON(w, 200, map[string]bool{"ok": true})
}

func (s *Server) handleStopOp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.cancelLocked()
	s.writeJSON(w, 200, map[string]bool{"ok": true})
}

// handleSample starts collecting readings. Progress and the final readings
// go out on /ws/balance.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req := SampleRequest{N: 10, Unit: models.Gram}
	if r.ContentLength != 0 {
		if err := s.readJSON(r, &req); err != nil {
			s.writeJSON(w, 400, APIError{Error: err.Error()})
			return
		}
	}
	if req.Unit == "" {
		req.Unit = models.Gram
	}
	if !req.Unit.IsMass() {
		s.writeJSON(w, 400, APIError{Error: "unit must be mg, g or kg"})
		return
	}

	s.dev.mu.Lock()
	if s.dev.sess == nil {
		s.dev.mu.Unlock()
		s.writeJSON(w, 400, APIError{Error: "not connected"})
		return
	}
	s.dev.cancelLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.dev.opCancel = cancel
	s.dev.opKind = "sample"
	bal := s.dev.sess.Balance
	s.dev.mu.Unlock()

	go func() {
		defer cancel()
		readings, err := modern.CollectReadings(ctx, bal, req.Ignore, req.N, req.Unit, func(u modern.SampleUpdate) {
			s.wsBalance.Broadcast(WSMessage{Type: "sample", Data: u})
		})
		if err != nil {
			s.log.Warn("sampling stopped", "err", err)
			s.wsBalance.Broadcast(WSMessage{Type: "error", Data: map[string]string{"error": err.Error()}})
			return
		}
		s.wsBalance.Broadcast(WSMessage{
			Type: "done",
			Data: map[string]interface{}{
				"unit":     req.Unit,
				"readings": readings,
			},
		})
	}()

	s.writeJSON(w, 200, map[string]bool{"ok": true})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CK6170/calunc-go/internal/records"
	"github.com/CK6170/calunc-go/models"
	"github.com/CK6170/calunc-go/modern"
	serialpkg "github.com/CK6170/calunc-go/serial"
)

type Options struct {
	WebRoot string
	Store   records.Store
	Calc    modern.Options
	Serial  serialpkg.Config
	Logger  *slog.Logger
	// Dial opens the balance; modern.Connect when nil.
	Dial func(serialpkg.Config) (*modern.Session, error)
}

type Server struct {
	mux  *http.ServeMux
	log  *slog.Logger
	opts Options

	store records.Store
	dev   *BalanceSession

	wsBalance *WSHub
	wsRecords *WSHub
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = records.NewMemoryStore()
	}
	def := modern.DefaultOptions()
	if opts.Calc.Registry == nil {
		opts.Calc.Registry = def.Registry
	}
	if opts.Calc.Fallback.Strategy == "" {
		opts.Calc.Fallback = def.Fallback
	}
	if opts.Calc.Uncertainty.CoverageFactor <= 0 {
		opts.Calc.Uncertainty = def.Uncertainty
	}
	if opts.Calc.Logger == nil {
		opts.Calc.Logger = opts.Logger
	}
	if opts.Dial == nil {
		opts.Dial = modern.Connect
	}
	if opts.WebRoot == "" {
		opts.WebRoot = "./web"
	}
	s := &Server{
		mux:       http.NewServeMux(),
		log:       opts.Logger,
		opts:      opts,
		store:     opts.Store,
		dev:       &BalanceSession{},
		wsBalance: NewWSHub(),
		wsRecords: NewWSHub(),
	}

	// API
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/calculators", s.handleCalculators)
	s.mux.HandleFunc("/api/calculate", s.handleCalculate)
	s.mux.HandleFunc("/api/records", s.handleRecords)
	s.mux.HandleFunc("/api/download", s.handleDownload)

	s.mux.HandleFunc("/api/balance/connect", s.handleConnect)
	s.mux.HandleFunc("/api/balance/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("/api/balance/sample", s.handleSample)
	s.mux.HandleFunc("/api/balance/stop", s.handleStopOp)

	// WS
	s.mux.HandleFunc("/ws/balance", s.handleWSBalance)
	s.mux.HandleFunc("/ws/records", s.handleWSRecords)
	s.mux.HandleFunc("/ws/calculate", s.handleWSCalculate)

	// Static frontend
	s.mux.Handle("/", http.FileServer(http.Dir(opts.WebRoot)))

	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// Close stops any balance operation and disconnects.
func (s *Server) Close() error {
	s.dev.mu.Lock()
	defer s.dev.mu.Unlock()
	s.dev.cancelLocked()
	return s.dev.disconnectLocked()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 2<<20))
}

func (s *Server) readJSON(r *http.Request, v interface{}) error {
	b, err := s.readBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, modern.ErrUnknownKind), errors.Is(err, records.ErrNotFound):
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, APIError{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, 200, HealthResponse{OK: true, Version: modern.Version, Timestamp: time.Now()})
}

func (s *Server) handleCalculators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, 200, CalculatorsResponse{
		Kinds:      modern.Kinds(),
		Tolerances: s.opts.Calc.Registry.Names(),
		Fallback:   s.opts.Calc.Fallback.Strategy,
	})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	kind, err := modern.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	raw, err := s.readBody(r)
	if err != nil {
		s.writeJSON(w, 400, APIError{Error: err.Error()})
		return
	}
	rep, err := modern.Compute(kind, raw, s.opts.Calc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, 200, rep)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRecords(w, r)
	case http.MethodPost:
		s.createRecord(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeJSON(w, 400, APIError{Error: err.Error()})
		return
	}
	rec, rep, err := s.saveRecord(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, 200, RecordResponse{ID: rec.ID, Kind: rec.Kind, Report: rep})
}

// saveRecord computes req and stores input and report together.
func (s *Server) saveRecord(ctx context.Context, req CalculateRequest) (*records.Record, *models.Report, error) {
	if _, err := modern.ParseKind(string(req.Kind)); err != nil {
		return nil, nil, err
	}
	rep, err := modern.Compute(req.Kind, req.Input, s.opts.Calc)
	if err != nil {
		return nil, nil, err
	}
	result, err := json.Marshal(rep)
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}
	rec := &records.Record{Kind: string(req.Kind), Input: req.Input, Result: result}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, nil, err
	}
	s.log.Info("record saved", "id", rec.ID, "kind", rec.Kind, "passed", rep.Passed())
	s.wsRecords.Broadcast(WSMessage{Type: "record", Data: RecordSummary{
		ID: rec.ID, Kind: rec.Kind, CreatedAt: rec.CreatedAt,
	}})
	return rec, rep, nil
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	out := make([]RecordSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecordSummary{ID: rec.ID, Kind: rec.Kind, CreatedAt: rec.CreatedAt})
	}
	s.writeJSON(w, 200, out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSON(w, 400, APIError{Error: "missing id"})
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := modern.EncodeSaved(modern.Kind(rec.Kind), rec.Input, rec.Result)
	if err != nil {
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Kind+"_report.json"))
	w.WriteHeader(200)
	_, _ = w.Write(data)
}

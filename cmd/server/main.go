package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CK6170/calunc-go/internal/config"
	"github.com/CK6170/calunc-go/internal/logging"
	"github.com/CK6170/calunc-go/internal/records"
	"github.com/CK6170/calunc-go/internal/server"
)

func main() {
	var (
		cfgPath = flag.String("config", config.DefaultPath(), "path to config.toml")
		addr    = flag.String("addr", "", "http listen address (overrides config)")
		web     = flag.String("web", "", "path to web root (overrides config)")
		level   = flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *web != "" {
		cfg.Server.WebRoot = *web
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	log := logging.Setup(cfg.Log.Level, os.Stderr)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	store, err := records.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open records store: %w", err)
	}
	defer store.Close()

	calc := cfg.CalcOptions()
	calc.Logger = log
	s := server.New(server.Options{
		WebRoot: cfg.Server.WebRoot,
		Store:   store,
		Calc:    calc,
		Serial:  cfg.SerialConfig(),
		Logger:  log,
	})
	defer s.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("serving", "addr", cfg.Server.Addr, "web", cfg.Server.WebRoot, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

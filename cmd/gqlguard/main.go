// Command gqlguard serves credential verification and operation policy
// checks over HTTP.
//
// Usage:
//
//	gqlguard -config /etc/gqlguard/config.yaml
//
// Signing keys are derived before the listener opens; a key that cannot
// be loaded stops the process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/gqlguard/config"
	"github.com/jonwraymond/gqlguard/observe"
)

func main() {
	configPath := flag.String("config", os.Getenv("GQLGUARD_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "gqlguard:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	logger := obs.Logger()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	srv, err := newServer(ctx, cfg, obs)
	if err != nil {
		logger.Error(ctx, "startup-failed", observe.F("error", err))
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info(ctx, "listening",
		observe.F("address", cfg.Server.Address),
		observe.F("keys", srv.keys.KeyIDs()),
		observe.F("operations", len(srv.authz.Operations())),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting-down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

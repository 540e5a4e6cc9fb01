package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"profiled/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, o *options) error {
	cfg, log := o.cfg, o.log
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := buildManager(ctx, cfg, &log)

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("profiles", cfg.ProfilesPath).Str("backend", cfg.Backend).Str("endpoint", cfg.EndpointURL).Msg("profiled listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Pick up whatever the workload is already serving.
	go func() {
		st := mgr.Status(ctx)
		log.Info().Str("status", st.Status).Str("profile", st.CurrentProfile).Msg("initial reconcile")
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		_ = mgr.Close()
		return err
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return mgr.Close()
}

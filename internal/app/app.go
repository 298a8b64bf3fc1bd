package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
)

type App struct {
	httpServer  *http.Server
	cleanup     func() error
	stopStreams context.CancelFunc
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	// lives until Shutdown; long-lived streams end with it
	streams, stopStreams := context.WithCancel(context.Background())

	router, cleanup, err := setupHTTP(ctx, cfg, streams.Done())
	if err != nil {
		stopStreams()
		return nil, err
	}

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		httpServer:  server,
		cleanup:     cleanup,
		stopStreams: stopStreams,
	}, nil
}

// Run serves until Shutdown; a clean shutdown returns nil.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open streams, drains the server and releases the
// infrastructure. Cleanup runs even when draining fails.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopStreams != nil {
		a.stopStreams()
	}

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("cleanup: %w", err))
		}
	}
	return errors.Join(errs...)
}

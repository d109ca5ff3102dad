package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-neows/internal/handlers"
	"go-neows/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	log := a.log

	// Start background tasks
	a.cache.StartSweeper(ctx, a.cfg.SweepInterval())

	// Setup HTTP server
	gin.SetMode(a.cfg.GinMode)
	h := handlers.NewHandler(a.gateway, a.narrator, a.validator, logging.Component("handlers"))
	router := handlers.NewRouter(h, handlers.RouterConfig{
		FrontendURL:       a.cfg.HTTP.FrontendURL,
		RateLimitRequests: a.cfg.HTTP.RateLimitRequests,
		RateLimitWindow:   a.cfg.RateLimitWindow(),
		Metrics:           promhttp.Handler(),
		Log:               logging.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("neows service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

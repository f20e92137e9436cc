// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the paideia web service: a liveness endpoint behind
// permissive CORS, intended for development use.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/paideia/paideia/pkg/types"
)

// HealthMessage is the fixed status text returned by the health endpoint.
const HealthMessage = "Paideia is running!"

// healthBody is encoded once; the endpoint has no inputs.
var healthBody = []byte(`{"message":"` + HealthMessage + `"}`)

// NewRouter returns the HTTP handler with all routes and middleware.
func NewRouter(log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	}))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS())

	r.Get("/", Health)

	return r
}

// Health answers liveness checks with a static payload.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(healthBody)
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// cfg.GracefulShutdown. It returns nil after a clean shutdown.
func Run(ctx context.Context, cfg types.ServerConfig, log zerolog.Logger) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return Serve(ctx, ln, cfg, log)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, cfg types.ServerConfig, log zerolog.Logger) error {
	srv := &http.Server{
		Handler:      NewRouter(log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownTimeout := cfg.GracefulShutdown
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		if cerr := srv.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("forced shutdown failed")
		}
		return fmt.Errorf("shutting down: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

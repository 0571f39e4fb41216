// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/velasystems/leadbus/internal/config"
	"github.com/velasystems/leadbus/internal/logging"
)

const shutdownGrace = 10 * time.Second

// Server runs the HTTP listener as a suture service.
type Server struct {
	addr    string
	handler http.Handler
	timeout time.Duration
}

// NewServer builds the service from the loaded configuration.
func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		handler: handler,
		timeout: cfg.Server.Timeout,
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string { return "http-server" }

// Serve listens until the context is canceled, then drains in-flight
// requests within the shutdown grace period.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.timeout,
		WriteTimeout:      s.timeout,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http shutdown incomplete, closing")
		_ = srv.Close()
	}
	return ctx.Err()
}

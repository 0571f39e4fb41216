// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Command server runs the integration bus: webhook intake, queue
// fabric, the three workers, and the operator API under one supervisor
// tree.
//
// Exit codes: 0 clean shutdown, 1 configuration error, 2 dependency
// health check failed at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velasystems/leadbus/internal/api"
	"github.com/velasystems/leadbus/internal/config"
	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/odoo"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
	"github.com/velasystems/leadbus/internal/supervisor"
	"github.com/velasystems/leadbus/internal/worker"
)

const (
	exitOK     = 0
	exitConfig = 1
	exitHealth = 2

	startupProbeTimeout = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitConfig
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.Info().Msg("leadbus starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeCtx, cancelProbe := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancelProbe()

	st, err := store.Connect(probeCtx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logging.Error().Err(err).Msg("store unavailable")
		return exitHealth
	}
	defer st.Close()

	// An empty QUEUE_CONNECTION runs the broker in-process.
	queueURL := cfg.Queue.Connection
	if queueURL == "" {
		embedded, err := queue.NewEmbeddedServer(queue.EmbeddedServerConfig{
			StoreDir: cfg.Queue.StoreDir,
		})
		if err != nil {
			logging.Error().Err(err).Msg("embedded broker failed to start")
			return exitHealth
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("embedded broker shutdown incomplete")
			}
		}()
		queueURL = embedded.ClientURL()
		logging.Info().Str("url", queueURL).Msg("embedded broker running")
	}

	fabric, err := queue.Connect(queueURL, cfg.Queue.VisibilityTimeout())
	if err != nil {
		logging.Error().Err(err).Msg("queue fabric unavailable")
		return exitHealth
	}
	defer fabric.Close()

	if err := fabric.EnsureQueues(probeCtx); err != nil {
		logging.Error().Err(err).Msg("queue bootstrap failed")
		return exitHealth
	}

	// One gateway instance so the rate gate spans every worker.
	gateway := odoo.NewGateway(
		cfg.Odoo.URL, cfg.Odoo.DB, cfg.Odoo.User, cfg.Odoo.Password,
		cfg.Odoo.RateLimit(), cfg.Odoo.Timeout)
	if err := gateway.Ping(probeCtx); err != nil {
		logging.Error().Err(err).Msg("odoo unavailable")
		return exitHealth
	}

	workerOpts := worker.Options{
		Visibility: cfg.Queue.VisibilityTimeout(),
		Idle:       cfg.Queue.SyncInterval(),
		MaxDeliver: uint64(cfg.Queue.MaxDeliver),
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddWorker(worker.NewContactWorker(fabric, st, gateway, workerOpts))
	tree.AddWorker(worker.NewCampaignWorker(fabric, st, workerOpts))
	tree.AddWorker(worker.NewOpportunityWorker(fabric, st, gateway, workerOpts))
	tree.AddAPI(api.NewServer(cfg, api.NewRouter(cfg, st, fabric).Handler()))

	logging.Info().
		Int("port", cfg.Server.Port).
		Dur("visibility_timeout", cfg.Queue.VisibilityTimeout()).
		Dur("odoo_rate_limit", cfg.Odoo.RateLimit()).
		Msg("leadbus ready")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
		return exitHealth
	}

	logging.Info().Msg("leadbus stopped")
	return exitOK
}

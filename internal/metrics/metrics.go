// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package metrics exposes Prometheus instrumentation for the event
// pipeline: webhook intake, queue fabric, workers, and the Odoo gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake metrics

	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbus_webhooks_received_total",
			Help: "Webhook requests received, by endpoint and outcome (enqueued, rejected, unauthorized, failed)",
		},
		[]string{"endpoint", "outcome"},
	)

	// Queue fabric metrics

	QueueEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbus_queue_enqueued_total",
			Help: "Messages successfully enqueued, by queue",
		},
		[]string{"queue"},
	)

	QueueDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbus_queue_dead_lettered_total",
			Help: "Messages written to the dead-letter queue, by original queue",
		},
		[]string{"queue"},
	)

	// Worker metrics

	WorkerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbus_worker_messages_total",
			Help: "Messages handled by workers, by queue and result (processed, retried, dead_lettered)",
		},
		[]string{"queue", "result"},
	)

	WorkerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadbus_worker_message_duration_seconds",
			Help:    "Per-message processing time, by queue",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	// Odoo gateway metrics

	OdooCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbus_odoo_calls_total",
			Help: "Completed Odoo RPC calls, by model, method and outcome",
		},
		[]string{"model", "method", "outcome"},
	)

	OdooCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadbus_odoo_call_duration_seconds",
			Help:    "Odoo RPC round-trip time, excluding rate-gate wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	OdooRateGateWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadbus_odoo_rate_gate_wait_seconds",
			Help:    "Time calls spent waiting on the 1 req/s rate gate",
			Buckets: []float64{0.01, 0.1, 0.25, 0.5, 0.75, 1, 2, 5},
		},
	)
)

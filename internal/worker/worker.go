// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package worker implements the three queue consumers: contact upsert,
// campaign assignment, and the CRM opportunity state machine. Each
// worker is a suture service polling one queue.
package worker

import (
	"context"
	"time"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/metrics"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
)

// Handler processes one decoded message. A nil return acknowledges the
// message; *PermanentError dead-letters it; any other error leaves it
// for redelivery after the visibility timeout.
type Handler func(ctx context.Context, msg *queue.Message) error

// Options tune the polling loop. Zero values fall back to the
// defaults below.
type Options struct {
	Visibility time.Duration
	Idle       time.Duration
	MaxDeliver uint64
}

func (o Options) withDefaults() Options {
	if o.Visibility <= 0 {
		o.Visibility = 300 * time.Second
	}
	if o.Idle <= 0 {
		o.Idle = 10 * time.Second
	}
	if o.MaxDeliver == 0 {
		o.MaxDeliver = 5
	}
	return o
}

// Worker is one queue consumer. It implements suture.Service.
type Worker struct {
	queue   string
	fabric  queue.Fabric
	handler Handler
	opts    Options
}

// New builds a worker polling queueName with handler.
func New(queueName string, fabric queue.Fabric, handler Handler, opts Options) *Worker {
	return &Worker{
		queue:   queueName,
		fabric:  fabric,
		handler: handler,
		opts:    opts.withDefaults(),
	}
}

// String names the service in supervisor logs.
func (w *Worker) String() string {
	return "worker-" + w.queue
}

// Serve polls the queue until the context is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	logging.Info().
		Str("queue", w.queue).
		Dur("visibility", w.opts.Visibility).
		Dur("idle", w.opts.Idle).
		Msg("worker started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := w.fabric.Receive(ctx, w.queue, w.opts.Visibility)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Err(err).Str("queue", w.queue).Msg("receive failed")
			if err := sleepCtx(ctx, w.opts.Idle); err != nil {
				return err
			}
			continue
		}
		if msg == nil {
			if err := sleepCtx(ctx, w.opts.Idle); err != nil {
				return err
			}
			continue
		}

		w.process(ctx, msg)
	}
}

// process runs the handler under the visibility deadline and settles
// the message according to the error taxonomy.
func (w *Worker) process(ctx context.Context, msg *queue.Message) {
	hctx, cancel := context.WithTimeout(ctx, w.opts.Visibility)
	defer cancel()

	start := time.Now()
	err := w.handler(hctx, msg)
	metrics.WorkerDuration.WithLabelValues(w.queue).Observe(time.Since(start).Seconds())

	if err == nil {
		if derr := w.fabric.Delete(ctx, w.queue, msg.ID, msg.PopReceipt); derr != nil {
			// The message redelivers and the handler must absorb the
			// duplicate; all handlers are idempotent for this reason.
			logging.Warn().Err(derr).Str("queue", w.queue).Str("id", msg.ID).Msg("delete after success failed")
		}
		metrics.WorkerProcessed.WithLabelValues(w.queue, "processed").Inc()
		return
	}

	exhausted := msg.DeliveryCount >= w.opts.MaxDeliver
	if IsPermanent(err) || exhausted {
		w.deadLetter(ctx, msg, err, exhausted)
		return
	}

	// Retryable: leave the message in flight; it reappears after the
	// visibility timeout.
	logging.Warn().
		Err(err).
		Str("queue", w.queue).
		Str("id", msg.ID).
		Uint64("delivery", msg.DeliveryCount).
		Msg("processing failed, leaving for redelivery")
	metrics.WorkerProcessed.WithLabelValues(w.queue, "retried").Inc()
}

func (w *Worker) deadLetter(ctx context.Context, msg *queue.Message, cause error, exhausted bool) {
	env := models.NewDeadLetter(w.queue, cause, msg.Content)
	if err := w.fabric.Enqueue(ctx, queue.QueueDeadLetter, env); err != nil {
		// Keep the original message alive rather than lose it.
		logging.Error().Err(err).Str("queue", w.queue).Str("id", msg.ID).Msg("dead-letter enqueue failed")
		metrics.WorkerProcessed.WithLabelValues(w.queue, "retried").Inc()
		return
	}
	if err := w.fabric.Delete(ctx, w.queue, msg.ID, msg.PopReceipt); err != nil {
		logging.Warn().Err(err).Str("queue", w.queue).Str("id", msg.ID).Msg("delete after dead-letter failed")
	}

	logging.Error().
		Err(cause).
		Str("queue", w.queue).
		Str("id", msg.ID).
		Uint64("delivery", msg.DeliveryCount).
		Bool("retries_exhausted", exhausted).
		Msg("message dead-lettered")
	metrics.WorkerProcessed.WithLabelValues(w.queue, "dead_lettered").Inc()
	metrics.QueueDeadLettered.WithLabelValues(w.queue).Inc()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

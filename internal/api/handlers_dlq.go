// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
)

const (
	dlqPeekVisibility = 30 * time.Second
	dlqBatchLimit     = 100
)

// peekDeadLetters borrows up to ?limit= envelopes from the DLQ without
// deleting them. A work queue cannot be read non-destructively, so the
// borrowed messages stay invisible until the peek visibility expires
// and then return to the queue.
func (rt *Router) peekDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := min(queryInt(r, "limit", 20), dlqBatchLimit)

	type peeked struct {
		ID       string             `json:"id"`
		Envelope *models.DeadLetter `json:"envelope"`
	}
	out := make([]peeked, 0, limit)

	for range limit {
		msg, err := rt.fabric.Receive(r.Context(), queue.QueueDeadLetter, dlqPeekVisibility)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if msg == nil {
			break
		}

		var env models.DeadLetter
		if err := json.Unmarshal(msg.Content, &env); err != nil {
			logging.Warn().Err(err).Str("id", msg.ID).Msg("undecodable dead-letter envelope")
			continue
		}
		out = append(out, peeked{ID: msg.ID, Envelope: &env})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":              len(out),
		"messages":           out,
		"visibility_seconds": int(dlqPeekVisibility.Seconds()),
	})
}

// replayDeadLetters drains up to ?limit= envelopes back onto their
// original queues. Envelopes whose original queue is unknown, or whose
// re-enqueue fails, are left in the DLQ.
func (rt *Router) replayDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := min(queryInt(r, "limit", 20), dlqBatchLimit)

	replayed := 0
	skipped := 0
	for range limit {
		msg, err := rt.fabric.Receive(r.Context(), queue.QueueDeadLetter, dlqPeekVisibility)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if msg == nil {
			break
		}

		var env models.DeadLetter
		if err := json.Unmarshal(msg.Content, &env); err != nil || !slices.Contains(queue.PrimaryQueues, env.OriginalQueue) {
			logging.Warn().Str("id", msg.ID).Str("original_queue", env.OriginalQueue).Msg("dead letter not replayable")
			skipped++
			continue
		}

		if err := rt.fabric.Enqueue(r.Context(), env.OriginalQueue, env.OriginalEvent); err != nil {
			logging.Error().Err(err).Str("id", msg.ID).Str("original_queue", env.OriginalQueue).Msg("replay enqueue failed")
			skipped++
			continue
		}
		if err := rt.fabric.Delete(r.Context(), queue.QueueDeadLetter, msg.ID, msg.PopReceipt); err != nil {
			logging.Warn().Err(err).Str("id", msg.ID).Msg("delete after replay failed")
		}
		replayed++
	}

	logging.Info().Int("replayed", replayed).Int("skipped", skipped).Msg("dead-letter replay")
	writeJSON(w, http.StatusOK, map[string]int{
		"replayed": replayed,
		"skipped":  skipped,
	})
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/metrics"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// ManyChat retries a webhook that has not answered within 5 seconds, so
// the handler stops waiting on the broker well before that and lets a
// slow enqueue finish in the background.
const (
	ackTimeout        = 3 * time.Second
	backgroundTimeout = 30 * time.Second

	// storeTimeout bounds the synchronous store work of the stage-change
	// endpoint; together with ackTimeout it keeps the handler inside the
	// five-second delivery window even when the database stalls.
	storeTimeout = 2 * time.Second
)

func (rt *Router) webhookContactEvent(w http.ResponseWriter, r *http.Request) {
	var event models.ContactEvent
	if err := decodeJSON(r, &event); err != nil {
		metrics.WebhooksReceived.WithLabelValues("contact-event", "rejected").Inc()
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := event.Validate(); err != nil {
		metrics.WebhooksReceived.WithLabelValues("contact-event", "rejected").Inc()
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}
	event.ReceivedAt = time.Now().UTC()

	rt.acceptEvent(w, "contact-event", queue.QueueContact, event.ManychatID, event)
}

func (rt *Router) webhookCampaignAssignment(w http.ResponseWriter, r *http.Request) {
	var event models.CampaignAssignment
	if err := decodeJSON(r, &event); err != nil {
		metrics.WebhooksReceived.WithLabelValues("campaign-assignment", "rejected").Inc()
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := event.Validate(); err != nil {
		metrics.WebhooksReceived.WithLabelValues("campaign-assignment", "rejected").Inc()
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}
	event.ReceivedAt = time.Now().UTC()

	rt.acceptEvent(w, "campaign-assignment", queue.QueueCampaign, event.ManychatID, event)
}

// webhookStageChange is the single intake endpoint that touches the
// store: the CRM worker needs the freshly recorded state row, so the
// state append and the pending flag happen synchronously here.
func (rt *Router) webhookStageChange(w http.ResponseWriter, r *http.Request) {
	var event models.StageChange
	if err := decodeJSON(r, &event); err != nil {
		metrics.WebhooksReceived.WithLabelValues("stage-change", "rejected").Inc()
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := event.Validate(); err != nil {
		metrics.WebhooksReceived.WithLabelValues("stage-change", "rejected").Inc()
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}
	event.ReceivedAt = time.Now().UTC()

	storeCtx, cancelStore := context.WithTimeout(r.Context(), storeTimeout)
	defer cancelStore()

	contact, err := rt.store.GetContactByManychatID(storeCtx, event.ManychatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.WebhooksReceived.WithLabelValues("stage-change", "rejected").Inc()
			writeError(w, http.StatusBadRequest, map[string]string{"manychat_id": "unknown contact"})
			return
		}
		metrics.WebhooksReceived.WithLabelValues("stage-change", "failed").Inc()
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	err = rt.store.WithTx(storeCtx, func(tx *store.Store) error {
		state, err := tx.AppendContactState(storeCtx, contact.ID, event.StageManychat, models.StateCategoryManychat)
		if err != nil {
			return err
		}
		if err := tx.MarkContactSyncPendingByManychatID(storeCtx, event.ManychatID); err != nil {
			return err
		}
		event.ContactStateID = state.ID
		return nil
	})
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues("stage-change", "failed").Inc()
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rt.acceptEvent(w, "stage-change", queue.QueueOpportunity, event.ManychatID, event)
}

// acceptEvent enqueues the stamped event and answers 202. When the
// broker stalls past the ack window the enqueue keeps running detached
// and the caller still gets its 202; the fabric's dead-letter wrap
// covers the failure case.
func (rt *Router) acceptEvent(w http.ResponseWriter, endpoint, queueName, manychatID string, event any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(context.Background()), backgroundTimeout)

	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- rt.fabric.Enqueue(ctx, queueName, event)
	}()

	select {
	case err := <-done:
		if err != nil {
			var fatal *queue.FatalEnqueueError
			if errors.As(err, &fatal) {
				logging.Error().Err(err).Str("queue", queueName).Str("manychat_id", manychatID).Msg("enqueue and dead-letter both failed")
			} else {
				logging.Error().Err(err).Str("queue", queueName).Str("manychat_id", manychatID).Msg("enqueue failed")
			}
			metrics.WebhooksReceived.WithLabelValues(endpoint, "failed").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	case <-time.After(ackTimeout):
		logging.Warn().Str("queue", queueName).Str("manychat_id", manychatID).Msg("enqueue slow, acknowledging before completion")
	}

	metrics.WebhooksReceived.WithLabelValues(endpoint, "enqueued").Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "enqueued",
		"manychat_id": manychatID,
	})
}

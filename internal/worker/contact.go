// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/odoo"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// NewContactWorker consumes the contact queue: it upserts the contact
// and its state history locally, then mirrors the contact into Odoo as
// a res.partner.
func NewContactWorker(fabric queue.Fabric, st Datastore, gw CRMGateway, opts Options) *Worker {
	h := &contactHandler{store: st, gateway: gw}
	return New(queue.QueueContact, fabric, h.handle, opts)
}

type contactHandler struct {
	store   Datastore
	gateway CRMGateway
}

func (h *contactHandler) handle(ctx context.Context, msg *queue.Message) error {
	var event models.ContactEvent
	if err := json.Unmarshal(msg.Content, &event); err != nil {
		return NewPermanentError("malformed contact event", err)
	}
	if err := event.Validate(); err != nil {
		return NewPermanentError("invalid contact event", err)
	}

	var channelID *int64
	if event.EntryChannel != nil && *event.EntryChannel != "" {
		channel, err := h.store.GetOrCreateChannel(ctx, *event.EntryChannel)
		if err != nil {
			return fmt.Errorf("resolve channel %q: %w", *event.EntryChannel, err)
		}
		channelID = &channel.ID
	}

	contact, err := h.store.UpsertContact(ctx, store.ContactUpsert{
		ManychatID: event.ManychatID,
		FirstName:  event.FirstName,
		LastName:   event.LastName,
		Email:      event.Email,
		Phone:      event.Phone,
		ChannelID:  channelID,
		EntryDate:  event.EntryDate,
	})
	if err != nil {
		return fmt.Errorf("upsert contact %s: %w", event.ManychatID, err)
	}

	if err := h.appendState(ctx, contact.ID, event.LastState); err != nil {
		return err
	}

	// Mirror into Odoo only while the contact is unsynced; a redelivery
	// after a successful sync must not burn a rate-limited call.
	if contact.OdooSyncStatus == models.SyncSuccess {
		return nil
	}
	return h.syncPartner(ctx, contact, event)
}

// appendState records the event's state unless it already is the
// latest, which keeps redeliveries from duplicating history.
func (h *contactHandler) appendState(ctx context.Context, contactID int64, state string) error {
	latest, err := h.store.LatestContactState(ctx, contactID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load latest state: %w", err)
	}
	if latest != nil && latest.State == state {
		return nil
	}
	if _, err := h.store.AppendContactState(ctx, contactID, state, models.StateCategoryManychat); err != nil {
		return fmt.Errorf("append contact state: %w", err)
	}
	return nil
}

// syncPartner mirrors the contact into Odoo and records the outcome on
// the contact row and in the sync log.
func (h *contactHandler) syncPartner(ctx context.Context, contact *models.Contact, event models.ContactEvent) error {
	partner := odoo.Partner{
		ManychatID: contact.ManychatID,
		Name:       displayName(event.FirstName, event.LastName),
	}
	if event.Phone != nil {
		partner.Phone = *event.Phone
	}
	if event.Email != nil {
		partner.Email = *event.Email
	}

	partnerID, err := h.gateway.CreateOrUpdatePartner(ctx, partner)
	if err != nil {
		var fault *odoo.Fault
		if errors.As(err, &fault) {
			h.recordPartnerOutcome(ctx, contact, nil, models.SyncError, fault.Error())
			return NewPermanentError("odoo rejected partner", fault)
		}
		// Transient: leave odoo_sync_status pending and retry on the
		// next delivery.
		return fmt.Errorf("sync partner %s: %w", contact.ManychatID, err)
	}

	h.recordPartnerOutcome(ctx, contact, &partnerID, models.SyncSuccess, "")
	return nil
}

func (h *contactHandler) recordPartnerOutcome(ctx context.Context, contact *models.Contact, partnerID *int64, status models.SyncStatus, detail string) {
	if err := h.store.SetContactOdooSync(ctx, contact.ID, status, partnerID); err != nil {
		logging.Error().Err(err).Str("manychat_id", contact.ManychatID).Msg("update contact sync status failed")
	}

	logStatus := models.SyncStatusOK
	var details *string
	if status == models.SyncError {
		logStatus = models.SyncStatusError
		details = &detail
	}
	if _, err := h.store.AppendSyncLog(ctx, &models.SyncLog{
		SourceSystem: models.SourceManychat,
		EntityType:   "contact",
		EntityID:     contact.ManychatID,
		Action:       models.SyncActionPartnerSynced,
		Status:       logStatus,
		Details:      details,
	}); err != nil {
		logging.Error().Err(err).Str("manychat_id", contact.ManychatID).Msg("append sync log failed")
	}
}

func displayName(first string, last *string) string {
	if last == nil {
		return first
	}
	return strings.TrimSpace(first + " " + *last)
}

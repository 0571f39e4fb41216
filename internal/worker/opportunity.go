// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/odoo"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// NewOpportunityWorker consumes the crm-opportunity queue and drives
// the Odoo lead pipeline: stage changes move the contact's open
// opportunity forward, and anything arriving after a confirmed sale
// opens a fresh opportunity instead of reopening the closed one.
func NewOpportunityWorker(fabric queue.Fabric, st Datastore, gw CRMGateway, opts Options) *Worker {
	h := &opportunityHandler{store: st, gateway: gw}
	return New(queue.QueueOpportunity, fabric, h.handle, opts)
}

type opportunityHandler struct {
	store   Datastore
	gateway CRMGateway
}

func (h *opportunityHandler) handle(ctx context.Context, msg *queue.Message) error {
	var event models.StageChange
	if err := json.Unmarshal(msg.Content, &event); err != nil {
		return NewPermanentError("malformed stage change", err)
	}
	if err := event.Validate(); err != nil {
		return NewPermanentError("invalid stage change", err)
	}

	contact, err := h.store.GetContactByManychatID(ctx, event.ManychatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Intake verified the contact existed, so a miss here
			// means it was deleted afterwards.
			return NewPermanentError(fmt.Sprintf("contact %s no longer exists", event.ManychatID), nil)
		}
		return fmt.Errorf("load contact %s: %w", event.ManychatID, err)
	}

	stageID, ok := models.StageIDForLabel(event.StageManychat)
	if !ok {
		h.appendLog(ctx, event.ManychatID, models.SyncActionMappingUnknown,
			models.SyncStatusError, "unknown stage label: "+event.StageManychat)
		return NewPermanentError("unknown stage label "+event.StageManychat, nil)
	}

	// Intake appends the state row synchronously and passes its id
	// along; only replays and hand-crafted events arrive without one.
	if event.ContactStateID == 0 {
		if _, err := h.store.AppendContactState(ctx, contact.ID, event.StageManychat, models.StateCategoryManychat); err != nil {
			return fmt.Errorf("append contact state: %w", err)
		}
	}

	action, err := h.applyStage(ctx, contact, event, int64(stageID))
	if err != nil {
		var fault *odoo.Fault
		if errors.As(err, &fault) {
			h.markSync(ctx, contact, models.SyncError)
			h.appendLog(ctx, event.ManychatID, models.SyncActionUpdated, models.SyncStatusError, fault.Error())
			return NewPermanentError("odoo rejected stage change", fault)
		}
		return fmt.Errorf("apply stage %d for %s: %w", stageID, event.ManychatID, err)
	}

	h.markSync(ctx, contact, models.SyncSuccess)
	h.appendLog(ctx, event.ManychatID, action, models.SyncStatusOK, "stage "+event.StageManychat)

	logging.Info().
		Str("manychat_id", event.ManychatID).
		Str("stage", event.StageManychat).
		Int("stage_id", stageID).
		Str("action", action).
		Msg("stage change applied")
	return nil
}

// applyStage runs the transition rule against the latest opportunity
// and returns the sync-log action describing what happened.
func (h *opportunityHandler) applyStage(ctx context.Context, contact *models.Contact, event models.StageChange, stageID int64) (string, error) {
	latest, err := h.gateway.FindOpportunityByManychatID(ctx, event.ManychatID)
	if err != nil {
		return "", err
	}

	if latest != nil && models.IsTerminalStage(int(latest.StageID)) {
		if latest.StageID == stageID {
			// Duplicate confirmation of an already-closed sale; no
			// Odoo write.
			return models.SyncActionSkippedTerminal, nil
		}
		// A post-sale stage change opens a fresh opportunity.
		_, _, err := h.gateway.CreateOrUpdateOpportunity(ctx, event.ManychatID, opportunityName(contact), stageID)
		if err != nil {
			return "", err
		}
		return models.SyncActionCreated, nil
	}

	if latest == nil {
		_, created, err := h.gateway.CreateOrUpdateOpportunity(ctx, event.ManychatID, opportunityName(contact), stageID)
		if err != nil {
			return "", err
		}
		if created {
			return models.SyncActionCreated, nil
		}
		return models.SyncActionUpdated, nil
	}

	moved, err := h.gateway.UpdateOpportunityStage(ctx, event.ManychatID, stageID)
	if err != nil {
		return "", err
	}
	if !moved {
		// The open opportunity vanished between find and write;
		// fall back to create-or-update.
		_, created, err := h.gateway.CreateOrUpdateOpportunity(ctx, event.ManychatID, opportunityName(contact), stageID)
		if err != nil {
			return "", err
		}
		if created {
			return models.SyncActionCreated, nil
		}
	}
	return models.SyncActionUpdated, nil
}

func (h *opportunityHandler) markSync(ctx context.Context, contact *models.Contact, status models.SyncStatus) {
	if err := h.store.SetContactOdooSync(ctx, contact.ID, status, nil); err != nil {
		logging.Error().Err(err).Str("manychat_id", contact.ManychatID).Msg("update contact sync status failed")
	}
}

func (h *opportunityHandler) appendLog(ctx context.Context, manychatID, action, status, detail string) {
	var details *string
	if detail != "" {
		details = &detail
	}
	if _, err := h.store.AppendSyncLog(ctx, &models.SyncLog{
		SourceSystem: models.SourceManychat,
		EntityType:   "opportunity",
		EntityID:     manychatID,
		Action:       action,
		Status:       status,
		Details:      details,
	}); err != nil {
		logging.Error().Err(err).Str("manychat_id", manychatID).Msg("append sync log failed")
	}
}

func opportunityName(contact *models.Contact) string {
	name := contact.FirstName
	if contact.LastName != nil && *contact.LastName != "" {
		name += " " + *contact.LastName
	}
	if name == "" {
		return contact.ManychatID
	}
	return name
}

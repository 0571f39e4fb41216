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
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// NewCampaignWorker consumes the campaign queue and maintains the
// single logical (contact, campaign) assignment row.
func NewCampaignWorker(fabric queue.Fabric, st Datastore, opts Options) *Worker {
	h := &campaignHandler{store: st}
	return New(queue.QueueCampaign, fabric, h.handle, opts)
}

type campaignHandler struct {
	store Datastore
}

func (h *campaignHandler) handle(ctx context.Context, msg *queue.Message) error {
	var event models.CampaignAssignment
	if err := json.Unmarshal(msg.Content, &event); err != nil {
		return NewPermanentError("malformed campaign assignment", err)
	}
	if err := event.Validate(); err != nil {
		return NewPermanentError("invalid campaign assignment", err)
	}

	contact, err := h.store.GetContactByManychatID(ctx, event.ManychatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewPermanentError(fmt.Sprintf("contact %s does not exist", event.ManychatID), nil)
		}
		return fmt.Errorf("load contact %s: %w", event.ManychatID, err)
	}

	if _, err := h.store.GetCampaign(ctx, event.CampaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewPermanentError(fmt.Sprintf("campaign %d does not exist", event.CampaignID), nil)
		}
		return fmt.Errorf("load campaign %d: %w", event.CampaignID, err)
	}

	commercialID := h.resolveAdvisor(ctx, event.CommercialID, event.ManychatID, "commercial")
	medicalID := h.resolveAdvisor(ctx, event.MedicalID, event.ManychatID, "medical")

	// assignment_type lands in lead_state; last_state carries the
	// funnel state verbatim.
	lastState := event.LastState
	leadState := event.AssignmentType

	assignment, err := h.store.UpsertCampaignContact(ctx, store.CampaignContactUpsert{
		ContactID:           contact.ID,
		CampaignID:          event.CampaignID,
		CommercialAdvisorID: commercialID,
		MedicalAdvisorID:    medicalID,
		RegistrationDate:    event.EntryDate,
		LastState:           &lastState,
		LeadState:           &leadState,
	})
	if err != nil {
		return fmt.Errorf("upsert assignment (%s, %d): %w", event.ManychatID, event.CampaignID, err)
	}

	logging.Info().
		Str("manychat_id", event.ManychatID).
		Int64("campaign_id", event.CampaignID).
		Int64("assignment_id", assignment.ID).
		Msg("campaign assignment applied")
	return nil
}

// resolveAdvisor maps an advisor reference (numeric id or email) to a
// local advisor id. Unknown references degrade to an unassigned slot
// rather than failing the event.
func (h *campaignHandler) resolveAdvisor(ctx context.Context, ref *string, manychatID, role string) *int64 {
	if ref == nil || *ref == "" {
		return nil
	}
	advisor, err := h.store.FindAdvisorByRef(ctx, *ref)
	if err != nil {
		logging.Warn().
			Err(err).
			Str("manychat_id", manychatID).
			Str("role", role).
			Str("ref", *ref).
			Msg("advisor reference not resolved, leaving unassigned")
		return nil
	}
	return &advisor.ID
}

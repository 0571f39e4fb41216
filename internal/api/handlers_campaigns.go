// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/store"
)

// validate checks operator request bodies. Webhook payloads have their
// own validation on the event types.
var validate = validator.New(validator.WithRequiredStructEnabled())

type campaignRequest struct {
	Name      string     `json:"name" validate:"required"`
	DateStart time.Time  `json:"date_start" validate:"required"`
	DateEnd   *time.Time `json:"date_end,omitempty"`
	Budget    *float64   `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Status    *string    `json:"status,omitempty"`
	ChannelID *int64     `json:"channel_id,omitempty"`
}

func (req campaignRequest) model() *models.Campaign {
	return &models.Campaign{
		Name:      req.Name,
		DateStart: req.DateStart,
		DateEnd:   req.DateEnd,
		Budget:    req.Budget,
		Status:    req.Status,
		ChannelID: req.ChannelID,
	}
}

func (rt *Router) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}
	if req.DateEnd != nil && req.DateEnd.Before(req.DateStart) {
		writeError(w, http.StatusBadRequest, map[string]string{"date_end": "must not precede date_start"})
		return
	}

	campaign, err := rt.store.CreateCampaign(r.Context(), req.model())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (rt *Router) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := rt.store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (rt *Router) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	campaign, err := rt.store.GetCampaign(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (rt *Router) listCampaignContacts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	if _, err := rt.store.GetCampaign(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	assignments, err := rt.store.ListCampaignContacts(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (rt *Router) updateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}

	campaign, err := rt.store.UpdateCampaign(r.Context(), id, req.model())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (rt *Router) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	if err := rt.store.DeleteCampaign(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"errors"
	"net/http"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/store"
)

type channelRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

func (rt *Router) createChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}

	channel, err := rt.store.CreateChannel(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, channel)
}

func (rt *Router) listChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := rt.store.ListChannels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (rt *Router) getChannel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	channel, err := rt.store.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (rt *Router) updateChannel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}

	channel, err := rt.store.UpdateChannel(r.Context(), id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, channel)
}

func (rt *Router) deleteChannel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	if err := rt.store.DeleteChannel(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

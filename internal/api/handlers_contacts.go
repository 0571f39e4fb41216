// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/velasystems/leadbus/internal/store"
)

func (rt *Router) listContacts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	contacts, err := rt.store.ListContacts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (rt *Router) getContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	contact, err := rt.store.GetContact(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	states, err := rt.store.ListContactStates(r.Context(), id, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contact": contact,
		"states":  states,
	})
}

func (rt *Router) deleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	if err := rt.store.DeleteContact(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "contact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

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

type advisorRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (req advisorRequest) model() *models.Advisor {
	a := &models.Advisor{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	return a
}

func (rt *Router) createAdvisor(w http.ResponseWriter, r *http.Request) {
	var req advisorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}

	advisor, err := rt.store.CreateAdvisor(r.Context(), req.model())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, advisor)
}

func (rt *Router) listAdvisors(w http.ResponseWriter, r *http.Request) {
	advisors, err := rt.store.ListAdvisors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, advisors)
}

func (rt *Router) getAdvisor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	advisor, err := rt.store.GetAdvisor(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "advisor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, advisor)
}

func (rt *Router) updateAdvisor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	var req advisorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"payload": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, models.ValidationErrorDetail(err))
		return
	}

	advisor, err := rt.store.UpdateAdvisor(r.Context(), id, req.model())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "advisor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, advisor)
}

func (rt *Router) deleteAdvisor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, map[string]string{"id": "must be an integer"})
		return
	}

	if err := rt.store.DeleteAdvisor(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "advisor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

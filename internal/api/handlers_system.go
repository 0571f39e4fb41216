// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"net/http"
)

func (rt *Router) healthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthReady reports whether both backends answer. Any failure makes
// the whole probe fail so orchestrators stop routing traffic here.
func (rt *Router) healthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok", "queue": "ok"}
	healthy := true

	if err := rt.store.Ping(r.Context()); err != nil {
		checks["store"] = err.Error()
		healthy = false
	}
	if err := rt.fabric.Ping(r.Context()); err != nil {
		checks["queue"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.store.CollectStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	logs, err := rt.store.ListSyncLogs(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totals":           stats,
		"recent_sync_logs": logs,
	})
}

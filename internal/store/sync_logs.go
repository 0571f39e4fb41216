// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package store

import (
	"context"
	"fmt"

	"github.com/velasystems/leadbus/internal/models"
)

// AppendSyncLog writes one audit row. Sync logs are append-only.
func (s *Store) AppendSyncLog(ctx context.Context, l *models.SyncLog) (*models.SyncLog, error) {
	err := s.db.QueryRow(ctx, `
		INSERT INTO sync_logs (source_system, entity_type, entity_id, action, status, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		l.SourceSystem, l.EntityType, l.EntityID, l.Action, l.Status, l.Details,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append sync log: %w", err)
	}
	return l, nil
}

// ListSyncLogs returns the newest audit rows.
func (s *Store) ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, source_system, entity_type, entity_id, action, status, details, created_at
		FROM sync_logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []models.SyncLog
	for rows.Next() {
		var l models.SyncLog
		if err := rows.Scan(&l.ID, &l.SourceSystem, &l.EntityType, &l.EntityID,
			&l.Action, &l.Status, &l.Details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Stats summarizes row counts and contact sync-status breakdown for the
// operator stats endpoint.
type Stats struct {
	Contacts         int64            `json:"contacts"`
	ContactStates    int64            `json:"contact_states"`
	Channels         int64            `json:"channels"`
	Campaigns        int64            `json:"campaigns"`
	Advisors         int64            `json:"advisors"`
	CampaignContacts int64            `json:"campaign_contacts"`
	SyncLogs         int64            `json:"sync_logs"`
	ContactsBySync   map[string]int64 `json:"contacts_by_sync_status"`
}

// CollectStats gathers the stats snapshot in one round trip per table.
func (s *Store) CollectStats(ctx context.Context) (*Stats, error) {
	st := &Stats{ContactsBySync: make(map[string]int64)}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"contacts", &st.Contacts},
		{"contact_states", &st.ContactStates},
		{"channels", &st.Channels},
		{"campaigns", &st.Campaigns},
		{"advisors", &st.Advisors},
		{"campaign_contacts", &st.CampaignContacts},
		{"sync_logs", &st.SyncLogs},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(ctx, `SELECT count(*) FROM `+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	rows, err := s.db.Query(ctx,
		`SELECT odoo_sync_status, count(*) FROM contacts GROUP BY odoo_sync_status`)
	if err != nil {
		return nil, fmt.Errorf("sync status breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sync status: %w", err)
		}
		st.ContactsBySync[status] = n
	}
	return st, rows.Err()
}

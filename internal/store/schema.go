// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. Table order matters:
// channels before contacts and campaigns, both before campaign_contacts.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS channels (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id               BIGSERIAL PRIMARY KEY,
		manychat_id      TEXT NOT NULL UNIQUE CHECK (manychat_id <> ''),
		first_name       TEXT NOT NULL,
		last_name        TEXT,
		email            TEXT,
		phone            TEXT,
		channel_id       BIGINT REFERENCES channels(id),
		entry_date       TIMESTAMPTZ NOT NULL,
		odoo_contact_id  BIGINT,
		odoo_sync_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (odoo_sync_status IN ('pending', 'success', 'error')),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS contact_states (
		id         BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		state      TEXT NOT NULL,
		category   TEXT NOT NULL DEFAULT 'manychat',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contact_states_contact
		ON contact_states (contact_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		date_start TIMESTAMPTZ NOT NULL,
		date_end   TIMESTAMPTZ,
		budget     NUMERIC(14, 2),
		status     TEXT,
		channel_id BIGINT REFERENCES channels(id),
		CHECK (date_end IS NULL OR date_end >= date_start)
	)`,
	`CREATE TABLE IF NOT EXISTS advisors (
		id        BIGSERIAL PRIMARY KEY,
		name      TEXT NOT NULL,
		email     TEXT NOT NULL UNIQUE,
		role      TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS campaign_contacts (
		id                    BIGSERIAL PRIMARY KEY,
		contact_id            BIGINT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
		campaign_id           BIGINT NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		commercial_advisor_id BIGINT REFERENCES advisors(id),
		medical_advisor_id    BIGINT REFERENCES advisors(id),
		registration_date     TIMESTAMPTZ NOT NULL,
		last_state            TEXT,
		lead_state            TEXT,
		UNIQUE (contact_id, campaign_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_logs (
		id            BIGSERIAL PRIMARY KEY,
		source_system TEXT NOT NULL,
		entity_type   TEXT NOT NULL,
		entity_id     TEXT NOT NULL,
		action        TEXT NOT NULL,
		status        TEXT NOT NULL,
		details       TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_logs_entity
		ON sync_logs (entity_type, entity_id, created_at DESC)`,
}

// ensureSchema applies the DDL statements in order.
func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

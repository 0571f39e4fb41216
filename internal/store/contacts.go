// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/velasystems/leadbus/internal/models"
)

const contactColumns = `id, manychat_id, first_name, last_name, email, phone,
	channel_id, entry_date, odoo_contact_id, odoo_sync_status, created_at, updated_at`

// ContactUpsert carries the writable contact fields of a contact event.
// Nil optionals leave the stored value untouched on update.
type ContactUpsert struct {
	ManychatID string
	FirstName  string
	LastName   *string
	Email      *string
	Phone      *string
	ChannelID  *int64
	EntryDate  time.Time
}

// UpsertContact creates the contact on first sight of its manychat_id
// and updates only the non-nil fields thereafter. The manychat_id
// itself never mutates.
func (s *Store) UpsertContact(ctx context.Context, in ContactUpsert) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (manychat_id, first_name, last_name, email, phone, channel_id, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (manychat_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = COALESCE(EXCLUDED.last_name, contacts.last_name),
			email      = COALESCE(EXCLUDED.email, contacts.email),
			phone      = COALESCE(EXCLUDED.phone, contacts.phone),
			channel_id = COALESCE(EXCLUDED.channel_id, contacts.channel_id),
			updated_at = now()
		RETURNING ` + contactColumns

	row := s.db.QueryRow(ctx, query,
		in.ManychatID, in.FirstName, in.LastName, in.Email, in.Phone, in.ChannelID, in.EntryDate)
	return scanContact(row)
}

// GetContactByManychatID looks a contact up by its external identity.
func (s *Store) GetContactByManychatID(ctx context.Context, manychatID string) (*models.Contact, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE manychat_id = $1`, manychatID)
	return scanContact(row)
}

// GetContact looks a contact up by surrogate id.
func (s *Store) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	return scanContact(row)
}

// ListContacts returns contacts ordered by recency.
func (s *Store) ListContacts(ctx context.Context, limit, offset int) ([]models.Contact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// SetContactOdooSync sets the sync status and, when non-nil, the Odoo
// partner id resolved for the contact.
func (s *Store) SetContactOdooSync(ctx context.Context, id int64, status models.SyncStatus, odooContactID *int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE contacts
		SET odoo_sync_status = $2,
		    odoo_contact_id  = COALESCE($3, odoo_contact_id),
		    updated_at       = now()
		WHERE id = $1`, id, status, odooContactID)
	if err != nil {
		return fmt.Errorf("set contact sync status: %w", err)
	}
	return nil
}

// MarkContactSyncPendingByManychatID flips odoo_sync_status to pending.
// Used by the stage-change intake before the event is enqueued.
func (s *Store) MarkContactSyncPendingByManychatID(ctx context.Context, manychatID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE contacts SET odoo_sync_status = 'pending', updated_at = now()
		WHERE manychat_id = $1`, manychatID)
	if err != nil {
		return fmt.Errorf("mark contact pending: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContact removes a contact; its state history and campaign
// assignments cascade.
func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(
		&c.ID, &c.ManychatID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.ChannelID, &c.EntryDate, &c.OdooContactID, &c.OdooSyncStatus,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	return &c, nil
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velasystems/leadbus/internal/models"
)

// AppendContactState appends one row to a contact's state history.
func (s *Store) AppendContactState(ctx context.Context, contactID int64, state, category string) (*models.ContactState, error) {
	if category == "" {
		category = models.StateCategoryManychat
	}

	var cs models.ContactState
	err := s.db.QueryRow(ctx, `
		INSERT INTO contact_states (contact_id, state, category)
		VALUES ($1, $2, $3)
		RETURNING id, contact_id, state, category, created_at`,
		contactID, state, category,
	).Scan(&cs.ID, &cs.ContactID, &cs.State, &cs.Category, &cs.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append contact state: %w", err)
	}
	return &cs, nil
}

// LatestContactState returns the current state: the newest row by
// created_at. ErrNotFound when the contact has no history yet.
func (s *Store) LatestContactState(ctx context.Context, contactID int64) (*models.ContactState, error) {
	var cs models.ContactState
	err := s.db.QueryRow(ctx, `
		SELECT id, contact_id, state, category, created_at
		FROM contact_states
		WHERE contact_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, contactID,
	).Scan(&cs.ID, &cs.ContactID, &cs.State, &cs.Category, &cs.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest contact state: %w", err)
	}
	return &cs, nil
}

// ListContactStates returns a contact's state history, newest first.
func (s *Store) ListContactStates(ctx context.Context, contactID int64, limit int) ([]models.ContactState, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, contact_id, state, category, created_at
		FROM contact_states
		WHERE contact_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("list contact states: %w", err)
	}
	defer rows.Close()

	var states []models.ContactState
	for rows.Next() {
		var cs models.ContactState
		if err := rows.Scan(&cs.ID, &cs.ContactID, &cs.State, &cs.Category, &cs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact state: %w", err)
		}
		states = append(states, cs)
	}
	return states, rows.Err()
}

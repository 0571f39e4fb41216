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

// GetOrCreateChannel resolves a channel by name, creating it on first
// reference. The no-op DO UPDATE makes the insert return the existing
// row instead of nothing on conflict.
func (s *Store) GetOrCreateChannel(ctx context.Context, name string) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.QueryRow(ctx, `
		INSERT INTO channels (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description`, name,
	).Scan(&ch.ID, &ch.Name, &ch.Description)
	if err != nil {
		return nil, fmt.Errorf("get or create channel: %w", err)
	}
	return &ch, nil
}

// CreateChannel inserts a channel with an optional description.
func (s *Store) CreateChannel(ctx context.Context, name string, description *string) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.QueryRow(ctx, `
		INSERT INTO channels (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description`, name, description,
	).Scan(&ch.ID, &ch.Name, &ch.Description)
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return &ch, nil
}

// GetChannel looks a channel up by id.
func (s *Store) GetChannel(ctx context.Context, id int64) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description FROM channels WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.Name, &ch.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

// ListChannels returns all channels ordered by name.
func (s *Store) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, description FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateChannel replaces a channel's name and description.
func (s *Store) UpdateChannel(ctx context.Context, id int64, name string, description *string) (*models.Channel, error) {
	var ch models.Channel
	err := s.db.QueryRow(ctx, `
		UPDATE channels SET name = $2, description = $3
		WHERE id = $1
		RETURNING id, name, description`, id, name, description,
	).Scan(&ch.ID, &ch.Name, &ch.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update channel: %w", err)
	}
	return &ch, nil
}

// DeleteChannel removes a channel.
func (s *Store) DeleteChannel(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

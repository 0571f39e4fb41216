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

const campaignColumns = `id, name, date_start, date_end, budget, status, channel_id`

// CreateCampaign inserts a campaign.
func (s *Store) CreateCampaign(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO campaigns (name, date_start, date_end, budget, status, channel_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+campaignColumns,
		c.Name, c.DateStart, c.DateEnd, c.Budget, c.Status, c.ChannelID)
	return scanCampaign(row)
}

// GetCampaign looks a campaign up by id.
func (s *Store) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

// ListCampaigns returns campaigns ordered by start date, newest first.
func (s *Store) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY date_start DESC`)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaign replaces the mutable fields of a campaign.
func (s *Store) UpdateCampaign(ctx context.Context, id int64, c *models.Campaign) (*models.Campaign, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE campaigns
		SET name = $2, date_start = $3, date_end = $4, budget = $5, status = $6, channel_id = $7
		WHERE id = $1
		RETURNING `+campaignColumns,
		id, c.Name, c.DateStart, c.DateEnd, c.Budget, c.Status, c.ChannelID)
	return scanCampaign(row)
}

// DeleteCampaign removes a campaign; its assignments cascade.
func (s *Store) DeleteCampaign(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.Name, &c.DateStart, &c.DateEnd, &c.Budget, &c.Status, &c.ChannelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	return &c, nil
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/velasystems/leadbus/internal/models"
)

const advisorColumns = `id, name, email, role, is_active`

// CreateAdvisor inserts an advisor.
func (s *Store) CreateAdvisor(ctx context.Context, a *models.Advisor) (*models.Advisor, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO advisors (name, email, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+advisorColumns,
		a.Name, a.Email, a.Role, a.IsActive)
	return scanAdvisor(row)
}

// GetAdvisor looks an advisor up by id.
func (s *Store) GetAdvisor(ctx context.Context, id int64) (*models.Advisor, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+advisorColumns+` FROM advisors WHERE id = $1`, id)
	return scanAdvisor(row)
}

// FindAdvisorByRef resolves an advisor reference from a webhook, which
// may be a numeric id or an email address.
func (s *Store) FindAdvisorByRef(ctx context.Context, ref string) (*models.Advisor, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.GetAdvisor(ctx, id)
	}
	row := s.db.QueryRow(ctx,
		`SELECT `+advisorColumns+` FROM advisors WHERE email = $1`, ref)
	return scanAdvisor(row)
}

// ListAdvisors returns all advisors ordered by name.
func (s *Store) ListAdvisors(ctx context.Context) ([]models.Advisor, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+advisorColumns+` FROM advisors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list advisors: %w", err)
	}
	defer rows.Close()

	var advisors []models.Advisor
	for rows.Next() {
		a, err := scanAdvisor(rows)
		if err != nil {
			return nil, err
		}
		advisors = append(advisors, *a)
	}
	return advisors, rows.Err()
}

// UpdateAdvisor replaces the mutable fields of an advisor.
func (s *Store) UpdateAdvisor(ctx context.Context, id int64, a *models.Advisor) (*models.Advisor, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE advisors
		SET name = $2, email = $3, role = $4, is_active = $5
		WHERE id = $1
		RETURNING `+advisorColumns,
		id, a.Name, a.Email, a.Role, a.IsActive)
	return scanAdvisor(row)
}

// DeleteAdvisor removes an advisor.
func (s *Store) DeleteAdvisor(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM advisors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete advisor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAdvisor(row pgx.Row) (*models.Advisor, error) {
	var a models.Advisor
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan advisor: %w", err)
	}
	return &a, nil
}

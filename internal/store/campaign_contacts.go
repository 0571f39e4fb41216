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

const campaignContactColumns = `id, contact_id, campaign_id, commercial_advisor_id,
	medical_advisor_id, registration_date, last_state, lead_state`

// CampaignContactUpsert carries one campaign-assignment write. Nil
// advisor ids leave any previously assigned advisor in place.
type CampaignContactUpsert struct {
	ContactID           int64
	CampaignID          int64
	CommercialAdvisorID *int64
	MedicalAdvisorID    *int64
	RegistrationDate    time.Time
	LastState           *string
	LeadState           *string
}

// UpsertCampaignContact creates or mutates the single logical
// assignment for (contact_id, campaign_id).
func (s *Store) UpsertCampaignContact(ctx context.Context, in CampaignContactUpsert) (*models.CampaignContact, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO campaign_contacts
			(contact_id, campaign_id, commercial_advisor_id, medical_advisor_id,
			 registration_date, last_state, lead_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (contact_id, campaign_id) DO UPDATE SET
			commercial_advisor_id = COALESCE(EXCLUDED.commercial_advisor_id, campaign_contacts.commercial_advisor_id),
			medical_advisor_id    = COALESCE(EXCLUDED.medical_advisor_id, campaign_contacts.medical_advisor_id),
			last_state            = COALESCE(EXCLUDED.last_state, campaign_contacts.last_state),
			lead_state            = COALESCE(EXCLUDED.lead_state, campaign_contacts.lead_state)
		RETURNING `+campaignContactColumns,
		in.ContactID, in.CampaignID, in.CommercialAdvisorID, in.MedicalAdvisorID,
		in.RegistrationDate, in.LastState, in.LeadState)
	return scanCampaignContact(row)
}

// GetCampaignContact returns the assignment for a (contact, campaign)
// pair, ErrNotFound when none exists.
func (s *Store) GetCampaignContact(ctx context.Context, contactID, campaignID int64) (*models.CampaignContact, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+campaignContactColumns+` FROM campaign_contacts
		 WHERE contact_id = $1 AND campaign_id = $2`, contactID, campaignID)
	return scanCampaignContact(row)
}

// ListCampaignContacts returns the assignments of one campaign.
func (s *Store) ListCampaignContacts(ctx context.Context, campaignID int64) ([]models.CampaignContact, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+campaignContactColumns+` FROM campaign_contacts
		 WHERE campaign_id = $1 ORDER BY registration_date DESC`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list campaign contacts: %w", err)
	}
	defer rows.Close()

	var assignments []models.CampaignContact
	for rows.Next() {
		cc, err := scanCampaignContact(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *cc)
	}
	return assignments, rows.Err()
}

func scanCampaignContact(row pgx.Row) (*models.CampaignContact, error) {
	var cc models.CampaignContact
	err := row.Scan(&cc.ID, &cc.ContactID, &cc.CampaignID, &cc.CommercialAdvisorID,
		&cc.MedicalAdvisorID, &cc.RegistrationDate, &cc.LastState, &cc.LeadState)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign contact: %w", err)
	}
	return &cc, nil
}

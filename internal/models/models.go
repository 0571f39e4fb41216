// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package models defines the canonical data model shared by the store,
// the queue fabric, and the workers: persisted entities, the tagged
// webhook event variants, the dead-letter envelope, and the fixed
// ManyChat-stage to Odoo-stage mapping.
package models

import "time"

// SyncStatus tracks whether an entity has been mirrored into Odoo.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// StateCategory classifies the origin of a contact state row.
const StateCategoryManychat = "manychat"

// Contact is a person acquired through ManyChat. ManychatID is the
// external identity and never mutates after creation.
type Contact struct {
	ID             int64      `json:"id"`
	ManychatID     string     `json:"manychat_id"`
	FirstName      string     `json:"first_name"`
	LastName       *string    `json:"last_name,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	ChannelID      *int64     `json:"channel_id,omitempty"`
	EntryDate      time.Time  `json:"entry_date"`
	OdooContactID  *int64     `json:"odoo_contact_id,omitempty"`
	OdooSyncStatus SyncStatus `json:"odoo_sync_status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ContactState is one row of a contact's append-only state history.
// The latest row by CreatedAt is the current state.
type ContactState struct {
	ID        int64     `json:"id"`
	ContactID int64     `json:"contact_id"`
	State     string    `json:"state"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel is an acquisition channel (WhatsApp, Instagram, ...).
// Channels are auto-created on first reference by name.
type Channel struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Campaign is a marketing campaign contacts get assigned to.
type Campaign struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	DateStart time.Time  `json:"date_start"`
	DateEnd   *time.Time `json:"date_end,omitempty"`
	Budget    *float64   `json:"budget,omitempty"`
	Status    *string    `json:"status,omitempty"`
	ChannelID *int64     `json:"channel_id,omitempty"`
}

// Advisor is shared reference data for commercial and medical advisors.
type Advisor struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     *string `json:"role,omitempty"`
	IsActive bool    `json:"is_active"`
}

// CampaignContact is the single logical assignment of a contact to a
// campaign, unique on (ContactID, CampaignID). The advisor references
// are disambiguated by role; never infer the role from the row.
type CampaignContact struct {
	ID                  int64     `json:"id"`
	ContactID           int64     `json:"contact_id"`
	CampaignID          int64     `json:"campaign_id"`
	CommercialAdvisorID *int64    `json:"commercial_advisor_id,omitempty"`
	MedicalAdvisorID    *int64    `json:"medical_advisor_id,omitempty"`
	RegistrationDate    time.Time `json:"registration_date"`
	LastState           *string   `json:"last_state,omitempty"`
	LeadState           *string   `json:"lead_state,omitempty"`
}

// SyncLog is a free-standing, append-only audit trail of propagation
// attempts toward external systems.
type SyncLog struct {
	ID           int64     `json:"id"`
	SourceSystem string    `json:"source_system"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	Details      *string   `json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SyncLog actions written by the workers.
const (
	SyncActionCreated         = "created"
	SyncActionUpdated         = "updated"
	SyncActionSkippedTerminal = "skipped_terminal"
	SyncActionMappingUnknown  = "mapping_unknown"
	SyncActionPartnerSynced   = "partner_synced"
)

// SyncLog statuses.
const (
	SyncStatusOK    = "success"
	SyncStatusError = "error"
)

// Source systems recorded in sync logs.
const (
	SourceManychat = "manychat"
	SourceOdoo     = "odoo"
)

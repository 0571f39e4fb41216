// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import (
	"context"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/odoo"
	"github.com/velasystems/leadbus/internal/store"
)

// CRMGateway is the Odoo surface the workers depend on. *odoo.Gateway
// satisfies it; tests substitute a fake.
type CRMGateway interface {
	CreateOrUpdatePartner(ctx context.Context, p odoo.Partner) (int64, error)
	FindOpportunityByManychatID(ctx context.Context, manychatID string) (*odoo.Opportunity, error)
	CreateOrUpdateOpportunity(ctx context.Context, manychatID, name string, stageID int64) (int64, bool, error)
	UpdateOpportunityStage(ctx context.Context, manychatID string, stageID int64) (bool, error)
}

// Datastore is the slice of the relational store the workers touch.
// *store.Store satisfies it; tests substitute a fake.
type Datastore interface {
	GetOrCreateChannel(ctx context.Context, name string) (*models.Channel, error)
	UpsertContact(ctx context.Context, in store.ContactUpsert) (*models.Contact, error)
	GetContactByManychatID(ctx context.Context, manychatID string) (*models.Contact, error)
	LatestContactState(ctx context.Context, contactID int64) (*models.ContactState, error)
	AppendContactState(ctx context.Context, contactID int64, state, category string) (*models.ContactState, error)
	SetContactOdooSync(ctx context.Context, id int64, status models.SyncStatus, odooContactID *int64) error
	AppendSyncLog(ctx context.Context, l *models.SyncLog) (*models.SyncLog, error)
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	FindAdvisorByRef(ctx context.Context, ref string) (*models.Advisor, error)
	UpsertCampaignContact(ctx context.Context, in store.CampaignContactUpsert) (*models.CampaignContact, error)
}

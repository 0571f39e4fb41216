// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import (
	"context"
	"testing"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/odoo"
)

// fakeGateway plays the Odoo side of the transition rules from a
// scripted latest opportunity.
type fakeGateway struct {
	latest *odoo.Opportunity

	partners int
	creates  int
	updates  int
	finds    int
}

func (g *fakeGateway) CreateOrUpdatePartner(context.Context, odoo.Partner) (int64, error) {
	g.partners++
	return 1, nil
}

func (g *fakeGateway) FindOpportunityByManychatID(context.Context, string) (*odoo.Opportunity, error) {
	g.finds++
	return g.latest, nil
}

func (g *fakeGateway) CreateOrUpdateOpportunity(_ context.Context, manychatID, name string, stageID int64) (int64, bool, error) {
	// Mirrors the gateway contract: a terminal latest counts as
	// absent, so this path always creates in these scenarios.
	g.creates++
	return 100, true, nil
}

func (g *fakeGateway) UpdateOpportunityStage(_ context.Context, _ string, stageID int64) (bool, error) {
	if g.latest == nil || models.IsTerminalStage(int(g.latest.StageID)) {
		return false, nil
	}
	g.updates++
	g.latest.StageID = stageID
	return true, nil
}

func testContact() *models.Contact {
	last := "Doe"
	return &models.Contact{ID: 1, ManychatID: "mc-1", FirstName: "Jane", LastName: &last}
}

func TestApplyStage(t *testing.T) {
	tests := []struct {
		name        string
		latest      *odoo.Opportunity
		stageID     int64
		wantAction  string
		wantCreates int
		wantUpdates int
	}{
		{
			name:        "no opportunity creates one",
			latest:      nil,
			stageID:     16,
			wantAction:  models.SyncActionCreated,
			wantCreates: 1,
		},
		{
			name:        "open opportunity moves forward",
			latest:      &odoo.Opportunity{ID: 5, StageID: 17, ManychatID: "mc-1"},
			stageID:     18,
			wantAction:  models.SyncActionUpdated,
			wantUpdates: 1,
		},
		{
			name:       "terminal with same stage is skipped",
			latest:     &odoo.Opportunity{ID: 5, StageID: 26, ManychatID: "mc-1"},
			stageID:    26,
			wantAction: models.SyncActionSkippedTerminal,
		},
		{
			name:        "stage change after confirmed sale opens fresh opportunity",
			latest:      &odoo.Opportunity{ID: 5, StageID: 26, ManychatID: "mc-1"},
			stageID:     16,
			wantAction:  models.SyncActionCreated,
			wantCreates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{latest: tt.latest}
			h := &opportunityHandler{gateway: gw}

			event := models.StageChange{ManychatID: "mc-1", StageManychat: "x"}
			action, err := h.applyStage(context.Background(), testContact(), event, tt.stageID)
			if err != nil {
				t.Fatalf("applyStage: %v", err)
			}
			if action != tt.wantAction {
				t.Errorf("action = %q, want %q", action, tt.wantAction)
			}
			if gw.creates != tt.wantCreates {
				t.Errorf("creates = %d, want %d", gw.creates, tt.wantCreates)
			}
			if gw.updates != tt.wantUpdates {
				t.Errorf("updates = %d, want %d", gw.updates, tt.wantUpdates)
			}
		})
	}
}

func TestOpportunityName(t *testing.T) {
	t.Run("full name", func(t *testing.T) {
		if got := opportunityName(testContact()); got != "Jane Doe" {
			t.Errorf("name = %q, want %q", got, "Jane Doe")
		}
	})
	t.Run("falls back to manychat id", func(t *testing.T) {
		c := &models.Contact{ManychatID: "mc-9"}
		if got := opportunityName(c); got != "mc-9" {
			t.Errorf("name = %q, want %q", got, "mc-9")
		}
	})
}

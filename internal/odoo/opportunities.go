// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/models"
)

const leadModel = "crm.lead"

// Opportunity is the subset of crm.lead fields the bus works with.
type Opportunity struct {
	ID         int64
	Name       string
	StageID    int64
	ManychatID string
}

// odooLead mirrors the search_read row shape. stage_id arrives as the
// many2one pair [id, display_name].
type odooLead struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	StageID    json.RawMessage `json:"stage_id"`
	ManychatID string          `json:"x_manychat_id"`
}

func (l odooLead) opportunity() Opportunity {
	opp := Opportunity{ID: l.ID, Name: l.Name, ManychatID: l.ManychatID}
	var pair []json.RawMessage
	if err := json.Unmarshal(l.StageID, &pair); err == nil && len(pair) > 0 {
		_ = json.Unmarshal(pair[0], &opp.StageID)
	} else {
		_ = json.Unmarshal(l.StageID, &opp.StageID)
	}
	return opp
}

func openStageIDs() []int64 {
	ids := make([]int64, 0, len(models.StageMapping))
	for _, id := range models.StageMapping {
		if !models.IsTerminalStage(id) {
			ids = append(ids, int64(id))
		}
	}
	return ids
}

// FindOpportunityByManychatID returns the most recently created
// opportunity tagged with manychatID, or nil when none exists.
func (g *Gateway) FindOpportunityByManychatID(ctx context.Context, manychatID string) (*Opportunity, error) {
	raw, err := g.ExecuteKw(ctx, leadModel, "search_read",
		[]any{[]any{[]any{"x_manychat_id", "=", manychatID}}},
		map[string]any{
			"fields": []string{"id", "name", "stage_id", "x_manychat_id"},
			"order":  "id desc",
			"limit":  1,
		})
	if err != nil {
		return nil, err
	}

	var leads []odooLead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return nil, fmt.Errorf("decode crm.lead rows: %w", err)
	}
	if len(leads) == 0 {
		return nil, nil
	}

	opp := leads[0].opportunity()
	return &opp, nil
}

// CreateOrUpdateOpportunity moves the open opportunity for manychatID
// to stageID, creating a fresh one when no open opportunity exists.
// Opportunities already in the terminal stage are never reopened. The
// returned bool reports whether a new record was created.
func (g *Gateway) CreateOrUpdateOpportunity(ctx context.Context, manychatID, name string, stageID int64) (int64, bool, error) {
	raw, err := g.ExecuteKw(ctx, leadModel, "search_read",
		[]any{[]any{
			[]any{"x_manychat_id", "=", manychatID},
			[]any{"stage_id", "in", openStageIDs()},
		}},
		map[string]any{
			"fields": []string{"id", "name", "stage_id"},
			"order":  "id desc",
			"limit":  1,
		})
	if err != nil {
		return 0, false, err
	}

	var leads []odooLead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return 0, false, fmt.Errorf("decode crm.lead rows: %w", err)
	}

	if len(leads) > 0 {
		opp := leads[0].opportunity()
		if opp.StageID != stageID {
			if _, err := g.ExecuteKw(ctx, leadModel, "write",
				[]any{[]int64{opp.ID}, map[string]any{"stage_id": stageID}}, nil); err != nil {
				return 0, false, err
			}
		}
		return opp.ID, false, nil
	}

	raw, err = g.ExecuteKw(ctx, leadModel, "create",
		[]any{map[string]any{
			"name":          name,
			"type":          "opportunity",
			"stage_id":      stageID,
			"x_manychat_id": manychatID,
			"referred":      "ManyChat",
		}}, nil)
	if err != nil {
		return 0, false, err
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, false, fmt.Errorf("decode crm.lead create result: %w", err)
	}
	return id, true, nil
}

// UpdateOpportunityStage moves the latest open opportunity for
// manychatID to stageID. It reports false when no open opportunity
// exists; a no-op stage change reports true without writing.
func (g *Gateway) UpdateOpportunityStage(ctx context.Context, manychatID string, stageID int64) (bool, error) {
	raw, err := g.ExecuteKw(ctx, leadModel, "search_read",
		[]any{[]any{
			[]any{"x_manychat_id", "=", manychatID},
			[]any{"stage_id", "in", openStageIDs()},
		}},
		map[string]any{
			"fields": []string{"id", "stage_id"},
			"order":  "id desc",
			"limit":  1,
		})
	if err != nil {
		return false, err
	}

	var leads []odooLead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return false, fmt.Errorf("decode crm.lead rows: %w", err)
	}
	if len(leads) == 0 {
		return false, nil
	}

	opp := leads[0].opportunity()
	if opp.StageID == stageID {
		return true, nil
	}

	if _, err := g.ExecuteKw(ctx, leadModel, "write",
		[]any{[]int64{opp.ID}, map[string]any{"stage_id": stageID}}, nil); err != nil {
		return false, err
	}
	return true, nil
}

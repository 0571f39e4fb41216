// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

const partnerModel = "res.partner"

// Partner carries the contact fields mirrored into Odoo.
type Partner struct {
	ManychatID string
	Name       string
	Phone      string
	Email      string
}

// CreateOrUpdatePartner upserts a res.partner keyed by x_manychat_id
// and returns its Odoo id.
func (g *Gateway) CreateOrUpdatePartner(ctx context.Context, p Partner) (int64, error) {
	raw, err := g.ExecuteKw(ctx, partnerModel, "search",
		[]any{[]any{[]any{"x_manychat_id", "=", p.ManychatID}}},
		map[string]any{"limit": 1})
	if err != nil {
		return 0, err
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return 0, fmt.Errorf("decode res.partner ids: %w", err)
	}

	values := map[string]any{
		"name":          p.Name,
		"x_manychat_id": p.ManychatID,
	}
	if p.Phone != "" {
		values["phone"] = p.Phone
	}
	if p.Email != "" {
		values["email"] = p.Email
	}

	if len(ids) > 0 {
		if _, err := g.ExecuteKw(ctx, partnerModel, "write",
			[]any{ids, values}, nil); err != nil {
			return 0, err
		}
		return ids[0], nil
	}

	raw, err = g.ExecuteKw(ctx, partnerModel, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("decode res.partner create result: %w", err)
	}
	return id, nil
}

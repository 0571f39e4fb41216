// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
)

// leadServer answers crm.lead calls from a canned set of rows and
// records writes and creates.
type leadServer struct {
	open    []map[string]any
	writes  int
	creates int
	nextID  int64
}

func (s *leadServer) respond(req rpcRequest) (any, *rpcError) {
	// execute_kw args: [db, uid, password, model, method, args, kwargs]
	method, _ := req.Params.Args[4].(string)
	switch method {
	case "search_read":
		return s.open, nil
	case "write":
		s.writes++
		return true, nil
	case "create":
		s.creates++
		s.nextID++
		return s.nextID, nil
	}
	return nil, &rpcError{Code: 404, Message: "unexpected method " + method}
}

func TestCreateOrUpdateOpportunity(t *testing.T) {
	t.Run("creates when no open opportunity exists", func(t *testing.T) {
		srv := &leadServer{nextID: 100}
		fake := &fakeOdoo{t: t, respond: srv.respond}
		g := newTestGateway(t, fake, 0)

		id, created, err := g.CreateOrUpdateOpportunity(context.Background(), "mc-1", "Jane Doe", 16)
		if err != nil {
			t.Fatalf("CreateOrUpdateOpportunity: %v", err)
		}
		if !created {
			t.Error("created = false, want true")
		}
		if id != 101 {
			t.Errorf("id = %d, want 101", id)
		}
		if srv.writes != 0 {
			t.Errorf("writes = %d, want 0", srv.writes)
		}
	})

	t.Run("moves existing open opportunity", func(t *testing.T) {
		srv := &leadServer{open: []map[string]any{
			{"id": 55, "name": "Jane Doe", "stage_id": []any{17, "Pendiente de AC"}},
		}}
		fake := &fakeOdoo{t: t, respond: srv.respond}
		g := newTestGateway(t, fake, 0)

		id, created, err := g.CreateOrUpdateOpportunity(context.Background(), "mc-1", "Jane Doe", 18)
		if err != nil {
			t.Fatalf("CreateOrUpdateOpportunity: %v", err)
		}
		if created {
			t.Error("created = true, want false")
		}
		if id != 55 {
			t.Errorf("id = %d, want 55", id)
		}
		if srv.writes != 1 || srv.creates != 0 {
			t.Errorf("writes = %d creates = %d, want 1 and 0", srv.writes, srv.creates)
		}
	})

	t.Run("same stage is a no-op", func(t *testing.T) {
		srv := &leadServer{open: []map[string]any{
			{"id": 55, "name": "Jane Doe", "stage_id": []any{18, "Asignado a AC"}},
		}}
		fake := &fakeOdoo{t: t, respond: srv.respond}
		g := newTestGateway(t, fake, 0)

		_, created, err := g.CreateOrUpdateOpportunity(context.Background(), "mc-1", "Jane Doe", 18)
		if err != nil {
			t.Fatalf("CreateOrUpdateOpportunity: %v", err)
		}
		if created || srv.writes != 0 {
			t.Errorf("created = %v writes = %d, want false and 0", created, srv.writes)
		}
	})
}

func TestUpdateOpportunityStage(t *testing.T) {
	t.Run("reports false when nothing is open", func(t *testing.T) {
		srv := &leadServer{}
		fake := &fakeOdoo{t: t, respond: srv.respond}
		g := newTestGateway(t, fake, 0)

		ok, err := g.UpdateOpportunityStage(context.Background(), "mc-1", 19)
		if err != nil {
			t.Fatalf("UpdateOpportunityStage: %v", err)
		}
		if ok {
			t.Error("ok = true, want false")
		}
	})

	t.Run("writes the new stage", func(t *testing.T) {
		srv := &leadServer{open: []map[string]any{
			{"id": 9, "name": "Jane Doe", "stage_id": []any{18, "Asignado a AC"}},
		}}
		fake := &fakeOdoo{t: t, respond: srv.respond}
		g := newTestGateway(t, fake, 0)

		ok, err := g.UpdateOpportunityStage(context.Background(), "mc-1", 19)
		if err != nil {
			t.Fatalf("UpdateOpportunityStage: %v", err)
		}
		if !ok || srv.writes != 1 {
			t.Errorf("ok = %v writes = %d, want true and 1", ok, srv.writes)
		}
	})
}

func TestOpportunityStageDecoding(t *testing.T) {
	t.Run("many2one pair", func(t *testing.T) {
		var l odooLead
		raw := []byte(`{"id":3,"name":"x","stage_id":[21,"Pendiente de Atención Médica"],"x_manychat_id":"mc-3"}`)
		if err := json.Unmarshal(raw, &l); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		opp := l.opportunity()
		if opp.StageID != 21 {
			t.Errorf("StageID = %d, want 21", opp.StageID)
		}
	})

	t.Run("bare integer", func(t *testing.T) {
		var l odooLead
		raw := []byte(`{"id":3,"name":"x","stage_id":26,"x_manychat_id":"mc-3"}`)
		if err := json.Unmarshal(raw, &l); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if opp := l.opportunity(); opp.StageID != 26 {
			t.Errorf("StageID = %d, want 26", opp.StageID)
		}
	})
}

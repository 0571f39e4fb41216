// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import (
	"context"
	"testing"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// fakeContactStore answers the contact handler's store calls from a
// scripted contact row. The embedded Datastore panics on anything the
// handler is not supposed to touch.
type fakeContactStore struct {
	Datastore

	contact *models.Contact
	latest  *models.ContactState

	appendedStates []string
	syncStatuses   []models.SyncStatus
	logs           []models.SyncLog
}

func (s *fakeContactStore) UpsertContact(_ context.Context, in store.ContactUpsert) (*models.Contact, error) {
	return s.contact, nil
}

func (s *fakeContactStore) LatestContactState(context.Context, int64) (*models.ContactState, error) {
	if s.latest == nil {
		return nil, store.ErrNotFound
	}
	return s.latest, nil
}

func (s *fakeContactStore) AppendContactState(_ context.Context, _ int64, state, _ string) (*models.ContactState, error) {
	s.appendedStates = append(s.appendedStates, state)
	return &models.ContactState{ID: int64(len(s.appendedStates)), State: state}, nil
}

func (s *fakeContactStore) SetContactOdooSync(_ context.Context, _ int64, status models.SyncStatus, _ *int64) error {
	s.syncStatuses = append(s.syncStatuses, status)
	return nil
}

func (s *fakeContactStore) AppendSyncLog(_ context.Context, l *models.SyncLog) (*models.SyncLog, error) {
	s.logs = append(s.logs, *l)
	return l, nil
}

func contactEventMessage(t *testing.T) *queue.Message {
	t.Helper()
	return &queue.Message{Content: []byte(`{
		"manychat_id": "mc-1",
		"first_name": "Jane",
		"last_name": "Doe",
		"entry_date": "2026-08-01T10:00:00Z",
		"last_state": "Recién Suscrito (Sin Asignar)",
		"received_at": "2026-08-01T10:00:01Z"
	}`)}
}

func TestContactSyncGuard(t *testing.T) {
	t.Run("unsynced contact is mirrored to odoo", func(t *testing.T) {
		st := &fakeContactStore{contact: &models.Contact{
			ID: 1, ManychatID: "mc-1", FirstName: "Jane",
			OdooSyncStatus: models.SyncPending,
		}}
		gw := &fakeGateway{}
		h := &contactHandler{store: st, gateway: gw}

		if err := h.handle(context.Background(), contactEventMessage(t)); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if gw.partners != 1 {
			t.Errorf("partner calls = %d, want 1", gw.partners)
		}
		if len(st.syncStatuses) != 1 || st.syncStatuses[0] != models.SyncSuccess {
			t.Errorf("sync statuses = %v, want [success]", st.syncStatuses)
		}
	})

	t.Run("synced contact skips odoo on redelivery", func(t *testing.T) {
		st := &fakeContactStore{
			contact: &models.Contact{
				ID: 1, ManychatID: "mc-1", FirstName: "Jane",
				OdooSyncStatus: models.SyncSuccess,
			},
			latest: &models.ContactState{State: "Recién Suscrito (Sin Asignar)"},
		}
		gw := &fakeGateway{}
		h := &contactHandler{store: st, gateway: gw}

		if err := h.handle(context.Background(), contactEventMessage(t)); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if gw.partners != 0 {
			t.Errorf("partner calls = %d, want 0", gw.partners)
		}
		if len(st.syncStatuses) != 0 {
			t.Errorf("sync statuses = %v, want none", st.syncStatuses)
		}
		if len(st.appendedStates) != 0 {
			t.Errorf("appended states = %v, want none", st.appendedStates)
		}
	})
}

func TestDisplayName(t *testing.T) {
	last := "Doe"
	if got := displayName("Jane", &last); got != "Jane Doe" {
		t.Errorf("displayName = %q, want %q", got, "Jane Doe")
	}
	if got := displayName("Jane", nil); got != "Jane" {
		t.Errorf("displayName = %q, want %q", got, "Jane")
	}
}

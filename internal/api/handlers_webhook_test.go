// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/config"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// stubFabric records enqueues; block makes Enqueue hang until release.
type stubFabric struct {
	mu       sync.Mutex
	enqueued map[string][][]byte
	block    chan struct{}
}

func newStubFabric() *stubFabric {
	return &stubFabric{enqueued: make(map[string][][]byte)}
}

func (f *stubFabric) EnsureQueues(context.Context) error { return nil }
func (f *stubFabric) Ping(context.Context) error         { return nil }
func (f *stubFabric) Close()                             {}

func (f *stubFabric) Enqueue(ctx context.Context, q string, payload any) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued[q] = append(f.enqueued[q], data)
	return nil
}

func (f *stubFabric) Receive(context.Context, string, time.Duration) (*queue.Message, error) {
	return nil, nil
}

func (f *stubFabric) Delete(context.Context, string, string, string) error { return nil }

func (f *stubFabric) messages(q string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued[q]
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			APIKey:          "secret",
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
	}
}

func newTestHandler(fabric queue.Fabric) http.Handler {
	// The webhook and auth paths never touch the store.
	return NewRouter(testConfig(), nil, fabric).Handler()
}

func postJSON(t *testing.T, h http.Handler, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const validContactEvent = `{
	"manychat_id": "mc-1",
	"first_name": "Jane",
	"last_name": "Doe",
	"email": "jane@example.com",
	"entry_date": "2026-08-01T10:00:00Z",
	"last_state": "Recién Suscrito (Sin Asignar)"
}`

func TestWebhookAuth(t *testing.T) {
	h := newTestHandler(newStubFabric())

	t.Run("missing key", func(t *testing.T) {
		rec := postJSON(t, h, "/webhook/manychat/contact-event", "", validContactEvent)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != "ApiKey" {
			t.Errorf("WWW-Authenticate = %q, want ApiKey", got)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := postJSON(t, h, "/webhook/manychat/contact-event", "nope", validContactEvent)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestWebhookContactEvent(t *testing.T) {
	t.Run("valid payload is enqueued", func(t *testing.T) {
		fabric := newStubFabric()
		h := newTestHandler(fabric)

		rec := postJSON(t, h, "/webhook/manychat/contact-event", "secret", validContactEvent)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp["status"] != "enqueued" || resp["manychat_id"] != "mc-1" {
			t.Errorf("response = %v", resp)
		}

		msgs := fabric.messages(queue.QueueContact)
		if len(msgs) != 1 {
			t.Fatalf("enqueued = %d messages, want 1", len(msgs))
		}

		var event models.ContactEvent
		if err := json.Unmarshal(msgs[0], &event); err != nil {
			t.Fatalf("decode enqueued event: %v", err)
		}
		if event.ReceivedAt.IsZero() {
			t.Error("received_at was not stamped")
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		h := newTestHandler(newStubFabric())
		rec := postJSON(t, h, "/webhook/manychat/contact-event", "secret",
			`{"manychat_id": "mc-1", "entry_date": "2026-08-01T10:00:00Z"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "detail") {
			t.Errorf("body = %s, want detail object", rec.Body.String())
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		h := newTestHandler(newStubFabric())
		rec := postJSON(t, h, "/webhook/manychat/contact-event", "secret",
			`{"manychat_id": "mc-1", "first_name": "Jane", "entry_date": "2026-08-01T10:00:00Z", "last_state": "x", "surprise": true}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		h := newTestHandler(newStubFabric())
		rec := postJSON(t, h, "/webhook/manychat/contact-event", "secret",
			`{"manychat_id": "mc-1", "first_name": "Jane", "email": "not-an-email", "entry_date": "2026-08-01T10:00:00Z", "last_state": "x"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestWebhookCampaignAssignment(t *testing.T) {
	fabric := newStubFabric()
	h := newTestHandler(fabric)

	rec := postJSON(t, h, "/webhook/manychat/campaign-assignment", "secret", `{
		"manychat_id": "mc-1",
		"campaign_id": 7,
		"commercial_id": "ana@example.com",
		"entry_date": "2026-08-01T10:00:00Z",
		"last_state": "Asignado a Atención Comercial",
		"assignment_type": "commercial"
	}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(fabric.messages(queue.QueueCampaign)) != 1 {
		t.Fatal("campaign queue did not receive the event")
	}
}

// stubStore serves the stage-change contact lookup; stall makes it
// hang until the caller's deadline expires.
type stubStore struct {
	Datastore

	contact *models.Contact
	stall   bool
}

func (s *stubStore) GetContactByManychatID(ctx context.Context, manychatID string) (*models.Contact, error) {
	if s.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.contact == nil {
		return nil, store.ErrNotFound
	}
	return s.contact, nil
}

const validStageChange = `{
	"manychat_id": "mc-1",
	"stage_manychat": "Venta Confirmada"
}`

func TestWebhookStageChange(t *testing.T) {
	t.Run("unknown contact rejected", func(t *testing.T) {
		h := NewRouter(testConfig(), &stubStore{}, newStubFabric()).Handler()
		rec := postJSON(t, h, "/webhook/crm/stage-change", "secret", validStageChange)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("stalled store answers 500 inside the caller budget", func(t *testing.T) {
		if testing.Short() {
			t.Skip("waits out the store deadline")
		}

		h := NewRouter(testConfig(), &stubStore{stall: true}, newStubFabric()).Handler()

		start := time.Now()
		rec := postJSON(t, h, "/webhook/crm/stage-change", "secret", validStageChange)
		elapsed := time.Since(start)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500: %s", rec.Code, rec.Body.String())
		}
		if elapsed >= 5*time.Second {
			t.Errorf("answered in %v, want under the 5s caller budget", elapsed)
		}
	})
}

func TestWebhookAcceptsWhileEnqueueStalls(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the ack window")
	}

	fabric := newStubFabric()
	fabric.block = make(chan struct{})
	defer close(fabric.block)
	h := newTestHandler(fabric)

	start := time.Now()
	rec := postJSON(t, h, "/webhook/manychat/contact-event", "secret", validContactEvent)
	elapsed := time.Since(start)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if elapsed >= 5*time.Second {
		t.Errorf("answered in %v, want under the 5s caller budget", elapsed)
	}
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
)

// dlqFabric serves canned dead-letter messages.
type dlqFabric struct {
	stubFabric
	pending []*queue.Message
	deleted []string
}

func (f *dlqFabric) Receive(_ context.Context, q string, _ time.Duration) (*queue.Message, error) {
	if q != queue.QueueDeadLetter {
		return nil, errors.New("unexpected queue " + q)
	}
	if len(f.pending) == 0 {
		return nil, nil
	}
	msg := f.pending[0]
	f.pending = f.pending[1:]
	return msg, nil
}

func (f *dlqFabric) Delete(_ context.Context, _, id, _ string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func deadLetterMessage(t *testing.T, id, originalQueue string, event string) *queue.Message {
	t.Helper()
	env := models.NewDeadLetter(originalQueue, errors.New("handler gave up"), []byte(event))
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &queue.Message{ID: id, PopReceipt: "r-" + id, Content: data, DeliveryCount: 1}
}

func TestPeekDeadLetters(t *testing.T) {
	fabric := &dlqFabric{stubFabric: stubFabric{enqueued: make(map[string][][]byte)}}
	fabric.pending = []*queue.Message{
		deadLetterMessage(t, "m1", queue.QueueContact, `{"manychat_id":"mc-1"}`),
		deadLetterMessage(t, "m2", queue.QueueOpportunity, `{"manychat_id":"mc-2"}`),
	}
	h := newTestHandler(fabric)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dlq?limit=10", nil)
	req.Header.Set("X-API-KEY", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Count    int `json:"count"`
		Messages []struct {
			ID       string             `json:"id"`
			Envelope *models.DeadLetter `json:"envelope"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Messages[0].Envelope.OriginalQueue != queue.QueueContact {
		t.Errorf("original queue = %q", resp.Messages[0].Envelope.OriginalQueue)
	}
	if len(fabric.deleted) != 0 {
		t.Errorf("peek deleted %v, want none", fabric.deleted)
	}
}

func TestReplayDeadLetters(t *testing.T) {
	fabric := &dlqFabric{stubFabric: stubFabric{enqueued: make(map[string][][]byte)}}
	fabric.pending = []*queue.Message{
		deadLetterMessage(t, "m1", queue.QueueContact, `{"manychat_id":"mc-1"}`),
		deadLetterMessage(t, "m2", "no-such-queue", `{"manychat_id":"mc-2"}`),
	}
	h := newTestHandler(fabric)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dlq/replay?limit=10", nil)
	req.Header.Set("X-API-KEY", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["replayed"] != 1 || resp["skipped"] != 1 {
		t.Errorf("resp = %v, want replayed 1 skipped 1", resp)
	}

	replayedMsgs := fabric.messages(queue.QueueContact)
	if len(replayedMsgs) != 1 {
		t.Fatalf("contact queue got %d messages, want 1", len(replayedMsgs))
	}
	if string(replayedMsgs[0]) != `{"manychat_id":"mc-1"}` {
		t.Errorf("replayed event = %s", replayedMsgs[0])
	}
	if len(fabric.deleted) != 1 || fabric.deleted[0] != "m1" {
		t.Errorf("deleted = %v, want [m1]", fabric.deleted)
	}
}

func TestDeleteRequiresQueryEcho(t *testing.T) {
	h := newTestHandler(newStubFabric())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/contacts/1", nil)
	req.Header.Set("X-API-KEY", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

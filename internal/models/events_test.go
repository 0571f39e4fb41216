// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestContactEventValidate(t *testing.T) {
	valid := func() ContactEvent {
		return ContactEvent{
			ManychatID: "mc-1",
			FirstName:  "Jane",
			EntryDate:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			LastState:  "Recién Suscrito (Sin Asignar)",
		}
	}

	t.Run("minimal valid event", func(t *testing.T) {
		e := valid()
		if err := e.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("missing manychat_id", func(t *testing.T) {
		e := valid()
		e.ManychatID = ""
		err := e.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		detail := ValidationErrorDetail(err)
		if detail["ManychatID"] == "" {
			t.Errorf("detail = %v, want ManychatID entry", detail)
		}
	})

	t.Run("bad email", func(t *testing.T) {
		e := valid()
		email := "not-an-email"
		e.Email = &email
		if err := e.Validate(); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestCampaignAssignmentValidate(t *testing.T) {
	e := CampaignAssignment{
		ManychatID:     "mc-1",
		CampaignID:     0,
		EntryDate:      time.Now(),
		LastState:      "x",
		AssignmentType: "commercial",
	}
	if err := e.Validate(); err == nil {
		t.Error("campaign_id 0 passed validation")
	}

	e.CampaignID = 7
	if err := e.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStageChangeWireFormat(t *testing.T) {
	e := StageChange{
		ManychatID:    "mc-1",
		StageManychat: "Comienza Cotización",
		ReceivedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded StageChange
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.StageManychat != e.StageManychat || !decoded.ReceivedAt.Equal(e.ReceivedAt) {
		t.Errorf("round trip changed event: %+v", decoded)
	}
	if decoded.ContactStateID != 0 {
		t.Errorf("ContactStateID = %d, want omitted zero", decoded.ContactStateID)
	}
}

func TestDeadLetterPreservesOriginal(t *testing.T) {
	original := []byte(`{"manychat_id":"mc-1","stage_manychat":"x"}`)
	env := NewDeadLetter("crm-opportunity", errTest("boom"), original)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded DeadLetter
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.OriginalQueue != "crm-opportunity" || decoded.ErrorMessage != "boom" {
		t.Errorf("envelope = %+v", decoded)
	}
	if string(decoded.OriginalEvent) != string(original) {
		t.Errorf("original event mutated: %s", decoded.OriginalEvent)
	}
	if decoded.ErrorTime.IsZero() {
		t.Error("error time not stamped")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package models

import "testing"

func TestStageMapping(t *testing.T) {
	t.Run("every label has a sequence", func(t *testing.T) {
		for label, id := range StageMapping {
			if seq := StageSequence(id); seq > TerminalSequence {
				t.Errorf("stage %q (id %d) has no sequence", label, id)
			}
		}
	})

	t.Run("known label resolves", func(t *testing.T) {
		id, ok := StageIDForLabel("Recién Suscrito (Sin Asignar)")
		if !ok || id != 16 {
			t.Errorf("StageIDForLabel = (%d, %v), want (16, true)", id, ok)
		}
	})

	t.Run("unknown label is rejected", func(t *testing.T) {
		if _, ok := StageIDForLabel("No Such Stage"); ok {
			t.Error("unknown label resolved")
		}
	})
}

func TestIsTerminalStage(t *testing.T) {
	for id := 16; id <= 25; id++ {
		if IsTerminalStage(id) {
			t.Errorf("stage %d classified terminal", id)
		}
	}
	if !IsTerminalStage(26) {
		t.Error("confirmed sale not classified terminal")
	}
	// Unknown ids sort after every known stage and count as terminal
	// so they are never mutated.
	if !IsTerminalStage(99) {
		t.Error("unknown stage not classified terminal")
	}
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package models

// Stage mapping between ManyChat funnel labels and Odoo crm.stage ids.
// The table is fixed: unknown labels are a validation error and are
// never guessed.
//
// Stages are totally ordered by their sequence number. An opportunity
// whose stage sequence is below TerminalSequence is "open"; terminal
// opportunities are never mutated and a later stage change opens a
// fresh opportunity.

// StageMapping maps ManyChat stage labels to Odoo stage ids (16..26).
var StageMapping = map[string]int{
	"Recién Suscrito (Sin Asignar)":   16,
	"Recién suscrito Pendiente de AC": 17,
	"Asignado a Atención Comercial":   18,
	"Comienza Atención Comercial":     19,
	"En Seguimiento Comercial":        20,
	"Pendiente de Atención Médica":    21,
	"Comienza Atención Médica":        22,
	"Valoración Médica Completada":    23,
	"Pendiente de Cotización":         24,
	"Comienza Cotización":             25,
	"Orden de venta Confirmada":       26,
}

// stageSequence orders the Odoo stages. Sequences mirror the CRM
// pipeline configuration; only the confirmed sale is terminal.
var stageSequence = map[int]int{
	16: 0,
	17: 1,
	18: 2,
	19: 3,
	20: 4,
	21: 5,
	22: 6,
	23: 7,
	24: 8,
	25: 9,
	26: 10,
}

// TerminalSequence is the threshold at or above which a stage is
// terminal and its opportunity is closed.
const TerminalSequence = 10

// StageIDForLabel resolves a ManyChat stage label to its Odoo stage id.
// The second return is false for unknown labels.
func StageIDForLabel(label string) (int, bool) {
	id, ok := StageMapping[label]
	return id, ok
}

// StageSequence returns the pipeline sequence for an Odoo stage id.
// Unknown ids sort after every known stage.
func StageSequence(stageID int) int {
	if seq, ok := stageSequence[stageID]; ok {
		return seq
	}
	return TerminalSequence + 1
}

// IsTerminalStage reports whether the stage closes its opportunity.
func IsTerminalStage(stageID int) bool {
	return StageSequence(stageID) >= TerminalSequence
}

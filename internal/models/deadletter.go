// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// DeadLetter wraps a message that could not be delivered or processed.
// The envelope preserves the original event verbatim so that operators
// can replay it against its original queue after fixing the cause.
type DeadLetter struct {
	OriginalQueue string          `json:"original_queue"`
	ErrorTime     time.Time       `json:"error_time"`
	ErrorMessage  string          `json:"error_message"`
	OriginalEvent json.RawMessage `json:"original_event"`
}

// NewDeadLetter builds an envelope for a failed event.
func NewDeadLetter(queue string, cause error, original []byte) *DeadLetter {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &DeadLetter{
		OriginalQueue: queue,
		ErrorTime:     time.Now().UTC(),
		ErrorMessage:  msg,
		OriginalEvent: json.RawMessage(original),
	}
}

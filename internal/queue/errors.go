// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package queue

import "fmt"

// TransportError is a transient failure talking to the queue fabric.
// Callers retry or fall back to the DLQ path.
type TransportError struct {
	Op    string
	Queue string
	Err   error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("queue transport %s on %q: %v", e.Op, e.Queue, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// FatalEnqueueError means both the target queue and the dead-letter
// queue refused the message. Nothing durable holds the event anymore;
// the caller must surface the failure to whoever can retry.
type FatalEnqueueError struct {
	Queue  string
	Err    error
	DLQErr error
}

// Error implements the error interface.
func (e *FatalEnqueueError) Error() string {
	return fmt.Sprintf("enqueue to %q failed (%v) and dead-letter fallback failed (%v)", e.Queue, e.Err, e.DLQErr)
}

// Unwrap returns the primary enqueue failure.
func (e *FatalEnqueueError) Unwrap() error { return e.Err }

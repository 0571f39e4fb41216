// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"fmt"
	"strings"
)

// Fault is a non-transient remote error: the server understood the call
// and refused it (permission denied, unknown field, bad values).
// Retrying an identical call cannot succeed.
type Fault struct {
	Code    int
	Name    string
	Message string
}

// Error implements the error interface.
func (e *Fault) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("odoo fault %s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("odoo fault (code %d): %s", e.Code, e.Message)
}

// Unavailable means the gateway exhausted its retries against transient
// failures (transport refusal, timeout, concurrency faults).
type Unavailable struct {
	Err error
}

// Error implements the error interface.
func (e *Unavailable) Error() string {
	return fmt.Sprintf("odoo unavailable: %v", e.Err)
}

// Unwrap returns the last transient failure.
func (e *Unavailable) Unwrap() error { return e.Err }

// transientFaultNames marks server-side exception classes that clear up
// on retry. Everything else coming back as an RPC fault is permanent.
var transientFaultNames = []string{
	"OperationalError",
	"ConcurrencyError",
	"InterfaceError",
	"serialization",
}

// isTransientFault reports whether an RPC fault is worth retrying.
func isTransientFault(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range transientFaultNames {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

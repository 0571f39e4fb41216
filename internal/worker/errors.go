// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package worker

import "errors"

// PermanentError marks a message as unprocessable: malformed payload,
// failed validation, unknown stage label, or a remote fault that an
// identical retry cannot fix. The worker dead-letters the message
// instead of leaving it for redelivery.
type PermanentError struct {
	Message string
	Cause   error
}

// NewPermanentError wraps cause as non-retryable.
func NewPermanentError(message string, cause error) *PermanentError {
	return &PermanentError{Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *PermanentError) Unwrap() error { return e.Cause }

// IsPermanent reports whether err should be dead-lettered rather than
// retried.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

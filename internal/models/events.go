// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator. go-playground caches struct
// metadata, so a single shared instance is the intended usage.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ContactEvent is the payload of POST /webhook/manychat/contact-event.
// ReceivedAt is stamped by the server before enqueue; it is not part of
// the external payload.
type ContactEvent struct {
	ManychatID       string     `json:"manychat_id" validate:"required"`
	FirstName        string     `json:"first_name" validate:"required"`
	LastName         *string    `json:"last_name,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Email            *string    `json:"email,omitempty" validate:"omitempty,email"`
	EntryChannel     *string    `json:"entry_channel,omitempty"`
	SubscriptionDate *time.Time `json:"subscription_date,omitempty"`
	EntryDate        time.Time  `json:"entry_date" validate:"required"`
	LastState        string     `json:"last_state" validate:"required"`
	InitialState     *string    `json:"initial_state,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// Validate checks required fields and formats.
func (e *ContactEvent) Validate() error {
	return validate.Struct(e)
}

// CampaignAssignment is the payload of
// POST /webhook/manychat/campaign-assignment.
type CampaignAssignment struct {
	ManychatID     string    `json:"manychat_id" validate:"required"`
	CampaignID     int64     `json:"campaign_id" validate:"required,gt=0"`
	CommercialID   *string   `json:"commercial_id,omitempty"`
	MedicalID      *string   `json:"medical_id,omitempty"`
	EntryDate      time.Time `json:"entry_date" validate:"required"`
	LastState      string    `json:"last_state" validate:"required"`
	AssignmentType string    `json:"assignment_type" validate:"required"`

	ReceivedAt time.Time `json:"received_at"`
}

// Validate checks required fields and formats.
func (e *CampaignAssignment) Validate() error {
	return validate.Struct(e)
}

// StageChange is the payload of POST /webhook/crm/stage-change.
// ReceivedAt doubles as the event timestamp: the server stamps its
// receive time before enqueue. ContactStateID is the state row appended
// synchronously by the intake endpoint; the opportunity worker reuses it
// instead of appending a duplicate.
type StageChange struct {
	ManychatID    string  `json:"manychat_id" validate:"required"`
	StageManychat string  `json:"stage_manychat" validate:"required"`
	AdvisorID     *string `json:"advisor_id,omitempty"`

	ReceivedAt     time.Time `json:"received_at"`
	ContactStateID int64     `json:"contact_state_id,omitempty"`
}

// Validate checks required fields. The stage label itself is resolved
// against the stage mapping by the worker, not here, so that unknown
// labels are dead-lettered rather than silently rejected at intake.
func (e *StageChange) Validate() error {
	return validate.Struct(e)
}

// ValidationErrorDetail flattens a validator error into the field-keyed
// form the intake API returns as the 400 body.
func ValidationErrorDetail(err error) map[string]string {
	detail := make(map[string]string)
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); !ok {
		detail["payload"] = err.Error()
		return detail
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			detail[fe.Field()] = "field is required"
		case "email":
			detail[fe.Field()] = "must be a valid email address"
		case "gt":
			detail[fe.Field()] = fmt.Sprintf("must be greater than %s", fe.Param())
		default:
			detail[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
		}
	}
	return detail
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the slice directly
	if ok {
		*target = verrs
	}
	return ok
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package queue implements the durable queue fabric between the intake
// API and the workers on NATS JetStream.
//
// Each logical queue is a work-queue stream with a single durable pull
// consumer. Delivery is at-least-once: a message counts as processed
// only after a successful Delete; anything short of that redelivers the
// message once its visibility timeout expires. Messages that cannot be
// enqueued or processed are wrapped in a dead-letter envelope and
// written to the dead-letter queue, which is an operator-facing sink
// and is never consumed by the workers.
package queue

import (
	"context"
	"strings"
	"time"
)

// Logical queue names.
const (
	QueueContact     = "contact"
	QueueCampaign    = "campaign"
	QueueOpportunity = "crm-opportunity"
	QueueDeadLetter  = "dead-letter"
)

// PrimaryQueues are the queues the workers consume.
var PrimaryQueues = []string{QueueContact, QueueCampaign, QueueOpportunity}

// Message is one received queue message. PopReceipt proves possession
// of the current delivery and is required to Delete the message; after
// the visibility timeout it goes stale and the redelivery issues a new
// one.
type Message struct {
	ID            string
	PopReceipt    string
	Content       []byte
	DeliveryCount uint64
}

// Fabric is the durable queue surface used by the intake API, the
// workers, and the operator DLQ endpoints.
type Fabric interface {
	// EnsureQueues idempotently creates the three primary queues and
	// the dead-letter queue.
	EnsureQueues(ctx context.Context) error

	// Enqueue serializes payload to canonical JSON and appends one
	// message. On transport failure the payload is wrapped in a
	// dead-letter envelope and enqueued to the DLQ; if that also fails
	// the error is a *FatalEnqueueError.
	Enqueue(ctx context.Context, queue string, payload any) error

	// Receive returns at most one message, or nil when the queue is
	// empty. The message stays invisible to other receivers for the
	// visibility timeout.
	Receive(ctx context.Context, queue string, visibility time.Duration) (*Message, error)

	// Delete permanently removes a message. Deleting a missing or
	// already-deleted message is not an error.
	Delete(ctx context.Context, queue, id, popReceipt string) error

	// Ping verifies the transport is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close()
}

// streamName maps a logical queue name to its JetStream stream name.
func streamName(queue string) string {
	return "LEADBUS_" + strings.ToUpper(strings.ReplaceAll(queue, "-", "_"))
}

// subjectName maps a logical queue name to its publish subject.
func subjectName(queue string) string {
	return "leadbus." + queue
}

// durableName maps a logical queue name to its consumer durable name.
func durableName(queue string) string {
	return "leadbus-" + queue
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/metrics"
	"github.com/velasystems/leadbus/internal/models"
)

// fetchMaxWait bounds how long Receive blocks when a queue is empty.
const fetchMaxWait = 2 * time.Second

// inflightMsg tracks a received but not yet deleted message so that the
// pop receipt can be redeemed for an ack.
type inflightMsg struct {
	msg       jetstream.Msg
	queue     string
	id        string
	expiresAt time.Time
}

// Client is the JetStream-backed queue fabric.
type Client struct {
	nc *nats.Conn
	js jetstream.JetStream

	// defaultVisibility is the AckWait applied when a queue's durable
	// consumer is first created.
	defaultVisibility time.Duration

	mu        sync.Mutex
	consumers map[string]jetstream.Consumer
	inflight  map[string]inflightMsg
}

var _ Fabric = (*Client)(nil)

// Connect dials the NATS server and prepares a JetStream context.
func Connect(url string, defaultVisibility time.Duration) (*Client, error) {
	opts := []nats.Option{
		nats.Name("leadbus"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &Client{
		nc:                nc,
		js:                js,
		defaultVisibility: defaultVisibility,
		consumers:         make(map[string]jetstream.Consumer),
		inflight:          make(map[string]inflightMsg),
	}, nil
}

// EnsureQueues idempotently creates the work-queue streams and their
// durable consumers for the three primary queues and the DLQ.
func (c *Client) EnsureQueues(ctx context.Context) error {
	queues := append(append([]string{}, PrimaryQueues...), QueueDeadLetter)
	for _, q := range queues {
		streamCfg := jetstream.StreamConfig{
			Name:      streamName(q),
			Subjects:  []string{subjectName(q)},
			Retention: jetstream.WorkQueuePolicy,
			Storage:   jetstream.FileStorage,
			Discard:   jetstream.DiscardNew,
		}
		if _, err := c.js.CreateOrUpdateStream(ctx, streamCfg); err != nil {
			return &TransportError{Op: "ensure-stream", Queue: q, Err: err}
		}
		if _, err := c.consumer(ctx, q, c.defaultVisibility); err != nil {
			return err
		}
	}
	return nil
}

// consumer returns the memoized durable pull consumer for a queue,
// creating it with the given visibility timeout as AckWait on first use.
// Redelivery is unbounded at the consumer level; routing to the DLQ
// after too many deliveries is the workers' decision.
func (c *Client) consumer(ctx context.Context, queue string, visibility time.Duration) (jetstream.Consumer, error) {
	c.mu.Lock()
	if cons, ok := c.consumers[queue]; ok {
		c.mu.Unlock()
		return cons, nil
	}
	c.mu.Unlock()

	if visibility <= 0 {
		visibility = c.defaultVisibility
	}
	cfg := jetstream.ConsumerConfig{
		Durable:       durableName(queue),
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       visibility,
		MaxDeliver:    -1,
		FilterSubject: subjectName(queue),
	}
	cons, err := c.js.CreateOrUpdateConsumer(ctx, streamName(queue), cfg)
	if err != nil {
		return nil, &TransportError{Op: "ensure-consumer", Queue: queue, Err: err}
	}

	c.mu.Lock()
	c.consumers[queue] = cons
	c.mu.Unlock()
	return cons, nil
}

// Enqueue serializes payload to canonical JSON and appends one message.
// Date-times marshal as RFC 3339 in UTC because every stamped field is
// produced with time.Now().UTC().
func (c *Client) Enqueue(ctx context.Context, queue string, payload any) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("serialize payload for %q: %w", queue, err)
	}

	if _, err := c.js.Publish(ctx, subjectName(queue), data); err != nil {
		terr := &TransportError{Op: "enqueue", Queue: queue, Err: err}
		if queue == QueueDeadLetter {
			return terr
		}
		return c.deadLetter(ctx, queue, terr, data)
	}

	metrics.QueueEnqueued.WithLabelValues(queue).Inc()
	return nil
}

// deadLetter wraps a payload that failed to enqueue and writes it to
// the DLQ. Both failing is fatal for this event.
func (c *Client) deadLetter(ctx context.Context, queue string, cause error, original []byte) error {
	envelope := models.NewDeadLetter(queue, cause, original)
	data, err := json.Marshal(envelope)
	if err != nil {
		return &FatalEnqueueError{Queue: queue, Err: cause, DLQErr: err}
	}
	if _, err := c.js.Publish(ctx, subjectName(QueueDeadLetter), data); err != nil {
		return &FatalEnqueueError{Queue: queue, Err: cause, DLQErr: err}
	}

	metrics.QueueDeadLettered.WithLabelValues(queue).Inc()
	logging.Err(cause).Str("queue", queue).Msg("message dead-lettered at enqueue")
	return cause
}

// Receive fetches at most one message. A nil message with a nil error
// means the queue is empty right now.
func (c *Client) Receive(ctx context.Context, queue string, visibility time.Duration) (*Message, error) {
	cons, err := c.consumer(ctx, queue, visibility)
	if err != nil {
		return nil, err
	}

	batch, err := cons.Fetch(1, jetstream.FetchMaxWait(fetchMaxWait))
	if err != nil {
		return nil, &TransportError{Op: "receive", Queue: queue, Err: err}
	}

	var received jetstream.Msg
	for msg := range batch.Messages() {
		received = msg
	}
	if err := batch.Error(); err != nil {
		return nil, &TransportError{Op: "receive", Queue: queue, Err: err}
	}
	if received == nil {
		return nil, nil
	}

	meta, err := received.Metadata()
	if err != nil {
		return nil, &TransportError{Op: "receive-metadata", Queue: queue, Err: err}
	}

	id := fmt.Sprintf("%s-%d", streamName(queue), meta.Sequence.Stream)
	popReceipt := uuid.New().String()

	c.mu.Lock()
	c.pruneInflightLocked()
	c.inflight[popReceipt] = inflightMsg{
		msg:       received,
		queue:     queue,
		id:        id,
		expiresAt: time.Now().Add(2 * c.defaultVisibility),
	}
	c.mu.Unlock()

	return &Message{
		ID:            id,
		PopReceipt:    popReceipt,
		Content:       received.Data(),
		DeliveryCount: meta.NumDelivered,
	}, nil
}

// Delete acknowledges the delivery identified by (id, popReceipt).
// Unknown or stale receipts are not errors: the message either was
// already deleted or has been redelivered under a fresh receipt.
func (c *Client) Delete(ctx context.Context, queue, id, popReceipt string) error {
	c.mu.Lock()
	entry, ok := c.inflight[popReceipt]
	if ok {
		delete(c.inflight, popReceipt)
	}
	c.mu.Unlock()

	if !ok || entry.queue != queue || entry.id != id {
		return nil
	}

	if err := entry.msg.DoubleAck(ctx); err != nil {
		return &TransportError{Op: "delete", Queue: queue, Err: err}
	}
	return nil
}

// pruneInflightLocked drops receipts whose visibility window has long
// expired; their deliveries belong to someone else now.
func (c *Client) pruneInflightLocked() {
	now := time.Now()
	for receipt, entry := range c.inflight {
		if now.After(entry.expiresAt) {
			delete(c.inflight, receipt)
		}
	}
}

// Ping verifies the JetStream account is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return &TransportError{Op: "ping", Queue: "", Err: nats.ErrConnectionClosed}
	}
	if _, err := c.js.AccountInfo(ctx); err != nil {
		return &TransportError{Op: "ping", Queue: "", Err: err}
	}
	return nil
}

// Close drains the connection.
func (c *Client) Close() {
	if err := c.nc.Drain(); err != nil {
		logging.Err(err).Msg("NATS drain failed")
		c.nc.Close()
	}
}

// marshalPayload serializes payload unless it is already raw JSON.
func marshalPayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}

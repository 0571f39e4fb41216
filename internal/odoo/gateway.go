// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/velasystems/leadbus/internal/logging"
	"github.com/velasystems/leadbus/internal/metrics"
)

const (
	maxRetries      = 3
	initialInterval = 2 * time.Second
	maxInterval     = 10 * time.Second

	defaultCallTimeout = 30 * time.Second
)

// retryPolicy spaces the retries of one logical call at 2s, 4s and 8s,
// capped at 10s should the sequence ever grow.
func retryPolicy() backoff.BackOff {
	bo := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithRandomizationFactor(0),
	)
	return backoff.WithMaxRetries(bo, maxRetries)
}

// Gateway is the single concurrency-safe entry point for Odoo calls.
// The rate gate enforces a minimum gap measured from the moment the
// previous call returned, not from when it started, so a slow Odoo
// response naturally throttles the whole bus. Holding the gate mutex
// across the round trip also serializes calls, so responses never
// interleave.
type Gateway struct {
	client   *rpcClient
	db       string
	user     string
	password string
	minGap   time.Duration
	breaker  *gobreaker.CircuitBreaker[json.RawMessage]

	gate     sync.Mutex
	lastDone time.Time

	uidMu sync.Mutex
	uid   int64
}

// NewGateway builds a gateway against baseURL. rateLimit is the minimum
// spacing between calls; zero disables the gate. timeout bounds one
// HTTP round trip; zero picks a sane default.
func NewGateway(baseURL, db, user, password string, rateLimit, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	settings := gobreaker.Settings{
		Name:    "odoo",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Odoo circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// Application faults are Odoo answering; only transport
			// level failures should count against the breaker.
			var fault *Fault
			return err == nil || errors.As(err, &fault)
		},
	}

	return &Gateway{
		client:   newRPCClient(baseURL, timeout),
		db:       db,
		user:     user,
		password: password,
		minGap:   rateLimit,
		breaker:  gobreaker.NewCircuitBreaker[json.RawMessage](settings),
	}
}

// Ping verifies the Odoo endpoint is reachable and credentials are
// valid. Used by startup health probes.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.authenticate(ctx)
	return err
}

// authenticate resolves and memoizes the session uid.
func (g *Gateway) authenticate(ctx context.Context) (int64, error) {
	g.uidMu.Lock()
	defer g.uidMu.Unlock()

	if g.uid != 0 {
		return g.uid, nil
	}

	raw, err := g.do(ctx, "common", "authenticate", []any{g.db, g.user, g.password, map[string]any{}})
	if err != nil {
		return 0, fmt.Errorf("authenticate: %w", err)
	}

	var uid int64
	if err := json.Unmarshal(raw, &uid); err != nil {
		// Odoo answers `false` for bad credentials.
		return 0, &Fault{Name: "AccessDenied", Message: "authentication failed"}
	}
	if uid == 0 {
		return 0, &Fault{Name: "AccessDenied", Message: "authentication failed"}
	}

	g.uid = uid
	return uid, nil
}

// ExecuteKw invokes model.method on Odoo with retries, rate limiting
// and circuit breaking. On a permanent application error it returns
// *Fault; when retries are exhausted it returns *Unavailable.
func (g *Gateway) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := g.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if kwargs == nil {
		kwargs = map[string]any{}
	}
	callArgs := []any{g.db, uid, g.password, model, method, args, kwargs}

	start := time.Now()
	raw, err := g.do(ctx, "object", "execute_kw", callArgs)
	metrics.OdooCallDuration.Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var fault *Fault
		if errors.As(err, &fault) {
			outcome = "fault"
		}
	}
	metrics.OdooCalls.WithLabelValues(model, method, outcome).Inc()

	return raw, err
}

// do runs one rate-gated, retried, breaker-wrapped RPC call.
func (g *Gateway) do(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	g.gate.Lock()
	defer g.gate.Unlock()

	if g.minGap > 0 && !g.lastDone.IsZero() {
		wait := g.minGap - time.Since(g.lastDone)
		if wait > 0 {
			metrics.OdooRateGateWait.Observe(wait.Seconds())
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	defer func() { g.lastDone = time.Now() }()

	var raw json.RawMessage
	attempt := 0
	op := func() (json.RawMessage, error) {
		attempt++
		res, err := g.breaker.Execute(func() (json.RawMessage, error) {
			return g.client.call(ctx, service, method, args)
		})
		if err != nil {
			var fault *Fault
			if errors.As(err, &fault) {
				return nil, backoff.Permanent(err)
			}
			logging.Warn().
				Err(err).
				Str("service", service).
				Str("method", method).
				Int("attempt", attempt).
				Msg("Odoo call failed, will retry")
			return nil, err
		}
		return res, nil
	}

	raw, err := backoff.RetryWithData(op, backoff.WithContext(retryPolicy(), ctx))
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			return nil, fault
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Unavailable{Err: err}
	}

	return raw, nil
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package odoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
)

// fakeOdoo is a minimal JSON-RPC endpoint. The respond callback
// receives the decoded request and returns (result, rpcError).
type fakeOdoo struct {
	t       *testing.T
	calls   atomic.Int64
	respond func(req rpcRequest) (any, *rpcError)
}

func (f *fakeOdoo) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)

		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Authentication always succeeds with uid 7 unless the test
		// overrides the common service.
		if req.Params.Service == "common" && req.Params.Method == "authenticate" {
			writeRPC(w, req.ID, int64(7), nil)
			return
		}

		result, fault := f.respond(req)
		writeRPC(w, req.ID, result, fault)
	}
}

func writeRPC(w http.ResponseWriter, id uint64, result any, fault *rpcError) {
	resp := map[string]any{"jsonrpc": "2.0", "id": id}
	if fault != nil {
		resp["error"] = fault
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestGateway(t *testing.T, fake *fakeOdoo, minGap time.Duration) *Gateway {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewGateway(srv.URL, "testdb", "admin", "secret", minGap, 0)
}

func TestExecuteKw(t *testing.T) {
	t.Run("success returns raw result", func(t *testing.T) {
		fake := &fakeOdoo{t: t, respond: func(req rpcRequest) (any, *rpcError) {
			if req.Params.Service != "object" || req.Params.Method != "execute_kw" {
				t.Errorf("unexpected call %s.%s", req.Params.Service, req.Params.Method)
			}
			return []int64{42}, nil
		}}
		g := newTestGateway(t, fake, 0)

		raw, err := g.ExecuteKw(context.Background(), "crm.lead", "search", []any{}, nil)
		if err != nil {
			t.Fatalf("ExecuteKw: %v", err)
		}

		var ids []int64
		if err := json.Unmarshal(raw, &ids); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if len(ids) != 1 || ids[0] != 42 {
			t.Errorf("ids = %v, want [42]", ids)
		}
	})

	t.Run("application fault is permanent", func(t *testing.T) {
		fault := &rpcError{Code: 200, Message: "Odoo Server Error"}
		fault.Data.Name = "odoo.exceptions.ValidationError"
		fault.Data.Message = "missing required field"

		fake := &fakeOdoo{t: t, respond: func(rpcRequest) (any, *rpcError) {
			return nil, fault
		}}
		g := newTestGateway(t, fake, 0)

		_, err := g.ExecuteKw(context.Background(), "crm.lead", "create", []any{}, nil)
		var f *Fault
		if !errors.As(err, &f) {
			t.Fatalf("err = %v, want *Fault", err)
		}
		if f.Name != "odoo.exceptions.ValidationError" {
			t.Errorf("fault name = %q", f.Name)
		}
		// One authenticate plus exactly one execute_kw, no retries.
		if got := fake.calls.Load(); got != 2 {
			t.Errorf("server saw %d calls, want 2", got)
		}
	})

	t.Run("uid is memoized across calls", func(t *testing.T) {
		var auths atomic.Int64
		fake := &fakeOdoo{t: t}
		fake.respond = func(rpcRequest) (any, *rpcError) { return true, nil }

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req rpcRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Params.Method == "authenticate" {
				auths.Add(1)
				writeRPC(w, req.ID, int64(7), nil)
				return
			}
			writeRPC(w, req.ID, true, nil)
		}))
		defer srv.Close()

		g := NewGateway(srv.URL, "testdb", "admin", "secret", 0, 0)
		for range 3 {
			if _, err := g.ExecuteKw(context.Background(), "crm.lead", "write", []any{}, nil); err != nil {
				t.Fatalf("ExecuteKw: %v", err)
			}
		}
		if got := auths.Load(); got != 1 {
			t.Errorf("authenticate called %d times, want 1", got)
		}
	})
}

func TestAuthenticateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		// Odoo signals bad credentials by returning false.
		writeRPC(w, req.ID, false, nil)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "testdb", "admin", "wrong", 0, 0)
	_, err := g.ExecuteKw(context.Background(), "crm.lead", "search", []any{}, nil)

	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Fault", err)
	}
	if f.Name != "AccessDenied" {
		t.Errorf("fault name = %q, want AccessDenied", f.Name)
	}
}

func TestRateGateSpacing(t *testing.T) {
	fake := &fakeOdoo{t: t, respond: func(rpcRequest) (any, *rpcError) {
		return true, nil
	}}
	const gap = 80 * time.Millisecond
	g := newTestGateway(t, fake, gap)

	// Prime authentication so the timed section measures only the
	// three execute_kw calls.
	if err := g.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	start := time.Now()
	for range 3 {
		if _, err := g.ExecuteKw(context.Background(), "crm.lead", "search", []any{}, nil); err != nil {
			t.Fatalf("ExecuteKw: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three calls after a primed clock must respect at least three
	// full gaps measured from each completion.
	if elapsed < 3*gap {
		t.Errorf("three calls completed in %v, want >= %v", elapsed, 3*gap)
	}
}

func TestRateGateHonorsContext(t *testing.T) {
	fake := &fakeOdoo{t: t, respond: func(rpcRequest) (any, *rpcError) {
		return true, nil
	}}
	g := newTestGateway(t, fake, time.Hour)

	if err := g.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.ExecuteKw(ctx, "crm.lead", "search", []any{}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestTransientRetry(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff waits are seconds long")
	}

	var failures atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Params.Method == "authenticate" {
			writeRPC(w, req.ID, int64(7), nil)
			return
		}
		if failures.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeRPC(w, req.ID, true, nil)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "testdb", "admin", "secret", 0, 0)
	if _, err := g.ExecuteKw(context.Background(), "crm.lead", "search", []any{}, nil); err != nil {
		t.Fatalf("ExecuteKw after transient failure: %v", err)
	}
	if got := failures.Load(); got != 2 {
		t.Errorf("execute_kw attempts = %d, want 2", got)
	}
}

func TestRetryPolicyWaits(t *testing.T) {
	bo := retryPolicy()
	for i, want := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		if got := bo.NextBackOff(); got != want {
			t.Errorf("wait %d = %v, want %v", i+1, got, want)
		}
	}
	if got := bo.NextBackOff(); got != backoff.Stop {
		t.Errorf("after %d retries got %v, want backoff.Stop", maxRetries, got)
	}
}

func TestIsTransientFault(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"psycopg2.OperationalError", true},
		{"odoo.exceptions.ConcurrencyError", true},
		{"psycopg2.errors.SerializationFailure", true},
		{"odoo.exceptions.ValidationError", false},
		{"AccessDenied", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientFault(tt.name); got != tt.want {
				t.Errorf("isTransientFault(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

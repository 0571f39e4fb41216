// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package odoo is the sole gate for all Odoo traffic. The rpcClient in
// this file is the bare JSON-RPC transport; resilience (rate gate,
// retries, circuit breaker) lives in the Gateway.
package odoo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// rpcRequest is one JSON-RPC 2.0 envelope against /jsonrpc.
type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      uint64    `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

// rpcClient speaks JSON-RPC to a single Odoo instance.
type rpcClient struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Uint64
}

func newRPCClient(baseURL string, timeout time.Duration) *rpcClient {
	return &rpcClient{
		endpoint: baseURL + "/jsonrpc",
		http:     &http.Client{Timeout: timeout},
	}
}

// call performs one round trip. Transport problems and HTTP failure
// statuses come back as plain errors (transient); RPC faults come back
// as *Fault unless the exception class is known to be transient.
func (c *rpcClient) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("odoo transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("odoo transport: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("odoo transport: read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("odoo transport: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		name := rpcResp.Error.Data.Name
		msg := rpcResp.Error.Data.Message
		if msg == "" {
			msg = rpcResp.Error.Message
		}
		if isTransientFault(name) {
			return nil, fmt.Errorf("odoo transient fault %s: %s", name, msg)
		}
		return nil, &Fault{Code: rpcResp.Error.Code, Name: name, Message: msg}
	}

	return rpcResp.Result, nil
}

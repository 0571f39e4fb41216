// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package config loads and validates the process configuration.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file, then environment variables. The loaded Config is immutable for
// the process lifetime.
package config

import (
	"time"
)

// Config is the root configuration for the leadbus process.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Database DatabaseConfig `koanf:"database"`
	Queue    QueueConfig    `koanf:"queue"`
	Odoo     OdooConfig     `koanf:"odoo"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds the shared webhook secret.
type SecurityConfig struct {
	// APIKey is required on every webhook and operator endpoint
	// via the X-API-KEY header.
	APIKey string `koanf:"api_key"`

	// RateLimitReqs is the per-IP request ceiling for webhook endpoints.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the window for RateLimitReqs.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds the store-of-record connection settings.
type DatabaseConfig struct {
	// URL is the connection string for the relational store.
	URL string `koanf:"url"`

	// MaxConns caps the pgx pool size.
	MaxConns int32 `koanf:"max_conns"`
}

// QueueConfig holds queue fabric settings.
type QueueConfig struct {
	// Connection is the NATS URL. Empty means run an embedded broker.
	Connection string `koanf:"connection"`

	// StoreDir is the JetStream storage directory for the embedded broker.
	StoreDir string `koanf:"store_dir"`

	// VisibilityTimeoutSeconds is the per-message processing budget;
	// an un-deleted message is redelivered after this interval.
	VisibilityTimeoutSeconds int `koanf:"visibility_timeout_seconds"`

	// SyncIntervalSeconds is the idle poll gap when a queue is empty.
	SyncIntervalSeconds int `koanf:"sync_interval_seconds"`

	// MaxDeliver is the redelivery count after which a message is
	// routed to the dead-letter queue.
	MaxDeliver int `koanf:"max_deliver"`
}

// VisibilityTimeout returns the visibility timeout as a duration.
func (q QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(q.VisibilityTimeoutSeconds) * time.Second
}

// SyncInterval returns the idle poll gap as a duration.
func (q QueueConfig) SyncInterval() time.Duration {
	return time.Duration(q.SyncIntervalSeconds) * time.Second
}

// OdooConfig holds the Odoo endpoint and identity.
type OdooConfig struct {
	URL      string `koanf:"url"`
	DB       string `koanf:"db"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// RateLimitSeconds is the minimum wall-clock gap between two
	// successive completed Odoo calls.
	RateLimitSeconds float64 `koanf:"rate_limit_seconds"`

	// Timeout bounds a single HTTP round trip to Odoo.
	Timeout time.Duration `koanf:"timeout"`
}

// RateLimit returns the inter-call gap as a duration.
func (o OdooConfig) RateLimit() time.Duration {
	return time.Duration(o.RateLimitSeconds * float64(time.Second))
}

// LoggingConfig holds observability settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			APIKey:          "",
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			URL:      "",
			MaxConns: 8,
		},
		Queue: QueueConfig{
			Connection:               "", // embedded broker by default
			StoreDir:                 "/data/leadbus/jetstream",
			VisibilityTimeoutSeconds: 300,
			SyncIntervalSeconds:      10,
			MaxDeliver:               5,
		},
		Odoo: OdooConfig{
			URL:              "",
			DB:               "",
			User:             "",
			Password:         "",
			RateLimitSeconds: 1.0,
			Timeout:          30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

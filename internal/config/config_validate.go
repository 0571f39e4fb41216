// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would prevent the
// process from operating. It collects all problems so that operators fix
// a broken deployment in one pass.
func (c *Config) Validate() error {
	var problems []string

	if c.Security.APIKey == "" {
		problems = append(problems, "API_KEY is required")
	}
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.Odoo.URL == "" {
		problems = append(problems, "ODOO_URL is required")
	}
	if c.Odoo.DB == "" {
		problems = append(problems, "ODOO_DB is required")
	}
	if c.Odoo.User == "" {
		problems = append(problems, "ODOO_USER is required")
	}
	if c.Odoo.Password == "" {
		problems = append(problems, "ODOO_PASSWORD is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %d out of range 1-65535", c.Server.Port))
	}
	if c.Odoo.RateLimitSeconds < 0 {
		problems = append(problems, "ODOO_RATE_LIMIT_SECONDS must not be negative")
	}
	if c.Queue.VisibilityTimeoutSeconds < 1 {
		problems = append(problems, "VISIBILITY_TIMEOUT_SECONDS must be at least 1")
	}
	if c.Queue.SyncIntervalSeconds < 1 {
		problems = append(problems, "SYNC_INTERVAL_SECONDS must be at least 1")
	}
	if c.Queue.MaxDeliver < 1 {
		problems = append(problems, "QUEUE_MAX_DELIVER must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Leadbus - ManyChat to Odoo Integration Bus
// Copyright 2026 Vela Systems
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velasystems/leadbus

// Package api provides the HTTP surface: the three ManyChat webhook
// endpoints, the operator CRUD and DLQ endpoints, health probes, and
// the Prometheus scrape target. Routing uses chi.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velasystems/leadbus/internal/config"
	"github.com/velasystems/leadbus/internal/models"
	"github.com/velasystems/leadbus/internal/queue"
	"github.com/velasystems/leadbus/internal/store"
)

// Datastore is the slice of the relational store the HTTP surface
// touches. *store.Store satisfies it; tests substitute a stub.
type Datastore interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *store.Store) error) error

	GetContact(ctx context.Context, id int64) (*models.Contact, error)
	GetContactByManychatID(ctx context.Context, manychatID string) (*models.Contact, error)
	ListContacts(ctx context.Context, limit, offset int) ([]models.Contact, error)
	DeleteContact(ctx context.Context, id int64) error
	ListContactStates(ctx context.Context, contactID int64, limit int) ([]models.ContactState, error)

	CreateCampaign(ctx context.Context, c *models.Campaign) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]models.Campaign, error)
	UpdateCampaign(ctx context.Context, id int64, c *models.Campaign) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id int64) error
	ListCampaignContacts(ctx context.Context, campaignID int64) ([]models.CampaignContact, error)

	CreateAdvisor(ctx context.Context, a *models.Advisor) (*models.Advisor, error)
	GetAdvisor(ctx context.Context, id int64) (*models.Advisor, error)
	ListAdvisors(ctx context.Context) ([]models.Advisor, error)
	UpdateAdvisor(ctx context.Context, id int64, a *models.Advisor) (*models.Advisor, error)
	DeleteAdvisor(ctx context.Context, id int64) error

	CreateChannel(ctx context.Context, name string, description *string) (*models.Channel, error)
	GetChannel(ctx context.Context, id int64) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, id int64, name string, description *string) (*models.Channel, error)
	DeleteChannel(ctx context.Context, id int64) error

	ListSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
	CollectStats(ctx context.Context) (*store.Stats, error)
}

// Router builds the HTTP handler tree from its dependencies.
type Router struct {
	cfg    *config.Config
	store  Datastore
	fabric queue.Fabric
}

// NewRouter wires the handler dependencies.
func NewRouter(cfg *config.Config, st Datastore, fabric queue.Fabric) *Router {
	return &Router{cfg: cfg, store: st, fabric: fabric}
}

// Handler assembles the route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogging)

	// Health endpoints stay unauthenticated so orchestrators can probe
	// them, with a permissive per-IP ceiling.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, rt.cfg.Security.RateLimitWindow))
		r.Get("/live", rt.healthLive)
		r.Get("/ready", rt.healthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Webhook intake.
	r.Route("/webhook", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))
		r.Use(rt.requireAPIKey)

		r.Post("/manychat/contact-event", rt.webhookContactEvent)
		r.Post("/manychat/campaign-assignment", rt.webhookCampaignAssignment)
		r.Post("/crm/stage-change", rt.webhookStageChange)
	})

	// Operator surface.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))
		r.Use(rt.requireAPIKey)

		r.Get("/stats", rt.stats)

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", rt.listContacts)
			r.Get("/{id}", rt.getContact)
			r.With(rt.requireAPIKeyEcho).Delete("/{id}", rt.deleteContact)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", rt.createCampaign)
			r.Get("/", rt.listCampaigns)
			r.Get("/{id}", rt.getCampaign)
			r.Get("/{id}/contacts", rt.listCampaignContacts)
			r.Put("/{id}", rt.updateCampaign)
			r.With(rt.requireAPIKeyEcho).Delete("/{id}", rt.deleteCampaign)
		})

		r.Route("/advisors", func(r chi.Router) {
			r.Post("/", rt.createAdvisor)
			r.Get("/", rt.listAdvisors)
			r.Get("/{id}", rt.getAdvisor)
			r.Put("/{id}", rt.updateAdvisor)
			r.With(rt.requireAPIKeyEcho).Delete("/{id}", rt.deleteAdvisor)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Post("/", rt.createChannel)
			r.Get("/", rt.listChannels)
			r.Get("/{id}", rt.getChannel)
			r.Put("/{id}", rt.updateChannel)
			r.With(rt.requireAPIKeyEcho).Delete("/{id}", rt.deleteChannel)
		})

		r.Route("/dlq", func(r chi.Router) {
			r.Get("/", rt.peekDeadLetters)
			r.Post("/replay", rt.replayDeadLetters)
		})
	})

	return r
}

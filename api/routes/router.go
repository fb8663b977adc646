package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tipflow-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/tipflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tipflow-backend/api/middleware"
	billingsvc "github.com/angelmondragon/tipflow-backend/internal/billing"
	checkoutsvc "github.com/angelmondragon/tipflow-backend/internal/checkout"
	invitessvc "github.com/angelmondragon/tipflow-backend/internal/invites"
	tenantssvc "github.com/angelmondragon/tipflow-backend/internal/tenants"
	tipssvc "github.com/angelmondragon/tipflow-backend/internal/tips"
	stripewebhook "github.com/angelmondragon/tipflow-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/tipflow-backend/pkg/config"
	"github.com/angelmondragon/tipflow-backend/pkg/db"
	"github.com/angelmondragon/tipflow-backend/pkg/enums"
	"github.com/angelmondragon/tipflow-backend/pkg/logger"
	"github.com/angelmondragon/tipflow-backend/pkg/metrics"
	"github.com/angelmondragon/tipflow-backend/pkg/redis"
	"github.com/angelmondragon/tipflow-backend/pkg/stripe"
)

// RouterParams carries every dependency the HTTP surface needs. Grouping
// them in a struct keeps call sites readable as the surface grows.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry prometheus.Gatherer

	CheckoutService checkoutsvc.Service
	TipsService     tipssvc.Service
	TenantsService  tenantssvc.Service
	BillingService  billingsvc.Service
	InvitesService  *invitessvc.Service

	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	WebhookMetrics       *metrics.WebhookMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// Assign through the interface only when the client is real, so a nil
	// *redis.Client disables the middleware instead of panicking inside it.
	var kvStore redis.IdempotencyStore
	if p.Redis != nil {
		kvStore = p.Redis
	}

	publicPolicy := middleware.NewRateLimitPolicy(
		"public",
		cfg.RateLimit.PublicWindow,
		cfg.RateLimit.PublicIPLimit,
	)

	readiness := map[string]controllers.Pinger{"postgres": p.DB}
	if p.Redis != nil {
		readiness["redis"] = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/plans", controllers.ListPlans(p.BillingService, logg))

		// Payer-facing writes are anonymous, so they are rate limited by IP
		// and replay-protected by idempotency keys.
		r.Group(func(r chi.Router) {
			if p.Redis != nil {
				r.Use(middleware.RateLimit(publicPolicy, p.Redis, logg))
			}
			r.Use(middleware.Idempotency(kvStore, logg))
			r.Post("/v1/checkout", controllers.CheckoutIntent(p.CheckoutService, logg))
			r.Post("/v1/invites/{inviteId}/accept", controllers.AcceptInvite(p.InvitesService, logg))
		})
	})

	var webhookSvc webhookcontrollers.StripeWebhookService
	if p.StripeWebhookService != nil {
		webhookSvc = p.StripeWebhookService
	}
	var webhookVerifier webhookcontrollers.EventVerifier
	if p.StripeClient != nil {
		webhookVerifier = p.StripeClient
	}
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookSvc, webhookVerifier, p.WebhookMetrics, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(kvStore, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.TenantContext(logg))
			r.Get("/ping", controllers.PrivatePing())

			r.Get("/v1/tenants/me", controllers.TenantProfile(p.TenantsService, logg))

			r.Route("/v1/tips", func(r chi.Router) {
				r.Get("/", controllers.ListTips(p.TipsService, logg))
				r.Get("/{tipId}", controllers.GetTip(p.TipsService, logg))
			})

			r.Route("/v1/invites", func(r chi.Router) {
				r.Get("/", controllers.ListInvites(p.InvitesService, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(logg, enums.MemberRoleOwner, enums.MemberRoleManager))
					r.Post("/", controllers.CreateInvite(p.InvitesService, logg))
					r.Delete("/{inviteId}", controllers.RevokeInvite(p.InvitesService, logg))
				})
			})
		})
	})

	return r
}

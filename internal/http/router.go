// Package httpapi wires the HTTP transport (Gin) of the bot: health and
// Prometheus endpoints, the Telegram webhook and the admin API. It also
// centralizes cross-cutting concerns such as tracing, correlation IDs,
// redacted access logs, panic recovery, metrics, auth and rate limiting.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/slowpoke-bot/internal/config"
	"github.com/tbourn/slowpoke-bot/internal/http/handlers"
	"github.com/tbourn/slowpoke-bot/internal/http/middleware"
)

// maxWebhookBody caps Telegram update payloads.
const maxWebhookBody = 1 << 20

// Deps are the application components exposed over HTTP. Nil members leave
// their routes unmounted.
type Deps struct {
	Tenants handlers.TenantService
	Sweeper handlers.SweepService
	Webhook http.Handler
}

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. AccessLog: structured logs with secret redaction
//  4. Recovery: capture panics after logger
//  5. Metrics
//
// The admin API under /api/v1 is mounted only when cfg.AdminToken is set and
// adds bearer auth, per-IP rate limiting and no-store security headers.
func RegisterRoutes(r *gin.Engine, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(middleware.RedactOptions{
		MaskHeaders: []string{"Authorization"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Webhook != nil {
		r.POST(cfg.WebhookPath, limitBody(maxWebhookBody), gin.WrapH(deps.Webhook))
	}

	if cfg.AdminToken == "" || deps.Tenants == nil || deps.Sweeper == nil {
		return
	}
	h := handlers.New(deps.Tenants, deps.Sweeper)
	rl := middleware.NewRateLimiter(cfg.AdminRateRPS, cfg.AdminRateBurst, middleware.KeyByIP())

	api := r.Group("/api/v1",
		middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
		rl.Handler(),
		middleware.BearerAuth(cfg.AdminToken),
	)
	{
		api.GET("/tenants", h.ListTenants)
		api.GET("/tenants/:id/slowpokes", h.TenantSlowpokes)
		api.POST("/sweeps", h.RunSweep)
	}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Reads past the cap fail downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

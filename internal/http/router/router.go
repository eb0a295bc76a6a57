// Package router assembles the gin engine: webhook intake, health probes,
// and the operator endpoints.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"solar_sdr_backend/internal/analytics"
	"solar_sdr_backend/internal/followups"
	leadsrepo "solar_sdr_backend/internal/leads/repository"
	"solar_sdr_backend/internal/webhook"
	"solar_sdr_backend/platform/config"
	"solar_sdr_backend/platform/httpkit"
	"solar_sdr_backend/platform/logger"
	"solar_sdr_backend/platform/phone"
)

// Deps are the wired collaborators the router exposes over HTTP.
type Deps struct {
	Pool      *pgxpool.Pool
	Leads     *leadsrepo.Repository
	Analytics *analytics.Repository
	FollowUps *followups.Service
	Webhook   *webhook.Handler
	Logger    *logger.Logger
}

// New builds the engine.
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(deps.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(50), 100, deps.Logger)
	engine.Use(limiter.RateLimit())

	engine.GET("/healthz", func(c *gin.Context) {
		httpkit.OK(c, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if err := deps.Pool.Ping(c.Request.Context()); err != nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "database unreachable", nil)
			return
		}
		httpkit.OK(c, gin.H{"status": "ready"})
	})

	deps.Webhook.RegisterRoutes(engine.Group("/webhook"), cfg.GetGatewayWebhookToken())

	v1 := engine.Group("/api/v1")
	registerOperatorRoutes(v1, deps)

	return engine
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Webhook-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsCfg)
}

// transcriptLimit caps how many messages the operator transcript returns.
const transcriptLimit = 200

// registerOperatorRoutes exposes operator views and actions for the sales
// team: lead detail, transcript, funnel, recent events, follow-up cancel.
func registerOperatorRoutes(group *gin.RouterGroup, deps Deps) {
	group.GET("/leads/:phone", func(c *gin.Context) {
		normalized := phone.NormalizeE164(c.Param("phone"))
		if normalized == "" {
			httpkit.Error(c, http.StatusBadRequest, "invalid phone number", nil)
			return
		}
		lead, err := deps.Leads.GetLeadByPhone(c.Request.Context(), deps.Pool, normalized)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, lead)
	})

	group.GET("/leads/:phone/messages", func(c *gin.Context) {
		normalized := phone.NormalizeE164(c.Param("phone"))
		if normalized == "" {
			httpkit.Error(c, http.StatusBadRequest, "invalid phone number", nil)
			return
		}
		lead, err := deps.Leads.GetLeadByPhone(c.Request.Context(), deps.Pool, normalized)
		if httpkit.HandleError(c, err) {
			return
		}
		conv, err := deps.Leads.GetConversationByLeadID(c.Request.Context(), deps.Pool, lead.ID)
		if httpkit.HandleError(c, err) {
			return
		}
		messages, err := deps.Leads.GetConversationHistory(c.Request.Context(), deps.Pool, conv.ID, transcriptLimit)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, gin.H{"lead_id": lead.ID, "messages": messages})
	})

	group.POST("/leads/:phone/followups/cancel", func(c *gin.Context) {
		normalized := phone.NormalizeE164(c.Param("phone"))
		if normalized == "" {
			httpkit.Error(c, http.StatusBadRequest, "invalid phone number", nil)
			return
		}
		lead, err := deps.Leads.GetLeadByPhone(c.Request.Context(), deps.Pool, normalized)
		if httpkit.HandleError(c, err) {
			return
		}
		reason := c.DefaultQuery("reason", "operator_request")
		canceled, err := deps.FollowUps.CancelAllForLead(c.Request.Context(), lead.ID, reason)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, gin.H{"canceled": canceled})
	})

	group.GET("/analytics/funnel", func(c *gin.Context) {
		funnel, err := deps.Analytics.StageFunnel(c.Request.Context())
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, funnel)
	})

	group.GET("/analytics/events", func(c *gin.Context) {
		to := time.Now()
		from := to.Add(-24 * time.Hour)
		if raw := c.Query("from"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				httpkit.Error(c, http.StatusBadRequest, "invalid from timestamp", nil)
				return
			}
			from = parsed
		}
		counts, err := deps.Analytics.CountByKind(c.Request.Context(), from, to)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, counts)
	})
}

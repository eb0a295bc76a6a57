package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/semaphore"

	"solar_sdr_backend/internal/agent"
	"solar_sdr_backend/platform/httpkit"
	"solar_sdr_backend/platform/logger"
)

const (
	dedupeSize = 8192
	dedupeTTL  = 2 * time.Hour

	// maxConcurrentTurns bounds in-flight turns across all leads. Per-lead
	// ordering comes from the orchestrator's lead locks, not from here.
	maxConcurrentTurns = 32

	turnTimeout = 60 * time.Second
)

// Handler is the webhook intake endpoint.
type Handler struct {
	orchestrator *agent.Orchestrator
	dedupe       *lru.LRU[string, struct{}]
	sem          *semaphore.Weighted
	log          *logger.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(orchestrator *agent.Orchestrator, log *logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		dedupe:       lru.NewLRU[string, struct{}](dedupeSize, nil, dedupeTTL),
		sem:          semaphore.NewWeighted(maxConcurrentTurns),
		log:          log,
	}
}

// RegisterRoutes mounts the webhook endpoint behind token auth.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, token string) {
	group.POST("/events", httpkit.WebhookTokenAuth(token), h.handleEvent)
}

// handleEvent acknowledges fast and processes the turn in the background.
// The gateway retries non-2xx responses, so only malformed payloads get 4xx.
func (h *Handler) handleEvent(c *gin.Context) {
	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", nil)
		return
	}

	switch event.Event {
	case "messages.upsert":
		h.handleUpsert(&event)
	case "messages.update", "connection.update":
		// Delivery receipts and connection state are logged, not processed.
		h.log.Debug("webhook event ignored", "event", event.Event, "state", event.Data.State)
	default:
		h.log.Debug("unknown webhook event", "event", event.Event)
	}

	httpkit.OK(c, gin.H{"status": "accepted"})
}

func (h *Handler) handleUpsert(event *Event) {
	in := normalize(&event.Data)
	if in == nil {
		return
	}

	// First line of dedupe; the orchestrator re-checks against the message
	// store for restarts.
	if _, seen := h.dedupe.Get(in.GatewayMessageID); seen && in.GatewayMessageID != "" {
		h.log.Debug("duplicate webhook delivery", "gateway_message_id", in.GatewayMessageID)
		return
	}
	if in.GatewayMessageID != "" {
		h.dedupe.Add(in.GatewayMessageID, struct{}{})
	}

	if !h.sem.TryAcquire(1) {
		// Over capacity: drop the turn and let the gateway retry.
		h.log.Warn("turn capacity exhausted, dropping inbound", "phone", in.Phone)
		if in.GatewayMessageID != "" {
			h.dedupe.Remove(in.GatewayMessageID)
		}
		return
	}

	go func() {
		defer h.sem.Release(1)
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		if err := h.orchestrator.HandleInbound(ctx, in); err != nil {
			h.log.WithLead(in.Phone).Error("turn failed", "error", err)
		}
	}()
}

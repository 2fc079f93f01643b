package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gatepass/internal/database"
	apperrors "gatepass/internal/errors"
	"gatepass/internal/logger"
	"gatepass/internal/models"
)

// maxPayloadBytes bounds the webhook body; provider payloads are far smaller.
const maxPayloadBytes = 64 * 1024

// EventDecoder verifies a raw webhook payload and decodes it into an event.
type EventDecoder interface {
	DecodeEvent(payload []byte, sigHeader string) (*models.InboundEvent, error)
}

// EventRouter dispatches a verified event to its transaction handler.
type EventRouter interface {
	Route(ctx context.Context, ev *models.InboundEvent) error
}

// Deduplicator reports whether an event id is seen for the first time.
type Deduplicator interface {
	MarkSeen(ctx context.Context, eventID string) (bool, error)
}

type Handlers struct {
	decoder EventDecoder
	router  EventRouter
	dedup   Deduplicator
	db      *database.DB
}

func NewHandlers(decoder EventDecoder, router EventRouter, dedup Deduplicator, db *database.DB) *Handlers {
	return &Handlers{
		decoder: decoder,
		router:  router,
		dedup:   dedup,
		db:      db,
	}
}

// HandleWebhook - POST /api/webhooks/stripe
// Принять и обработать webhook от платежного провайдера
//
// Once the signature checks out the endpoint always answers 200: processing
// failures are retried through the internal queue, not through provider
// redelivery.
func (h *Handlers) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("Failed to read webhook payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	ev, err := h.decoder.DecodeEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidSignature) {
			slog.Warn("Webhook signature verification failed", "client_ip", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		slog.Error("Failed to decode webhook event", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed payload"})
		return
	}

	log := logger.WithEvent(ev.ID, ev.Kind)

	if h.dedup != nil {
		first, err := h.dedup.MarkSeen(c.Request.Context(), ev.ID)
		if err != nil {
			// Dedup is best effort; a cache outage must not drop events.
			log.Warn("Event dedup check failed", "error", err)
		} else if !first {
			log.Info("Duplicate event delivery skipped")
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	if err := h.router.Route(c.Request.Context(), ev); err != nil {
		// Already queued for retry or dropped as unprocessable; either way
		// the provider gets a 200 so it stops redelivering.
		log.Error("Event processing deferred", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Healthz - GET /healthz
// Проверка состояния сервиса и подключения к БД
func (h *Handlers) Healthz(c *gin.Context) {
	check := h.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, check)
}

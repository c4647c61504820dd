package handler

import (
	"io"
	"net/http"

	"vendora/config"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/internal/service"
	"vendora/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the inbound settlement endpoint. Body size is capped before
// reading; the signature covers the raw bytes, so nothing is parsed until
// verification passes inside the processor.
type WebhookHandler struct {
	cfg       *config.WebhookConfig
	processor *service.WebhookProcessor
	audit     *repository.AuditLogRepository
}

func NewWebhookHandler(cfg *config.WebhookConfig, processor *service.WebhookProcessor, audit *repository.AuditLogRepository) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, processor: processor, audit: audit}
}

func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body too large or unreadable"})
		return
	}
	signature := c.GetHeader("X-Webhook-Signature")

	outcome, err := h.processor.Process(c.Request.Context(), body, signature)
	switch outcome {
	case service.OutcomeApplied:
		c.JSON(http.StatusOK, gin.H{"status": "applied"})
	case service.OutcomeDuplicate:
		// Acknowledged so the processor stops redelivering.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	case service.OutcomeBadSignature:
		h.auditSignatureFailure(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case service.OutcomeInvoiceNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown invoice"})
	default:
		logger.L().Warnw("webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
	}
}

func (h *WebhookHandler) auditSignatureFailure(c *gin.Context) {
	if err := h.audit.Create(&models.AuditLog{
		Action:   "WEBHOOK_SIGNATURE_FAILED",
		Resource: "payment_webhook",
		IP:       c.ClientIP(),
		Detail:   "HMAC verification failed",
	}); err != nil {
		logger.L().Errorw("audit write failed", "error", err)
	}
}

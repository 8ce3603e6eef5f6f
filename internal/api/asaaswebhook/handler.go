// Package asaaswebhook is the ingestion gate for Asaas payment webhooks.
// It authenticates the delivery, parses the envelope and hands confirmed
// payments to the reconciliation engine. Once the token check passes the
// gateway always gets a success acknowledgment: Asaas delivers at least
// once, and retry storms on permanent application errors help nobody.
// Failures are logged for manual reconciliation instead.
package asaaswebhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gsa-hub/internal/reconcile"
)

const maxBodyBytes = 65536

type Handler struct {
	expectedToken string
	engine        *reconcile.Engine
	log           *zap.Logger
}

func NewHandler(expectedToken string, engine *reconcile.Engine, log *zap.Logger) *Handler {
	return &Handler{expectedToken: expectedToken, engine: engine, log: log}
}

// Handle is POST /webhooks/asaas.
func (h *Handler) Handle(c *gin.Context) {
	if h.expectedToken == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ASAAS_WEBHOOK_TOKEN not configured"})
		return
	}

	received := c.GetHeader("asaas-access-token")
	if received == "" || received != h.expectedToken {
		h.log.Warn("webhook rejected: missing or invalid access token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	payload, err := readBody(c, maxBodyBytes)
	if err != nil {
		h.log.Warn("webhook body unreadable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var event reconcile.PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Permanent parse failures must not induce gateway retries.
		h.log.Warn("webhook body malformed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if event.Payment.ID == "" {
		h.log.Warn("webhook without payment id", zap.String("event", event.Event))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	outcome, err := h.engine.ProcessPayment(c.Request.Context(), event)
	if err != nil {
		h.log.Error("webhook processing failed",
			zap.String("event", event.Event),
			zap.String("charge_id", event.Payment.ID),
			zap.Error(err),
		)
	} else {
		h.log.Info("webhook processed",
			zap.String("event", event.Event),
			zap.String("charge_id", event.Payment.ID),
			zap.String("outcome", string(outcome)),
		)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}

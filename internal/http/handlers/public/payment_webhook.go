package public

import (
	"io"
	"net/http"
	"strings"

	"github.com/Rishiupp/pettrack-api/internal/http/response"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"

	"github.com/gin-gonic/gin"
)

// RazorpayWebhook ingests gateway webhook deliveries. The body is read
// raw before any parsing because the signature covers the exact bytes.
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	log := requestLog(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("razorpay_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"status_code": http.StatusBadRequest, "msg": "invalid request body"})
		return
	}
	log.Infow("razorpay_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"event_id", strings.TrimSpace(c.GetHeader(razorpay.HeaderEventID)),
	)

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	if err := h.PaymentService.HandleWebhook(headers, body); err != nil {
		log.Warnw("razorpay_webhook_handle_failed", "error", err)
		respondWebhookError(c, err)
		return
	}

	response.Success(c, gin.H{"accepted": true})
}

package public

import (
	"strings"

	"github.com/Rishiupp/pettrack-api/internal/http/response"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest is the checkout bootstrap payload. Pricing
// happens server-side from the purpose; amount_paise is only the
// client's claim and must match the server price when present.
type CreateOrderRequest struct {
	Purpose     string      `json:"purpose" binding:"required"`
	QRCount     int         `json:"qr_count"`
	AmountPaise int64       `json:"amount_paise"`
	Metadata    models.JSON `json:"metadata"`
}

// VerifyPaymentRequest carries the checkout callback fields. The
// gateway fields are passed through exactly as received; the signature
// covers their exact bytes.
type VerifyPaymentRequest struct {
	LocalOrderID      string `json:"local_order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// CreatePaymentOrder prices and registers an order, returning what the
// checkout widget needs to open.
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.PaymentService.CreateOrder(service.CreateOrderInput{
		UserID:             uid,
		Purpose:            req.Purpose,
		QRCount:            req.QRCount,
		AmountClaimedPaise: req.AmountPaise,
		Metadata:           req.Metadata,
		Context:            c.Request.Context(),
	})
	if err != nil {
		requestLog(c).Warnw("create_payment_order_failed",
			"user_id", uid,
			"purpose", req.Purpose,
			"error", err,
		)
		respondOrderCreateError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order_no":          result.Order.OrderNo,
		"razorpay_order_id": result.RazorpayOrderID,
		"razorpay_key_id":   result.RazorpayKeyID,
		"amount_paise":      result.AmountPaise,
		"amount":            models.FormatPaise(result.AmountPaise),
		"currency":          result.Currency,
		"expires_at":        result.Order.ExpiresAt,
	})
}

// VerifyPayment reconciles a checkout callback against the gateway.
func (h *Handler) VerifyPayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.PaymentService.VerifyPayment(service.VerifyPaymentInput{
		UserID:            uid,
		OrderNo:           strings.TrimSpace(req.LocalOrderID),
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		Signature:         req.RazorpaySignature,
		Context:           c.Request.Context(),
	})
	if err != nil {
		requestLog(c).Warnw("verify_payment_failed",
			"user_id", uid,
			"razorpay_order_id", req.RazorpayOrderID,
			"razorpay_payment_id", req.RazorpayPaymentID,
			"error", err,
		)
		respondPaymentVerifyError(c, err)
		return
	}

	requestLog(c).Infow("verify_payment_success",
		"user_id", uid,
		"order_no", result.Order.OrderNo,
		"payment_id", result.Payment.ID,
	)
	response.Success(c, gin.H{
		"order_no":       result.Order.OrderNo,
		"order_status":   result.Order.Status,
		"payment_status": result.Payment.Status,
		"amount_paise":   result.Payment.AmountPaise,
		"paid_at":        result.Order.PaidAt,
	})
}

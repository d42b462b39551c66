package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/provider"
	"github.com/Rishiupp/pettrack-api/internal/queue"
	"github.com/Rishiupp/pettrack-api/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer handles async tasks enqueued by the payment flows.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates a consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds task types to handlers.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskQRFulfillment, c.handleQRFulfillment)
	mux.HandleFunc(queue.TaskPaymentNotification, c.handlePaymentNotification)
}

func (c *Consumer) handleQRFulfillment(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_qr_fulfillment_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.QRFulfillmentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_qr_fulfillment_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_qr_fulfillment_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.QRService == nil {
		logger.Warnw("worker_qr_fulfillment_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.QRService.FulfillOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_qr_fulfillment_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrQRPoolExhausted):
			// Retry once the pool is replenished.
			logger.Warnw("worker_qr_fulfillment_pool_exhausted", "order_id", payload.OrderID)
			return err
		default:
			logger.Warnw("worker_qr_fulfillment_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handlePaymentNotification(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_notification_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_notification_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_payment_notification_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	payment, err := c.PaymentRepo.GetByID(payload.PaymentID)
	if err != nil {
		logger.Warnw("worker_payment_notification_fetch_failed", "payment_id", payload.PaymentID, "error", err)
		return err
	}
	if payment == nil {
		logger.Debugw("worker_payment_notification_skip_not_found", "payment_id", payload.PaymentID)
		return nil
	}
	// SMS/push delivery hangs off this hook; today it is an audit log line.
	logger.Infow("payment_notification",
		"payment_id", payment.ID,
		"user_id", payment.UserID,
		"status", payload.Status,
		"amount_paise", payment.AmountPaise,
	)
	return nil
}

package queue

import (
	"encoding/json"

	"github.com/Rishiupp/pettrack-api/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskQRFulfillment assigns pooled QR codes after a qr_purchase
	// order is paid.
	TaskQRFulfillment = constants.TaskQRFulfillment
	// TaskPaymentNotification notifies the user about a payment outcome.
	TaskPaymentNotification = constants.TaskPaymentNotification
)

// QRFulfillmentPayload is the QR fulfillment task payload.
type QRFulfillmentPayload struct {
	OrderID uint `json:"order_id"`
}

// PaymentNotificationPayload is the payment notification task payload.
type PaymentNotificationPayload struct {
	PaymentID uint   `json:"payment_id"`
	Status    string `json:"status"`
}

// NewQRFulfillmentTask builds a QR fulfillment task.
func NewQRFulfillmentTask(payload QRFulfillmentPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQRFulfillment, body), nil
}

// NewPaymentNotificationTask builds a payment notification task.
func NewPaymentNotificationTask(payload PaymentNotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentNotification, body), nil
}

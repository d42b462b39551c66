package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"
	"github.com/Rishiupp/pettrack-api/internal/repository"
)

func webhookBody(eventID, eventType, paymentID, orderID, status string, amountPaise int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event": %q,
		"payload": {
			"payment": {
				"entity": {
					"id": %q,
					"order_id": %q,
					"status": %q,
					"amount": %d,
					"currency": "INR",
					"method": "upi"
				}
			}
		}
	}`, eventID, eventType, paymentID, orderID, status, amountPaise))
}

func webhookHeaders(body []byte) map[string]string {
	return map[string]string{razorpay.HeaderSignature: signWebhook(body)}
}

func TestHandleWebhookCapturedMarksOrderPaid(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := webhookBody("evt_cap_1", constants.EventPaymentCaptured, "pay_wh_1", created.RazorpayOrderID, "captured", created.AmountPaise)

	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}

	order, err := repository.NewOrderRepository(db).GetByID(created.Order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("unexpected order status: %s", order.Status)
	}

	event, err := repository.NewWebhookEventRepository(db).GetByEventID("evt_cap_1")
	if err != nil || event == nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.ProcessedAt == nil {
		t.Fatalf("processed event must carry a processed_at timestamp")
	}
}

func TestHandleWebhookDuplicateEventIsAcked(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := webhookBody("evt_dup_1", constants.EventPaymentCaptured, "pay_wh_dup", created.RazorpayOrderID, "captured", created.AmountPaise)

	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("redelivery must ack, got: %v", err)
	}

	var payments int64
	if err := db.Model(&models.Payment{}).Where("razorpay_payment_id = ?", "pay_wh_dup").Count(&payments).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if payments != 1 {
		t.Fatalf("duplicate delivery must not create a second payment, got %d", payments)
	}

	var events int64
	if err := db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_dup_1").Count(&events).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected a single event row, got %d", events)
	}
}

func TestHandleWebhookAfterVerifyIsIdempotent(t *testing.T) {
	svc, gateway, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	gateway.payments["pay_race_1"] = &razorpay.PaymentResult{
		PaymentID:   "pay_race_1",
		OrderID:     created.RazorpayOrderID,
		Status:      "captured",
		AmountPaise: created.AmountPaise,
		Currency:    "INR",
	}
	if _, err := svc.VerifyPayment(VerifyPaymentInput{
		UserID:            user.ID,
		RazorpayOrderID:   created.RazorpayOrderID,
		RazorpayPaymentID: "pay_race_1",
		Signature:         signCheckout(created.RazorpayOrderID, "pay_race_1"),
	}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	body := webhookBody("evt_race_1", constants.EventPaymentCaptured, "pay_race_1", created.RazorpayOrderID, "captured", created.AmountPaise)
	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("webhook after verify must ack, got: %v", err)
	}

	var payments int64
	if err := db.Model(&models.Payment{}).Where("razorpay_payment_id = ?", "pay_race_1").Count(&payments).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if payments != 1 {
		t.Fatalf("expected one payment row after both paths, got %d", payments)
	}

	stored, err := repository.NewUserRepository(db).GetByID(user.ID)
	if err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	if stored.PremiumUntil == nil {
		t.Fatalf("premium benefit missing")
	}
	// benefit granted once, not stacked by the second path
	if stored.PremiumUntil.After(time.Now().AddDate(1, 0, 1)) {
		t.Fatalf("premium extended more than once: %v", stored.PremiumUntil)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := webhookBody("evt_bad_1", constants.EventPaymentCaptured, "pay_wh_bad", created.RazorpayOrderID, "captured", created.AmountPaise)

	headers := map[string]string{razorpay.HeaderSignature: "deadbeef"}
	if err := svc.HandleWebhook(headers, body); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if err := svc.HandleWebhook(map[string]string{}, body); !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("expected ErrSignatureMissing, got %v", err)
	}

	event, err := repository.NewWebhookEventRepository(db).GetByEventID("evt_bad_1")
	if err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event != nil {
		t.Fatalf("unverified deliveries must not be stored")
	}
}

func TestHandleWebhookUnknownOrderStaysRetryable(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)

	// The error surfaces a non-2xx response so the gateway redelivers.
	body := webhookBody("evt_orphan_1", constants.EventPaymentCaptured, "pay_orphan", "order_unknown", "captured", 100000)
	if err := svc.HandleWebhook(webhookHeaders(body), body); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	event, err := repository.NewWebhookEventRepository(db).GetByEventID("evt_orphan_1")
	if err != nil || event == nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.ProcessedAt != nil {
		t.Fatalf("unmatched event must stay unprocessed for retry")
	}
	if event.ProcessError == "" {
		t.Fatalf("expected a recorded process error")
	}
}

func TestHandleWebhookAmountMismatchFailsDelivery(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := webhookBody("evt_short_1", constants.EventPaymentCaptured, "pay_wh_short", created.RazorpayOrderID, "captured", created.AmountPaise-50)

	if err := svc.HandleWebhook(webhookHeaders(body), body); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	order, err := repository.NewOrderRepository(db).GetByID(created.Order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusCreated {
		t.Fatalf("mismatched delivery must not transition the order")
	}

	event, err := repository.NewWebhookEventRepository(db).GetByEventID("evt_short_1")
	if err != nil || event == nil {
		t.Fatalf("load event failed: %v", err)
	}
	if event.ProcessedAt != nil || event.ProcessError == "" {
		t.Fatalf("mismatched event must stay failed with a recorded error")
	}
}

func TestHandleWebhookFailedPaymentRecorded(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := []byte(fmt.Sprintf(`{
		"id": "evt_fail_1",
		"event": "payment.failed",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_fail_1",
					"order_id": %q,
					"status": "failed",
					"amount": %d,
					"currency": "INR",
					"error_code": "BAD_REQUEST_ERROR",
					"error_description": "Payment declined by bank"
				}
			}
		}
	}`, created.RazorpayOrderID, created.AmountPaise))

	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}

	payment, err := repository.NewPaymentRepository(db).GetByRazorpayPaymentID("pay_fail_1")
	if err != nil || payment == nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusFailed || payment.ErrorCode != "BAD_REQUEST_ERROR" {
		t.Fatalf("failure details missing: %+v", payment)
	}

	order, err := repository.NewOrderRepository(db).GetByID(created.Order.ID)
	if err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if order.Status != constants.OrderStatusCreated {
		t.Fatalf("failed payment must not transition the order")
	}
}

func TestHandleWebhookFailedNeverDowngradesCaptured(t *testing.T) {
	svc, gateway, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	gateway.payments["pay_late_1"] = &razorpay.PaymentResult{
		PaymentID:   "pay_late_1",
		OrderID:     created.RazorpayOrderID,
		Status:      "captured",
		AmountPaise: created.AmountPaise,
		Currency:    "INR",
	}
	if _, err := svc.VerifyPayment(VerifyPaymentInput{
		UserID:            user.ID,
		RazorpayOrderID:   created.RazorpayOrderID,
		RazorpayPaymentID: "pay_late_1",
		Signature:         signCheckout(created.RazorpayOrderID, "pay_late_1"),
	}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	body := webhookBody("evt_late_fail", "payment.failed", "pay_late_1", created.RazorpayOrderID, "failed", created.AmountPaise)
	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("late failure must ack, got: %v", err)
	}

	payment, err := repository.NewPaymentRepository(db).GetByRazorpayPaymentID("pay_late_1")
	if err != nil || payment == nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusCaptured {
		t.Fatalf("captured payment was downgraded to %s", payment.Status)
	}
}

func TestHandleWebhookMissingEventIDFallsBackToBodyHash(t *testing.T) {
	svc, _, db := setupPaymentServiceTest(t)
	user := createServiceTestUser(t, db)

	created, err := svc.CreateOrder(CreateOrderInput{UserID: user.ID, Purpose: constants.PurposePremiumFeatures})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	body := webhookBody("", constants.EventPaymentCaptured, "pay_noid_1", created.RazorpayOrderID, "captured", created.AmountPaise)

	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	// same bytes, same synthetic id: the redelivery dedupes
	if err := svc.HandleWebhook(webhookHeaders(body), body); err != nil {
		t.Fatalf("redelivery must ack, got: %v", err)
	}

	var events int64
	if err := db.Model(&models.WebhookEvent{}).Where("event_id LIKE ?", "evt_sha256_%").Count(&events).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one synthetic-id event, got %d", events)
	}
}

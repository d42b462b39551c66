package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"

	"go.uber.org/zap"
)

// HandleWebhook verifies, records and processes one gateway webhook
// delivery. The raw body bytes are used for signature verification and
// stored untouched. Redeliveries of an already-processed event id are
// acknowledged without repeating side effects.
func (s *PaymentService) HandleWebhook(headers map[string]string, rawBody []byte) error {
	signature := headerValue(headers, razorpay.HeaderSignature)
	ok, err := s.gateway.VerifyWebhookSignature(rawBody, signature)
	if err != nil {
		if errors.Is(err, razorpay.ErrSignatureMissing) {
			paymentLogger().Warnw("webhook_signature_missing")
			return ErrSignatureMissing
		}
		paymentLogger().Errorw("webhook_signature_check_failed", "error", err)
		return ErrSignatureInvalid
	}
	if !ok {
		paymentLogger().Warnw("webhook_signature_mismatch")
		return ErrSignatureInvalid
	}

	result, err := razorpay.ParseWebhook(rawBody)
	if err != nil {
		paymentLogger().Warnw("webhook_payload_invalid", "error", err)
		return ErrWebhookInvalid
	}

	eventID := result.EventID
	if eventID == "" {
		eventID = headerValue(headers, razorpay.HeaderEventID)
	}
	if eventID == "" {
		// No id from body or header: fall back to a content hash so the
		// dedupe guarantee still holds for byte-identical redeliveries.
		sum := sha256.Sum256(rawBody)
		eventID = "evt_sha256_" + hex.EncodeToString(sum[:])
	}

	log := paymentLogger(
		"event_id", eventID,
		"event_type", result.EventType,
	)
	log.Infow("webhook_received")

	now := time.Now()
	event := &models.WebhookEvent{
		EventID:    eventID,
		EventType:  result.EventType,
		RawBody:    rawBody,
		Signature:  headerValue(headers, razorpay.HeaderSignature),
		ReceivedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if result.Payment != nil {
		event.RazorpayOrderID = result.Payment.OrderID
		event.RazorpayPaymentID = result.Payment.PaymentID
	}

	if err := s.webhookRepo.Create(event); err != nil {
		existing, lookupErr := s.webhookRepo.GetByEventID(eventID)
		if lookupErr != nil || existing == nil {
			log.Errorw("webhook_event_persist_failed", "error", err)
			return ErrEventSaveFailed
		}
		if existing.ProcessedAt != nil {
			log.Infow("webhook_idempotent_replay")
			return nil
		}
		// Unprocessed duplicate: a previous delivery stored the event
		// but its side effects never committed. Process that row.
		log.Infow("webhook_retry_unprocessed_duplicate")
		event = existing
	}

	return s.processWebhookEvent(event, result, log)
}

func (s *PaymentService) processWebhookEvent(event *models.WebhookEvent, result *razorpay.WebhookResult, log *zap.SugaredLogger) error {
	switch result.EventType {
	case constants.EventPaymentCaptured, constants.EventOrderPaid:
		return s.processCapturedEvent(event, result, log)
	case constants.EventPaymentFailed:
		return s.processFailedEvent(event, result, log)
	case constants.EventPaymentAuthorized:
		return s.processAuthorizedEvent(event, result, log)
	default:
		// Unhandled event types are acknowledged, not errors.
		if err := s.webhookRepo.MarkProcessed(event.ID, time.Now()); err != nil {
			log.Errorw("webhook_mark_processed_failed", "error", err)
			return ErrEventSaveFailed
		}
		log.Infow("webhook_ignored_event_type")
		return nil
	}
}

func (s *PaymentService) processCapturedEvent(event *models.WebhookEvent, result *razorpay.WebhookResult, log *zap.SugaredLogger) error {
	gwPayment := result.Payment
	if gwPayment == nil || gwPayment.PaymentID == "" {
		s.markEventFailed(event, "missing payment entity", log)
		return ErrWebhookInvalid
	}

	order, err := s.orderRepo.GetByRazorpayOrderID(gwPayment.OrderID)
	if err != nil {
		log.Errorw("webhook_order_fetch_failed", "error", err)
		return err
	}
	if order == nil {
		// Keep the event unprocessed and fail the delivery; the gateway
		// redelivers on non-2xx and can retry once the order exists.
		s.markEventFailed(event, "order not found", log)
		return ErrOrderNotFound
	}
	if gwPayment.AmountPaise != order.AmountPaise {
		log.Warnw("webhook_amount_mismatch",
			"order_amount_paise", order.AmountPaise,
			"gateway_amount_paise", gwPayment.AmountPaise,
		)
		s.markEventFailed(event, "amount mismatch", log)
		return ErrAmountMismatch
	}

	now := time.Now()
	payment, orderPaid, err := s.recordCapturedPayment(order, gwPayment, now)
	if err != nil {
		log.Errorw("webhook_record_captured_failed", "error", err)
		s.markEventFailed(event, err.Error(), log)
		return err
	}

	// The stamp comes after the commit above; a crash in between leaves
	// the event retryable, never half-acknowledged.
	if err := s.webhookRepo.MarkProcessed(event.ID, time.Now()); err != nil {
		log.Errorw("webhook_mark_processed_failed", "error", err)
		return ErrEventSaveFailed
	}
	if orderPaid {
		s.enqueuePaidSideEffectsAsync(order, payment, log)
	}
	log.Infow("webhook_captured_processed",
		"order_no", order.OrderNo,
		"payment_id", payment.ID,
		"order_paid", orderPaid,
	)
	return nil
}

func (s *PaymentService) processFailedEvent(event *models.WebhookEvent, result *razorpay.WebhookResult, log *zap.SugaredLogger) error {
	gwPayment := result.Payment
	if gwPayment == nil || gwPayment.PaymentID == "" {
		s.markEventFailed(event, "missing payment entity", log)
		return ErrWebhookInvalid
	}

	now := time.Now()
	existing, err := s.paymentRepo.GetByRazorpayPaymentID(gwPayment.PaymentID)
	if err != nil {
		log.Errorw("webhook_payment_fetch_failed", "error", err)
		return err
	}
	// Never downgrade a captured payment on a late failure event.
	if existing != nil && existing.Status == constants.PaymentStatusCaptured {
		if err := s.webhookRepo.MarkProcessed(event.ID, now); err != nil {
			log.Errorw("webhook_mark_processed_failed", "error", err)
			return ErrEventSaveFailed
		}
		log.Infow("webhook_failed_after_capture_ignored")
		return nil
	}

	if existing == nil {
		order, err := s.orderRepo.GetByRazorpayOrderID(gwPayment.OrderID)
		if err != nil {
			log.Errorw("webhook_order_fetch_failed", "error", err)
			return err
		}
		orderID := uint(0)
		userID := uint(0)
		if order != nil {
			orderID = order.ID
			userID = order.UserID
		}
		existing = &models.Payment{
			OrderID:           orderID,
			UserID:            userID,
			RazorpayPaymentID: gwPayment.PaymentID,
			RazorpayOrderID:   gwPayment.OrderID,
			AmountPaise:       gwPayment.AmountPaise,
			Currency:          "INR",
			CreatedAt:         now,
		}
	}
	existing.Status = constants.PaymentStatusFailed
	existing.Method = gwPayment.Method
	existing.ErrorCode = gwPayment.ErrorCode
	existing.ErrorDescription = gwPayment.ErrorDescription
	existing.ProviderPayload = models.JSON(gwPayment.Raw)
	existing.UpdatedAt = now

	if existing.ID == 0 {
		err = s.paymentRepo.Create(existing)
	} else {
		err = s.paymentRepo.Update(existing)
	}
	if err != nil {
		log.Errorw("webhook_failed_payment_save_failed", "error", err)
		s.markEventFailed(event, err.Error(), log)
		return ErrPaymentSaveFailed
	}

	if err := s.webhookRepo.MarkProcessed(event.ID, time.Now()); err != nil {
		log.Errorw("webhook_mark_processed_failed", "error", err)
		return ErrEventSaveFailed
	}
	log.Infow("webhook_failed_processed",
		"payment_id", existing.ID,
		"error_code", existing.ErrorCode,
	)
	return nil
}

func (s *PaymentService) processAuthorizedEvent(event *models.WebhookEvent, result *razorpay.WebhookResult, log *zap.SugaredLogger) error {
	gwPayment := result.Payment
	if gwPayment == nil || gwPayment.PaymentID == "" {
		s.markEventFailed(event, "missing payment entity", log)
		return ErrWebhookInvalid
	}

	now := time.Now()
	existing, err := s.paymentRepo.GetByRazorpayPaymentID(gwPayment.PaymentID)
	if err != nil {
		log.Errorw("webhook_payment_fetch_failed", "error", err)
		return err
	}
	// Authorized is an intermediate state; only record it when nothing
	// stronger is known yet.
	if existing == nil {
		order, err := s.orderRepo.GetByRazorpayOrderID(gwPayment.OrderID)
		if err != nil {
			log.Errorw("webhook_order_fetch_failed", "error", err)
			return err
		}
		orderID := uint(0)
		userID := uint(0)
		if order != nil {
			orderID = order.ID
			userID = order.UserID
		}
		payment := &models.Payment{
			OrderID:           orderID,
			UserID:            userID,
			RazorpayPaymentID: gwPayment.PaymentID,
			RazorpayOrderID:   gwPayment.OrderID,
			AmountPaise:       gwPayment.AmountPaise,
			Currency:          "INR",
			Status:            constants.PaymentStatusAuthorized,
			Method:            gwPayment.Method,
			ProviderPayload:   models.JSON(gwPayment.Raw),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.paymentRepo.Create(payment); err != nil {
			log.Errorw("webhook_authorized_payment_save_failed", "error", err)
			s.markEventFailed(event, err.Error(), log)
			return ErrPaymentSaveFailed
		}
	}

	if err := s.webhookRepo.MarkProcessed(event.ID, time.Now()); err != nil {
		log.Errorw("webhook_mark_processed_failed", "error", err)
		return ErrEventSaveFailed
	}
	log.Infow("webhook_authorized_processed")
	return nil
}

func (s *PaymentService) markEventFailed(event *models.WebhookEvent, reason string, log *zap.SugaredLogger) {
	if err := s.webhookRepo.MarkFailed(event.ID, reason); err != nil {
		log.Errorw("webhook_mark_failed_errored", "reason", reason, "error", err)
	}
}

func headerValue(headers map[string]string, key string) string {
	for h, v := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

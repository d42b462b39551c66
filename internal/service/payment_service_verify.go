package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"
	"github.com/Rishiupp/pettrack-api/internal/queue"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VerifyPaymentInput is the checkout-callback verification request.
// OrderNo is the caller's own order reference; when set it must agree
// with the order the gateway ids resolve to.
type VerifyPaymentInput struct {
	UserID            uint
	OrderNo           string
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
	Context           context.Context
}

// Failure codes recorded on failed Payment audit rows. Replaying the
// same payment id maps the stored code back to the original error.
const (
	failCodeSignatureInvalid = "signature_invalid"
	failCodeAmountMismatch   = "amount_mismatch"
	failCodeNotCaptured      = "payment_not_captured"
)

// VerifyPaymentResult reports the reconciled state.
type VerifyPaymentResult struct {
	Order   *models.Order
	Payment *models.Payment
}

// VerifyPayment reconciles a checkout callback: it checks the
// client-supplied signature, confirms the payment with the gateway,
// records it and transitions the order. A payment id is recorded at
// most once; any replay returns the recorded outcome without touching
// the gateway or the order again. An order leaves the created state
// exactly once, so a second payment id against a settled order is
// rejected instead of re-running the flow.
func (s *PaymentService) VerifyPayment(input VerifyPaymentInput) (*VerifyPaymentResult, error) {
	razorpayOrderID := input.RazorpayOrderID
	razorpayPaymentID := input.RazorpayPaymentID
	log := paymentLogger(
		"user_id", input.UserID,
		"razorpay_order_id", razorpayOrderID,
		"razorpay_payment_id", razorpayPaymentID,
	)
	log.Infow("payment_verify_received")

	// Idempotency comes first: a known payment id short-circuits before
	// any re-verification or gateway traffic.
	if razorpayPaymentID != "" {
		existing, err := s.paymentRepo.GetByRazorpayPaymentID(razorpayPaymentID)
		if err != nil {
			log.Errorw("payment_verify_payment_fetch_failed", "error", err)
			return nil, err
		}
		if existing != nil {
			return s.replayRecordedOutcome(existing, input.UserID, log)
		}
	}

	ok, err := s.gateway.VerifyCheckoutSignature(razorpayOrderID, razorpayPaymentID, input.Signature)
	if err != nil {
		if errors.Is(err, razorpay.ErrSignatureMissing) {
			log.Warnw("payment_verify_signature_missing")
			return nil, ErrSignatureMissing
		}
		log.Errorw("payment_verify_signature_check_failed", "error", err)
		s.auditFailedPayment(razorpayOrderID, razorpayPaymentID, false, failCodeSignatureInvalid, "signature check failed", nil, log)
		return nil, ErrSignatureInvalid
	}
	if !ok {
		log.Warnw("payment_verify_signature_mismatch")
		s.auditFailedPayment(razorpayOrderID, razorpayPaymentID, false, failCodeSignatureInvalid, "signature mismatch", nil, log)
		return nil, ErrSignatureInvalid
	}

	order, err := s.orderRepo.GetByRazorpayOrderID(razorpayOrderID)
	if err != nil {
		log.Errorw("payment_verify_order_fetch_failed", "error", err)
		return nil, err
	}
	if order == nil {
		log.Warnw("payment_verify_order_not_found")
		return nil, ErrOrderNotFound
	}
	if input.UserID != 0 && order.UserID != input.UserID {
		log.Warnw("payment_verify_order_not_owned", "order_user_id", order.UserID)
		return nil, ErrOrderNotOwned
	}
	if input.OrderNo != "" && input.OrderNo != order.OrderNo {
		log.Warnw("payment_verify_order_no_mismatch", "order_no", order.OrderNo)
		return nil, ErrOrderMismatch
	}
	// An order is verified once. A new payment id against an order that
	// already left created is a replay gone wrong, not a second success.
	if order.Status != constants.OrderStatusCreated {
		log.Warnw("payment_verify_order_already_processed", "order_status", order.Status)
		return nil, ErrOrderAlreadyProcessed
	}

	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	gwPayment, err := s.gateway.FetchPayment(ctx, razorpayPaymentID)
	if err != nil {
		log.Errorw("payment_verify_gateway_fetch_failed", "error", err)
		return nil, ErrGatewayUnavailable
	}
	if gwPayment.OrderID != "" && gwPayment.OrderID != order.RazorpayOrderID {
		log.Warnw("payment_verify_order_mismatch", "gateway_order_id", gwPayment.OrderID)
		return nil, ErrOrderMismatch
	}
	if gwPayment.AmountPaise != order.AmountPaise {
		log.Warnw("payment_verify_amount_mismatch",
			"order_amount_paise", order.AmountPaise,
			"gateway_amount_paise", gwPayment.AmountPaise,
		)
		s.auditFailedPayment(razorpayOrderID, razorpayPaymentID, true, failCodeAmountMismatch,
			fmt.Sprintf("order amount %d, gateway amount %d", order.AmountPaise, gwPayment.AmountPaise), gwPayment, log)
		return nil, ErrAmountMismatch
	}
	// Authorized-only payments are not success: capture has not happened.
	if gwPayment.Status != "captured" {
		log.Warnw("payment_verify_not_captured", "gateway_status", gwPayment.Status)
		s.auditFailedPayment(razorpayOrderID, razorpayPaymentID, true, failCodeNotCaptured,
			"gateway status "+gwPayment.Status, gwPayment, log)
		return nil, ErrPaymentNotCaptured
	}

	now := time.Now()
	payment, orderPaid, err := s.recordCapturedPayment(order, gwPayment, now)
	if err != nil {
		log.Errorw("payment_verify_record_failed", "error", err)
		return nil, err
	}
	if orderPaid {
		s.enqueuePaidSideEffectsAsync(order, payment, log)
	}
	log.Infow("payment_verify_processed",
		"order_no", order.OrderNo,
		"payment_id", payment.ID,
		"order_paid", orderPaid,
	)
	return &VerifyPaymentResult{Order: order, Payment: payment}, nil
}

// replayRecordedOutcome answers a verify replay from the stored row
// alone. Captured rows return success; failed and authorized rows
// return the error that was recorded for them.
func (s *PaymentService) replayRecordedOutcome(existing *models.Payment, userID uint, log *zap.SugaredLogger) (*VerifyPaymentResult, error) {
	log.Infow("payment_verify_idempotent_replay",
		"payment_id", existing.ID,
		"payment_status", existing.Status,
	)
	if existing.Status != constants.PaymentStatusCaptured {
		switch existing.ErrorCode {
		case failCodeSignatureInvalid:
			return nil, ErrSignatureInvalid
		case failCodeAmountMismatch:
			return nil, ErrAmountMismatch
		default:
			return nil, ErrPaymentNotCaptured
		}
	}

	order, err := s.orderRepo.GetByID(existing.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if userID != 0 && order.UserID != userID {
		return nil, ErrOrderNotOwned
	}
	return &VerifyPaymentResult{Order: order, Payment: existing}, nil
}

// auditFailedPayment stores a failed Payment row so trust and gateway
// failures leave a trace. The order is never touched here; a later
// valid attempt against it still works.
func (s *PaymentService) auditFailedPayment(razorpayOrderID, razorpayPaymentID string, signatureValid bool, errorCode, description string, gwPayment *razorpay.PaymentResult, log *zap.SugaredLogger) {
	if razorpayPaymentID == "" {
		return
	}
	now := time.Now()
	audit := &models.Payment{
		RazorpayPaymentID: razorpayPaymentID,
		RazorpayOrderID:   razorpayOrderID,
		Currency:          "INR",
		Status:            constants.PaymentStatusFailed,
		SignatureValid:    signatureValid,
		ErrorCode:         errorCode,
		ErrorDescription:  description,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if order, err := s.orderRepo.GetByRazorpayOrderID(razorpayOrderID); err == nil && order != nil {
		audit.OrderID = order.ID
		audit.UserID = order.UserID
		audit.Currency = order.Currency
	}
	if gwPayment != nil {
		audit.AmountPaise = gwPayment.AmountPaise
		audit.Method = gwPayment.Method
		audit.ProviderPayload = models.JSON(gwPayment.Raw)
	}
	if err := s.paymentRepo.Create(audit); err != nil {
		log.Warnw("payment_verify_audit_save_failed", "error_code", errorCode, "error", err)
	}
}

// recordCapturedPayment stores the captured payment and flips the order
// to paid in one transaction. The conditional order update decides the
// winner when the verify and webhook paths race; benefits apply exactly
// once, on the winning side.
func (s *PaymentService) recordCapturedPayment(order *models.Order, gwPayment *razorpay.PaymentResult, now time.Time) (*models.Payment, bool, error) {
	var payment *models.Payment
	orderPaid := false

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		current, err := paymentRepo.GetByRazorpayPaymentID(gwPayment.PaymentID)
		if err != nil {
			return ErrPaymentSaveFailed
		}
		if current == nil {
			current = &models.Payment{
				OrderID:           order.ID,
				UserID:            order.UserID,
				RazorpayPaymentID: gwPayment.PaymentID,
				RazorpayOrderID:   order.RazorpayOrderID,
				AmountPaise:       gwPayment.AmountPaise,
				Currency:          order.Currency,
				CreatedAt:         now,
			}
		}
		current.Status = constants.PaymentStatusCaptured
		current.SignatureValid = true
		current.Method = gwPayment.Method
		current.ProviderPayload = models.JSON(gwPayment.Raw)
		current.VerifiedAt = &now
		current.UpdatedAt = now

		if current.ID == 0 {
			if err := paymentRepo.Create(current); err != nil {
				// A concurrent duplicate beat this insert to the unique
				// payment id. Use the winner's row instead of erroring.
				winner, lookupErr := paymentRepo.GetByRazorpayPaymentID(gwPayment.PaymentID)
				if lookupErr != nil || winner == nil {
					return ErrPaymentSaveFailed
				}
				current = winner
			}
		} else {
			if err := paymentRepo.Update(current); err != nil {
				return ErrPaymentSaveFailed
			}
		}
		payment = current

		changed, err := orderRepo.MarkPaid(order.ID, now)
		if err != nil {
			return err
		}
		orderPaid = changed
		if !changed {
			return nil
		}
		return s.applyPaidBenefits(tx, order, now)
	})
	if err != nil {
		return nil, false, err
	}
	if orderPaid {
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
	}
	return payment, orderPaid, nil
}

// applyPaidBenefits applies purpose-specific effects inside the paid
// transaction. QR assignment runs async in the worker instead, since it
// touches the shared pool.
func (s *PaymentService) applyPaidBenefits(tx *gorm.DB, order *models.Order, now time.Time) error {
	switch order.Purpose {
	case constants.PurposePremiumFeatures:
		user, err := s.userRepo.WithTx(tx).GetByID(order.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		base := now
		if user.PremiumUntil != nil && user.PremiumUntil.After(now) {
			base = *user.PremiumUntil
		}
		return s.userRepo.WithTx(tx).ExtendPremium(order.UserID, base.AddDate(1, 0, 0))
	default:
		return nil
	}
}

func (s *PaymentService) enqueuePaidSideEffectsAsync(order *models.Order, payment *models.Payment, log *zap.SugaredLogger) {
	if s.queueClient == nil || order == nil {
		return
	}
	if order.Purpose == constants.PurposeQRPurchase {
		if err := s.queueClient.EnqueueQRFulfillment(queue.QRFulfillmentPayload{
			OrderID: order.ID,
		}, asynq.MaxRetry(3)); err != nil {
			log.Warnw("payment_enqueue_qr_fulfillment_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
		}
	}
	if payment != nil {
		if err := s.queueClient.EnqueuePaymentNotification(queue.PaymentNotificationPayload{
			PaymentID: payment.ID,
			Status:    payment.Status,
		}); err != nil {
			log.Warnw("payment_enqueue_notification_failed",
				"payment_id", payment.ID,
				"error", err,
			)
		}
	}
}

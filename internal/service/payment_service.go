package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"
	"github.com/Rishiupp/pettrack-api/internal/queue"
	"github.com/Rishiupp/pettrack-api/internal/repository"

	"go.uber.org/zap"
)

// Gateway is the slice of the Razorpay client the payment service
// needs. Tests substitute a fake.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, input razorpay.CreateOrderInput) (*razorpay.OrderResult, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.PaymentResult, error)
	VerifyCheckoutSignature(orderID, paymentID, signature string) (bool, error)
	VerifyWebhookSignature(body []byte, signature string) (bool, error)
}

// PaymentService owns the order and payment reconciliation flows.
type PaymentService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	webhookRepo repository.WebhookEventRepository
	userRepo    repository.UserRepository
	gateway     Gateway
	policy      *AmountPolicy
	queueClient *queue.Client
	orderExpire time.Duration
}

// NewPaymentService builds the payment service.
func NewPaymentService(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, webhookRepo repository.WebhookEventRepository, userRepo repository.UserRepository, gateway Gateway, policy *AmountPolicy, queueClient *queue.Client, orderExpireMinutes int) *PaymentService {
	expire := 15 * time.Minute
	if orderExpireMinutes > 0 {
		expire = time.Duration(orderExpireMinutes) * time.Minute
	}
	return &PaymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		webhookRepo: webhookRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		policy:      policy,
		queueClient: queueClient,
		orderExpire: expire,
	}
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// CreateOrderInput is a checkout order request. The price always comes
// from the purpose; AmountClaimedPaise is only the client's claim and
// is checked against the server-side price, never used for it.
type CreateOrderInput struct {
	UserID             uint
	Purpose            string
	QRCount            int
	AmountClaimedPaise int64
	Metadata           models.JSON
	Context            context.Context
}

// CreateOrderResult is what the checkout widget needs.
type CreateOrderResult struct {
	Order           *models.Order
	RazorpayOrderID string
	RazorpayKeyID   string
	AmountPaise     int64
	Currency        string
}

// CreateOrder prices the order server-side, registers it with the
// gateway and persists it in created status.
func (s *PaymentService) CreateOrder(input CreateOrderInput) (*CreateOrderResult, error) {
	purpose := strings.TrimSpace(input.Purpose)
	log := paymentLogger(
		"user_id", input.UserID,
		"purpose", purpose,
		"qr_count", input.QRCount,
	)

	amountPaise, err := s.policy.ComputeOrderAmount(purpose, input.QRCount)
	if err != nil {
		log.Warnw("order_amount_rejected", "error", err)
		return nil, err
	}
	// A client claim that disagrees with the policy price is a tamper
	// attempt and fails before any gateway call.
	if input.AmountClaimedPaise != 0 && input.AmountClaimedPaise != amountPaise {
		log.Warnw("order_amount_claim_mismatch",
			"claimed_paise", input.AmountClaimedPaise,
			"policy_paise", amountPaise,
		)
		return nil, ErrAmountMismatch
	}

	orderNo := generateOrderNo()
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderInput{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     orderNo,
		Notes: map[string]string{
			"order_no": orderNo,
			"purpose":  purpose,
			"user_id":  strconv.FormatUint(uint64(input.UserID), 10),
		},
	})
	if err != nil {
		log.Errorw("gateway_order_create_failed", "order_no", orderNo, "error", err)
		return nil, ErrGatewayUnavailable
	}

	now := time.Now()
	expiresAt := now.Add(s.orderExpire)
	order := &models.Order{
		OrderNo:         orderNo,
		UserID:          input.UserID,
		Purpose:         purpose,
		AmountPaise:     amountPaise,
		Currency:        "INR",
		Status:          constants.OrderStatusCreated,
		RazorpayOrderID: gwOrder.OrderID,
		Receipt:         orderNo,
		QRCount:         input.QRCount,
		Metadata:        input.Metadata,
		ExpiresAt:       &expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orderRepo.Create(order); err != nil {
		log.Errorw("order_persist_failed",
			"order_no", orderNo,
			"razorpay_order_id", gwOrder.OrderID,
			"error", err,
		)
		return nil, ErrOrderCreateFailed
	}

	log.Infow("order_created",
		"order_no", orderNo,
		"razorpay_order_id", gwOrder.OrderID,
		"amount_paise", amountPaise,
	)
	return &CreateOrderResult{
		Order:           order,
		RazorpayOrderID: gwOrder.OrderID,
		RazorpayKeyID:   s.gateway.KeyID(),
		AmountPaise:     amountPaise,
		Currency:        order.Currency,
	}, nil
}

// GetOrderByUserOrderNo returns a user's order by its number.
func (s *PaymentService) GetOrderByUserOrderNo(orderNo string, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListUserOrders lists a user's orders with their payments.
func (s *PaymentService) ListUserOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(filter)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("PT%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

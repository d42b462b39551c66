package public

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"
	"github.com/Rishiupp/pettrack-api/internal/provider"
	"github.com/Rishiupp/pettrack-api/internal/repository"
	"github.com/Rishiupp/pettrack-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	handlerTestKeySecret     = "handler_key_secret"
	handlerTestWebhookSecret = "handler_webhook_secret"
)

type handlerFakeGateway struct {
	payments map[string]*razorpay.PaymentResult
}

func (g *handlerFakeGateway) KeyID() string { return "rzp_test_handler" }

func (g *handlerFakeGateway) CreateOrder(_ context.Context, input razorpay.CreateOrderInput) (*razorpay.OrderResult, error) {
	return &razorpay.OrderResult{
		OrderID:     "order_handler_1",
		AmountPaise: input.AmountPaise,
		Currency:    input.Currency,
		Receipt:     input.Receipt,
		Status:      "created",
	}, nil
}

func (g *handlerFakeGateway) FetchPayment(_ context.Context, paymentID string) (*razorpay.PaymentResult, error) {
	payment, ok := g.payments[paymentID]
	if !ok {
		return nil, razorpay.ErrResponseInvalid
	}
	return payment, nil
}

func (g *handlerFakeGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) (bool, error) {
	return razorpay.VerifyCheckoutSignature(&razorpay.Config{KeySecret: handlerTestKeySecret}, orderID, paymentID, signature)
}

func (g *handlerFakeGateway) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	return razorpay.VerifyWebhookSignature(&razorpay.Config{WebhookSecret: handlerTestWebhookSecret}, body, signature)
}

func handlerSignWebhook(body []byte) string {
	h := hmac.New(sha256.New, []byte(handlerTestWebhookSecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func setupPaymentHandlerTest(t *testing.T) (*gin.Engine, *handlerFakeGateway, *gorm.DB, uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_payment_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.Payment{},
		&models.WebhookEvent{},
		&models.QRCode{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	now := time.Now()
	user := &models.User{
		Phone:        "+919000000099",
		PasswordHash: "hash",
		Role:         constants.UserRolePetOwner,
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	gateway := &handlerFakeGateway{payments: map[string]*razorpay.PaymentResult{}}
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, webhookRepo, userRepo, gateway, service.NewAmountPolicy(), nil, 15)

	h := New(&provider.Container{
		UserRepo:       userRepo,
		OrderRepo:      orderRepo,
		PaymentRepo:    paymentRepo,
		PaymentService: paymentService,
	})

	r := gin.New()
	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Next()
	})
	authed.POST("/payments/orders", h.CreatePaymentOrder)
	authed.POST("/payments/verify", h.VerifyPayment)
	r.POST("/payments/webhook/razorpay", h.RazorpayWebhook)
	return r, gateway, db, user.ID
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]interface{}) {
	t.Helper()
	var resp struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope failed: %v (body %s)", err, w.Body.String())
	}
	return resp.StatusCode, resp.Data
}

func TestCreatePaymentOrderHandler(t *testing.T) {
	r, _, _, _ := setupPaymentHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/orders",
		strings.NewReader(`{"purpose":"qr_purchase","qr_count":2}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("status_code want 0 got %d (body %s)", code, w.Body.String())
	}
	if data["razorpay_order_id"] != "order_handler_1" {
		t.Fatalf("missing gateway order id: %v", data)
	}
	if data["amount_paise"].(float64) != float64(2*service.PriceQRCodePaise) {
		t.Fatalf("unexpected amount: %v", data["amount_paise"])
	}
}

func TestCreatePaymentOrderHandlerRejectsTamperedAmount(t *testing.T) {
	r, _, db, _ := setupPaymentHandlerTest(t)

	// A claimed amount that disagrees with the server price fails the
	// request before any gateway call.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/orders",
		strings.NewReader(`{"purpose":"premium_features","amount_paise":1}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("status_code want 400 got %d (body %s)", code, w.Body.String())
	}
	var orders int64
	if err := db.Model(&models.Order{}).Count(&orders).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orders != 0 {
		t.Fatalf("rejected request must not create an order, got %d", orders)
	}
}

func TestCreatePaymentOrderHandlerAcceptsMatchingAmountClaim(t *testing.T) {
	r, _, _, _ := setupPaymentHandlerTest(t)

	body := fmt.Sprintf(`{"purpose":"premium_features","amount_paise":%d}`, service.PricePremiumFeaturesPaise)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("status_code want 0 got %d (body %s)", code, w.Body.String())
	}
	if data["amount_paise"].(float64) != float64(service.PricePremiumFeaturesPaise) {
		t.Fatalf("unexpected amount: %v", data["amount_paise"])
	}
}

func TestCreatePaymentOrderHandlerRejectsUnknownPurpose(t *testing.T) {
	r, _, _, _ := setupPaymentHandlerTest(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/orders",
		strings.NewReader(`{"purpose":"free_money"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("status_code want 400 got %d", code)
	}
}

func TestRazorpayWebhookHandler(t *testing.T) {
	r, _, db, userID := setupPaymentHandlerTest(t)

	order := &models.Order{
		OrderNo:         "PT20260831000001",
		UserID:          userID,
		Purpose:         constants.PurposePremiumFeatures,
		AmountPaise:     100000,
		Currency:        "INR",
		Status:          constants.OrderStatusCreated,
		RazorpayOrderID: "order_wh_handler",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	body := []byte(`{"id":"evt_handler_1","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_handler_1","order_id":"order_wh_handler","status":"captured","amount":100000,"currency":"INR"}}}}`)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/razorpay", strings.NewReader(string(body)))
	req.Header.Set(razorpay.HeaderSignature, handlerSignWebhook(body))
	r.ServeHTTP(w, req)

	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("status_code want 0 got %d (body %s)", code, w.Body.String())
	}
	if data["accepted"] != true {
		t.Fatalf("expected accepted response, got %v", data)
	}

	var stored models.Order
	if err := db.First(&stored, order.ID).Error; err != nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPaid {
		t.Fatalf("order status want paid got %s", stored.Status)
	}
}

func TestRazorpayWebhookHandlerRejectsBadSignature(t *testing.T) {
	r, _, _, _ := setupPaymentHandlerTest(t)

	body := `{"id":"evt_handler_bad","event":"payment.captured","payload":{}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/razorpay", strings.NewReader(body))
	req.Header.Set(razorpay.HeaderSignature, "deadbeef")
	r.ServeHTTP(w, req)

	// The webhook route answers with the real HTTP status so the gateway
	// does not redeliver an unverifiable body.
	if w.Code != http.StatusBadRequest {
		t.Fatalf("http status want 400 got %d (body %s)", w.Code, w.Body.String())
	}
	code, _ := decodeEnvelope(t, w)
	if code != 400 {
		t.Fatalf("status_code want 400 got %d", code)
	}
}

func TestRazorpayWebhookHandlerUnknownOrderIsRetryable(t *testing.T) {
	r, _, _, _ := setupPaymentHandlerTest(t)

	body := []byte(`{"id":"evt_handler_orphan","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_handler_orphan","order_id":"order_never_created","status":"captured","amount":100000,"currency":"INR"}}}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/razorpay", strings.NewReader(string(body)))
	req.Header.Set(razorpay.HeaderSignature, handlerSignWebhook(body))
	r.ServeHTTP(w, req)

	// A non-2xx answer makes the gateway redeliver once the order exists.
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("http status want 500 got %d (body %s)", w.Code, w.Body.String())
	}
}

package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupQRServiceTest(t *testing.T) (*QRService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:qr_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.QRCode{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewQRService(repository.NewQRCodeRepository(db), repository.NewOrderRepository(db))
	return svc, db
}

func createQRTestOrder(t *testing.T, db *gorm.DB, userID uint, status string, qrCount int) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:         fmt.Sprintf("PT2026%010d", time.Now().UnixNano()%10000000000),
		UserID:          userID,
		Purpose:         constants.PurposeQRPurchase,
		AmountPaise:     int64(qrCount) * PriceQRCodePaise,
		Currency:        "INR",
		Status:          status,
		RazorpayOrderID: fmt.Sprintf("order_qr_%d", time.Now().UnixNano()),
		QRCount:         qrCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestGenerateBatchMintsPooledCodes(t *testing.T) {
	svc, db := setupQRServiceTest(t)

	codes, err := svc.GenerateBatch(3)
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("expected 3 codes, got %d", len(codes))
	}
	for _, code := range codes {
		if code.Status != constants.QRStatusPooled {
			t.Fatalf("new code must be pooled, got %s", code.Status)
		}
	}

	var pooled int64
	if err := db.Model(&models.QRCode{}).Where("status = ?", constants.QRStatusPooled).Count(&pooled).Error; err != nil {
		t.Fatalf("count pooled failed: %v", err)
	}
	if pooled != 3 {
		t.Fatalf("expected 3 pooled rows, got %d", pooled)
	}

	if _, err := svc.GenerateBatch(0); !errors.Is(err, ErrQRCountInvalid) {
		t.Fatalf("expected ErrQRCountInvalid, got %v", err)
	}
}

func TestGetByCodeResolvesAndRejectsUnknown(t *testing.T) {
	svc, _ := setupQRServiceTest(t)

	codes, err := svc.GenerateBatch(1)
	if err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}

	qr, err := svc.GetByCode(codes[0].Code)
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if qr.ID != codes[0].ID {
		t.Fatalf("resolved wrong code: %d", qr.ID)
	}

	if _, err := svc.GetByCode("PTQR-NO-SUCH-CODE"); !errors.Is(err, ErrQRCodeNotFound) {
		t.Fatalf("expected ErrQRCodeNotFound, got %v", err)
	}
}

func TestFulfillOrderAssignsCodesOnce(t *testing.T) {
	svc, db := setupQRServiceTest(t)

	if _, err := svc.GenerateBatch(5); err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	order := createQRTestOrder(t, db, 7, constants.OrderStatusPaid, 2)

	if err := svc.FulfillOrder(order.ID); err != nil {
		t.Fatalf("fulfill failed: %v", err)
	}

	var assigned int64
	if err := db.Model(&models.QRCode{}).Where("order_id = ? AND status = ?", order.ID, constants.QRStatusAssigned).Count(&assigned).Error; err != nil {
		t.Fatalf("count assigned failed: %v", err)
	}
	if assigned != 2 {
		t.Fatalf("expected 2 assigned codes, got %d", assigned)
	}

	// Retrying the task must not hand out more codes.
	if err := svc.FulfillOrder(order.ID); err != nil {
		t.Fatalf("retry must be a no-op, got: %v", err)
	}
	if err := db.Model(&models.QRCode{}).Where("order_id = ?", order.ID).Count(&assigned).Error; err != nil {
		t.Fatalf("count assigned failed: %v", err)
	}
	if assigned != 2 {
		t.Fatalf("retry assigned extra codes, got %d", assigned)
	}
}

func TestFulfillOrderRequiresPaidOrder(t *testing.T) {
	svc, db := setupQRServiceTest(t)

	if _, err := svc.GenerateBatch(2); err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	order := createQRTestOrder(t, db, 7, constants.OrderStatusCreated, 1)

	if err := svc.FulfillOrder(order.ID); err == nil {
		t.Fatalf("unpaid order must not be fulfilled")
	}
	if err := svc.FulfillOrder(999999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestFulfillOrderPoolExhausted(t *testing.T) {
	svc, db := setupQRServiceTest(t)

	if _, err := svc.GenerateBatch(1); err != nil {
		t.Fatalf("generate batch failed: %v", err)
	}
	order := createQRTestOrder(t, db, 7, constants.OrderStatusPaid, 3)

	if err := svc.FulfillOrder(order.ID); !errors.Is(err, ErrQRPoolExhausted) {
		t.Fatalf("expected ErrQRPoolExhausted, got %v", err)
	}
	var assigned int64
	if err := db.Model(&models.QRCode{}).Where("order_id = ?", order.ID).Count(&assigned).Error; err != nil {
		t.Fatalf("count assigned failed: %v", err)
	}
	if assigned != 0 {
		t.Fatalf("exhausted pool must assign nothing, got %d", assigned)
	}
}

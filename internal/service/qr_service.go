package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/cache"
	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Public tag scans hit the same few codes repeatedly, so resolved
// codes are cached briefly and invalidated when ownership changes.
const qrCacheTTL = 5 * time.Minute

func qrCacheKey(code string) string {
	return "qr:code:" + code
}

// QRService manages the QR code pool and fulfillment.
type QRService struct {
	qrRepo    repository.QRCodeRepository
	orderRepo repository.OrderRepository
}

// NewQRService builds the QR service.
func NewQRService(qrRepo repository.QRCodeRepository, orderRepo repository.OrderRepository) *QRService {
	return &QRService{
		qrRepo:    qrRepo,
		orderRepo: orderRepo,
	}
}

// GenerateBatch mints pooled codes.
func (s *QRService) GenerateBatch(count int) ([]models.QRCode, error) {
	if count <= 0 {
		return nil, ErrQRCountInvalid
	}
	now := time.Now()
	codes := make([]models.QRCode, 0, count)
	for i := 0; i < count; i++ {
		codes = append(codes, models.QRCode{
			Code:      "PTQR-" + strings.ToUpper(uuid.NewString()),
			Status:    constants.QRStatusPooled,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := s.qrRepo.CreateBatch(codes); err != nil {
		return nil, err
	}
	logger.Infow("qr_batch_generated", "count", count)
	return codes, nil
}

// FulfillOrder assigns pooled codes to the buyer of a paid qr_purchase
// order. Re-running for an already fulfilled order is a no-op, so the
// task can be retried safely.
func (s *QRService) FulfillOrder(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.Purpose != constants.PurposeQRPurchase {
		return nil
	}
	if order.Status != constants.OrderStatusPaid {
		return fmt.Errorf("order %s not paid yet", order.OrderNo)
	}

	log := logger.SW(
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"qr_count", order.QRCount,
	)

	_, alreadyAssigned, err := s.qrRepo.List(repository.QRCodeListFilter{OrderID: order.ID, Page: 1, PageSize: 1})
	if err != nil {
		return err
	}
	if alreadyAssigned > 0 {
		log.Infow("qr_fulfillment_already_done")
		return nil
	}

	now := time.Now()
	var taken []models.QRCode
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		qrRepo := s.qrRepo.WithTx(tx)
		pooled, err := qrRepo.TakePooled(order.QRCount)
		if err != nil {
			return err
		}
		if len(pooled) < order.QRCount {
			return ErrQRPoolExhausted
		}
		ids := make([]uint, 0, len(pooled))
		for _, code := range pooled {
			ids = append(ids, code.ID)
		}
		taken = pooled
		return qrRepo.Assign(ids, order.UserID, order.ID, now)
	})
	if err != nil {
		log.Errorw("qr_fulfillment_failed", "error", err)
		return err
	}
	ctx := context.Background()
	for _, code := range taken {
		if err := cache.Del(ctx, qrCacheKey(code.Code)); err != nil {
			log.Debugw("qr_cache_invalidate_failed", "code", code.Code, "error", err)
		}
	}
	log.Infow("qr_fulfillment_done")
	return nil
}

// GetByCode looks up one QR code, read-through cached.
func (s *QRService) GetByCode(code string) (*models.QRCode, error) {
	ctx := context.Background()
	var cached models.QRCode
	if hit, err := cache.GetJSON(ctx, qrCacheKey(code), &cached); err == nil && hit {
		return &cached, nil
	}

	qr, err := s.qrRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if qr == nil {
		return nil, ErrQRCodeNotFound
	}
	if err := cache.SetJSON(ctx, qrCacheKey(code), qr, qrCacheTTL); err != nil {
		logger.Debugw("qr_cache_set_failed", "code", code, "error", err)
	}
	return qr, nil
}

// ListUserCodes lists a user's codes.
func (s *QRService) ListUserCodes(filter repository.QRCodeListFilter) ([]models.QRCode, int64, error) {
	return s.qrRepo.List(filter)
}

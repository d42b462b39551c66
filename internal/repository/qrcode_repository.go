package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/constants"
	"github.com/Rishiupp/pettrack-api/internal/models"

	"gorm.io/gorm"
)

// QRCodeRepository is the QR code data access interface.
type QRCodeRepository interface {
	CreateBatch(codes []models.QRCode) error
	GetByCode(code string) (*models.QRCode, error)
	CountPooled() (int64, error)
	TakePooled(limit int) ([]models.QRCode, error)
	Assign(ids []uint, userID, orderID uint, at time.Time) error
	List(filter QRCodeListFilter) ([]models.QRCode, int64, error)
	WithTx(tx *gorm.DB) *GormQRCodeRepository
}

// GormQRCodeRepository is the GORM implementation.
type GormQRCodeRepository struct {
	db *gorm.DB
}

// NewQRCodeRepository builds a QR code repository.
func NewQRCodeRepository(db *gorm.DB) *GormQRCodeRepository {
	return &GormQRCodeRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormQRCodeRepository) WithTx(tx *gorm.DB) *GormQRCodeRepository {
	if tx == nil {
		return r
	}
	return &GormQRCodeRepository{db: tx}
}

// CreateBatch inserts pooled codes.
func (r *GormQRCodeRepository) CreateBatch(codes []models.QRCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.Create(&codes).Error
}

// GetByCode fetches a QR code by its printed code.
func (r *GormQRCodeRepository) GetByCode(code string) (*models.QRCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var qr models.QRCode
	result := r.db.Where("code = ?", code).Limit(1).Find(&qr)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &qr, nil
}

// CountPooled counts unassigned codes.
func (r *GormQRCodeRepository) CountPooled() (int64, error) {
	var total int64
	err := r.db.Model(&models.QRCode{}).Where("status = ?", constants.QRStatusPooled).Count(&total).Error
	return total, err
}

// TakePooled picks pooled codes, oldest first. Callers assign them
// inside the same transaction to keep the pick race-free.
func (r *GormQRCodeRepository) TakePooled(limit int) ([]models.QRCode, error) {
	if limit <= 0 {
		return []models.QRCode{}, nil
	}
	var codes []models.QRCode
	err := r.db.Where("status = ?", constants.QRStatusPooled).Order("id asc").Limit(limit).Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Assign moves pooled codes to a user. The status guard keeps a code
// from being handed out twice.
func (r *GormQRCodeRepository) Assign(ids []uint, userID, orderID uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	result := r.db.Model(&models.QRCode{}).
		Where("id IN ? AND status = ?", ids, constants.QRStatusPooled).
		Updates(map[string]interface{}{
			"status":      constants.QRStatusAssigned,
			"user_id":     userID,
			"order_id":    orderID,
			"assigned_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		return errors.New("qr codes no longer pooled")
	}
	return nil
}

// List lists codes matching a filter.
func (r *GormQRCodeRepository) List(filter QRCodeListFilter) ([]models.QRCode, int64, error) {
	var codes []models.QRCode
	query := r.db.Model(&models.QRCode{})

	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := applyPagination(query.Order("id desc"), filter.Page, filter.PageSize).Find(&codes).Error; err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

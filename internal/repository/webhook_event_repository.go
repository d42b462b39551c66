package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Rishiupp/pettrack-api/internal/models"

	"gorm.io/gorm"
)

// WebhookEventRepository is the webhook event data access interface.
type WebhookEventRepository interface {
	Create(event *models.WebhookEvent) error
	GetByID(id uint) (*models.WebhookEvent, error)
	GetByEventID(eventID string) (*models.WebhookEvent, error)
	MarkProcessed(id uint, processedAt time.Time) error
	MarkFailed(id uint, processError string) error
	List(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error)
	WithTx(tx *gorm.DB) *GormWebhookEventRepository
}

// GormWebhookEventRepository is the GORM implementation.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository builds a webhook event repository.
func NewWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// WithTx binds a transaction.
func (r *GormWebhookEventRepository) WithTx(tx *gorm.DB) *GormWebhookEventRepository {
	if tx == nil {
		return r
	}
	return &GormWebhookEventRepository{db: tx}
}

// Create inserts a webhook event. A duplicate EventID surfaces as a
// unique constraint error, which the service treats as a redelivery.
func (r *GormWebhookEventRepository) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

// GetByID fetches an event by id.
func (r *GormWebhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// GetByEventID fetches an event by the gateway's event id.
func (r *GormWebhookEventRepository) GetByEventID(eventID string) (*models.WebhookEvent, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, nil
	}
	var event models.WebhookEvent
	result := r.db.Where("event_id = ?", eventID).Limit(1).Find(&event)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &event, nil
}

// MarkProcessed stamps the event after its side effects committed.
func (r *GormWebhookEventRepository) MarkProcessed(id uint, processedAt time.Time) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":  processedAt,
		"process_error": "",
	}).Error
}

// MarkFailed records the processing error, leaving ProcessedAt unset so
// a redelivery can retry.
func (r *GormWebhookEventRepository) MarkFailed(id uint, processError string) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"process_error": processError,
	}).Error
}

// List lists events matching a filter.
func (r *GormWebhookEventRepository) List(filter WebhookEventListFilter) ([]models.WebhookEvent, int64, error) {
	var events []models.WebhookEvent
	query := r.db.Model(&models.WebhookEvent{})

	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.OnlyUnhandled {
		query = query.Where("processed_at IS NULL")
	}
	if filter.ReceivedFrom != nil {
		query = query.Where("received_at >= ?", *filter.ReceivedFrom)
	}
	if filter.ReceivedTo != nil {
		query = query.Where("received_at <= ?", *filter.ReceivedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := applyPagination(query.Order("id desc"), filter.Page, filter.PageSize).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

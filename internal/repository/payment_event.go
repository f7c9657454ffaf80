package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
)

// PaymentEventRepository is the audit log of verified gateway callbacks.
type PaymentEventRepository interface {
	Record(ctx context.Context, event *model.PaymentEvent) error
	ListByTrackingCode(ctx context.Context, trackingCode string) ([]*model.PaymentEvent, error)
}

type paymentEventRepoImpl struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepoImpl{db: db}
}

func (r *paymentEventRepoImpl) Record(ctx context.Context, event *model.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *paymentEventRepoImpl) ListByTrackingCode(ctx context.Context, trackingCode string) ([]*model.PaymentEvent, error) {
	var events []*model.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("tracking_code = ?", trackingCode).
		Order("created_at, id").
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}

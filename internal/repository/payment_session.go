package repository

import (
	"context"
	"time"

	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentSessionRepository interface {
	Create(ctx context.Context, session *model.PaymentSession) error
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByCode(ctx context.Context, code string) (*model.PaymentSession, error)
	LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.PaymentSession, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, sessionID string, orders []model.OrderRef, paymentRef string, payload *model.GatewayPayload) error
	MarkFailed(ctx context.Context, code, paymentRef string, payload *model.GatewayPayload) (bool, error)
	FlagReconciliation(ctx context.Context, code, reason string) error
	Cancel(ctx context.Context, userID uint, code string) (bool, error)
	ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error)
}

type paymentSessionRepoImpl struct {
	db *gorm.DB
}

func NewPaymentSessionRepository(db *gorm.DB) PaymentSessionRepository {
	return &paymentSessionRepoImpl{
		db: db,
	}
}

func (r *paymentSessionRepoImpl) Create(ctx context.Context, session *model.PaymentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *paymentSessionRepoImpl) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("code = ?", code).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentSessionRepoImpl) FindByCode(ctx context.Context, code string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&session).Error

	if err != nil {
		return nil, err
	}

	return &session, nil
}

// LockByCode reads the session with SELECT ... FOR UPDATE. The lock is held
// until tx commits or rolls back.
func (r *paymentSessionRepoImpl) LockByCode(ctx context.Context, tx *gorm.DB, code string) (*model.PaymentSession, error) {
	var session model.PaymentSession
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&session).Error

	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (r *paymentSessionRepoImpl) MarkPaid(
	ctx context.Context,
	tx *gorm.DB,
	sessionID string,
	orders []model.OrderRef,
	paymentRef string,
	payload *model.GatewayPayload,
) error {
	settledAt := tx.NowFunc()
	var ref *string
	if paymentRef != "" {
		ref = &paymentRef
	}

	result := tx.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("id = ? AND status = ?", sessionID, model.PaymentSessionPending).
		Select("status", "orders", "payment_ref", "payload", "settled_at", "last_error", "needs_reconciliation").
		Updates(&model.PaymentSession{
			Status:     model.PaymentSessionPaid,
			Orders:     orders,
			PaymentRef: ref,
			Payload:    payload,
			SettledAt:  &settledAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFailed moves a PENDING session to FAILED and reports whether it did.
// Sessions in any other state are left untouched.
func (r *paymentSessionRepoImpl) MarkFailed(ctx context.Context, code, paymentRef string, payload *model.GatewayPayload) (bool, error) {
	settledAt := r.db.NowFunc()
	var ref *string
	if paymentRef != "" {
		ref = &paymentRef
	}

	result := r.db.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("code = ? AND status = ?", code, model.PaymentSessionPending).
		Select("status", "payment_ref", "payload", "settled_at").
		Updates(&model.PaymentSession{
			Status:     model.PaymentSessionFailed,
			PaymentRef: ref,
			Payload:    payload,
			SettledAt:  &settledAt,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentSessionRepoImpl) FlagReconciliation(ctx context.Context, code, reason string) error {
	if len(reason) > 255 {
		reason = reason[:255]
	}

	result := r.db.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"needs_reconciliation": true,
			"last_error":           reason,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *paymentSessionRepoImpl) Cancel(ctx context.Context, userID uint, code string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("code = ? AND user_id = ? AND status = ?", code, userID, model.PaymentSessionPending).
		Updates(map[string]interface{}{
			"status":     model.PaymentSessionCanceled,
			"settled_at": r.db.NowFunc(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpirePending cancels sessions left PENDING since before createdBefore.
// Sessions flagged for reconciliation are kept for an operator.
func (r *paymentSessionRepoImpl) ExpirePending(ctx context.Context, createdBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentSession{}).
		Where("status = ? AND needs_reconciliation = ? AND created_at < ?",
			model.PaymentSessionPending, false, createdBefore.UTC()).
		Updates(map[string]interface{}{
			"status":     model.PaymentSessionCanceled,
			"settled_at": r.db.NowFunc(),
		})

	return result.RowsAffected, result.Error
}

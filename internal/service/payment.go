package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/quochiep16/mini-e/internal/client"
	"github.com/quochiep16/mini-e/internal/metrics"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/repository"
	"gorm.io/gorm"
)

const (
	mysqlLockWaitTimeout = 1205
	mysqlLockNowait      = 3572
)

type FinalizeResult struct {
	Code   string                     `json:"code"`
	Status model.PaymentSessionStatus `json:"status"`
	Orders []model.OrderRef           `json:"orders,omitempty"`
	// AlreadySettled is set when the callback found the session already in
	// its final state and changed nothing.
	AlreadySettled bool `json:"already_settled"`
}

type PaymentService interface {
	HandleCallback(ctx context.Context, channel model.CallbackChannel, params url.Values) (*FinalizeResult, error)
	Finalize(ctx context.Context, channel model.CallbackChannel, cb *client.VerifiedCallback) (*FinalizeResult, error)
	GetSession(ctx context.Context, userID uint, code string) (*model.PaymentSession, error)
	CancelSession(ctx context.Context, userID uint, code string) error
	ExpireStaleSessions(ctx context.Context) (int64, error)
}

type paymentServiceImpl struct {
	db           *gorm.DB
	logger       *slog.Logger
	metrics      *metrics.Metrics
	vnpayClient  client.VNPayClient
	lockTimeout  time.Duration
	sessionTTL   time.Duration
	cartRepo     repository.CartRepository
	sessionRepo  repository.PaymentSessionRepository
	eventRepo    repository.PaymentEventRepository
	materializer *OrderMaterializer
	now          func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	logger *slog.Logger,
	m *metrics.Metrics,
	vnpayClient client.VNPayClient,
	lockTimeout time.Duration,
	sessionTTL time.Duration,
	cartRepo repository.CartRepository,
	sessionRepo repository.PaymentSessionRepository,
	eventRepo repository.PaymentEventRepository,
	materializer *OrderMaterializer,
) PaymentService {
	return &paymentServiceImpl{
		db:           db,
		logger:       logger,
		metrics:      m,
		vnpayClient:  vnpayClient,
		lockTimeout:  lockTimeout,
		sessionTTL:   sessionTTL,
		cartRepo:     cartRepo,
		sessionRepo:  sessionRepo,
		eventRepo:    eventRepo,
		materializer: materializer,
		now:          time.Now,
	}
}

// HandleCallback verifies a gateway callback and finalizes the session it
// names. Callbacks with a bad signature are dropped without a trace in the
// database.
func (s *paymentServiceImpl) HandleCallback(ctx context.Context, channel model.CallbackChannel, params url.Values) (*FinalizeResult, error) {
	cb := s.vnpayClient.VerifyCallback(params)
	if !cb.Valid {
		s.metrics.Finalizations.WithLabelValues(string(channel), "invalid_signature").Inc()
		s.logger.WarnContext(ctx, "rejected gateway callback", "channel", channel, "tracking_code", cb.TrackingCode)
		return nil, ErrSignatureInvalid
	}

	result, err := s.Finalize(ctx, channel, cb)
	outcome := finalizeOutcome(result, err)
	s.metrics.Finalizations.WithLabelValues(string(channel), outcome).Inc()

	event := &model.PaymentEvent{
		Channel:       channel,
		TrackingCode:  cb.TrackingCode,
		ResponseCode:  cb.ResponseCode,
		TransactionNo: cb.TransactionNo,
		Outcome:       outcome,
	}
	if recErr := s.eventRepo.Record(context.WithoutCancel(ctx), event); recErr != nil {
		s.logger.ErrorContext(ctx, "record payment event", "tracking_code", cb.TrackingCode, "err", recErr)
	}

	return result, err
}

func (s *paymentServiceImpl) Finalize(ctx context.Context, channel model.CallbackChannel, cb *client.VerifiedCallback) (*FinalizeResult, error) {
	log := s.logger.With("tracking_code", cb.TrackingCode, "channel", channel)

	session, err := s.sessionRepo.FindByCode(ctx, cb.TrackingCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}

	payload := cb.Payload(channel)

	if !cb.Succeeded() {
		return s.fail(ctx, log, session, payload)
	}

	if client.ScaleAmount(session.Amount) != cb.Amount {
		log.WarnContext(ctx, "callback amount mismatch", "expected", client.ScaleAmount(session.Amount), "got", cb.Amount)
		return nil, ErrAmountMismatch
	}

	var (
		result         *FinalizeResult
		cartLineIDs    []uint
		materializeErr error
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockSession(ctx, tx, cb.TrackingCode)
		if err != nil {
			return fmt.Errorf("lock payment session: %w", err)
		}

		switch locked.Status {
		case model.PaymentSessionPaid:
			result = &FinalizeResult{Code: locked.Code, Status: locked.Status, Orders: locked.Orders, AlreadySettled: true}
			return nil
		case model.PaymentSessionFailed, model.PaymentSessionCanceled:
			return fmt.Errorf("session is %s: %w", locked.Status, ErrSessionClosed)
		}

		ref := cb.TransactionNo
		refs, err := s.materializer.Materialize(ctx, tx, MaterializeInput{
			UserID:      locked.UserID,
			Method:      model.PaymentMethodVNPay,
			Snapshot:    &locked.Snapshot,
			Paid:        true,
			SessionCode: &locked.Code,
			PaymentRef:  &ref,
		})
		if err != nil {
			materializeErr = err
			return err
		}

		if err := s.sessionRepo.MarkPaid(ctx, tx, locked.ID, refs, cb.TransactionNo, payload); err != nil {
			return fmt.Errorf("mark session paid: %w", err)
		}

		result = &FinalizeResult{Code: locked.Code, Status: model.PaymentSessionPaid, Orders: refs}
		cartLineIDs = locked.Snapshot.CartLineIDs
		return nil
	})

	switch {
	case err == nil:
	case isTransient(err):
		log.WarnContext(ctx, "finalize busy, gateway will retry", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSessionBusy, err)
	case materializeErr != nil:
		s.flag(ctx, log, cb.TrackingCode, materializeErr.Error())
		log.ErrorContext(ctx, "paid session could not be materialized", "err", materializeErr)
		return nil, fmt.Errorf("%w: %w", ErrReconciliationRequired, materializeErr)
	case errors.Is(err, ErrSessionClosed):
		s.flag(ctx, log, cb.TrackingCode, "success callback on closed session")
		log.WarnContext(ctx, "success callback on closed session", "err", err)
		return nil, err
	default:
		return nil, err
	}

	if result.AlreadySettled {
		log.InfoContext(ctx, "duplicate success callback")
		return result, nil
	}

	for _, ref := range result.Orders {
		log.InfoContext(ctx, "order created", "user_id", session.UserID, "order_code", ref.Code)
	}
	removeCartLines(ctx, s.logger, s.cartRepo, s.db, session.UserID, cartLineIDs)

	return result, nil
}

// fail records a failed payment. Only a PENDING session moves; any other
// state is reported as it stands.
func (s *paymentServiceImpl) fail(ctx context.Context, log *slog.Logger, session *model.PaymentSession, payload *model.GatewayPayload) (*FinalizeResult, error) {
	moved, err := s.sessionRepo.MarkFailed(ctx, session.Code, payload.TransactionNo, payload)
	if err != nil {
		return nil, fmt.Errorf("mark session failed: %w", err)
	}
	if moved {
		log.InfoContext(ctx, "payment failed", "response_code", payload.ResponseCode)
		return &FinalizeResult{Code: session.Code, Status: model.PaymentSessionFailed}, nil
	}

	current, err := s.sessionRepo.FindByCode(ctx, session.Code)
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	return &FinalizeResult{Code: current.Code, Status: current.Status, Orders: current.Orders, AlreadySettled: true}, nil
}

func (s *paymentServiceImpl) flag(ctx context.Context, log *slog.Logger, code, reason string) {
	if err := s.sessionRepo.FlagReconciliation(context.WithoutCancel(ctx), code, reason); err != nil {
		log.ErrorContext(ctx, "flag session for reconciliation", "err", err)
	}
}

// lockSession waits at most lockTimeout for the session row. The bound is a
// context deadline on this one query; the connection's own settings are left
// alone because it goes back to the pool afterwards.
func (s *paymentServiceImpl) lockSession(ctx context.Context, tx *gorm.DB, code string) (*model.PaymentSession, error) {
	if s.lockTimeout <= 0 {
		return s.sessionRepo.LockByCode(ctx, tx, code)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	return s.sessionRepo.LockByCode(lockCtx, tx, code)
}

// isTransient reports errors a later delivery of the same callback can get
// past: row lock waits and a caller that went away.
func isTransient(err error) bool {
	return isLockTimeout(err) || errors.Is(err, context.Canceled)
}

func isLockTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlLockNowait
	}
	return false
}

func (s *paymentServiceImpl) GetSession(ctx context.Context, userID uint, code string) (*model.PaymentSession, error) {
	session, err := s.sessionRepo.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *paymentServiceImpl) CancelSession(ctx context.Context, userID uint, code string) error {
	session, err := s.GetSession(ctx, userID, code)
	if err != nil {
		return err
	}
	if session.Status != model.PaymentSessionPending {
		return fmt.Errorf("session is %s: %w", session.Status, ErrSessionClosed)
	}

	canceled, err := s.sessionRepo.Cancel(ctx, userID, code)
	if err != nil {
		return fmt.Errorf("cancel payment session: %w", err)
	}
	if !canceled {
		return ErrSessionClosed
	}

	s.logger.InfoContext(ctx, "payment session canceled", "user_id", userID, "tracking_code", code)
	return nil
}

func (s *paymentServiceImpl) ExpireStaleSessions(ctx context.Context) (int64, error) {
	n, err := s.sessionRepo.ExpirePending(ctx, s.now().Add(-s.sessionTTL))
	if err != nil {
		return 0, fmt.Errorf("expire payment sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired payment sessions", "count", n)
	}
	return n, nil
}

func finalizeOutcome(result *FinalizeResult, err error) string {
	switch {
	case err == nil && result.AlreadySettled:
		return "duplicate"
	case err == nil:
		return string(result.Status)
	case errors.Is(err, ErrReconciliationRequired):
		return "reconciliation"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrSessionBusy):
		return "busy"
	default:
		return "error"
	}
}

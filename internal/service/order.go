package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quochiep16/mini-e/internal/dto"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/repository"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type OrderService interface {
	ListMine(ctx context.Context, userID uint, page, limit int) (*dto.OrderPage, error)
	GetMine(ctx context.Context, userID uint, orderID string) (*model.Order, error)
	ConfirmReceived(ctx context.Context, userID uint, orderID string) (*model.Order, error)
	UpdateShopShipping(ctx context.Context, ownerUserID uint, orderID string, next model.ShippingStatus) (*model.Order, error)
}

type orderServiceImpl struct {
	db           *gorm.DB
	logger       *slog.Logger
	orderRepo    repository.OrderRepository
	merchantRepo repository.MerchantRepository
}

func NewOrderService(
	db *gorm.DB,
	logger *slog.Logger,
	orderRepo repository.OrderRepository,
	merchantRepo repository.MerchantRepository,
) OrderService {
	return &orderServiceImpl{
		db:           db,
		logger:       logger,
		orderRepo:    orderRepo,
		merchantRepo: merchantRepo,
	}
}

// shippingTransitions lists the moves a shop may make on an order.
var shippingTransitions = map[model.ShippingStatus][]model.ShippingStatus{
	model.ShippingStatusPending:   {model.ShippingStatusInTransit, model.ShippingStatusCanceled},
	model.ShippingStatusPicked:    {model.ShippingStatusInTransit, model.ShippingStatusCanceled},
	model.ShippingStatusInTransit: {model.ShippingStatusDelivered, model.ShippingStatusCanceled},
}

func canMoveShipping(from, to model.ShippingStatus) bool {
	for _, allowed := range shippingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isFinished(status model.OrderStatus) bool {
	return status == model.OrderStatusCancelled || status == model.OrderStatusCompleted
}

func (s *orderServiceImpl) ListMine(ctx context.Context, userID uint, page, limit int) (*dto.OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []*model.Order{}
	}

	return &dto.OrderPage{Items: orders, Page: page, Limit: limit, Total: total}, nil
}

func (s *orderServiceImpl) GetMine(ctx context.Context, userID uint, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderServiceImpl) ConfirmReceived(ctx context.Context, userID uint, orderID string) (*model.Order, error) {
	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return ErrOrderNotFound
		}
		if isFinished(order.Status) || order.ShippingStatus != model.ShippingStatusDelivered {
			return fmt.Errorf("confirm receipt of %s order shipped %s: %w", order.Status, order.ShippingStatus, ErrInvalidTransition)
		}

		order.Status = model.OrderStatusCompleted
		if order.PaymentMethod == model.PaymentMethodCOD {
			order.PaymentStatus = model.PaymentStatusPaid
		}
		return s.orderRepo.UpdateStatuses(ctx, tx, order.ID, order.Status, order.PaymentStatus, order.ShippingStatus)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order received", "user_id", userID, "order_code", order.Code)
	return order, nil
}

func (s *orderServiceImpl) UpdateShopShipping(ctx context.Context, ownerUserID uint, orderID string, next model.ShippingStatus) (*model.Order, error) {
	shop, err := s.merchantRepo.FindByOwner(ctx, ownerUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}

	var order *model.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.ShopID != shop.ID {
			return ErrOrderNotFound
		}
		if isFinished(order.Status) {
			return fmt.Errorf("order is %s: %w", order.Status, ErrInvalidTransition)
		}
		if order.ShippingStatus == next {
			return nil
		}
		if !canMoveShipping(order.ShippingStatus, next) {
			return fmt.Errorf("shipping %s -> %s: %w", order.ShippingStatus, next, ErrInvalidTransition)
		}

		order.ShippingStatus = next
		switch next {
		case model.ShippingStatusCanceled:
			order.Status = model.OrderStatusCancelled
		case model.ShippingStatusInTransit, model.ShippingStatusDelivered:
			order.Status = model.OrderStatusShipped
		}
		return s.orderRepo.UpdateStatuses(ctx, tx, order.ID, order.Status, order.PaymentStatus, order.ShippingStatus)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "shipping updated", "shop_id", shop.ID, "order_code", order.Code, "shipping_status", order.ShippingStatus)
	return order, nil
}

func (s *orderServiceImpl) lockOrder(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.LockByID(ctx, tx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

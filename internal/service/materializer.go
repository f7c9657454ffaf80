package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterializeInput struct {
	UserID   uint
	Method   model.PaymentMethod
	Snapshot *model.CheckoutSnapshot
	// Paid is set when orders are created from a confirmed gateway callback.
	Paid        bool
	SessionCode *string
	PaymentRef  *string
}

// OrderMaterializer turns a checkout snapshot into orders, one per shop,
// inside the caller's transaction. Any error leaves the transaction to be
// rolled back by the caller.
type OrderMaterializer struct {
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
	newCode       CodeGenerator
	now           func() time.Time
}

func NewOrderMaterializer(
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
) *OrderMaterializer {
	return &OrderMaterializer{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		newCode:       OrderCode,
		now:           time.Now,
	}
}

type shopLines struct {
	shopID uint
	lines  []model.SnapshotLine
}

func (m *OrderMaterializer) Materialize(ctx context.Context, tx *gorm.DB, in MaterializeInput) ([]model.OrderRef, error) {
	snap := in.Snapshot
	if snap == nil || len(snap.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if snap.Version != model.CheckoutSnapshotVersion {
		return nil, fmt.Errorf("unsupported checkout snapshot version %d", snap.Version)
	}

	products, variants, err := m.checkStock(ctx, tx, snap.Lines)
	if err != nil {
		return nil, err
	}

	fees := make(map[uint]model.ShippingQuote, len(snap.Shipping))
	for _, q := range snap.Shipping {
		fees[q.ShopID] = q
	}

	var refs []model.OrderRef
	for _, group := range splitByShop(snap.Lines) {
		quote, ok := fees[group.shopID]
		if !ok {
			return nil, fmt.Errorf("snapshot has no shipping quote for shop %d", group.shopID)
		}

		ref, err := m.createOrder(ctx, tx, in, group, quote)
		if err != nil {
			return nil, err
		}
		refs = append(refs, *ref)
	}

	for _, line := range snap.Lines {
		if err := m.decrement(ctx, tx, line, products, variants); err != nil {
			return nil, err
		}
	}

	return refs, nil
}

// checkStock locks every product and variant the snapshot touches and checks
// the summed demand against what is on hand.
func (m *OrderMaterializer) checkStock(
	ctx context.Context,
	tx *gorm.DB,
	lines []model.SnapshotLine,
) (map[uint]*model.Product, map[uint]*model.ProductVariant, error) {
	productDemand := map[uint]int32{}
	variantDemand := map[uint]int32{}
	var productIDs, variantIDs []uint
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, fmt.Errorf("line %d has quantity %d", line.CartLineID, line.Quantity)
		}
		if _, seen := productDemand[line.ProductID]; !seen {
			productIDs = append(productIDs, line.ProductID)
			productDemand[line.ProductID] = 0
		}
		if line.VariantID == nil {
			productDemand[line.ProductID] += line.Quantity
			continue
		}
		if _, seen := variantDemand[*line.VariantID]; !seen {
			variantIDs = append(variantIDs, *line.VariantID)
		}
		variantDemand[*line.VariantID] += line.Quantity
	}

	products, err := m.inventoryRepo.LockProducts(ctx, tx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("lock products: %w", err)
	}
	variants, err := m.inventoryRepo.LockVariants(ctx, tx, variantIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("lock variants: %w", err)
	}

	for _, id := range productIDs {
		p, ok := products[id]
		if !ok {
			return nil, nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
		}
		if p.Stock != nil && *p.Stock < productDemand[id] {
			return nil, nil, fmt.Errorf("%s has %d left, %d requested: %w", p.Title, *p.Stock, productDemand[id], ErrInsufficientStock)
		}
	}
	for _, id := range variantIDs {
		v, ok := variants[id]
		if !ok {
			return nil, nil, fmt.Errorf("variant %d: %w", id, ErrProductNotFound)
		}
		if v.Stock < variantDemand[id] {
			return nil, nil, fmt.Errorf("SKU %s has %d left, %d requested: %w", v.SKU, v.Stock, variantDemand[id], ErrInsufficientStock)
		}
	}

	return products, variants, nil
}

func (m *OrderMaterializer) createOrder(
	ctx context.Context,
	tx *gorm.DB,
	in MaterializeInput,
	group shopLines,
	quote model.ShippingQuote,
) (*model.OrderRef, error) {
	code, err := m.uniqueCode(ctx, tx)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:                 uuid.NewString(),
		UserID:             in.UserID,
		ShopID:             group.shopID,
		Code:               code,
		Status:             model.OrderStatusPending,
		PaymentStatus:      model.PaymentStatusUnpaid,
		ShippingStatus:     model.ShippingStatusPending,
		PaymentMethod:      in.Method,
		PaymentRef:         in.PaymentRef,
		PaymentSessionCode: in.SessionCode,
		AddressSnapshot:    in.Snapshot.Address,
		DistanceKm:         quote.DistanceKm,
		Discount:           decimal.Zero,
		ShippingFee:        quote.Fee,
		Note:               in.Snapshot.Note,
	}
	if in.Paid {
		order.Status = model.OrderStatusPaid
		order.PaymentStatus = model.PaymentStatusPaid
	}

	items := make([]*model.OrderItem, 0, len(group.lines))
	subtotal := decimal.Zero
	for i, line := range group.lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		subtotal = subtotal.Add(lineTotal)

		item := &model.OrderItem{
			ID:            uuid.NewString(),
			OrderID:       order.ID,
			Position:      i,
			ProductID:     line.ProductID,
			VariantID:     line.VariantID,
			NameSnapshot:  line.Name,
			ImageSnapshot: line.ImageURL,
			Price:         line.UnitPrice,
			Quantity:      line.Quantity,
			TotalLine:     lineTotal,
		}
		item.SetOptionValues(line.Values)
		items = append(items, item)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Sub(order.Discount).Add(order.ShippingFee)

	if err := m.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("store order in db: %w", err)
	}
	if err := m.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return nil, fmt.Errorf("store order items in db: %w", err)
	}

	return &model.OrderRef{OrderID: order.ID, Code: order.Code, Total: order.Total}, nil
}

func (m *OrderMaterializer) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := m.newCode(m.now())
		exists, err := m.orderRepo.CodeExists(ctx, tx, code)
		if err != nil {
			return "", fmt.Errorf("check order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

func (m *OrderMaterializer) decrement(
	ctx context.Context,
	tx *gorm.DB,
	line model.SnapshotLine,
	products map[uint]*model.Product,
	variants map[uint]*model.ProductVariant,
) error {
	if line.VariantID != nil {
		ok, err := m.inventoryRepo.DecrementVariant(ctx, tx, *line.VariantID, line.Quantity)
		if err != nil {
			return fmt.Errorf("decrement variant %d: %w", *line.VariantID, err)
		}
		if !ok {
			return fmt.Errorf("SKU %s: %w", variants[*line.VariantID].SKU, ErrInsufficientStock)
		}
		return nil
	}

	p := products[line.ProductID]
	if p.Stock == nil {
		return nil
	}
	ok, err := m.inventoryRepo.DecrementProduct(ctx, tx, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("decrement product %d: %w", line.ProductID, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", p.Title, ErrInsufficientStock)
	}
	return nil
}

// splitByShop keeps shops in the order they first appear.
func splitByShop(lines []model.SnapshotLine) []shopLines {
	var groups []shopLines
	index := map[uint]int{}
	for _, line := range lines {
		i, ok := index[line.ShopID]
		if !ok {
			i = len(groups)
			index[line.ShopID] = i
			groups = append(groups, shopLines{shopID: line.ShopID})
		}
		groups[i].lines = append(groups[i].lines, line)
	}
	return groups
}

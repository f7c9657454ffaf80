package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/quochiep16/mini-e/internal/client"
	"github.com/quochiep16/mini-e/internal/dto"
	"github.com/quochiep16/mini-e/internal/metrics"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/repository"
	"github.com/quochiep16/mini-e/internal/shipping"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxNoteLength = 255

type CheckoutService interface {
	Preview(ctx context.Context, userID uint, req *dto.PreviewRequest) (*dto.Quote, error)
	Checkout(ctx context.Context, userID uint, req *dto.CheckoutRequest, buyerIP string) (*dto.CheckoutResponse, error)
}

type checkoutServiceImpl struct {
	db           *gorm.DB
	logger       *slog.Logger
	metrics      *metrics.Metrics
	vnpayClient  client.VNPayClient
	fees         shipping.FeeTable
	currency     string
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	merchantRepo repository.MerchantRepository
	addressRepo  repository.AddressRepository
	sessionRepo  repository.PaymentSessionRepository
	materializer *OrderMaterializer
	sessionCode  CodeGenerator
	now          func() time.Time
}

func NewCheckoutService(
	db *gorm.DB,
	logger *slog.Logger,
	m *metrics.Metrics,
	vnpayClient client.VNPayClient,
	fees shipping.FeeTable,
	currency string,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	merchantRepo repository.MerchantRepository,
	addressRepo repository.AddressRepository,
	sessionRepo repository.PaymentSessionRepository,
	materializer *OrderMaterializer,
) CheckoutService {
	return &checkoutServiceImpl{
		db:           db,
		logger:       logger,
		metrics:      m,
		vnpayClient:  vnpayClient,
		fees:         fees,
		currency:     currency,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		merchantRepo: merchantRepo,
		addressRepo:  addressRepo,
		sessionRepo:  sessionRepo,
		materializer: materializer,
		sessionCode:  SessionCode,
		now:          time.Now,
	}
}

// shopGroup is the cart lines of one shop, priced for one address.
type shopGroup struct {
	shop       *model.Shop
	lines      []*model.CartItem
	distanceKm float64
	subtotal   decimal.Decimal
	fee        decimal.Decimal
	total      decimal.Decimal
}

type quotation struct {
	address  *model.Address
	groups   []*shopGroup
	subtotal decimal.Decimal
	fee      decimal.Decimal
	total    decimal.Decimal
}

func (s *checkoutServiceImpl) Preview(ctx context.Context, userID uint, req *dto.PreviewRequest) (*dto.Quote, error) {
	q, err := s.quote(ctx, userID, req.AddressID, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	return q.toDTO(), nil
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID uint, req *dto.CheckoutRequest, buyerIP string) (*dto.CheckoutResponse, error) {
	method := req.PaymentMethod
	if method != model.PaymentMethodCOD && method != model.PaymentMethodVNPay {
		return nil, fmt.Errorf("%q: %w", method, ErrUnsupportedPaymentMethod)
	}
	if req.Note != nil && len([]rune(*req.Note)) > maxNoteLength {
		return nil, ErrNoteTooLong
	}

	resp, err := s.checkout(ctx, userID, req, buyerIP)
	s.metrics.Checkouts.WithLabelValues(string(method), checkoutOutcome(err)).Inc()
	return resp, err
}

func (s *checkoutServiceImpl) checkout(ctx context.Context, userID uint, req *dto.CheckoutRequest, buyerIP string) (*dto.CheckoutResponse, error) {
	q, err := s.quote(ctx, userID, req.AddressID, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	snapshot := q.snapshot(req.Note)

	if req.PaymentMethod == model.PaymentMethodCOD {
		return s.checkoutCOD(ctx, userID, snapshot)
	}
	return s.checkoutVNPay(ctx, userID, q.total, snapshot, buyerIP, req.BankCode)
}

func (s *checkoutServiceImpl) checkoutCOD(ctx context.Context, userID uint, snapshot *model.CheckoutSnapshot) (*dto.CheckoutResponse, error) {
	var refs []model.OrderRef
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		refs, err = s.materializer.Materialize(ctx, tx, MaterializeInput{
			UserID:   userID,
			Method:   model.PaymentMethodCOD,
			Snapshot: snapshot,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		s.logger.InfoContext(ctx, "order created", "user_id", userID, "order_code", ref.Code, "total", ref.Total.String())
	}
	removeCartLines(ctx, s.logger, s.cartRepo, s.db, userID, snapshot.CartLineIDs)

	return &dto.CheckoutResponse{Orders: refs}, nil
}

func (s *checkoutServiceImpl) checkoutVNPay(
	ctx context.Context,
	userID uint,
	amount decimal.Decimal,
	snapshot *model.CheckoutSnapshot,
	buyerIP string,
	bankCode string,
) (*dto.CheckoutResponse, error) {
	code, err := s.uniqueSessionCode(ctx)
	if err != nil {
		return nil, err
	}

	session := &model.PaymentSession{
		ID:       uuid.NewString(),
		UserID:   userID,
		Code:     code,
		Amount:   amount,
		Currency: s.currency,
		Status:   model.PaymentSessionPending,
		Snapshot: *snapshot,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store payment session: %w", err)
	}

	paymentURL, err := s.vnpayClient.BuildRedirectURL(client.PaymentURLRequest{
		TrackingCode: code,
		Amount:       amount,
		BuyerIP:      buyerIP,
		BankCode:     bankCode,
	})
	if err != nil {
		return nil, fmt.Errorf("build vnpay url: %w", err)
	}

	s.logger.InfoContext(ctx, "payment session created", "user_id", userID, "tracking_code", code, "amount", amount.String())

	return &dto.CheckoutResponse{
		Session: &dto.SessionInfo{
			Code:     session.Code,
			Amount:   session.Amount,
			Currency: session.Currency,
			Status:   session.Status,
		},
		PaymentURL: paymentURL,
	}, nil
}

func (s *checkoutServiceImpl) uniqueSessionCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.sessionCode(s.now())
		exists, err := s.sessionRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check session code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

// quote runs the read-only part shared by preview and checkout.
func (s *checkoutServiceImpl) quote(ctx context.Context, userID uint, addressID *uint, lineIDs []uint) (*quotation, error) {
	lines, err := s.cartRepo.GetLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	selected, err := selectLines(lines, lineIDs)
	if err != nil {
		return nil, err
	}

	addr, err := s.resolveAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}

	groups, err := s.groupByShop(ctx, selected)
	if err != nil {
		return nil, err
	}

	q := &quotation{
		address:  addr,
		groups:   groups,
		subtotal: decimal.Zero,
		fee:      decimal.Zero,
		total:    decimal.Zero,
	}
	for _, g := range groups {
		g.subtotal = decimal.Zero
		for _, line := range g.lines {
			g.subtotal = g.subtotal.Add(line.Price.Mul(decimal.NewFromInt32(line.Quantity)))
		}
		g.distanceKm = shipping.Distance(*g.shop.Lat, *g.shop.Lng, *addr.Lat, *addr.Lng)
		g.fee = s.fees.Fee(g.distanceKm, g.subtotal)
		g.total = g.subtotal.Add(g.fee)

		q.subtotal = q.subtotal.Add(g.subtotal)
		q.fee = q.fee.Add(g.fee)
	}
	q.total = q.subtotal.Add(q.fee)

	return q, nil
}

// selectLines picks the requested lines out of the cart. No ids means the
// whole cart; otherwise every id has to be a line of this cart.
func selectLines(lines []*model.CartItem, lineIDs []uint) ([]*model.CartItem, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if len(lineIDs) == 0 {
		return lines, nil
	}

	wanted := make(map[uint]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}

	selected := make([]*model.CartItem, 0, len(wanted))
	for _, line := range lines {
		if wanted[line.ID] {
			selected = append(selected, line)
		}
	}
	if len(selected) != len(wanted) {
		return nil, ErrLineNotFound
	}
	return selected, nil
}

func (s *checkoutServiceImpl) resolveAddress(ctx context.Context, userID uint, addressID *uint) (*model.Address, error) {
	var (
		addr *model.Address
		err  error
	)
	if addressID != nil {
		addr, err = s.addressRepo.Get(ctx, userID, *addressID)
	} else {
		addr, err = s.addressRepo.GetDefault(ctx, userID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoAddressAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	if addr.Lat == nil || addr.Lng == nil {
		return nil, ErrAddressMissingCoordinates
	}
	return addr, nil
}

// groupByShop partitions lines by the shop owning each line's product. Shops
// keep the order in which they first appear in the cart.
func (s *checkoutServiceImpl) groupByShop(ctx context.Context, lines []*model.CartItem) ([]*shopGroup, error) {
	var productIDs []uint
	seen := map[uint]bool{}
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			productIDs = append(productIDs, line.ProductID)
		}
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	shopOf := make(map[uint]uint, len(products))
	for _, p := range products {
		shopOf[p.ID] = p.ShopID
	}

	var groups []*shopGroup
	byShop := map[uint]*shopGroup{}
	for _, line := range lines {
		shopID, ok := shopOf[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, ErrProductNotFound)
		}

		g, ok := byShop[shopID]
		if !ok {
			shop, err := s.merchantRepo.Get(ctx, shopID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("shop %d missing: %w", shopID, ErrMerchantNotConfigured)
			}
			if err != nil {
				return nil, fmt.Errorf("get shop %d: %w", shopID, err)
			}
			if !shop.HasCoordinates() {
				return nil, fmt.Errorf("shop %d: %w", shopID, ErrMerchantNotConfigured)
			}

			g = &shopGroup{shop: shop}
			byShop[shopID] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, line)
	}

	return groups, nil
}

func (q *quotation) snapshot(note *string) *model.CheckoutSnapshot {
	snap := &model.CheckoutSnapshot{
		Version: model.CheckoutSnapshotVersion,
		Address: model.AddressSnapshot{
			FullName:         q.address.FullName,
			Phone:            q.address.Phone,
			FormattedAddress: q.address.FormattedAddress,
			PlaceID:          q.address.PlaceID,
			Lat:              *q.address.Lat,
			Lng:              *q.address.Lng,
		},
		Note: note,
	}

	for _, g := range q.groups {
		snap.Shipping = append(snap.Shipping, model.ShippingQuote{
			ShopID:     g.shop.ID,
			DistanceKm: roundKm(g.distanceKm),
			Fee:        g.fee,
		})
		for _, line := range g.lines {
			snap.CartLineIDs = append(snap.CartLineIDs, line.ID)
			snap.Lines = append(snap.Lines, model.SnapshotLine{
				CartLineID: line.ID,
				ProductID:  line.ProductID,
				VariantID:  line.VariantID,
				ShopID:     g.shop.ID,
				Name:       line.DisplayName(),
				ImageURL:   line.ImageURL,
				UnitPrice:  line.Price,
				Quantity:   line.Quantity,
				Values:     line.OptionValues(),
			})
		}
	}
	return snap
}

func (q *quotation) toDTO() *dto.Quote {
	out := &dto.Quote{
		Address: dto.QuoteAddress{
			ID:               q.address.ID,
			FullName:         q.address.FullName,
			Phone:            q.address.Phone,
			FormattedAddress: q.address.FormattedAddress,
		},
		Groups: make([]dto.QuoteGroup, 0, len(q.groups)),
		Summary: dto.QuoteSummary{
			Subtotal:    q.subtotal,
			ShippingFee: q.fee,
			Total:       q.total,
		},
	}

	for _, g := range q.groups {
		group := dto.QuoteGroup{
			Shop:        dto.QuoteShop{ID: g.shop.ID, Name: g.shop.Name},
			DistanceKm:  roundKm(g.distanceKm),
			Subtotal:    g.subtotal,
			ShippingFee: g.fee,
			Total:       g.total,
		}
		for _, line := range g.lines {
			group.Items = append(group.Items, dto.QuoteLine{
				CartLineID: line.ID,
				ProductID:  line.ProductID,
				VariantID:  line.VariantID,
				Name:       line.DisplayName(),
				ImageURL:   line.ImageURL,
				UnitPrice:  line.Price,
				Quantity:   line.Quantity,
				LineTotal:  line.Price.Mul(decimal.NewFromInt32(line.Quantity)),
			})
		}
		out.Groups = append(out.Groups, group)
	}
	return out
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

// removeCartLines runs after the orders are committed. Failing to clean the
// cart never undoes a checkout.
func removeCartLines(ctx context.Context, logger *slog.Logger, cartRepo repository.CartRepository, db *gorm.DB, userID uint, lineIDs []uint) {
	ctx = context.WithoutCancel(ctx)
	if _, err := cartRepo.RemoveLines(ctx, db, userID, lineIDs); err != nil {
		logger.ErrorContext(ctx, "remove cart lines after checkout", "user_id", userID, "err", err)
	}
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case isValidationError(err):
		return "rejected"
	default:
		return "error"
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyCart, ErrLineNotFound, ErrNoAddressAvailable, ErrAddressMissingCoordinates,
		ErrMerchantNotConfigured, ErrProductNotFound, ErrUnsupportedPaymentMethod, ErrNoteTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package service

import (
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quochiep16/mini-e/internal/client"
	"github.com/quochiep16/mini-e/internal/metrics"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/repository"
	"github.com/quochiep16/mini-e/internal/shipping"
	"github.com/quochiep16/mini-e/internal/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop A sits in central Hanoi; the buyer lives 15 km due north of it and
// shop B is about 30 km east.
var (
	shopALat, shopALng = 21.0285, 105.8542
	shopBLat, shopBLng = 21.0285, 106.1433
	homeLat, homeLng   = 21.1634, 105.8542
)

const buyerID uint = 1

type fakeVNPay struct{}

func (fakeVNPay) BuildRedirectURL(req client.PaymentURLRequest) (string, error) {
	return "https://pay.test/vpcpay.html?vnp_TxnRef=" + req.TrackingCode +
		"&vnp_Amount=" + strconv.FormatInt(client.ScaleAmount(req.Amount), 10), nil
}

// VerifyCallback accepts any params whose hash is "good".
func (fakeVNPay) VerifyCallback(params url.Values) *client.VerifiedCallback {
	raw := map[string]string{}
	for k := range params {
		if k != "vnp_SecureHash" {
			raw[k] = params.Get(k)
		}
	}
	amount, _ := strconv.ParseInt(raw["vnp_Amount"], 10, 64)
	return &client.VerifiedCallback{
		Valid:         params.Get("vnp_SecureHash") == "good",
		TrackingCode:  raw["vnp_TxnRef"],
		ResponseCode:  raw["vnp_ResponseCode"],
		TransactionNo: raw["vnp_TransactionNo"],
		Amount:        amount,
		Raw:           raw,
	}
}

type fixture struct {
	t            *testing.T
	db           *gorm.DB
	seed         *testutil.Seeder
	metrics      *metrics.Metrics
	materializer *OrderMaterializer
	sessionRepo  repository.PaymentSessionRepository
	eventRepo    repository.PaymentEventRepository
	checkout     CheckoutService
	payments     PaymentService
	orders       OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	sessionRepo := repository.NewPaymentSessionRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	materializer := NewOrderMaterializer(orderRepo, inventoryRepo)

	return &fixture{
		t:            t,
		db:           db,
		seed:         testutil.NewSeeder(t, db),
		metrics:      m,
		materializer: materializer,
		sessionRepo:  sessionRepo,
		eventRepo:    eventRepo,
		checkout: NewCheckoutService(db, logger, m, fakeVNPay{}, shipping.DefaultFeeTable(), "VND",
			cartRepo, productRepo, merchantRepo, addressRepo, sessionRepo, materializer),
		payments: NewPaymentService(db, logger, m, fakeVNPay{}, 0, 0,
			cartRepo, sessionRepo, eventRepo, materializer),
		orders: NewOrderService(db, logger, orderRepo, merchantRepo),
	}
}

// world is a buyer with a default address 15 km from shop A.
type world struct {
	shopA   *model.Shop
	shopB   *model.Shop
	book    *model.Product
	address *model.Address
}

func (f *fixture) world() *world {
	w := &world{
		shopA: f.seed.Shop(100, "Shop A", testutil.Ptr(shopALat), testutil.Ptr(shopALng)),
		shopB: f.seed.Shop(200, "Shop B", testutil.Ptr(shopBLat), testutil.Ptr(shopBLng)),
	}
	w.book = f.seed.Product(w.shopA.ID, "Go in Action", testutil.Ptr[int32](5))
	w.address = f.seed.Address(buyerID, true, testutil.Ptr(homeLat), testutil.Ptr(homeLng))
	return w
}

func (f *fixture) orderCount() int64 {
	return f.seed.CountRows(&model.Order{})
}

func (f *fixture) session(code string) *model.PaymentSession {
	f.t.Helper()
	var s model.PaymentSession
	if err := f.db.Where("code = ?", code).First(&s).Error; err != nil {
		f.t.Fatalf("load session %s: %v", code, err)
	}
	return &s
}

func successCallback(code string, amount decimal.Decimal) *client.VerifiedCallback {
	scaled := client.ScaleAmount(amount)
	return &client.VerifiedCallback{
		Valid:         true,
		TrackingCode:  code,
		ResponseCode:  client.VNPayResponseSuccess,
		TransactionNo: "14000000",
		Amount:        scaled,
		Raw: map[string]string{
			"vnp_TxnRef":        code,
			"vnp_ResponseCode":  client.VNPayResponseSuccess,
			"vnp_TransactionNo": "14000000",
			"vnp_Amount":        strconv.FormatInt(scaled, 10),
		},
	}
}

func failureCallback(code string, amount decimal.Decimal) *client.VerifiedCallback {
	cb := successCallback(code, amount)
	cb.ResponseCode = "24"
	cb.Raw["vnp_ResponseCode"] = "24"
	return cb
}

func callbackParams(code string, amount decimal.Decimal, responseCode, hash string) url.Values {
	return url.Values{
		"vnp_TxnRef":        {code},
		"vnp_ResponseCode":  {responseCode},
		"vnp_TransactionNo": {"14000000"},
		"vnp_Amount":        {strconv.FormatInt(client.ScaleAmount(amount), 10)},
		"vnp_SecureHash":    {hash},
	}
}

package client

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quochiep16/mini-e/internal/config"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/shopspring/decimal"
)

const (
	vnpSecureHash     = "vnp_SecureHash"
	vnpSecureHashType = "vnp_SecureHashType"
	vnpDateLayout     = "20060102150405"

	// VNPayResponseSuccess is the vnp_ResponseCode of a successful payment.
	VNPayResponseSuccess = "00"
)

type VNPayClient interface {
	BuildRedirectURL(req PaymentURLRequest) (string, error)
	VerifyCallback(params url.Values) *VerifiedCallback
}

type PaymentURLRequest struct {
	TrackingCode string
	Amount       decimal.Decimal
	BuyerIP      string
	BankCode     string
}

type VerifiedCallback struct {
	Valid         bool
	TrackingCode  string
	ResponseCode  string
	TransactionNo string
	// Amount is vnp_Amount as sent, i.e. the payment amount scaled by 100.
	Amount int64
	Raw    map[string]string
}

func (cb *VerifiedCallback) Succeeded() bool {
	return cb.ResponseCode == VNPayResponseSuccess
}

func (cb *VerifiedCallback) Payload(channel model.CallbackChannel) *model.GatewayPayload {
	return &model.GatewayPayload{
		Version:           model.GatewayPayloadVersion,
		Channel:           channel,
		Amount:            cb.Raw["vnp_Amount"],
		BankCode:          cb.Raw["vnp_BankCode"],
		BankTranNo:        cb.Raw["vnp_BankTranNo"],
		CardType:          cb.Raw["vnp_CardType"],
		OrderInfo:         cb.Raw["vnp_OrderInfo"],
		PayDate:           cb.Raw["vnp_PayDate"],
		ResponseCode:      cb.Raw["vnp_ResponseCode"],
		TmnCode:           cb.Raw["vnp_TmnCode"],
		TransactionNo:     cb.Raw["vnp_TransactionNo"],
		TransactionStatus: cb.Raw["vnp_TransactionStatus"],
		TxnRef:            cb.Raw["vnp_TxnRef"],
	}
}

type vnpayClientImpl struct {
	version    string
	tmnCode    string
	hashSecret []byte
	endpoint   string
	returnURL  string
	locale     string
	currency   string
	expireIn   time.Duration
	location   *time.Location
	now        func() time.Time
}

func NewVNPayClient(cfg *config.VNPay) (VNPayClient, error) {
	var missing []string
	if cfg.TmnCode == "" {
		missing = append(missing, "VNPAY_TMN_CODE")
	}
	if cfg.HashSecret == "" {
		missing = append(missing, "VNPAY_HASH_SECRET")
	}
	if cfg.Endpoint == "" {
		missing = append(missing, "VNPAY_ENDPOINT")
	}
	if cfg.ReturnURL == "" {
		missing = append(missing, "VNPAY_RETURN_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("vnpay config missing: %s", strings.Join(missing, ", "))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load vnpay timezone: %w", err)
	}

	return &vnpayClientImpl{
		version:    cfg.Version,
		tmnCode:    cfg.TmnCode,
		hashSecret: []byte(cfg.HashSecret),
		endpoint:   cfg.Endpoint,
		returnURL:  cfg.ReturnURL,
		locale:     cfg.Locale,
		currency:   cfg.Currency,
		expireIn:   cfg.ExpireIn,
		location:   loc,
		now:        time.Now,
	}, nil
}

func (c *vnpayClientImpl) BuildRedirectURL(req PaymentURLRequest) (string, error) {
	if req.TrackingCode == "" {
		return "", errors.New("vnpay: empty tracking code")
	}
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("vnpay: amount must be positive, got %s", req.Amount)
	}

	ip := req.BuyerIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	created := c.now().In(c.location)

	params := map[string]string{
		"vnp_Version":    c.version,
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.tmnCode,
		"vnp_Locale":     c.locale,
		"vnp_CurrCode":   c.currency,
		"vnp_TxnRef":     req.TrackingCode,
		"vnp_OrderInfo":  "Thanh toan don hang " + req.TrackingCode,
		"vnp_OrderType":  "other",
		"vnp_Amount":     strconv.FormatInt(ScaleAmount(req.Amount), 10),
		"vnp_ReturnUrl":  c.returnURL,
		"vnp_IpAddr":     ip,
		"vnp_CreateDate": created.Format(vnpDateLayout),
	}
	if c.expireIn > 0 {
		params["vnp_ExpireDate"] = created.Add(c.expireIn).Format(vnpDateLayout)
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}

	query := canonicalQuery(params)
	hash := c.sign(query)

	return c.endpoint + "?" + query + "&" + vnpSecureHash + "=" + vnpEncode(hash), nil
}

func (c *vnpayClientImpl) VerifyCallback(params url.Values) *VerifiedCallback {
	given := params.Get(vnpSecureHash)

	raw := make(map[string]string, len(params))
	for k := range params {
		if k == vnpSecureHash || k == vnpSecureHashType {
			continue
		}
		raw[k] = params.Get(k)
	}

	expected := c.sign(canonicalQuery(raw))
	valid := given != "" && hmac.Equal(
		[]byte(strings.ToLower(expected)),
		[]byte(strings.ToLower(given)),
	)

	amount, err := strconv.ParseInt(raw["vnp_Amount"], 10, 64)
	if err != nil {
		amount = 0
	}

	return &VerifiedCallback{
		Valid:         valid,
		TrackingCode:  raw["vnp_TxnRef"],
		ResponseCode:  raw["vnp_ResponseCode"],
		TransactionNo: raw["vnp_TransactionNo"],
		Amount:        amount,
		Raw:           raw,
	}
}

func (c *vnpayClientImpl) sign(data string) string {
	mac := hmac.New(sha512.New, c.hashSecret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// ScaleAmount converts an amount to the gateway's integer unit (x100).
func ScaleAmount(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// canonicalQuery sorts keys and joins encoded pairs with '&'. The signing and
// verifying sides must both go through here.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, vnpEncode(k)+"="+vnpEncode(params[k]))
	}
	return strings.Join(pairs, "&")
}

var uriComponentUnescaper = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// vnpEncode matches JavaScript's encodeURIComponent with spaces as '+'.
func vnpEncode(s string) string {
	return uriComponentUnescaper.Replace(url.QueryEscape(s))
}

package client

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/quochiep16/mini-e/internal/config"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "TESTSECRETKEY0123456789"

func newTestVNPay(t *testing.T) *vnpayClientImpl {
	t.Helper()
	c, err := NewVNPayClient(&config.VNPay{
		Version:    "2.1.0",
		TmnCode:    "MINIE001",
		HashSecret: testSecret,
		Endpoint:   "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://shop.example/api/payments/vnpay/return",
		Locale:     "vn",
		Currency:   "VND",
		ExpireIn:   15 * time.Minute,
		Timezone:   "Asia/Ho_Chi_Minh",
	})
	require.NoError(t, err)

	impl := c.(*vnpayClientImpl)
	impl.now = func() time.Time { return time.Date(2026, 10, 15, 3, 4, 5, 0, time.UTC) }
	return impl
}

func hmacHex(data string) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestBuildRedirectURL(t *testing.T) {
	c := newTestVNPay(t)

	raw, err := c.BuildRedirectURL(PaymentURLRequest{
		TrackingCode: "PM20261015-ABCDEF12",
		Amount:       decimal.NewFromInt(210_000),
		BuyerIP:      "10.0.0.7",
	})
	require.NoError(t, err)

	endpoint, query, ok := strings.Cut(raw, "?")
	require.True(t, ok)
	assert.Equal(t, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", endpoint)

	signed, hash, ok := strings.Cut(query, "&vnp_SecureHash=")
	require.True(t, ok)

	// canonical string, written out by hand
	want := "vnp_Amount=21000000" +
		"&vnp_Command=pay" +
		"&vnp_CreateDate=20261015100405" +
		"&vnp_CurrCode=VND" +
		"&vnp_ExpireDate=20261015101905" +
		"&vnp_IpAddr=10.0.0.7" +
		"&vnp_Locale=vn" +
		"&vnp_OrderInfo=Thanh+toan+don+hang+PM20261015-ABCDEF12" +
		"&vnp_OrderType=other" +
		"&vnp_ReturnUrl=https%3A%2F%2Fshop.example%2Fapi%2Fpayments%2Fvnpay%2Freturn" +
		"&vnp_TmnCode=MINIE001" +
		"&vnp_TxnRef=PM20261015-ABCDEF12" +
		"&vnp_Version=2.1.0"
	assert.Equal(t, want, signed)
	assert.Equal(t, hmacHex(want), hash)
	assert.Len(t, hash, 128)
}

func TestBuildRedirectURL_KeysSorted(t *testing.T) {
	c := newTestVNPay(t)

	raw, err := c.BuildRedirectURL(PaymentURLRequest{
		TrackingCode: "PM1",
		Amount:       decimal.RequireFromString("99999.994"),
		BankCode:     "NCB",
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	var keys []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		k, _, _ := strings.Cut(pair, "=")
		keys = append(keys, k)
	}
	signedKeys := keys[:len(keys)-1]
	assert.True(t, sort.StringsAreSorted(signedKeys), "keys: %v", signedKeys)
	assert.Equal(t, "vnp_SecureHash", keys[len(keys)-1])

	q := u.Query()
	assert.Equal(t, "9999999", q.Get("vnp_Amount"), "amount is scaled by 100 and rounded")
	assert.Equal(t, "NCB", q.Get("vnp_BankCode"))
	assert.Equal(t, "127.0.0.1", q.Get("vnp_IpAddr"))
}

func TestBuildRedirectURL_Rejects(t *testing.T) {
	c := newTestVNPay(t)

	_, err := c.BuildRedirectURL(PaymentURLRequest{Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)

	_, err = c.BuildRedirectURL(PaymentURLRequest{TrackingCode: "PM1", Amount: decimal.Zero})
	assert.Error(t, err)
}

func TestVerifyCallback_RoundTrip(t *testing.T) {
	c := newTestVNPay(t)

	raw, err := c.BuildRedirectURL(PaymentURLRequest{
		TrackingCode: "PM20261015-ABCDEF12",
		Amount:       decimal.NewFromInt(150_000),
		BuyerIP:      "10.0.0.7",
	})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	cb := c.VerifyCallback(u.Query())
	assert.True(t, cb.Valid)
	assert.Equal(t, "PM20261015-ABCDEF12", cb.TrackingCode)
	assert.Equal(t, int64(15_000_000), cb.Amount)
	assert.NotContains(t, cb.Raw, "vnp_SecureHash")
}

func TestVerifyCallback_FlippedHashCharacter(t *testing.T) {
	c := newTestVNPay(t)
	params := signedCallback(c, "PM1", "00")
	hash := params.Get("vnp_SecureHash")

	for i := range hash {
		flipped := []byte(hash)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}
		tampered := cloneValues(params)
		tampered.Set("vnp_SecureHash", string(flipped))

		assert.False(t, c.VerifyCallback(tampered).Valid, "flip at %d", i)
	}
}

func TestVerifyCallback_CaseInsensitiveHash(t *testing.T) {
	c := newTestVNPay(t)
	params := signedCallback(c, "PM1", "00")
	params.Set("vnp_SecureHash", strings.ToUpper(params.Get("vnp_SecureHash")))

	cb := c.VerifyCallback(params)
	assert.True(t, cb.Valid)
	assert.True(t, cb.Succeeded())
}

func TestVerifyCallback_IgnoresHashType(t *testing.T) {
	c := newTestVNPay(t)
	params := signedCallback(c, "PM1", "24")
	params.Set("vnp_SecureHashType", "HmacSHA512")

	cb := c.VerifyCallback(params)
	assert.True(t, cb.Valid)
	assert.False(t, cb.Succeeded())
	assert.Equal(t, "24", cb.ResponseCode)
}

func TestVerifyCallback_Invalid(t *testing.T) {
	c := newTestVNPay(t)

	tampered := signedCallback(c, "PM1", "00")
	tampered.Set("vnp_Amount", "1")
	assert.False(t, c.VerifyCallback(tampered).Valid)

	missing := signedCallback(c, "PM1", "00")
	missing.Del("vnp_SecureHash")
	assert.False(t, c.VerifyCallback(missing).Valid)

	extra := signedCallback(c, "PM1", "00")
	extra.Set("vnp_Injected", "x")
	assert.False(t, c.VerifyCallback(extra).Valid)
}

func TestVerifiedCallback_Payload(t *testing.T) {
	c := newTestVNPay(t)
	cb := c.VerifyCallback(signedCallback(c, "PM9", "00"))

	p := cb.Payload(model.CallbackChannelIPN)
	assert.Equal(t, model.GatewayPayloadVersion, p.Version)
	assert.Equal(t, model.CallbackChannelIPN, p.Channel)
	assert.Equal(t, "PM9", p.TxnRef)
	assert.Equal(t, "14000000", p.TransactionNo)
	assert.Equal(t, "NCB", p.BankCode)
}

func TestNewVNPayClient_MissingConfig(t *testing.T) {
	_, err := NewVNPayClient(&config.VNPay{Timezone: "UTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VNPAY_TMN_CODE")
	assert.Contains(t, err.Error(), "VNPAY_HASH_SECRET")
}

func TestVnpEncode(t *testing.T) {
	cases := map[string]string{
		"a b":        "a+b",
		"(x)!*'~-_":  "(x)!*'~-_",
		"a/b":        "a%2Fb",
		"1+1":        "1%2B1",
		"Thanh toán": "Thanh+to%C3%A1n",
	}
	for in, want := range cases {
		assert.Equal(t, want, vnpEncode(in), in)
	}
}

// signedCallback builds query parameters the way the gateway would send them.
func signedCallback(c *vnpayClientImpl, code, responseCode string) url.Values {
	params := map[string]string{
		"vnp_Amount":            "21000000",
		"vnp_BankCode":          "NCB",
		"vnp_BankTranNo":        "VNP14000000",
		"vnp_CardType":          "ATM",
		"vnp_OrderInfo":         "Thanh toan don hang " + code,
		"vnp_PayDate":           "20261015101500",
		"vnp_ResponseCode":      responseCode,
		"vnp_TmnCode":           "MINIE001",
		"vnp_TransactionNo":     "14000000",
		"vnp_TransactionStatus": responseCode,
		"vnp_TxnRef":            code,
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("vnp_SecureHash", c.sign(canonicalQuery(params)))
	return values
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("razorpay config invalid")
	ErrRequestFailed    = errors.New("razorpay request failed")
	ErrResponseInvalid  = errors.New("razorpay response invalid")
	ErrSignatureInvalid = errors.New("razorpay signature invalid")
	ErrSignatureMissing = errors.New("razorpay signature missing")
)

const (
	defaultAPIBaseURL = "https://api.razorpay.com/v1"
	defaultTimeout    = 15 * time.Second

	// HeaderSignature carries the webhook HMAC.
	HeaderSignature = "X-Razorpay-Signature"
	// HeaderEventID carries the gateway's delivery id.
	HeaderEventID = "X-Razorpay-Event-Id"
)

// Config holds gateway credentials and API settings.
type Config struct {
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
	APIBaseURL    string `json:"api_base_url"`
	TimeoutMS     int    `json:"timeout_ms"`
}

// CreateOrderInput describes an order to register with the gateway.
// AmountPaise is always minor units.
type CreateOrderInput struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// OrderResult is the gateway's view of a created order.
type OrderResult struct {
	OrderID     string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string
	Raw         map[string]interface{}
}

// PaymentResult is the gateway's view of a payment.
type PaymentResult struct {
	PaymentID        string
	OrderID          string
	Status           string
	AmountPaise      int64
	Currency         string
	Method           string
	Email            string
	Contact          string
	ErrorCode        string
	ErrorDescription string
	CapturedAt       *time.Time
	Raw              map[string]interface{}
}

// WebhookResult is a parsed webhook event.
type WebhookResult struct {
	EventID   string
	EventType string
	Payment   *PaymentResult
	Raw       map[string]interface{}
}

// ParseConfig decodes a raw config map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ValidateConfig checks required fields.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeyID) == "" {
		return fmt.Errorf("%w: key_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.KeySecret) == "" {
		return fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return fmt.Errorf("%w: api_base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.APIBaseURL)); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// Normalize trims fields and fills defaults.
func (c *Config) Normalize() {
	c.KeyID = strings.TrimSpace(c.KeyID)
	c.KeySecret = strings.TrimSpace(c.KeySecret)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
}

func (c *Config) timeout() time.Duration {
	if c != nil && c.TimeoutMS > 0 {
		return time.Duration(c.TimeoutMS) * time.Millisecond
	}
	return defaultTimeout
}

// VerifyCheckoutSignature checks the signature the checkout widget hands
// back after payment. The signed payload is "<order_id>|<payment_id>"
// keyed with the API key secret. Inputs are compared exactly as given;
// no trimming or case folding, so a padded id or uppercased hex fails.
// Missing inputs fail loudly instead of returning a silent false.
func VerifyCheckoutSignature(cfg *Config, orderID, paymentID, signature string) (bool, error) {
	if cfg == nil || strings.TrimSpace(cfg.KeySecret) == "" {
		return false, fmt.Errorf("%w: key_secret is required", ErrConfigInvalid)
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return false, fmt.Errorf("%w: order_id, payment_id and signature are all required", ErrSignatureMissing)
	}
	expected := computeHMAC(cfg.KeySecret, []byte(orderID+"|"+paymentID))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, nil
	}
	return true, nil
}

// VerifyWebhookSignature checks a webhook HMAC against the exact raw
// request body. The body must not have been re-serialized, and the
// signature is compared exactly as received.
func VerifyWebhookSignature(cfg *Config, body []byte, signature string) (bool, error) {
	if cfg == nil || strings.TrimSpace(cfg.WebhookSecret) == "" {
		return false, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 || signature == "" {
		return false, fmt.Errorf("%w: body and signature are required", ErrSignatureMissing)
	}
	expected := computeHMAC(cfg.WebhookSecret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, nil
	}
	return true, nil
}

// CreateOrder registers an order with the gateway.
func CreateOrder(ctx context.Context, cfg *Config, input CreateOrderInput) (*OrderResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if input.AmountPaise <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrConfigInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "INR"
	}

	payload := map[string]interface{}{
		"amount":   input.AmountPaise,
		"currency": currency,
	}
	if receipt := strings.TrimSpace(input.Receipt); receipt != "" {
		payload["receipt"] = receipt
	}
	if len(input.Notes) > 0 {
		payload["notes"] = input.Notes
	}

	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodPost, "/orders", payload)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: create order status %d", ErrResponseInvalid, statusCode)
	}

	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := &OrderResult{
		OrderID:     strings.TrimSpace(readString(raw, "id")),
		AmountPaise: readInt64(raw, "amount"),
		Currency:    strings.ToUpper(strings.TrimSpace(readString(raw, "currency"))),
		Receipt:     strings.TrimSpace(readString(raw, "receipt")),
		Status:      strings.TrimSpace(readString(raw, "status")),
		Raw:         raw,
	}
	if result.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrResponseInvalid)
	}
	return result, nil
}

// FetchPayment queries a payment by id.
func FetchPayment(ctx context.Context, cfg *Config, paymentID string) (*PaymentResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment_id is required", ErrConfigInvalid)
	}

	path := "/payments/" + url.PathEscape(paymentID)
	respBody, statusCode, err := doJSONRequest(ctx, cfg, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return nil, fmt.Errorf("%w: fetch payment status %d", ErrResponseInvalid, statusCode)
	}

	raw, err := decodeRawMap(respBody)
	if err != nil {
		return nil, err
	}
	result := paymentFromRaw(raw)
	if result.PaymentID == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrResponseInvalid)
	}
	return result, nil
}

// VerifyAndParseWebhook checks the webhook signature over the raw body
// and decodes the event envelope.
func VerifyAndParseWebhook(cfg *Config, headers map[string]string, body []byte) (*WebhookResult, error) {
	signature := getHeaderValue(headers, HeaderSignature)
	ok, err := VerifyWebhookSignature(cfg, body, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}

	result, err := ParseWebhook(body)
	if err != nil {
		return nil, err
	}
	if result.EventID == "" {
		result.EventID = getHeaderValue(headers, HeaderEventID)
	}
	return result, nil
}

// ParseWebhook decodes an event body without verifying it.
func ParseWebhook(body []byte) (*WebhookResult, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: body is empty", ErrResponseInvalid)
	}
	raw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	eventType := strings.TrimSpace(readString(raw, "event"))
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrResponseInvalid)
	}

	result := &WebhookResult{
		EventID:   strings.TrimSpace(readString(raw, "id")),
		EventType: eventType,
		Raw:       raw,
	}
	payload := readMap(raw, "payload")
	if paymentWrap := readMap(payload, "payment"); paymentWrap != nil {
		if entity := readMap(paymentWrap, "entity"); entity != nil {
			result.Payment = paymentFromRaw(entity)
		}
	}
	return result, nil
}

func paymentFromRaw(raw map[string]interface{}) *PaymentResult {
	result := &PaymentResult{
		PaymentID:        strings.TrimSpace(readString(raw, "id")),
		OrderID:          strings.TrimSpace(readString(raw, "order_id")),
		Status:           strings.ToLower(strings.TrimSpace(readString(raw, "status"))),
		AmountPaise:      readInt64(raw, "amount"),
		Currency:         strings.ToUpper(strings.TrimSpace(readString(raw, "currency"))),
		Method:           strings.TrimSpace(readString(raw, "method")),
		Email:            strings.TrimSpace(readString(raw, "email")),
		Contact:          strings.TrimSpace(readString(raw, "contact")),
		ErrorCode:        strings.TrimSpace(readString(raw, "error_code")),
		ErrorDescription: strings.TrimSpace(readString(raw, "error_description")),
		Raw:              raw,
	}
	if createdAt := readInt64(raw, "created_at"); createdAt > 0 && result.Status == "captured" {
		capturedAt := time.Unix(createdAt, 0)
		result.CapturedAt = &capturedAt
	}
	return result
}

func computeHMAC(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

func doJSONRequest(ctx context.Context, cfg *Config, method, path string, payload interface{}) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/") + path

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.SetBasicAuth(cfg.KeyID, cfg.KeySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := (&http.Client{Timeout: cfg.timeout()}).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return body, resp.StatusCode, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return raw, nil
}

func getHeaderValue(headers map[string]string, key string) string {
	if len(headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil || strings.TrimSpace(key) == "" {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strings.TrimSpace(strconv.FormatInt(int64(typed), 10))
	case int64:
		return strings.TrimSpace(strconv.FormatInt(typed, 10))
	case int:
		return strings.TrimSpace(strconv.Itoa(typed))
	default:
		return ""
	}
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	mapped, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return mapped
}

func readInt64(raw map[string]interface{}, key string) int64 {
	if raw == nil || strings.TrimSpace(key) == "" {
		return 0
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return 0
	}
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatVal, err := typed.Float64()
		if err != nil {
			return 0
		}
		return int64(floatVal)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

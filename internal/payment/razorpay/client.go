package razorpay

import "context"

// Client binds a Config to the gateway operations so callers can hold
// one handle instead of threading the config everywhere.
type Client struct {
	cfg *Config
}

// NewClient builds a client. The config is normalized once here.
func NewClient(cfg *Config) *Client {
	if cfg != nil {
		cfg.Normalize()
	}
	return &Client{cfg: cfg}
}

// KeyID exposes the public key id for checkout bootstrapping.
func (c *Client) KeyID() string {
	if c == nil || c.cfg == nil {
		return ""
	}
	return c.cfg.KeyID
}

// CreateOrder registers an order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	return CreateOrder(ctx, c.cfg, input)
}

// FetchPayment queries a payment by id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentResult, error) {
	return FetchPayment(ctx, c.cfg, paymentID)
}

// VerifyCheckoutSignature checks a checkout callback signature.
func (c *Client) VerifyCheckoutSignature(orderID, paymentID, signature string) (bool, error) {
	return VerifyCheckoutSignature(c.cfg, orderID, paymentID, signature)
}

// VerifyWebhookSignature checks a webhook signature over raw bytes.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) (bool, error) {
	return VerifyWebhookSignature(c.cfg, body, signature)
}

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/kiranalabs/kirana/internal/domain"
)

// EventPaymentCaptured is the processor event confirming funds were collected.
// All other event types are acknowledged and dropped.
const EventPaymentCaptured = "payment.captured"

// RazorpayConfig contains credentials for the Razorpay provider.
type RazorpayConfig struct {
	// KeyID and KeySecret authenticate API calls. KeySecret also signs the
	// browser-side payment callback.
	KeyID     string
	KeySecret string

	// WebhookSecret signs webhook deliveries. Distinct from KeySecret.
	WebhookSecret string
}

// RazorpayProvider implements Provider using the Razorpay Go SDK.
type RazorpayProvider struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

// Compile-time check that RazorpayProvider implements Provider.
var _ Provider = (*RazorpayProvider)(nil)

// NewRazorpayProvider creates a new Razorpay provider.
// Missing API credentials are a configuration error surfaced at startup
// rather than at first checkout.
func NewRazorpayProvider(cfg RazorpayConfig) (*RazorpayProvider, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, ErrMisconfigured
	}

	return &RazorpayProvider{
		client:        razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

// CreateOrder opens a Razorpay order for the given amount.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*CheckoutSession, error) {
	notes := make(map[string]interface{}, len(params.Notes))
	for k, v := range params.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   params.AmountMinor,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    notes,
	}

	// The SDK does not accept a context; calls run to the client's own
	// HTTP timeout.
	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, "payment.create_order", "Failed to open checkout session")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, domain.Errorf(domain.EPAYMENT, "payment.create_order", "Processor returned no order id")
	}

	return &CheckoutSession{
		SessionID:   id,
		AmountMinor: jsonInt64(body["amount"]),
		Currency:    stringOr(body["currency"], params.Currency),
		Notes:       params.Notes,
	}, nil
}

// VerifyWebhookSignature computes HMAC-SHA256 over the exact raw body with the
// webhook secret and compares it to the supplied signature in constant time.
func (p *RazorpayProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if p.webhookSecret == "" {
		return ErrMisconfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

// VerifyPaymentSignature verifies the browser callback signature:
// HMAC-SHA256 over "orderID|paymentID" with the API key secret.
func (p *RazorpayProvider) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if p.keySecret == "" {
		return ErrMisconfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(p.keySecret))
	fmt.Fprintf(mac, "%s|%s", orderID, paymentID)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

// webhookEnvelope mirrors the Razorpay webhook wire format.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string          `json:"id"`
				OrderID  string          `json:"order_id"`
				Amount   int64           `json:"amount"`
				Currency string          `json:"currency"`
				Email    string          `json:"email"`
				Notes    json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhookEvent parses a verified webhook body into a CapturedEvent.
// Only call after VerifyWebhookSignature has passed.
func ParseWebhookEvent(payload []byte) (*CapturedEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, domain.WrapError(err, domain.EINVALID, "payment.parse_event", "Invalid webhook JSON")
	}
	if env.Event == "" {
		return nil, domain.Errorf(domain.EINVALID, "payment.parse_event", "Webhook event type missing")
	}

	entity := env.Payload.Payment.Entity

	// Razorpay serializes empty notes as [] rather than {}.
	var notes map[string]string
	if len(entity.Notes) > 0 {
		_ = json.Unmarshal(entity.Notes, &notes)
	}

	return &CapturedEvent{
		EventType:      env.Event,
		PaymentID:      entity.ID,
		OrderReference: entity.OrderID,
		AmountMinor:    entity.Amount,
		Currency:       entity.Currency,
		Email:          entity.Email,
		Notes:          notes,
	}, nil
}

func jsonInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/stripe/stripe-go/v74/webhook"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/models"
)

type StripeClient struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

type StripeConfig struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

func NewStripeClient(cfg StripeConfig) *StripeClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}

	return &StripeClient{
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// DecodeEvent verifies the signature header against the exact raw body bytes
// and decodes the payload into the kind-specific variant. Verification runs
// before any JSON parsing of the body; a bad signature means the payload must
// not be processed at all.
func (sc *StripeClient) DecodeEvent(payload []byte, sigHeader string) (*models.InboundEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, sigHeader, sc.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignature, err)
	}

	out := &models.InboundEvent{
		ID:      ev.ID,
		Kind:    ev.Type,
		Created: time.Unix(ev.Created, 0),
	}

	switch ev.Type {
	case models.EventPaymentSucceeded, models.EventPaymentFailed:
		var pi models.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent payload: %w", err)
		}
		out.PaymentIntent = &pi
	case models.EventCheckoutCompleted, models.EventAsyncPaymentFailed:
		var session models.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session payload: %w", err)
		}
		out.Session = &session
	}

	return out, nil
}

type sessionListResponse struct {
	Data []models.CheckoutSession `json:"data"`
}

// FindSessionByIntent looks up the checkout session associated with a payment
// intent. At most one session is expected; zero results as well as transport
// failures surface as the retryable session-not-found condition.
func (sc *StripeClient) FindSessionByIntent(ctx context.Context, intentID string) (*models.CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions?payment_intent=%s&limit=1",
		sc.baseURL, url.QueryEscape(intentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build session lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sc.secretKey)

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup failed: %v", apperrors.ErrSessionNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lookup returned status %d", apperrors.ErrSessionNotFound, resp.StatusCode)
	}

	var result sessionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode session list response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: intent %s", apperrors.ErrSessionNotFound, intentID)
	}

	return &result.Data[0], nil
}

package mollie

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/VictorAvelar/mollie-api-go/v4/mollie"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/config"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

var errAPIKeyRequired = errors.New("mollie api key is required")

// Client wraps Mollie's API client plus the configured callback URLs.
type Client struct {
	api         *mollie.Client
	webhookURL  string
	redirectURL string
}

// CreatePaymentRequest describes one checkout to open with Mollie.
type CreatePaymentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Reference   string
}

// Payment is the provider-side view of a payment.
type Payment struct {
	ProviderID  string
	Status      enums.PaymentStatus
	CheckoutURL string
}

// NewClient initializes the Mollie API client with the configured secrets.
func NewClient(ctx context.Context, cfg config.MollieConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	conf := mollie.NewAPIConfig(false)
	if cfg.TestMode {
		conf = mollie.NewAPITestingConfig(false)
	}
	api, err := mollie.NewClient(nil, conf)
	if err != nil {
		return nil, fmt.Errorf("init mollie client: %w", err)
	}
	if err := api.WithAuthenticationValue(apiKey); err != nil {
		return nil, fmt.Errorf("set mollie credentials: %w", err)
	}

	if logg != nil {
		mode := "live"
		if cfg.TestMode {
			mode = "test"
		}
		logg.Info(ctx, fmt.Sprintf("mollie client initialized (%s)", mode))
	}

	return &Client{
		api:         api,
		webhookURL:  strings.TrimRight(cfg.WebhookURL, "/"),
		redirectURL: strings.TrimRight(cfg.RedirectURL, "/"),
	}, nil
}

// CreatePayment opens a checkout at Mollie. The redirect URL carries the
// payment reference so the frontend can poll the matching payment record.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	_, created, err := c.api.Payments.Create(ctx, mollie.CreatePayment{
		Amount: &mollie.Amount{
			Currency: currency,
			Value:    req.Amount.StringFixed(2),
		},
		Description: req.Description,
		RedirectURL: c.redirectURL + "/" + req.Reference,
		WebhookURL:  c.webhookURL,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create mollie payment: %w", err)
	}
	return toPayment(created), nil
}

// GetPayment fetches the current provider state of a payment.
func (c *Client) GetPayment(ctx context.Context, providerID string) (*Payment, error) {
	_, payment, err := c.api.Payments.Get(ctx, providerID, nil)
	if err != nil {
		return nil, fmt.Errorf("get mollie payment: %w", err)
	}
	return toPayment(payment), nil
}

func toPayment(p *mollie.Payment) *Payment {
	out := &Payment{
		ProviderID: p.ID,
		Status:     mapStatus(p.Status),
	}
	if p.Links.Checkout != nil {
		out.CheckoutURL = p.Links.Checkout.Href
	}
	return out
}

// mapStatus collapses Mollie's payment states into the four we track.
func mapStatus(status string) enums.PaymentStatus {
	switch status {
	case "paid":
		return enums.PaymentStatusCompleted
	case "failed", "expired":
		return enums.PaymentStatusFailed
	case "canceled":
		return enums.PaymentStatusCanceled
	default:
		// open, pending, authorized
		return enums.PaymentStatusPending
	}
}

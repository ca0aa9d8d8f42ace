package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bag2go/bag2go/internal/domain"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

const EventPaymentCompleted = "checkout.session.completed"

// Event is a verified, parsed payment-provider callback. OrderID is the
// correlation key carried in the session metadata; it may be empty when the
// provider event carries no order reference.
type Event struct {
	Type    string
	OrderID string
}

type Gateway interface {
	// CreateSession opens a hosted checkout session for the order and returns
	// the provider session id.
	CreateSession(ctx context.Context, order *domain.Order, amountCents int64, currency, successURL, cancelURL string) (string, error)
	// VerifyAndParse checks the payload signature against the webhook secret
	// before anything else. A bad signature returns domain.ErrBadSignature.
	VerifyAndParse(payload []byte, signatureHeader string) (Event, error)
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateSession(ctx context.Context, order *domain.Order, amountCents int64, currency, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(order.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Bag pickup"),
					},
				},
				Quantity: stripe.Int64(int64(len(order.Bags))),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return session.ID, nil
}

func (g *StripeGateway) VerifyAndParse(payload []byte, signatureHeader string) (Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", domain.ErrBadSignature, err)
	}

	parsed := Event{Type: string(event.Type)}
	if parsed.Type != EventPaymentCompleted {
		return parsed, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return Event{}, fmt.Errorf("decode checkout session: %w", err)
	}
	parsed.OrderID = session.Metadata["order_id"]
	return parsed, nil
}

var _ Gateway = (*StripeGateway)(nil)

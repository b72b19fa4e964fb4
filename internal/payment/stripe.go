package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const MetadataOrderID = "orderId"

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	AppURL        string
	Currency      string
}

type StripeProvider struct {
	sc  *client.API
	cfg StripeConfig
}

func NewStripe(cfg StripeConfig) *StripeProvider {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeProvider{sc: sc, cfg: cfg}
}

// SuccessURL keeps the literal {CHECKOUT_SESSION_ID} template for the provider to fill.
func (p *StripeProvider) SuccessURL() string {
	return p.cfg.AppURL + "/orders/success?session_id={CHECKOUT_SESSION_ID}"
}

func (p *StripeProvider) CancelURL(orderID string) string {
	return p.cfg.AppURL + "/orders/cancel?orderId=" + url.QueryEscape(orderID)
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, orderID string, lines []CheckoutLine) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL()),
		CancelURL:  stripe.String(p.CancelURL(orderID)),
	}
	params.Context = ctx
	for _, l := range lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(l.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.cfg.Currency),
				UnitAmount: stripe.Int64(l.UnitPrice.Cents()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
			},
		})
	}
	params.AddMetadata(MetadataOrderID, orderID)

	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return Event{}, fmt.Errorf("decode checkout session: %w", err)
		}
		out.OrderID = sess.Metadata[MetadataOrderID]
		out.Completed = ev.Type == stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
	}
	return out, nil
}

// Package payment talks to the hosted checkout provider.
package payment

import (
	"context"
	"errors"

	"github.com/ariefcatur/fitmeal/internal/money"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutLine is one charged line, priced from the order snapshot.
type CheckoutLine struct {
	Name      string
	UnitPrice money.Money
	Quantity  int
}

// Event is a verified provider callback reduced to what the order lifecycle needs.
type Event struct {
	ID        string
	Type      string
	OrderID   string // from session metadata
	Completed bool   // payment confirmed
}

type Provider interface {
	// CreateCheckoutSession returns the hosted payment page URL.
	CreateCheckoutSession(ctx context.Context, orderID string, lines []CheckoutLine) (string, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

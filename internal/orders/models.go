package orders

import (
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/money"
)

type User struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"externalId"`
	Email      string  `json:"email"`
	Name       *string `json:"name"`
}

type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Status    Status      `json:"status"` // lihat status.go
	Total     money.Money `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Items     []OrderItem `json:"items"`
	User      *User       `json:"user,omitempty"`
}

type OrderItem struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"orderId"`
	MealID    string        `json:"mealId"`
	Quantity  int           `json:"quantity"`
	UnitPrice money.Money   `json:"unitPrice"` // snapshot at creation
	Meal      *catalog.Meal `json:"meal,omitempty"`
}

// Subtotal is unit price snapshot times quantity.
func (it OrderItem) Subtotal() money.Money { return it.UnitPrice.Mul(it.Quantity) }

// ItemInput is one requested line. Client prices are never accepted.
type ItemInput struct {
	MealID   string `json:"mealId"`
	Quantity *int   `json:"quantity,omitempty"`
}

// UserRef identifies the order owner at the identity provider.
type UserRef struct {
	ExternalID string
	Email      string
	Name       *string
	Verified   bool // came from a verified token
}

type NewOrder struct {
	User  UserRef
	Items []ItemInput
}

type ListFilter struct {
	ExternalUserID string // empty = all orders
}

// HistoryEntry is one lifecycle event projected by the history worker.
type HistoryEntry struct {
	EventID    string    `json:"eventId"`
	OrderID    string    `json:"orderId"`
	EventType  string    `json:"eventType"`
	FromStatus *Status   `json:"fromStatus,omitempty"`
	ToStatus   *Status   `json:"toStatus,omitempty"`
	Producer   string    `json:"producer"`
	OccurredAt time.Time `json:"occurredAt"`
}

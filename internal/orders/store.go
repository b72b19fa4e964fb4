package orders

import "context"

type Store interface {
	// CreateOrder resolves or creates the user, prices items from the
	// catalog and persists the order with its lines, all or nothing.
	CreateOrder(ctx context.Context, user UserRef, items []ItemInput) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	// ListOrders returns newest first with items, meals and user.
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	// TransitionStatus moves the order to `to` under a row lock and returns
	// the updated order plus the status it had before.
	TransitionStatus(ctx context.Context, id string, to Status) (Order, Status, error)
	// DeleteOrder removes the order and its lines, returning its last status.
	DeleteOrder(ctx context.Context, id string) (Status, error)

	// RecordEvent stores a history row; false when the event id was already recorded.
	RecordEvent(ctx context.Context, h HistoryEntry) (bool, error)
	ListHistory(ctx context.Context, orderID string) ([]HistoryEntry, error)
}

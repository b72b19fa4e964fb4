package orders

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StatusCache keeps the latest status per order. Misses are not errors.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, s Status) error
	GetStatus(ctx context.Context, orderID string) (Status, bool, error)
	Invalidate(ctx context.Context, orderID string) error
}

// IdempotencyStore maps a client idempotency key to the order it created.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Remember(ctx context.Context, key, orderID string) error
}

// Notifier is told about every applied status change.
type Notifier interface {
	OrderStatusChanged(o Order, from Status)
}

// Service is the order engine and lifecycle manager. Cache, Idem, Publisher
// and Notifier are optional.
type Service struct {
	Store     Store
	Cache     StatusCache
	Idem      IdempotencyStore
	Publisher Publisher
	Notifier  Notifier
	Producer  string
	Log       *zap.Logger
}

// PlaceholderEmail is used for users created without verified identity data.
func PlaceholderEmail(externalID string) string {
	return externalID + "@example.com"
}

// CreateOrder validates the request and persists the order atomically.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder) (Order, error) {
	in.User.ExternalID = strings.TrimSpace(in.User.ExternalID)
	if in.User.ExternalID == "" {
		return Order{}, fmt.Errorf("%w: userId is required", ErrInvalid)
	}
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("%w: items are required", ErrInvalid)
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.MealID) == "" {
			return Order{}, fmt.Errorf("%w: mealId is required", ErrInvalid)
		}
		if _, err := quantity(it); err != nil {
			return Order{}, err
		}
	}
	if in.User.Email == "" {
		in.User.Email = PlaceholderEmail(in.User.ExternalID)
	}

	o, err := s.Store.CreateOrder(ctx, in.User, in.Items)
	if err != nil {
		return Order{}, err
	}

	s.cacheStatus(ctx, o.ID, o.Status)
	publish(s.Publisher, TopicOrderCreated,
		newEnvelope(EventOrderCreated, s.Producer, traceID(ctx), o.ID, createdPayload(o, in.User.ExternalID)))
	s.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("user", in.User.ExternalID),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

// CreateOrderOnce is CreateOrder keyed by a client idempotency key: a repeat
// by the same user with the same key returns the order created first.
// existed reports a repeat.
func (s *Service) CreateOrderOnce(ctx context.Context, key string, in NewOrder) (o Order, existed bool, err error) {
	if key == "" || s.Idem == nil {
		o, err = s.CreateOrder(ctx, in)
		return o, false, err
	}
	// keys are per user; another user's key never replays their order
	key = idemKey(in.User.ExternalID, key)
	if id, ok, err := s.Idem.Lookup(ctx, key); err != nil {
		s.Log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		o, err := s.Store.GetOrder(ctx, id)
		if err == nil {
			return o, true, nil
		}
		s.Log.Warn("idempotent order vanished", zap.String("order_id", id), zap.Error(err))
	}

	o, err = s.CreateOrder(ctx, in)
	if err != nil {
		return Order{}, false, err
	}
	if err := s.Idem.Remember(ctx, key, o.ID); err != nil {
		s.Log.Warn("idempotency remember failed", zap.String("key", key), zap.Error(err))
	}
	return o, false, nil
}

func idemKey(externalID, key string) string {
	return strings.TrimSpace(externalID) + ":" + key
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	return s.Store.ListOrders(ctx, f)
}

// Status reads the cached status, falling back to the store.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	if s.Cache != nil {
		st, ok, err := s.Cache.GetStatus(ctx, id)
		if err != nil {
			s.Log.Warn("status cache read failed", zap.String("order_id", id), zap.Error(err))
		} else if ok {
			return st, nil
		}
	}
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, o.ID, o.Status)
	return o.Status, nil
}

func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	return s.Store.ListHistory(ctx, id)
}

func (s *Service) cacheStatus(ctx context.Context, id string, st Status) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, id, st); err != nil {
		s.Log.Warn("status cache write failed", zap.String("order_id", id), zap.Error(err))
	}
}

type traceKey struct{}

// WithTraceID attaches a request id that is copied into published events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

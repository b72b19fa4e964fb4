package orders

import (
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/fitmeal/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderDeleted       = "OrderDeleted"

	EventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "fitmeal-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	MealID         string `json:"meal_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	ExternalID string      `json:"external_id"`
	UserID     string      `json:"user_id"`
	Items      []ItemPrice `json:"items"`
	TotalCents int64       `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Reason  string `json:"reason,omitempty"` // admin | payment | cancel
}

type OrderDeletedPayload struct {
	OrderID    string `json:"order_id"`
	LastStatus Status `json:"last_status,omitempty"`
}

// Publisher is satisfied by the async kafka producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

func newEnvelope(eventType, producer, traceID, orderID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

func publish(p Publisher, topic string, ev Envelope) {
	if p == nil {
		return
	}
	p.Publish(topic, PartitionKey(ev.CorrelationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func createdPayload(o Order, externalID string) OrderCreatedPayload {
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{MealID: it.MealID, Qty: it.Quantity, UnitPriceCents: it.UnitPrice.Cents()})
	}
	return OrderCreatedPayload{
		OrderID:    o.ID,
		ExternalID: externalID,
		UserID:     o.UserID,
		Items:      items,
		TotalCents: o.Total.Cents(),
	}
}

// HistoryFromEnvelope maps a lifecycle event to its history row.
func HistoryFromEnvelope(env Envelope) (HistoryEntry, error) {
	h := HistoryEntry{
		EventID:    env.EventID,
		OrderID:    env.CorrelationID,
		EventType:  env.EventType,
		Producer:   env.Producer,
		OccurredAt: env.OccurredAt,
	}
	switch env.EventType {
	case EventOrderCreated:
		p, err := kafkax.UnwrapPayload[OrderCreatedPayload](env.Payload)
		if err != nil {
			return HistoryEntry{}, err
		}
		to := StatusPending
		h.OrderID, h.ToStatus = p.OrderID, &to
	case EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return HistoryEntry{}, err
		}
		from, to := p.From, p.To
		h.OrderID, h.FromStatus, h.ToStatus = p.OrderID, &from, &to
	case EventOrderDeleted:
		p, err := kafkax.UnwrapPayload[OrderDeletedPayload](env.Payload)
		if err != nil {
			return HistoryEntry{}, err
		}
		h.OrderID = p.OrderID
		if p.LastStatus != "" {
			from := p.LastStatus
			h.FromStatus = &from
		}
	default:
		return HistoryEntry{}, fmt.Errorf("unknown event type %q", env.EventType)
	}
	return h, nil
}

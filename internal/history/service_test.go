package history

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/fitmeal/internal/kafka"
	"github.com/ariefcatur/fitmeal/internal/memstore"
	"github.com/ariefcatur/fitmeal/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memDedup struct{ seen map[string]bool }

func (d *memDedup) Seen(ctx context.Context, id string) (bool, error) { return d.seen[id], nil }
func (d *memDedup) Mark(ctx context.Context, id string) error {
	d.seen[id] = true
	return nil
}

type failingRecorder struct{}

func (failingRecorder) RecordEvent(ctx context.Context, h orders.HistoryEntry) (bool, error) {
	return false, errors.New("db down")
}

func statusChanged(t *testing.T, eventID, orderID string, from, to orders.Status) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:       eventID,
		EventType:     orders.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Producer:      "fitmeal-api",
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.OrderStatusChangedPayload{OrderID: orderID, From: from, To: to}),
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Topic: orders.TopicOrderStatusChanged, Value: b}
}

func TestHandleOrderEvent_RecordsOnce(t *testing.T) {
	store := memstore.New()
	dedup := &memDedup{seen: map[string]bool{}}
	svc := &Service{Repo: store, Dedup: dedup, Log: zap.NewNop()}
	ctx := context.Background()

	m := statusChanged(t, "11111111-1111-1111-1111-111111111111", "order-1", orders.StatusPending, orders.StatusPaid)
	require.NoError(t, svc.HandleOrderEvent(ctx, m))
	require.NoError(t, svc.HandleOrderEvent(ctx, m))

	hist, err := store.ListHistory(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, orders.EventOrderStatusChanged, hist[0].EventType)
	require.NotNil(t, hist[0].FromStatus)
	assert.Equal(t, orders.StatusPending, *hist[0].FromStatus)
	assert.Equal(t, orders.StatusPaid, *hist[0].ToStatus)
	assert.True(t, dedup.seen["11111111-1111-1111-1111-111111111111"])
}

func TestHandleOrderEvent_PoisonMessageIsCommitted(t *testing.T) {
	svc := &Service{Repo: memstore.New(), Log: zap.NewNop()}
	assert.NoError(t, svc.HandleOrderEvent(context.Background(), kafkago.Message{Value: []byte("garbage")}))
}

func TestHandleOrderEvent_StoreErrorIsRetried(t *testing.T) {
	svc := &Service{Repo: failingRecorder{}, Log: zap.NewNop()}
	m := statusChanged(t, "22222222-2222-2222-2222-222222222222", "order-2", orders.StatusPaid, orders.StatusDelivered)
	assert.Error(t, svc.HandleOrderEvent(context.Background(), m))
}

// Package history projects order lifecycle events from kafka into the
// order_events table.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/fitmeal/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Recorder stores history rows; orders.Store implements it.
type Recorder interface {
	RecordEvent(ctx context.Context, h orders.HistoryEntry) (bool, error)
}

// Deduper skips event ids that were already handled; optional.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

type Service struct {
	Repo  Recorder
	Dedup Deduper
	Log   *zap.Logger
}

// HandleOrderEvent dipasang sebagai handler consumer. It returns nil when the
// offset may be committed: processed, duplicate, or a poison message.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("skip undecodable event", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventID == "" {
		s.Log.Warn("skip event without id", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset))
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			s.Log.Warn("dedup lookup failed", zap.String("event_id", env.EventID), zap.Error(err))
		} else if seen {
			return nil
		}
	}

	// 3) map payload
	h, err := orders.HistoryFromEnvelope(env)
	if err != nil {
		s.Log.Warn("skip unknown event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	// 4) insert; the event_id primary key makes replays harmless
	inserted, err := s.Repo.RecordEvent(ctx, h)
	if err != nil {
		return fmt.Errorf("record event %s: %w", env.EventID, err)
	}
	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	s.Log.Debug("order event recorded",
		zap.String("event_id", env.EventID), zap.String("type", env.EventType),
		zap.String("order_id", h.OrderID), zap.Bool("inserted", inserted))
	return nil
}

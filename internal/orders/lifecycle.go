package orders

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Reasons recorded on status change events.
const (
	ReasonAdmin   = "admin"
	ReasonPayment = "payment"
	ReasonCancel  = "cancel"
)

// SetStatus applies a transition. Re-applying the current status succeeds
// without writing or emitting anything.
func (s *Service) SetStatus(ctx context.Context, id string, to Status, reason string) (Order, error) {
	o, from, err := s.Store.TransitionStatus(ctx, id, to)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			s.Log.Info("status transition rejected",
				zap.String("order_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
		}
		return Order{}, err
	}
	if from == to {
		return o, nil
	}

	s.cacheStatus(ctx, o.ID, o.Status)
	publish(s.Publisher, TopicOrderStatusChanged, newEnvelope(EventOrderStatusChanged, s.Producer, traceID(ctx), o.ID,
		OrderStatusChangedPayload{OrderID: o.ID, From: from, To: to, Reason: reason}))
	if s.Notifier != nil {
		s.Notifier.OrderStatusChanged(o, from)
	}
	s.Log.Info("order status changed",
		zap.String("order_id", o.ID), zap.String("from", string(from)), zap.String("to", string(to)),
		zap.String("reason", reason))
	return o, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (Order, error) {
	return s.SetStatus(ctx, id, StatusPaid, ReasonAdmin)
}

func (s *Service) MarkDelivered(ctx context.Context, id string) (Order, error) {
	return s.SetStatus(ctx, id, StatusDelivered, ReasonAdmin)
}

func (s *Service) Cancel(ctx context.Context, id string) (Order, error) {
	return s.SetStatus(ctx, id, StatusCancelled, ReasonCancel)
}

// ApplyPaymentCompleted marks the order paid after a confirmed payment.
func (s *Service) ApplyPaymentCompleted(ctx context.Context, id string) (Order, error) {
	return s.SetStatus(ctx, id, StatusPaid, ReasonPayment)
}

// Delete removes the order and its lines.
func (s *Service) Delete(ctx context.Context, id string) error {
	last, err := s.Store.DeleteOrder(ctx, id)
	if err != nil {
		return err
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, id); err != nil {
			s.Log.Warn("status cache invalidate failed", zap.String("order_id", id), zap.Error(err))
		}
	}
	publish(s.Publisher, TopicOrderDeleted, newEnvelope(EventOrderDeleted, s.Producer, traceID(ctx), id,
		OrderDeletedPayload{OrderID: id, LastStatus: last}))
	s.Log.Info("order deleted", zap.String("order_id", id))
	return nil
}

package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/payment"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// EventDeduper remembers processed provider event ids.
type EventDeduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

type CheckoutHandler struct {
	Orders   *orders.Service
	Payments payment.Provider
	Dedup    EventDeduper
	Auth     *Auth
	Log      *zap.Logger
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout", h.startCheckout)
	r.Post("/webhooks/payment", h.webhook)
	r.Post("/webhooks/stripe", h.webhook)
}

func (h *CheckoutHandler) startCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := readOrderID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	owner := ""
	if o.User != nil {
		owner = o.User.ExternalID
	}
	if !h.Auth.authorizeUser(w, r, owner) {
		return
	}
	if len(o.Items) == 0 {
		writeErr(w, http.StatusNotFound, orders.ErrEmptyOrder.Error())
		return
	}
	if o.Status != orders.StatusPending {
		writeErr(w, http.StatusConflict, "order is "+string(o.Status)+", not payable")
		return
	}

	lines := make([]payment.CheckoutLine, 0, len(o.Items))
	for _, it := range o.Items {
		name := "Meal"
		if it.Meal != nil {
			name = it.Meal.Name
		}
		lines = append(lines, payment.CheckoutLine{Name: name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	url, err := h.Payments.CreateCheckoutSession(ctx, o.ID, lines)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	h.Log.Info("checkout session created", zap.String("order_id", o.ID))
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *CheckoutHandler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "unreadable body")
		return
	}
	ev, err := h.Payments.ParseWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Log.Warn("webhook rejected", zap.Error(err))
		if errors.Is(err, payment.ErrInvalidSignature) {
			writeErr(w, http.StatusBadRequest, "invalid signature")
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.Dedup != nil && ev.ID != "" {
		seen, err := h.Dedup.Seen(ctx, ev.ID)
		if err != nil {
			h.Log.Warn("webhook dedup lookup failed", zap.String("event_id", ev.ID), zap.Error(err))
		} else if seen {
			writeJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
			return
		}
	}

	if ev.Completed && ev.OrderID != "" {
		_, err := h.Orders.ApplyPaymentCompleted(ctx, ev.OrderID)
		switch {
		case err == nil:
		case errors.Is(err, orders.ErrNotFound), errors.Is(err, orders.ErrInvalidTransition):
			// nothing to retry; acknowledge so the provider stops redelivering
			h.Log.Warn("payment event not applied",
				zap.String("event_id", ev.ID), zap.String("order_id", ev.OrderID), zap.Error(err))
		default:
			h.Log.Error("payment event failed",
				zap.String("event_id", ev.ID), zap.String("order_id", ev.OrderID), zap.Error(err))
			writeErr(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if h.Dedup != nil && ev.ID != "" {
		if err := h.Dedup.Mark(ctx, ev.ID); err != nil {
			h.Log.Warn("webhook dedup mark failed", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Svc  *orders.Service
	Auth *Auth
	Log  *zap.Logger
}

type CreateOrderReq struct {
	UserID string             `json:"userId"`
	Items  []orders.ItemInput `json:"items"`
}

type orderIDReq struct {
	OrderID string `json:"orderId"`
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Get("/orders/{id}/history", h.getHistory)
	r.Post("/orders/cancel", h.cancelOrder)
	r.Group(func(admin chi.Router) {
		admin.Use(h.Auth.RequireAdmin)
		admin.Patch("/orders/{id}", h.updateStatus)
		admin.Delete("/orders/{id}", h.deleteOrder)
		admin.Post("/orders/pay", h.markPaid)
		admin.Post("/orders/deliver", h.markDelivered)
	})
}

// withTrace carries the request id into published events.
func withTrace(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	return context.WithTimeout(ctx, d)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	user := orders.UserRef{ExternalID: strings.TrimSpace(req.UserID)}
	if id, ok := IdentityFrom(r.Context()); ok {
		switch {
		case user.ExternalID == "":
			user.ExternalID = id.Subject
		case user.ExternalID != id.Subject && !id.IsAdmin():
			writeErr(w, http.StatusForbidden, "userId does not match token subject")
			return
		}
		if user.ExternalID == id.Subject {
			user.Email, user.Name, user.Verified = id.Email, id.Name, true
		}
	} else if h.Auth.Enabled() {
		writeErr(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	o, existed, err := h.Svc.CreateOrderOnce(ctx, r.Header.Get("Idempotency-Key"),
		orders.NewOrder{User: user, Items: req.Items})
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	if existed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.ListFilter{ExternalUserID: r.URL.Query().Get("userId")}
	if f.ExternalUserID == "" {
		if h.Auth.Enabled() {
			// unfiltered listing is the admin dashboard
			id, ok := IdentityFrom(r.Context())
			if !ok || !id.IsAdmin() {
				if !ok {
					writeErr(w, http.StatusUnauthorized, "authentication required")
					return
				}
				f.ExternalUserID = id.Subject
			}
		}
	} else if !h.Auth.authorizeUser(w, r, f.ExternalUserID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Svc.List(ctx, f)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// loadOwned fetches the order and checks the caller may see it.
func (h *OrdersHandler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) (orders.Order, bool) {
	o, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return orders.Order{}, false
	}
	owner := ""
	if o.User != nil {
		owner = o.User.ExternalID
	}
	if !h.Auth.authorizeUser(w, r, owner) {
		return orders.Order{}, false
	}
	return o, true
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, ok := h.loadOwned(ctx, w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	if h.Auth.Enabled() {
		if _, ok := h.loadOwned(ctx, w, r, id); !ok {
			return
		}
	}
	// 1) cache, 2) fallback DB
	st, err := h.Svc.Status(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": id, "status": st})
}

func (h *OrdersHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	if h.Auth.Enabled() {
		if _, ok := h.loadOwned(ctx, w, r, id); !ok {
			return
		}
	}
	hist, err := h.Svc.History(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeErr(w, http.StatusBadRequest, "missing id")
		return
	}
	req := statusReq{Status: string(orders.StatusPaid)}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Status == "" {
		req.Status = string(orders.StatusPaid)
	}
	to, err := orders.ParseStatus(strings.ToUpper(req.Status))
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}

	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	o, err := h.Svc.SetStatus(ctx, id, to, orders.ReasonAdmin)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// readOrderID decodes {orderId} and writes 400 when it is missing.
func readOrderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req orderIDReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeErr(w, http.StatusBadRequest, "missing orderId")
		return "", false
	}
	return strings.TrimSpace(req.OrderID), true
}

func (h *OrdersHandler) markPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.MarkPaid)
}

func (h *OrdersHandler) markDelivered(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.MarkDelivered)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (orders.Order, error)) {
	id, ok := readOrderID(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	o, err := apply(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// cancelOrder lets the owner (or an admin) cancel.
func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := readOrderID(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	if _, ok := h.loadOwned(ctx, w, r, id); !ok {
		return
	}
	o, err := h.Svc.Cancel(ctx, id)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/money"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type MealsHandler struct {
	Svc  *catalog.Service
	Auth *Auth
	Log  *zap.Logger
}

func (h *MealsHandler) Register(r chi.Router) {
	r.Get("/meals", h.listMeals)
	r.Get("/meals/{id}", h.getMeal)
	r.Group(func(admin chi.Router) {
		admin.Use(h.Auth.RequireAdmin)
		admin.Post("/meals", h.createMeal)
		admin.Patch("/meals/{id}", h.repriceMeal)
		admin.Delete("/meals/{id}", h.deleteMeal)
	})
}

func (h *MealsHandler) listMeals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	meals, err := h.Svc.List(ctx)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

func (h *MealsHandler) getMeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	m, err := h.Svc.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MealsHandler) createMeal(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewMeal
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	m, err := h.Svc.Create(ctx, req)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type repriceReq struct {
	Price *money.Money `json:"price"`
}

func (h *MealsHandler) repriceMeal(w http.ResponseWriter, r *http.Request) {
	var req repriceReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	m, err := h.Svc.Reprice(ctx, chi.URLParam(r, "id"), req.Price)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MealsHandler) deleteMeal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

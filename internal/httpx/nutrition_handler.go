package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NutritionHandler struct {
	Svc  *nutrition.Service
	Auth *Auth
	Log  *zap.Logger
}

func (h *NutritionHandler) Register(r chi.Router) {
	r.Get("/nutrition-profile", h.getProfile)
	r.Post("/nutrition-profile", h.upsertProfile)
	r.Delete("/nutrition-profile", h.deleteProfile)
	r.Get("/recommendations", h.recommend)
}

func (h *NutritionHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.Auth.userParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Svc.Get(ctx, userID)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type upsertProfileReq struct {
	UserID string `json:"userId"`
	nutrition.ProfileInput
}

func (h *NutritionHandler) upsertProfile(w http.ResponseWriter, r *http.Request) {
	var req upsertProfileReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID, ok := h.Auth.userParamOr(w, r, req.UserID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Svc.Upsert(ctx, userID, req.ProfileInput)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *NutritionHandler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.Auth.userParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, userID); err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NutritionHandler) recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.Auth.userParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Svc.Recommend(ctx, userID)
	if err != nil {
		writeDomainErr(w, h.Log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

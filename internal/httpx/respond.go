package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/payment"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes; 0 means unclassified.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrInvalid),
		errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrUnknownMeal),
		errors.Is(err, catalog.ErrInvalid),
		errors.Is(err, nutrition.ErrInvalid),
		errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, nutrition.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInUse),
		errors.Is(err, orders.ErrInvalidTransition):
		return http.StatusConflict
	}
	return 0
}

// writeDomainErr writes a classified error with its message, or logs an
// unclassified one and answers 500 without details.
func writeDomainErr(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	if code := statusFor(err); code != 0 {
		writeErr(w, code, err.Error())
		return
	}
	log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	writeErr(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON decodes an optional body; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/nutrition"
	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/ariefcatur/fitmeal/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(log *zap.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Deps is everything the API routes need. Dedup may be nil.
type Deps struct {
	Meals       *catalog.Service
	Orders      *orders.Service
	Nutrition   *nutrition.Service
	Payments    payment.Provider
	Dedup       EventDeduper
	Hub         *Hub
	Auth        *Auth
	Log         *zap.Logger
	CORSOrigins []string
}

// Routes builds the full API router.
func Routes(d Deps) *chi.Mux {
	r := NewRouter(d.Log, d.CORSOrigins)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(15*time.Second), d.Auth.Identify)
		(&MealsHandler{Svc: d.Meals, Auth: d.Auth, Log: d.Log}).Register(api)
		(&OrdersHandler{Svc: d.Orders, Auth: d.Auth, Log: d.Log}).Register(api)
		(&NutritionHandler{Svc: d.Nutrition, Auth: d.Auth, Log: d.Log}).Register(api)
		(&CheckoutHandler{Orders: d.Orders, Payments: d.Payments, Dedup: d.Dedup, Auth: d.Auth, Log: d.Log}).Register(api)
	})

	// websocket stays outside the request timeout
	if d.Hub != nil {
		r.Group(func(rt chi.Router) {
			rt.Use(d.Auth.Identify)
			rt.Get("/ws/orders", d.Hub.Serve)
		})
	}
	return r
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

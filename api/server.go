/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, picked up by context loggers
  2. RealIP:     Client address behind proxies
  3. Logging:    Structured request log (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the station frontend

ROUTE GROUPS:
  /api/customers/*   Customers, balances, statements
  /api/balances      Balances of all customers
  /api/suppliers/*   Suppliers
  /api/sales ...     Append-only record collections
  /api/stock/*       Stock per fuel
  /api/reports/*     Derived reports (json/xlsx/pdf)
  /api/status        Join barrier state
  /api/scenarios/*   Demo scenarios
  /metrics           Prometheus

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pumpline/fuel-ledger/pkg/logger"
)

// RouterOptions configures the router.
type RouterOptions struct {
	CORSOrigins []string
	Logger      *logger.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log.WithComponent("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/statement", h.GetStatement)
		})

		r.Get("/balances", h.ListBalances)

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
		})

		// Append-only records
		r.Get("/sales", h.ListSales)
		r.Post("/sales", h.CreateSale)
		r.Get("/purchases", h.ListPurchases)
		r.Post("/purchases", h.CreatePurchase)
		r.Get("/returns", h.ListReturns)
		r.Post("/returns", h.CreateReturn)
		r.Get("/payments", h.ListPayments)
		r.Post("/payments", h.CreatePayment)
		r.Get("/advances", h.ListAdvances)
		r.Post("/advances", h.CreateAdvance)

		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.ListStock)
			r.Get("/{fuel}", h.GetStock)
		})

		r.Get("/reports/{name}", h.GetReport)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs each request with timing and status.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.WithContext(r.Context()).Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", r.RemoteAddr,
			)
		})
	}
}

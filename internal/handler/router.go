package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/port"
	"github.com/tekinformatica/painel-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services groups the use cases exposed over HTTP.
type Services struct {
	Customers   *service.CustomerService
	RenewalLogs *service.RenewalLogService
	Settings    *service.SettingsService
	Dashboard   *service.DashboardService
	Whatsapp    *service.WhatsappService
}

// Options configures the cross-cutting middleware.
type Options struct {
	// CORSOrigins are the origins allowed to call the API (the SPA).
	CORSOrigins []string
	// JWTSecret enables Bearer authentication on /v1 when non-empty.
	JWTSecret string
	// RequestTimeout bounds each /v1 request; zero disables it.
	RequestTimeout time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, backend port.Backend, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger, metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(backend, svc.Customers, logger))
	r.Get("/readyz", readyzHandler(backend))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}
		if opts.JWTSecret != "" {
			r.Use(JWTAuthMiddleware([]byte(opts.JWTSecret), logger))
		} else {
			logger.Warn("SUPABASE_JWT_SECRET not set, /v1 is unauthenticated")
		}

		// =============================================
		// Clientes
		// =============================================
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", listCustomersHandler(svc.Customers, logger))
			r.Post("/", createCustomerHandler(svc.Customers, logger))
			r.Post("/import", importCustomersHandler(svc.Customers, logger))
			r.Get("/export", exportCustomersHandler(svc.Customers, logger))
			r.Post("/whatsapp", bulkWhatsappHandler(svc.Whatsapp, logger))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getCustomerHandler(svc.Customers, logger))
				r.Patch("/", updateCustomerHandler(svc.Customers, logger))
				r.Delete("/", deleteCustomerHandler(svc.Customers, logger))
				r.Post("/renewals", renewCustomerHandler(svc.Customers, logger))
				r.Get("/whatsapp", whatsappLinkHandler(svc.Whatsapp, logger))
			})
		})

		// =============================================
		// Logs de recarga
		// =============================================
		r.Get("/renewal-logs", listRenewalLogsHandler(svc.RenewalLogs, logger))

		// =============================================
		// Dashboard
		// =============================================
		r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))

		// =============================================
		// Configurações
		// =============================================
		r.Route("/settings", func(r chi.Router) {
			r.Get("/whatsapp", getWhatsappConfigHandler(svc.Settings, logger))
			r.Patch("/whatsapp", updateWhatsappConfigHandler(svc.Settings, logger))
			r.Post("/whatsapp/preview", previewWhatsappHandler(svc.Whatsapp, logger))
			r.Get("/tier-costs", listTierCostsHandler(svc.Settings, logger))
			r.Put("/tier-costs/{tier}", updateTierCostHandler(svc.Settings, logger))
		})

		// =============================================
		// Ops
		// =============================================
		r.Get("/ops/metrics", opsMetricsHandler(metrics, svc.Customers))
	})

	return r
}

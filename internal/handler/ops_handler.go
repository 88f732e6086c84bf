package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/port"
	"github.com/tekinformatica/painel-go/internal/service"
)

const healthCheckTimeout = 3 * time.Second

// healthzHandler always answers 200; the body reports whether the backend
// and the customer snapshot are healthy.
func healthzHandler(backend port.Backend, customers *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "painel-api", Status: "healthy", LastChecked: now},
		}

		resp := domain.HealthStatus{Status: "healthy"}
		if backend != nil {
			resp.Backend = backend.Name()

			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			start := time.Now()
			err := backend.Ping(ctx)
			cancel()

			h := domain.ServiceHealth{
				Name:        backend.Name(),
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("health: backend ping failed", zap.String("backend", backend.Name()), zap.Error(err))
				h.Status = "unhealthy"
				h.Error = err.Error()
			}
			services = append(services, h)
		}

		if customers != nil {
			stale, age, _ := customers.SnapshotInfo()
			h := domain.ServiceHealth{Name: "customer-snapshot", Status: "healthy", LastChecked: now}
			if stale {
				h.Status = "degraded"
				h.Error = "snapshot stale for " + age.Round(time.Second).String()
			}
			services = append(services, h)
		}

		for _, s := range services {
			if s.Status == "unhealthy" {
				resp.Status = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				resp.Status = "degraded"
			}
		}
		resp.Services = services
		writeJSON(w, http.StatusOK, resp)
	}
}

// readyzHandler answers 503 until the backend responds.
func readyzHandler(backend port.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if backend != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := backend.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func opsMetricsHandler(metrics *observability.Metrics, customers *service.CustomerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetOpsSnapshot()
		if customers != nil {
			_, age, count := customers.SnapshotInfo()
			snapshot.SnapshotAgeSec = age.Seconds()
			snapshot.CustomersTracked = count
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

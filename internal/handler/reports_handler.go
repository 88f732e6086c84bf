package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/service"
)

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		summary, err := svc.Summary(ctx)
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar dashboard", logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func listRenewalLogsHandler(svc *service.RenewalLogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/renewal-logs")
		defer span.End()

		logs, err := svc.List(ctx, parseLimit(r, service.MaxRenewalLogs))
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar logs", logger)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

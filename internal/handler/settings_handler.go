package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/service"
)

type whatsappConfigResponse struct {
	Config *domain.WhatsappConfig `json:"config"`
	Notice domain.Notice          `json:"notice"`
}

type tierCostRequest struct {
	MonthlyCost *decimal.Decimal `json:"preco_mensal"`
}

type tierCostResponse struct {
	TierCost *domain.TierCost `json:"custo"`
	Notice   domain.Notice    `json:"notice"`
}

// ============================================================
// WhatsApp template
// ============================================================

func getWhatsappConfigHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/whatsapp")
		defer span.End()

		cfg, err := svc.GetWhatsappConfig(ctx)
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar configurações", logger)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func updateWhatsappConfigHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/settings/whatsapp")
		defer span.End()

		var patch domain.WhatsappConfigPatch
		if !decodeJSON(w, r, &patch) {
			return
		}

		cfg, err := svc.UpdateWhatsappConfig(ctx, &patch)
		if err != nil {
			handleServiceError(w, err, "Erro ao salvar configurações", logger)
			return
		}
		writeJSON(w, http.StatusOK, whatsappConfigResponse{
			Config: cfg,
			Notice: domain.NewNotice("Configurações salvas", "A configuração do WhatsApp foi atualizada"),
		})
	}
}

func previewWhatsappHandler(svc *service.WhatsappService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/settings/whatsapp/preview")
		defer span.End()

		var req domain.PreviewRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		link, err := svc.Preview(ctx, &req)
		if err != nil {
			handleServiceError(w, err, "Erro ao gerar preview", logger)
			return
		}
		writeJSON(w, http.StatusOK, link)
	}
}

// ============================================================
// Tier costs
// ============================================================

func listTierCostsHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/tier-costs")
		defer span.End()

		costs, err := svc.ListTierCosts(ctx)
		if err != nil {
			handleServiceError(w, err, "Erro ao carregar custos", logger)
			return
		}
		writeJSON(w, http.StatusOK, costs)
	}
}

func updateTierCostHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/settings/tier-costs/{tier}")
		defer span.End()

		var req tierCostRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.MonthlyCost == nil {
			handleServiceError(w, &domain.ErrValidation{Field: "preco_mensal", Message: "preço mensal é obrigatório"}, "Erro ao salvar custos", logger)
			return
		}

		tc, err := svc.UpdateTierCost(ctx, chi.URLParam(r, "tier"), *req.MonthlyCost)
		if err != nil {
			handleServiceError(w, err, "Erro ao salvar custos", logger)
			return
		}
		writeJSON(w, http.StatusOK, tierCostResponse{
			TierCost: tc,
			Notice:   domain.NewNotice("Custos atualizados", "Os custos dos servidores foram salvos"),
		})
	}
}

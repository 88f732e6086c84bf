package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/port"
)

var settingsTracer = otel.Tracer("service/settings")

const tierCostsCacheKey = "tier_costs"

// DefaultWhatsappTemplate is used until a template row exists.
const DefaultWhatsappTemplate = `Olá {nome}! Este é um lembrete sobre seu plano {servidor}.
Seu serviço {status_vencimento} ({data_vencimento}).
Plano mensal: R$ {plano_mensal}
Plano trimestral: R$ {plano_trimestral}
Para renovar, entre em contato conosco.`

// SettingsService manages the WhatsApp template and the tier cost table.
type SettingsService struct {
	store  port.SettingsStore
	cache  port.Cache[domain.TierCosts]
	logger *zap.Logger
}

// NewSettingsService creates a settings service. Tier costs are cached.
func NewSettingsService(store port.SettingsStore, cache port.Cache[domain.TierCosts], logger *zap.Logger) *SettingsService {
	return &SettingsService{store: store, cache: cache, logger: logger}
}

// ============================================================
// Tier costs
// ============================================================

// TierCosts returns stored costs merged over the defaults.
func (s *SettingsService) TierCosts(ctx context.Context) (domain.TierCosts, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.TierCosts")
	defer span.End()

	if costs, ok := s.cache.Get(tierCostsCacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return costs, nil
	}

	rows, err := s.store.ListTierCosts(ctx)
	if err != nil {
		return nil, err
	}
	costs := domain.MergeTierCosts(rows)
	s.cache.Set(tierCostsCacheKey, costs)
	return costs, nil
}

// TierCostsOrDefault never fails: on a backend error it logs and answers
// the built-in defaults.
func (s *SettingsService) TierCostsOrDefault(ctx context.Context) domain.TierCosts {
	costs, err := s.TierCosts(ctx)
	if err != nil {
		s.logger.Warn("tier costs unavailable, using defaults", zap.Error(err))
		return domain.DefaultTierCosts()
	}
	return costs
}

// ListTierCosts returns one entry per tier in display order.
func (s *SettingsService) ListTierCosts(ctx context.Context) ([]domain.TierCost, error) {
	costs, err := s.TierCosts(ctx)
	if err != nil {
		return nil, err
	}
	return costs.List(), nil
}

// UpdateTierCost sets the monthly cost of one tier.
func (s *SettingsService) UpdateTierCost(ctx context.Context, tierName string, cost decimal.Decimal) (*domain.TierCost, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.UpdateTierCost")
	defer span.End()
	span.SetAttributes(attribute.String("tier", tierName))

	tier, err := domain.ParseTier(tierName)
	if err != nil {
		return nil, err
	}
	if cost.IsNegative() {
		return nil, &domain.ErrValidation{Field: "preco_mensal", Message: "valor não pode ser negativo"}
	}

	tc := &domain.TierCost{Tier: tier, MonthlyCost: cost}
	if err := s.store.UpsertTierCost(ctx, tc); err != nil {
		s.logger.Error("failed to update tier cost", zap.String("tier", string(tier)), zap.Error(err))
		return nil, err
	}
	s.cache.Delete(tierCostsCacheKey)

	s.logger.Info("tier cost updated", zap.String("tier", string(tier)), zap.String("preco_mensal", cost.String()))
	return tc, nil
}

// ============================================================
// WhatsApp template
// ============================================================

// GetWhatsappConfig returns the template row, or the default template when
// the table is still empty.
func (s *SettingsService) GetWhatsappConfig(ctx context.Context) (*domain.WhatsappConfig, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.GetWhatsappConfig")
	defer span.End()

	cfg, err := s.store.GetWhatsappConfig(ctx)
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return &domain.WhatsappConfig{MessageTemplate: DefaultWhatsappTemplate}, nil
	}
	return cfg, err
}

// UpdateWhatsappConfig validates and applies a patch, then re-reads the row.
func (s *SettingsService) UpdateWhatsappConfig(ctx context.Context, patch *domain.WhatsappConfigPatch) (*domain.WhatsappConfig, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.UpdateWhatsappConfig")
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}

	current, err := s.store.GetWhatsappConfig(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(current.ID) == "" {
		return nil, &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: "singleton"}
	}

	if err := s.store.UpdateWhatsappConfig(ctx, current.ID, cols); err != nil {
		s.logger.Error("failed to update whatsapp config", zap.Error(err))
		return nil, err
	}
	s.logger.Info("whatsapp config updated", zap.Int("fields", len(cols)))
	return s.store.GetWhatsappConfig(ctx)
}

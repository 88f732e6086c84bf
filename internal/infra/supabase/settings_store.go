package supabase

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
)

var errEmptyRepresentation = errors.New("supabase returned an empty representation")

// ============================================================
// configuracoes_whatsapp / configuracoes_servidor
// (implements port.SettingsStore)
// ============================================================

// GetWhatsappConfig reads the singleton template row.
func (c *Client) GetWhatsappConfig(ctx context.Context) (*domain.WhatsappConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetWhatsappConfig")
	defer span.End()

	var rows []domain.WhatsappConfig
	if err := c.read(ctx, tableWhatsapp+"?select=*&limit=1", &rows); err != nil {
		return nil, c.wrap("supabase/configuracoes_whatsapp", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: "singleton"}
	}
	return &rows[0], nil
}

// UpdateWhatsappConfig patches the template row in place.
func (c *Client) UpdateWhatsappConfig(ctx context.Context, id string, cols map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateWhatsappConfig")
	defer span.End()
	span.SetAttributes(attribute.String("config.id", id))

	body, err := c.write(ctx, http.MethodPatch, tableWhatsapp+"?"+eq("id", id), cols, preferRepresentation)
	if err != nil {
		return c.wrap("supabase/configuracoes_whatsapp", err)
	}
	var rows []domain.WhatsappConfig
	if err := decodeRows(body, &rows); err == nil && len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: id}
	}
	return nil
}

// ListTierCosts returns the stored tier cost rows.
func (c *Client) ListTierCosts(ctx context.Context) ([]domain.TierCost, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTierCosts")
	defer span.End()

	var rows []domain.TierCost
	if err := c.read(ctx, tableTierCosts+"?select=*&order=tipo_servidor.asc", &rows); err != nil {
		return nil, c.wrap("supabase/configuracoes_servidor", err)
	}
	return rows, nil
}

// UpsertTierCost inserts or updates the row of one tier.
func (c *Client) UpsertTierCost(ctx context.Context, cost *domain.TierCost) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertTierCost")
	defer span.End()
	span.SetAttributes(attribute.String("tier", string(cost.Tier)))

	row := map[string]any{
		"tipo_servidor": string(cost.Tier),
		"preco_mensal":  cost.MonthlyCost,
	}
	_, err := c.write(ctx, http.MethodPost, tableTierCosts+"?on_conflict=tipo_servidor", row, preferUpsert)
	return c.wrap("supabase/configuracoes_servidor", err)
}

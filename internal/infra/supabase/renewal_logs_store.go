package supabase

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// ============================================================
// logs_recarga (implements port.RenewalLogStore)
// ============================================================

// ListRenewalLogs returns logs newest first.
func (c *Client) ListRenewalLogs(ctx context.Context, limit int) ([]domain.RenewalLog, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRenewalLogs")
	defer span.End()

	path := tableRenewalLogs + "?select=*&order=created_at.desc"
	if limit > 0 {
		path += fmt.Sprintf("&limit=%d", limit)
	}

	var rows []domain.RenewalLog
	if err := c.read(ctx, path, &rows); err != nil {
		return nil, c.wrap("supabase/logs_recarga", err)
	}
	span.SetAttributes(attribute.Int("logs.count", len(rows)))
	return rows, nil
}

// CreateRenewalLog appends one log row.
func (c *Client) CreateRenewalLog(ctx context.Context, log *domain.RenewalLog) (*domain.RenewalLog, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRenewalLog")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", log.CustomerID))

	row := map[string]any{
		"cliente_id":             log.CustomerID,
		"nome_cliente":           log.CustomerName,
		"servidor":               string(log.Tier),
		"data_vencimento_antes":  log.DueBefore.String(),
		"data_vencimento_depois": log.DueAfter.String(),
		"meses_adicionados":      log.MonthsAdded,
	}
	body, err := c.write(ctx, http.MethodPost, tableRenewalLogs, row, preferRepresentation)
	if err != nil {
		return nil, c.wrap("supabase/logs_recarga", err)
	}

	var rows []domain.RenewalLog
	if err := decodeRows(body, &rows); err != nil || len(rows) == 0 {
		out := *log
		return &out, nil
	}
	return &rows[0], nil
}

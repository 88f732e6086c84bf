package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tekinformatica/painel-go/internal/domain"
)

var whatsappCasts = map[string]string{
	"mensagem_padrao":       "",
	"assinatura_automatica": "::text::boolean",
	"assinatura":            "",
}

// GetWhatsappConfig reads the singleton template row.
func (s *Store) GetWhatsappConfig(ctx context.Context) (*domain.WhatsappConfig, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetWhatsappConfig")
	defer span.End()

	var cfg domain.WhatsappConfig
	err := s.readRetry(ctx, func() error {
		return s.db.QueryRow(ctx,
			`SELECT id::text, mensagem_padrao, assinatura_automatica, assinatura, created_at, updated_at
			FROM configuracoes_whatsapp ORDER BY created_at LIMIT 1`,
		).Scan(&cfg.ID, &cfg.MessageTemplate, &cfg.AutoSignature, &cfg.Signature, &cfg.CreatedAt, &cfg.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: "singleton"}
	}
	if err != nil {
		return nil, s.wrap("postgres/configuracoes_whatsapp", err)
	}
	return &cfg, nil
}

// UpdateWhatsappConfig patches the template row in place.
func (s *Store) UpdateWhatsappConfig(ctx context.Context, id string, cols map[string]any) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateWhatsappConfig")
	defer span.End()

	set, args, err := setClause(cols, whatsappCasts, 1)
	if err != nil {
		return err
	}
	args = append(args, id)
	tag, err := s.db.Exec(ctx,
		`UPDATE configuracoes_whatsapp SET `+set+`, updated_at = now() WHERE id::text = $`+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return s.wrap("postgres/configuracoes_whatsapp", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: id}
	}
	return nil
}

// ListTierCosts returns the stored tier cost rows.
func (s *Store) ListTierCosts(ctx context.Context) ([]domain.TierCost, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTierCosts")
	defer span.End()

	var out []domain.TierCost
	err := s.readRetry(ctx, func() error {
		rows, err := s.db.Query(ctx,
			`SELECT id::text, tipo_servidor::text, preco_mensal::text, updated_at
			FROM configuracoes_servidor ORDER BY tipo_servidor`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				tc          domain.TierCost
				tier, price string
			)
			if err := rows.Scan(&tc.ID, &tier, &price, &tc.UpdatedAt); err != nil {
				return err
			}
			tc.Tier = domain.Tier(tier)
			if tc.MonthlyCost, err = decimal.NewFromString(price); err != nil {
				return err
			}
			out = append(out, tc)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.wrap("postgres/configuracoes_servidor", err)
	}
	return out, nil
}

// UpsertTierCost inserts or updates the row of one tier.
func (s *Store) UpsertTierCost(ctx context.Context, cost *domain.TierCost) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpsertTierCost")
	defer span.End()

	_, err := s.db.Exec(ctx,
		`INSERT INTO configuracoes_servidor (tipo_servidor, preco_mensal)
		VALUES ($1::text::tipo_servidor, $2::text::numeric)
		ON CONFLICT (tipo_servidor) DO UPDATE SET preco_mensal = EXCLUDED.preco_mensal, updated_at = now()`,
		string(cost.Tier), cost.MonthlyCost.String())
	return s.wrap("postgres/configuracoes_servidor", err)
}

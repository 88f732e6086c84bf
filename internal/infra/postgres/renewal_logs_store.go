package postgres

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
)

const renewalLogColumns = `id::text, cliente_id::text, coalesce(nome_cliente, ''), coalesce(servidor::text, ''),
	data_vencimento_antes::text, data_vencimento_depois::text, meses_adicionados, created_at`

// ListRenewalLogs returns logs newest first.
func (s *Store) ListRenewalLogs(ctx context.Context, limit int) ([]domain.RenewalLog, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListRenewalLogs")
	defer span.End()

	sql := `SELECT ` + renewalLogColumns + ` FROM logs_recarga ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		sql += ` LIMIT $1`
		args = append(args, limit)
	}

	var out []domain.RenewalLog
	err := s.readRetry(ctx, func() error {
		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			var (
				l             domain.RenewalLog
				tier          string
				before, after string
			)
			if err := rows.Scan(&l.ID, &l.CustomerID, &l.CustomerName, &tier,
				&before, &after, &l.MonthsAdded, &l.CreatedAt); err != nil {
				return err
			}
			l.Tier = domain.Tier(tier)
			if l.DueBefore, err = domain.ParseDate(before); err != nil {
				return err
			}
			if l.DueAfter, err = domain.ParseDate(after); err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.wrap("postgres/logs_recarga", err)
	}
	span.SetAttributes(attribute.Int("logs.count", len(out)))
	return out, nil
}

// CreateRenewalLog appends one log row.
func (s *Store) CreateRenewalLog(ctx context.Context, log *domain.RenewalLog) (*domain.RenewalLog, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateRenewalLog")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", log.CustomerID))

	out := *log
	err := s.db.QueryRow(ctx,
		`INSERT INTO logs_recarga (cliente_id, nome_cliente, servidor, data_vencimento_antes,
			data_vencimento_depois, meses_adicionados)
		VALUES ($1::text::uuid, $2, $3::text::tipo_servidor, $4::text::date, $5::text::date, $6)
		RETURNING id::text, created_at`,
		log.CustomerID, log.CustomerName, string(log.Tier), log.DueBefore.String(),
		log.DueAfter.String(), log.MonthsAdded,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, s.wrap("postgres/logs_recarga", err)
	}
	return &out, nil
}

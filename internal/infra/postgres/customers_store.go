package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/resilience"
)

const customerColumns = `id::text, id_client, nome, coalesce(telefone, ''), servidor::text,
	plano_mensal::text, plano_trimestral::text, data_vencimento::text, status::text,
	coalesce(conta_criada::text, ''), coalesce(observacao, ''), created_at, updated_at`

const insertCustomerSQL = `INSERT INTO clientes (id_client, nome, telefone, servidor, plano_mensal,
	plano_trimestral, data_vencimento, status, conta_criada, observacao)
	VALUES ($1, $2, $3, $4::text::tipo_servidor, $5::text::numeric, $6::text::numeric,
	$7::text::date, $8::text::status_cliente, coalesce($9::text::date, current_date), $10)`

var customerCasts = map[string]string{
	"id_client":        "",
	"nome":             "",
	"telefone":         "",
	"servidor":         "::text::tipo_servidor",
	"plano_mensal":     "::text::numeric",
	"plano_trimestral": "::text::numeric",
	"data_vencimento":  "::text::date",
	"status":           "::text::status_cliente",
	"conta_criada":     "::text::date",
	"observacao":       "",
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var (
		c                             domain.Customer
		tier, monthly, quarterly, due string
		status, created               string
	)
	if err := row.Scan(&c.ID, &c.ExternalCode, &c.Name, &c.Phone, &tier,
		&monthly, &quarterly, &due, &status, &created, &c.Note,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	c.Tier = domain.Tier(tier)
	c.Status = domain.Status(status)
	var err error
	if c.MonthlyPrice, err = decimal.NewFromString(monthly); err != nil {
		return nil, err
	}
	if c.QuarterlyPrice, err = decimal.NewFromString(quarterly); err != nil {
		return nil, err
	}
	if c.DueDate, err = domain.ParseDate(due); err != nil {
		return nil, err
	}
	if created != "" {
		if c.CreatedOn, err = domain.ParseDate(created); err != nil {
			return nil, err
		}
	}
	if err := c.ValidateStored(); err != nil {
		return nil, resilience.Permanent(err)
	}
	return &c, nil
}

func insertArgs(in *domain.CustomerInput) []any {
	var created any
	if !in.CreatedOn.IsZero() {
		created = in.CreatedOn.String()
	}
	return []any{
		in.ExternalCode, in.Name, nullIfEmpty(in.Phone), string(in.Tier),
		in.MonthlyPrice.String(), in.QuarterlyPrice.String(), in.DueDate.String(),
		string(in.Status), created, nullIfEmpty(in.Note),
	}
}

// ListCustomers returns every customer ordered by name.
func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCustomers")
	defer span.End()

	var out []domain.Customer
	err := s.readRetry(ctx, func() error {
		rows, err := s.db.Query(ctx, `SELECT `+customerColumns+` FROM clientes ORDER BY nome ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			c, err := scanCustomer(rows)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.wrap("postgres/clientes", err)
	}
	span.SetAttributes(attribute.Int("customers.count", len(out)))
	return out, nil
}

// GetCustomer fetches one customer by id.
func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	var c *domain.Customer
	err := s.readRetry(ctx, func() error {
		var err error
		c, err = scanCustomer(s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM clientes WHERE id::text = $1`, id))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	if err != nil {
		return nil, s.wrap("postgres/clientes", err)
	}
	return c, nil
}

// CreateCustomer inserts one customer and returns the stored row.
func (s *Store) CreateCustomer(ctx context.Context, in *domain.CustomerInput) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateCustomer")
	defer span.End()

	c, err := scanCustomer(s.db.QueryRow(ctx, insertCustomerSQL+` RETURNING `+customerColumns, insertArgs(in)...))
	if err != nil {
		return nil, s.wrap("postgres/clientes", err)
	}
	return c, nil
}

// CreateCustomers inserts every row in one transaction.
func (s *Store) CreateCustomers(ctx context.Context, in []domain.CustomerInput) (int, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateCustomers")
	defer span.End()
	span.SetAttributes(attribute.Int("customers.count", len(in)))

	if len(in) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, s.wrap("postgres/clientes", err)
	}
	for i := range in {
		if _, err := tx.Exec(ctx, insertCustomerSQL, insertArgs(&in[i])...); err != nil {
			_ = tx.Rollback(ctx)
			return 0, s.wrap("postgres/clientes", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, s.wrap("postgres/clientes", err)
	}
	return len(in), nil
}

// UpdateCustomer applies a column patch.
func (s *Store) UpdateCustomer(ctx context.Context, id string, cols map[string]any) error {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	set, args, err := setClause(cols, customerCasts, 1)
	if err != nil {
		return err
	}
	args = append(args, id)
	sql := `UPDATE clientes SET ` + set + `, updated_at = now() WHERE id::text = $` + strconv.Itoa(len(args))

	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return s.wrap("postgres/clientes", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	return nil
}

// DeleteCustomer removes a customer.
func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	tag, err := s.db.Exec(ctx, `DELETE FROM clientes WHERE id::text = $1`, id)
	if err != nil {
		return s.wrap("postgres/clientes", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	return nil
}

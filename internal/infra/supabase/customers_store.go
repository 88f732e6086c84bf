package supabase

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// ============================================================
// clientes (implements port.CustomerStore)
// ============================================================

// customerRow builds the insert payload. Zero dates are sent as null.
func customerRow(in *domain.CustomerInput) map[string]any {
	row := map[string]any{
		"id_client":        in.ExternalCode,
		"nome":             in.Name,
		"telefone":         nullable(in.Phone),
		"servidor":         string(in.Tier),
		"plano_mensal":     in.MonthlyPrice,
		"plano_trimestral": in.QuarterlyPrice,
		"data_vencimento":  in.DueDate.String(),
		"status":           string(in.Status),
		"observacao":       nullable(in.Note),
	}
	if !in.CreatedOn.IsZero() {
		row["conta_criada"] = in.CreatedOn.String()
	}
	return row
}

// checkRows rejects rows whose enum columns are outside the known sets.
func checkRows(rows []domain.Customer) error {
	for i := range rows {
		if err := rows[i].ValidateStored(); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListCustomers returns every customer ordered by name.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCustomers")
	defer span.End()

	var rows []domain.Customer
	if err := c.read(ctx, tableCustomers+"?select=*&order=nome.asc", &rows); err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}
	if err := checkRows(rows); err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}
	span.SetAttributes(attribute.Int("customers.count", len(rows)))
	return rows, nil
}

// GetCustomer fetches one customer by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	var rows []domain.Customer
	if err := c.read(ctx, tableCustomers+"?select=*&"+eq("id", id)+"&limit=1", &rows); err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	if err := checkRows(rows[:1]); err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}
	return &rows[0], nil
}

// CreateCustomer inserts one customer and returns the stored row.
func (c *Client) CreateCustomer(ctx context.Context, in *domain.CustomerInput) (*domain.Customer, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCustomer")
	defer span.End()

	body, err := c.write(ctx, http.MethodPost, tableCustomers, customerRow(in), preferRepresentation)
	if err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}

	var rows []domain.Customer
	if err := decodeRows(body, &rows); err != nil || len(rows) == 0 {
		c.logger.Warn("supabase: insert returned no representation")
		return nil, c.wrap("supabase/clientes", errEmptyRepresentation)
	}
	if err := checkRows(rows[:1]); err != nil {
		return nil, c.wrap("supabase/clientes", err)
	}
	return &rows[0], nil
}

// CreateCustomers inserts all rows in a single request. PostgREST runs a
// bulk insert in one statement, so a bad row writes nothing.
func (c *Client) CreateCustomers(ctx context.Context, in []domain.CustomerInput) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCustomers")
	defer span.End()
	span.SetAttributes(attribute.Int("customers.count", len(in)))

	if len(in) == 0 {
		return 0, nil
	}
	rows := make([]map[string]any, 0, len(in))
	for i := range in {
		row := customerRow(&in[i])
		if _, ok := row["conta_criada"]; !ok {
			row["conta_criada"] = nil
		}
		rows = append(rows, row)
	}

	if _, err := c.write(ctx, http.MethodPost, tableCustomers, rows, preferMinimal); err != nil {
		return 0, c.wrap("supabase/clientes", err)
	}
	return len(in), nil
}

// UpdateCustomer applies a column patch. Zero matched rows is ErrNotFound.
func (c *Client) UpdateCustomer(ctx context.Context, id string, cols map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	body, err := c.write(ctx, http.MethodPatch, tableCustomers+"?"+eq("id", id), cols, preferRepresentation)
	if err != nil {
		return c.wrap("supabase/clientes", err)
	}
	var rows []domain.Customer
	if err := decodeRows(body, &rows); err == nil && len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	return nil
}

// DeleteCustomer removes a customer.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	body, err := c.write(ctx, http.MethodDelete, tableCustomers+"?"+eq("id", id), nil, preferRepresentation)
	if err != nil {
		return c.wrap("supabase/clientes", err)
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := decodeRows(body, &rows); err == nil && len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	return nil
}

package service_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// --- Fakes ---

// fakeBackend is an in-memory stand-in for the clientes, logs_recarga and
// settings tables. Setting one of the *Err fields makes that call fail.
type fakeBackend struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	logs      []domain.RenewalLog
	whatsapp  *domain.WhatsappConfig
	tierCosts map[domain.Tier]decimal.Decimal
	nextID    int

	listErr      error
	updateErr    error
	createLogErr error
	bulkErr      error
	tierCostErr  error

	listCalls     int
	tierCostCalls int
	updates       []map[string]any
}

func newFakeBackend(customers ...domain.Customer) *fakeBackend {
	b := &fakeBackend{
		customers: make(map[string]domain.Customer),
		tierCosts: make(map[domain.Tier]decimal.Decimal),
	}
	for _, c := range customers {
		b.customers[c.ID] = c
	}
	return b
}

func (b *fakeBackend) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]domain.Customer, 0, len(b.customers))
	for _, c := range b.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *fakeBackend) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	return &c, nil
}

func (b *fakeBackend) CreateCustomer(_ context.Context, in *domain.CustomerInput) (*domain.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.insert(*in)
	return &c, nil
}

func (b *fakeBackend) CreateCustomers(_ context.Context, in []domain.CustomerInput) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bulkErr != nil {
		return 0, b.bulkErr
	}
	for _, i := range in {
		b.insert(i)
	}
	return len(in), nil
}

// insert assumes mu is held.
func (b *fakeBackend) insert(in domain.CustomerInput) domain.Customer {
	b.nextID++
	c := domain.Customer{
		ID:             "id-" + strconv.Itoa(b.nextID),
		ExternalCode:   in.ExternalCode,
		Name:           in.Name,
		Phone:          in.Phone,
		Tier:           in.Tier,
		MonthlyPrice:   in.MonthlyPrice,
		QuarterlyPrice: in.QuarterlyPrice,
		DueDate:        in.DueDate,
		Status:         in.Status,
		CreatedOn:      in.CreatedOn,
		Note:           in.Note,
	}
	b.customers[c.ID] = c
	return c
}

func (b *fakeBackend) UpdateCustomer(_ context.Context, id string, cols map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.updateErr != nil {
		return b.updateErr
	}
	c, ok := b.customers[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	b.updates = append(b.updates, cols)
	for k, v := range cols {
		switch k {
		case "nome":
			c.Name = v.(string)
		case "telefone":
			c.Phone = v.(string)
		case "servidor":
			c.Tier = domain.Tier(v.(string))
		case "status":
			c.Status = domain.Status(v.(string))
		case "data_vencimento":
			c.DueDate = domain.MustParseDate(v.(string))
		case "plano_mensal":
			c.MonthlyPrice = v.(decimal.Decimal)
		case "observacao":
			c.Note = v.(string)
		}
	}
	b.customers[id] = c
	return nil
}

func (b *fakeBackend) DeleteCustomer(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.customers[id]; !ok {
		return &domain.ErrNotFound{Resource: "cliente", ID: id}
	}
	delete(b.customers, id)
	return nil
}

func (b *fakeBackend) ListRenewalLogs(_ context.Context, limit int) ([]domain.RenewalLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.RenewalLog, 0, len(b.logs))
	for i := len(b.logs) - 1; i >= 0; i-- {
		out = append(out, b.logs[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *fakeBackend) CreateRenewalLog(_ context.Context, log *domain.RenewalLog) (*domain.RenewalLog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createLogErr != nil {
		return nil, b.createLogErr
	}
	entry := *log
	entry.ID = "log-" + strconv.Itoa(len(b.logs)+1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	entry.CreatedAt = &now
	b.logs = append(b.logs, entry)
	return &entry, nil
}

func (b *fakeBackend) GetWhatsappConfig(_ context.Context) (*domain.WhatsappConfig, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.whatsapp == nil {
		return nil, &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: "singleton"}
	}
	cfg := *b.whatsapp
	return &cfg, nil
}

func (b *fakeBackend) UpdateWhatsappConfig(_ context.Context, id string, cols map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.whatsapp == nil || b.whatsapp.ID != id {
		return &domain.ErrNotFound{Resource: "configuracao_whatsapp", ID: id}
	}
	for k, v := range cols {
		switch k {
		case "mensagem_padrao":
			b.whatsapp.MessageTemplate = v.(string)
		case "assinatura_automatica":
			b.whatsapp.AutoSignature = v.(bool)
		case "assinatura":
			if v == nil {
				b.whatsapp.Signature = nil
			} else {
				s := v.(string)
				b.whatsapp.Signature = &s
			}
		}
	}
	return nil
}

func (b *fakeBackend) ListTierCosts(_ context.Context) ([]domain.TierCost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tierCostCalls++
	if b.tierCostErr != nil {
		return nil, b.tierCostErr
	}
	out := make([]domain.TierCost, 0, len(b.tierCosts))
	for t, c := range b.tierCosts {
		out = append(out, domain.TierCost{Tier: t, MonthlyCost: c})
	}
	return out, nil
}

func (b *fakeBackend) UpsertTierCost(_ context.Context, cost *domain.TierCost) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tierCosts[cost.Tier] = cost.MonthlyCost
	return nil
}

// --- Fixtures ---

var testNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func customer(id, name string, tier domain.Tier, monthly string, due string) domain.Customer {
	return domain.Customer{
		ID:             id,
		ExternalCode:   "CLI-" + id,
		Name:           name,
		Phone:          "(11) 98888-7777",
		Tier:           tier,
		MonthlyPrice:   decimal.RequireFromString(monthly),
		QuarterlyPrice: decimal.RequireFromString(monthly).Mul(decimal.NewFromInt(3)),
		DueDate:        domain.MustParseDate(due),
		Status:         domain.StatusAtivo,
		CreatedOn:      domain.MustParseDate("2025-01-01"),
	}
}

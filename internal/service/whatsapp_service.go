package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/port"
)

var whatsappTracer = otel.Tracer("service/whatsapp")

const waBaseURL = "https://wa.me/"

// WhatsappConfigReader is the part of SettingsService used to render reminders.
type WhatsappConfigReader interface {
	GetWhatsappConfig(ctx context.Context) (*domain.WhatsappConfig, error)
}

// WhatsappService renders reminder messages and wa.me links.
type WhatsappService struct {
	customers port.CustomerStore
	settings  WhatsappConfigReader
	clock     port.Clock
	logger    *zap.Logger
}

func NewWhatsappService(customers port.CustomerStore, settings WhatsappConfigReader, clock port.Clock, logger *zap.Logger) *WhatsappService {
	return &WhatsappService{customers: customers, settings: settings, clock: clock, logger: logger}
}

// Link builds the reminder link of one customer.
func (s *WhatsappService) Link(ctx context.Context, id string) (*domain.WhatsappLink, error) {
	ctx, span := whatsappTracer.Start(ctx, "WhatsappService.Link")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	c, err := s.customers.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.GetWhatsappConfig(ctx)
	if err != nil {
		return nil, err
	}
	return BuildLink(*c, cfg, s.clock.Today())
}

// BulkLinks builds links for a selection. Unknown ids and customers with no
// usable phone are reported instead of failing the batch.
func (s *WhatsappService) BulkLinks(ctx context.Context, ids []string) (*domain.BulkWhatsappResult, error) {
	ctx, span := whatsappTracer.Start(ctx, "WhatsappService.BulkLinks")
	defer span.End()
	span.SetAttributes(attribute.Int("customers.requested", len(ids)))

	if len(ids) == 0 {
		return nil, &domain.ErrValidation{Field: "ids", Message: "selecione ao menos um cliente"}
	}

	customers, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.GetWhatsappConfig(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		byID[c.ID] = c
	}

	today := s.clock.Today()
	res := &domain.BulkWhatsappResult{Links: []domain.WhatsappLink{}}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		c, ok := byID[id]
		if !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		link, err := BuildLink(c, cfg, today)
		if err != nil {
			res.NoPhone = append(res.NoPhone, id)
			continue
		}
		res.Links = append(res.Links, *link)
	}

	desc := fmt.Sprintf("%d mensagens preparadas", len(res.Links))
	if skipped := len(res.Missing) + len(res.NoPhone); skipped > 0 {
		desc += fmt.Sprintf(", %d ignoradas", skipped)
		s.logger.Warn("bulk whatsapp skipped customers",
			zap.Strings("missing", res.Missing),
			zap.Strings("no_phone", res.NoPhone),
		)
	}
	res.Notice = domain.NewNotice("WhatsApp", desc)
	return res, nil
}

// Preview renders a template against a real customer, or against a sample
// one when no customer id is given. Fields set in req override the stored
// configuration.
func (s *WhatsappService) Preview(ctx context.Context, req *domain.PreviewRequest) (*domain.WhatsappLink, error) {
	ctx, span := whatsappTracer.Start(ctx, "WhatsappService.Preview")
	defer span.End()

	cfg, err := s.settings.GetWhatsappConfig(ctx)
	if err != nil {
		return nil, err
	}
	merged := *cfg
	if req.Template != nil {
		if strings.TrimSpace(*req.Template) == "" {
			return nil, &domain.ErrValidation{Field: "mensagem_padrao", Message: "A mensagem padrão não pode estar vazia"}
		}
		merged.MessageTemplate = *req.Template
	}
	if req.AutoSignature != nil {
		merged.AutoSignature = *req.AutoSignature
	}
	if req.Signature != nil {
		merged.Signature = req.Signature
	}

	today := s.clock.Today()
	var c domain.Customer
	if req.CustomerID != "" {
		got, err := s.customers.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return nil, err
		}
		c = *got
	} else {
		c = sampleCustomer(today)
	}

	msg := RenderMessage(&merged, c, today)
	link := &domain.WhatsappLink{CustomerID: c.ID, Name: c.Name, Message: msg}
	if phone := NormalizePhone(c.Phone); phone != "" {
		link.Phone = phone
		link.URL = waURL(phone, msg)
	}
	return link, nil
}

// ============================================================
// Rendering
// ============================================================

// RenderMessage fills the template placeholders and appends the signature
// on a new line when enabled and non-empty.
func RenderMessage(cfg *domain.WhatsappConfig, c domain.Customer, today domain.Date) string {
	tmpl := cfg.MessageTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultWhatsappTemplate
	}
	r := strings.NewReplacer(
		"{nome}", c.Name,
		"{servidor}", string(c.Tier),
		"{plano_mensal}", formatMoney(c.MonthlyPrice),
		"{plano_trimestral}", formatMoney(c.QuarterlyPrice),
		"{data_vencimento}", c.DueDate.Format(domain.DisplayDateLayout),
		"{status_vencimento}", lifecycle.DueLabel(c.DueDate, today),
		"{dias_vencimento}", strconv.Itoa(lifecycle.DaysUntilDue(c.DueDate, today)),
	)
	msg := r.Replace(tmpl)
	if cfg.AutoSignature && cfg.Signature != nil && strings.TrimSpace(*cfg.Signature) != "" {
		msg += "\n" + *cfg.Signature
	}
	return msg
}

// NormalizePhone keeps digits only. Brazilian national numbers (10 or 11
// digits) get the 55 country prefix.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}

// BuildLink renders the message and the wa.me URL of a customer.
func BuildLink(c domain.Customer, cfg *domain.WhatsappConfig, today domain.Date) (*domain.WhatsappLink, error) {
	phone := NormalizePhone(c.Phone)
	if phone == "" {
		return nil, &domain.ErrValidation{Field: "telefone", Message: fmt.Sprintf("cliente %s não possui telefone", c.Name)}
	}
	msg := RenderMessage(cfg, c, today)
	return &domain.WhatsappLink{
		CustomerID: c.ID,
		Name:       c.Name,
		Phone:      phone,
		Message:    msg,
		URL:        waURL(phone, msg),
	}, nil
}

func waURL(phone, msg string) string {
	return waBaseURL + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}

// formatMoney renders 35.5 as "35,50".
func formatMoney(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func sampleCustomer(today domain.Date) domain.Customer {
	return domain.Customer{
		ExternalCode:   "CLI-EXEMPLO",
		Name:           "João Silva",
		Phone:          "11999999999",
		Tier:           domain.TierP2X,
		MonthlyPrice:   decimal.RequireFromString("35.00"),
		QuarterlyPrice: decimal.RequireFromString("90.00"),
		DueDate:        today.AddDays(5),
		Status:         domain.StatusAtivo,
		CreatedOn:      domain.DateOf(time.Date(today.Time().Year(), 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

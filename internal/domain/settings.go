package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// WhatsApp settings (configuracoes_whatsapp)
// ============================================================

// WhatsappConfig is the singleton reminder template row.
type WhatsappConfig struct {
	ID              string     `json:"id"`
	MessageTemplate string     `json:"mensagem_padrao"`
	AutoSignature   bool       `json:"assinatura_automatica"`
	Signature       *string    `json:"assinatura"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// WhatsappConfigPatch is a partial update of the template row.
type WhatsappConfigPatch struct {
	MessageTemplate *string `json:"mensagem_padrao,omitempty"`
	AutoSignature   *bool   `json:"assinatura_automatica,omitempty"`
	Signature       *string `json:"assinatura,omitempty"`
}

func (p *WhatsappConfigPatch) Validate() error {
	if p.MessageTemplate != nil && strings.TrimSpace(*p.MessageTemplate) == "" {
		return &ErrValidation{Field: "mensagem_padrao", Message: "A mensagem padrão não pode estar vazia"}
	}
	return nil
}

// Columns flattens the patch. An empty signature is stored as NULL.
func (p *WhatsappConfigPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.MessageTemplate != nil {
		cols["mensagem_padrao"] = *p.MessageTemplate
	}
	if p.AutoSignature != nil {
		cols["assinatura_automatica"] = *p.AutoSignature
	}
	if p.Signature != nil {
		if *p.Signature == "" {
			cols["assinatura"] = nil
		} else {
			cols["assinatura"] = *p.Signature
		}
	}
	return cols
}

// WhatsappLink is a wa.me deep link with the rendered message.
type WhatsappLink struct {
	CustomerID string `json:"cliente_id"`
	Name       string `json:"nome"`
	Phone      string `json:"telefone"`
	Message    string `json:"mensagem"`
	URL        string `json:"url"`
}

// BulkWhatsappResult answers POST /v1/customers/whatsapp.
type BulkWhatsappResult struct {
	Links   []WhatsappLink `json:"links"`
	Missing []string       `json:"nao_encontrados,omitempty"`
	NoPhone []string       `json:"sem_telefone,omitempty"`
	Notice  Notice         `json:"notice"`
}

// PreviewRequest renders the template against a customer, or a sample one
// when CustomerID is empty. Template overrides the stored template when set.
type PreviewRequest struct {
	CustomerID    string  `json:"cliente_id"`
	Template      *string `json:"mensagem_padrao"`
	AutoSignature *bool   `json:"assinatura_automatica"`
	Signature     *string `json:"assinatura"`
}

// ============================================================
// Tier costs (configuracoes_servidor)
// ============================================================

// TierCost is the monthly operating cost of one tier.
type TierCost struct {
	ID          string          `json:"id,omitempty"`
	Tier        Tier            `json:"tipo_servidor"`
	MonthlyCost decimal.Decimal `json:"preco_mensal"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// TierCosts maps each tier to its monthly cost.
type TierCosts map[Tier]decimal.Decimal

// DefaultTierCosts are used for tiers with no configuracoes_servidor row.
func DefaultTierCosts() TierCosts {
	return TierCosts{
		TierP2X:      decimal.RequireFromString("6.00"),
		TierP2Server: decimal.RequireFromString("10.00"),
		TierCPlayer:  decimal.RequireFromString("8.00"),
		TierRTV:      decimal.RequireFromString("8.00"),
		TierRTVVODs:  decimal.Zero,
	}
}

// Cost returns the tier cost, zero for unknown tiers.
func (c TierCosts) Cost(t Tier) decimal.Decimal {
	if v, ok := c[t]; ok {
		return v
	}
	return decimal.Zero
}

// MergeTierCosts overlays stored rows on the defaults.
func MergeTierCosts(rows []TierCost) TierCosts {
	costs := DefaultTierCosts()
	for _, r := range rows {
		costs[r.Tier] = r.MonthlyCost
	}
	return costs
}

// List returns the costs in display order.
func (c TierCosts) List() []TierCost {
	out := make([]TierCost, 0, len(Tiers))
	for _, t := range Tiers {
		out = append(out, TierCost{Tier: t, MonthlyCost: c.Cost(t)})
	}
	return out
}

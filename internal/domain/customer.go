package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Tier (servidor)
// ============================================================

// Tier is the service plan category of a customer (column servidor).
type Tier string

const (
	TierP2X      Tier = "P2X"
	TierP2Server Tier = "P2_SERVER"
	TierCPlayer  Tier = "CPLAYER"
	TierRTV      Tier = "RTV"
	TierRTVVODs  Tier = "RTV-VODs"
)

// Tiers lists every tier accepted by the tipo_servidor enum, in display order.
var Tiers = []Tier{TierP2X, TierP2Server, TierCPlayer, TierRTV, TierRTVVODs}

// ParseTier rejects anything outside the tipo_servidor enum.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for _, t := range Tiers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &ErrValidation{Field: "servidor", Message: fmt.Sprintf("servidor inválido: %q", s)}
}

// ============================================================
// Status
// ============================================================

// Status is the derived subscription status. The value stored in the
// clientes table is only a display cache.
type Status string

const (
	StatusAtivo   Status = "Ativo"
	StatusVencido Status = "Vencido"
)

// ParseStatus accepts exactly the status_cliente enum values.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(s)) {
	case StatusAtivo:
		return StatusAtivo, nil
	case StatusVencido:
		return StatusVencido, nil
	}
	return "", &ErrValidation{Field: "status", Message: fmt.Sprintf("status inválido: %q", s)}
}

// ============================================================
// Customer (clientes)
// ============================================================

// Customer is one row of the clientes table.
type Customer struct {
	ID             string          `json:"id"`
	ExternalCode   string          `json:"id_client"`
	Name           string          `json:"nome"`
	Phone          string          `json:"telefone"`
	Tier           Tier            `json:"servidor"`
	MonthlyPrice   decimal.Decimal `json:"plano_mensal"`
	QuarterlyPrice decimal.Decimal `json:"plano_trimestral"`
	DueDate        Date            `json:"data_vencimento"`
	Status         Status          `json:"status"`
	CreatedOn      Date            `json:"conta_criada"`
	Note           string          `json:"observacao,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// ValidateStored checks the enum columns of a row read from the backend and
// canonicalizes them. An empty status is accepted; it is re-derived anyway.
// The error is a plain one: bad stored data is a backend fault, not a 400.
func (c *Customer) ValidateStored() error {
	tier, err := ParseTier(string(c.Tier))
	if err != nil {
		return fmt.Errorf("cliente %s: %v", c.ID, err)
	}
	c.Tier = tier
	if c.Status != "" {
		st, err := ParseStatus(string(c.Status))
		if err != nil {
			return fmt.Errorf("cliente %s: %v", c.ID, err)
		}
		c.Status = st
	}
	return nil
}

// CustomerInput carries the fields of a new customer (API form or CSV row).
type CustomerInput struct {
	ExternalCode   string          `json:"id_client"`
	Name           string          `json:"nome"`
	Phone          string          `json:"telefone"`
	Tier           Tier            `json:"servidor"`
	MonthlyPrice   decimal.Decimal `json:"plano_mensal"`
	QuarterlyPrice decimal.Decimal `json:"plano_trimestral"`
	DueDate        Date            `json:"data_vencimento"`
	Status         Status          `json:"status,omitempty"`
	CreatedOn      Date            `json:"conta_criada"`
	Note           string          `json:"observacao,omitempty"`
}

// Validate checks the required fields before any backend call.
func (in *CustomerInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "nome", Message: "nome é obrigatório"}
	}
	if in.DueDate.IsZero() {
		return &ErrValidation{Field: "data_vencimento", Message: "data de vencimento é obrigatória"}
	}
	if _, err := ParseTier(string(in.Tier)); err != nil {
		return err
	}
	if in.MonthlyPrice.IsNegative() {
		return &ErrValidation{Field: "plano_mensal", Message: "valor não pode ser negativo"}
	}
	if in.QuarterlyPrice.IsNegative() {
		return &ErrValidation{Field: "plano_trimestral", Message: "valor não pode ser negativo"}
	}
	return nil
}

// ValidateForm is Validate plus the fields the operator form requires. CSV
// imports go through Validate only, so rows without a phone still load.
func (in *CustomerInput) ValidateForm() error {
	if err := in.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Phone) == "" {
		return &ErrValidation{Field: "telefone", Message: "telefone é obrigatório"}
	}
	return nil
}

// CustomerPatch is a partial update; nil fields are left untouched.
type CustomerPatch struct {
	ExternalCode   *string          `json:"id_client,omitempty"`
	Name           *string          `json:"nome,omitempty"`
	Phone          *string          `json:"telefone,omitempty"`
	Tier           *Tier            `json:"servidor,omitempty"`
	MonthlyPrice   *decimal.Decimal `json:"plano_mensal,omitempty"`
	QuarterlyPrice *decimal.Decimal `json:"plano_trimestral,omitempty"`
	DueDate        *Date            `json:"data_vencimento,omitempty"`
	Status         *Status          `json:"status,omitempty"`
	CreatedOn      *Date            `json:"conta_criada,omitempty"`
	Note           *string          `json:"observacao,omitempty"`
}

// Validate checks the fields that are present.
func (p *CustomerPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ErrValidation{Field: "nome", Message: "nome é obrigatório"}
	}
	if p.Phone != nil && strings.TrimSpace(*p.Phone) == "" {
		return &ErrValidation{Field: "telefone", Message: "telefone é obrigatório"}
	}
	if p.Tier != nil {
		if _, err := ParseTier(string(*p.Tier)); err != nil {
			return err
		}
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		return &ErrValidation{Field: "data_vencimento", Message: "data de vencimento é obrigatória"}
	}
	if p.MonthlyPrice != nil && p.MonthlyPrice.IsNegative() {
		return &ErrValidation{Field: "plano_mensal", Message: "valor não pode ser negativo"}
	}
	if p.QuarterlyPrice != nil && p.QuarterlyPrice.IsNegative() {
		return &ErrValidation{Field: "plano_trimestral", Message: "valor não pode ser negativo"}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p *CustomerPatch) IsEmpty() bool {
	return p.ExternalCode == nil && p.Name == nil && p.Phone == nil && p.Tier == nil &&
		p.MonthlyPrice == nil && p.QuarterlyPrice == nil && p.DueDate == nil &&
		p.Status == nil && p.CreatedOn == nil && p.Note == nil
}

// Columns flattens the patch into column -> value pairs for the stores.
// Dates are rendered as YYYY-MM-DD strings.
func (p *CustomerPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.ExternalCode != nil {
		cols["id_client"] = *p.ExternalCode
	}
	if p.Name != nil {
		cols["nome"] = *p.Name
	}
	if p.Phone != nil {
		cols["telefone"] = *p.Phone
	}
	if p.Tier != nil {
		cols["servidor"] = string(*p.Tier)
	}
	if p.MonthlyPrice != nil {
		cols["plano_mensal"] = *p.MonthlyPrice
	}
	if p.QuarterlyPrice != nil {
		cols["plano_trimestral"] = *p.QuarterlyPrice
	}
	if p.DueDate != nil {
		cols["data_vencimento"] = p.DueDate.String()
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.CreatedOn != nil {
		cols["conta_criada"] = p.CreatedOn.String()
	}
	if p.Note != nil {
		cols["observacao"] = *p.Note
	}
	return cols
}

// CustomerView is a customer plus the values derived from "today".
type CustomerView struct {
	Customer
	CurrentStatus Status          `json:"status_atual"`
	DaysUntilDue  int             `json:"dias_vencimento"`
	DaysActive    int             `json:"dias_ativo"`
	TierCost      decimal.Decimal `json:"custo_servidor"`
}

// CustomerList is the last successfully fetched list, derived for a given day.
type CustomerList struct {
	Customers   []CustomerView `json:"clientes"`
	Total       int            `json:"total"`
	Stale       bool           `json:"stale"`
	RefreshedAt time.Time      `json:"refreshed_at"`
	Notice      *Notice        `json:"notice,omitempty"`
}

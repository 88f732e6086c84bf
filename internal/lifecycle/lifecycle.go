// Package lifecycle derives subscription state from dates.
//
// Every function takes an explicit "today"; nothing here reads the wall clock.
package lifecycle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// Status is Ativo while the due date has not passed (due >= today).
func Status(due, today domain.Date) domain.Status {
	if due.Before(today) {
		return domain.StatusVencido
	}
	return domain.StatusAtivo
}

// DaysUntilDue is due - today in whole days. Negative means overdue.
func DaysUntilDue(due, today domain.Date) int {
	return today.DaysUntil(due)
}

// DaysActive is today - created in whole days.
func DaysActive(created, today domain.Date) int {
	if created.IsZero() {
		return 0
	}
	return created.DaysUntil(today)
}

// Renew rolls the due date forward by months. An expired subscription
// restarts from today instead of accumulating from the old due date.
func Renew(due domain.Date, months int, today domain.Date) (domain.Date, error) {
	if months < 1 {
		return domain.Date{}, &domain.ErrValidation{
			Field:   "meses",
			Message: fmt.Sprintf("quantidade de meses deve ser >= 1, recebido %d", months),
		}
	}
	base := due
	if due.IsZero() || due.Before(today) {
		base = today
	}
	return base.AddMonths(months), nil
}

// Derive builds the read model of a customer for the given day.
func Derive(c domain.Customer, today domain.Date, costs domain.TierCosts) domain.CustomerView {
	return domain.CustomerView{
		Customer:      c,
		CurrentStatus: Status(c.DueDate, today),
		DaysUntilDue:  DaysUntilDue(c.DueDate, today),
		DaysActive:    DaysActive(c.CreatedOn, today),
		TierCost:      costs.Cost(c.Tier),
	}
}

// DeriveAll maps Derive over a list, preserving order.
func DeriveAll(cs []domain.Customer, today domain.Date, costs domain.TierCosts) []domain.CustomerView {
	out := make([]domain.CustomerView, 0, len(cs))
	for _, c := range cs {
		out = append(out, Derive(c, today, costs))
	}
	return out
}

// DueLabel renders the {status_vencimento} placeholder.
func DueLabel(due, today domain.Date) string {
	days := DaysUntilDue(due, today)
	if days < 0 {
		return "venceu"
	}
	return fmt.Sprintf("vence em %d dias", days)
}

// Totals are the money rollups of the dashboard.
type Totals struct {
	Active  int
	Expired int
	Revenue decimal.Decimal
	Cost    decimal.Decimal
}

// Profit is revenue minus server cost.
func (t Totals) Profit() decimal.Decimal { return t.Revenue.Sub(t.Cost) }

// Summarize sums the monthly price of active customers and the tier cost of
// every customer.
func Summarize(views []domain.CustomerView) Totals {
	t := Totals{Revenue: decimal.Zero, Cost: decimal.Zero}
	for _, v := range views {
		if v.CurrentStatus == domain.StatusAtivo {
			t.Active++
			t.Revenue = t.Revenue.Add(v.MonthlyPrice)
		} else {
			t.Expired++
		}
		t.Cost = t.Cost.Add(v.TierCost)
	}
	return t
}

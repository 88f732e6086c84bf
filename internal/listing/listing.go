// Package listing applies the customer list view-state (search, filters and
// sort) to a slice of derived customers.
package listing

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// All is the filter value meaning "no filter".
const All = "Todos"

// Direction of the sort.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sortable fields. Anything else falls back to nome.
const (
	FieldName           = "nome"
	FieldExternalCode   = "id_client"
	FieldPhone          = "telefone"
	FieldTier           = "servidor"
	FieldMonthlyPrice   = "plano_mensal"
	FieldQuarterlyPrice = "plano_trimestral"
	FieldDueDate        = "data_vencimento"
	FieldStatus         = "status"
	FieldCreatedOn      = "conta_criada"
	FieldNote           = "observacao"
	FieldDaysUntilDue   = "dias_vencimento"
)

// Query is an immutable view-state. The zero value lists everything by name.
type Query struct {
	Search    string
	Status    string // Ativo, Vencido or Todos
	Tier      string // a tier or Todos
	SortField string
	Direction Direction
}

// ParseQuery reads busca, status, servidor, ordenar and direcao. Filter
// values are validated; unknown sort fields fall back to nome.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Search:    strings.TrimSpace(v.Get("busca")),
		Status:    All,
		Tier:      All,
		SortField: FieldName,
		Direction: Asc,
	}
	if s := strings.TrimSpace(v.Get("status")); s != "" && s != All {
		st, err := domain.ParseStatus(s)
		if err != nil {
			return Query{}, err
		}
		q.Status = string(st)
	}
	if s := strings.TrimSpace(v.Get("servidor")); s != "" && s != All {
		tier, err := domain.ParseTier(s)
		if err != nil {
			return Query{}, err
		}
		q.Tier = string(tier)
	}
	if f := strings.TrimSpace(v.Get("ordenar")); f != "" && isSortable(f) {
		q.SortField = f
	}
	if strings.EqualFold(v.Get("direcao"), string(Desc)) {
		q.Direction = Desc
	}
	return q, nil
}

// With* return modified copies.
func (q Query) WithSearch(s string) Query { q.Search = s; return q }
func (q Query) WithStatus(s string) Query { q.Status = s; return q }
func (q Query) WithTier(s string) Query   { q.Tier = s; return q }

// WithSort sets the sort field and direction.
func (q Query) WithSort(field string, dir Direction) Query {
	q.SortField, q.Direction = field, dir
	return q
}

// Values renders the query back to URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("busca", q.Search)
	}
	if q.Status != "" && q.Status != All {
		v.Set("status", q.Status)
	}
	if q.Tier != "" && q.Tier != All {
		v.Set("servidor", q.Tier)
	}
	if q.SortField != "" {
		v.Set("ordenar", q.SortField)
	}
	if q.Direction != "" {
		v.Set("direcao", string(q.Direction))
	}
	return v
}

// Apply filters and sorts. The input slice is not modified.
func Apply(views []domain.CustomerView, q Query) []domain.CustomerView {
	out := make([]domain.CustomerView, 0, len(views))
	for _, v := range views {
		if matches(v, q) {
			out = append(out, v)
		}
	}

	field := q.SortField
	if field == "" {
		field = FieldName
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], field)
		if q.Direction == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func matches(v domain.CustomerView, q Query) bool {
	if q.Status != "" && q.Status != All && string(v.CurrentStatus) != q.Status {
		return false
	}
	if q.Tier != "" && q.Tier != All && string(v.Tier) != q.Tier {
		return false
	}
	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(v.Name), term) ||
		strings.Contains(v.Phone, q.Search) ||
		strings.Contains(strings.ToLower(v.ExternalCode), term)
}

func isSortable(f string) bool {
	switch f {
	case FieldName, FieldExternalCode, FieldPhone, FieldTier, FieldMonthlyPrice,
		FieldQuarterlyPrice, FieldDueDate, FieldStatus, FieldCreatedOn, FieldNote,
		FieldDaysUntilDue:
		return true
	}
	return false
}

// compare returns -1, 0 or +1. Dates compare chronologically, money
// numerically and strings case-insensitively.
func compare(a, b domain.CustomerView, field string) int {
	switch field {
	case FieldDueDate:
		return a.DueDate.Compare(b.DueDate)
	case FieldCreatedOn:
		return a.CreatedOn.Compare(b.CreatedOn)
	case FieldMonthlyPrice:
		return a.MonthlyPrice.Cmp(b.MonthlyPrice)
	case FieldQuarterlyPrice:
		return a.QuarterlyPrice.Cmp(b.QuarterlyPrice)
	case FieldDaysUntilDue:
		return cmpInt(a.DaysUntilDue, b.DaysUntilDue)
	case FieldExternalCode:
		return cmpFold(a.ExternalCode, b.ExternalCode)
	case FieldPhone:
		return cmpFold(a.Phone, b.Phone)
	case FieldTier:
		return cmpFold(string(a.Tier), string(b.Tier))
	case FieldStatus:
		return cmpFold(string(a.CurrentStatus), string(b.CurrentStatus))
	case FieldNote:
		return cmpFold(a.Note, b.Note)
	default:
		return cmpFold(a.Name, b.Name)
	}
}

func cmpFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

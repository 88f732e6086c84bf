package listing_test

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/listing"
)

func fixtures() []domain.CustomerView {
	d := domain.MustParseDate
	cs := []domain.Customer{
		{ID: "1", ExternalCode: "CLI-001", Name: "Bruno", Phone: "11988887777", Tier: domain.TierP2X, MonthlyPrice: decimal.NewFromInt(30), DueDate: d("2025-07-01")},
		{ID: "2", ExternalCode: "CLI-002", Name: "ana", Phone: "21977776666", Tier: domain.TierRTV, MonthlyPrice: decimal.NewFromInt(25), DueDate: d("2025-05-01")},
		{ID: "3", ExternalCode: "vip-9", Name: "Carla", Phone: "31966665555", Tier: domain.TierP2X, MonthlyPrice: decimal.NewFromInt(40), DueDate: d("2025-06-20")},
		{ID: "4", ExternalCode: "CLI-004", Name: "Davi", Phone: "", Tier: domain.TierCPlayer, MonthlyPrice: decimal.NewFromInt(35), DueDate: d("2025-06-01")},
	}
	return lifecycle.DeriveAll(cs, d("2025-06-15"), domain.DefaultTierCosts())
}

func ids(vs []domain.CustomerView) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestApply_DefaultSortsByNameCaseInsensitive(t *testing.T) {
	got := listing.Apply(fixtures(), listing.Query{})
	assert.Equal(t, []string{"2", "1", "3", "4"}, ids(got))
}

func TestApply_TierFilter(t *testing.T) {
	all := fixtures()

	got := listing.Apply(all, listing.Query{Tier: "P2X"})
	require.Len(t, got, 2)
	for _, v := range got {
		assert.Equal(t, domain.TierP2X, v.Tier)
	}

	assert.Len(t, listing.Apply(all, listing.Query{Tier: listing.All}), len(all))
}

func TestApply_StatusFilterUsesDerivedStatus(t *testing.T) {
	got := listing.Apply(fixtures(), listing.Query{Status: "Vencido"})
	assert.ElementsMatch(t, []string{"2", "4"}, ids(got))
}

func TestApply_Search(t *testing.T) {
	all := fixtures()
	assert.Equal(t, []string{"2"}, ids(listing.Apply(all, listing.Query{Search: "ANA"})))
	assert.Equal(t, []string{"3"}, ids(listing.Apply(all, listing.Query{Search: "9666"})))
	assert.Equal(t, []string{"3"}, ids(listing.Apply(all, listing.Query{Search: "VIP"})))
	assert.Empty(t, listing.Apply(all, listing.Query{Search: "zzz"}))
}

func TestApply_DueDateAscThenDescReverses(t *testing.T) {
	all := fixtures()
	q := listing.Query{}.WithSort(listing.FieldDueDate, listing.Asc)
	asc := ids(listing.Apply(all, q))
	desc := ids(listing.Apply(all, q.WithSort(listing.FieldDueDate, listing.Desc)))

	assert.Equal(t, []string{"2", "4", "3", "1"}, asc)
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestApply_MoneySortIsNumeric(t *testing.T) {
	got := listing.Apply(fixtures(), listing.Query{SortField: listing.FieldMonthlyPrice, Direction: listing.Desc})
	assert.Equal(t, []string{"3", "4", "1", "2"}, ids(got))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	all := fixtures()
	before := ids(all)
	_ = listing.Apply(all, listing.Query{SortField: listing.FieldDueDate, Direction: listing.Desc})
	assert.Equal(t, before, ids(all))
}

func TestParseQuery(t *testing.T) {
	q, err := listing.ParseQuery(url.Values{
		"busca":    {" ana "},
		"status":   {"Todos"},
		"servidor": {"RTV-VODs"},
		"ordenar":  {"data_vencimento"},
		"direcao":  {"DESC"},
	})
	require.NoError(t, err)
	assert.Equal(t, listing.Query{Search: "ana", Status: listing.All, Tier: "RTV-VODs", SortField: "data_vencimento", Direction: listing.Desc}, q)

	q, err = listing.ParseQuery(url.Values{"ordenar": {"drop table"}})
	require.NoError(t, err)
	assert.Equal(t, listing.FieldName, q.SortField)

	_, err = listing.ParseQuery(url.Values{"servidor": {"XYZ"}})
	assert.Error(t, err)
	_, err = listing.ParseQuery(url.Values{"status": {"ativo"}})
	assert.Error(t, err)
}

func TestQuery_ValuesRoundTrip(t *testing.T) {
	q := listing.Query{Search: "x", Status: "Ativo", Tier: "P2X", SortField: "nome", Direction: listing.Asc}
	back, err := listing.ParseQuery(q.Values())
	require.NoError(t, err)
	assert.Equal(t, q, back)
}

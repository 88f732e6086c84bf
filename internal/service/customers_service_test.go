package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/cache"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/listing"
	"github.com/tekinformatica/painel-go/internal/service"
)

func newCustomerService(t *testing.T, b *fakeBackend) (*service.CustomerService, *observability.Metrics) {
	t.Helper()
	c := cache.New[domain.TierCosts](time.Minute)
	t.Cleanup(c.Stop)
	settings := service.NewSettingsService(b, c, zap.NewNop())
	m := observability.NewMetrics()
	svc := service.NewCustomerService(b, b, settings, lifecycle.FixedClock{At: testNow}, m, zap.NewNop())
	return svc, m
}

// --- Renew ---

func TestRenew_ActiveAccumulatesFromDueDate(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	res, err := svc.Renew(context.Background(), "1", 3)
	require.NoError(t, err)

	assert.Equal(t, "2025-08-01", res.DueBefore.String())
	assert.Equal(t, "2025-11-01", res.DueAfter.String())
	assert.Equal(t, "2025-11-01", res.Customer.DueDate.String())
	assert.Equal(t, domain.StatusAtivo, res.Customer.CurrentStatus)
	assert.Equal(t, "Renovação realizada", res.Notice.Title)
}

func TestRenew_ExpiredRestartsFromToday(t *testing.T) {
	c := customer("1", "Ana", domain.TierP2X, "35", "2024-01-01")
	c.Status = domain.StatusVencido
	b := newFakeBackend(c)
	svc, _ := newCustomerService(t, b)

	res, err := svc.Renew(context.Background(), "1", 1)
	require.NoError(t, err)

	assert.Equal(t, "2025-07-15", res.DueAfter.String())
	stored := b.customers["1"]
	assert.Equal(t, "2025-07-15", stored.DueDate.String())
	assert.Equal(t, domain.StatusAtivo, stored.Status)
}

func TestRenew_AppendsExactlyOneLog(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierCPlayer, "35", "2025-08-01"))
	svc, m := newCustomerService(t, b)

	_, err := svc.Renew(context.Background(), "1", 2)
	require.NoError(t, err)

	require.Len(t, b.logs, 1)
	log := b.logs[0]
	assert.Equal(t, "1", log.CustomerID)
	assert.Equal(t, "Ana", log.CustomerName)
	assert.Equal(t, domain.TierCPlayer, log.Tier)
	assert.Equal(t, "2025-08-01", log.DueBefore.String())
	assert.Equal(t, "2025-10-01", log.DueAfter.String())
	assert.Equal(t, 2, log.MonthsAdded)
	assert.Equal(t, b.customers["1"].DueDate, log.DueAfter)
	assert.Equal(t, int64(1), m.GetOpsSnapshot().Renewals)
}

func TestRenew_PartialWhenLogAppendFails(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	b.createLogErr = errors.New("insert failed")
	svc, m := newCustomerService(t, b)

	_, err := svc.Renew(context.Background(), "1", 1)

	var partial *domain.ErrPartialRenewal
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "1", partial.CustomerID)
	assert.Equal(t, "2025-09-01", partial.DueAfter.String())
	// update is not rolled back
	assert.Equal(t, "2025-09-01", b.customers["1"].DueDate.String())
	assert.Empty(t, b.logs)
	assert.Equal(t, int64(0), m.GetOpsSnapshot().Renewals)
}

func TestRenew_UpdateFailureWritesNoLog(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	b.updateErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("boom")}
	svc, _ := newCustomerService(t, b)

	_, err := svc.Renew(context.Background(), "1", 1)

	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)
	assert.Empty(t, b.logs)
}

func TestRenew_RejectsMonthsBelowOne(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	for _, months := range []int{0, -1} {
		_, err := svc.Renew(context.Background(), "1", months)
		var ve *domain.ErrValidation
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "meses", ve.Field)
	}
	assert.Empty(t, b.updates)
	assert.Empty(t, b.logs)
}

func TestRenew_UnknownCustomer(t *testing.T) {
	svc, _ := newCustomerService(t, newFakeBackend())

	_, err := svc.Renew(context.Background(), "nope", 1)

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
}

// --- List ---

func TestList_FiltersAndSorts(t *testing.T) {
	b := newFakeBackend(
		customer("1", "Carla", domain.TierP2X, "35", "2025-07-01"),
		customer("2", "ana", domain.TierRTV, "40", "2025-06-20"),
		customer("3", "Bruno", domain.TierP2X, "30", "2025-05-01"),
	)
	svc, _ := newCustomerService(t, b)
	ctx := context.Background()

	all, err := svc.List(ctx, listing.Query{})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	assert.Equal(t, []string{"ana", "Bruno", "Carla"}, names(all.Customers))

	p2x, err := svc.List(ctx, listing.Query{}.WithTier("P2X"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno", "Carla"}, names(p2x.Customers))

	expired, err := svc.List(ctx, listing.Query{}.WithStatus("Vencido"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bruno"}, names(expired.Customers))

	byDue, err := svc.List(ctx, listing.Query{}.WithSort(listing.FieldDueDate, listing.Desc))
	require.NoError(t, err)
	assert.Equal(t, []string{"Carla", "ana", "Bruno"}, names(byDue.Customers))
}

func TestList_KeepsSnapshotWhenRefreshFails(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, m := newCustomerService(t, b)
	ctx := context.Background()

	first, err := svc.List(ctx, listing.Query{})
	require.NoError(t, err)
	assert.False(t, first.Stale)
	assert.Nil(t, first.Notice)

	b.listErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("connection refused")}
	second, err := svc.List(ctx, listing.Query{})
	require.NoError(t, err)

	assert.True(t, second.Stale)
	require.NotNil(t, second.Notice)
	assert.Equal(t, "destructive", second.Notice.Variant)
	assert.Contains(t, second.Notice.Description, "connection refused")
	assert.Equal(t, names(first.Customers), names(second.Customers))
	assert.True(t, m.GetOpsSnapshot().SnapshotStale)

	stale, _, count := svc.SnapshotInfo()
	assert.True(t, stale)
	assert.Equal(t, 1, count)

	b.listErr = nil
	third, err := svc.List(ctx, listing.Query{})
	require.NoError(t, err)
	assert.False(t, third.Stale)
}

func TestList_FailsWithoutSnapshot(t *testing.T) {
	b := newFakeBackend()
	b.listErr = errors.New("down")
	svc, _ := newCustomerService(t, b)

	_, err := svc.List(context.Background(), listing.Query{})
	assert.Error(t, err)
}

func TestList_DerivesTierCost(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2Server, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	list, err := svc.List(context.Background(), listing.Query{})
	require.NoError(t, err)
	require.Len(t, list.Customers, 1)

	v := list.Customers[0]
	assert.True(t, v.TierCost.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 47, v.DaysUntilDue)
	assert.Equal(t, domain.StatusAtivo, v.CurrentStatus)
}

// --- Mutations ---

func TestCreate_AppliesDefaultsAndDerivedStatus(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newCustomerService(t, b)

	v, err := svc.Create(context.Background(), &domain.CustomerInput{
		Name:         "Ana",
		Phone:        "11988887777",
		Tier:         domain.TierRTV,
		MonthlyPrice: decimal.RequireFromString("25"),
		DueDate:      domain.MustParseDate("2025-06-01"),
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("CLI-%d", testNow.UnixMilli()), v.ExternalCode)
	assert.Equal(t, "2025-06-15", v.CreatedOn.String())
	assert.Equal(t, domain.StatusVencido, v.Status)
	assert.Equal(t, domain.StatusVencido, v.CurrentStatus)
	assert.Len(t, b.customers, 1)
}

func TestCreate_ValidatesBeforeBackend(t *testing.T) {
	tests := []struct {
		name  string
		in    domain.CustomerInput
		field string
	}{
		{"missing name", domain.CustomerInput{Tier: domain.TierP2X, DueDate: domain.MustParseDate("2025-07-01")}, "nome"},
		{"missing phone", domain.CustomerInput{Name: "Ana", Phone: "  ", Tier: domain.TierP2X, DueDate: domain.MustParseDate("2025-07-01")}, "telefone"},
		{"missing due date", domain.CustomerInput{Name: "Ana", Tier: domain.TierP2X}, "data_vencimento"},
		{"bad tier", domain.CustomerInput{Name: "Ana", Tier: "XPTO", DueDate: domain.MustParseDate("2025-07-01")}, "servidor"},
		{"negative price", domain.CustomerInput{Name: "Ana", Tier: domain.TierP2X, DueDate: domain.MustParseDate("2025-07-01"), MonthlyPrice: decimal.NewFromInt(-1)}, "plano_mensal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			svc, _ := newCustomerService(t, b)

			in := tt.in
			_, err := svc.Create(context.Background(), &in)

			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Empty(t, b.customers)
		})
	}
}

func TestUpdate_DueDateRewritesStatus(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	due := domain.MustParseDate("2025-06-01")
	v, err := svc.Update(context.Background(), "1", &domain.CustomerPatch{DueDate: &due})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusVencido, v.Status)
	require.Len(t, b.updates, 1)
	assert.Equal(t, "Vencido", b.updates[0]["status"])
	assert.Equal(t, "2025-06-01", b.updates[0]["data_vencimento"])
}

func TestUpdate_EmptyPatch(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	_, err := svc.Update(context.Background(), "1", &domain.CustomerPatch{})

	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, b.updates)
}

func TestDelete(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"))
	svc, _ := newCustomerService(t, b)

	require.NoError(t, svc.Delete(context.Background(), "1"))
	assert.Empty(t, b.customers)

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, svc.Delete(context.Background(), "1"), &nf)
}

// --- Import / Export ---

func TestImport_InsertsAllRows(t *testing.T) {
	b := newFakeBackend()
	svc, m := newCustomerService(t, b)

	doc := strings.Join([]string{
		"id_client,nome,telefone,servidor,plano_mensal,plano_trimestral,data_vencimento,status,conta_criada,observacao",
		`A1,"Silva, Ana",11999990000,P2X,"35,50",90,2025-07-01,Vencido,2025-01-01,`,
		`,Bruno,,RTV,abc,,2025-05-01,,,"disse ""oi"""`,
	}, "\n")

	n, err := svc.Import(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), m.GetOpsSnapshot().ImportedCustomers)

	list, err := svc.List(context.Background(), listing.Query{})
	require.NoError(t, err)
	require.Equal(t, 2, list.Total)

	bruno, ana := list.Customers[0], list.Customers[1]
	assert.Equal(t, "Silva, Ana", ana.Name)
	assert.True(t, ana.MonthlyPrice.Equal(decimal.RequireFromString("35.50")))
	// status column is ignored and derived again
	assert.Equal(t, domain.StatusAtivo, ana.Status)
	assert.Equal(t, domain.StatusVencido, bruno.Status)
	assert.True(t, bruno.MonthlyPrice.IsZero())
	assert.Equal(t, `disse "oi"`, bruno.Note)
	assert.True(t, strings.HasPrefix(bruno.ExternalCode, "CLI-"))
}

func TestImport_InvalidRowWritesNothing(t *testing.T) {
	b := newFakeBackend()
	svc, _ := newCustomerService(t, b)

	doc := "id_client,nome,telefone,servidor,plano_mensal,plano_trimestral,data_vencimento,status,conta_criada,observacao\n" +
		"A1,Ana,,P2X,35,90,2025-07-01,,,\n" +
		"A2,Bruno,,NOPE,35,90,2025-07-01,,,\n"

	_, err := svc.Import(context.Background(), strings.NewReader(doc))

	var ve *domain.ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 3, ve.Line)
	assert.Empty(t, b.customers)
}

func TestImport_BackendFailure(t *testing.T) {
	b := newFakeBackend()
	b.bulkErr = &domain.ErrConflict{Message: "duplicate key"}
	svc, _ := newCustomerService(t, b)

	doc := "id_client,nome,telefone,servidor,plano_mensal,plano_trimestral,data_vencimento,status,conta_criada,observacao\n" +
		"A1,Ana,,P2X,35,90,2025-07-01,,,\n"

	n, err := svc.Import(context.Background(), strings.NewReader(doc))

	var ce *domain.ErrConflict
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, n)
}

func TestExport_RoundTrip(t *testing.T) {
	b := newFakeBackend(
		customer("1", "Ana", domain.TierP2X, "35.5", "2025-08-01"),
		customer("2", "Bruno", domain.TierRTV, "20", "2025-05-01"),
	)
	svc, _ := newCustomerService(t, b)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf, listing.Query{}.WithTier("P2X"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, strings.HasPrefix(buf.String(), `"id_client","nome"`))

	other := newFakeBackend()
	svc2, _ := newCustomerService(t, other)
	imported, err := svc2.Import(ctx, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, imported)

	got := other.customers["id-1"]
	want := b.customers["1"]
	assert.Equal(t, want.ExternalCode, got.ExternalCode)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Phone, got.Phone)
	assert.Equal(t, want.Tier, got.Tier)
	assert.True(t, want.MonthlyPrice.Equal(got.MonthlyPrice))
	assert.True(t, want.QuarterlyPrice.Equal(got.QuarterlyPrice))
	assert.Equal(t, want.DueDate, got.DueDate)
	assert.Equal(t, want.CreatedOn, got.CreatedOn)
}

// --- Status sync ---

func TestSyncStoredStatus(t *testing.T) {
	b := newFakeBackend(
		customer("1", "Ana", domain.TierP2X, "35", "2025-08-01"),
		customer("2", "Bruno", domain.TierP2X, "35", "2025-05-01"),
	)
	svc, _ := newCustomerService(t, b)

	n, err := svc.SyncStoredStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.StatusVencido, b.customers["2"].Status)

	n, err = svc.SyncStoredStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func names(views []domain.CustomerView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/service"
)

func newDashboardService(t *testing.T, b *fakeBackend) *service.DashboardService {
	t.Helper()
	return service.NewDashboardService(b, newSettingsService(t, b), lifecycle.FixedClock{At: testNow}, 7, observability.NewMetrics(), zap.NewNop())
}

func TestDashboardSummary(t *testing.T) {
	b := newFakeBackend(
		customer("1", "Ana", domain.TierP2X, "35", "2025-06-18"),
		customer("2", "Bruno", domain.TierP2X, "30", "2025-05-01"),
		customer("3", "Carla", domain.TierRTV, "40", "2025-09-01"),
		customer("4", "Davi", domain.TierP2Server, "50", "2025-06-15"),
	)
	svc := newDashboardService(t, b)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2025-06-15", s.Date.String())
	assert.Equal(t, 4, s.TotalCustomers)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.Expired)
	// 35 + 40 + 50, expired customers excluded
	assert.True(t, s.MonthlyRevenue.Equal(decimal.RequireFromString("125")), s.MonthlyRevenue.String())
	// 6 + 6 + 8 + 10, every customer
	assert.True(t, s.ServerCost.Equal(decimal.RequireFromString("30")), s.ServerCost.String())
	assert.True(t, s.EstimatedProfit.Equal(decimal.RequireFromString("95")))

	require.Len(t, s.ByTier, len(domain.Tiers))
	assert.Equal(t, domain.TierP2X, s.ByTier[0].Tier)
	assert.Equal(t, 2, s.ByTier[0].Count)
	assert.True(t, s.ByTier[0].Revenue.Equal(decimal.RequireFromString("35")))
	assert.True(t, s.ByTier[0].Cost.Equal(decimal.RequireFromString("12")))

	assert.Equal(t, []domain.StatusCount{{Name: "Ativo", Value: 3}, {Name: "Vencido", Value: 1}}, s.ByStatus)

	// due today first, then in 3 days; Carla is outside the 7 day window
	assert.Equal(t, []string{"Davi", "Ana"}, names(s.ExpiringSoon))
	assert.Equal(t, 7, s.ExpiringWindow)
	assert.Equal(t, testNow, s.GeneratedAt)
}

func TestDashboardSummary_UsesDefaultCostsWhenSettingsFail(t *testing.T) {
	b := newFakeBackend(customer("1", "Ana", domain.TierCPlayer, "35", "2025-07-01"))
	b.tierCostErr = errors.New("down")
	svc := newDashboardService(t, b)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, s.ServerCost.Equal(decimal.RequireFromString("8")))
}

func TestDashboardSummary_CustomerFetchFails(t *testing.T) {
	b := newFakeBackend()
	b.listErr = &domain.ErrExternalService{Service: "supabase", Err: errors.New("down")}
	svc := newDashboardService(t, b)

	_, err := svc.Summary(context.Background())

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
}

func TestSummarize_Empty(t *testing.T) {
	s := service.Summarize(nil, domain.MustParseDate("2025-06-15"), 7)

	assert.Zero(t, s.TotalCustomers)
	assert.True(t, s.MonthlyRevenue.IsZero())
	assert.NotNil(t, s.ExpiringSoon)
	assert.Len(t, s.ByTier, len(domain.Tiers))
}

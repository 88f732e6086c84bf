package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/port"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// TierCostReader is the part of SettingsService the dashboard needs.
type TierCostReader interface {
	TierCosts(ctx context.Context) (domain.TierCosts, error)
}

// DashboardService computes the revenue/cost/profit rollups.
type DashboardService struct {
	customers      port.CustomerStore
	costs          TierCostReader
	clock          port.Clock
	expiringWithin int
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewDashboardService creates a dashboard service. expiringWithin is the
// window, in days, of the "expiring soon" list.
func NewDashboardService(customers port.CustomerStore, costs TierCostReader, clock port.Clock, expiringWithin int, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		customers:      customers,
		costs:          costs,
		clock:          clock,
		expiringWithin: expiringWithin,
		metrics:        metrics,
		logger:         logger,
	}
}

// Summary fetches customers and tier costs in parallel and aggregates them.
func (s *DashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()
	start := time.Now()

	var (
		customers []domain.Customer
		costs     domain.TierCosts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = s.customers.ListCustomers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		costs, err = s.costs.TierCosts(gctx)
		if err != nil {
			s.logger.Warn("dashboard: tier costs unavailable, using defaults", zap.Error(err))
			costs = domain.DefaultTierCosts()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard: failed to load customers", zap.Error(err))
		return nil, err
	}

	today := s.clock.Today()
	summary := Summarize(lifecycle.DeriveAll(customers, today, costs), today, s.expiringWithin)
	summary.GeneratedAt = s.clock.Now()

	s.metrics.RecordRequestDuration("dashboard.summary", time.Since(start))
	return summary, nil
}

// Summarize is the pure aggregation behind Summary.
func Summarize(views []domain.CustomerView, today domain.Date, expiringWithin int) *domain.DashboardSummary {
	totals := lifecycle.Summarize(views)

	byTier := make(map[domain.Tier]*domain.TierCount, len(domain.Tiers))
	for _, t := range domain.Tiers {
		byTier[t] = &domain.TierCount{Tier: t, Revenue: decimal.Zero, Cost: decimal.Zero}
	}

	expiring := []domain.CustomerView{}
	for _, v := range views {
		tc, ok := byTier[v.Tier]
		if !ok {
			tc = &domain.TierCount{Tier: v.Tier, Revenue: decimal.Zero, Cost: decimal.Zero}
			byTier[v.Tier] = tc
		}
		tc.Count++
		tc.Cost = tc.Cost.Add(v.TierCost)
		if v.CurrentStatus == domain.StatusAtivo {
			tc.Revenue = tc.Revenue.Add(v.MonthlyPrice)
			if v.DaysUntilDue <= expiringWithin {
				expiring = append(expiring, v)
			}
		}
	}
	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].DaysUntilDue < expiring[j].DaysUntilDue
	})

	tiers := make([]domain.TierCount, 0, len(byTier))
	for _, t := range domain.Tiers {
		tiers = append(tiers, *byTier[t])
	}
	for t, tc := range byTier {
		if !isKnownTier(t) {
			tiers = append(tiers, *tc)
		}
	}

	return &domain.DashboardSummary{
		Date:            today,
		TotalCustomers:  len(views),
		Active:          totals.Active,
		Expired:         totals.Expired,
		MonthlyRevenue:  totals.Revenue,
		ServerCost:      totals.Cost,
		EstimatedProfit: totals.Profit(),
		ByTier:          tiers,
		ByStatus: []domain.StatusCount{
			{Name: string(domain.StatusAtivo), Value: totals.Active},
			{Name: string(domain.StatusVencido), Value: totals.Expired},
		},
		ExpiringSoon:   expiring,
		ExpiringWindow: expiringWithin,
	}
}

func isKnownTier(t domain.Tier) bool {
	for _, k := range domain.Tiers {
		if k == t {
			return true
		}
	}
	return false
}

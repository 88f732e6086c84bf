package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary is returned by GET /v1/dashboard.
type DashboardSummary struct {
	Date            Date            `json:"data_referencia"`
	TotalCustomers  int             `json:"total_clientes"`
	Active          int             `json:"clientes_ativos"`
	Expired         int             `json:"clientes_vencidos"`
	MonthlyRevenue  decimal.Decimal `json:"receita_mensal"`
	ServerCost      decimal.Decimal `json:"custo_servidores"`
	EstimatedProfit decimal.Decimal `json:"lucro_estimado"`
	ByTier          []TierCount     `json:"por_servidor"`
	ByStatus        []StatusCount   `json:"por_status"`
	ExpiringSoon    []CustomerView  `json:"vencendo_em_breve"`
	ExpiringWindow  int             `json:"janela_vencimento_dias"`
	GeneratedAt     time.Time       `json:"gerado_em"`
}

// TierCount is a per-tier bar of the dashboard.
type TierCount struct {
	Tier    Tier            `json:"servidor"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"receita"`
	Cost    decimal.Decimal `json:"custo"`
}

// StatusCount is a slice of the status pie chart.
type StatusCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

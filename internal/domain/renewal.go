package domain

import "time"

// ============================================================
// Renewal log (logs_recarga)
// ============================================================

// RenewalLog records one renewal. Rows are append-only.
type RenewalLog struct {
	ID           string     `json:"id"`
	CustomerID   string     `json:"cliente_id"`
	CustomerName string     `json:"nome_cliente"`
	Tier         Tier       `json:"servidor"`
	DueBefore    Date       `json:"data_vencimento_antes"`
	DueAfter     Date       `json:"data_vencimento_depois"`
	MonthsAdded  int        `json:"meses_adicionados"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// RenewalRequest is the body of POST /v1/customers/{id}/renewals.
type RenewalRequest struct {
	Months int `json:"meses"`
}

// RenewalResult is returned after a successful renewal.
type RenewalResult struct {
	Customer  CustomerView `json:"cliente"`
	Log       RenewalLog   `json:"log"`
	DueBefore Date         `json:"data_vencimento_antes"`
	DueAfter  Date         `json:"data_vencimento_depois"`
	Notice    Notice       `json:"notice"`
}

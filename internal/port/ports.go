// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// Clock supplies "now" in the business time zone.
type Clock interface {
	Now() time.Time
	Today() domain.Date
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// CustomerStore is the clientes table.
// Implemented by the Supabase adapter and the Postgres adapter.
type CustomerStore interface {
	// ListCustomers returns every customer ordered by nome ascending.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, in *domain.CustomerInput) (*domain.Customer, error)
	// CreateCustomers inserts all rows in one request; nothing is written on error.
	CreateCustomers(ctx context.Context, in []domain.CustomerInput) (int, error)
	UpdateCustomer(ctx context.Context, id string, cols map[string]any) error
	DeleteCustomer(ctx context.Context, id string) error
}

// RenewalLogStore is the append-only logs_recarga table.
type RenewalLogStore interface {
	// ListRenewalLogs returns logs newest first. limit <= 0 means all.
	ListRenewalLogs(ctx context.Context, limit int) ([]domain.RenewalLog, error)
	CreateRenewalLog(ctx context.Context, log *domain.RenewalLog) (*domain.RenewalLog, error)
}

// SettingsStore covers configuracoes_whatsapp and configuracoes_servidor.
type SettingsStore interface {
	GetWhatsappConfig(ctx context.Context) (*domain.WhatsappConfig, error)
	UpdateWhatsappConfig(ctx context.Context, id string, cols map[string]any) error
	ListTierCosts(ctx context.Context) ([]domain.TierCost, error)
	UpsertTierCost(ctx context.Context, cost *domain.TierCost) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend groups the stores of one persistence implementation.
type Backend interface {
	CustomerStore
	RenewalLogStore
	SettingsStore
	Pinger
	Name() string
}

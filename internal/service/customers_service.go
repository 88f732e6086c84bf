// Package service provides the business logic layer (use cases).
// CustomerService owns the customer snapshot and the renewal flow; the
// other services build reports and messages on top of it.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/csvio"
	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/listing"
	"github.com/tekinformatica/painel-go/internal/port"
)

var customerTracer = otel.Tracer("service/customers")

// TierCostSource supplies per-tier costs for the read model.
type TierCostSource interface {
	TierCostsOrDefault(ctx context.Context) domain.TierCosts
}

// CustomerService handles customer CRUD, import/export and renewals.
//
// The last successfully fetched list is kept in memory. A failed refresh
// leaves it untouched and marks it stale.
type CustomerService struct {
	store   port.CustomerStore
	logs    port.RenewalLogStore
	costs   TierCostSource
	clock   port.Clock
	metrics *observability.Metrics
	logger  *zap.Logger

	mu          sync.RWMutex
	snapshot    []domain.Customer
	loaded      bool
	stale       bool
	lastErr     error
	refreshedAt time.Time
}

// NewCustomerService creates a customer service.
func NewCustomerService(store port.CustomerStore, logs port.RenewalLogStore, costs TierCostSource, clock port.Clock, metrics *observability.Metrics, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		store:   store,
		logs:    logs,
		costs:   costs,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// Snapshot
// ============================================================

// Refresh re-fetches the full list. On failure the previous snapshot is kept.
func (s *CustomerService) Refresh(ctx context.Context) error {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Refresh")
	defer span.End()

	start := time.Now()
	customers, err := s.store.ListCustomers(ctx)
	s.metrics.RecordRequestDuration("customers.refresh", time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.stale = s.loaded
		s.lastErr = err
		s.logger.Warn("customer refresh failed, keeping last snapshot",
			zap.Bool("has_snapshot", s.loaded),
			zap.Time("refreshed_at", s.refreshedAt),
			zap.Error(err),
		)
		s.publish()
		return err
	}

	s.snapshot = customers
	s.loaded = true
	s.stale = false
	s.lastErr = nil
	s.refreshedAt = s.clock.Now()
	span.SetAttributes(attribute.Int("customers.count", len(customers)))
	s.publish()
	return nil
}

// publish updates the snapshot gauges. Caller holds mu.
func (s *CustomerService) publish() {
	today := s.clock.Today()
	active, expired := 0, 0
	for _, c := range s.snapshot {
		if lifecycle.Status(c.DueDate, today) == domain.StatusAtivo {
			active++
		} else {
			expired++
		}
	}
	s.metrics.SetSnapshot(active, expired, s.stale)
}

// SnapshotInfo reports the freshness of the in-memory list.
func (s *CustomerService) SnapshotInfo() (stale bool, age time.Duration, count int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loaded {
		age = s.clock.Now().Sub(s.refreshedAt)
	}
	return s.stale, age, len(s.snapshot)
}

// refreshAfterMutation re-fetches after a successful write. A failure here
// does not undo the write; it only makes the next list stale.
func (s *CustomerService) refreshAfterMutation(ctx context.Context, op string) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after mutation failed", zap.String("operation", op), zap.Error(err))
	}
}

// ============================================================
// Queries
// ============================================================

// List refreshes and returns the filtered, sorted view. When the refresh
// fails but an older snapshot exists, that snapshot is returned flagged as
// stale together with a notice.
func (s *CustomerService) List(ctx context.Context, q listing.Query) (*domain.CustomerList, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.List")
	defer span.End()

	refreshErr := s.Refresh(ctx)

	s.mu.RLock()
	loaded, stale := s.loaded, s.stale
	customers := append([]domain.Customer(nil), s.snapshot...)
	refreshedAt := s.refreshedAt
	s.mu.RUnlock()

	if refreshErr != nil && !loaded {
		return nil, refreshErr
	}

	today := s.clock.Today()
	views := lifecycle.DeriveAll(customers, today, s.costs.TierCostsOrDefault(ctx))
	views = listing.Apply(views, q)

	out := &domain.CustomerList{
		Customers:   views,
		Total:       len(views),
		Stale:       stale,
		RefreshedAt: refreshedAt,
	}
	if refreshErr != nil {
		n := domain.FailureNotice("Erro ao carregar clientes", refreshErr)
		out.Notice = &n
	}
	span.SetAttributes(attribute.Int("customers.count", len(views)), attribute.Bool("stale", stale))
	return out, nil
}

// Get returns one derived customer.
func (s *CustomerService) Get(ctx context.Context, id string) (*domain.CustomerView, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	v := lifecycle.Derive(*c, s.clock.Today(), s.costs.TierCostsOrDefault(ctx))
	return &v, nil
}

// Export writes the filtered view as CSV.
func (s *CustomerService) Export(ctx context.Context, w io.Writer, q listing.Query) (int, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Export")
	defer span.End()

	list, err := s.List(ctx, q)
	if err != nil {
		return 0, err
	}
	if err := csvio.Export(w, list.Customers); err != nil {
		return 0, fmt.Errorf("writing csv: %w", err)
	}
	return len(list.Customers), nil
}

// ============================================================
// Mutations
// ============================================================

// Create validates and inserts a customer. The stored status is written as
// the derived status.
func (s *CustomerService) Create(ctx context.Context, in *domain.CustomerInput) (*domain.CustomerView, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Create")
	defer span.End()

	now := s.clock.Now()
	today := s.clock.Today()
	if in.ExternalCode == "" {
		in.ExternalCode = fmt.Sprintf("CLI-%d", now.UnixMilli())
	}
	if in.CreatedOn.IsZero() {
		in.CreatedOn = today
	}
	if err := in.ValidateForm(); err != nil {
		return nil, err
	}
	in.Status = lifecycle.Status(in.DueDate, today)

	c, err := s.store.CreateCustomer(ctx, in)
	if err != nil {
		s.logger.Error("failed to create customer", zap.String("id_client", in.ExternalCode), zap.Error(err))
		return nil, err
	}
	s.logger.Info("customer created", zap.String("id", c.ID), zap.String("id_client", c.ExternalCode))

	s.refreshAfterMutation(ctx, "create")
	v := lifecycle.Derive(*c, today, s.costs.TierCostsOrDefault(ctx))
	return &v, nil
}

// Update applies a partial patch. Changing the due date rewrites the
// stored status unless the patch sets it explicitly.
func (s *CustomerService) Update(ctx context.Context, id string, patch *domain.CustomerPatch) (*domain.CustomerView, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if patch.IsEmpty() {
		return nil, &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if patch.DueDate != nil && patch.Status == nil {
		st := lifecycle.Status(*patch.DueDate, s.clock.Today())
		patch.Status = &st
	}

	if err := s.store.UpdateCustomer(ctx, id, patch.Columns()); err != nil {
		s.logger.Error("failed to update customer", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("customer updated", zap.String("id", id))

	s.refreshAfterMutation(ctx, "update")
	return s.Get(ctx, id)
}

// Delete removes a customer.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		s.logger.Error("failed to delete customer", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("customer deleted", zap.String("id", id))

	s.refreshAfterMutation(ctx, "delete")
	return nil
}

// Import parses a CSV document and inserts every row in one bulk call.
// Nothing is written when any row is invalid.
func (s *CustomerService) Import(ctx context.Context, r io.Reader) (int, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Import")
	defer span.End()

	today := s.clock.Today()
	inputs, err := csvio.Import(r, csvio.ImportOptions{Today: today, Now: s.clock.Now()})
	if err != nil {
		return 0, err
	}
	for i := range inputs {
		inputs[i].Status = lifecycle.Status(inputs[i].DueDate, today)
	}

	n, err := s.store.CreateCustomers(ctx, inputs)
	if err != nil {
		s.logger.Error("customer import failed", zap.Int("rows", len(inputs)), zap.Error(err))
		return 0, err
	}
	s.metrics.AddImported(n)
	span.SetAttributes(attribute.Int("customers.imported", n))
	s.logger.Info("customers imported", zap.Int("count", n))

	s.refreshAfterMutation(ctx, "import")
	return n, nil
}

// Renew rolls the due date forward and appends exactly one renewal log.
//
// The two writes are not atomic. When the log append fails after the
// update succeeded, *domain.ErrPartialRenewal is returned and the customer
// keeps the new due date.
func (s *CustomerService) Renew(ctx context.Context, id string, months int) (*domain.RenewalResult, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Renew")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id), attribute.Int("months", months))

	if months < 1 {
		return nil, &domain.ErrValidation{Field: "meses", Message: "quantidade de meses deve ser >= 1"}
	}

	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	before := c.DueDate
	after, err := lifecycle.Renew(before, months, today)
	if err != nil {
		return nil, err
	}

	active := domain.StatusAtivo
	patch := domain.CustomerPatch{DueDate: &after, Status: &active}
	if err := s.store.UpdateCustomer(ctx, id, patch.Columns()); err != nil {
		s.metrics.IncrRenewal("error", c.Tier)
		s.logger.Error("renewal update failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	entry, err := s.logs.CreateRenewalLog(ctx, &domain.RenewalLog{
		CustomerID:   c.ID,
		CustomerName: c.Name,
		Tier:         c.Tier,
		DueBefore:    before,
		DueAfter:     after,
		MonthsAdded:  months,
	})
	if err != nil {
		s.metrics.IncrRenewal("partial", c.Tier)
		s.logger.Error("renewal applied but log append failed",
			zap.String("id", id),
			zap.String("due_before", before.String()),
			zap.String("due_after", after.String()),
			zap.Error(err),
		)
		s.refreshAfterMutation(ctx, "renew")
		return nil, &domain.ErrPartialRenewal{CustomerID: id, DueAfter: after, Err: err}
	}

	s.metrics.IncrRenewal("ok", c.Tier)
	s.logger.Info("customer renewed",
		zap.String("id", id),
		zap.String("due_before", before.String()),
		zap.String("due_after", after.String()),
		zap.Int("months", months),
	)
	s.refreshAfterMutation(ctx, "renew")

	renewed := *c
	renewed.DueDate = after
	renewed.Status = domain.StatusAtivo
	return &domain.RenewalResult{
		Customer:  lifecycle.Derive(renewed, today, s.costs.TierCostsOrDefault(ctx)),
		Log:       *entry,
		DueBefore: before,
		DueAfter:  after,
		Notice: domain.NewNotice("Renovação realizada",
			fmt.Sprintf("%s renovado até %s", c.Name, after.Format(domain.DisplayDateLayout))),
	}, nil
}

// SyncStoredStatus rewrites the advisory status column wherever it differs
// from the derived status. Individual failures do not stop the sweep.
func (s *CustomerService) SyncStoredStatus(ctx context.Context) (int, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.SyncStoredStatus")
	defer span.End()

	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		return 0, err
	}

	today := s.clock.Today()
	var errs []error
	updated := 0
	for _, c := range customers {
		want := lifecycle.Status(c.DueDate, today)
		if c.Status == want {
			continue
		}
		patch := domain.CustomerPatch{Status: &want}
		if err := s.store.UpdateCustomer(ctx, c.ID, patch.Columns()); err != nil {
			errs = append(errs, fmt.Errorf("customer %s: %w", c.ID, err))
			continue
		}
		updated++
	}
	span.SetAttributes(attribute.Int("customers.updated", updated))

	if updated > 0 {
		s.logger.Info("stored status synced", zap.Int("updated", updated))
		s.refreshAfterMutation(ctx, "sync-status")
	}
	return updated, errors.Join(errs...)
}

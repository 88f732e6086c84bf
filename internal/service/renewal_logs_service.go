package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/port"
)

var logsTracer = otel.Tracer("service/renewal_logs")

// MaxRenewalLogs caps a single listing.
const MaxRenewalLogs = 1000

// RenewalLogService exposes the append-only renewal history. Logs are
// written only by CustomerService.Renew.
type RenewalLogService struct {
	store port.RenewalLogStore
}

func NewRenewalLogService(store port.RenewalLogStore) *RenewalLogService {
	return &RenewalLogService{store: store}
}

// List returns logs newest first. limit <= 0 or above MaxRenewalLogs is
// clamped to MaxRenewalLogs.
func (s *RenewalLogService) List(ctx context.Context, limit int) ([]domain.RenewalLog, error) {
	ctx, span := logsTracer.Start(ctx, "RenewalLogService.List")
	defer span.End()

	if limit <= 0 || limit > MaxRenewalLogs {
		limit = MaxRenewalLogs
	}
	logs, err := s.store.ListRenewalLogs(ctx, limit)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("logs.count", len(logs)))
	if logs == nil {
		logs = []domain.RenewalLog{}
	}
	return logs, nil
}

// Package postgres implements the stores directly over the panel schema
// with pgx, for deployments that reach the database without PostgREST.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/resilience"
)

var tracer = otel.Tracer("postgres")

// DB is the subset of *pgxpool.Pool the stores use. pgxmock.PgxPoolIface
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store implements port.Backend over a Postgres connection.
type Store struct {
	db      DB
	cfg     resilience.Config
	logger  *zap.Logger
	onError func(service string)
}

// NewStore wraps an open pool (or a mock).
func NewStore(db DB, cfg resilience.Config, logger *zap.Logger) *Store {
	return &Store{db: db, cfg: cfg, logger: logger}
}

// NewPool parses the DSN, connects and pings.
func NewPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// OnError registers a callback invoked with the service name of every
// failed call.
func (s *Store) OnError(fn func(service string)) {
	s.onError = fn
}

// Name identifies the backend in health output.
func (s *Store) Name() string { return "postgres" }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.wrap("postgres/ping", s.db.Ping(ctx))
}

// readRetry retries idempotent reads; a missing row is final.
func (s *Store) readRetry(ctx context.Context, fn func() error) error {
	return resilience.RetryWithBackoff(ctx, s.cfg, func() error {
		err := fn()
		if errors.Is(err, pgx.ErrNoRows) {
			return resilience.Permanent(err)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return resilience.Permanent(err)
		}
		return err
	})
}

func (s *Store) wrap(service string, err error) error {
	if err == nil {
		return nil
	}
	if s.onError != nil {
		s.onError(service)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return &domain.ErrConflict{Message: pgErr.Message}
		}
		s.logger.Warn("postgres: statement failed",
			zap.String("service", service),
			zap.String("code", pgErr.Code),
			zap.String("message", pgErr.Message),
		)
		return &domain.ErrExternalService{Service: service, Err: errors.New(pgErr.Message)}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: service}
	}
	s.logger.Error("postgres: call failed", zap.String("service", service), zap.Error(err))
	return &domain.ErrExternalService{Service: service, Err: err}
}

// setClause renders "col = $n::cast" pairs for a validated column patch,
// in column order, starting at placeholder start.
func setClause(cols map[string]any, casts map[string]string, start int) (string, []any, error) {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		if _, ok := casts[k]; !ok {
			return "", nil, &domain.ErrValidation{Field: k, Message: "coluna desconhecida"}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		parts = append(parts, fmt.Sprintf("%s = $%d%s", k, start+i, casts[k]))
		args = append(args, textArg(cols[k]))
	}
	return strings.Join(parts, ", "), args, nil
}

// textArg renders a patch value as text; columns are cast server side.
func textArg(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

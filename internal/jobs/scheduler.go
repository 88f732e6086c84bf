// Package jobs runs the panel's background work on a gocron scheduler:
// the daily sync of the stored status column and the periodic refresh of
// the customer snapshot.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/infra/observability"
)

// Job names, also used as metric labels.
const (
	JobStatusSync      = "status-sync"
	JobSnapshotRefresh = "snapshot-refresh"
)

// jobTimeout bounds a single run.
const jobTimeout = 2 * time.Minute

// StatusSyncer rewrites the advisory status column.
type StatusSyncer interface {
	SyncStoredStatus(ctx context.Context) (int, error)
}

// SnapshotRefresher reloads the customer snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) error
}

// Options selects which jobs are registered.
type Options struct {
	// SyncHour and SyncMinute schedule the daily status sync. A negative
	// hour disables it.
	SyncHour   int
	SyncMinute int
	// SnapshotRefresh is the refresh interval; zero disables it.
	SnapshotRefresh time.Duration
	Location        *time.Location
}

// Scheduler owns the gocron scheduler and its jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	syncer    StatusSyncer
	refresher SnapshotRefresher
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]gocron.Job
}

// NewScheduler creates the scheduler and registers the enabled jobs. The
// jobs only run after Start.
func NewScheduler(syncer StatusSyncer, refresher SnapshotRefresher, opts Options, metrics *observability.Metrics, logger *zap.Logger) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &Scheduler{
		scheduler: s,
		syncer:    syncer,
		refresher: refresher,
		metrics:   metrics,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}

	if opts.SyncHour >= 0 && syncer != nil {
		at := gocron.NewAtTimes(gocron.NewAtTime(uint(opts.SyncHour), uint(opts.SyncMinute), 0))
		if err := js.add(JobStatusSync, gocron.DailyJob(1, at), js.RunStatusSync); err != nil {
			return nil, err
		}
	}
	if opts.SnapshotRefresh > 0 && refresher != nil {
		if err := js.add(JobSnapshotRefresh, gocron.DurationJob(opts.SnapshotRefresh), js.RefreshSnapshot); err != nil {
			return nil, err
		}
	}

	logger.Info("background jobs registered", zap.Strings("jobs", js.Names()))
	return js, nil
}

func (js *Scheduler) add(name string, def gocron.JobDefinition, run func(context.Context) error) error {
	job, err := js.scheduler.NewJob(
		def,
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_ = run(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}

	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

// Start starts the scheduler.
func (js *Scheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (js *Scheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// Names lists the registered jobs, sorted.
func (js *Scheduler) Names() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun reports when a job runs next.
func (js *Scheduler) NextRun(name string) (time.Time, error) {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return time.Time{}, fmt.Errorf("unknown job %q", name)
	}
	return job.NextRun()
}

// RunStatusSync runs one status sync now.
func (js *Scheduler) RunStatusSync(ctx context.Context) error {
	start := time.Now()
	n, err := js.syncer.SyncStoredStatus(ctx)
	js.finish(JobStatusSync, start, err, zap.Int("updated", n))
	return err
}

// RefreshSnapshot reloads the customer snapshot now.
func (js *Scheduler) RefreshSnapshot(ctx context.Context) error {
	start := time.Now()
	err := js.refresher.Refresh(ctx)
	js.finish(JobSnapshotRefresh, start, err)
	return err
}

func (js *Scheduler) finish(name string, start time.Time, err error, fields ...zap.Field) {
	if js.metrics != nil {
		js.metrics.IncrJobRun(name, err)
		js.metrics.RecordRequestDuration("job."+name, time.Since(start))
	}
	fields = append(fields, zap.String("job", name), zap.Duration("duration", time.Since(start)))
	if err != nil {
		js.logger.Error("background job failed", append(fields, zap.Error(err))...)
		return
	}
	js.logger.Debug("background job finished", fields...)
}

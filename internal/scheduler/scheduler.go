package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/retry"
)

const purgeInterval = 24 * time.Hour

// Fetcher produces a batch of readings from one source.
type Fetcher func(ctx context.Context) ([]reading.Reading, error)

// Saver is the slice of the store the scheduler needs.
type Saver interface {
	SaveReadings(ctx context.Context, src reading.Source, readings []reading.Reading) (int, error)
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Job is one periodic fetch-and-save loop.
type Job struct {
	// Name appears in log lines.
	Name string

	// Source selects the destination table.
	Source reading.Source

	// Interval between runs. The first run happens immediately.
	Interval time.Duration

	// Attempts and RetryDelay bound the retry wrapper around Fetch.
	// Attempts below 1 means a single attempt.
	Attempts   int
	RetryDelay time.Duration

	Fetch Fetcher
}

// Scheduler runs ingestion jobs until its context is cancelled.
type Scheduler struct {
	store Saver
	log   *logging.Logger

	jobs     []Job
	purgeAge time.Duration
}

// New creates a scheduler with no jobs registered.
func New(store Saver, log *logging.Logger) *Scheduler {
	return &Scheduler{
		store: store,
		log:   log.With("component", "scheduler"),
	}
}

// AddJob registers a job. Must be called before Run.
func (s *Scheduler) AddJob(job Job) {
	s.jobs = append(s.jobs, job)
}

// EnablePurge turns on the daily age-based purge. maxAge of zero or
// below leaves purging off.
func (s *Scheduler) EnablePurge(maxAge time.Duration) {
	s.purgeAge = maxAge
}

// Run starts every registered job plus the purge loop and blocks until
// ctx is cancelled. All loops have stopped when Run returns.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}

	if s.purgeAge > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runPurge(ctx)
		}()
	}

	s.log.Info("scheduler started", "jobs", len(s.jobs), "purge_enabled", s.purgeAge > 0)
	wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	log := s.log.With("job", job.Name)
	log.Info("job started", "interval", job.Interval)

	// Eager first run so a restart repopulates quickly.
	s.runOnce(ctx, job, log)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("job stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, job, log)
		}
	}
}

// runOnce executes a single fetch-and-save cycle. Errors are logged,
// never propagated: one bad cycle must not kill the loop.
func (s *Scheduler) runOnce(ctx context.Context, job Job, log *logging.Logger) {
	start := time.Now()

	readings, err := retry.DoValue(ctx, job.Attempts, job.RetryDelay, job.Fetch)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error("fetch failed", "error", err, "elapsed", time.Since(start))
		return
	}
	if len(readings) == 0 {
		log.Debug("fetch returned no readings")
		return
	}

	saved, err := s.store.SaveReadings(ctx, job.Source, readings)
	if err != nil {
		log.Error("save failed", "error", err, "readings", len(readings))
		return
	}

	log.Info("cycle complete", "fetched", len(readings), "saved", saved, "elapsed", time.Since(start))
}

func (s *Scheduler) runPurge(ctx context.Context) {
	log := s.log.With("job", "purge")
	log.Info("purge loop started", "max_age", s.purgeAge)

	s.purgeOnce(ctx, log)

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("purge loop stopped")
			return
		case <-ticker.C:
			s.purgeOnce(ctx, log)
		}
	}
}

func (s *Scheduler) purgeOnce(ctx context.Context, log *logging.Logger) {
	deleted, err := s.store.PurgeOlderThan(ctx, s.purgeAge)
	if err != nil {
		if ctx.Err() == nil {
			log.Error("purge failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		log.Info("purge complete", "deleted", deleted)
	}
}

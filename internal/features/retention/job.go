package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"apimon/internal/features/monitor/models"

	"github.com/robfig/cron/v3"
)

// Purger drops check results older than a number of days
type Purger interface {
	Purge(ctx context.Context, days int) (models.PurgeResult, error)
}

// Status describes the retention job
type Status struct {
	Days     int                 `json:"days"`
	Schedule string              `json:"schedule"`
	NextRun  *time.Time          `json:"next_run,omitempty"`
	LastRun  *time.Time          `json:"last_run,omitempty"`
	Last     *models.PurgeResult `json:"last_result,omitempty"`
	LastErr  string              `json:"last_error,omitempty"`
}

// Job runs the purge on a cron schedule
type Job struct {
	cron    *cron.Cron
	purger  Purger
	config  *Config
	logger  *slog.Logger
	entryID cron.EntryID
	timeout time.Duration

	mu      sync.Mutex
	running sync.Mutex
	lastRun time.Time
	last    *models.PurgeResult
	lastErr error
}

// NewJob creates a job; Start schedules it
func NewJob(purger Purger, config *Config, logger *slog.Logger) *Job {
	return &Job{
		cron:    cron.New(),
		purger:  purger,
		config:  config,
		logger:  logger,
		timeout: 5 * time.Minute,
	}
}

// Start schedules the purge and starts the cron runner
func (j *Job) Start() error {
	id, err := j.cron.AddFunc(j.config.Schedule, func() {
		j.Run(context.Background())
	})
	if err != nil {
		return err
	}
	j.entryID = id
	j.cron.Start()

	j.logger.Info("Retention job scheduled",
		"schedule", j.config.Schedule,
		"days", j.config.Days,
		"next_run", j.cron.Entry(id).Next.Format(time.RFC3339))
	return nil
}

// Stop stops the runner and waits for a purge in progress
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Run purges once. Overlapping runs are serialized.
func (j *Job) Run(ctx context.Context) (models.PurgeResult, error) {
	j.running.Lock()
	defer j.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := time.Now()
	result, err := j.purger.Purge(ctx, j.config.Days)

	j.mu.Lock()
	j.lastRun = started
	j.lastErr = err
	if err == nil {
		j.last = &result
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Error("Retention purge failed", "days", j.config.Days, "error", err)
		return result, err
	}

	j.logger.Info("Retention purge complete",
		"days", result.Days,
		"memory_removed", result.MemoryRemoved,
		"store_removed", result.StoreRemoved,
		"duration_ms", time.Since(started).Milliseconds())
	return result, nil
}

// Status reports the schedule and the outcome of the last run
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	st := Status{
		Days:     j.config.Days,
		Schedule: j.config.Schedule,
		Last:     j.last,
	}
	if next := j.cron.Entry(j.entryID).Next; !next.IsZero() {
		st.NextRun = &next
	}
	if !j.lastRun.IsZero() {
		last := j.lastRun
		st.LastRun = &last
	}
	if j.lastErr != nil {
		st.LastErr = j.lastErr.Error()
	}
	return st
}

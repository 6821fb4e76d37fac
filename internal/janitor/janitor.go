package janitor

import (
	"context"
	"time"

	"bitmapadapter/internal/log"
	"bitmapadapter/internal/storage"
)

// tempMaxAge is how old an in-flight temp file must be before it counts as
// orphaned.
const tempMaxAge = 15 * time.Minute

// JobPruner forgets finished jobs.
type JobPruner interface {
	Prune(olderThan time.Duration) int
}

// Janitor handles periodic cleanup of finished jobs and orphaned files
type Janitor struct {
	jobs      JobPruner
	store     *storage.Storage
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// Config holds janitor configuration
type Config struct {
	Jobs         JobPruner
	Store        *storage.Storage
	JobRetention time.Duration
	Interval     time.Duration
}

// New creates a new Janitor instance
func New(cfg Config) *Janitor {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.JobRetention == 0 {
		cfg.JobRetention = time.Hour
	}

	return &Janitor{
		jobs:      cfg.Jobs,
		store:     cfg.Store,
		retention: cfg.JobRetention,
		interval:  cfg.Interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the cleanup scheduler in a goroutine
func (j *Janitor) Start(ctx context.Context) {
	go j.run(ctx)
}

// Stop gracefully stops the janitor
func (j *Janitor) Stop() {
	close(j.stopChan)
	<-j.doneChan // wait for cleanup to finish
}

func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneChan)

	// Run cleanup immediately on startup
	j.runCleanup()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runCleanup()
		case <-j.stopChan:
			log.Info("Janitor: received stop signal, shutting down...")
			return
		case <-ctx.Done():
			log.Info("Janitor: context cancelled, shutting down...")
			return
		}
	}
}

func (j *Janitor) runCleanup() {
	start := time.Now().UTC()

	j.pruneJobs()
	j.cleanupTempFiles()

	log.Debug("Janitor: cleanup cycle completed in %v", time.Since(start))
}

func (j *Janitor) pruneJobs() {
	if j.jobs == nil {
		return
	}
	if n := j.jobs.Prune(j.retention); n > 0 {
		log.Info("Janitor: pruned %d finished jobs", n)
	}
}

// cleanupTempFiles removes temp files left by interrupted artifact writes
func (j *Janitor) cleanupTempFiles() {
	if j.store == nil {
		return
	}
	n, err := j.store.CleanOrphanedTempFiles(tempMaxAge)
	if err != nil {
		log.Warn("Janitor: failed to cleanup temp files: %v", err)
		return
	}
	if n > 0 {
		log.Info("Janitor: removed %d orphaned temp files", n)
	}
}

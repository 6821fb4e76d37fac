package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bitmapadapter/internal/log"
	"bitmapadapter/internal/metrics"
	"bitmapadapter/internal/pipeline"
	"bitmapadapter/internal/stage"
	"bitmapadapter/internal/storage"
)

// ErrJobNotFound is returned by Get for unknown or pruned jobs.
var ErrJobNotFound = errors.New("job not found")

// State is the lifecycle position of a job.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is an adaptation request as seen from outside the worker.
type Job struct {
	ID         string              `json:"id"`
	State      State               `json:"state"`
	Frames     []stage.FrameSize   `json:"frames"`
	Artifacts  []pipeline.Artifact `json:"artifacts,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	FinishedAt time.Time           `json:"finishedAt,omitempty"`
}

type job struct {
	Job
	asset pipeline.Asset
}

// Worker runs AdaptMultipleStageSizes jobs in the background and stores
// their artifacts.
type Worker struct {
	adapter *pipeline.Adapter
	store   *storage.Storage
	metrics *metrics.Logger

	mu    sync.Mutex
	jobs  map[string]*job
	queue []string

	trigger chan struct{} // Channel to wake up the worker immediately
	wg      sync.WaitGroup
}

// NewWorker creates a new background worker. m may be nil.
func NewWorker(adapter *pipeline.Adapter, store *storage.Storage, m *metrics.Logger) *Worker {
	return &Worker{
		adapter: adapter,
		store:   store,
		metrics: m,
		jobs:    make(map[string]*job),
		trigger: make(chan struct{}, 1),
	}
}

// Start runs the background worker loop in a goroutine
func (w *Worker) Start(ctx context.Context) {
	log.Info("Worker: started background adaptation queue")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Poll as a fallback for a missed trigger
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Worker: context cancelled, stopping loop")
				return
			case <-ticker.C:
				w.processBatch(ctx)
			case <-w.trigger:
				w.processBatch(ctx)
			}
		}
	}()
}

// Stop waits for the worker to finish current tasks
func (w *Worker) Stop() {
	log.Info("Worker: waiting for active jobs to finish...")
	w.wg.Wait()
	log.Info("Worker: stopped")
}

// TriggerSignal wakes up the worker to process pending jobs immediately
func (w *Worker) TriggerSignal() {
	select {
	case w.trigger <- struct{}{}:
	default:
		// already triggered
	}
}

// Enqueue registers a pending job adapting asset to frames and wakes the
// worker.
func (w *Worker) Enqueue(asset pipeline.Asset, frames []stage.FrameSize) Job {
	j := &job{
		Job: Job{
			ID:        uuid.NewString(),
			State:     StatePending,
			Frames:    append([]stage.FrameSize(nil), frames...),
			CreatedAt: time.Now().UTC(),
		},
		asset: asset,
	}

	w.mu.Lock()
	w.jobs[j.ID] = j
	w.queue = append(w.queue, j.ID)
	snapshot := j.snapshot()
	w.mu.Unlock()

	log.Debug("Worker: queued job %s for %d frames", j.ID, len(frames))
	w.TriggerSignal()
	return snapshot
}

// Get returns the current view of a job.
func (w *Worker) Get(id string) (Job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j, ok := w.jobs[id]
	if !ok {
		return Job{}, errors.Wrap(ErrJobNotFound, id)
	}
	return j.snapshot(), nil
}

// Prune forgets finished jobs that finished more than olderThan ago and
// returns how many were removed. Pending jobs are never pruned.
func (w *Worker) Prune(olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)

	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	for id, j := range w.jobs {
		if j.State != StatePending && j.FinishedAt.Before(cutoff) {
			delete(w.jobs, id)
			removed++
		}
	}
	return removed
}

// processBatch processes jobs until the queue is empty
func (w *Worker) processBatch(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !w.processNextJob(ctx) {
			return
		}
	}
}

func (w *Worker) next() (*job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) > 0 {
		id := w.queue[0]
		w.queue = w.queue[1:]
		if j, ok := w.jobs[id]; ok {
			return j, true
		}
	}
	return nil, false
}

func (w *Worker) processNextJob(ctx context.Context) bool {
	j, ok := w.next()
	if !ok {
		return false
	}

	log.Info("Worker: processing job %s", j.ID)
	start := time.Now()

	artifacts, err := w.adapt(ctx, j)
	if w.metrics != nil {
		w.metrics.LogEvent(metrics.EventAdaptStageSizes, time.Since(start), err)
	}
	if err != nil {
		log.Error("Worker: job %s failed: %v", j.ID, err)
		w.failJob(j, err)
	} else {
		w.completeJob(j, artifacts)
	}
	return true
}

// adapt runs one job. A panic inside the pipeline is turned into an error
// so it fails the job instead of the process.
func (w *Worker) adapt(ctx context.Context, j *job) (artifacts []pipeline.Artifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifacts = nil
			err = errors.Errorf("adapt panicked: %v", r)
		}
	}()

	artifacts, err = w.adapter.AdaptMultipleStageSizes(ctx, j.asset, j.Frames)
	if err != nil {
		return nil, err
	}
	if w.store == nil {
		return artifacts, nil
	}

	for _, a := range artifacts {
		if _, _, err := w.store.SaveArtifact(a.Name, a.Data); err != nil {
			return nil, err
		}
	}

	origin := artifacts[len(artifacts)-1]
	manifest := storage.Manifest{Origin: origin.Name, ContentType: origin.ContentType}
	current := w.adapter.Stage().NativeSize()
	for i, a := range artifacts[:len(artifacts)-1] {
		manifest.Variants = append(manifest.Variants, storage.Variant{
			Frame:       j.Frames[i].Resolve(current),
			Name:        a.Name,
			ContentType: a.ContentType,
		})
	}
	if err := w.store.WriteManifest(manifest); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (w *Worker) failJob(j *job, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j.State = StateFailed
	j.Error = err.Error()
	j.FinishedAt = time.Now().UTC()
	j.asset = pipeline.Asset{}
}

func (w *Worker) completeJob(j *job, artifacts []pipeline.Artifact) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j.State = StateSucceeded
	j.Artifacts = make([]pipeline.Artifact, len(artifacts))
	for i, a := range artifacts {
		j.Artifacts[i] = pipeline.Artifact{Name: a.Name, ContentType: a.ContentType}
	}
	j.FinishedAt = time.Now().UTC()
	j.asset = pipeline.Asset{}
}

func (j *job) snapshot() Job {
	out := j.Job
	out.Frames = append([]stage.FrameSize(nil), j.Frames...)
	out.Artifacts = append([]pipeline.Artifact(nil), j.Artifacts...)
	return out
}

package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobRetention is how long a finished job stays visible through Job.
const JobRetention = time.Hour

var (
	ErrQueueFull = errors.New("purge queue is full")
	ErrStopped   = errors.New("purge worker is stopped")
)

type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

type Job struct {
	ID          string     `json:"id"`
	State       JobState   `json:"state"`
	OlderThan   time.Time  `json:"olderThan"`
	Removed     int64      `json:"removed"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Purger deletes records created before cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeWorker runs purge jobs one at a time off a bounded queue.
type PurgeWorker struct {
	purger    Purger
	queue     chan string
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
	now       func() time.Time
	stopped   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewPurgeWorker(purger Purger, queueSize int) *PurgeWorker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &PurgeWorker{
		purger:    purger,
		queue:     make(chan string, queueSize),
		jobs:      make(map[string]*Job),
		retention: JobRetention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (w *PurgeWorker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.stopCh:
				return
			case id := <-w.queue:
				w.run(id)
			}
		}
	}()
}

// Stop waits for the running job. Jobs still queued stay in the queued state.
func (w *PurgeWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	log.Println("[PurgeWorker] Stopped")
}

// Submit queues a purge of everything created before olderThan.
func (w *PurgeWorker) Submit(olderThan time.Time) (Job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return Job{}, ErrStopped
	}
	w.pruneLocked()

	job := &Job{
		ID:          uuid.New().String(),
		State:       JobQueued,
		OlderThan:   olderThan.UTC(),
		SubmittedAt: w.now().UTC(),
	}

	select {
	case w.queue <- job.ID:
	default:
		return Job{}, ErrQueueFull
	}

	w.jobs[job.ID] = job
	return *job, nil
}

// Job returns a copy of the job's current state.
func (w *PurgeWorker) Job(id string) (Job, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// pruneLocked forgets finished jobs older than the retention window.
// Queued and running jobs are always kept. Callers hold w.mu.
func (w *PurgeWorker) pruneLocked() {
	cutoff := w.now().Add(-w.retention)
	for id, job := range w.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(w.jobs, id)
		}
	}
}

func (w *PurgeWorker) run(id string) {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	job.State = JobRunning
	cutoff := job.OlderThan
	w.mu.Unlock()

	removed, err := w.purger.PurgeOlderThan(context.Background(), cutoff)
	finished := w.now().UTC()

	w.mu.Lock()
	defer w.mu.Unlock()
	job.FinishedAt = &finished
	if err != nil {
		job.State = JobFailed
		job.Error = err.Error()
		log.Printf("[PurgeWorker] Job %s failed: %v\n", id, err)
		return
	}
	job.State = JobDone
	job.Removed = removed
	log.Printf("[PurgeWorker] Job %s removed %d notes\n", id, removed)
}

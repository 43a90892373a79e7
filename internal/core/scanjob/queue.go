// Package scanjob runs prefix scans in the background and keeps their
// results for later retrieval.
package scanjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/models"
	"github.com/markdave123-py/phiscan/internal/observability"
)

const queueLen = 64

// ErrQueueFull is returned when no more jobs can be accepted.
var ErrQueueFull = errors.New("scan queue is full")

// PrefixScanner scans every object under a prefix.
type PrefixScanner interface {
	ScanPrefix(ctx context.Context, bucket, prefix, startAfter string, sink core.ReportSink) (models.BatchSummary, error)
}

type Request struct {
	Bucket     string `json:"bucket"`
	Prefix     string `json:"prefix"`
	StartAfter string `json:"start_after,omitempty"`
}

type queued struct {
	id  string
	req Request
}

// Queue runs scan jobs on a fixed set of workers. Queued and running jobs
// are held until they finish; finished jobs move to an LRU cache and the
// oldest are evicted once it is full.
type Queue struct {
	scanner  PrefixScanner
	extra    func() core.ReportSink
	redactor *report.Redactor

	mu     sync.Mutex
	active map[string]*models.ScanJob
	jobs   *lru.Cache[string, *models.ScanJob]

	pending chan queued
	logger  *slog.Logger
}

// NewQueue keeps up to size jobs. extra, when set, is called per job for a
// sink that receives findings alongside the in-memory copy.
func NewQueue(scanner PrefixScanner, size int, extra func() core.ReportSink, logger *slog.Logger) (*Queue, error) {
	cache, err := lru.New[string, *models.ScanJob](size)
	if err != nil {
		return nil, fmt.Errorf("create job cache: %w", err)
	}
	return &Queue{
		scanner: scanner,
		extra:   extra,
		active:  make(map[string]*models.ScanJob),
		jobs:    cache,
		pending: make(chan queued, queueLen),
		logger:  observability.Component(logger, "scanjob"),
	}, nil
}

// SetRedactor makes jobs started afterwards store and forward redacted
// findings.
func (q *Queue) SetRedactor(r *report.Redactor) {
	q.redactor = r
}

// Start runs numWorkers workers until ctx is done.
func (q *Queue) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					q.logger.Info("Worker shutting down", "worker", w)
					return
				case job := <-q.pending:
					q.logger.Info("Processing job", "job_id", job.id, "worker", w)
					if err := q.processOne(ctx, job); err != nil {
						q.logger.Error("Job failed", "job_id", job.id, "error", err)
					}
				}
			}
		}(w)
	}
}

// Enqueue records a new job and schedules it.
func (q *Queue) Enqueue(req Request) (models.ScanJob, error) {
	job := &models.ScanJob{
		ID:        uuid.NewString(),
		Bucket:    req.Bucket,
		Prefix:    req.Prefix,
		Status:    models.JobQueued,
		CreatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.active[job.ID] = job
	snapshot := *job
	q.mu.Unlock()

	select {
	case q.pending <- queued{id: job.ID, req: req}:
		return snapshot, nil
	default:
		q.mu.Lock()
		delete(q.active, job.ID)
		q.mu.Unlock()
		return models.ScanJob{}, ErrQueueFull
	}
}

// Get returns a copy of the job without its findings.
func (q *Queue) Get(id string) (models.ScanJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.lookup(id)
	if !ok {
		return models.ScanJob{}, false
	}
	out := *job
	out.Findings = nil
	return out, true
}

// Findings returns the findings of a job collected so far.
func (q *Queue) Findings(id string) ([]models.Finding, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.lookup(id)
	if !ok {
		return nil, false
	}
	return append([]models.Finding{}, job.Findings...), true
}

// lookup must be called with q.mu held.
func (q *Queue) lookup(id string) (*models.ScanJob, bool) {
	if job, ok := q.active[id]; ok {
		return job, true
	}
	return q.jobs.Get(id)
}

func (q *Queue) update(id string, fn func(job *models.ScanJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.active[id]; ok {
		fn(job)
	}
}

// finish applies fn and moves the job into the cache of finished jobs.
func (q *Queue) finish(id string, fn func(job *models.ScanJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.active[id]
	if !ok {
		return
	}
	fn(job)
	delete(q.active, id)
	q.jobs.Add(id, job)
}

func (q *Queue) processOne(ctx context.Context, job queued) error {
	q.update(job.id, func(j *models.ScanJob) { j.Status = models.JobRunning })

	mem := report.NewMemorySink()
	var sink core.ReportSink = mem
	if q.extra != nil {
		sink = report.MultiSink{mem, q.extra()}
	}
	if q.redactor != nil {
		sink = report.NewRedactingSink(sink, q.redactor)
	}

	summary, err := q.scanner.ScanPrefix(ctx, job.req.Bucket, job.req.Prefix, job.req.StartAfter, sink)
	if closeErr := sink.Close(ctx); closeErr != nil && err == nil {
		err = closeErr
	}

	findings := mem.Findings()
	q.finish(job.id, func(j *models.ScanJob) {
		now := time.Now().UTC()
		j.FinishedAt = &now
		j.Summary = summary
		j.Findings = findings
		if err != nil {
			j.Status = models.JobFailed
			j.Error = err.Error()
			return
		}
		j.Status = models.JobSucceeded
	})
	return err
}

// Package queue holds the in-process assembly job queue. Jobs live in
// memory for the lifetime of the service; distributed scheduling is out
// of scope and handled, if at all, by whatever sits in front of the API.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelstitch/internal/ports"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is the payload of one assembly job. Either Voiceover points
// at an existing narration track, or Script is synthesized into one.
type Request struct {
	Voiceover string   `json:"voiceover,omitempty"`
	Script    string   `json:"script,omitempty"`
	Videos    []string `json:"videos"`
	Subtitles string   `json:"subtitles,omitempty"` // top|middle|bottom, empty disables
	Language  string   `json:"language,omitempty"`
}

type Job struct {
	ID         string    `json:"job_id"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Request    Request   `json:"request"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Runner executes one job and returns the final output path.
type Runner func(ctx context.Context, job Job) (string, error)

var ErrQueueFull = errors.New("job queue is full")

type Queue struct {
	runner   Runner
	notifier ports.Notifier
	logger   *slog.Logger

	mu   sync.Mutex
	jobs map[string]*Job
	subs map[string][]chan Job

	pending chan string
}

func New(runner Runner, notifier ports.Notifier, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
		jobs:     make(map[string]*Job),
		subs:     make(map[string][]chan Job),
		pending:  make(chan string, 128),
	}
}

func (q *Queue) Enqueue(req Request) (Job, error) {
	job := Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	q.mu.Lock()
	q.jobs[job.ID] = &job
	q.mu.Unlock()

	select {
	case q.pending <- job.ID:
	default:
		q.mu.Lock()
		delete(q.jobs, job.ID)
		q.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	q.logger.Info("job enqueued", "job_id", job.ID, "videos", len(req.Videos))
	return job, nil
}

func (q *Queue) Get(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Subscribe returns a channel of status snapshots for a job, starting
// with its current state, and a cancel func. The channel closes after a
// terminal state is delivered. Cancel only detaches the subscription;
// the terminal update path is the sole closer, so a concurrent cancel
// can never race an in-flight send.
func (q *Queue) Subscribe(id string) (<-chan Job, func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, nil, false
	}
	ch := make(chan Job, 8)
	ch <- *j
	if j.Status.Terminal() {
		close(ch)
		return ch, func() {}, true
	}
	q.subs[id] = append(q.subs[id], ch)
	cancel := func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		list := q.subs[id]
		for i, c := range list {
			if c == ch {
				q.subs[id] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
	return ch, cancel, true
}

// Run drains the queue until ctx is cancelled. One job at a time: the
// transcoder saturates the machine on its own.
func (q *Queue) Run(ctx context.Context) {
	q.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("worker stopped")
			return
		case id := <-q.pending:
			q.process(ctx, id)
		}
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	job, ok := q.Get(id)
	if !ok {
		q.logger.Warn("job missing, skipping", "job_id", id)
		return
	}
	q.logger.Info("job started", "job_id", id)
	q.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.Error = ""
	})

	out, err := q.runner(ctx, job)
	if err != nil {
		q.logger.Error("job failed", "job_id", id, "err", err)
		q.update(id, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		q.notify(ctx, id, "job_failed")
		return
	}
	q.logger.Info("job completed", "job_id", id, "output", out)
	q.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.OutputPath = out
	})
	q.notify(ctx, id, "job_completed")
}

func (q *Queue) update(id string, mutate func(*Job)) {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	mutate(j)
	j.UpdatedAt = time.Now().UTC()
	snapshot := *j
	subs := q.subs[id]
	if snapshot.Status.Terminal() {
		delete(q.subs, id)
	}
	q.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber: drop the intermediate update rather than
			// block the worker.
		}
		if snapshot.Status.Terminal() {
			close(ch)
		}
	}
}

func (q *Queue) notify(ctx context.Context, id, event string) {
	if q.notifier == nil {
		return
	}
	job, ok := q.Get(id)
	if !ok {
		return
	}
	data := map[string]any{
		"job_id": job.ID,
		"status": string(job.Status),
	}
	if job.OutputPath != "" {
		data["output_path"] = job.OutputPath
	}
	if job.Error != "" {
		data["error"] = job.Error
	}
	if err := q.notifier.Notify(ctx, event, data); err != nil {
		// Notification failure never fails the job.
		q.logger.Warn("webhook delivery failed", "job_id", id, "err", err)
	}
}

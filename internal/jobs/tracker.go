// Package jobs polls ingestion jobs on behalf of workbench sessions.
package jobs

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/events"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"go.uber.org/zap"
)

// JobClient fetches the current state of a job.
type JobClient interface {
	Job(ctx context.Context, jobID int64) (*types.Job, error)
}

// DoneHook runs once a watch stops, whatever the reason.
type DoneHook func(ctx context.Context, sessionID string, jobID int64)

const (
	outcomeRunning   = "running"
	outcomeTerminal  = "terminal"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
	outcomeExpired   = "expired"
)

type watchKey struct {
	sessionID string
	jobID     int64
}

// Tracker owns one polling goroutine per watched job. Every poller is bound
// to its session and stops when the session closes.
type Tracker struct {
	client      JobClient
	publisher   events.Publisher
	interval    time.Duration
	maxLifetime time.Duration
	log         *zap.SugaredLogger
	metrics     *trackerMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	watches map[watchKey]context.CancelFunc
	onDone  []DoneHook
	closed  bool
}

// NewTracker polls client every interval. A zero maxLifetime never expires.
func NewTracker(client JobClient, publisher events.Publisher, interval, maxLifetime time.Duration) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		client:      client,
		publisher:   publisher,
		interval:    interval,
		maxLifetime: maxLifetime,
		log:         logger.GetLogger().Named("job_tracker"),
		metrics:     newTrackerMetrics(),
		ctx:         ctx,
		cancel:      cancel,
		watches:     make(map[watchKey]context.CancelFunc),
	}
}

// OnDone registers a hook that runs after each watch ends.
func (t *Tracker) OnDone(hook DoneHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDone = append(t.onDone, hook)
}

// Watch starts polling job for sessionID. A job already in a terminal state
// is reported immediately without polling. Watching the same job twice in a
// session is a no-op.
func (t *Tracker) Watch(sessionID string, job types.Job) error {
	if sessionID == "" {
		return apperrors.ValidationFailed("invalid job watch", "session ID is required")
	}
	if job.ID <= 0 {
		return apperrors.ValidationFailed("invalid job watch", "job ID is required")
	}

	if job.Status.IsTerminal() {
		t.publish(sessionID, types.EventTypeJobFinished, job, "")
		t.runDoneHooks(sessionID, job.ID)
		return nil
	}

	key := watchKey{sessionID: sessionID, jobID: job.ID}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return apperrors.New(apperrors.ServerError, "tracker closed", "job tracker is shut down")
	}
	if _, exists := t.watches[key]; exists {
		t.mu.Unlock()
		return nil
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if t.maxLifetime > 0 {
		ctx, cancel = context.WithTimeout(t.ctx, t.maxLifetime)
	} else {
		ctx, cancel = context.WithCancel(t.ctx)
	}
	t.watches[key] = cancel
	t.wg.Add(1)
	t.mu.Unlock()

	t.metrics.activePollers.Inc()
	t.log.Infow("Watching job", "sessionID", sessionID, "jobID", job.ID, "status", job.Status)

	t.publish(sessionID, types.EventTypeJobProgress, job, "")
	go t.poll(ctx, key, job)
	return nil
}

func (t *Tracker) poll(ctx context.Context, key watchKey, last types.Job) {
	defer func() {
		t.mu.Lock()
		if cancel, ok := t.watches[key]; ok {
			cancel()
			delete(t.watches, key)
		}
		t.mu.Unlock()
		t.metrics.activePollers.Dec()
		t.runDoneHooks(key.sessionID, key.jobID)
		t.wg.Done()
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				t.metrics.polls.WithLabelValues(outcomeExpired).Inc()
				t.log.Warnw("Job watch exceeded its lifetime", "sessionID", key.sessionID, "jobID", key.jobID)
				t.publish(key.sessionID, types.EventTypeJobFailed, last, "stopped polling after the maximum watch time")
				return
			}
			t.metrics.polls.WithLabelValues(outcomeCancelled).Inc()
			t.log.Debugw("Job watch cancelled", "sessionID", key.sessionID, "jobID", key.jobID)
			return
		case <-ticker.C:
			job, err := t.client.Job(ctx, key.jobID)
			if err != nil {
				if ctx.Err() != nil {
					// Cancelled mid-request; the next loop iteration reports it.
					continue
				}
				t.metrics.polls.WithLabelValues(outcomeError).Inc()
				t.log.Warnw("Job poll failed", "sessionID", key.sessionID, "jobID", key.jobID, "error", err)
				t.publish(key.sessionID, types.EventTypeJobFailed, last, err.Error())
				return
			}

			if job.Status.IsTerminal() {
				t.metrics.polls.WithLabelValues(outcomeTerminal).Inc()
				t.log.Infow("Job finished", "sessionID", key.sessionID, "jobID", key.jobID, "status", job.Status)
				t.publish(key.sessionID, types.EventTypeJobFinished, *job, "")
				return
			}

			t.metrics.polls.WithLabelValues(outcomeRunning).Inc()
			if job.Status != last.Status || job.ProcessedFiles != last.ProcessedFiles {
				t.publish(key.sessionID, types.EventTypeJobProgress, *job, "")
			}
			last = *job
		}
	}
}

// Stop cancels a single watch.
func (t *Tracker) Stop(sessionID string, jobID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cancel, ok := t.watches[watchKey{sessionID: sessionID, jobID: jobID}]; ok {
		cancel()
	}
}

// StopSession cancels every watch owned by sessionID. Its signature matches
// the workbench close hook.
func (t *Tracker) StopSession(ctx context.Context, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, cancel := range t.watches {
		if key.sessionID == sessionID {
			cancel()
		}
	}
}

// Active returns the ids of jobs being watched for sessionID.
func (t *Tracker) Active(sessionID string) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []int64
	for key := range t.watches {
		if key.sessionID == sessionID {
			ids = append(ids, key.jobID)
		}
	}
	return ids
}

// Count returns the number of running pollers.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watches)
}

// Shutdown cancels every poller and waits for them to exit or ctx to end.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.log.Info("Job tracker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) publish(sessionID string, eventType types.EventType, job types.Job, message string) {
	if t.publisher == nil {
		return
	}
	payload := types.JobEventPayload{Job: job, Progress: job.Progress(), Error: message}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := events.Emit(ctx, t.publisher, eventType, sessionID, payload); err != nil {
		t.log.Warnw("Failed to publish job event", "sessionID", sessionID, "jobID", job.ID, "type", eventType, "error", err)
	}
}

func (t *Tracker) runDoneHooks(sessionID string, jobID int64) {
	t.mu.Lock()
	hooks := append([]DoneHook(nil), t.onDone...)
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, hook := range hooks {
		hook(ctx, sessionID, jobID)
	}
}

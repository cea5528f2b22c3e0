package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

const (
	heartbeatEvery = 30 * time.Second
	claimIdleEvery = 30 * time.Second
	sweepEvery     = time.Minute
	deadAfter      = 5 * time.Minute
	stuckAfter     = 15 * time.Minute

	// Claimed-but-not-yet-executing tasks the runner will hold at once.
	// Execution itself is strictly serial.
	claimBuffer = 5
)

// Runner is one worker process: it registers itself, claims tasks, executes
// them under a watchdog and reschedules the periodic kinds.
type Runner struct {
	log      *logger.Logger
	queue    repos.WorkerTaskRepo
	registry repos.WorkerRegistryRepo
	handlers map[string]Handler
	metrics  *Metrics

	id uuid.UUID
}

func NewRunner(baseLog *logger.Logger, queue repos.WorkerTaskRepo, registry repos.WorkerRegistryRepo, tasks *Tasks, metrics *Metrics) *Runner {
	return &Runner{
		log:      baseLog.With("service", "WorkerRunner"),
		queue:    queue,
		registry: registry,
		handlers: tasks.Handlers(),
		metrics:  metrics,
	}
}

// Run blocks until ctx is canceled. The registration row is removed on the
// way out; anything still in flight is reverted by the next sweep.
func (r *Runner) Run(ctx context.Context) error {
	id, err := r.registry.Register(ctx, nil)
	if err != nil {
		return err
	}
	r.id = id
	log := r.log.With("worker_id", id.String())
	log.Info("worker registered")

	// The queue must always hold a sync row or the fan-out stalls.
	if _, _, err := r.queue.EnqueueUnlessPending(ctx, nil, types.TaskSync, nil, nil); err != nil {
		log.Warn("seed sync task", "error", err)
	}

	claimed := make(chan *types.WorkerTask, claimBuffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.heartbeatLoop(gctx, log) })
	g.Go(func() error { return r.sweepLoop(gctx, log) })
	g.Go(func() error { return r.claimLoop(gctx, log, claimed) })
	g.Go(func() error { return r.executeLoop(gctx, log, claimed) })

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if dErr := r.registry.Deregister(shutdownCtx, nil, id); dErr != nil {
		log.Warn("deregister", "error", dErr)
	}
	log.Info("worker stopped")
	if err == context.Canceled {
		return nil
	}
	return err
}

func (r *Runner) heartbeatLoop(ctx context.Context, log *logger.Logger) error {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := r.registry.Heartbeat(ctx, nil, r.id, now.UTC()); err != nil {
				log.Warn("heartbeat", "error", err)
			}
		}
	}
}

func (r *Runner) sweepLoop(ctx context.Context, log *logger.Logger) error {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick := <-ticker.C:
			now := tick.UTC()
			if removed, err := r.registry.SweepDead(ctx, nil, r.queue, now.Add(-deadAfter)); err != nil {
				log.Warn("sweep dead workers", "error", err)
			} else if len(removed) > 0 {
				log.Info("reaped dead workers", "count", len(removed))
			}
			if n, err := r.queue.TimeoutStuck(ctx, nil, now.Add(-stuckAfter), now); err != nil {
				log.Warn("timeout stuck tasks", "error", err)
			} else if n > 0 {
				log.Info("timed out stuck tasks", "count", n)
			}
			if n, err := r.queue.ReleaseOrphans(ctx, nil); err != nil {
				log.Warn("release orphan tasks", "error", err)
			} else if n > 0 {
				log.Info("released orphan tasks", "count", n)
			}
		}
	}
}

// claimLoop drains the queue into the bounded channel. It spins while work
// is available and falls back to the idle cadence once the queue is empty.
func (r *Runner) claimLoop(ctx context.Context, log *logger.Logger, out chan<- *types.WorkerTask) error {
	defer close(out)
	ticker := time.NewTicker(claimIdleEvery)
	defer ticker.Stop()
	for {
		task, err := r.queue.Claim(ctx, r.id, time.Now().UTC())
		if err != nil {
			log.Warn("claim", "error", err)
		}
		if task != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- task:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) executeLoop(ctx context.Context, log *logger.Logger, in <-chan *types.WorkerTask) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-in:
			if !ok {
				return nil
			}
			r.execute(ctx, log, task)
		}
	}
}

type taskResult struct {
	logs []string
	err  error
}

// execute runs one task under the watchdog and records its terminal state.
// The handler goroutine is abandoned on timeout; its context is canceled so
// in-flight gateway calls unwind.
func (r *Runner) execute(ctx context.Context, log *logger.Logger, task *types.WorkerTask) {
	handler, ok := r.handlers[task.Task]
	start := time.Now()
	tlog := log.With("task_id", task.ID.String(), "task", task.Task)

	if !ok {
		now := time.Now().UTC()
		_ = r.queue.Fail(ctx, nil, task.ID, fmt.Sprintf("unknown task kind %q", task.Task), now)
		r.metrics.Observe(r.id.String(), task.Task, types.TaskError, time.Since(start).Seconds())
		tlog.Error("unknown task kind")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan taskResult, 1)
	go func() {
		logs, err := handler(runCtx, task)
		done <- taskResult{logs: logs, err: err}
	}()

	watchdog := time.NewTimer(stuckAfter)
	defer watchdog.Stop()

	var status string
	now := time.Now().UTC()
	select {
	case res := <-done:
		now = time.Now().UTC()
		if res.err != nil {
			status = types.TaskError
			if fErr := r.queue.Fail(ctx, nil, task.ID, res.err.Error(), now); fErr != nil {
				tlog.Error("record failure", "error", fErr)
			}
			if apperror.Retryable(res.err) {
				tlog.Warn("task failed, will retry on next cadence", "error", res.err)
			} else {
				tlog.Error("task failed", "error", res.err)
			}
		} else {
			status = types.TaskDone
			if cErr := r.queue.Complete(ctx, nil, task.ID, res.logs, now); cErr != nil {
				tlog.Error("record completion", "error", cErr)
			}
		}
	case <-watchdog.C:
		cancel()
		now = time.Now().UTC()
		status = types.TaskTimeout
		if tErr := r.queue.MarkTimeout(ctx, nil, task.ID, now); tErr != nil {
			tlog.Error("record timeout", "error", tErr)
		}
		tlog.Error("task exceeded watchdog")
	case <-ctx.Done():
		// Shutdown mid-task: leave the row in progress; the sweep or our
		// own deregistration recovery will revert it.
		return
	}

	r.metrics.Observe(r.id.String(), task.Task, status, time.Since(start).Seconds())
	r.reschedule(ctx, tlog, task, now)
}

// reschedule enqueues the successor row for periodic kinds, carrying the
// payload forward verbatim.
func (r *Runner) reschedule(ctx context.Context, log *logger.Logger, task *types.WorkerTask, now time.Time) {
	wait := nextWait(task.Task, now)
	if wait == nil {
		return
	}
	var payload map[string]any
	if len(task.AdditionalData) > 0 {
		if err := json.Unmarshal(task.AdditionalData, &payload); err != nil {
			log.Warn("reschedule payload", "error", err)
			payload = nil
		}
	}
	if _, _, err := r.queue.EnqueueUnlessPending(ctx, nil, task.Task, payload, wait); err != nil {
		log.Warn("reschedule", "error", err)
	}
}

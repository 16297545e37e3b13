// Package worker runs detached confirmations (receipt waits) off the request path.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cockroachdb/errors"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 8
	DefaultQueueSize = 256
)

// Func is the body of a background task. It must honour ctx cancellation.
type Func func(ctx context.Context) error

// Task is a cancellable background job with a completion channel.
type Task struct {
	Key       string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel asks the task to stop. Transactions already sent are not affected.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the task returns.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err is the task's result. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runner executes tasks on a bounded pond pool, at most one live task per key.
type Runner struct {
	pool   pond.Pool
	tasks  *xsync.Map[string, *Task]
	ctx    context.Context
	stop   context.CancelFunc
	logger *zap.Logger
}

func NewRunner(workers, queueSize int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Runner{
		pool:   pond.NewPool(workers, pond.WithQueueSize(queueSize)),
		tasks:  xsync.NewMap[string, *Task](),
		ctx:    ctx,
		stop:   stop,
		logger: logger,
	}
}

// Go schedules fn under key. A live task with the same key is cancelled and replaced.
func (r *Runner) Go(key string, fn Func) (*Task, error) {
	ctx, cancel := context.WithCancel(r.ctx)
	task := &Task{Key: key, StartedAt: time.Now(), cancel: cancel, done: make(chan struct{})}

	if previous, loaded := r.tasks.LoadAndStore(key, task); loaded {
		previous.Cancel()
	}

	err := r.pool.Go(func() {
		defer r.finish(task)
		defer func() {
			if p := recover(); p != nil {
				task.err = errors.Newf("task %s panicked: %v", key, p)
				r.logger.Error("background task panicked", zap.String("key", key), zap.String("panic", fmt.Sprint(p)))
			}
		}()
		task.err = fn(ctx)
	})
	if err != nil {
		task.err = errors.Wrap(err, "schedule task")
		r.finish(task)
		return nil, task.err
	}
	return task, nil
}

func (r *Runner) finish(task *Task) {
	task.cancel()
	r.tasks.Compute(task.Key, func(current *Task, loaded bool) (*Task, xsync.ComputeOp) {
		if loaded && current == task {
			return nil, xsync.DeleteOp
		}
		return current, xsync.CancelOp
	})
	if task.err != nil && !errors.Is(task.err, context.Canceled) {
		r.logger.Warn("background task failed", zap.String("key", task.Key), zap.Error(task.err))
	}
	close(task.done)
}

// Task returns the live task for key.
func (r *Runner) Task(key string) (*Task, bool) {
	return r.tasks.Load(key)
}

// Cancel cancels the live task for key and reports whether there was one.
func (r *Runner) Cancel(key string) bool {
	task, ok := r.tasks.Load(key)
	if ok {
		task.Cancel()
	}
	return ok
}

// Running is the number of live tasks.
func (r *Runner) Running() int {
	return r.tasks.Size()
}

// Stop cancels every task and waits for the pool to drain.
func (r *Runner) Stop() {
	r.stop()
	r.pool.StopAndWait()
}

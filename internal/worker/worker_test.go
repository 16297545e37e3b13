package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task %s did not finish", task.Key)
	}
}

func TestRunnerCompletes(t *testing.T) {
	r := NewRunner(2, 4, nil)
	defer r.Stop()

	boom := errors.New("boom")
	task, err := r.Go("u1:lock", func(context.Context) error { return boom })
	require.NoError(t, err)
	waitDone(t, task)
	assert.ErrorIs(t, task.Err(), boom)

	assert.Eventually(t, func() bool { return r.Running() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := r.Task("u1:lock")
	assert.False(t, ok)
}

func TestRunnerCancel(t *testing.T) {
	r := NewRunner(1, 1, nil)
	defer r.Stop()

	started := make(chan struct{})
	task, err := r.Go("u1:approve", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	assert.True(t, r.Cancel("u1:approve"))
	waitDone(t, task)
	assert.ErrorIs(t, task.Err(), context.Canceled)
	assert.False(t, r.Cancel("missing"))
}

func TestRunnerReplacesSameKey(t *testing.T) {
	r := NewRunner(2, 4, nil)
	defer r.Stop()

	first, err := r.Go("u1", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	second, err := r.Go("u1", func(context.Context) error { return nil })
	require.NoError(t, err)

	waitDone(t, first)
	waitDone(t, second)
	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, second.Err())
}

func TestRunnerRecoversPanic(t *testing.T) {
	r := NewRunner(1, 1, nil)
	defer r.Stop()

	task, err := r.Go("p", func(context.Context) error { panic("nope") })
	require.NoError(t, err)
	waitDone(t, task)
	assert.ErrorContains(t, task.Err(), "panicked")
}

func TestTaskWaitHonoursContext(t *testing.T) {
	r := NewRunner(1, 1, nil)
	defer r.Stop()

	release := make(chan struct{})
	task, err := r.Go("slow", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
	assert.Nil(t, task.Err())

	close(release)
	require.NoError(t, task.Wait(context.Background()))
}

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestBackgroundProcessManager_Lifecycle(t *testing.T) {
	bpm := NewBackgroundProcessManager(context.Background())

	started := make(chan struct{}, 2)
	blocking := func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	bpm.StartProcess("scheduler", "runs passes", blocking)
	bpm.StartProcess("api", "status api", blocking)
	<-started
	<-started

	procs := bpm.ListProcesses()
	require.Len(t, procs, 2)
	assert.Equal(t, "api", procs[0].Name)

	bpm.StopProcess("api")
	assert.Equal(t, 1, bpm.GetProcessCount())

	assert.NoError(t, bpm.Shutdown(time.Second))
	assert.Equal(t, 0, bpm.GetProcessCount())
}

func TestBackgroundProcessManager_FailuresAreReported(t *testing.T) {
	bpm := NewBackgroundProcessManager(context.Background())

	bpm.StartProcess("broken", "fails at once", func(context.Context) error {
		return errors.New("listen: address in use")
	})
	bpm.StartProcess("panics", "panics at once", func(context.Context) error {
		panic("boom")
	})
	waitFor(t, func() bool { return bpm.GetProcessCount() == 0 })

	err := bpm.Shutdown(time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
	assert.Contains(t, err.Error(), "panics: panic")
}

func TestBackgroundProcessManager_ShutdownTimeout(t *testing.T) {
	bpm := NewBackgroundProcessManager(context.Background())
	release := make(chan struct{})
	defer close(release)

	bpm.StartProcess("stuck", "ignores cancellation", func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, bpm.Shutdown(10*time.Millisecond), context.DeadlineExceeded)
}

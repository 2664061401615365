package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaintenanceWorkerRejectsBadSchedule(t *testing.T) {
	_, err := NewMaintenanceWorker(nil, 0, MaintenanceJob{
		Name:     "broken",
		Schedule: "every now and then",
		Run:      func(context.Context) (int64, error) { return 0, nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunOnceInvokesSweeperWithDeadline(t *testing.T) {
	var hadDeadline bool
	job := MaintenanceJob{
		Name:     "quote-expiry",
		Schedule: "@every 15m",
		Run: func(ctx context.Context) (int64, error) {
			_, hadDeadline = ctx.Deadline()
			return 3, nil
		},
	}
	w, err := NewMaintenanceWorker(nil, 0, job)
	require.NoError(t, err)

	w.RunOnce(context.Background(), job)
	assert.True(t, hadDeadline)
}

func TestRunOnceSwallowsSweepErrors(t *testing.T) {
	calls := 0
	job := MaintenanceJob{
		Name:     "media-purge",
		Schedule: "@hourly",
		Run: func(context.Context) (int64, error) {
			calls++
			return 0, errors.New("db down")
		},
	}
	w, err := NewMaintenanceWorker(nil, 0, job)
	require.NoError(t, err)

	w.Start()
	w.RunOnce(context.Background(), job)
	w.Stop()
	assert.Equal(t, 1, calls)
}

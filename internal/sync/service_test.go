package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnce_RejectedWhileRunning(t *testing.T) {
	store := newTestStorage(t)
	service := NewService(&fakeSource{}, store, testLogger(), 100, "")

	// A running row in sync_logs blocks new runs even without an
	// in-process lock holder, covering restarts.
	_, err := store.StartSyncLog("full")
	require.NoError(t, err)

	_, err = service.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSyncRunning)
}

func TestCurrentStatus_NeverSynced(t *testing.T) {
	store := newTestStorage(t)
	service := NewService(&fakeSource{}, store, testLogger(), 100, "")

	status, err := service.CurrentStatus()
	require.NoError(t, err)
	assert.Equal(t, StatusNeverSynced, status.Status)
	assert.Nil(t, status.LastRun)
}

func TestCurrentStatus_AfterRuns(t *testing.T) {
	store := newTestStorage(t)
	service := NewService(&fakeSource{returns: makeReturns(3)}, store, testLogger(), 100, "")

	result, err := service.RunOnce(context.Background())
	require.NoError(t, err)

	status, err := service.CurrentStatus()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, result.RunID, status.LastRun.ID)
	assert.Equal(t, 3, status.LastRun.Created)
}

func TestCurrentStatus_Running(t *testing.T) {
	store := newTestStorage(t)
	service := NewService(&fakeSource{}, store, testLogger(), 100, "")

	_, err := store.StartSyncLog("full")
	require.NoError(t, err)

	status, err := service.CurrentStatus()
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status.Status)
}

func TestCurrentStatus_Failed(t *testing.T) {
	store := newTestStorage(t)
	service := NewService(&fakeSource{
		returns:  makeReturns(5),
		failWith: &warehanceTransient{},
	}, store, testLogger(), 100, "")

	_, err := service.RunOnce(context.Background())
	require.Error(t, err)

	status, statusErr := service.CurrentStatus()
	require.NoError(t, statusErr)
	assert.Equal(t, StatusFailed, status.Status)
	require.NotNil(t, status.LastRun)
	assert.NotEmpty(t, status.LastRun.ErrorMessage)
}

type warehanceTransient struct{}

func (warehanceTransient) Error() string { return "upstream unavailable" }

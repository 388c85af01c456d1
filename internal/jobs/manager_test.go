package jobs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/jobs"
)

func TestCreateAndGet(t *testing.T) {
	manager := jobs.NewManager()

	job, ctx := manager.Create("train", "train knn on iris")
	require.NotEmpty(t, job.ID)
	assert.Equal(t, jobs.JobPending, job.GetStatus())
	assert.NoError(t, ctx.Err())

	found, ok := manager.Get(job.ID)
	require.True(t, ok)
	assert.Same(t, job, found)

	_, ok = manager.Get("no-such-id")
	assert.False(t, ok)
}

func TestJobLifecycle(t *testing.T) {
	manager := jobs.NewManager()
	job, _ := manager.Create("train", "")

	job.SetStatus(jobs.JobRunning)
	job.SetProgress(0.5)
	job.AddLog("halfway")

	assert.Equal(t, jobs.JobRunning, job.GetStatus())
	assert.Equal(t, 0.5, job.GetProgress())
	assert.Equal(t, []string{"halfway"}, job.GetLogs())

	job.Complete("model-name")
	assert.Equal(t, jobs.JobCompleted, job.GetStatus())
	assert.Equal(t, "model-name", job.GetResult())
	assert.NoError(t, job.GetError())
}

func TestJobFail(t *testing.T) {
	manager := jobs.NewManager()
	job, _ := manager.Create("train", "")

	trainErr := errors.New("dataset too small")
	job.Fail(trainErr)

	assert.Equal(t, jobs.JobFailed, job.GetStatus())
	assert.Same(t, trainErr, job.GetError())
}

func TestCancelStopsContext(t *testing.T) {
	manager := jobs.NewManager()
	job, ctx := manager.Create("train", "")
	job.SetStatus(jobs.JobRunning)

	require.NoError(t, manager.Cancel(job.ID))
	assert.Equal(t, jobs.JobCancelled, job.GetStatus())

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context not cancelled")
	}

	assert.Error(t, manager.Cancel(job.ID), "cannot cancel twice")
	assert.Error(t, manager.Cancel("missing"))
}

func TestListNewestFirst(t *testing.T) {
	manager := jobs.NewManager()

	first, _ := manager.Create("train", "first")
	time.Sleep(5 * time.Millisecond)
	second, _ := manager.Create("train", "second")

	list := manager.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

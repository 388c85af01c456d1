package commander

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlfit/internal/dataset"
	"mlfit/internal/jobs"
	"mlfit/internal/persistence"
)

func blobs(t *testing.T) *dataset.Dataset {
	t.Helper()
	var X [][]decimal.Decimal
	var classes []int
	for i := 0; i < 5; i++ {
		X = append(X, []decimal.Decimal{
			decimal.NewFromInt(int64(i)), decimal.NewFromInt(int64(i)),
		})
		classes = append(classes, 0)
		X = append(X, []decimal.Decimal{
			decimal.NewFromInt(int64(10 + i)), decimal.NewFromInt(int64(10 + i)),
		})
		classes = append(classes, 1)
	}
	ds, err := dataset.NewClassification(X, classes, nil, nil)
	require.NoError(t, err)
	return ds
}

func waitForJob(t *testing.T, job *jobs.Job) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		status := job.GetStatus()
		if status != jobs.JobPending && status != jobs.JobRunning {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s still %s", job.ID, status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBackgroundTrainingPublishesBundle(t *testing.T) {
	c := NewCommander()
	c.data = blobs(t)
	c.dataFile = "blobs.csv"

	require.Nil(t, c.currentBundle())
	c.cmdTrain([]string{"knn", "k=1"})

	all := c.jobManager.List()
	require.Len(t, all, 1)
	waitForJob(t, all[0])

	require.Equal(t, jobs.JobCompleted, all[0].GetStatus())
	bundle := c.currentBundle()
	require.NotNil(t, bundle)
	assert.Equal(t, "knn", bundle.Metadata.FitterName)
	assert.Equal(t, "blobs.csv", bundle.Metadata.Dataset)
	assert.NotNil(t, bundle.Model)
}

func TestStreamCommandLoadsDatasetInBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := "a,b,label\n1,2,x\n3,4,y\n5,6,x\n7,8,y\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := NewCommander()
	c.cmdStream([]string{path, "2"})

	require.NotNil(t, c.data)
	assert.Equal(t, 4, c.data.Len())
	assert.Equal(t, path, c.dataFile)
	require.NotNil(t, c.encoder)
	assert.Equal(t, []string{"x", "y"}, c.encoder.ClassNames())
}

func TestBundleAccessFromConcurrentGoroutines(t *testing.T) {
	c := NewCommander()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			c.setBundle(&persistence.ModelBundle{})
		}
	}()
	for i := 0; i < 1000; i++ {
		c.currentBundle()
	}
	<-done

	assert.NotNil(t, c.currentBundle())
}

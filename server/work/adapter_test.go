package work

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/safepoint/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerform(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC", 1)

	var mu sync.Mutex
	received := []interface{}{}

	err := workerPool.Register("collect", func(args map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, args["delivery_id"])
		return nil
	})
	require.Nil(t, err)

	err = workerPool.Perform(JobParams{
		Name:    "collect-1",
		Handler: "collect",
		Args:    map[string]interface{}{"delivery_id": 1},
	})
	require.Nil(t, err)

	workerPool.Start()
	defer workerPool.Stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 3*time.Second, 20*time.Millisecond)

	// json numbers are decoded as float64
	assert.Equal(t, float64(1), received[0])

	assert.Eventually(t, func() bool {
		stats, err := models.CurrentJobsStats()
		return err == nil && stats.SuccessfulJobCount == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPerformWakesIdleWorkers(t *testing.T) {
	models.InitializeTestDb()

	savedBackoffs := SleepBackoffsInSeconds
	SleepBackoffsInSeconds = []int64{0, 60}
	defer func() { SleepBackoffsInSeconds = savedBackoffs }()

	workerPool := NewWorkerAdapter("UTC", 1)

	var mu sync.Mutex
	ran := false
	require.Nil(t, workerPool.Register("collect", func(args map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		ran = true
		return nil
	}))

	workerPool.Start()
	defer workerPool.Stop()

	// Let the worker find an empty queue & back off for a minute
	time.Sleep(200 * time.Millisecond)

	require.Nil(t, workerPool.Perform(JobParams{Name: "collect-1", Handler: "collect"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPerformIgnoresDuplicateJobs(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC", 1)
	job := JobParams{Name: "backup", Handler: "backup", Args: map[string]interface{}{}}

	assert.Nil(t, workerPool.Perform(job))
	assert.Nil(t, workerPool.Perform(job))

	stats, err := models.CurrentJobsStats()
	require.Nil(t, err)
	assert.Equal(t, int64(1), stats.EnqueuedJobCount)
}

func TestPerformRequiresNameAndHandler(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC", 1)
	assert.NotNil(t, workerPool.Perform(JobParams{Name: "no-handler"}))
	assert.NotNil(t, workerPool.Perform(JobParams{Handler: "no-name"}))
}

func TestFailingJobEventuallyDies(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC", 1)

	var mu sync.Mutex
	attempts := 0
	err := workerPool.Register("explode", func(args map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("boom")
	})
	require.Nil(t, err)

	require.Nil(t, workerPool.Perform(JobParams{Name: "explode-1", Handler: "explode"}))

	workerPool.Start()
	defer workerPool.Stop()

	assert.Eventually(t, func() bool {
		stats, err := models.CurrentJobsStats()
		return err == nil && stats.DeadJobCount == 1
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, MAX_FAILS, attempts)
	mu.Unlock()

	jobs, _, err := models.FetchJobs(1, models.DEAD_JOB)
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "boom", jobs[0].LastError)
	assert.Equal(t, MAX_FAILS, jobs[0].Fails)
}

func TestPeriodicallyPerformRejectsBadExpression(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", 1)

	err := workerPool.PeriodicallyPerform("not a cron expression", JobParams{Name: "backup", Handler: "backup"})
	assert.NotNil(t, err)

	err = workerPool.PeriodicallyPerform("0 */6 * * *", JobParams{Name: "backup", Handler: "backup"})
	assert.Nil(t, err)
	assert.Nil(t, workerPool.RemovePeriodicJob("backup"))
}

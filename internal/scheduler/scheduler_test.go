package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/futures/backend/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if n <= j.failures {
		return errors.New("bulletin not published yet")
	}
	return nil
}

func newTestScheduler(maxRetries int) *Scheduler {
	return New(logger.NewNop(), time.FixedZone("CST", 8*3600), WithRetry(maxRetries, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler(0)

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 30 17 * * MON-FRI"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 */15 * * * *"}))

	err := s.AddJob(&countingJob{name: "a", schedule: "0 */15 * * * *"})
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(0)

	// five fields: the parser expects seconds first
	err := s.AddJob(&countingJob{name: "x", schedule: "30 17 * * *"})
	assert.Error(t, err)
	assert.Empty(t, s.GetAllJobs())
}

func TestRunJobRetries(t *testing.T) {
	s := newTestScheduler(3)
	job := &countingJob{name: "main_series", schedule: "0 30 17 * * *", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "main_series")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, int32(3), job.calls.Load())
}

func TestRunJobGivesUp(t *testing.T) {
	s := newTestScheduler(1)
	job := &countingJob{name: "main_series", schedule: "0 30 17 * * *", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "main_series")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not published")
	assert.Equal(t, int32(2), job.calls.Load())

	history, err := s.GetJobHistory("main_series")
	require.NoError(t, err)
	assert.Len(t, history.GetFailedResults(), 1)

	stats := s.GetJobStats()["main_series"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobStopsRetryingOnCancel(t *testing.T) {
	s := New(logger.NewNop(), nil, WithRetry(5, time.Hour))
	job := &countingJob{name: "main_series", schedule: "0 30 17 * * *", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := s.RunJob(ctx, "main_series")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestRunUnknownJob(t *testing.T) {
	s := newTestScheduler(0)
	_, err := s.RunJob(context.Background(), "nope")
	assert.Error(t, err)

	_, err = s.GetJobHistory("nope")
	assert.Error(t, err)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%4 != 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.InDelta(t, 0.75, h.GetSuccessRate(), 0.01)
}

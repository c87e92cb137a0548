package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elmarb/edurate/pkg/logger"
)

type stubJob struct {
	name string
	ran  chan struct{}
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return "0 0 2 * * *" }

func (j *stubJob) Run(_ context.Context) error {
	close(j.ran)
	return nil
}

func TestAddJobRejectsDuplicate(t *testing.T) {
	sched := New(logger.NewNop())

	require.NoError(t, sched.AddJob(&stubJob{name: "rating_recalculation", ran: make(chan struct{})}))
	assert.Error(t, sched.AddJob(&stubJob{name: "rating_recalculation", ran: make(chan struct{})}))

	assert.Equal(t, []string{"rating_recalculation"}, sched.Jobs())
}

func TestRunJobRecordsHistory(t *testing.T) {
	sched := New(logger.NewNop())
	job := &stubJob{name: "rating_recalculation", ran: make(chan struct{})}
	require.NoError(t, sched.AddJob(job))

	require.NoError(t, sched.RunJob("rating_recalculation"))

	select {
	case <-job.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	// RunJob records the result after Run returns; poll briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		history, err := sched.History("rating_recalculation")
		require.NoError(t, err)
		if len(history.Results) > 0 {
			assert.True(t, history.Results[0].Success)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job result was not recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunJobUnknown(t *testing.T) {
	sched := New(logger.NewNop())

	assert.Error(t, sched.RunJob("nope"))

	_, err := sched.History("nope")
	assert.Error(t, err)
}

func TestJobHistoryKeepsLast100(t *testing.T) {
	history := &JobHistory{}
	for i := 0; i < 150; i++ {
		history.AddResult(JobResult{JobName: "rating_recalculation", Success: true})
	}

	assert.Len(t, history.Results, 100)
}

func TestJobHistoryLatest(t *testing.T) {
	history := &JobHistory{}
	for i := 0; i < 5; i++ {
		history.AddResult(JobResult{StartTime: time.Now().Add(time.Duration(i) * time.Minute)})
	}

	latest := history.Latest(3)
	assert.Len(t, latest, 3)
	assert.Equal(t, history.Results[2], latest[0])

	assert.Len(t, history.Latest(10), 5)
	assert.Empty(t, (&JobHistory{}).Latest(3))
}

func TestJobHistorySuccessRate(t *testing.T) {
	history := &JobHistory{}
	assert.Equal(t, 0.0, history.SuccessRate())

	history.AddResult(JobResult{Success: true})
	history.AddResult(JobResult{Success: true})
	history.AddResult(JobResult{Success: false})
	history.AddResult(JobResult{Success: true})

	assert.InDelta(t, 0.75, history.SuccessRate(), 1e-9)
}

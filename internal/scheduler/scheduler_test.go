package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

type fakeAlerts struct{ cleared int }

func (f *fakeAlerts) ClearAcknowledged() int {
	f.cleared++
	return 2
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"@every 1m", true},
		{"@hourly", true},
		{"0 */5 * * * *", true},
		{"*/5 * * * *", true},
		{"0 9 * * MON-FRI", true},
		{"every minute", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			_, err := ParseSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "a"}

	require.NoError(t, s.AddJob("@every 1h", job))
	assert.Error(t, s.AddJob("@every 1h", job), "duplicate names are rejected")
	assert.Error(t, s.AddJob("nonsense", &countingJob{name: "b"}))
	assert.Equal(t, []string{"a"}, s.Jobs())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	assert.Error(t, s.RunNow(failing))
	assert.Equal(t, int32(1), failing.runs.Load())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "every_second", err: errors.New("failures are logged")}
	require.NoError(t, s.AddJob("* * * * * *", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestCronTicks(t *testing.T) {
	_, err := NewCronTicks("bogus", zerolog.Nop())
	assert.Error(t, err)

	source, err := NewCronTicks("* * * * * *", zerolog.Nop())
	require.NoError(t, err)

	var ticks atomic.Int32
	stop, err := source.Start(func() { ticks.Add(1) })
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return ticks.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	stop()
	time.Sleep(100 * time.Millisecond)
	after := ticks.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, after, ticks.Load(), "no ticks after stop")
}

func TestCronTicks_StopDoesNotWaitForTick(t *testing.T) {
	source, err := NewCronTicks("* * * * * *", zerolog.Nop())
	require.NoError(t, err)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	stop, err := source.Start(func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("tick never started")
	}

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop waited for the running tick")
	}
	close(release)
}

func TestAlertCleanupJob(t *testing.T) {
	alerts := &fakeAlerts{}
	job := NewAlertCleanupJob(alerts, zerolog.Nop())

	assert.Equal(t, "alert_cleanup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, alerts.cleared)
}

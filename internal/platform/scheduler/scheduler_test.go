package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJob_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	err := s.AddJob("0 6 * * *", JobFunc{JobName: "five-field", Fn: func(context.Context) error { return nil }})
	require.Error(t, err)
	assert.Zero(t, s.Entries())
}

func TestAddJob_ValidSchedules(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	noop := func(context.Context) error { return nil }
	for _, spec := range []string{"0 0 6 * * *", "0 0 10,15,21 * * *", "0 0 0 * * *"} {
		require.NoError(t, s.AddJob(spec, JobFunc{JobName: spec, Fn: noop}))
	}
	assert.Equal(t, 3, s.Entries())
}

func TestScheduler_RunsJobWithContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "base")

	var runs atomic.Int32
	seen := make(chan any, 1)

	s := New(ctx)
	require.NoError(t, s.AddJob("@every 1s", JobFunc{JobName: "tick", Fn: func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			seen <- ctx.Value(key{})
		}
		return errors.New("failure is only logged")
	}}))

	s.Start()
	defer s.Stop()

	select {
	case v := <-seen:
		assert.Equal(t, "base", v)
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	t.Parallel()

	var running, overlaps atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	s := New(context.Background())
	require.NoError(t, s.AddJob("@every 1s", JobFunc{JobName: "slow", Fn: func(ctx context.Context) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer running.Add(-1)
		started <- struct{}{}
		<-release
		return nil
	}}))

	s.Start()
	<-started
	// let at least one more tick fire while the first run is blocked
	time.Sleep(2200 * time.Millisecond)
	close(release)
	s.Stop()

	assert.Zero(t, overlaps.Load())
}

func TestNextFunc(t *testing.T) {
	t.Parallel()

	next, err := NextFunc("0 0 6 * * *")
	require.NoError(t, err)

	assert.Equal(t,
		time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
		next(time.Date(2024, 5, 1, 5, 40, 0, 0, time.UTC)))
	assert.Equal(t,
		time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC),
		next(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)))

	tokyo := time.FixedZone("JST", 9*60*60)
	assert.True(t, next(time.Date(2024, 5, 1, 14, 0, 0, 0, tokyo)).Equal(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)))

	_, err = NextFunc("not a schedule")
	assert.Error(t, err)
}

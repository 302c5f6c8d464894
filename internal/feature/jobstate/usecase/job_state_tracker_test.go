package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock_crawler/internal/feature/jobstate/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore はJobStateStoreのインメモリ実装です。
type memStore struct {
	states  map[string]entity.JobState
	getErr  error
	saveErr error
	upserts int
}

func newMemStore() *memStore { return &memStore{states: map[string]entity.JobState{}} }

func (m *memStore) Get(ctx context.Context, symbol string) (entity.JobState, bool, error) {
	if m.getErr != nil {
		return entity.JobState{}, false, m.getErr
	}
	s, ok := m.states[symbol]
	return s, ok, nil
}

func (m *memStore) Upsert(ctx context.Context, s entity.JobState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.upserts++
	m.states[s.Symbol] = s
	return nil
}

func TestJobStateTracker_Transition(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	tracker := NewJobStateTracker(store)
	now := time.Date(2024, 1, 5, 6, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	ctx := context.Background()

	s, err := tracker.Transition(ctx, "AAPL", entity.StatusRunning, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRunning, s.LastSyncStatus)
	assert.Nil(t, s.LastSuccessfulAt)

	s, err = tracker.Transition(ctx, "AAPL", entity.StatusFailed, "boom")
	require.NoError(t, err)
	require.NotNil(t, s.ErrorLog)
	assert.Equal(t, "boom", *s.ErrorLog)

	s, err = tracker.Transition(ctx, "AAPL", entity.StatusSucceeded, "")
	require.NoError(t, err)
	assert.Nil(t, s.ErrorLog)
	require.NotNil(t, s.LastSuccessfulAt)
	assert.Equal(t, now, *s.LastSuccessfulAt)

	assert.Len(t, store.states, 1)
	assert.Equal(t, 3, store.upserts)
}

func TestJobStateTracker_TransitionErrors(t *testing.T) {
	t.Parallel()

	t.Run("load failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.getErr = errors.New("connection refused")
		_, err := NewJobStateTracker(store).Transition(context.Background(), "AAPL", entity.StatusRunning, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load job state AAPL")
	})

	t.Run("save failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.saveErr = errors.New("disk full")
		_, err := NewJobStateTracker(store).Transition(context.Background(), "AAPL", entity.StatusRunning, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save job state AAPL")
	})
}

package adapters

import (
	"context"
	"testing"
	"time"

	"stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/feature/jobstate/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを準備します。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")
	require.NoError(t, db.AutoMigrate(&JobStateModel{}), "failed to migrate table")
	return db
}

func TestJobStateGorm_GetMissing(t *testing.T) {
	t.Parallel()

	repo := NewJobStateRepository(setupTestDB(t))
	_, found, err := repo.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJobStateGorm_UpsertKeepsOneRowPerSymbol(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewJobStateRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 1, 5, 6, 0, 0, 0, time.UTC)
	msg := "boom"

	require.NoError(t, repo.Upsert(ctx, entity.JobState{Symbol: "AAPL", LastSyncStatus: entity.StatusRunning, UpdatedAt: now}))
	require.NoError(t, repo.Upsert(ctx, entity.JobState{Symbol: "AAPL", LastSyncStatus: entity.StatusFailed, ErrorLog: &msg, UpdatedAt: now}))
	require.NoError(t, repo.Upsert(ctx, entity.JobState{Symbol: "AAPL", LastSyncStatus: entity.StatusSucceeded, LastSuccessfulAt: &now, UpdatedAt: now}))

	var count int64
	require.NoError(t, db.Model(&JobStateModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, found, err := repo.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.StatusSucceeded, got.LastSyncStatus)
	assert.Nil(t, got.ErrorLog)
	require.NotNil(t, got.LastSuccessfulAt)
	assert.True(t, now.Equal(*got.LastSuccessfulAt))
}

func TestJobStateTracker_WithGormStore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewJobStateRepository(db)
	tracker := usecase.NewJobStateTracker(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := tracker.Transition(ctx, "MSFT", entity.StatusRunning, "")
		require.NoError(t, err)
		_, err = tracker.Transition(ctx, "MSFT", entity.StatusFailed, "upstream unreachable")
		require.NoError(t, err)
	}
	_, err := tracker.Transition(ctx, "NVDA", entity.StatusSucceeded, "")
	require.NoError(t, err)

	states, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "MSFT", states[0].Symbol)
	assert.Equal(t, entity.StatusFailed, states[0].LastSyncStatus)
	require.NotNil(t, states[0].ErrorLog)
	assert.Equal(t, "upstream unreachable", *states[0].ErrorLog)
	assert.Equal(t, "NVDA", states[1].Symbol)
	assert.NotNil(t, states[1].LastSuccessfulAt)
}

package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobState_Apply(t *testing.T) {
	t.Parallel()

	earlier := time.Date(2024, 1, 4, 6, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 5, 6, 0, 0, 0, time.UTC)
	oldErr := "twelvedata time_series: upstream unreachable (http 500)"

	tests := []struct {
		name        string
		start       JobState
		status      JobStatus
		errMsg      string
		wantSuccess *time.Time
		wantErrLog  *string
	}{
		{
			name:        "running keeps timestamps and error",
			start:       JobState{Symbol: "AAPL", LastSuccessfulAt: &earlier, ErrorLog: &oldErr},
			status:      StatusRunning,
			wantSuccess: &earlier,
			wantErrLog:  &oldErr,
		},
		{
			name:        "succeeded stamps time and clears error",
			start:       JobState{Symbol: "AAPL", LastSyncStatus: StatusFailed, LastSuccessfulAt: &earlier, ErrorLog: &oldErr},
			status:      StatusSucceeded,
			wantSuccess: &now,
			wantErrLog:  nil,
		},
		{
			name:        "failed records message",
			start:       JobState{Symbol: "AAPL", LastSuccessfulAt: &earlier},
			status:      StatusFailed,
			errMsg:      "boom",
			wantSuccess: &earlier,
			wantErrLog:  strPtr("boom"),
		},
		{
			name:        "failed without message keeps previous error",
			start:       JobState{Symbol: "AAPL", ErrorLog: &oldErr},
			status:      StatusFailed,
			wantSuccess: nil,
			wantErrLog:  &oldErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.start.Apply(tt.status, tt.errMsg, now)

			assert.Equal(t, tt.status, got.LastSyncStatus)
			assert.Equal(t, tt.start.Symbol, got.Symbol)
			assert.Equal(t, now, got.UpdatedAt)
			assert.Equal(t, tt.wantSuccess, got.LastSuccessfulAt)
			assert.Equal(t, tt.wantErrLog, got.ErrorLog)
		})
	}
}

func TestJobState_ApplyDoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	msg := "old"
	start := JobState{Symbol: "AAPL", LastSyncStatus: StatusFailed, ErrorLog: &msg}
	_ = start.Apply(StatusSucceeded, "", time.Now())

	assert.Equal(t, StatusFailed, start.LastSyncStatus)
	require.NotNil(t, start.ErrorLog)
	assert.Equal(t, "old", *start.ErrorLog)
}

func strPtr(s string) *string { return &s }

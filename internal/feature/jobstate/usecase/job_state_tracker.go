// Package usecase はクロールジョブの状態遷移を実装します。
package usecase

import (
	"context"
	"fmt"
	"time"

	"stock_crawler/internal/feature/jobstate/domain/entity"
)

// JobStateStore はキーごとのジョブ状態を読み書きするだけのストアです。
// 遷移のルールはすべて entity.JobState.Apply にあります。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type JobStateStore interface {
	Get(ctx context.Context, symbol string) (entity.JobState, bool, error)
	Upsert(ctx context.Context, s entity.JobState) error
}

// JobStateTracker はジョブ状態の唯一の書き込み口です。遷移は必ず entity.JobState.Apply を通ります。
type JobStateTracker struct {
	store JobStateStore
	now   func() time.Time
}

// NewJobStateTracker は store を使う JobStateTracker を生成します。
func NewJobStateTracker(store JobStateStore) *JobStateTracker {
	return &JobStateTracker{store: store, now: time.Now}
}

// Transition はキーの状態を読み込み（なければ新規作成し）、status を適用して保存します。
func (t *JobStateTracker) Transition(ctx context.Context, symbol string, status entity.JobStatus, errMsg string) (entity.JobState, error) {
	cur, found, err := t.store.Get(ctx, symbol)
	if err != nil {
		return entity.JobState{}, fmt.Errorf("load job state %s: %w", symbol, err)
	}
	if !found {
		cur = entity.JobState{Symbol: symbol}
	}

	next := cur.Apply(status, errMsg, t.now().UTC())
	if err := t.store.Upsert(ctx, next); err != nil {
		return entity.JobState{}, fmt.Errorf("save job state %s: %w", symbol, err)
	}
	return next, nil
}

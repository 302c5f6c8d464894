package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// BackfillRunner は指定の実行IDでバックフィルを1回実行します。
type BackfillRunner interface {
	Run(ctx context.Context, runID string) (RunSummary, error)
}

// Trigger はバックフィルをバックグラウンドで起動します。同時に実行されるのは1つだけです。
// 呼び出し側にはすぐ実行IDが返り、結果はジョブ状態で確認します。
type Trigger struct {
	base    context.Context
	runner  BackfillRunner
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewTrigger は base を引き継いで実行する Trigger を生成します。base がキャンセルされると実行も止まります。
func NewTrigger(base context.Context, runner BackfillRunner) *Trigger {
	return &Trigger{base: base, runner: runner}
}

// Fire は実行を開始します。実行中なら ErrRunInProgress を返します。
func (t *Trigger) Fire(source string) (string, error) {
	if !t.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	runID := uuid.NewString()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.running.Store(false)

		slog.Info("backfill triggered", "run_id", runID, "source", source)
		if _, err := t.runner.Run(t.base, runID); err != nil {
			slog.Error("backfill run aborted", "run_id", runID, "source", source, "error", err)
		}
	}()
	return runID, nil
}

// Running は実行中かどうかを返します。
func (t *Trigger) Running() bool { return t.running.Load() }

// Wait は実行中のバックフィルが終わるまで待ちます。
func (t *Trigger) Wait() { t.wg.Wait() }

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	job "stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/feature/news/domain/entity"
)

// NewsSource はニュースプロバイダの検索APIです。
type NewsSource interface {
	SearchNews(ctx context.Context, q entity.NewsQuery) (entity.NewsPage, error)
}

// SymbolSource は対象銘柄の一覧を返します。
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// JobTracker はジョブ状態の遷移を記録します。
type JobTracker interface {
	Transition(ctx context.Context, symbol string, status job.JobStatus, errMsg string) (job.JobState, error)
}

// Ingester は取得済みニュースを取り込みます。
type Ingester interface {
	Ingest(ctx context.Context, items []entity.RawNewsItem) (int, error)
	DeleteOlderThan(ctx context.Context, daysToKeep int) (int64, error)
}

// FetchOptions はニュース取得ジョブのパラメータです。
type FetchOptions struct {
	Limit         int           // 1回の検索で取得する最大件数
	Language      string        // 空なら指定しない
	Lookback      time.Duration // now - Lookback 以降に公開された記事を対象にする
	RetentionDays int
}

// DefaultFetchOptions は定期取得のデフォルト値を返します。
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{Limit: 100, Language: "en", Lookback: 8 * time.Hour, RetentionDays: DefaultRetentionDays}
}

// NewsFetchUsecase は対象銘柄のニュースを検索して取り込むジョブです。
// 状態は job.NewsJobKey のジョブ状態として記録されます。
type NewsFetchUsecase struct {
	source   NewsSource
	symbols  SymbolSource
	ingester Ingester
	tracker  JobTracker
	opts     FetchOptions
	now      func() time.Time
}

func NewNewsFetchUsecase(source NewsSource, symbols SymbolSource, ingester Ingester, tracker JobTracker, opts FetchOptions) *NewsFetchUsecase {
	return &NewsFetchUsecase{source: source, symbols: symbols, ingester: ingester, tracker: tracker, opts: opts, now: time.Now}
}

// FetchAndIngest は直近 Lookback 分のニュースを取得して取り込み、新規件数を返します。
func (u *NewsFetchUsecase) FetchAndIngest(ctx context.Context) (int, error) {
	// 状態の記録は呼び出し元のキャンセルに影響されない
	stateCtx := context.WithoutCancel(ctx)
	if _, err := u.tracker.Transition(stateCtx, job.NewsJobKey, job.StatusRunning, ""); err != nil {
		slog.Warn("failed to record job state", "job", job.NewsJobKey, "error", err)
	}

	n, err := u.fetch(ctx)
	status, msg := job.StatusSucceeded, ""
	if err != nil {
		status, msg = job.StatusFailed, err.Error()
		slog.Error("news fetch failed", "error", err)
	}
	if _, terr := u.tracker.Transition(stateCtx, job.NewsJobKey, status, msg); terr != nil {
		slog.Warn("failed to record job state", "job", job.NewsJobKey, "error", terr)
	}
	return n, err
}

func (u *NewsFetchUsecase) fetch(ctx context.Context) (int, error) {
	symbols, err := u.symbols.ActiveSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return 0, errors.New("no symbols to search news for")
	}

	page, err := u.source.SearchNews(ctx, entity.NewsQuery{
		Symbols:        symbols,
		Limit:          u.opts.Limit,
		Language:       u.opts.Language,
		PublishedAfter: u.now().UTC().Add(-u.opts.Lookback),
	})
	if err != nil {
		return 0, fmt.Errorf("search news: %w", err)
	}
	return u.ingester.Ingest(ctx, page.Items)
}

// Cleanup は保持期間を過ぎた記事を削除します。
func (u *NewsFetchUsecase) Cleanup(ctx context.Context) (int64, error) {
	return u.ingester.DeleteOlderThan(ctx, u.opts.RetentionDays)
}

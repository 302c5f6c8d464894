package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stock_crawler/internal/feature/backfill/domain/entity"
	candle "stock_crawler/internal/feature/candles/domain/entity"
	company "stock_crawler/internal/feature/company/domain/entity"
	job "stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/shared/ratelimiter"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options はバックフィル実行の調整値です。
type Options struct {
	Interval    string        // ローソク足の interval（例: "1day"）
	OutputSize  int           // 時系列リクエスト1回あたりの最大件数
	Concurrency int           // 同時に処理する銘柄数
	SymbolDelay time.Duration // 各銘柄の処理後に待つ時間
}

// RunSummary は1回の実行の銘柄ごとの結果です。各リストは完了順です。
type RunSummary struct {
	RunID      string
	Succeeded  []string
	UpToDate   []string
	Failed     []string
	Skipped    []string // キャンセルにより未着手
	Saved      int
	StartedAt  time.Time
	FinishedAt time.Time
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeUpToDate
	outcomeFailed
)

type symbolResult struct {
	outcome outcome
	saved   int
}

// BackfillUsecase は全銘柄を巡回し、下流に不足している履歴を埋めます。
// 銘柄の失敗はその銘柄のジョブ状態に記録され、他の銘柄には影響しません。
type BackfillUsecase struct {
	symbols    SymbolSource
	series     TimeSeriesSource
	profiles   ProfileSource
	downstream Downstream
	tracker    JobTracker
	resolver   *WindowResolver
	uploader   *ChunkedUploader
	limiter    ratelimiter.RateLimiterInterface
	opts       Options
	now        func() time.Time
}

// NewBackfillUsecase はバックフィルのパイプラインを組み立てます。limiter は銘柄の開始間隔を制御します。
func NewBackfillUsecase(
	symbols SymbolSource,
	series TimeSeriesSource,
	profiles ProfileSource,
	downstream Downstream,
	tracker JobTracker,
	resolver *WindowResolver,
	uploader *ChunkedUploader,
	limiter ratelimiter.RateLimiterInterface,
	opts Options,
) *BackfillUsecase {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &BackfillUsecase{
		symbols:    symbols,
		series:     series,
		profiles:   profiles,
		downstream: downstream,
		tracker:    tracker,
		resolver:   resolver,
		uploader:   uploader,
		limiter:    limiter,
		opts:       opts,
		now:        time.Now,
	}
}

// RunBackfill は新しい実行IDで全アクティブ銘柄を1回処理します。
func (uc *BackfillUsecase) RunBackfill(ctx context.Context) (RunSummary, error) {
	return uc.Run(ctx, uuid.NewString())
}

// Run は全アクティブ銘柄を1回処理し、すべてが終了状態になってから戻ります。
// エラーを返すのは銘柄一覧を取得できないときだけです。
// キャンセルで未着手になった銘柄は Skipped に入り、ジョブ状態は前回のまま残ります。
func (uc *BackfillUsecase) Run(ctx context.Context, runID string) (RunSummary, error) {
	summary := RunSummary{RunID: runID, StartedAt: uc.now().UTC()}
	log := slog.With("run_id", runID)

	symbols, err := uc.symbols.ActiveSymbols(ctx)
	if err != nil {
		return summary, fmt.Errorf("load symbols: %w", err)
	}
	if len(symbols) == 0 {
		return summary, ErrNoSymbols
	}

	log.Info("starting historical backfill", "symbols", len(symbols), "interval", uc.opts.Interval, "concurrency", uc.opts.Concurrency)
	today := uc.now()

	var mu sync.Mutex
	// 派生contextなしのerrgroup: ある銘柄の失敗で他の銘柄を止めない
	var g errgroup.Group
	g.SetLimit(uc.opts.Concurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			if err := uc.limiter.Wait(ctx); err != nil {
				mu.Lock()
				summary.Skipped = append(summary.Skipped, symbol)
				mu.Unlock()
				return nil
			}

			res := uc.backfillSymbol(ctx, log.With("symbol", symbol), symbol, today)

			mu.Lock()
			switch res.outcome {
			case outcomeSynced:
				summary.Succeeded = append(summary.Succeeded, symbol)
			case outcomeUpToDate:
				summary.UpToDate = append(summary.UpToDate, symbol)
			default:
				summary.Failed = append(summary.Failed, symbol)
			}
			summary.Saved += res.saved
			mu.Unlock()

			_ = sleep(ctx, uc.opts.SymbolDelay)
			return nil
		})
	}
	_ = g.Wait()

	summary.FinishedAt = uc.now().UTC()
	log.Info("historical backfill finished",
		"succeeded", len(summary.Succeeded),
		"up_to_date", len(summary.UpToDate),
		"failed", len(summary.Failed),
		"skipped", len(summary.Skipped),
		"saved", summary.Saved,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, nil
}

// backfillSymbol は1銘柄分のパイプラインを実行し、結果を記録します。
// ジョブ状態の書き込みは実行のキャンセル後も有効なcontextで行うため、
// 途中でキャンセルされた銘柄も FAILED になります。
func (uc *BackfillUsecase) backfillSymbol(ctx context.Context, log *slog.Logger, symbol string, today time.Time) symbolResult {
	stateCtx := context.WithoutCancel(ctx)

	res, err := uc.syncSymbol(ctx, stateCtx, log, symbol, today)
	if err != nil {
		log.Error("backfill failed", "error", err)
		if _, terr := uc.tracker.Transition(stateCtx, symbol, job.StatusFailed, err.Error()); terr != nil {
			log.Error("failed to record job failure", "error", terr)
		}
		return symbolResult{outcome: outcomeFailed, saved: res.saved}
	}

	if _, err := uc.tracker.Transition(stateCtx, symbol, job.StatusSucceeded, ""); err != nil {
		log.Error("failed to record job success", "error", err)
		return symbolResult{outcome: outcomeFailed, saved: res.saved}
	}
	return res
}

func (uc *BackfillUsecase) syncSymbol(ctx, stateCtx context.Context, log *slog.Logger, symbol string, today time.Time) (symbolResult, error) {
	if _, err := uc.tracker.Transition(stateCtx, symbol, job.StatusRunning, ""); err != nil {
		return symbolResult{}, err
	}

	window, ok, err := uc.resolver.Resolve(ctx, symbol, uc.opts.Interval, today)
	if err != nil {
		return symbolResult{}, fmt.Errorf("resolve window: %w", err)
	}
	if !ok {
		log.Info("already up to date")
		return symbolResult{outcome: outcomeUpToDate}, nil
	}
	log.Info("fetching missing window", "window", window.String(), "days", window.Days())

	profile, series, err := uc.fetch(ctx, symbol, window)
	if err != nil {
		return symbolResult{}, err
	}

	if err := uc.downstream.UpsertProfile(ctx, profile); err != nil {
		return symbolResult{}, fmt.Errorf("upsert profile: %w", err)
	}

	up, err := uc.uploader.Upload(ctx, symbol, uc.opts.Interval, series.Candles)
	if err != nil {
		return symbolResult{saved: up.Saved}, err
	}
	log.Info("symbol backfilled", "points", up.Points, "chunks", up.Chunks, "saved", up.Saved)
	return symbolResult{outcome: outcomeSynced, saved: up.Saved}, nil
}

// fetch はプロフィールと時系列を並行して取得します。
func (uc *BackfillUsecase) fetch(ctx context.Context, symbol string, window entity.Window) (company.Profile, candle.TimeSeries, error) {
	var (
		profile company.Profile
		series  candle.TimeSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := uc.profiles.GetCompanyProfile(gctx, symbol)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		ts, err := uc.series.GetTimeSeries(gctx, candle.TimeSeriesQuery{
			Symbol:     symbol,
			Interval:   uc.opts.Interval,
			StartDate:  window.From,
			EndDate:    window.To,
			OutputSize: uc.opts.OutputSize,
		})
		if err != nil {
			return fmt.Errorf("fetch time series: %w", err)
		}
		series = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		return company.Profile{}, candle.TimeSeries{}, err
	}

	profile.Symbol = symbol
	return profile, series, nil
}

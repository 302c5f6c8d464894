package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	candle "stock_crawler/internal/feature/candles/domain/entity"
	job "stock_crawler/internal/feature/jobstate/domain/entity"
)

// QuoteInterval はクォートから作る日足の interval です。
const QuoteInterval = "1day"

// RefreshSources は定期更新ジョブが参照するプロバイダです。
type RefreshSources struct {
	Quotes          QuoteSource
	Recommendations RecommendationSource
	Profiles        ProfileSource
}

// RefreshSummary は1回の定期更新ジョブの銘柄ごとの結果です。
type RefreshSummary struct {
	Job       string
	Succeeded []string
	Failed    []string
	Skipped   []string // キャンセルにより未着手
	Saved     int
}

// RefreshUsecase は銘柄ごとの定期更新ジョブ（日次クォート、週次のアナリスト推奨と企業プロフィール）を実行します。
// 銘柄は順番に処理し、銘柄間に delay を挟みます。
// ジョブ状態は銘柄コードに接尾辞を付けたキーで記録するため、バックフィルの状態とは独立しています。
type RefreshUsecase struct {
	symbols SymbolSource
	sources RefreshSources
	sink    RefreshSink
	tracker JobTracker
	delay   time.Duration
}

func NewRefreshUsecase(symbols SymbolSource, sources RefreshSources, sink RefreshSink, tracker JobTracker, delay time.Duration) *RefreshUsecase {
	return &RefreshUsecase{symbols: symbols, sources: sources, sink: sink, tracker: tracker, delay: delay}
}

// RefreshQuotes は最新クォートを取得し、取引終了後のものだけを日足として保存します。
// 取引中のクォートは確定値ではないため保存しません。既存の日足は上書きされません。
func (u *RefreshUsecase) RefreshQuotes(ctx context.Context) (RefreshSummary, error) {
	return u.each(ctx, "daily-quote", job.QuoteJobSuffix, func(ctx context.Context, log *slog.Logger, symbol string) (int, error) {
		q, err := u.sources.Quotes.GetQuote(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("fetch quote: %w", err)
		}
		if q.IsMarketOpen {
			log.Info("market open, quote not stored")
			return 0, nil
		}
		saved, err := u.sink.BulkSaveTimeSeries(ctx, symbol, QuoteInterval, []candle.Candle{quoteCandle(symbol, q)})
		if err != nil {
			return 0, fmt.Errorf("save quote: %w", err)
		}
		return saved, nil
	})
}

// RefreshRecommendations はアナリスト推奨を取得して期間ごとに上書き保存します。
func (u *RefreshUsecase) RefreshRecommendations(ctx context.Context) (RefreshSummary, error) {
	return u.each(ctx, "weekly-recommendation", job.RecommendationJobSuffix, func(ctx context.Context, log *slog.Logger, symbol string) (int, error) {
		recs, err := u.sources.Recommendations.GetRecommendations(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("fetch recommendations: %w", err)
		}
		if len(recs) == 0 {
			log.Info("no recommendations")
			return 0, nil
		}
		n, err := u.sink.SaveRecommendations(ctx, symbol, recs)
		if err != nil {
			return 0, fmt.Errorf("save recommendations: %w", err)
		}
		return n, nil
	})
}

// RefreshProfiles は企業プロフィールを取得して上書き保存します。
func (u *RefreshUsecase) RefreshProfiles(ctx context.Context) (RefreshSummary, error) {
	return u.each(ctx, "weekly-company-profile", job.ProfileJobSuffix, func(ctx context.Context, log *slog.Logger, symbol string) (int, error) {
		p, err := u.sources.Profiles.GetCompanyProfile(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("fetch profile: %w", err)
		}
		p.Symbol = symbol
		if err := u.sink.UpsertProfile(ctx, p); err != nil {
			return 0, fmt.Errorf("upsert profile: %w", err)
		}
		return 1, nil
	})
}

type refreshFunc func(ctx context.Context, log *slog.Logger, symbol string) (int, error)

// each は全銘柄に fn を順に適用します。失敗は銘柄のジョブ状態に記録し、次の銘柄へ進みます。
// シンボル一覧を取得できないときだけエラーを返します。
func (u *RefreshUsecase) each(ctx context.Context, name, suffix string, fn refreshFunc) (RefreshSummary, error) {
	summary := RefreshSummary{Job: name}
	log := slog.With("job", name)

	symbols, err := u.symbols.ActiveSymbols(ctx)
	if err != nil {
		return summary, fmt.Errorf("load symbols: %w", err)
	}
	if len(symbols) == 0 {
		return summary, ErrNoSymbols
	}
	log.Info("starting refresh job", "symbols", len(symbols))

	// キャンセル後もジョブ状態は書き込む
	stateCtx := context.WithoutCancel(ctx)
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			summary.Skipped = append(summary.Skipped, symbols[i:]...)
			break
		}
		if i > 0 {
			if err := sleep(ctx, u.delay); err != nil {
				summary.Skipped = append(summary.Skipped, symbols[i:]...)
				break
			}
		}

		symLog := log.With("symbol", symbol)
		key := job.SymbolJobKey(symbol, suffix)
		if _, err := u.tracker.Transition(stateCtx, key, job.StatusRunning, ""); err != nil {
			symLog.Error("failed to record job start", "error", err)
			summary.Failed = append(summary.Failed, symbol)
			continue
		}

		n, err := fn(ctx, symLog, symbol)
		if err != nil {
			symLog.Error("refresh failed", "error", err)
			summary.Failed = append(summary.Failed, symbol)
			if _, terr := u.tracker.Transition(stateCtx, key, job.StatusFailed, err.Error()); terr != nil {
				symLog.Error("failed to record job failure", "error", terr)
			}
			continue
		}
		if _, err := u.tracker.Transition(stateCtx, key, job.StatusSucceeded, ""); err != nil {
			symLog.Error("failed to record job success", "error", err)
			summary.Failed = append(summary.Failed, symbol)
			continue
		}
		summary.Succeeded = append(summary.Succeeded, symbol)
		summary.Saved += n
	}

	log.Info("refresh job finished",
		"succeeded", len(summary.Succeeded),
		"failed", len(summary.Failed),
		"skipped", len(summary.Skipped),
		"saved", summary.Saved,
	)
	return summary, nil
}

// quoteCandle はクォートをその取引日の日足に変換します。
func quoteCandle(symbol string, q candle.Quote) candle.Candle {
	t := q.Time.UTC()
	return candle.Candle{
		Symbol:   symbol,
		Interval: QuoteInterval,
		Time:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Open:     q.Open,
		High:     q.High,
		Low:      q.Low,
		Close:    q.Close,
		Volume:   q.Volume,
	}
}

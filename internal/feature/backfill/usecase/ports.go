// Package usecase は履歴バックフィルのパイプライン（取得範囲の決定、取得、分割アップロード、ジョブ状態の記録）と
// 銘柄ごとの定期更新ジョブを実装します。
package usecase

import (
	"context"

	candle "stock_crawler/internal/feature/candles/domain/entity"
	company "stock_crawler/internal/feature/company/domain/entity"
	job "stock_crawler/internal/feature/jobstate/domain/entity"
)

// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).

// SymbolSource は実行対象の銘柄一覧を返します。
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// TimeSeriesSource はマーケットデータプロバイダからローソク足を取得します。
type TimeSeriesSource interface {
	GetTimeSeries(ctx context.Context, q candle.TimeSeriesQuery) (candle.TimeSeries, error)
}

// ProfileSource は企業プロフィールを取得します。
type ProfileSource interface {
	GetCompanyProfile(ctx context.Context, symbol string) (company.Profile, error)
}

// LatestDateSource は下流ストアにある銘柄の最新日付を返します。空文字はデータなしです。
type LatestDateSource interface {
	LatestDate(ctx context.Context, symbol, interval string) (string, error)
}

// ChunkSink はローソク足のチャンクを受け取り、新規保存件数を返します。
// (symbol, interval, time) が既存のものはスキップされます。
type ChunkSink interface {
	BulkSaveTimeSeries(ctx context.Context, symbol, interval string, points []candle.Candle) (int, error)
}

// Downstream はパイプラインの書き込み先となる突き合わせストアです。
type Downstream interface {
	LatestDateSource
	ChunkSink
	UpsertProfile(ctx context.Context, p company.Profile) error
}

// JobTracker は銘柄ごとのジョブ状態遷移を記録します。
type JobTracker interface {
	Transition(ctx context.Context, symbol string, status job.JobStatus, errMsg string) (job.JobState, error)
}

// QuoteSource は銘柄の最新クォートを取得します。
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (candle.Quote, error)
}

// RecommendationSource はアナリスト推奨の推移を取得します。
type RecommendationSource interface {
	GetRecommendations(ctx context.Context, symbol string) ([]company.Recommendation, error)
}

// RecommendationSink は推奨を期間ごとに上書き保存し、保存件数を返します。
type RecommendationSink interface {
	SaveRecommendations(ctx context.Context, symbol string, recs []company.Recommendation) (int, error)
}

// RefreshSink は定期更新ジョブの書き込み先です。
type RefreshSink interface {
	ChunkSink
	RecommendationSink
	UpsertProfile(ctx context.Context, p company.Profile) error
}

// Package downstream はバックフィルの書き込み先を提供します。
// 同一プロセスのDBに書く Local と、リモートの株価サービスを呼ぶ HTTPClient があります。
package downstream

import (
	"context"
	"time"

	"stock_crawler/internal/feature/backfill/domain/entity"
	"stock_crawler/internal/feature/backfill/usecase"
	candle "stock_crawler/internal/feature/candles/domain/entity"
	company "stock_crawler/internal/feature/company/domain/entity"
)

// CandleReconciler はcandlesフィーチャーの書き込み側です。
type CandleReconciler interface {
	BulkSave(ctx context.Context, symbol, interval string, candles []candle.Candle) (int, error)
	LatestDate(ctx context.Context, symbol, interval string) (time.Time, bool, error)
}

// ProfileSaver はcompanyフィーチャーのプロフィール保存です。
type ProfileSaver interface {
	SaveProfile(ctx context.Context, p company.Profile) error
}

// RecommendationSaver はcompanyフィーチャーのアナリスト推奨の保存です。
type RecommendationSaver interface {
	SaveRecommendations(ctx context.Context, symbol string, recs []company.Recommendation) (int, error)
}

// Local はこのプロセスのDBへ直接書き込みます。
type Local struct {
	candles         CandleReconciler
	profiles        ProfileSaver
	recommendations RecommendationSaver
}

var (
	_ usecase.Downstream  = (*Local)(nil)
	_ usecase.RefreshSink = (*Local)(nil)
)

func NewLocal(candles CandleReconciler, profiles ProfileSaver, recommendations RecommendationSaver) *Local {
	return &Local{candles: candles, profiles: profiles, recommendations: recommendations}
}

// LatestDate は保存済みの最新日付を "2006-01-02" 形式で返します。データがなければ空文字です。
func (l *Local) LatestDate(ctx context.Context, symbol, interval string) (string, error) {
	t, ok, err := l.candles.LatestDate(ctx, symbol, interval)
	if err != nil || !ok {
		return "", err
	}
	return t.UTC().Format(entity.DateLayout), nil
}

func (l *Local) BulkSaveTimeSeries(ctx context.Context, symbol, interval string, points []candle.Candle) (int, error) {
	return l.candles.BulkSave(ctx, symbol, interval, points)
}

func (l *Local) UpsertProfile(ctx context.Context, p company.Profile) error {
	return l.profiles.SaveProfile(ctx, p)
}

func (l *Local) SaveRecommendations(ctx context.Context, symbol string, recs []company.Recommendation) (int, error) {
	return l.recommendations.SaveRecommendations(ctx, symbol, recs)
}

// Package usecase はローソク足データ操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
)

const (
	// DefaultInterval はローソク足クエリのデフォルト時間間隔です。
	DefaultInterval = "1day"
	// DefaultOutputSize はデフォルトのローソク足返却件数です。
	DefaultOutputSize = 200
	// MaxOutputSize はローソク足の最大返却件数です。
	MaxOutputSize = 5000
)

// ErrInvalidRange は期間指定の開始が終了より後の場合に返されます。
var ErrInvalidRange = errors.New("from must not be after to")

// CandleRepository はローソク足データの読み取りレイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
// Redisキャッシュ（platform/cache）はこのインターフェースをデコレートします。
type CandleRepository interface {
	// Find は新しい順に最大 outputsize 件を返します。
	Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	// FindRange は [from, to] に収まる足を新しい順に最大 limit 件返します。
	// ゼロ値の from / to はその側を制限しません。
	FindRange(ctx context.Context, symbol, interval string, from, to time.Time, limit int) ([]entity.Candle, error)
}

// CandleQuery は読み取り API の検索条件です。
type CandleQuery struct {
	Symbol     string
	Interval   string
	OutputSize int
	From       time.Time
	To         time.Time
}

// Windowed は期間指定があるかを返します。
func (q CandleQuery) Windowed() bool {
	return !q.From.IsZero() || !q.To.IsZero()
}

// candlesUsecase はローソク足データ操作のユースケースを定義します。
type candlesUsecase struct {
	candle CandleRepository
}

// NewCandlesUsecase はcandlesUsecaseの新しいインスタンスを生成します。
func NewCandlesUsecase(candle CandleRepository) *candlesUsecase {
	return &candlesUsecase{candle: candle}
}

// GetCandles は検索条件に合うローソク足を新しい順に返します。
// シンボルは保存時と同じく大文字に正規化します。期間指定のない検索だけが
// キャッシュ対象の Find を通り、期間付きの検索は FindRange で DB を直接読みます。
func (cu *candlesUsecase) GetCandles(ctx context.Context, q CandleQuery) ([]entity.Candle, error) {
	q = q.normalize()
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return nil, ErrInvalidRange
	}

	if q.Windowed() {
		return cu.candle.FindRange(ctx, q.Symbol, q.Interval, q.From, q.To, q.OutputSize)
	}
	return cu.candle.Find(ctx, q.Symbol, q.Interval, q.OutputSize)
}

func (q CandleQuery) normalize() CandleQuery {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Interval == "" {
		q.Interval = DefaultInterval
	}
	if q.OutputSize <= 0 || q.OutputSize > MaxOutputSize {
		q.OutputSize = DefaultOutputSize
	}
	if !q.From.IsZero() {
		q.From = q.From.UTC()
	}
	if !q.To.IsZero() {
		q.To = q.To.UTC()
	}
	return q
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stock_crawler/internal/feature/backfill/domain/entity"
)

// latestDateLayouts は下流ストアが最新日付を返すときの書式です。
var latestDateLayouts = []string{
	entity.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// WindowResolver は銘柄について下流にまだない日付範囲を求めます。
type WindowResolver struct {
	source    LatestDateSource
	startDate time.Time
}

// NewWindowResolver は下流にデータがない銘柄では startDate から取得する Resolver を生成します。
func NewWindowResolver(source LatestDateSource, startDate time.Time) *WindowResolver {
	return &WindowResolver{source: source, startDate: entity.Date(startDate)}
}

// Resolve は [最新日+1日, today]、未保存なら [startDate, today] を返します。
// 最新の状態なら ok は false です。解釈できない最新日付はデータなしとして扱います。
func (r *WindowResolver) Resolve(ctx context.Context, symbol, interval string, today time.Time) (w entity.Window, ok bool, err error) {
	raw, err := r.source.LatestDate(ctx, symbol, interval)
	if err != nil {
		return entity.Window{}, false, fmt.Errorf("latest date for %s: %w", symbol, err)
	}

	from := r.startDate
	if raw != "" {
		if latest, parsed := parseLatestDate(raw); parsed {
			from = latest.AddDate(0, 0, 1)
		} else {
			slog.Warn("unparsable latest date, falling back to full backfill", "symbol", symbol, "value", raw)
		}
	}

	to := entity.Date(today)
	if from.After(to) {
		return entity.Window{}, false, nil
	}
	return entity.Window{From: from, To: to}, true, nil
}

func parseLatestDate(raw string) (time.Time, bool) {
	for _, layout := range latestDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return entity.Date(t), true
		}
	}
	return time.Time{}, false
}

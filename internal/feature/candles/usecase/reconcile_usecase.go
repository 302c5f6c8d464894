package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
)

var (
	// ErrInvalidSeries は symbol / interval が空のときに返されます。
	ErrInvalidSeries = errors.New("symbol and interval are required")
	// ErrUnknownSymbol は銘柄マスタに存在しないシンボルへの保存要求で返されます。
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// CandleStore は差分保存のための書き込みレイヤーです。
type CandleStore interface {
	ExistingTimes(ctx context.Context, symbol, interval string, times []time.Time) ([]time.Time, error)
	InsertNew(ctx context.Context, candles []entity.Candle) (int, error)
	LatestTime(ctx context.Context, symbol, interval string) (time.Time, bool, error)
}

// SymbolRegistry は保存対象の銘柄が登録済みかどうかを答えます。
type SymbolRegistry interface {
	Exists(ctx context.Context, code string) (bool, error)
}

// ReconcileUsecase は外部から届いたローソク足を既存データと突き合わせ、
// 未保存の (symbol, interval, time) だけを保存します。
type ReconcileUsecase struct {
	store    CandleStore
	registry SymbolRegistry
}

// NewReconcileUsecase は新しい ReconcileUsecase を生成します。registry が nil の場合は銘柄チェックを行いません。
func NewReconcileUsecase(store CandleStore, registry SymbolRegistry) *ReconcileUsecase {
	return &ReconcileUsecase{store: store, registry: registry}
}

// BulkSave は candles のうち未保存のものを保存し、新規保存件数を返します。
// 全件が重複していても成功で、0 を返します。
func (u *ReconcileUsecase) BulkSave(ctx context.Context, symbol, interval string, candles []entity.Candle) (int, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || interval == "" {
		return 0, ErrInvalidSeries
	}
	if u.registry != nil {
		ok, err := u.registry.Exists(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("lookup symbol %s: %w", symbol, err)
		}
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
	}
	if len(candles) == 0 {
		return 0, nil
	}

	// 同一リクエスト内の重複は先勝ち
	seen := make(map[int64]struct{}, len(candles))
	unique := make([]entity.Candle, 0, len(candles))
	times := make([]time.Time, 0, len(candles))
	for _, c := range candles {
		c.Symbol, c.Interval, c.Time = symbol, interval, c.Time.UTC()
		k := c.Time.UnixNano()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, c)
		times = append(times, c.Time)
	}

	existing, err := u.store.ExistingTimes(ctx, symbol, interval, times)
	if err != nil {
		return 0, fmt.Errorf("check existing candles %s: %w", symbol, err)
	}
	stored := make(map[int64]struct{}, len(existing))
	for _, t := range existing {
		stored[t.UTC().UnixNano()] = struct{}{}
	}

	fresh := make([]entity.Candle, 0, len(unique))
	for _, c := range unique {
		if _, ok := stored[c.Time.UnixNano()]; !ok {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		slog.Info("no new candles (duplicates skipped)", "symbol", symbol, "interval", interval, "received", len(candles))
		return 0, nil
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Time.Before(fresh[j].Time) })

	saved, err := u.store.InsertNew(ctx, fresh)
	if err != nil {
		return 0, fmt.Errorf("insert candles %s: %w", symbol, err)
	}
	slog.Info("candles saved", "symbol", symbol, "interval", interval, "received", len(candles), "saved", saved)
	return saved, nil
}

// LatestDate は保存済みの最新時刻を返します。データがなければ ok=false です。
func (u *ReconcileUsecase) LatestDate(ctx context.Context, symbol, interval string) (time.Time, bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || interval == "" {
		return time.Time{}, false, ErrInvalidSeries
	}
	return u.store.LatestTime(ctx, symbol, interval)
}

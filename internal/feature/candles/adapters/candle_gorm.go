// Package adapters はcandlesフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
	"stock_crawler/internal/feature/candles/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type candleGorm struct {
	db *gorm.DB
}

var (
	_ usecase.CandleRepository = (*candleGorm)(nil)
	_ usecase.CandleStore      = (*candleGorm)(nil)
)

func NewCandleRepository(db *gorm.DB) *candleGorm {
	return &candleGorm{db: db}
}

// CandleModel は(symbol, interval, time)で一意なローソク足の行です。
// "interval" はPostgreSQLのキーワードのため、条件は必ずmapかclause.Columnで組み立てます。
type CandleModel struct {
	ID       uint      `gorm:"primaryKey"`
	Symbol   string    `gorm:"size:32;not null;uniqueIndex:candle_sym_int_time,priority:1"`
	Interval string    `gorm:"size:16;not null;uniqueIndex:candle_sym_int_time,priority:2"`
	Time     time.Time `gorm:"not null;uniqueIndex:candle_sym_int_time,priority:3"`

	Open   float64 `gorm:"not null"`
	High   float64 `gorm:"not null"`
	Low    float64 `gorm:"not null"`
	Close  float64 `gorm:"not null"`
	Volume int64   `gorm:"not null;default:0"`
}

func (CandleModel) TableName() string {
	return "candles"
}

func toModel(e entity.Candle) CandleModel {
	return CandleModel{
		Symbol:   e.Symbol,
		Interval: e.Interval,
		Time:     e.Time.UTC(),
		Open:     e.Open,
		High:     e.High,
		Low:      e.Low,
		Close:    e.Close,
		Volume:   e.Volume,
	}
}

func toEntity(m CandleModel) entity.Candle {
	return entity.Candle{
		Symbol:   m.Symbol,
		Interval: m.Interval,
		Time:     m.Time.UTC(),
		Open:     m.Open,
		High:     m.High,
		Low:      m.Low,
		Close:    m.Close,
		Volume:   m.Volume,
	}
}

func (r *candleGorm) series(ctx context.Context, symbol, interval string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&CandleModel{}).
		Where(map[string]any{"symbol": symbol, "interval": interval})
}

// ExistingTimes は times のうち既に保存済みの時刻を返します。
func (r *candleGorm) ExistingTimes(ctx context.Context, symbol, interval string, times []time.Time) ([]time.Time, error) {
	if len(times) == 0 {
		return nil, nil
	}
	values := make([]any, 0, len(times))
	for _, t := range times {
		values = append(values, t.UTC())
	}

	var rows []CandleModel
	if err := r.series(ctx, symbol, interval).
		Where(clause.IN{Column: clause.Column{Name: "time"}, Values: values}).
		Select("time").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Time.UTC())
	}
	return out, nil
}

// InsertNew は未保存のローソク足だけを挿入し、実際に挿入された件数を返します。
// 一意制約に衝突した行は黙って読み飛ばされ、既存行は上書きされません。
func (r *candleGorm) InsertNew(ctx context.Context, candles []entity.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	ms := make([]CandleModel, 0, len(candles))
	for _, e := range candles {
		ms = append(ms, toModel(e))
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "time"}},
		DoNothing: true,
	}).Create(&ms)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// LatestTime は保存済みの最新時刻を返します。データがなければ ok=false です。
func (r *candleGorm) LatestTime(ctx context.Context, symbol, interval string) (time.Time, bool, error) {
	var m CandleModel
	err := r.series(ctx, symbol, interval).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true}).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return m.Time.UTC(), true, nil
}

// Find は新しい順にローソク足を返します。
func (r *candleGorm) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	var rows []CandleModel
	q := r.series(ctx, symbol, interval).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true})
	if outputsize > 0 {
		q = q.Limit(outputsize)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Candle, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// FindRange は期間内のローソク足を新しい順に返します。
func (r *candleGorm) FindRange(ctx context.Context, symbol, interval string, from, to time.Time, limit int) ([]entity.Candle, error) {
	q := r.series(ctx, symbol, interval)
	if !from.IsZero() {
		q = q.Where(clause.Gte{Column: clause.Column{Name: "time"}, Value: from.UTC()})
	}
	if !to.IsZero() {
		q = q.Where(clause.Lte{Column: clause.Column{Name: "time"}, Value: to.UTC()})
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true})
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []CandleModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Candle, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

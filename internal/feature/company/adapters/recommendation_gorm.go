package adapters

import (
	"context"
	"time"

	"stock_crawler/internal/feature/company/domain/entity"
	"stock_crawler/internal/feature/company/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationModel はanalyst_recommendationsテーブルのGORMモデルです。
// (symbol, period) で一意です。
type RecommendationModel struct {
	ID         uint      `gorm:"primaryKey"`
	Symbol     string    `gorm:"size:20;not null;uniqueIndex:rec_sym_period,priority:1"`
	Period     time.Time `gorm:"not null;uniqueIndex:rec_sym_period,priority:2"`
	StrongBuy  int       `gorm:"not null;default:0"`
	Buy        int       `gorm:"not null;default:0"`
	Hold       int       `gorm:"not null;default:0"`
	Sell       int       `gorm:"not null;default:0"`
	StrongSell int       `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (RecommendationModel) TableName() string { return "analyst_recommendations" }

type recommendationGorm struct {
	db *gorm.DB
}

var _ usecase.RecommendationRepository = (*recommendationGorm)(nil)

// NewRecommendationRepository は指定されたDB接続でアナリスト推奨のリポジトリを生成します。
func NewRecommendationRepository(db *gorm.DB) *recommendationGorm {
	return &recommendationGorm{db: db}
}

// Upsert は (symbol, period) をキーに件数を上書きし、書き込んだ行数を返します。
func (r *recommendationGorm) Upsert(ctx context.Context, recs []entity.Recommendation) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	rows := make([]RecommendationModel, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, RecommendationModel{
			Symbol:     rec.Symbol,
			Period:     rec.Period.UTC(),
			StrongBuy:  rec.StrongBuy,
			Buy:        rec.Buy,
			Hold:       rec.Hold,
			Sell:       rec.Sell,
			StrongSell: rec.StrongSell,
		})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"strong_buy", "buy", "hold", "sell", "strong_sell", "updated_at"}),
		}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

// ListBySymbol は新しい期間順に最大limit件を返します。
func (r *recommendationGorm) ListBySymbol(ctx context.Context, symbol string, limit int) ([]entity.Recommendation, error) {
	var rows []RecommendationModel
	if err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("period DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Recommendation, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Recommendation{
			Symbol:     m.Symbol,
			Period:     m.Period.UTC(),
			StrongBuy:  m.StrongBuy,
			Buy:        m.Buy,
			Hold:       m.Hold,
			Sell:       m.Sell,
			StrongSell: m.StrongSell,
		})
	}
	return out, nil
}

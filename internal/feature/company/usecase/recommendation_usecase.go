package usecase

import (
	"context"
	"fmt"

	"stock_crawler/internal/feature/company/domain/entity"
)

// DefaultRecommendationLimit は一覧取得の既定件数です（約1年分の月次データ）。
const DefaultRecommendationLimit = 12

// RecommendationRepository はアナリスト推奨の永続化レイヤーです。
type RecommendationRepository interface {
	Upsert(ctx context.Context, recs []entity.Recommendation) (int64, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]entity.Recommendation, error)
}

// RecommendationUsecase はアナリスト推奨の保存と参照を提供します。
type RecommendationUsecase struct {
	repo RecommendationRepository
}

// NewRecommendationUsecase は新しい RecommendationUsecase を生成します。
func NewRecommendationUsecase(r RecommendationRepository) *RecommendationUsecase {
	return &RecommendationUsecase{repo: r}
}

// SaveRecommendations は symbol の推奨を期間ごとに上書き保存し、書き込んだ件数を返します。
// 期間が空の要素は捨てます。
func (u *RecommendationUsecase) SaveRecommendations(ctx context.Context, symbol string, recs []entity.Recommendation) (int, error) {
	code, err := entity.NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	rows := make([]entity.Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Period.IsZero() {
			continue
		}
		r.Symbol = code
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if _, err := u.repo.Upsert(ctx, rows); err != nil {
		return 0, fmt.Errorf("upsert recommendations %s: %w", code, err)
	}
	return len(rows), nil
}

// Recommendations は新しい期間順に最大limit件を返します。limitが0以下なら既定件数です。
func (u *RecommendationUsecase) Recommendations(ctx context.Context, symbol string, limit int) ([]entity.Recommendation, error) {
	code, err := entity.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	return u.repo.ListBySymbol(ctx, code, limit)
}

package dto

import (
	"fmt"
	"time"

	"stock_crawler/internal/feature/company/domain/entity"
)

const periodLayout = "2006-01-02"

// RecommendationsRequest is the body of POST /api/internal/companies/recommendations.
type RecommendationsRequest struct {
	Symbol          string               `json:"symbol" binding:"required"`
	Recommendations []RecommendationItem `json:"recommendations"`
}

// RecommendationItem is one period of analyst counts in the provider's field names.
type RecommendationItem struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

func NewRecommendationItems(recs []entity.Recommendation) []RecommendationItem {
	out := make([]RecommendationItem, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationItem{
			Period:     r.Period.UTC().Format(periodLayout),
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		})
	}
	return out
}

func NewRecommendationsRequest(symbol string, recs []entity.Recommendation) RecommendationsRequest {
	return RecommendationsRequest{Symbol: symbol, Recommendations: NewRecommendationItems(recs)}
}

// ToEntities parses every period. The first unparsable one fails the request.
func (r RecommendationsRequest) ToEntities() ([]entity.Recommendation, error) {
	out := make([]entity.Recommendation, 0, len(r.Recommendations))
	for i, item := range r.Recommendations {
		period, err := time.Parse(periodLayout, item.Period)
		if err != nil {
			return nil, fmt.Errorf("recommendations[%d]: period %q: %w", i, item.Period, err)
		}
		out = append(out, entity.Recommendation{
			Symbol:     r.Symbol,
			Period:     period,
			StrongBuy:  item.StrongBuy,
			Buy:        item.Buy,
			Hold:       item.Hold,
			Sell:       item.Sell,
			StrongSell: item.StrongSell,
		})
	}
	return out, nil
}

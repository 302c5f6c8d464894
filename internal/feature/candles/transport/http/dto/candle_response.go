package dto

import (
	"stock_crawler/internal/feature/candles/domain/entity"
)

// CandleResponse はロウソク足データのレスポンスDTOです。
type CandleResponse struct {
	Time   string  `json:"time"`   // 日付
	Open   float64 `json:"open"`   // 始値
	High   float64 `json:"high"`   // 高値
	Low    float64 `json:"low"`    // 安値
	Close  float64 `json:"close"`  // 終値
	Volume int64   `json:"volume"` // 出来高
}

// NewCandleResponse はエンティティを日付文字列のレスポンスに変換します。
func NewCandleResponse(c entity.Candle) CandleResponse {
	return CandleResponse{
		Time:   c.Time.UTC().Format(DateLayout),
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
		Volume: c.Volume,
	}
}

// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
	"stock_crawler/internal/feature/candles/transport/http/dto"
	"stock_crawler/internal/feature/candles/usecase"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// CandlesUsecase はローソク足データ操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, q usecase.CandleQuery) ([]entity.Candle, error)
}

// CandlesHandler はローソク足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc CandlesUsecase
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetCandlesHandler は銘柄コードと時間間隔を受け取り、ローソク足データをJSONで返します。
// from / to は日付（2006-01-02）か RFC 3339 で、日付だけの to はその日の終わりまでを含みます。
//
// エンドポイント例:
// GET /candles/:code?interval=1day&outputsize=200
// GET /candles/:code?interval=1h&from=2024-01-02&to=2024-01-05
func (h *CandlesHandler) GetCandlesHandler(c *gin.Context) {
	code := c.Param("code")
	query := c.Request.URL.Query()

	// 未指定の場合はusecase側のデフォルト値を使用
	var interval string
	if err := runtime.BindQueryParameter("form", true, false, "interval", query, &interval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var outputsize int
	if err := runtime.BindQueryParameter("form", true, false, "outputsize", query, &outputsize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var from, to string
	if err := runtime.BindQueryParameter("form", true, false, "from", query, &from); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", query, &to); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := usecase.CandleQuery{Symbol: code, Interval: interval, OutputSize: outputsize}
	var err error
	if q.From, err = parseBound(from, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("from: %v", err)})
		return
	}
	if q.To, err = parseBound(to, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("to: %v", err)})
		return
	}

	candles, err := h.uc.GetCandles(c.Request.Context(), q)
	if errors.Is(err, usecase.ErrInvalidRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]dto.CandleResponse, 0, len(candles))
	for _, x := range candles {
		out = append(out, dto.NewCandleResponse(x))
	}
	c.JSON(http.StatusOK, out)
}

// parseBound は空文字をゼロ値として扱います。
func parseBound(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return d, nil
	}
	return time.Parse(time.RFC3339, raw)
}

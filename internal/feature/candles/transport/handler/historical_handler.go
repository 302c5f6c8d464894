package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
	"stock_crawler/internal/feature/candles/transport/http/dto"
	"stock_crawler/internal/feature/candles/usecase"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ReconcileUsecase は内部API向けの差分保存ユースケースです。
type ReconcileUsecase interface {
	BulkSave(ctx context.Context, symbol, interval string, candles []entity.Candle) (int, error)
	LatestDate(ctx context.Context, symbol, interval string) (time.Time, bool, error)
}

// HistoricalHandler はクローラーから呼ばれる /api/internal/historical を処理します。
type HistoricalHandler struct {
	uc ReconcileUsecase
}

func NewHistoricalHandler(uc ReconcileUsecase) *HistoricalHandler {
	return &HistoricalHandler{uc: uc}
}

// Latest は保存済みの最新日付を返します。データがなければ latestDate は null です。
//
// GET /api/internal/historical/latest/:symbol?interval=1day
func (h *HistoricalHandler) Latest(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := dto.DefaultInterval
	if err := runtime.BindQueryParameter("form", true, false, "interval", c.Request.URL.Query(), &interval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	latest, ok, err := h.uc.LatestDate(c.Request.Context(), symbol, interval)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidSeries) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("failed to get latest date", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := dto.LatestDateResponse{Symbol: symbol}
	if ok {
		s := latest.UTC().Format(dto.DateLayout)
		res.LatestDate = &s
	}
	c.JSON(http.StatusOK, res)
}

// BulkSave は未保存のローソク足だけを保存し、201で保存件数を返します。
//
// POST /api/internal/historical/bulk
func (h *HistoricalHandler) BulkSave(c *gin.Context) {
	var req dto.HistoricalPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	candles, err := req.ToEntities()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.uc.BulkSave(c.Request.Context(), req.Symbol, req.Interval(), candles)
	switch {
	case errors.Is(err, usecase.ErrInvalidSeries):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("failed to save historical prices", "symbol", req.Symbol, "count", len(candles), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	msg := "Historical prices saved successfully"
	if saved == 0 {
		msg = "No new data (duplicates skipped)"
	}
	c.JSON(http.StatusCreated, dto.BulkSaveResponse{Count: saved, Message: msg})
}

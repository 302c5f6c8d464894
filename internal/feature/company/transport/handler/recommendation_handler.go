package handler

import (
	"context"
	"errors"
	"net/http"

	"stock_crawler/internal/feature/company/domain/entity"
	"stock_crawler/internal/feature/company/transport/http/dto"
	"stock_crawler/internal/feature/company/usecase"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// RecommendationUsecase はアナリスト推奨のユースケースのインターフェースです。
type RecommendationUsecase interface {
	SaveRecommendations(ctx context.Context, symbol string, recs []entity.Recommendation) (int, error)
	Recommendations(ctx context.Context, symbol string, limit int) ([]entity.Recommendation, error)
}

// RecommendationHandler はアナリスト推奨の保存・参照APIを処理します。
type RecommendationHandler struct {
	uc RecommendationUsecase
}

// NewRecommendationHandler は新しい RecommendationHandler を作成します。
func NewRecommendationHandler(uc RecommendationUsecase) *RecommendationHandler {
	return &RecommendationHandler{uc: uc}
}

// Save は期間ごとの推奨件数を上書き保存し、201で保存件数を返します。
func (h *RecommendationHandler) Save(c *gin.Context) {
	var req dto.RecommendationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := req.ToEntities()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.uc.SaveRecommendations(c.Request.Context(), req.Symbol, recs)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidSymbol) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"symbol": req.Symbol, "count": n})
}

// List は銘柄の推奨を新しい期間順に返します。
func (h *RecommendationHandler) List(c *gin.Context) {
	limit := usecase.DefaultRecommendationLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", c.Request.URL.Query(), &limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	recs, err := h.uc.Recommendations(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidSymbol) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewRecommendationItems(recs))
}

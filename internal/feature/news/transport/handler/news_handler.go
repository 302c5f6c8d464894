// Package handler はnewsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"stock_crawler/internal/feature/news/domain/entity"
	"stock_crawler/internal/feature/news/transport/http/dto"
	"stock_crawler/internal/feature/news/usecase"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// NewsUsecase はニュース記事の取り込みと参照のユースケースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type NewsUsecase interface {
	Ingest(ctx context.Context, items []entity.RawNewsItem) (int, error)
	Latest(ctx context.Context, limit int) ([]entity.Article, error)
	BySymbol(ctx context.Context, symbol string, limit int) ([]entity.Article, error)
	DeleteOlderThan(ctx context.Context, daysToKeep int) (int64, error)
}

// NewsFetcher はニュース取得ジョブを同期的に実行します。
type NewsFetcher interface {
	FetchAndIngest(ctx context.Context) (int, error)
}

type NewsHandler struct {
	uc      NewsUsecase
	fetcher NewsFetcher
}

func NewNewsHandler(uc NewsUsecase, fetcher NewsFetcher) *NewsHandler {
	return &NewsHandler{uc: uc, fetcher: fetcher}
}

// Bulk は取得済みのニュース検索結果を取り込みます。
//
// POST /api/internal/news/bulk
func (h *NewsHandler) Bulk(c *gin.Context) {
	var req dto.BulkNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NewsResponse == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "newsResponse is required"})
		return
	}

	n, err := h.uc.Ingest(c.Request.Context(), req.NewsResponse.Items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.BulkNewsResponse{ProcessedCount: n, Message: "Error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.BulkNewsResponse{ProcessedCount: n, Message: "Success"})
}

// Latest は新しい順にニュースを返します。
//
// GET /api/internal/news/latest?limit=50
func (h *NewsHandler) Latest(c *gin.Context) {
	limit := usecase.DefaultLatestLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", c.Request.URL.Query(), &limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	articles, err := h.uc.Latest(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewArticleItems(articles))
}

// BySymbol は指定シンボルに関連するニュースを返します。
//
// GET /api/internal/news/symbol/:symbol?limit=20
func (h *NewsHandler) BySymbol(c *gin.Context) {
	limit := usecase.DefaultSymbolLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", c.Request.URL.Query(), &limit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	articles, err := h.uc.BySymbol(c.Request.Context(), c.Param("symbol"), limit)
	if errors.Is(err, entity.ErrEmptyEntitySymbol) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewArticleItems(articles))
}

// Cleanup は保持期間を過ぎたニュースを削除します。
//
// DELETE /api/internal/news/cleanup?daysToKeep=30
func (h *NewsHandler) Cleanup(c *gin.Context) {
	days := usecase.DefaultRetentionDays
	if err := runtime.BindQueryParameter("form", true, false, "daysToKeep", c.Request.URL.Query(), &days); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.uc.DeleteOlderThan(c.Request.Context(), days)
	if errors.Is(err, usecase.ErrInvalidRetention) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.CleanupResponse{Message: "Error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.CleanupResponse{DeletedCount: n, Message: "Success"})
}

// Crawl はニュース取得ジョブを即時実行し、新規件数を返します。
//
// POST /api/crawl/news
func (h *NewsHandler) Crawl(c *gin.Context) {
	n, err := h.fetcher.FetchAndIngest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.BulkNewsResponse{ProcessedCount: n, Message: "Success"})
}

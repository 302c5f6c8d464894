// Package handler はbackfillフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"errors"
	"net/http"

	"stock_crawler/internal/feature/backfill/usecase"

	"github.com/gin-gonic/gin"
)

// BackfillTrigger はバックフィルをバックグラウンドで開始します。
type BackfillTrigger interface {
	Fire(source string) (string, error)
	Running() bool
}

// CrawlHandler は手動でのクロール起動を受け付けます。
type CrawlHandler struct {
	trigger BackfillTrigger
}

func NewCrawlHandler(trigger BackfillTrigger) *CrawlHandler {
	return &CrawlHandler{trigger: trigger}
}

// TriggerBackfill は実行中でなければバックフィルを開始し、すぐに202とrunIdを返します。
// 実行中の場合は409を返します。
//
// POST /api/crawl/backfill
func (h *CrawlHandler) TriggerBackfill(c *gin.Context) {
	runID, err := h.trigger.Fire("manual")
	if errors.Is(err, usecase.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID, "message": "Historical backfill started"})
}

// Status はバックフィルが実行中かどうかを返します。
//
// GET /api/crawl/backfill
func (h *CrawlHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.trigger.Running()})
}

package handler

import (
	"context"
	"net/http"

	"stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/feature/jobstate/transport/http/dto"

	"github.com/gin-gonic/gin"
)

// JobStateLister はジョブ状態一覧を返すユースケースです。
type JobStateLister interface {
	List(ctx context.Context) ([]entity.JobState, error)
}

// JobStateHandler はクロールジョブ状態の参照APIを提供します。
type JobStateHandler struct {
	uc JobStateLister
}

// NewJobStateHandler は新しい JobStateHandler を作成します。
func NewJobStateHandler(uc JobStateLister) *JobStateHandler {
	return &JobStateHandler{uc: uc}
}

// List は GET /api/crawl/jobs を処理します。
func (h *JobStateHandler) List(c *gin.Context) {
	states, err := h.uc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.JobStateItem, 0, len(states))
	for _, s := range states {
		out = append(out, dto.JobStateItem{
			Symbol:                  s.Symbol,
			LastSyncStatus:          string(s.LastSyncStatus),
			LastSuccessfulTimestamp: s.LastSuccessfulAt,
			ErrorLog:                s.ErrorLog,
			UpdatedAt:               s.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

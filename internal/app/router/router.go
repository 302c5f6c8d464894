// Package router はHTTPルーティングを組み立てます。
package router

import (
	backfillhandler "stock_crawler/internal/feature/backfill/transport/handler"
	candleshandler "stock_crawler/internal/feature/candles/transport/handler"
	companyhandler "stock_crawler/internal/feature/company/transport/handler"
	jobstatehandler "stock_crawler/internal/feature/jobstate/transport/handler"
	newshandler "stock_crawler/internal/feature/news/transport/handler"
	platformhandler "stock_crawler/internal/platform/http/handler"

	"github.com/gin-gonic/gin"
)

// Handlers は登録対象のハンドラー一式です。
type Handlers struct {
	Health     *platformhandler.HealthHandler
	Candles    *candleshandler.CandlesHandler
	Historical *candleshandler.HistoricalHandler
	Company    *companyhandler.CompanyHandler
	Analysts   *companyhandler.RecommendationHandler
	News       *newshandler.NewsHandler
	Crawl      *backfillhandler.CrawlHandler
	Jobs       *jobstatehandler.JobStateHandler
}

func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 導通確認用
	r.GET("/healthz", h.Health.Health)
	r.HEAD("/healthz", h.Health.Health)
	r.OPTIONS("/healthz", h.Health.Health)
	r.GET("/readyz", h.Health.Ready)

	// 参照系
	r.GET("/symbols", h.Company.List)
	r.GET("/candles/:code", h.Candles.GetCandlesHandler)

	// クローラーが書き込む内部API
	internal := r.Group("/api/internal")
	{
		internal.GET("/historical/latest/:symbol", h.Historical.Latest)
		internal.POST("/historical/bulk", h.Historical.BulkSave)
		internal.POST("/companies/profile", h.Company.UpsertProfile)
		internal.POST("/companies/recommendations", h.Analysts.Save)
		internal.GET("/companies/:symbol/recommendations", h.Analysts.List)

		internal.POST("/news/bulk", h.News.Bulk)
		internal.GET("/news/latest", h.News.Latest)
		internal.GET("/news/symbol/:symbol", h.News.BySymbol)
		internal.DELETE("/news/cleanup", h.News.Cleanup)
	}

	// 手動実行・状態確認
	crawl := r.Group("/api/crawl")
	{
		crawl.POST("/backfill", h.Crawl.TriggerBackfill)
		crawl.GET("/backfill", h.Crawl.Status)
		crawl.POST("/news", h.News.Crawl)
		crawl.GET("/jobs", h.Jobs.List)
	}

	return r
}

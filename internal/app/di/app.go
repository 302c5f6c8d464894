package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_crawler/internal/app/router"
	"stock_crawler/internal/config"
	"stock_crawler/internal/feature/backfill/adapters/downstream"
	backfillhandler "stock_crawler/internal/feature/backfill/transport/handler"
	backfillusecase "stock_crawler/internal/feature/backfill/usecase"
	candleadapters "stock_crawler/internal/feature/candles/adapters"
	candleshandler "stock_crawler/internal/feature/candles/transport/handler"
	candlesusecase "stock_crawler/internal/feature/candles/usecase"
	companyadapters "stock_crawler/internal/feature/company/adapters"
	companyhandler "stock_crawler/internal/feature/company/transport/handler"
	companyusecase "stock_crawler/internal/feature/company/usecase"
	jobstateadapters "stock_crawler/internal/feature/jobstate/adapters"
	jobstatehandler "stock_crawler/internal/feature/jobstate/transport/handler"
	jobstateusecase "stock_crawler/internal/feature/jobstate/usecase"
	newsadapters "stock_crawler/internal/feature/news/adapters"
	newshandler "stock_crawler/internal/feature/news/transport/handler"
	newsusecase "stock_crawler/internal/feature/news/usecase"
	"stock_crawler/internal/platform/cache"
	infrahttp "stock_crawler/internal/platform/http"
	platformhandler "stock_crawler/internal/platform/http/handler"
	"stock_crawler/internal/platform/scheduler"
	"stock_crawler/internal/shared/ratelimiter"
)

// App is the fully wired crawler.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	Backfill  *backfillusecase.BackfillUsecase
	Trigger   *backfillusecase.Trigger
	Refresh   *backfillusecase.RefreshUsecase
	NewsFetch *newsusecase.NewsFetchUsecase

	db  *gorm.DB
	rdb *goredis.Client
}

// NewApp wires every component on top of an open, migrated database.
// rdb may be nil. base bounds background backfill runs.
func NewApp(base context.Context, cfg config.Config, db *gorm.DB, rdb *goredis.Client) (*App, error) {
	startDate, err := cfg.StartTime()
	if err != nil {
		return nil, err
	}

	// Repository
	companyRepo := companyadapters.NewCompanyRepository(db)
	candleRepo := candleadapters.NewCandleRepository(db)
	jobRepo := jobstateadapters.NewJobStateRepository(db)
	articleRepo := newsadapters.NewArticleRepository(db)
	recommendationRepo := companyadapters.NewRecommendationRepository(db)

	// wrap with the Redis cache
	cachedCandles := cache.NewCachingCandleRepository(rdb, cfg.Cache.TTL, candleRepo, cfg.Cache.Namespace)
	if cfg.Schedule.Backfill != "" {
		next, err := scheduler.NextFunc(cfg.Schedule.Backfill)
		if err != nil {
			return nil, err
		}
		cachedCandles.WithRefresh(next)
	}

	// Usecase
	companyUC := companyusecase.NewCompanyUsecase(companyRepo)
	recommendationUC := companyusecase.NewRecommendationUsecase(recommendationRepo)
	candlesUC := candlesusecase.NewCandlesUsecase(cachedCandles)
	reconcileUC := candlesusecase.NewReconcileUsecase(cachedCandles, companyRepo)
	tracker := jobstateusecase.NewJobStateTracker(jobRepo)
	newsUC := newsusecase.NewNewsUsecase(articleRepo)

	if n, err := companyUC.SeedSymbols(base, cfg.Symbols); err != nil {
		return nil, fmt.Errorf("seed symbols: %w", err)
	} else if n > 0 {
		slog.Info("registered configured symbols", "added", n)
	}

	var sink interface {
		backfillusecase.Downstream
		backfillusecase.RecommendationSink
	} = downstream.NewLocal(reconcileUC, companyUC, recommendationUC)
	if cfg.DownstreamURL != "" {
		sink = downstream.NewHTTPClient(cfg.DownstreamURL,
			infrahttp.NewHTTPClient(cfg.HTTP.ConnectTimeout, cfg.HTTP.ResponseTimeout))
		slog.Info("backfill writes to remote stock service", "url", cfg.DownstreamURL)
	}

	market := NewMarket(cfg)
	profiles := NewProfileClient(cfg)

	backfillUC := backfillusecase.NewBackfillUsecase(
		companyUC,
		market,
		profiles,
		sink,
		tracker,
		backfillusecase.NewWindowResolver(sink, startDate),
		backfillusecase.NewChunkedUploader(sink, cfg.Backfill.ChunkSize, cfg.Backfill.ChunkDelay),
		ratelimiter.NewRateLimiter(1, cfg.Backfill.StartGap),
		backfillusecase.Options{
			Interval:    cfg.Backfill.Interval,
			OutputSize:  cfg.Backfill.OutputSize,
			Concurrency: cfg.Backfill.Concurrency,
			SymbolDelay: cfg.Backfill.SymbolDelay,
		},
	)
	trigger := backfillusecase.NewTrigger(base, backfillUC)

	refreshUC := backfillusecase.NewRefreshUsecase(companyUC, backfillusecase.RefreshSources{
		Quotes:          market,
		Recommendations: profiles,
		Profiles:        profiles,
	}, sink, tracker, cfg.Refresh.SymbolDelay)

	newsFetch := newsusecase.NewNewsFetchUsecase(NewNewsClient(cfg), companyUC, newsUC, tracker, newsusecase.FetchOptions{
		Limit:         cfg.News.Limit,
		Language:      cfg.News.Language,
		Lookback:      cfg.News.Lookback,
		RetentionDays: cfg.News.RetentionDays,
	})

	// Handler
	checks := map[string]platformhandler.Check{
		"db": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	r := router.NewRouter(router.Handlers{
		Health:     platformhandler.NewHealthHandler(checks),
		Candles:    candleshandler.NewCandlesHandler(candlesUC),
		Historical: candleshandler.NewHistoricalHandler(reconcileUC),
		Company:    companyhandler.NewCompanyHandler(companyUC),
		Analysts:   companyhandler.NewRecommendationHandler(recommendationUC),
		News:       newshandler.NewNewsHandler(newsUC, newsFetch),
		Crawl:      backfillhandler.NewCrawlHandler(trigger),
		Jobs:       jobstatehandler.NewJobStateHandler(jobRepo),
	})

	return &App{
		Config:    cfg,
		Router:    r,
		Backfill:  backfillUC,
		Trigger:   trigger,
		Refresh:   refreshUC,
		NewsFetch: newsFetch,
		db:        db,
		rdb:       rdb,
	}, nil
}

// Scheduler registers the periodic jobs. A scheduled backfill that finds a
// run already in progress is skipped.
func (a *App) Scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	s := scheduler.New(ctx)

	jobs := []struct {
		spec string
		job  scheduler.Job
	}{
		{a.Config.Schedule.Backfill, scheduler.JobFunc{JobName: "historical-backfill", Fn: func(context.Context) error {
			_, err := a.Trigger.Fire("schedule")
			if errors.Is(err, backfillusecase.ErrRunInProgress) {
				slog.Info("scheduled backfill skipped, run in progress")
				return nil
			}
			return err
		}}},
		{a.Config.Schedule.News, scheduler.JobFunc{JobName: "news-fetch", Fn: func(ctx context.Context) error {
			_, err := a.NewsFetch.FetchAndIngest(ctx)
			return err
		}}},
		{a.Config.Schedule.NewsCleanup, scheduler.JobFunc{JobName: "news-cleanup", Fn: func(ctx context.Context) error {
			_, err := a.NewsFetch.Cleanup(ctx)
			return err
		}}},
		{a.Config.Schedule.Quote, scheduler.JobFunc{JobName: "daily-quote", Fn: func(ctx context.Context) error {
			_, err := a.Refresh.RefreshQuotes(ctx)
			return err
		}}},
		{a.Config.Schedule.Recommendation, scheduler.JobFunc{JobName: "weekly-recommendation", Fn: func(ctx context.Context) error {
			_, err := a.Refresh.RefreshRecommendations(ctx)
			return err
		}}},
		{a.Config.Schedule.Profile, scheduler.JobFunc{JobName: "weekly-company-profile", Fn: func(ctx context.Context) error {
			_, err := a.Refresh.RefreshProfiles(ctx)
			return err
		}}},
	}
	for _, j := range jobs {
		if j.spec == "" {
			slog.Info("job disabled", "job", j.job.Name())
			continue
		}
		if err := s.AddJob(j.spec, j.job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close waits for a running backfill and releases connections.
func (a *App) Close(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		a.Trigger.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("backfill still running at shutdown", "timeout", timeout)
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
}

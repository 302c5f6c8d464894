package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candleadapters "stock_crawler/internal/feature/candles/adapters"
	companyadapters "stock_crawler/internal/feature/company/adapters"
	companyentity "stock_crawler/internal/feature/company/domain/entity"
	jobstateadapters "stock_crawler/internal/feature/jobstate/adapters"
	newsadapters "stock_crawler/internal/feature/news/adapters"
	platformredis "stock_crawler/internal/platform/redis"
)

// Migrate creates or updates every table the crawler owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&companyentity.Company{},
		&companyadapters.RecommendationModel{},
		&candleadapters.CandleModel{},
		&jobstateadapters.JobStateModel{},
		&newsadapters.ArticleModel{},
		&newsadapters.EntityModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// NewRedis returns nil when Redis is not configured or unreachable; the
// application then runs without a cache.
func NewRedis(ctx context.Context, cfg platformredis.Config) *goredis.Client {
	rdb, err := platformredis.NewRedisClient(ctx, cfg)
	if err != nil {
		if errors.Is(err, platformredis.ErrDisabled) {
			slog.Info("redis not configured, running without cache")
		} else {
			slog.Warn("redis unavailable, running without cache", "error", err)
		}
		return nil
	}
	return rdb
}

// Command ingest runs one historical backfill synchronously and exits.
// The exit status is non-zero when the run could not start or any symbol failed.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stock_crawler/internal/app/di"
	"stock_crawler/internal/config"
	"stock_crawler/internal/platform/db"
	"stock_crawler/internal/platform/logger"
	platformredis "stock_crawler/internal/platform/redis"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config) int {
	gdb, err := db.OpenDB(db.LoadConfigFromEnv())
	if err != nil {
		slog.Error("database unavailable", "error", err)
		return 1
	}
	if err := di.Migrate(gdb); err != nil {
		slog.Error("migration failed", "error", err)
		return 1
	}

	app, err := di.NewApp(ctx, cfg, gdb, di.NewRedis(ctx, platformredis.LoadConfig()))
	if err != nil {
		slog.Error("wiring failed", "error", err)
		return 1
	}
	defer app.Close(time.Second)

	summary, err := app.Backfill.RunBackfill(ctx)
	if err != nil {
		slog.Error("backfill aborted", "run_id", summary.RunID, "error", err)
		return 1
	}

	slog.Info("ingest finished",
		"run_id", summary.RunID,
		"succeeded", len(summary.Succeeded),
		"up_to_date", len(summary.UpToDate),
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"saved", summary.Saved,
		"elapsed", summary.FinishedAt.Sub(summary.StartedAt),
	)
	if len(summary.Failed) > 0 || len(summary.Skipped) > 0 {
		return 1
	}
	return 0
}

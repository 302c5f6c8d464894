package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
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

const shutdownTimeout = 30 * time.Second

func main() {
	// .env はローカル開発用。存在しなくてもよい
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	gdb, err := db.OpenDB(db.LoadConfigFromEnv())
	if err != nil {
		return err
	}
	if err := di.Migrate(gdb); err != nil {
		return err
	}
	rdb := di.NewRedis(ctx, platformredis.LoadConfig())

	app, err := di.NewApp(ctx, cfg, gdb, rdb)
	if err != nil {
		return err
	}
	defer app.Close(shutdownTimeout)

	sched, err := app.Scheduler(ctx)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	// リスナーが準備できてから初回のバックフィルを開始する
	if cfg.RunOnStartup {
		if runID, err := app.Trigger.Fire("startup"); err != nil {
			slog.Warn("startup backfill not started", "error", err)
		} else {
			slog.Info("startup backfill started", "run_id", runID)
		}
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

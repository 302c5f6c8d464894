// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// retryInterval は接続リトライの間隔です。
var retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	Driver       string // "postgres"（デフォルト）または "sqlite"
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	SSLMode      string
	InstanceName string // Cloud SQL の接続名。設定時はUnixソケットで接続
	Path         string // sqlite のファイルパス（":memory:" 可）
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		Driver:       getenv("DB_DRIVER", DriverPostgres),
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         getenv("DB_HOST", "localhost"),
		Port:         getenv("DB_PORT", "5432"),
		SSLMode:      getenv("DB_SSLMODE", "disable"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
		Path:         getenv("DB_PATH", "stock_crawler.db"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// BuildDSN は設定からドライバ用のDSN文字列を生成します。
// InstanceName が設定されている場合は Host/Port より優先されます。
func BuildDSN(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}

	host, port := cfg.Host, cfg.Port
	if cfg.InstanceName != "" {
		host, port = "/cloudsql/"+cfg.InstanceName, ""
	}
	parts := []string{
		"host=" + host,
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Name,
	}
	if port != "" {
		parts = append(parts, "port="+port)
	}
	if cfg.SSLMode != "" && cfg.InstanceName == "" {
		parts = append(parts, "sslmode="+cfg.SSLMode)
	}
	parts = append(parts, "TimeZone=UTC")
	return strings.Join(parts, " ")
}

// ConnectWithRetry は timeout に達するまで retryInterval 間隔で opener を呼び出します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(dsn string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err, "interval", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Opener はドライバに応じた接続関数を返します。
func Opener(driver string) (func(dsn string) (*gorm.DB, error), error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
	switch driver {
	case DriverPostgres, "":
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(postgres.Open(dsn), gcfg) }, nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), gcfg) }, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// OpenDB は設定に従ってデータベースへ接続します。接続できるまで最大60秒リトライします。
func OpenDB(cfg Config) (*gorm.DB, error) {
	opener, err := Opener(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(BuildDSN(cfg), 60*time.Second, opener)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// SQLiteは同時書き込みができないため接続を1本に絞る
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	slog.Info("database connected", "driver", cfg.Driver)
	return db, nil
}

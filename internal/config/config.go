// Package config loads crawler settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar date format used for StartDate.
const DateLayout = "2006-01-02"

// Config is the top-level configuration of the crawler.
type Config struct {
	Symbols       []string       `yaml:"symbols"`
	Backfill      BackfillConfig `yaml:"backfill"`
	Schedule      Schedule       `yaml:"schedule"`
	Refresh       RefreshConfig  `yaml:"refresh"`
	News          NewsConfig     `yaml:"news"`
	TwelveData    APIConfig      `yaml:"twelve_data"`
	Finnhub       APIConfig      `yaml:"finnhub"`
	Marketaux     APIConfig      `yaml:"marketaux"`
	Retry         RetryConfig    `yaml:"retry"`
	HTTP          HTTPConfig     `yaml:"http"`
	Cache         CacheConfig    `yaml:"cache"`
	DownstreamURL string         `yaml:"downstream_url"`
	HTTPAddr      string         `yaml:"http_addr"`
	RunOnStartup  bool           `yaml:"run_on_startup"`
	LogLevel      string         `yaml:"log_level"`
}

// BackfillConfig tunes the historical backfill.
type BackfillConfig struct {
	StartDate   string        `yaml:"start_date"`
	Interval    string        `yaml:"interval"`
	OutputSize  int           `yaml:"output_size"`
	ChunkSize   int           `yaml:"chunk_size"`
	ChunkDelay  time.Duration `yaml:"chunk_delay"`
	SymbolDelay time.Duration `yaml:"symbol_delay"`
	Concurrency int           `yaml:"concurrency"`
	// StartGap is the minimum pause between two symbol starts.
	StartGap time.Duration `yaml:"start_gap"`
}

// Schedule holds six-field cron expressions evaluated in UTC. Empty disables the job.
type Schedule struct {
	Backfill       string `yaml:"backfill"`
	News           string `yaml:"news"`
	NewsCleanup    string `yaml:"news_cleanup"`
	Quote          string `yaml:"quote"`
	Recommendation string `yaml:"recommendation"`
	Profile        string `yaml:"profile"`
}

// RefreshConfig tunes the per-symbol quote, recommendation and profile jobs.
type RefreshConfig struct {
	SymbolDelay time.Duration `yaml:"symbol_delay"`
}

// NewsConfig tunes the news fetch and retention jobs.
type NewsConfig struct {
	Limit         int           `yaml:"limit"`
	Language      string        `yaml:"language"`
	Lookback      time.Duration `yaml:"lookback"`
	RetentionDays int           `yaml:"retention_days"`
}

// APIConfig is the connection setting of one market data provider.
// An empty BaseURL keeps the provider's public endpoint.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig governs retries of rate-limited provider calls.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// HTTPConfig holds outbound HTTP client timeouts.
type HTTPConfig struct {
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
}

// CacheConfig configures the read-side candle cache.
type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	Namespace string        `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Symbols: []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA"},
		Backfill: BackfillConfig{
			StartDate:   "2015-01-01",
			Interval:    "1day",
			OutputSize:  5000,
			ChunkSize:   100,
			ChunkDelay:  500 * time.Millisecond,
			SymbolDelay: time.Second,
			Concurrency: 1,
			StartGap:    time.Second,
		},
		Schedule: Schedule{
			Backfill:       "0 0 6 * * *",
			News:           "0 0 10,15,21 * * *",
			NewsCleanup:    "0 0 0 * * *",
			Quote:          "0 0 21 * * MON-FRI",
			Recommendation: "0 0 2 * * MON",
			Profile:        "0 0 3 * * MON",
		},
		Refresh: RefreshConfig{
			SymbolDelay: time.Second,
		},
		News: NewsConfig{
			Limit:         100,
			Language:      "en",
			Lookback:      8 * time.Hour,
			RetentionDays: 30,
		},
		TwelveData: APIConfig{Timeout: 30 * time.Second},
		Finnhub:    APIConfig{Timeout: 30 * time.Second},
		Marketaux:  APIConfig{Timeout: 30 * time.Second},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
			MaxDelay:   8 * time.Second,
		},
		HTTP: HTTPConfig{
			ConnectTimeout:  10 * time.Second,
			ResponseTimeout: 30 * time.Second,
		},
		Cache:        CacheConfig{TTL: time.Hour, Namespace: "candles"},
		HTTPAddr:     ":8080",
		RunOnStartup: true,
		LogLevel:     "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Symbols = normalizeSymbols(cfg.Symbols)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StartTime parses Backfill.StartDate as a UTC date.
func (c Config) StartTime() (time.Time, error) {
	return time.ParseInLocation(DateLayout, c.Backfill.StartDate, time.UTC)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.StartTime(); err != nil {
		errs = append(errs, fmt.Errorf("backfill.start_date %q: want YYYY-MM-DD", c.Backfill.StartDate))
	}
	if c.Backfill.Interval == "" {
		errs = append(errs, errors.New("backfill.interval is required"))
	}
	if c.Backfill.ChunkSize < 1 {
		errs = append(errs, errors.New("backfill.chunk_size must be positive"))
	}
	if c.Backfill.OutputSize < 1 {
		errs = append(errs, errors.New("backfill.output_size must be positive"))
	}
	if c.Backfill.Concurrency < 1 {
		errs = append(errs, errors.New("backfill.concurrency must be positive"))
	}
	if c.Backfill.ChunkDelay < 0 || c.Backfill.SymbolDelay < 0 || c.Backfill.StartGap < 0 {
		errs = append(errs, errors.New("backfill delays must not be negative"))
	}
	if c.Refresh.SymbolDelay < 0 {
		errs = append(errs, errors.New("refresh.symbol_delay must not be negative"))
	}
	if c.News.RetentionDays < 1 {
		errs = append(errs, errors.New("news.retention_days must be positive"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	if v := os.Getenv("CRAWL_SYMBOLS"); v != "" {
		cfg.Symbols = strings.Split(v, ",")
	}

	setString("BACKFILL_START_DATE", &cfg.Backfill.StartDate)
	setString("BACKFILL_INTERVAL", &cfg.Backfill.Interval)
	setInt("BACKFILL_OUTPUT_SIZE", &cfg.Backfill.OutputSize)
	setInt("BACKFILL_CHUNK_SIZE", &cfg.Backfill.ChunkSize)
	setDuration("BACKFILL_CHUNK_DELAY", &cfg.Backfill.ChunkDelay)
	setDuration("BACKFILL_SYMBOL_DELAY", &cfg.Backfill.SymbolDelay)
	setInt("BACKFILL_CONCURRENCY", &cfg.Backfill.Concurrency)
	setDuration("BACKFILL_START_GAP", &cfg.Backfill.StartGap)

	setString("SCHEDULE_BACKFILL", &cfg.Schedule.Backfill)
	setString("SCHEDULE_NEWS", &cfg.Schedule.News)
	setString("SCHEDULE_NEWS_CLEANUP", &cfg.Schedule.NewsCleanup)
	setString("SCHEDULE_QUOTE", &cfg.Schedule.Quote)
	setString("SCHEDULE_RECOMMENDATION", &cfg.Schedule.Recommendation)
	setString("SCHEDULE_PROFILE", &cfg.Schedule.Profile)
	setDuration("REFRESH_SYMBOL_DELAY", &cfg.Refresh.SymbolDelay)

	setInt("NEWS_LIMIT", &cfg.News.Limit)
	setString("NEWS_LANGUAGE", &cfg.News.Language)
	setDuration("NEWS_LOOKBACK", &cfg.News.Lookback)
	setInt("NEWS_RETENTION_DAYS", &cfg.News.RetentionDays)

	setString("TWELVE_DATA_BASE_URL", &cfg.TwelveData.BaseURL)
	setString("TWELVE_DATA_API_KEY", &cfg.TwelveData.APIKey)
	setString("FINNHUB_BASE_URL", &cfg.Finnhub.BaseURL)
	setString("FINNHUB_API_KEY", &cfg.Finnhub.APIKey)
	setString("MARKETAUX_BASE_URL", &cfg.Marketaux.BaseURL)
	setString("MARKETAUX_API_KEY", &cfg.Marketaux.APIKey)

	setInt("RETRY_MAX_RETRIES", &cfg.Retry.MaxRetries)
	setDuration("RETRY_BASE_DELAY", &cfg.Retry.BaseDelay)
	setDuration("RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)

	setDuration("HTTP_CONNECT_TIMEOUT", &cfg.HTTP.ConnectTimeout)
	setDuration("HTTP_RESPONSE_TIMEOUT", &cfg.HTTP.ResponseTimeout)

	setDuration("CACHE_TTL", &cfg.Cache.TTL)
	setString("DOWNSTREAM_URL", &cfg.DownstreamURL)
	setString("HTTP_ADDR", &cfg.HTTPAddr)
	setString("LOG_LEVEL", &cfg.LogLevel)

	if v := os.Getenv("PORT"); v != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + v
	}
	if v := os.Getenv("RUN_ON_STARTUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RUN_ON_STARTUP: %w", err))
		} else {
			cfg.RunOnStartup = b
		}
	}

	return errors.Join(errs...)
}

// normalizeSymbols trims, upper-cases and de-duplicates symbols keeping first-seen order.
func normalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

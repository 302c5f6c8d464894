// Package di provides dependency injection factories for creating application components.
package di

import (
	"log/slog"
	"time"

	"stock_crawler/internal/config"
	"stock_crawler/internal/platform/externalapi"
	"stock_crawler/internal/platform/externalapi/finnhub"
	"stock_crawler/internal/platform/externalapi/marketaux"
	"stock_crawler/internal/platform/externalapi/twelvedata"
	infrahttp "stock_crawler/internal/platform/http"
)

// retryPolicy converts the retry settings and logs every retry at WARN.
func retryPolicy(cfg config.RetryConfig) externalapi.RetryPolicy {
	return externalapi.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		OnRetry: func(op string, attempt int, delay time.Duration, err error) {
			slog.Warn("rate limited, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

func responseTimeout(api config.APIConfig, cfg config.Config) time.Duration {
	if api.Timeout > 0 {
		return api.Timeout
	}
	return cfg.HTTP.ResponseTimeout
}

// NewMarket creates a fully configured TwelveDataMarket with HTTP client.
func NewMarket(cfg config.Config) *twelvedata.TwelveDataMarket {
	c := twelvedata.DefaultConfig()
	c.TwelveDataAPIKey = cfg.TwelveData.APIKey
	if cfg.TwelveData.BaseURL != "" {
		c.BaseURL = cfg.TwelveData.BaseURL
	}
	c.Timeout = responseTimeout(cfg.TwelveData, cfg)
	c.Retry = retryPolicy(cfg.Retry)
	return twelvedata.NewTwelveDataMarket(c, infrahttp.NewHTTPClient(cfg.HTTP.ConnectTimeout, c.Timeout))
}

// NewProfileClient creates the Finnhub company profile client.
func NewProfileClient(cfg config.Config) *finnhub.Client {
	c := finnhub.DefaultConfig()
	c.APIKey = cfg.Finnhub.APIKey
	if cfg.Finnhub.BaseURL != "" {
		c.BaseURL = cfg.Finnhub.BaseURL
	}
	c.Timeout = responseTimeout(cfg.Finnhub, cfg)
	c.Retry = retryPolicy(cfg.Retry)
	return finnhub.NewClient(c, infrahttp.NewHTTPClient(cfg.HTTP.ConnectTimeout, c.Timeout))
}

// NewNewsClient creates the Marketaux news client.
func NewNewsClient(cfg config.Config) *marketaux.Client {
	c := marketaux.DefaultConfig()
	c.APIKey = cfg.Marketaux.APIKey
	if cfg.Marketaux.BaseURL != "" {
		c.BaseURL = cfg.Marketaux.BaseURL
	}
	c.Timeout = responseTimeout(cfg.Marketaux, cfg)
	c.Retry = retryPolicy(cfg.Retry)
	return marketaux.NewClient(c, infrahttp.NewHTTPClient(cfg.HTTP.ConnectTimeout, c.Timeout))
}

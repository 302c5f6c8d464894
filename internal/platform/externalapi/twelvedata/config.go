// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import (
	"time"

	"stock_crawler/internal/platform/externalapi"
)

const defaultBaseURL = "https://api.twelvedata.com"

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string                  // API key for authentication
	BaseURL          string                  // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout          time.Duration           // HTTP response timeout
	Retry            externalapi.RetryPolicy // applied to rate-limited calls
}

// DefaultConfig returns the public Twelve Data endpoint with standard timeout and retry.
// Callers fill in the API key.
func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: 30 * time.Second,
		Retry:   externalapi.DefaultRetryPolicy(),
	}
}

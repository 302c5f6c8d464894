// Package finnhub provides a client for the Finnhub company data API.
package finnhub

import (
	"time"

	"stock_crawler/internal/platform/externalapi"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Config holds configuration for the Finnhub API client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   externalapi.RetryPolicy
}

// DefaultConfig returns the public Finnhub endpoint with standard timeout and retry.
// Callers fill in the API key.
func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: 30 * time.Second,
		Retry:   externalapi.DefaultRetryPolicy(),
	}
}

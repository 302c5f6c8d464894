// Package marketaux provides a client for the Marketaux financial news API.
package marketaux

import (
	"time"

	"stock_crawler/internal/platform/externalapi"
)

const defaultBaseURL = "https://api.marketaux.com/v1"

// Config holds configuration for the Marketaux API client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   externalapi.RetryPolicy
}

// DefaultConfig returns the public Marketaux endpoint with standard timeout and retry.
// Callers fill in the API key.
func DefaultConfig() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Timeout: 30 * time.Second,
		Retry:   externalapi.DefaultRetryPolicy(),
	}
}

package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stock_crawler/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return db
}

// fakeProviders serves the Twelve Data and Finnhub endpoints the backfill calls.
func fakeProviders(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/time_series", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"meta": {"symbol": "AAPL", "interval": "1day", "currency": "USD", "exchange": "NASDAQ", "type": "Common Stock"},
			"values": [
				{"datetime": "2024-01-02", "open": "1", "high": "2", "low": "0.5", "close": "1.5", "volume": "100"},
				{"datetime": "2024-01-03", "open": "1.5", "high": "2.5", "low": "1", "close": "2", "volume": "200"},
				{"datetime": "2024-01-04", "open": "2", "high": "3", "low": "1.5", "close": "2.5", "volume": "300"}
			]
		}`))
	})
	mux.HandleFunc("/stock/profile2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Apple Inc", "ticker": "AAPL", "country": "US", "currency": "USD", "exchange": "NASDAQ"}`))
	})
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"symbol": "AAPL", "name": "Apple Inc", "exchange": "NASDAQ", "currency": "USD",
			"datetime": "2024-01-05", "open": "2.5", "high": "3.5", "low": "2", "close": "3", "volume": "400",
			"previous_close": "2.5", "change": "0.5", "percent_change": "20", "is_market_open": false
		}`))
	})
	mux.HandleFunc("/stock/recommendation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol": "AAPL", "period": "2024-01-01", "strongBuy": 12, "buy": 22, "hold": 8, "sell": 1, "strongSell": 0},
			{"symbol": "AAPL", "period": "2023-12-01", "strongBuy": 11, "buy": 21, "hold": 9, "sell": 1, "strongSell": 0}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(providerURL string) config.Config {
	cfg := config.Default()
	cfg.Symbols = []string{"aapl"}
	cfg.TwelveData.BaseURL = providerURL
	cfg.Finnhub.BaseURL = providerURL
	cfg.Marketaux.BaseURL = providerURL
	cfg.Backfill.ChunkSize = 2
	cfg.Backfill.ChunkDelay = 0
	cfg.Backfill.SymbolDelay = 0
	cfg.Backfill.StartGap = 0
	cfg.Refresh.SymbolDelay = 0
	return cfg
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewApp_BackfillThenQuery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := fakeProviders(t)
	app, err := NewApp(ctx, testConfig(providers.URL), setupTestDB(t), nil)
	require.NoError(t, err)

	// configured symbols are seeded into the universe
	w := get(t, app.Router, "/symbols")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AAPL")

	summary, err := app.Backfill.RunBackfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, summary.Succeeded)
	assert.Equal(t, 3, summary.Saved)

	w = get(t, app.Router, "/api/internal/historical/latest/AAPL?interval=1day")
	require.Equal(t, http.StatusOK, w.Code)
	var latest struct {
		Symbol     string  `json:"symbol"`
		LatestDate *string `json:"latestDate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	require.NotNil(t, latest.LatestDate)
	assert.Equal(t, "2024-01-04", *latest.LatestDate)

	w = get(t, app.Router, "/candles/AAPL?interval=1day&outputsize=10")
	require.Equal(t, http.StatusOK, w.Code)
	var candles []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &candles))
	assert.Len(t, candles, 3)

	w = get(t, app.Router, "/api/crawl/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SUCCEEDED")

	w = get(t, app.Router, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewApp_ManualTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := fakeProviders(t)
	app, err := NewApp(ctx, testConfig(providers.URL), setupTestDB(t), nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/crawl/backfill", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "runId")

	app.Trigger.Wait()
	assert.False(t, app.Trigger.Running())

	w = get(t, app.Router, "/api/internal/historical/latest/AAPL")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2024-01-04")
}

func TestApp_Scheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig("http://127.0.0.1:1")
	cfg.Schedule.NewsCleanup = ""

	app, err := NewApp(ctx, cfg, setupTestDB(t), nil)
	require.NoError(t, err)

	s, err := app.Scheduler(ctx)
	require.NoError(t, err)
	// backfill, news, quote, recommendation, profile
	assert.Equal(t, 5, s.Entries())
}

func TestNewApp_RefreshJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := fakeProviders(t)
	app, err := NewApp(ctx, testConfig(providers.URL), setupTestDB(t), nil)
	require.NoError(t, err)

	_, err = app.Backfill.RunBackfill(ctx)
	require.NoError(t, err)

	w := get(t, app.Router, "/candles/AAPL?interval=1day&from=2024-01-03&to=2024-01-04")
	require.Equal(t, http.StatusOK, w.Code)
	var window []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &window))
	assert.Len(t, window, 2)

	quotes, err := app.Refresh.RefreshQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, quotes.Succeeded)
	assert.Equal(t, 1, quotes.Saved)

	w = get(t, app.Router, "/api/internal/historical/latest/AAPL?interval=1day")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2024-01-05", "closed quote becomes the day's candle")

	recs, err := app.Refresh.RefreshRecommendations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recs.Saved)

	w = get(t, app.Router, "/api/internal/companies/AAPL/recommendations")
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		Period    string `json:"period"`
		StrongBuy int    `json:"strongBuy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "2024-01-01", items[0].Period)
	assert.Equal(t, 12, items[0].StrongBuy)

	profiles, err := app.Refresh.RefreshProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, profiles.Succeeded)

	w = get(t, app.Router, "/api/crawl/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	for _, key := range []string{"AAPL_QUOTE", "AAPL_RECOMMENDATION", "AAPL_PROFILE"} {
		assert.Contains(t, w.Body.String(), key)
	}
}

func TestNewApp_InvalidSchedule(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Schedule.Backfill = "every morning"

	_, err := NewApp(context.Background(), cfg, setupTestDB(t), nil)
	assert.Error(t, err)
}

func TestApp_Close(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig("http://127.0.0.1:1"), setupTestDB(t), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Close(time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}
}

package downstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stock_crawler/internal/feature/backfill/adapters/downstream"
	"stock_crawler/internal/feature/backfill/usecase"
	candleadapters "stock_crawler/internal/feature/candles/adapters"
	candle "stock_crawler/internal/feature/candles/domain/entity"
	candlehandler "stock_crawler/internal/feature/candles/transport/handler"
	candleusecase "stock_crawler/internal/feature/candles/usecase"
	companyadapters "stock_crawler/internal/feature/company/adapters"
	company "stock_crawler/internal/feature/company/domain/entity"
	companyhandler "stock_crawler/internal/feature/company/transport/handler"
	companyusecase "stock_crawler/internal/feature/company/usecase"
	"stock_crawler/internal/platform/externalapi"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stores struct {
	db              *gorm.DB
	candles         *candleusecase.ReconcileUsecase
	companies       *companyusecase.CompanyUsecase
	recommendations *companyusecase.RecommendationUsecase
}

func setupStores(t *testing.T) stores {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: はコネクションごとに別DBになるため1本に固定する
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&candleadapters.CandleModel{}, &company.Company{}, &companyadapters.RecommendationModel{}))

	companyRepo := companyadapters.NewCompanyRepository(db)
	return stores{
		db:              db,
		candles:         candleusecase.NewReconcileUsecase(candleadapters.NewCandleRepository(db), companyRepo),
		companies:       companyusecase.NewCompanyUsecase(companyRepo),
		recommendations: companyusecase.NewRecommendationUsecase(companyadapters.NewRecommendationRepository(db)),
	}
}

func newStockService(t *testing.T, s stores) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hist := candlehandler.NewHistoricalHandler(s.candles)
	comp := companyhandler.NewCompanyHandler(s.companies)
	recs := companyhandler.NewRecommendationHandler(s.recommendations)

	r := gin.New()
	internal := r.Group("/api/internal")
	internal.GET("/historical/latest/:symbol", hist.Latest)
	internal.POST("/historical/bulk", hist.BulkSave)
	internal.POST("/companies/profile", comp.UpsertProfile)
	internal.POST("/companies/recommendations", recs.Save)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func days(symbol string, from, n int) []candle.Candle {
	out := make([]candle.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candle.Candle{
			Symbol:   symbol,
			Interval: "1day",
			Time:     time.Date(2024, 1, from+i, 0, 0, 0, 0, time.UTC),
			Open:     184.22, High: 185.88, Low: 183.43, Close: 184.25, Volume: 58414500,
		})
	}
	return out
}

// exerciseDownstream runs the same reconciliation scenario against any Downstream.
func exerciseDownstream(t *testing.T, d usecase.Downstream) {
	t.Helper()
	ctx := context.Background()

	latest, err := d.LatestDate(ctx, "AAPL", "1day")
	require.NoError(t, err)
	assert.Equal(t, "", latest)

	require.NoError(t, d.UpsertProfile(ctx, company.Profile{Symbol: "AAPL", Name: "Apple Inc", Exchange: "NASDAQ"}))

	saved, err := d.BulkSaveTimeSeries(ctx, "AAPL", "1day", days("AAPL", 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, saved)

	saved, err = d.BulkSaveTimeSeries(ctx, "AAPL", "1day", days("AAPL", 3, 3))
	require.NoError(t, err)
	assert.Equal(t, 1, saved, "overlapping chunk only saves the new day")

	saved, err = d.BulkSaveTimeSeries(ctx, "AAPL", "1day", days("AAPL", 2, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	latest, err = d.LatestDate(ctx, "AAPL", "1day")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", latest)
}

// exerciseRecommendations saves two periods twice and checks the second write overwrites.
func exerciseRecommendations(t *testing.T, s stores, sink usecase.RecommendationSink) {
	t.Helper()
	ctx := context.Background()

	recs := []company.Recommendation{
		{Period: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), StrongBuy: 10, Buy: 20, Hold: 5},
		{Period: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), StrongBuy: 11, Buy: 21, Hold: 4},
	}
	n, err := sink.SaveRecommendations(ctx, "AAPL", recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs[1].Sell = 2
	_, err = sink.SaveRecommendations(ctx, "AAPL", recs)
	require.NoError(t, err)

	got, err := s.recommendations.Recommendations(ctx, "AAPL", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Sell)
	assert.Equal(t, 10, got[1].StrongBuy)
}

func TestLocal(t *testing.T) {
	t.Parallel()

	s := setupStores(t)
	exerciseDownstream(t, downstream.NewLocal(s.candles, s.companies, s.recommendations))
}

func TestLocal_Recommendations(t *testing.T) {
	t.Parallel()

	s := setupStores(t)
	exerciseRecommendations(t, s, downstream.NewLocal(s.candles, s.companies, s.recommendations))
}

func TestHTTPClient_Recommendations(t *testing.T) {
	t.Parallel()

	s := setupStores(t)
	srv := newStockService(t, s)
	exerciseRecommendations(t, s, downstream.NewHTTPClient(srv.URL, srv.Client()))
}

func TestLocal_UnknownSymbolIsRejected(t *testing.T) {
	t.Parallel()

	s := setupStores(t)
	_, err := downstream.NewLocal(s.candles, s.companies, s.recommendations).BulkSaveTimeSeries(context.Background(), "MSFT", "1day", days("MSFT", 2, 1))
	assert.ErrorIs(t, err, candleusecase.ErrUnknownSymbol)
}

func TestHTTPClient(t *testing.T) {
	t.Parallel()

	srv := newStockService(t, setupStores(t))
	exerciseDownstream(t, downstream.NewHTTPClient(srv.URL+"/", srv.Client()))
}

func TestHTTPClient_IntradayKeepsTimeOfDay(t *testing.T) {
	t.Parallel()

	s := setupStores(t)
	srv := newStockService(t, s)
	c := downstream.NewHTTPClient(srv.URL, srv.Client())
	ctx := context.Background()
	require.NoError(t, c.UpsertProfile(ctx, company.Profile{Symbol: "AAPL", Name: "Apple Inc"}))

	hours := []candle.Candle{
		{Symbol: "AAPL", Interval: "1h", Time: time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Symbol: "AAPL", Interval: "1h", Time: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	}

	saved, err := c.BulkSaveTimeSeries(ctx, "AAPL", "1h", hours)
	require.NoError(t, err)
	assert.Equal(t, 2, saved, "同じ日の別時刻は別の点として保存される")

	saved, err = c.BulkSaveTimeSeries(ctx, "AAPL", "1h", hours)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	var rows []candleadapters.CandleModel
	require.NoError(t, s.db.Where(map[string]any{"symbol": "AAPL", "interval": "1h"}).Order("time").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, hours[0].Time.Equal(rows[0].Time))
	assert.True(t, hours[1].Time.Equal(rows[1].Time))
}

func TestHTTPClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown symbol", func(t *testing.T) {
		t.Parallel()
		srv := newStockService(t, setupStores(t))
		c := downstream.NewHTTPClient(srv.URL, srv.Client())

		_, err := c.BulkSaveTimeSeries(context.Background(), "MSFT", "1day", days("MSFT", 2, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, externalapi.ErrUnreachable)
		var apiErr *externalapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})

	t.Run("server down", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := downstream.NewHTTPClient(url, http.DefaultClient).LatestDate(context.Background(), "AAPL", "1day")
		assert.ErrorIs(t, err, externalapi.ErrUnreachable)
	})

	t.Run("invalid profile", func(t *testing.T) {
		t.Parallel()
		srv := newStockService(t, setupStores(t))
		err := downstream.NewHTTPClient(srv.URL, srv.Client()).UpsertProfile(context.Background(), company.Profile{Symbol: "bad symbol!"})
		var apiErr *externalapi.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

package downstream

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"stock_crawler/internal/feature/backfill/usecase"
	candle "stock_crawler/internal/feature/candles/domain/entity"
	candledto "stock_crawler/internal/feature/candles/transport/http/dto"
	company "stock_crawler/internal/feature/company/domain/entity"
	companydto "stock_crawler/internal/feature/company/transport/http/dto"
	"stock_crawler/internal/platform/externalapi"
)

// HTTPClient はリモートの株価サービスの /api/internal を呼び出します。
// 失敗は *externalapi.Error として返し、ここではリトライしません。
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var (
	_ usecase.Downstream  = (*HTTPClient)(nil)
	_ usecase.RefreshSink = (*HTTPClient)(nil)
)

func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *HTTPClient) LatestDate(ctx context.Context, symbol, interval string) (string, error) {
	u := c.baseURL + "/api/internal/historical/latest/" + url.PathEscape(symbol) + "?" +
		url.Values{"interval": {interval}}.Encode()

	var res candledto.LatestDateResponse
	if err := externalapi.GetJSON(ctx, c.client, "downstream.LatestDate", u, &res); err != nil {
		return "", err
	}
	if res.LatestDate == nil {
		return "", nil
	}
	return *res.LatestDate, nil
}

func (c *HTTPClient) BulkSaveTimeSeries(ctx context.Context, symbol, interval string, points []candle.Candle) (int, error) {
	var res candledto.BulkSaveResponse
	body := candledto.NewHistoricalPricesRequest(symbol, interval, points)
	if err := externalapi.PostJSON(ctx, c.client, "downstream.BulkSave", c.baseURL+"/api/internal/historical/bulk", body, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (c *HTTPClient) UpsertProfile(ctx context.Context, p company.Profile) error {
	return externalapi.PostJSON(ctx, c.client, "downstream.UpsertProfile",
		c.baseURL+"/api/internal/companies/profile", companydto.NewProfileRequest(p), nil)
}

func (c *HTTPClient) SaveRecommendations(ctx context.Context, symbol string, recs []company.Recommendation) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	body := companydto.NewRecommendationsRequest(symbol, recs)
	if err := externalapi.PostJSON(ctx, c.client, "downstream.SaveRecommendations",
		c.baseURL+"/api/internal/companies/recommendations", body, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

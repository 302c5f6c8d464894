package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	backfill "stock_crawler/internal/feature/backfill/usecase"
	"stock_crawler/internal/feature/company/domain/entity"
	"stock_crawler/internal/platform/externalapi"
	"stock_crawler/internal/platform/externalapi/finnhub/dto"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Client はFinnhub APIから企業プロフィールとアナリスト推奨を取得します。
type Client struct {
	cfg    Config
	client *http.Client
}

var _ backfill.ProfileSource = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// GetCompanyProfile は銘柄の企業プロフィールを取得します。
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (entity.Profile, error) {
	const op = "finnhub profile2"

	u := c.url("/stock/profile2", symbol)
	body, err := externalapi.Do(ctx, c.cfg.Retry, op, func(ctx context.Context) (dto.ProfileResponse, error) {
		var body dto.ProfileResponse
		err := externalapi.GetJSON(ctx, c.client, op, u, &body)
		return body, err
	})
	if err != nil {
		return entity.Profile{}, err
	}

	p := entity.Profile{
		Symbol:   symbol,
		Name:     body.Name,
		Country:  body.Country,
		Currency: body.Currency,
		Exchange: body.Exchange,
		Industry: body.FinnhubIndustry,
		Logo:     body.Logo,
		WebURL:   body.WebURL,
		Phone:    body.Phone,
	}
	if body.IPO != "" {
		ipo, err := time.Parse(dateLayout, body.IPO)
		if err != nil {
			return entity.Profile{}, externalapi.Malformed(op, fmt.Errorf("parse ipo %q: %w", body.IPO, err))
		}
		p.IPO = &ipo
	}
	if body.MarketCapitalization != nil {
		d := decimal.NewFromFloat(*body.MarketCapitalization)
		p.MarketCapitalization = &d
	}
	if body.ShareOutstanding != nil {
		d := decimal.NewFromFloat(*body.ShareOutstanding)
		p.ShareOutstanding = &d
	}
	return p, nil
}

// GetRecommendations はアナリスト推奨の推移を新しい期間順に取得します。
func (c *Client) GetRecommendations(ctx context.Context, symbol string) ([]entity.Recommendation, error) {
	const op = "finnhub recommendation"

	u := c.url("/stock/recommendation", symbol)
	body, err := externalapi.Do(ctx, c.cfg.Retry, op, func(ctx context.Context) ([]dto.RecommendationResponse, error) {
		var body []dto.RecommendationResponse
		err := externalapi.GetJSON(ctx, c.client, op, u, &body)
		return body, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]entity.Recommendation, 0, len(body))
	for _, r := range body {
		period, err := time.Parse(dateLayout, r.Period)
		if err != nil {
			return nil, externalapi.Malformed(op, fmt.Errorf("parse period %q: %w", r.Period, err))
		}
		out = append(out, entity.Recommendation{
			Symbol:     r.Symbol,
			Period:     period,
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		})
	}
	return out, nil
}

func (c *Client) url(path, symbol string) string {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.cfg.APIKey)
	return fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, q.Encode())
}

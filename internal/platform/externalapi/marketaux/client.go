package marketaux

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"stock_crawler/internal/feature/news/domain/entity"
	news "stock_crawler/internal/feature/news/usecase"
	"stock_crawler/internal/platform/externalapi"
	"stock_crawler/internal/platform/externalapi/marketaux/dto"
)

// publishedLayout は /news/all が受け付ける唯一の日時形式です（秒・タイムゾーンなし）。
const publishedLayout = "2006-01-02T15:04"

// Client はMarketaux APIからニュース記事を検索します。
type Client struct {
	cfg    Config
	client *http.Client
}

var _ news.NewsSource = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// SearchNews は指定銘柄に関するニュースを検索します。
func (c *Client) SearchNews(ctx context.Context, q entity.NewsQuery) (entity.NewsPage, error) {
	const op = "marketaux news"

	params := url.Values{}
	params.Set("symbols", strings.Join(q.Symbols, ","))
	params.Set("filter_entities", "true")
	params.Set("api_token", c.cfg.APIKey)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	if !q.PublishedAfter.IsZero() {
		params.Set("published_after", q.PublishedAfter.UTC().Format(publishedLayout))
	}
	if !q.PublishedBefore.IsZero() {
		params.Set("published_before", q.PublishedBefore.UTC().Format(publishedLayout))
	}
	u := fmt.Sprintf("%s/news/all?%s", c.cfg.BaseURL, params.Encode())

	body, err := externalapi.Do(ctx, c.cfg.Retry, op, func(ctx context.Context) (dto.NewsResponse, error) {
		var body dto.NewsResponse
		err := externalapi.GetJSON(ctx, c.client, op, u, &body)
		return body, err
	})
	if err != nil {
		return entity.NewsPage{}, err
	}
	if body.Error != nil {
		return entity.NewsPage{}, externalapi.Malformed(op, fmt.Errorf("%s: %s", body.Error.Code, body.Error.Message))
	}

	page := entity.NewsPage{
		Meta: entity.NewsMeta{
			Found:    body.Meta.Found,
			Returned: body.Meta.Returned,
			Limit:    body.Meta.Limit,
			Page:     body.Meta.Page,
		},
		Items: make([]entity.RawNewsItem, 0, len(body.Data)),
	}
	for _, d := range body.Data {
		item := entity.RawNewsItem{
			UUID:        d.UUID,
			Title:       d.Title,
			Description: d.Description,
			Keywords:    d.Keywords,
			Snippet:     d.Snippet,
			URL:         d.URL,
			ImageURL:    d.ImageURL,
			Language:    d.Language,
			PublishedAt: d.PublishedAt,
			Source:      d.Source,
			Relevance:   d.Relevance,
		}
		if item.Relevance == nil {
			item.Relevance = d.RelevanceScore
		}
		for _, e := range d.Entities {
			if e.Raw != "" {
				item.Entities = append(item.Entities, e.Raw)
				continue
			}
			item.Entities = append(item.Entities, entity.FormatEntityRef(e.Symbol, e.Name, e.Exchange))
		}
		page.Items = append(page.Items, item)
	}

	slog.Info("fetched news", "symbols", len(q.Symbols), "articles", len(page.Items), "found", page.Meta.Found)
	return page, nil
}

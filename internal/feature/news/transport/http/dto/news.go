package dto

import (
	"time"

	"stock_crawler/internal/feature/news/domain/entity"

	"github.com/shopspring/decimal"
)

// BulkNewsRequest is the body of POST /api/internal/news/bulk: a news search page as fetched.
type BulkNewsRequest struct {
	NewsResponse *entity.NewsPage `json:"newsResponse"`
}

type BulkNewsResponse struct {
	ProcessedCount int    `json:"processedCount"`
	Message        string `json:"message"`
}

type CleanupResponse struct {
	DeletedCount int64  `json:"deletedCount"`
	Message      string `json:"message"`
}

type EntityItem struct {
	Symbol   string  `json:"symbol"`
	Name     *string `json:"name"`
	Exchange *string `json:"exchange"`
}

// ArticleItem is one stored article as returned by the query endpoints.
type ArticleItem struct {
	UUID           string           `json:"uuid"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Snippet        string           `json:"snippet,omitempty"`
	Keywords       string           `json:"keywords,omitempty"`
	URL            string           `json:"url"`
	ImageURL       string           `json:"imageUrl,omitempty"`
	Language       string           `json:"language,omitempty"`
	Source         string           `json:"source,omitempty"`
	PublishedAt    time.Time        `json:"publishedAt"`
	RelevanceScore *decimal.Decimal `json:"relevanceScore"`
	Entities       []EntityItem     `json:"entities"`
}

func NewArticleItems(articles []entity.Article) []ArticleItem {
	out := make([]ArticleItem, 0, len(articles))
	for _, a := range articles {
		item := ArticleItem{
			UUID:           a.UUID,
			Title:          a.Title,
			Description:    a.Description,
			Snippet:        a.Snippet,
			Keywords:       a.Keywords,
			URL:            a.URL,
			ImageURL:       a.ImageURL,
			Language:       a.Language,
			Source:         a.Source,
			PublishedAt:    a.PublishedAt.UTC(),
			RelevanceScore: a.RelevanceScore,
			Entities:       make([]EntityItem, 0, len(a.Entities)),
		}
		for _, e := range a.Entities {
			item.Entities = append(item.Entities, EntityItem{Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange})
		}
		out = append(out, item)
	}
	return out
}

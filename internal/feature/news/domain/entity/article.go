// Package entity defines the domain models for the news feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article is a stored news article. UUID is assigned by the news provider and
// is the natural key: an article is written once and never updated.
type Article struct {
	UUID           string
	Title          string
	Description    string
	Snippet        string
	Keywords       string
	URL            string
	ImageURL       string
	Language       string
	Source         string
	PublishedAt    time.Time
	RelevanceScore *decimal.Decimal
	Entities       []EntityRef
}

// RawNewsItem is one article as delivered by the news provider.
// Entities use the "SYMBOL|Name|Exchange" form.
type RawNewsItem struct {
	UUID        string   `json:"uuid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Snippet     string   `json:"snippet"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	Language    string   `json:"language"`
	PublishedAt string   `json:"published_at"`
	Source      string   `json:"source"`
	Relevance   *float64 `json:"relevance"`
	Entities    []string `json:"entities"`
}

// NewsQuery holds the news search parameters. Zero values are omitted from the request.
type NewsQuery struct {
	Symbols         []string
	Limit           int
	Language        string
	PublishedAfter  time.Time
	PublishedBefore time.Time
}

// NewsMeta is the paging information of a news search.
type NewsMeta struct {
	Found    int `json:"found"`
	Returned int `json:"returned"`
	Limit    int `json:"limit"`
	Page     int `json:"page"`
}

// NewsPage is one page of news search results.
type NewsPage struct {
	Meta  NewsMeta      `json:"meta"`
	Items []RawNewsItem `json:"data"`
}

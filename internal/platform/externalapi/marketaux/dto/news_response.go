// Package dto defines data transfer objects for the Marketaux API responses.
package dto

import (
	"bytes"
	"encoding/json"
)

// NewsResponse represents the JSON response from /news/all.
type NewsResponse struct {
	Meta struct {
		Found    int `json:"found"`
		Returned int `json:"returned"`
		Limit    int `json:"limit"`
		Page     int `json:"page"`
	} `json:"meta"`
	Data  []NewsData `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewsData is one article.
type NewsData struct {
	UUID           string   `json:"uuid"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Keywords       string   `json:"keywords"`
	Snippet        string   `json:"snippet"`
	URL            string   `json:"url"`
	ImageURL       string   `json:"image_url"`
	Language       string   `json:"language"`
	PublishedAt    string   `json:"published_at"`
	Source         string   `json:"source"`
	Relevance      *float64 `json:"relevance"`
	RelevanceScore *float64 `json:"relevance_score"`
	Entities       []Entity `json:"entities"`
}

// Entity accepts both the object form returned by the API and the
// pre-flattened "SYMBOL|Name|Exchange" string form.
type Entity struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Raw      string `json:"-"`
}

func (e *Entity) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		return json.Unmarshal(b, &e.Raw)
	}
	type plain Entity
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*e = Entity(p)
	return nil
}

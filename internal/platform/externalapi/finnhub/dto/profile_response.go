// Package dto defines data transfer objects for the Finnhub API responses.
package dto

// ProfileResponse represents the JSON response from /stock/profile2.
// Unknown symbols yield an empty object.
type ProfileResponse struct {
	Country              string   `json:"country"`
	Currency             string   `json:"currency"`
	Exchange             string   `json:"exchange"`
	FinnhubIndustry      string   `json:"finnhubIndustry"`
	IPO                  string   `json:"ipo"`
	Logo                 string   `json:"logo"`
	MarketCapitalization *float64 `json:"marketCapitalization"`
	Name                 string   `json:"name"`
	Phone                string   `json:"phone"`
	ShareOutstanding     *float64 `json:"shareOutstanding"`
	Ticker               string   `json:"ticker"`
	WebURL               string   `json:"weburl"`
}

// RecommendationResponse is one element of the /stock/recommendation array.
type RecommendationResponse struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

package dto

import (
	"fmt"
	"time"

	"stock_crawler/internal/feature/company/domain/entity"

	"github.com/shopspring/decimal"
)

const ipoLayout = "2006-01-02"

// ProfileRequest is the body of POST /api/internal/companies/profile.
type ProfileRequest struct {
	Symbol  string  `json:"symbol" binding:"required"`
	Profile Profile `json:"profile"`
}

// Profile mirrors the provider's company profile fields.
type Profile struct {
	Country              string           `json:"country,omitempty"`
	Currency             string           `json:"currency,omitempty"`
	Exchange             string           `json:"exchange,omitempty"`
	IPO                  string           `json:"ipo,omitempty"`
	MarketCapitalization *decimal.Decimal `json:"marketCapitalization,omitempty"`
	Name                 string           `json:"name,omitempty"`
	Phone                string           `json:"phone,omitempty"`
	ShareOutstanding     *decimal.Decimal `json:"shareOutstanding,omitempty"`
	Ticker               string           `json:"ticker,omitempty"`
	WebURL               string           `json:"weburl,omitempty"`
	Logo                 string           `json:"logo,omitempty"`
	FinnhubIndustry      string           `json:"finnhubIndustry,omitempty"`
}

// NewProfileRequest converts a domain profile into the request body.
func NewProfileRequest(p entity.Profile) ProfileRequest {
	out := Profile{
		Country:              p.Country,
		Currency:             p.Currency,
		Exchange:             p.Exchange,
		MarketCapitalization: p.MarketCapitalization,
		Name:                 p.Name,
		Phone:                p.Phone,
		ShareOutstanding:     p.ShareOutstanding,
		Ticker:               p.Symbol,
		WebURL:               p.WebURL,
		Logo:                 p.Logo,
		FinnhubIndustry:      p.Industry,
	}
	if p.IPO != nil {
		out.IPO = p.IPO.Format(ipoLayout)
	}
	return ProfileRequest{Symbol: p.Symbol, Profile: out}
}

// ToEntity converts the request into a domain profile.
func (r ProfileRequest) ToEntity() (entity.Profile, error) {
	p := entity.Profile{
		Symbol:               r.Symbol,
		Name:                 r.Profile.Name,
		Country:              r.Profile.Country,
		Currency:             r.Profile.Currency,
		Exchange:             r.Profile.Exchange,
		Industry:             r.Profile.FinnhubIndustry,
		Logo:                 r.Profile.Logo,
		WebURL:               r.Profile.WebURL,
		Phone:                r.Profile.Phone,
		MarketCapitalization: r.Profile.MarketCapitalization,
		ShareOutstanding:     r.Profile.ShareOutstanding,
	}
	if r.Profile.IPO != "" {
		ipo, err := time.Parse(ipoLayout, r.Profile.IPO)
		if err != nil {
			return entity.Profile{}, fmt.Errorf("parse ipo %q: %w", r.Profile.IPO, err)
		}
		p.IPO = &ipo
	}
	return p, nil
}

// Package entity defines the domain models for the company feature.
package entity

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Company is one row of the symbol universe together with its latest profile.
// Rows are seeded from configuration (Code, SortKey) and filled in by profile upserts.
type Company struct {
	ID       uint   `gorm:"primaryKey"`
	Code     string `gorm:"size:20;not null;uniqueIndex"`
	Name     string `gorm:"size:255;not null;default:''"`
	Market   string `gorm:"size:100;not null;default:''"`
	IsActive bool   `gorm:"not null;default:true"`
	SortKey  int    `gorm:"not null;default:0"`

	Country              string `gorm:"size:64"`
	Currency             string `gorm:"size:16"`
	Industry             string `gorm:"size:255"`
	Logo                 string `gorm:"size:1024"`
	WebURL               string `gorm:"size:1024"`
	Phone                string `gorm:"size:64"`
	IPO                  *time.Time
	MarketCapitalization decimal.NullDecimal `gorm:"type:numeric(24,4)"`
	ShareOutstanding     decimal.NullDecimal `gorm:"type:numeric(24,4)"`
	ProfileUpdatedAt     *time.Time

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Company) TableName() string { return "companies" }

// Profile is the descriptive data a market data provider returns for a symbol.
// Later writes overwrite earlier ones.
type Profile struct {
	Symbol               string
	Name                 string
	Country              string
	Currency             string
	Exchange             string
	Industry             string
	Logo                 string
	WebURL               string
	Phone                string
	IPO                  *time.Time
	MarketCapitalization *decimal.Decimal
	ShareOutstanding     *decimal.Decimal
}

// Recommendation is one period of analyst recommendation counts.
type Recommendation struct {
	Symbol     string
	Period     time.Time
	StrongBuy  int
	Buy        int
	Hold       int
	Sell       int
	StrongSell int
}

// ErrInvalidSymbol is returned when a symbol is empty or contains characters
// other than A-Z, 0-9 and '.'.
var ErrInvalidSymbol = errors.New("invalid symbol")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.]+$`)

// NormalizeSymbol trims and upper-cases s and validates the result.
func NormalizeSymbol(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(code) {
		return "", errors.Join(ErrInvalidSymbol, errors.New(s))
	}
	return code, nil
}

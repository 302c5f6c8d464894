package dto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock_crawler/internal/feature/candles/domain/entity"
)

// DateLayout is the calendar date form used on the internal API.
const DateLayout = "2006-01-02"

// DefaultInterval is assumed when a bulk request carries no meta interval.
const DefaultInterval = "1day"

// HistoricalPricesRequest is the body of POST /api/internal/historical/bulk.
type HistoricalPricesRequest struct {
	Symbol     string         `json:"symbol" binding:"required"`
	TimeSeries TimeSeriesData `json:"timeSeries"`
}

// TimeSeriesData carries the provider's time series as received.
type TimeSeriesData struct {
	Meta   *MetaData   `json:"meta,omitempty"`
	Values []ValueData `json:"values"`
}

type MetaData struct {
	Symbol           string `json:"symbol,omitempty"`
	Interval         string `json:"interval,omitempty"`
	Currency         string `json:"currency,omitempty"`
	ExchangeTimezone string `json:"exchangeTimezone,omitempty"`
	Exchange         string `json:"exchange,omitempty"`
	Type             string `json:"type,omitempty"`
}

// ValueData is one OHLCV point. Numbers travel as strings, the way the provider sends them.
type ValueData struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume,omitempty"`
}

// BulkSaveResponse reports how many points were newly saved.
type BulkSaveResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// LatestDateResponse answers GET /api/internal/historical/latest/:symbol.
// LatestDate is null when nothing is stored for the symbol.
type LatestDateResponse struct {
	Symbol     string  `json:"symbol"`
	LatestDate *string `json:"latestDate"`
}

// NewHistoricalPricesRequest builds a bulk request for one chunk of candles.
// Datetimes are sent as RFC 3339 so intraday points keep their time of day.
func NewHistoricalPricesRequest(symbol, interval string, candles []entity.Candle) HistoricalPricesRequest {
	values := make([]ValueData, 0, len(candles))
	for _, c := range candles {
		values = append(values, ValueData{
			Datetime: c.Time.UTC().Format(time.RFC3339),
			Open:     formatFloat(c.Open),
			High:     formatFloat(c.High),
			Low:      formatFloat(c.Low),
			Close:    formatFloat(c.Close),
			Volume:   strconv.FormatInt(c.Volume, 10),
		})
	}
	return HistoricalPricesRequest{
		Symbol: symbol,
		TimeSeries: TimeSeriesData{
			Meta:   &MetaData{Symbol: symbol, Interval: interval},
			Values: values,
		},
	}
}

// Interval returns the meta interval or DefaultInterval.
func (r HistoricalPricesRequest) Interval() string {
	if r.TimeSeries.Meta != nil && r.TimeSeries.Meta.Interval != "" {
		return r.TimeSeries.Meta.Interval
	}
	return DefaultInterval
}

// ToEntities parses every value. The first unparsable value fails the whole request.
func (r HistoricalPricesRequest) ToEntities() ([]entity.Candle, error) {
	interval := r.Interval()
	out := make([]entity.Candle, 0, len(r.TimeSeries.Values))
	for i, v := range r.TimeSeries.Values {
		c, err := v.toEntity(r.Symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (v ValueData) toEntity(symbol, interval string) (entity.Candle, error) {
	t, err := ParseDatetime(v.Datetime)
	if err != nil {
		return entity.Candle{}, err
	}
	var errs []error
	num := func(field, s string) float64 {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q: invalid number", field, s))
		}
		return f
	}
	c := entity.Candle{
		Symbol:   symbol,
		Interval: interval,
		Time:     t,
		Open:     num("open", v.Open),
		High:     num("high", v.High),
		Low:      num("low", v.Low),
		Close:    num("close", v.Close),
	}
	if s := strings.TrimSpace(v.Volume); s != "" {
		vol, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("volume %q: invalid integer", v.Volume))
		}
		c.Volume = vol
	}
	return c, errors.Join(errs...)
}

// ParseDatetime accepts an RFC 3339 instant, a "2006-01-02 15:04:05" timestamp or a
// calendar date, all taken as UTC.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime %q: unsupported format", s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

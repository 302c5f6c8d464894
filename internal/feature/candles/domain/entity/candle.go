// Package entity defines the domain models for the candles feature.
package entity

import "time"

// Candle represents OHLCV (Open, High, Low, Close, Volume) candlestick data
// for a stock symbol at a specific time interval.
// The natural key is (Symbol, Interval, Time); stored candles are never overwritten.
type Candle struct {
	Symbol   string    // Stock ticker symbol (e.g., "AAPL", "BRK.B")
	Interval string    // Time interval (e.g., "1day", "1week", "1month")
	Time     time.Time // Timestamp for the start of this candle period (UTC)
	Open     float64   // Opening price
	High     float64   // Highest price during this period
	Low      float64   // Lowest price during this period
	Close    float64   // Closing price
	Volume   int64     // Trading volume
}

// SeriesMeta describes the instrument a time series belongs to.
type SeriesMeta struct {
	Symbol           string
	Interval         string
	Currency         string
	Exchange         string
	ExchangeTimezone string
	Type             string
}

// TimeSeries is a provider response: metadata plus candles in provider order.
type TimeSeries struct {
	Meta    SeriesMeta
	Candles []Candle
}

// TimeSeriesQuery selects a date range of candles from the market data provider.
// Zero StartDate / EndDate leave the bound open.
type TimeSeriesQuery struct {
	Symbol     string
	Interval   string
	StartDate  time.Time
	EndDate    time.Time
	OutputSize int
}

// Quote is the latest trading snapshot for a symbol.
type Quote struct {
	Symbol        string
	Name          string
	Exchange      string
	Currency      string
	Time          time.Time
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int64
	PreviousClose float64
	Change        float64
	PercentChange float64
	IsMarketOpen  bool
}

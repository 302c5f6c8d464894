package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backfill "stock_crawler/internal/feature/backfill/usecase"
	"stock_crawler/internal/feature/candles/domain/entity"
	"stock_crawler/internal/platform/externalapi"
	"stock_crawler/internal/platform/externalapi/twelvedata/dto"
)

const dateLayout = "2006-01-02"

// TwelveDataMarket はTwelve Data外部APIから株価データを取得するクライアントです。
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
}

// TwelveDataMarketがTimeSeriesSourceを実装していることをコンパイル時に検証します。
var _ backfill.TimeSeriesSource = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket は指定された設定とHTTPクライアントでTwelveDataMarketの新しいインスタンスを生成します。
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client}
}

// GetTimeSeries はTwelve Data APIから時系列株価データを古い順に取得します。
// 指定期間にデータがない場合（休場日のみの期間など）は空のTimeSeriesを返します。
func (t *TwelveDataMarket) GetTimeSeries(ctx context.Context, q entity.TimeSeriesQuery) (entity.TimeSeries, error) {
	const op = "twelvedata time_series"

	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	if q.OutputSize > 0 {
		params.Set("outputsize", strconv.Itoa(q.OutputSize))
	}
	if !q.StartDate.IsZero() {
		params.Set("start_date", q.StartDate.Format(dateLayout))
	}
	if !q.EndDate.IsZero() {
		params.Set("end_date", q.EndDate.Format(dateLayout))
	}
	// 古い順に取得する。途中で失敗しても保存済みの範囲が連続し、次回は最新日の翌日から再開できる
	params.Set("order", "asc")
	params.Set("apikey", t.cfg.TwelveDataAPIKey)
	u := fmt.Sprintf("%s/time_series?%s", t.cfg.BaseURL, params.Encode())

	body, err := externalapi.Do(ctx, t.cfg.Retry, op, func(ctx context.Context) (dto.TimeSeriesResponse, error) {
		var body dto.TimeSeriesResponse
		if err := externalapi.GetJSON(ctx, t.client, op, u, &body); err != nil {
			return body, err
		}
		if isNoData(body.ErrorFields) {
			return dto.TimeSeriesResponse{}, nil
		}
		return body, bodyError(op, body.ErrorFields)
	})
	if err != nil {
		return entity.TimeSeries{}, err
	}

	series := entity.TimeSeries{
		Meta: entity.SeriesMeta{
			Symbol:           body.Meta.Symbol,
			Interval:         body.Meta.Interval,
			Currency:         body.Meta.Currency,
			Exchange:         body.Meta.Exchange,
			ExchangeTimezone: body.Meta.ExchangeTimezone,
			Type:             body.Meta.Type,
		},
		Candles: make([]entity.Candle, 0, len(body.Values)),
	}
	if series.Meta.Symbol == "" {
		series.Meta.Symbol = q.Symbol
	}
	if series.Meta.Interval == "" {
		series.Meta.Interval = q.Interval
	}

	for _, v := range body.Values {
		tm, err := parseDatetime(v.Datetime)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}
		o, err := parseFloat("open", v.Open)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}
		h, err := parseFloat("high", v.High)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}
		l, err := parseFloat("low", v.Low)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}
		c, err := parseFloat("close", v.Close)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}
		vol, err := parseVolume(v.Volume)
		if err != nil {
			return entity.TimeSeries{}, externalapi.Malformed(op, err)
		}

		series.Candles = append(series.Candles, entity.Candle{
			Symbol:   series.Meta.Symbol,
			Interval: series.Meta.Interval,
			Time:     tm,
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			Volume:   vol,
		})
	}
	return series, nil
}

// GetQuote は銘柄の最新クォートを取得します。
func (t *TwelveDataMarket) GetQuote(ctx context.Context, symbol string) (entity.Quote, error) {
	const op = "twelvedata quote"

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("apikey", t.cfg.TwelveDataAPIKey)
	u := fmt.Sprintf("%s/quote?%s", t.cfg.BaseURL, params.Encode())

	body, err := externalapi.Do(ctx, t.cfg.Retry, op, func(ctx context.Context) (dto.QuoteResponse, error) {
		var body dto.QuoteResponse
		if err := externalapi.GetJSON(ctx, t.client, op, u, &body); err != nil {
			return body, err
		}
		return body, bodyError(op, body.ErrorFields)
	})
	if err != nil {
		return entity.Quote{}, err
	}

	q := entity.Quote{
		Symbol:       body.Symbol,
		Name:         body.Name,
		Exchange:     body.Exchange,
		Currency:     body.Currency,
		IsMarketOpen: body.IsMarketOpen,
	}
	if q.Time, err = parseDatetime(body.Datetime); err != nil {
		return entity.Quote{}, externalapi.Malformed(op, err)
	}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", body.Open, &q.Open},
		{"high", body.High, &q.High},
		{"low", body.Low, &q.Low},
		{"close", body.Close, &q.Close},
		{"previous_close", body.PreviousClose, &q.PreviousClose},
		{"change", body.Change, &q.Change},
		{"percent_change", body.PercentChange, &q.PercentChange},
	}
	for _, f := range fields {
		if *f.dst, err = parseFloat(f.name, f.raw); err != nil {
			return entity.Quote{}, externalapi.Malformed(op, err)
		}
	}
	if q.Volume, err = parseVolume(body.Volume); err != nil {
		return entity.Quote{}, externalapi.Malformed(op, err)
	}
	return q, nil
}

// bodyError はHTTP 200でもボディに含まれるエラー（status: "error"）を分類します。
func bodyError(op string, f dto.ErrorFields) error {
	if f.Status != "error" {
		return nil
	}
	if f.Code == 0 {
		return externalapi.Malformed(op, errors.New(f.Message))
	}
	return externalapi.FromStatus(op, f.Code, f.Message)
}

// isNoData はデータ不在の期間指定に対する400応答を判定します。
func isNoData(f dto.ErrorFields) bool {
	return f.Status == "error" && f.Code == http.StatusBadRequest && strings.Contains(f.Message, "No data is available")
}

func parseDatetime(s string) (time.Time, error) {
	tm, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		tm, err = time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
		}
	}
	return tm.UTC(), nil
}

func parseFloat(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return f, nil
}

// parseVolume は出来高をパースします。指数やFXなど出来高がない銘柄は空文字列で返るため0とします。
func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse volume %q: %w", s, err)
	}
	return v, nil
}

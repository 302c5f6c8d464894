package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"stock_crawler/internal/feature/backfill/domain/entity"
	candle "stock_crawler/internal/feature/candles/domain/entity"
	company "stock_crawler/internal/feature/company/domain/entity"
	job "stock_crawler/internal/feature/jobstate/domain/entity"
)

// staticSymbols はSymbolSourceのモックです。
type staticSymbols struct {
	codes []string
	err   error
}

func (s staticSymbols) ActiveSymbols(ctx context.Context) ([]string, error) { return s.codes, s.err }

// mockSeries はTimeSeriesSourceのモックです。
type mockSeries struct {
	GetTimeSeriesFunc func(ctx context.Context, q candle.TimeSeriesQuery) (candle.TimeSeries, error)

	mu      sync.Mutex
	queries []candle.TimeSeriesQuery
}

func (m *mockSeries) GetTimeSeries(ctx context.Context, q candle.TimeSeriesQuery) (candle.TimeSeries, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.GetTimeSeriesFunc != nil {
		return m.GetTimeSeriesFunc(ctx, q)
	}
	return candle.TimeSeries{}, nil
}

func (m *mockSeries) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func (m *mockSeries) query(symbol string) (candle.TimeSeriesQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.Symbol == symbol {
			return q, true
		}
	}
	return candle.TimeSeriesQuery{}, false
}

// mockProfiles はProfileSourceのモックです。
type mockProfiles struct {
	GetCompanyProfileFunc func(ctx context.Context, symbol string) (company.Profile, error)
	count                 atomic.Int32
}

func (m *mockProfiles) GetCompanyProfile(ctx context.Context, symbol string) (company.Profile, error) {
	m.count.Add(1)
	if m.GetCompanyProfileFunc != nil {
		return m.GetCompanyProfileFunc(ctx, symbol)
	}
	return company.Profile{Name: symbol + " Inc"}, nil
}

// memDownstream はDownstreamのインメモリ実装です。(symbol, interval, time)で重複を除外します。
type memDownstream struct {
	mu       sync.Mutex
	points   map[string]map[int64]candle.Candle
	profiles map[string]company.Profile
	recs     map[string][]company.Recommendation

	latestErr map[string]error
	bulkErr   func(symbol string, call int) error
	bulkCalls map[string]int
}

func newMemDownstream() *memDownstream {
	return &memDownstream{
		points:    map[string]map[int64]candle.Candle{},
		profiles:  map[string]company.Profile{},
		recs:      map[string][]company.Recommendation{},
		latestErr: map[string]error{},
		bulkCalls: map[string]int{},
	}
}

func (d *memDownstream) key(symbol, interval string) string { return symbol + "/" + interval }

func (d *memDownstream) LatestDate(ctx context.Context, symbol, interval string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.latestErr[symbol]; err != nil {
		return "", err
	}
	var latest time.Time
	for _, c := range d.points[d.key(symbol, interval)] {
		if c.Time.After(latest) {
			latest = c.Time
		}
	}
	if latest.IsZero() {
		return "", nil
	}
	return latest.Format(entity.DateLayout), nil
}

func (d *memDownstream) BulkSaveTimeSeries(ctx context.Context, symbol, interval string, points []candle.Candle) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bulkCalls[symbol]++
	if d.bulkErr != nil {
		if err := d.bulkErr(symbol, d.bulkCalls[symbol]); err != nil {
			return 0, err
		}
	}
	k := d.key(symbol, interval)
	if d.points[k] == nil {
		d.points[k] = map[int64]candle.Candle{}
	}
	saved := 0
	for _, p := range points {
		if _, ok := d.points[k][p.Time.Unix()]; ok {
			continue
		}
		d.points[k][p.Time.Unix()] = p
		saved++
	}
	return saved, nil
}

func (d *memDownstream) UpsertProfile(ctx context.Context, p company.Profile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.Symbol] = p
	return nil
}

func (d *memDownstream) SaveRecommendations(ctx context.Context, symbol string, recs []company.Recommendation) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recs[symbol] = recs
	return len(recs), nil
}

func (d *memDownstream) profile(symbol string) (company.Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[symbol]
	return p, ok
}

func (d *memDownstream) count(symbol, interval string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.points[d.key(symbol, interval)])
}

// memTracker はJobTrackerのインメモリ実装です。
type memTracker struct {
	mu     sync.Mutex
	now    func() time.Time
	states map[string]job.JobState
	log    map[string][]job.JobStatus
}

func newMemTracker(now func() time.Time) *memTracker {
	return &memTracker{now: now, states: map[string]job.JobState{}, log: map[string][]job.JobStatus{}}
}

func (m *memTracker) Transition(ctx context.Context, symbol string, status job.JobStatus, errMsg string) (job.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[symbol]
	if !ok {
		cur = job.JobState{Symbol: symbol}
	}
	next := cur.Apply(status, errMsg, m.now())
	m.states[symbol] = next
	m.log[symbol] = append(m.log[symbol], status)
	return next, nil
}

func (m *memTracker) state(symbol string) job.JobState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[symbol]
}

// noWait はRateLimiterInterfaceのモックです。待機しません。
type noWait struct{}

func (noWait) Wait(ctx context.Context) error { return ctx.Err() }

// dailyCandles はfrom..toの各日のローソク足を古い順に返します（order=ascのプロバイダと同じ順序）。
func dailyCandles(symbol string, from, to time.Time) []candle.Candle {
	var out []candle.Candle
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, candle.Candle{Symbol: symbol, Interval: "1day", Time: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100})
	}
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

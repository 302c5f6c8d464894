package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	job "stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/feature/news/domain/entity"
)

// memArticles はArticleRepositoryのインメモリ実装です。
type memArticles struct {
	mu        sync.Mutex
	byUUID    map[string]entity.Article
	createErr func(a entity.Article) error
	existsErr error
	cutoff    time.Time
}

func newMemArticles() *memArticles {
	return &memArticles{byUUID: map[string]entity.Article{}}
}

func (m *memArticles) ExistsByUUID(ctx context.Context, uuid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.byUUID[uuid]
	return ok, nil
}

func (m *memArticles) Create(ctx context.Context, a entity.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		if err := m.createErr(a); err != nil {
			return err
		}
	}
	if _, ok := m.byUUID[a.UUID]; ok {
		return ErrArticleExists
	}
	m.byUUID[a.UUID] = a
	return nil
}

func (m *memArticles) Latest(ctx context.Context, limit int) ([]entity.Article, error) {
	return m.sorted(func(entity.Article) bool { return true }, limit), nil
}

func (m *memArticles) BySymbol(ctx context.Context, symbol string, limit int) ([]entity.Article, error) {
	return m.sorted(func(a entity.Article) bool {
		for _, e := range a.Entities {
			if e.Symbol == symbol {
				return true
			}
		}
		return false
	}, limit), nil
}

func (m *memArticles) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoff = cutoff
	var n int64
	for k, a := range m.byUUID {
		if a.PublishedAt.Before(cutoff) {
			delete(m.byUUID, k)
			n++
		}
	}
	return n, nil
}

func (m *memArticles) sorted(keep func(entity.Article) bool, limit int) []entity.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Article
	for _, a := range m.byUUID {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memArticles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUUID)
}

// rawItems は uuid が news-<from>..news-<from+n-1> のニュースを生成します。
func rawItems(from, n int) []entity.RawNewsItem {
	out := make([]entity.RawNewsItem, 0, n)
	for i := from; i < from+n; i++ {
		rel := 0.5
		out = append(out, entity.RawNewsItem{
			UUID:        fmt.Sprintf("news-%d", i),
			Title:       fmt.Sprintf("Headline %d", i),
			URL:         fmt.Sprintf("https://example.com/news/%d", i),
			PublishedAt: time.Date(2024, 1, 10, i%24, 0, 0, 0, time.UTC).Format(time.RFC3339),
			Source:      "example.com",
			Relevance:   &rel,
			Entities:    []string{"AAPL|Apple Inc.|NASDAQ"},
		})
	}
	return out
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []job.JobStatus
	last  job.JobState
}

func (f *fakeTracker) Transition(ctx context.Context, symbol string, status job.JobStatus, errMsg string) (job.JobState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
	f.last = f.last.Apply(status, errMsg, time.Now())
	f.last.Symbol = symbol
	return f.last, nil
}

type fakeSource struct {
	page  entity.NewsPage
	err   error
	query entity.NewsQuery
	calls int
}

func (f *fakeSource) SearchNews(ctx context.Context, q entity.NewsQuery) (entity.NewsPage, error) {
	f.calls++
	f.query = q
	return f.page, f.err
}

type fakeSymbols struct {
	codes []string
	err   error
}

func (f fakeSymbols) ActiveSymbols(ctx context.Context) ([]string, error) { return f.codes, f.err }

var errStore = errors.New("database is locked")

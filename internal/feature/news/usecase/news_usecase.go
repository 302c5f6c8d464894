// Package usecase はニュース記事の取り込み・参照・削除を実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stock_crawler/internal/feature/news/domain/entity"

	"github.com/shopspring/decimal"
)

const (
	DefaultLatestLimit   = 50
	DefaultSymbolLimit   = 20
	MaxLimit             = 500
	DefaultRetentionDays = 30
)

var (
	// ErrArticleExists はuuidが既に保存済みのときにリポジトリが返します。
	ErrArticleExists = errors.New("article already exists")
	// ErrMissingUUID はuuidのない記事を取り込もうとしたときのエラーです。
	ErrMissingUUID = errors.New("news item has no uuid")
	// ErrInvalidRetention は保持日数が正でないときのエラーです。
	ErrInvalidRetention = errors.New("days to keep must be positive")
)

// publishedAtLayouts are tried in order; the provider sends RFC 3339 with microseconds.
var publishedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ArticleRepository はニュース記事の永続化レイヤーです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ArticleRepository interface {
	ExistsByUUID(ctx context.Context, uuid string) (bool, error)
	// Create は記事とエンティティを保存します。uuid衝突時は ErrArticleExists を返します。
	Create(ctx context.Context, a entity.Article) error
	Latest(ctx context.Context, limit int) ([]entity.Article, error)
	BySymbol(ctx context.Context, symbol string, limit int) ([]entity.Article, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewsUsecase はニュース記事の重複排除付き取り込みと参照を提供します。
type NewsUsecase struct {
	repo ArticleRepository
	now  func() time.Time
}

func NewNewsUsecase(repo ArticleRepository) *NewsUsecase {
	return &NewsUsecase{repo: repo, now: time.Now}
}

// Ingest は未保存の記事だけを保存し、新規に取り込んだ件数を返します。
// 1件の失敗はログに残して読み飛ばし、残りの取り込みを続けます。
// エラーを返すのは ctx がキャンセルされた場合のみです。
func (u *NewsUsecase) Ingest(ctx context.Context, items []entity.RawNewsItem) (int, error) {
	admitted := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return admitted, err
		}
		ok, err := u.ingestOne(ctx, item)
		if err != nil {
			slog.Warn("skipping news item", "uuid", item.UUID, "title", item.Title, "error", err)
			continue
		}
		if ok {
			admitted++
		}
	}
	slog.Info("news ingested", "received", len(items), "admitted", admitted)
	return admitted, nil
}

func (u *NewsUsecase) ingestOne(ctx context.Context, item entity.RawNewsItem) (bool, error) {
	if strings.TrimSpace(item.UUID) == "" {
		return false, ErrMissingUUID
	}
	exists, err := u.repo.ExistsByUUID(ctx, item.UUID)
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	article, err := ToArticle(item, u.now())
	if err != nil {
		return false, err
	}
	if err := u.repo.Create(ctx, article); err != nil {
		if errors.Is(err, ErrArticleExists) {
			// 別の取り込みが先に保存した
			return false, nil
		}
		return false, fmt.Errorf("save: %w", err)
	}
	return true, nil
}

// ToArticle は取得したニュースを保存用の記事に変換します。
// 解釈できない published_at は now で置き換えます。
// 同じシンボルのエンティティが複数ある場合は最初のものを使います。
func ToArticle(item entity.RawNewsItem, now time.Time) (entity.Article, error) {
	a := entity.Article{
		UUID:        strings.TrimSpace(item.UUID),
		Title:       item.Title,
		Description: item.Description,
		Snippet:     item.Snippet,
		Keywords:    item.Keywords,
		URL:         item.URL,
		ImageURL:    item.ImageURL,
		Language:    item.Language,
		Source:      item.Source,
		PublishedAt: parsePublishedAt(item.PublishedAt, now),
	}
	if item.Relevance != nil {
		d := decimal.NewFromFloat(*item.Relevance)
		a.RelevanceScore = &d
	}

	seen := make(map[string]struct{}, len(item.Entities))
	for i, raw := range item.Entities {
		ref, err := entity.ParseEntityRef(raw)
		if err != nil {
			return entity.Article{}, fmt.Errorf("entities[%d] %q: %w", i, raw, err)
		}
		if _, dup := seen[ref.Symbol]; dup {
			continue
		}
		seen[ref.Symbol] = struct{}{}
		a.Entities = append(a.Entities, ref)
	}
	return a, nil
}

func parsePublishedAt(raw string, now time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	slog.Warn("unparsable published_at, using current time", "value", raw)
	return now.UTC()
}

// Latest は公開日時の新しい順に記事を返します。
func (u *NewsUsecase) Latest(ctx context.Context, limit int) ([]entity.Article, error) {
	return u.repo.Latest(ctx, clampLimit(limit, DefaultLatestLimit))
}

// BySymbol は指定シンボルに関連する記事を公開日時の新しい順に返します。
func (u *NewsUsecase) BySymbol(ctx context.Context, symbol string, limit int) ([]entity.Article, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, entity.ErrEmptyEntitySymbol
	}
	return u.repo.BySymbol(ctx, symbol, clampLimit(limit, DefaultSymbolLimit))
}

// DeleteOlderThan は公開日時が daysToKeep 日より古い記事を削除し、削除件数を返します。
func (u *NewsUsecase) DeleteOlderThan(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := u.now().UTC().AddDate(0, 0, -daysToKeep)
	n, err := u.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Info("old news deleted", "days_to_keep", daysToKeep, "cutoff", cutoff, "deleted", n)
	return n, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, MaxLimit)
}

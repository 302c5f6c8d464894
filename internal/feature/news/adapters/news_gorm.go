// Package adapters はnewsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"stock_crawler/internal/feature/news/domain/entity"
	"stock_crawler/internal/feature/news/usecase"
	platformdb "stock_crawler/internal/platform/db"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ArticleModel はニュース記事の行です。uuidで一意です。
type ArticleModel struct {
	ID             uint                `gorm:"primaryKey"`
	UUID           string              `gorm:"size:64;not null;uniqueIndex"`
	Title          string              `gorm:"type:text;not null"`
	Description    string              `gorm:"type:text"`
	Snippet        string              `gorm:"type:text"`
	Keywords       string              `gorm:"type:text"`
	URL            string              `gorm:"type:text;not null"`
	ImageURL       string              `gorm:"type:text"`
	Language       string              `gorm:"size:8"`
	Source         string              `gorm:"size:255"`
	PublishedAt    time.Time           `gorm:"not null;index"`
	RelevanceScore decimal.NullDecimal `gorm:"type:numeric(12,6)"`
	CreatedAt      time.Time
	Entities       []EntityModel `gorm:"foreignKey:NewsUUID;references:UUID"`
}

func (ArticleModel) TableName() string { return "news_articles" }

// EntityModel は記事とシンボルの関連です。(news_uuid, symbol) で一意です。
type EntityModel struct {
	ID       uint    `gorm:"primaryKey"`
	NewsUUID string  `gorm:"size:64;not null;uniqueIndex:idx_news_entity,priority:1"`
	Symbol   string  `gorm:"size:32;not null;uniqueIndex:idx_news_entity,priority:2;index"`
	Name     *string `gorm:"size:255"`
	Exchange *string `gorm:"size:64"`
}

func (EntityModel) TableName() string { return "news_entities" }

type articleGorm struct {
	db *gorm.DB
}

var _ usecase.ArticleRepository = (*articleGorm)(nil)

func NewArticleRepository(db *gorm.DB) *articleGorm {
	return &articleGorm{db: db}
}

func (r *articleGorm) ExistsByUUID(ctx context.Context, uuid string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&ArticleModel{}).Where("uuid = ?", uuid).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create は記事とエンティティを1トランザクションで保存します。
func (r *articleGorm) Create(ctx context.Context, a entity.Article) error {
	m := toModel(a)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&m).Error
	})
	if platformdb.IsUniqueViolation(err) {
		return usecase.ErrArticleExists
	}
	return err
}

func (r *articleGorm) Latest(ctx context.Context, limit int) ([]entity.Article, error) {
	var rows []ArticleModel
	if err := r.withEntities(ctx).
		Order("published_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

// BySymbol はシンボルに紐づく記事を返します。
// サブクエリで絞り込むため、同じ記事が重複して返ることはありません。
func (r *articleGorm) BySymbol(ctx context.Context, symbol string, limit int) ([]entity.Article, error) {
	linked := r.db.Model(&EntityModel{}).Select("news_uuid").Where("symbol = ?", symbol)

	var rows []ArticleModel
	if err := r.withEntities(ctx).
		Where("uuid IN (?)", linked).
		Order("published_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

// DeleteOlderThan は公開日時が cutoff より前の記事とそのエンティティを削除します。
func (r *articleGorm) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&ArticleModel{}).Select("uuid").Where("published_at < ?", cutoff)
		if err := tx.Where("news_uuid IN (?)", old).Delete(&EntityModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("published_at < ?", cutoff).Delete(&ArticleModel{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (r *articleGorm) withEntities(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Entities", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func toModel(a entity.Article) ArticleModel {
	m := ArticleModel{
		UUID:        a.UUID,
		Title:       a.Title,
		Description: a.Description,
		Snippet:     a.Snippet,
		Keywords:    a.Keywords,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		Language:    a.Language,
		Source:      a.Source,
		PublishedAt: a.PublishedAt.UTC(),
	}
	if a.RelevanceScore != nil {
		m.RelevanceScore = decimal.NullDecimal{Decimal: *a.RelevanceScore, Valid: true}
	}
	for _, e := range a.Entities {
		m.Entities = append(m.Entities, EntityModel{NewsUUID: a.UUID, Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange})
	}
	return m
}

func toEntities(rows []ArticleModel) []entity.Article {
	out := make([]entity.Article, 0, len(rows))
	for _, m := range rows {
		a := entity.Article{
			UUID:        m.UUID,
			Title:       m.Title,
			Description: m.Description,
			Snippet:     m.Snippet,
			Keywords:    m.Keywords,
			URL:         m.URL,
			ImageURL:    m.ImageURL,
			Language:    m.Language,
			Source:      m.Source,
			PublishedAt: m.PublishedAt.UTC(),
		}
		if m.RelevanceScore.Valid {
			d := m.RelevanceScore.Decimal
			a.RelevanceScore = &d
		}
		for _, e := range m.Entities {
			a.Entities = append(a.Entities, entity.EntityRef{Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange})
		}
		out = append(out, a)
	}
	return out
}

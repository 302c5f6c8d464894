// Package adapters はcompanyフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"stock_crawler/internal/feature/company/domain/entity"
	"stock_crawler/internal/feature/company/usecase"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// companyGorm はCompanyRepositoryインターフェースのGORM実装です。
type companyGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.CompanyRepository = (*companyGorm)(nil)

// NewCompanyRepository は指定されたDB接続でcompanyGormリポジトリの新しいインスタンスを生成します。
func NewCompanyRepository(db *gorm.DB) *companyGorm {
	return &companyGorm{db: db, now: time.Now}
}

// ListActive はsort_key順にすべてのアクティブな銘柄を返します。
func (r *companyGorm) ListActive(ctx context.Context) ([]entity.Company, error) {
	var companies []entity.Company
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Order("code ASC").
		Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// ListActiveCodes はsort_key順にアクティブな銘柄のコードのみを返します。
func (r *companyGorm) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Company{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Order("code ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// Exists は銘柄コードが登録済みかどうかを返します。非アクティブな銘柄も登録済みとみなします。
func (r *companyGorm) Exists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Company{}).
		Where("code = ?", code).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnsureSymbols は未登録のコードのみを挿入し、挿入件数を返します。
// 既存行（非アクティブ化されたものを含む）は変更しません。
func (r *companyGorm) EnsureSymbols(ctx context.Context, codes []string) (int64, error) {
	rows := make([]entity.Company, 0, len(codes))
	for i, code := range codes {
		rows = append(rows, entity.Company{Code: code, IsActive: true, SortKey: i + 1})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

// UpsertProfile はcodeをキーにプロフィール列を上書きします。
// is_active / sort_key は更新対象外です。
func (r *companyGorm) UpsertProfile(ctx context.Context, p entity.Profile) error {
	now := r.now().UTC()
	row := entity.Company{
		Code:                 p.Symbol,
		Name:                 p.Name,
		Market:               p.Exchange,
		IsActive:             true,
		Country:              p.Country,
		Currency:             p.Currency,
		Industry:             p.Industry,
		Logo:                 p.Logo,
		WebURL:               p.WebURL,
		Phone:                p.Phone,
		IPO:                  p.IPO,
		MarketCapitalization: nullDecimal(p.MarketCapitalization),
		ShareOutstanding:     nullDecimal(p.ShareOutstanding),
		ProfileUpdatedAt:     &now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "market", "country", "currency", "industry", "logo", "web_url", "phone",
				"ipo", "market_capitalization", "share_outstanding", "profile_updated_at", "updated_at",
			}),
		}).
		Create(&row).Error
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

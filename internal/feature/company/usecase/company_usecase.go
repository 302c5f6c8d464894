// Package usecase は銘柄マスタ・企業プロフィール・アナリスト推奨のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"

	"stock_crawler/internal/feature/company/domain/entity"
)

// CompanyRepository は銘柄の永続化レイヤーを抽象化します。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type CompanyRepository interface {
	ListActive(ctx context.Context) ([]entity.Company, error)
	ListActiveCodes(ctx context.Context) ([]string, error)
	EnsureSymbols(ctx context.Context, codes []string) (int64, error)
	UpsertProfile(ctx context.Context, p entity.Profile) error
}

// CompanyUsecase は銘柄に関するビジネスロジックを提供します。
type CompanyUsecase struct {
	repo CompanyRepository
}

// NewCompanyUsecase は新しい CompanyUsecase を生成します。
func NewCompanyUsecase(r CompanyRepository) *CompanyUsecase {
	return &CompanyUsecase{repo: r}
}

// ListActiveCompanies はsort_key順にアクティブな銘柄を返します。
func (u *CompanyUsecase) ListActiveCompanies(ctx context.Context) ([]entity.Company, error) {
	return u.repo.ListActive(ctx)
}

// ActiveSymbols はクローラーが処理する銘柄コードをsort_key順に返します。
func (u *CompanyUsecase) ActiveSymbols(ctx context.Context) ([]string, error) {
	return u.repo.ListActiveCodes(ctx)
}

// SeedSymbols は設定された銘柄のうち未登録のものを登録します。
// 既存行（非アクティブ化されたものを含む）は変更しません。
func (u *CompanyUsecase) SeedSymbols(ctx context.Context, symbols []string) (int64, error) {
	codes := make([]string, 0, len(symbols))
	for _, s := range symbols {
		code, err := entity.NormalizeSymbol(s)
		if err != nil {
			return 0, err
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return 0, nil
	}
	return u.repo.EnsureSymbols(ctx, codes)
}

// SaveProfile はシンボルをキーに企業プロフィールを上書き保存します。
func (u *CompanyUsecase) SaveProfile(ctx context.Context, p entity.Profile) error {
	code, err := entity.NormalizeSymbol(p.Symbol)
	if err != nil {
		return err
	}
	p.Symbol = code
	if err := u.repo.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("upsert profile %s: %w", code, err)
	}
	return nil
}

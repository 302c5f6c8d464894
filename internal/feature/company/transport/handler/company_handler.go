package handler

import (
	"context"
	"errors"
	"net/http"

	"stock_crawler/internal/feature/company/domain/entity"
	"stock_crawler/internal/feature/company/transport/http/dto"

	"github.com/gin-gonic/gin"
)

// CompanyUsecase は銘柄・企業情報に関するユースケースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type CompanyUsecase interface {
	ListActiveCompanies(ctx context.Context) ([]entity.Company, error)
	SaveProfile(ctx context.Context, p entity.Profile) error
}

// CompanyHandler は銘柄・企業情報に関するHTTPリクエストを処理します。
type CompanyHandler struct {
	uc CompanyUsecase
}

// NewCompanyHandler は新しい CompanyHandler を作成します。
func NewCompanyHandler(uc CompanyUsecase) *CompanyHandler {
	return &CompanyHandler{uc: uc}
}

// List は有効な銘柄の一覧を取得するAPIです。
// Usecaseでエラーが発生した場合は500 Internal Server Errorを返します。
func (h *CompanyHandler) List(c *gin.Context) {
	companies, err := h.uc.ListActiveCompanies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.SymbolItem, 0, len(companies))
	for _, co := range companies {
		out = append(out, dto.SymbolItem{Code: co.Code, Name: co.Name, Market: co.Market})
	}
	c.JSON(http.StatusOK, out)
}

// UpsertProfile は企業プロフィールをシンボル単位で上書き保存します。
func (h *CompanyHandler) UpsertProfile(c *gin.Context) {
	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := req.ToEntity()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.uc.SaveProfile(c.Request.Context(), p); err != nil {
		if errors.Is(err, entity.ErrInvalidSymbol) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": p.Symbol, "message": "Company profile saved"})
}

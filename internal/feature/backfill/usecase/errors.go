package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSymbols は対象銘柄が1つもないときに返されます。
	ErrNoSymbols = errors.New("no symbols configured")
	// ErrPartialUpload は任意の *PartialUploadError にマッチします。
	ErrPartialUpload = errors.New("partial upload")
	// ErrRunInProgress は実行中に別のバックフィルを起動しようとしたときに返されます。
	ErrRunInProgress = errors.New("backfill already running")
)

// PartialUploadError は Total 個中 Accepted 個のチャンクで止まったアップロードを表します。
type PartialUploadError struct {
	Symbol   string
	Accepted int
	Total    int
	Err      error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("upload %s: %d of %d chunks accepted: %v", e.Symbol, e.Accepted, e.Total, e.Err)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

func (e *PartialUploadError) Is(target error) bool { return target == ErrPartialUpload }

package usecase

import (
	"context"
	"log/slog"
	"time"

	candle "stock_crawler/internal/feature/candles/domain/entity"
)

const (
	DefaultChunkSize  = 100
	DefaultChunkDelay = 500 * time.Millisecond
)

// UploadResult は1回の分割アップロードの結果です。
type UploadResult struct {
	Chunks int // 受理されたチャンク数
	Points int // 送信した件数
	Saved  int // 新規保存された件数
}

// ChunkedUploader はローソク足を上限付きのチャンクに分け、間隔を空けて ChunkSink に送ります。
type ChunkedUploader struct {
	sink  ChunkSink
	size  int
	delay time.Duration
}

// NewChunkedUploader は新しいアップローダーを生成します。
// size が0以下なら DefaultChunkSize、delay が負なら DefaultChunkDelay を使います。
func NewChunkedUploader(sink ChunkSink, size int, delay time.Duration) *ChunkedUploader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if delay < 0 {
		delay = DefaultChunkDelay
	}
	return &ChunkedUploader{sink: sink, size: size, delay: delay}
}

// Chunk は順序を保ったまま items を最大 size 件ずつに分割します。空の入力には nil を返します。
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// Upload はチャンクを1つずつ順に送り、チャンク間で待機します。
// 最初に失敗したチャンクで中断し *PartialUploadError を返します。
// 全件重複のチャンクも成功です。
func (u *ChunkedUploader) Upload(ctx context.Context, symbol, interval string, points []candle.Candle) (UploadResult, error) {
	chunks := Chunk(points, u.size)
	var res UploadResult

	for i, chunk := range chunks {
		if i > 0 {
			if err := sleep(ctx, u.delay); err != nil {
				return res, &PartialUploadError{Symbol: symbol, Accepted: res.Chunks, Total: len(chunks), Err: err}
			}
		}

		saved, err := u.sink.BulkSaveTimeSeries(ctx, symbol, interval, chunk)
		if err != nil {
			return res, &PartialUploadError{Symbol: symbol, Accepted: res.Chunks, Total: len(chunks), Err: err}
		}
		res.Chunks++
		res.Points += len(chunk)
		res.Saved += saved
		slog.Debug("chunk uploaded", "symbol", symbol, "chunk", i+1, "of", len(chunks), "size", len(chunk), "saved", saved)
	}
	return res, nil
}

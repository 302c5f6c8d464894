package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	candle "stock_crawler/internal/feature/candles/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink はChunkSinkのモックです。受け取ったチャンクと時刻を記録します。
type recordingSink struct {
	mu     sync.Mutex
	chunks [][]candle.Candle
	at     []time.Time
	fail   func(call int) error
	saved  func(chunk []candle.Candle) int
}

func (s *recordingSink) BulkSaveTimeSeries(ctx context.Context, symbol, interval string, points []candle.Candle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = append(s.at, time.Now())
	call := len(s.at)
	if s.fail != nil {
		if err := s.fail(call); err != nil {
			return 0, err
		}
	}
	s.chunks = append(s.chunks, points)
	if s.saved != nil {
		return s.saved(points), nil
	}
	return len(points), nil
}

func points(n int) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := range out {
		out[i] = candle.Candle{Symbol: "AAPL", Interval: "1day", Time: date(2020, 1, 1).AddDate(0, 0, i), Close: float64(i)}
	}
	return out
}

func TestChunk(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ n, size, want int }{
		{0, 100, 0},
		{1, 100, 1},
		{99, 100, 1},
		{100, 100, 1},
		{101, 100, 2},
		{250, 100, 3},
		{7, 3, 3},
	} {
		t.Run(fmt.Sprintf("n=%d size=%d", tc.n, tc.size), func(t *testing.T) {
			t.Parallel()

			in := points(tc.n)
			chunks := Chunk(in, tc.size)
			require.Len(t, chunks, tc.want)

			var joined []candle.Candle
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c), tc.size)
				assert.NotEmpty(t, c)
				joined = append(joined, c...)
			}
			if tc.n == 0 {
				assert.Nil(t, joined)
				return
			}
			assert.Equal(t, in, joined)
		})
	}
}

func TestChunk_DoesNotAliasFollowingChunk(t *testing.T) {
	t.Parallel()

	chunks := Chunk([]int{1, 2, 3, 4}, 2)
	chunks[0] = append(chunks[0], 99)
	assert.Equal(t, []int{3, 4}, chunks[1])
}

func TestChunkedUploader_SendsAllChunksInOrder(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	u := NewChunkedUploader(sink, 100, 0)
	in := points(250)

	res, err := u.Upload(context.Background(), "AAPL", "1day", in)
	require.NoError(t, err)

	assert.Equal(t, UploadResult{Chunks: 3, Points: 250, Saved: 250}, res)
	require.Len(t, sink.chunks, 3)
	assert.Len(t, sink.chunks[0], 100)
	assert.Len(t, sink.chunks[1], 100)
	assert.Len(t, sink.chunks[2], 50)
	assert.Equal(t, in[100], sink.chunks[1][0])
}

func TestChunkedUploader_PacesChunks(t *testing.T) {
	t.Parallel()

	delay := 20 * time.Millisecond
	sink := &recordingSink{}
	u := NewChunkedUploader(sink, 2, delay)

	_, err := u.Upload(context.Background(), "AAPL", "1day", points(6))
	require.NoError(t, err)

	require.Len(t, sink.at, 3)
	for i := 1; i < len(sink.at); i++ {
		assert.GreaterOrEqual(t, sink.at[i].Sub(sink.at[i-1]), delay)
	}
}

func TestChunkedUploader_AbortsOnFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("downstream 500")
	sink := &recordingSink{fail: func(call int) error {
		if call == 3 {
			return cause
		}
		return nil
	}}
	u := NewChunkedUploader(sink, 10, 0)

	res, err := u.Upload(context.Background(), "AAPL", "1day", points(55))
	require.Error(t, err)

	var pe *PartialUploadError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "AAPL", pe.Symbol)
	assert.Equal(t, 2, pe.Accepted)
	assert.Equal(t, 6, pe.Total)
	assert.ErrorIs(t, err, ErrPartialUpload)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upload AAPL: 2 of 6 chunks accepted: downstream 500", err.Error())

	assert.Len(t, sink.at, 3, "no chunk is sent after the failing one")
	assert.Equal(t, 20, res.Saved)
}

func TestChunkedUploader_AllDuplicatesIsSuccess(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{saved: func([]candle.Candle) int { return 0 }}
	res, err := NewChunkedUploader(sink, 100, 0).Upload(context.Background(), "AAPL", "1day", points(150))

	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 0, res.Saved)
}

func TestChunkedUploader_EmptyInput(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	res, err := NewChunkedUploader(sink, 100, time.Hour).Upload(context.Background(), "AAPL", "1day", nil)
	require.NoError(t, err)
	assert.Equal(t, UploadResult{}, res)
	assert.Empty(t, sink.at)
}

func TestChunkedUploader_CancelledBetweenChunks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{saved: func(c []candle.Candle) int {
		cancel()
		return len(c)
	}}

	_, err := NewChunkedUploader(sink, 5, time.Hour).Upload(ctx, "AAPL", "1day", points(10))

	var pe *PartialUploadError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Accepted)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewChunkedUploader_Defaults(t *testing.T) {
	t.Parallel()

	u := NewChunkedUploader(&recordingSink{}, 0, -1)
	assert.Equal(t, DefaultChunkSize, u.size)
	assert.Equal(t, DefaultChunkDelay, u.delay)
}

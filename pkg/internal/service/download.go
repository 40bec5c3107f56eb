package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/chunk"
	"github.com/khaznati/chunkvault/pkg/internal/model"
	"github.com/khaznati/chunkvault/pkg/metrics"
)

// Download 按序重组文件内容并写入 w.
// 分块并发拉取，重组器保证写出顺序与上传顺序一致.
func (fs *FileService) Download(ctx context.Context, userName, fileID string, w io.Writer) (*model.File, error) {
	file, err := fs.getOwnedFile(ctx, userName, fileID)
	if err != nil {
		return nil, err
	}

	if file.IsTrashed {
		return nil, ErrNotFound
	}

	if file.Status != model.FileStatusCompleted {
		return nil, ErrIncomplete
	}

	recs, err := fs.index.ListOrdered(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	// 有体积却一个分块都没有，说明索引整体丢失而不只是缺块
	if len(recs) == 0 && file.Size > 0 {
		return nil, fmt.Errorf("%w: no chunks indexed for %d bytes", ErrNotFound, file.Size)
	}

	if len(recs) != file.ChunkCount {
		return nil, fmt.Errorf("%w: index has %d chunks, expected %d", ErrIncomplete, len(recs), file.ChunkCount)
	}

	asm := chunk.NewAssembler(w)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fs.cfg.MaxConcurrent)

	for _, rec := range recs {
		g.Go(func() error {
			data, err := fs.getChunkWithRetry(gctx, backend.Locator(rec.Locator))
			if err != nil {
				return fmt.Errorf("chunk %d: %w", rec.Seq, err)
			}

			if rec.Checksum != "" && chunk.Checksum(data) != rec.Checksum {
				return fmt.Errorf("chunk %d: %w", rec.Seq, ErrChecksumMismatch)
			}

			mu.Lock()
			defer mu.Unlock()

			return asm.Push(rec.Seq, data)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if asm.Pending() > 0 {
		return nil, fmt.Errorf("%w: %d chunks never flushed", ErrIncomplete, asm.Pending())
	}

	metrics.TransferBytes.WithLabelValues("download").Add(float64(file.Size))

	return file, nil
}

// getChunkWithRetry 拉取单个分块，限流与瞬态故障下有界重试.
func (fs *FileService) getChunkWithRetry(ctx context.Context, loc backend.Locator) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= fs.cfg.MaxRetries; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, fs.cfg.GetChunkOpTimeout())
		data, err := fs.backend.Get(opCtx, loc)

		cancel()

		if err == nil {
			return data, nil
		}

		lastErr = err

		wait, retryable := retryWait(err, attempt, fs.cfg.GetMaxThrottleWait())
		if !retryable {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("%w: retries exhausted: %v", backend.ErrUnavailable, lastErr)
}

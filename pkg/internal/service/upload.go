package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/chunk"
	"github.com/khaznati/chunkvault/pkg/internal/model"
	"github.com/khaznati/chunkvault/pkg/internal/types"
	nlog "github.com/khaznati/chunkvault/pkg/log"
	"github.com/khaznati/chunkvault/pkg/metrics"
	"github.com/khaznati/chunkvault/pkg/queue"
	"github.com/khaznati/chunkvault/pkg/rule"
)

// InitUpload 校验配额与目标位置，创建上传会话.
// 会话只存在于 KV：在内容流完整落盘之前，数据库里没有任何痕迹.
func (fs *FileService) InitUpload(ctx context.Context, userName string, req *types.InitUploadRequest) (*types.UploadSessionInfo, error) {
	if err := rule.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("invalid upload request: %w", err)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	if err := fs.checkQuota(user, req.Size); err != nil {
		fs.publishQuotaExceeded(user, req.Size)

		return nil, err
	}

	if req.FolderID != nil {
		if _, err := fs.getFolder(ctx, userName, *req.FolderID); err != nil {
			return nil, err
		}
	}

	if err := fs.checkNameFree(ctx, userName, req.FolderID, req.Name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &uploadSession{
		ID:        types.NewID(),
		User:      userName,
		Name:      req.Name,
		FolderID:  req.FolderID,
		Size:      req.Size,
		MimeType:  req.MimeType,
		ChunkSize: fs.cfg.ChunkSizeBytes(),
		CreatedAt: now,
		ExpiresAt: now.Add(fs.cfg.SessionTTL()),
	}

	if err := fs.saveSession(ctx, session); err != nil {
		return nil, err
	}

	return &types.UploadSessionInfo{
		SessionID:  session.ID,
		ChunkSize:  session.ChunkSize,
		ChunkCount: chunk.CountChunks(req.Size, session.ChunkSize),
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// chunkResult 单个分块上传的结果.
type chunkResult struct {
	locator  backend.Locator
	size     int64
	checksum string
}

// StreamUpload 消费内容流：切块、并发写入后端、提交元数据.
// 任一分块不可恢复失败时整体中止，已写入的分块尽力清除.
func (fs *FileService) StreamUpload(ctx context.Context, sessionID string, r io.Reader) (*types.FileInfo, error) {
	session, err := fs.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	metrics.ActiveUploads.Inc()
	defer metrics.ActiveUploads.Dec()

	digest := chunk.NewDigest()

	splitter, err := chunk.NewSplitter(io.TeeReader(r, digest), session.ChunkSize)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[int]chunkResult)
		total   int64
		readErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fs.cfg.MaxConcurrent)

	for {
		if gctx.Err() != nil {
			break
		}

		seq, data, err := splitter.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			readErr = err
			break
		}

		total += int64(len(data))

		g.Go(func() error {
			loc, err := fs.putChunkWithRetry(gctx, data)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", seq, err)
			}

			mu.Lock()
			results[seq] = chunkResult{
				locator:  loc,
				size:     int64(len(data)),
				checksum: chunk.Checksum(data),
			}
			mu.Unlock()

			return nil
		})
	}

	uploadErr := g.Wait()
	if readErr != nil {
		uploadErr = readErr
	}

	if uploadErr == nil && total != session.Size {
		uploadErr = fmt.Errorf("%w: declared %d bytes, received %d", ErrConflict, session.Size, total)
	}

	if uploadErr != nil {
		fs.abortUpload(ctx, session, results)

		return nil, uploadErr
	}

	info, err := fs.completeUpload(ctx, session, splitter.Count(), total, digest.Sum(), results)
	if err != nil {
		fs.abortUpload(ctx, session, results)

		return nil, err
	}

	metrics.TransferBytes.WithLabelValues("upload").Add(float64(total))

	return info, nil
}

// putChunkWithRetry 写入单个分块，限流时按后端给出的时长等待后重试.
// 超时和后端不可用也在重试范围内，重试次数有界.
func (fs *FileService) putChunkWithRetry(ctx context.Context, data []byte) (backend.Locator, error) {
	var lastErr error

	for attempt := 0; attempt <= fs.cfg.MaxRetries; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, fs.cfg.GetChunkOpTimeout())
		loc, err := fs.backend.Put(opCtx, data)

		cancel()

		if err == nil {
			return loc, nil
		}

		lastErr = err

		wait, retryable := retryWait(err, attempt, fs.cfg.GetMaxThrottleWait())
		if !retryable {
			return "", err
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	// 重试耗尽的限流/瞬态错误统一以不可用上报
	return "", fmt.Errorf("%w: retries exhausted: %v", backend.ErrUnavailable, lastErr)
}

// abortUpload 清理失败上传：尽力删除已写入的分块并丢弃会话.
// 用不受调用方取消影响的 context，中止本身不应半途而废.
func (fs *FileService) abortUpload(ctx context.Context, session *uploadSession, results map[int]chunkResult) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fs.cfg.GetChunkOpTimeout())
	defer cancel()

	failed := 0

	for _, res := range results {
		if err := fs.backend.Delete(cleanupCtx, res.locator); err != nil {
			failed++
		}
	}

	if failed > 0 {
		nlog.Logger().Warn().
			Str("session", session.ID).
			Int("orphaned", failed).
			Msg("upload abort left orphaned chunks on backend")
	}

	fs.dropSession(cleanupCtx, session.ID)
}

// completeUpload 在一个事务里提交文件行、分块记录并占用配额.
func (fs *FileService) completeUpload(
	ctx context.Context,
	session *uploadSession,
	chunkCount int,
	total int64,
	checksum string,
	results map[int]chunkResult,
) (*types.FileInfo, error) {
	file := model.File{
		ID:         types.NewID(),
		UserID:     session.User,
		FolderID:   session.FolderID,
		Name:       session.Name,
		Size:       total,
		MimeType:   session.MimeType,
		Status:     model.FileStatusCompleted,
		Checksum:   checksum,
		ChunkCount: chunkCount,
	}

	recs := make([]model.Chunk, 0, chunkCount)
	for seq := 0; seq < chunkCount; seq++ {
		res, ok := results[seq]
		if !ok {
			return nil, fmt.Errorf("%w: chunk %d missing after upload", ErrIncomplete, seq)
		}

		recs = append(recs, model.Chunk{
			FileID:   file.ID,
			Seq:      seq,
			Locator:  string(res.locator),
			Backend:  fs.backend.Name(),
			Size:     res.size,
			Checksum: res.checksum,
		})
	}

	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := reserveUsage(tx, session.User, total); err != nil {
			return err
		}

		if err := tx.Create(&file).Error; err != nil {
			return fmt.Errorf("create file row: %w", err)
		}

		if len(recs) > 0 {
			if err := tx.Create(&recs).Error; err != nil {
				return fmt.Errorf("create chunk records: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.dropSession(ctx, session.ID)
	fs.publishFileUploaded(&file)

	nlog.Logger().Info().
		Str("file", file.ID).
		Str("user", file.UserID).
		Int("chunks", chunkCount).
		Int64("size", total).
		Msg("upload completed")

	info := fileInfo(&file)

	return &info, nil
}

// publishFileUploaded 发布上传完成事件，MQ 未启用时静默跳过.
func (fs *FileService) publishFileUploaded(file *model.File) {
	if fs.mq == nil {
		return
	}

	payload := queue.FileUploadedPayload{
		File: queue.FileRef{
			ID:       file.ID,
			User:     file.UserID,
			Name:     file.Name,
			FolderID: file.FolderID,
			Size:     file.Size,
			MimeType: file.MimeType,
			Checksum: file.Checksum,
		},
		ChunkCount: file.ChunkCount,
		Backend:    fs.backend.Name(),
	}

	msg, err := queue.NewWatermillMessage(queue.TopicFileUploaded, payload, queue.WithProducer("chunkvault"))
	if err != nil {
		return
	}

	if err := fs.mq.Publish(context.Background(), queue.TopicFileUploaded, msg); err != nil {
		nlog.Logger().Warn().Err(err).Str("file", file.ID).Msg("publish file.uploaded failed")
	}
}

// publishQuotaExceeded 发布配额不足事件，尽力而为.
func (fs *FileService) publishQuotaExceeded(user *model.User, requested int64) {
	if fs.mq == nil {
		return
	}

	payload := queue.QuotaExceededPayload{
		User:      user.Name,
		Requested: requested,
		Used:      user.StorageUsed,
		Quota:     user.StorageQuota,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicQuotaExceeded, payload, queue.WithProducer("chunkvault"))
	if err != nil {
		return
	}

	_ = fs.mq.Publish(context.Background(), queue.TopicQuotaExceeded, msg)
}

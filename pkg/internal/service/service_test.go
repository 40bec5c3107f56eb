package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/khaznati/chunkvault/pkg/configs"
	"github.com/khaznati/chunkvault/pkg/internal/backend"
	"github.com/khaznati/chunkvault/pkg/internal/index"
	"github.com/khaznati/chunkvault/pkg/internal/model"
	kvc "github.com/khaznati/chunkvault/pkg/internal/storage/kv"
	"github.com/khaznati/chunkvault/pkg/internal/types"
)

// fakeBackend 内存对象后端，可按次注入 Put 错误、按 locator 注入 Delete 失败.
type fakeBackend struct {
	mu      sync.Mutex
	objects map[backend.Locator][]byte
	seq     int
	puts    int
	putErr  func(n int) error
	failDel map[backend.Locator]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		objects: make(map[backend.Locator][]byte),
		failDel: make(map[backend.Locator]bool),
	}
}

func (f *fakeBackend) Name() string                    { return "fake" }
func (f *fakeBackend) Connect(_ context.Context) error { return nil }
func (f *fakeBackend) Close() error                    { return nil }

func (f *fakeBackend) Put(_ context.Context, data []byte) (backend.Locator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts++
	if f.putErr != nil {
		if err := f.putErr(f.puts); err != nil {
			return "", err
		}
	}

	f.seq++
	loc := backend.Locator(fmt.Sprintf("obj-%d", f.seq))
	f.objects[loc] = bytes.Clone(data)

	return loc, nil
}

func (f *fakeBackend) Get(_ context.Context, loc backend.Locator) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[loc]
	if !ok {
		return nil, backend.ErrNotFound
	}

	return bytes.Clone(data), nil
}

func (f *fakeBackend) Delete(_ context.Context, loc backend.Locator) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDel[loc] {
		return backend.ErrUnavailable
	}

	delete(f.objects, loc)

	return nil
}

func (f *fakeBackend) stored() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.objects)
}

func (f *fakeBackend) anyLocator() backend.Locator {
	f.mu.Lock()
	defer f.mu.Unlock()

	for loc := range f.objects {
		return loc
	}

	return ""
}

func testStorageConfig() configs.StorageConfig {
	return configs.StorageConfig{
		Backend:            "s3",
		ChunkSizeMB:        1,
		MaxConcurrent:      3,
		ChunkOpTimeout:     30,
		MaxRetries:         3,
		MaxThrottleWait:    300,
		UserQuotaGB:        1,
		SessionTTLMinutes:  5,
		TrashRetentionDays: 30,
	}
}

func newTestService(t *testing.T) (*FileService, *fakeBackend) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Folder{}, &model.File{}, &model.Chunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	kv, err := kvc.NewMemoryKV(t.Context(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	fb := newFakeBackend()

	return &FileService{
		db:      db,
		kv:      kv,
		backend: fb,
		index:   index.New(db),
		cfg:     testStorageConfig(),
	}, fb
}

// patternData 生成内容可校验的确定性字节流.
func patternData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}

	return data
}

func mustUpload(t *testing.T, fs *FileService, user, name string, folderID *uint, data []byte) *types.FileInfo {
	t.Helper()

	sess, err := fs.InitUpload(t.Context(), user, &types.InitUploadRequest{
		Name:     name,
		FolderID: folderID,
		Size:     int64(len(data)),
	})
	if err != nil {
		t.Fatalf("InitUpload(%s): %v", name, err)
	}

	info, err := fs.StreamUpload(t.Context(), sess.SessionID, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("StreamUpload(%s): %v", name, err)
	}

	return info
}

const mib = 1 << 20

// TestUploadDownloadRoundTrip 上传后逐字节重建出相同内容.
func TestUploadDownloadRoundTrip(t *testing.T) {
	fs, fb := newTestService(t)
	data := patternData(2*mib + 512*1024)

	info := mustUpload(t, fs, "alice", "photo.raw", nil, data)

	if info.ChunkCount != 3 {
		t.Fatalf("ChunkCount = %d, want 3", info.ChunkCount)
	}

	if info.Size != int64(len(data)) {
		t.Fatalf("Size = %d, want %d", info.Size, len(data))
	}

	if fb.stored() != 3 {
		t.Fatalf("backend holds %d objects, want 3", fb.stored())
	}

	used, _, err := fs.GetUsage(t.Context(), "alice")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}

	if used != int64(len(data)) {
		t.Fatalf("used = %d, want %d", used, len(data))
	}

	var buf bytes.Buffer

	file, err := fs.Download(t.Context(), "alice", info.ID, &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if file.Checksum != info.Checksum {
		t.Fatalf("checksum drifted: %s vs %s", file.Checksum, info.Checksum)
	}

	if !bytes.Equal(buf.Bytes(), data) {
		t.Fatal("downloaded content differs from uploaded content")
	}
}

// TestUploadEmptyFile 空文件合法：零个分块，元数据完整.
func TestUploadEmptyFile(t *testing.T) {
	fs, fb := newTestService(t)

	info := mustUpload(t, fs, "alice", "empty.txt", nil, nil)

	if info.ChunkCount != 0 || info.Size != 0 {
		t.Fatalf("ChunkCount = %d, Size = %d, want 0, 0", info.ChunkCount, info.Size)
	}

	if fb.stored() != 0 {
		t.Fatalf("backend holds %d objects, want 0", fb.stored())
	}

	var buf bytes.Buffer
	if _, err := fs.Download(t.Context(), "alice", info.ID, &buf); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if buf.Len() != 0 {
		t.Fatalf("downloaded %d bytes, want 0", buf.Len())
	}
}

// TestUploadRecoversFromThrottle 限流分块按建议时长等待后重试，上传仍完成.
func TestUploadRecoversFromThrottle(t *testing.T) {
	fs, fb := newTestService(t)
	fb.putErr = func(n int) error {
		if n <= 2 {
			return backend.NewThrottledError(10 * time.Millisecond)
		}

		return nil
	}

	data := patternData(2*mib + 100)
	info := mustUpload(t, fs, "alice", "slow.bin", nil, data)

	if info.ChunkCount != 3 {
		t.Fatalf("ChunkCount = %d, want 3", info.ChunkCount)
	}

	if fb.stored() != 3 {
		t.Fatalf("backend holds %d objects, want 3", fb.stored())
	}
}

// TestUploadQuotaExceeded 配额不够时在会话创建阶段就拒绝，后端零调用.
func TestUploadQuotaExceeded(t *testing.T) {
	fs, fb := newTestService(t)

	user := model.User{Name: "bob", StorageQuota: 1000, StorageUsed: 900}
	if err := fs.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err := fs.InitUpload(t.Context(), "bob", &types.InitUploadRequest{Name: "big.bin", Size: 200})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("InitUpload error = %v, want ErrQuotaExceeded", err)
	}

	if fb.puts != 0 {
		t.Fatalf("backend saw %d puts, want 0", fb.puts)
	}
}

// TestUploadSizeMismatchAborts 实收字节数与声明不符时中止并清理已传分块.
func TestUploadSizeMismatchAborts(t *testing.T) {
	fs, fb := newTestService(t)
	data := patternData(mib + 100)

	sess, err := fs.InitUpload(t.Context(), "alice", &types.InitUploadRequest{
		Name: "short.bin",
		Size: int64(len(data)) + 10,
	})
	if err != nil {
		t.Fatalf("InitUpload: %v", err)
	}

	_, err = fs.StreamUpload(t.Context(), sess.SessionID, bytes.NewReader(data))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("StreamUpload error = %v, want ErrConflict", err)
	}

	if fb.stored() != 0 {
		t.Fatalf("backend holds %d orphaned objects, want 0", fb.stored())
	}

	// 会话随中止一并作废
	_, err = fs.StreamUpload(t.Context(), sess.SessionID, bytes.NewReader(data))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second StreamUpload error = %v, want ErrSessionNotFound", err)
	}

	var count int64
	fs.db.Model(&model.File{}).Count(&count)

	if count != 0 {
		t.Fatalf("file rows = %d, want 0", count)
	}
}

// TestUploadNameConflict 同目录可见文件不允许重名.
func TestUploadNameConflict(t *testing.T) {
	fs, _ := newTestService(t)
	mustUpload(t, fs, "alice", "dup.txt", nil, patternData(64))

	_, err := fs.InitUpload(t.Context(), "alice", &types.InitUploadRequest{Name: "dup.txt", Size: 64})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("InitUpload error = %v, want ErrConflict", err)
	}

	// 其他用户不受影响
	mustUpload(t, fs, "carol", "dup.txt", nil, patternData(64))
}

// TestDownloadChecksumMismatch 分块内容被篡改时下载失败而不是静默返回坏数据.
func TestDownloadChecksumMismatch(t *testing.T) {
	fs, fb := newTestService(t)
	info := mustUpload(t, fs, "alice", "doc.pdf", nil, patternData(mib/2))

	loc := fb.anyLocator()
	fb.mu.Lock()
	fb.objects[loc][0] ^= 0xFF
	fb.mu.Unlock()

	var buf bytes.Buffer

	_, err := fs.Download(t.Context(), "alice", info.ID, &buf)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Download error = %v, want ErrChecksumMismatch", err)
	}
}

// TestDownloadOtherUsersFile 文件对非属主不可见.
func TestDownloadOtherUsersFile(t *testing.T) {
	fs, _ := newTestService(t)
	info := mustUpload(t, fs, "alice", "private.txt", nil, patternData(64))

	var buf bytes.Buffer

	_, err := fs.Download(t.Context(), "mallory", info.ID, &buf)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download error = %v, want ErrNotFound", err)
	}
}

// TestTrashRestoreRoundTrip 回收站往返：移入后从目录消失，恢复回原目录.
func TestTrashRestoreRoundTrip(t *testing.T) {
	fs, _ := newTestService(t)

	folder, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "docs"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	info := mustUpload(t, fs, "alice", "a.txt", &folder.ID, patternData(128))

	if err := fs.TrashFile(t.Context(), "alice", info.ID); err != nil {
		t.Fatalf("TrashFile: %v", err)
	}

	contents, err := fs.ListFolder(t.Context(), "alice", &folder.ID)
	if err != nil {
		t.Fatalf("ListFolder: %v", err)
	}

	if len(contents.Files) != 0 {
		t.Fatalf("folder still lists %d files after trash", len(contents.Files))
	}

	trash, err := fs.ListTrash(t.Context(), "alice")
	if err != nil {
		t.Fatalf("ListTrash: %v", err)
	}

	if len(trash) != 1 || trash[0].ID != info.ID {
		t.Fatalf("trash = %+v, want the trashed file", trash)
	}

	// 回收站里的文件不可下载
	var buf bytes.Buffer
	if _, err := fs.Download(t.Context(), "alice", info.ID, &buf); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download of trashed file = %v, want ErrNotFound", err)
	}

	restored, err := fs.RestoreFile(t.Context(), "alice", info.ID)
	if err != nil {
		t.Fatalf("RestoreFile: %v", err)
	}

	if restored.FolderID == nil || *restored.FolderID != folder.ID {
		t.Fatalf("restored FolderID = %v, want %d", restored.FolderID, folder.ID)
	}
}

// TestRestoreToRootWhenFolderGone 原目录已删除时恢复到根目录.
func TestRestoreToRootWhenFolderGone(t *testing.T) {
	fs, _ := newTestService(t)

	folder, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "tmp"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	info := mustUpload(t, fs, "alice", "b.txt", &folder.ID, patternData(128))

	if err := fs.TrashFile(t.Context(), "alice", info.ID); err != nil {
		t.Fatalf("TrashFile: %v", err)
	}

	// 文件进回收站后目录为空，可删除
	if err := fs.DeleteFolder(t.Context(), "alice", folder.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	restored, err := fs.RestoreFile(t.Context(), "alice", info.ID)
	if err != nil {
		t.Fatalf("RestoreFile: %v", err)
	}

	if restored.FolderID != nil {
		t.Fatalf("restored FolderID = %d, want root", *restored.FolderID)
	}
}

// TestDeletePermanentlyReleasesQuota 永久删除清空后端、索引、元数据并归还配额.
func TestDeletePermanentlyReleasesQuota(t *testing.T) {
	fs, fb := newTestService(t)
	info := mustUpload(t, fs, "alice", "c.bin", nil, patternData(mib+100))

	if err := fs.DeletePermanently(t.Context(), "alice", info.ID); err != nil {
		t.Fatalf("DeletePermanently: %v", err)
	}

	if fb.stored() != 0 {
		t.Fatalf("backend holds %d objects, want 0", fb.stored())
	}

	n, err := fs.index.Count(t.Context(), info.ID)
	if err != nil {
		t.Fatalf("index.Count: %v", err)
	}

	if n != 0 {
		t.Fatalf("index rows = %d, want 0", n)
	}

	used, _, err := fs.GetUsage(t.Context(), "alice")
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}

	if used != 0 {
		t.Fatalf("used = %d, want 0", used)
	}

	if _, err := fs.GetFile(t.Context(), "alice", info.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetFile after delete = %v, want ErrNotFound", err)
	}
}

// TestDeletePermanentlyPartialBackendFailure 个别分块删不掉时元数据照常清理，失败数可观测.
func TestDeletePermanentlyPartialBackendFailure(t *testing.T) {
	fs, fb := newTestService(t)
	info := mustUpload(t, fs, "alice", "d.bin", nil, patternData(2*mib+100))

	stuck := fb.anyLocator()
	fb.mu.Lock()
	fb.failDel[stuck] = true
	fb.mu.Unlock()

	if err := fs.DeletePermanently(t.Context(), "alice", info.ID); err != nil {
		t.Fatalf("DeletePermanently: %v", err)
	}

	// 卡住的那块留在后端，其余已清除
	if fb.stored() != 1 {
		t.Fatalf("backend holds %d objects, want 1 orphan", fb.stored())
	}

	n, _ := fs.index.Count(t.Context(), info.ID)
	if n != 0 {
		t.Fatalf("index rows = %d, want 0", n)
	}

	used, _, _ := fs.GetUsage(t.Context(), "alice")
	if used != 0 {
		t.Fatalf("used = %d, want 0", used)
	}
}

// TestEmptyTrash 清空回收站，只动回收站里的文件.
func TestEmptyTrash(t *testing.T) {
	fs, _ := newTestService(t)

	kept := mustUpload(t, fs, "alice", "keep.txt", nil, patternData(64))
	t1 := mustUpload(t, fs, "alice", "t1.txt", nil, patternData(64))
	t2 := mustUpload(t, fs, "alice", "t2.txt", nil, patternData(64))

	for _, id := range []string{t1.ID, t2.ID} {
		if err := fs.TrashFile(t.Context(), "alice", id); err != nil {
			t.Fatalf("TrashFile: %v", err)
		}
	}

	result, err := fs.EmptyTrash(t.Context(), "alice")
	if err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}

	if result.Deleted != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 deleted, 0 failed", result)
	}

	if _, err := fs.GetFile(t.Context(), "alice", kept.ID); err != nil {
		t.Fatalf("survivor vanished: %v", err)
	}
}

// TestPurgeExpired 只清理超过保留期的文件.
func TestPurgeExpired(t *testing.T) {
	fs, _ := newTestService(t)

	oldFile := mustUpload(t, fs, "alice", "old.txt", nil, patternData(64))
	newFile := mustUpload(t, fs, "alice", "new.txt", nil, patternData(64))

	for _, id := range []string{oldFile.ID, newFile.ID} {
		if err := fs.TrashFile(t.Context(), "alice", id); err != nil {
			t.Fatalf("TrashFile: %v", err)
		}
	}

	expired := time.Now().UTC().Add(-31 * 24 * time.Hour)

	err := fs.db.Model(&model.File{}).
		Where("id = ?", oldFile.ID).
		Update("trashed_at", expired).Error
	if err != nil {
		t.Fatalf("backdate: %v", err)
	}

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	result, err := fs.PurgeExpired(t.Context(), cutoff)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}

	if result.Deleted != 1 {
		t.Fatalf("Deleted = %d, want 1", result.Deleted)
	}

	trash, err := fs.ListTrash(t.Context(), "alice")
	if err != nil {
		t.Fatalf("ListTrash: %v", err)
	}

	if len(trash) != 1 || trash[0].ID != newFile.ID {
		t.Fatalf("trash after purge = %+v, want only the fresh file", trash)
	}
}

// TestFolderDuplicateName 同一父目录（含根目录）下文件夹不允许重名.
func TestFolderDuplicateName(t *testing.T) {
	fs, _ := newTestService(t)

	if _, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "docs"}); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	_, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "docs"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate CreateFolder = %v, want ErrConflict", err)
	}

	// 其他用户、其他父目录下不冲突
	if _, err := fs.CreateFolder(t.Context(), "carol", &types.CreateFolderRequest{Name: "docs"}); err != nil {
		t.Fatalf("CreateFolder for carol: %v", err)
	}
}

// TestMoveFolderRejectsCycle 目录不能移进自己的子树.
func TestMoveFolderRejectsCycle(t *testing.T) {
	fs, _ := newTestService(t)
	ctx := t.Context()

	a, err := fs.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "a"})
	if err != nil {
		t.Fatalf("CreateFolder a: %v", err)
	}

	b, err := fs.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "b", ParentID: &a.ID})
	if err != nil {
		t.Fatalf("CreateFolder b: %v", err)
	}

	c, err := fs.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "c", ParentID: &b.ID})
	if err != nil {
		t.Fatalf("CreateFolder c: %v", err)
	}

	_, err = fs.MoveFolder(ctx, "alice", a.ID, &types.MoveFolderRequest{ParentID: &c.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("MoveFolder into descendant = %v, want ErrConflict", err)
	}

	_, err = fs.MoveFolder(ctx, "alice", a.ID, &types.MoveFolderRequest{ParentID: &a.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("MoveFolder into itself = %v, want ErrConflict", err)
	}

	// 合法移动：c 提到根
	moved, err := fs.MoveFolder(ctx, "alice", c.ID, &types.MoveFolderRequest{})
	if err != nil {
		t.Fatalf("MoveFolder to root: %v", err)
	}

	if moved.ParentID != nil {
		t.Fatalf("ParentID = %d, want root", *moved.ParentID)
	}
}

// TestDeleteFolderNotEmpty 非空目录拒绝删除.
func TestDeleteFolderNotEmpty(t *testing.T) {
	fs, _ := newTestService(t)

	folder, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "full"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	mustUpload(t, fs, "alice", "x.txt", &folder.ID, patternData(64))

	if err := fs.DeleteFolder(t.Context(), "alice", folder.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("DeleteFolder = %v, want ErrConflict", err)
	}
}

// TestRenameAndMoveFile 重命名与移动，目标位置重名时拒绝.
func TestRenameAndMoveFile(t *testing.T) {
	fs, _ := newTestService(t)
	ctx := t.Context()

	folder, err := fs.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "inbox"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	f1 := mustUpload(t, fs, "alice", "one.txt", nil, patternData(64))
	mustUpload(t, fs, "alice", "two.txt", &folder.ID, patternData(64))

	renamed, err := fs.RenameFile(ctx, "alice", f1.ID, &types.RenameFileRequest{Name: "uno.txt"})
	if err != nil {
		t.Fatalf("RenameFile: %v", err)
	}

	if renamed.Name != "uno.txt" {
		t.Fatalf("Name = %q, want uno.txt", renamed.Name)
	}

	moved, err := fs.MoveFile(ctx, "alice", f1.ID, &types.MoveFileRequest{FolderID: &folder.ID})
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}

	if moved.FolderID == nil || *moved.FolderID != folder.ID {
		t.Fatalf("FolderID = %v, want %d", moved.FolderID, folder.ID)
	}

	// 目标目录已有 two.txt
	if _, err := fs.RenameFile(ctx, "alice", f1.ID, &types.RenameFileRequest{Name: "two.txt"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("RenameFile onto existing = %v, want ErrConflict", err)
	}
}

// TestRetryWaitPolicy 重试决策：限流按建议时长，瞬态退避，其余立即失败.
func TestRetryWaitPolicy(t *testing.T) {
	maxWait := 5 * time.Second

	cases := []struct {
		name      string
		err       error
		attempt   int
		wantWait  time.Duration
		wantRetry bool
	}{
		{"throttled with hint", backend.NewThrottledError(2 * time.Second), 0, 2 * time.Second, true},
		{"throttled no hint", backend.NewThrottledError(0), 1, 2 * time.Second, true},
		{"throttled over limit", backend.NewThrottledError(time.Minute), 0, 0, false},
		{"timeout", backend.ErrTimeout, 0, time.Second, true},
		{"unavailable", backend.ErrUnavailable, 1, 2 * time.Second, true},
		{"not found", backend.ErrNotFound, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wait, retry := retryWait(tc.err, tc.attempt, maxWait)
			if retry != tc.wantRetry || wait != tc.wantWait {
				t.Fatalf("retryWait = (%v, %v), want (%v, %v)", wait, retry, tc.wantWait, tc.wantRetry)
			}
		})
	}
}

// TestMoveFileInPlace 移动到文件当前所在目录是空操作，不得和自己重名冲突.
func TestMoveFileInPlace(t *testing.T) {
	fs, _ := newTestService(t)

	uploaded := mustUpload(t, fs, "alice", "same.txt", nil, patternData(64))

	moved, err := fs.MoveFile(t.Context(), "alice", uploaded.ID, &types.MoveFileRequest{FolderID: nil})
	if err != nil {
		t.Fatalf("MoveFile to current location: %v", err)
	}

	if moved.FolderID != nil {
		t.Errorf("file moved away from root, folder = %v", *moved.FolderID)
	}

	docs, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "docs"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	if _, err := fs.MoveFile(t.Context(), "alice", uploaded.ID, &types.MoveFileRequest{FolderID: &docs.ID}); err != nil {
		t.Fatalf("MoveFile into folder: %v", err)
	}

	moved, err = fs.MoveFile(t.Context(), "alice", uploaded.ID, &types.MoveFileRequest{FolderID: &docs.ID})
	if err != nil {
		t.Fatalf("MoveFile to current folder: %v", err)
	}

	if moved.FolderID == nil || *moved.FolderID != docs.ID {
		t.Errorf("file left its folder, folder = %v", moved.FolderID)
	}
}

// TestMoveFolderInPlace 文件夹原地移动同样是空操作.
func TestMoveFolderInPlace(t *testing.T) {
	fs, _ := newTestService(t)

	docs, err := fs.CreateFolder(t.Context(), "alice", &types.CreateFolderRequest{Name: "docs"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	moved, err := fs.MoveFolder(t.Context(), "alice", docs.ID, &types.MoveFolderRequest{ParentID: nil})
	if err != nil {
		t.Fatalf("MoveFolder to current location: %v", err)
	}

	if moved.ParentID != nil {
		t.Errorf("folder moved away from root, parent = %v", *moved.ParentID)
	}
}

// TestDownloadMissingIndex 非空文件索引全丢表示数据不在了，区别于缺块.
func TestDownloadMissingIndex(t *testing.T) {
	fs, _ := newTestService(t)

	uploaded := mustUpload(t, fs, "alice", "gone.bin", nil, patternData(256))

	err := fs.db.Where("file_id = ?", uploaded.ID).Delete(&model.Chunk{}).Error
	if err != nil {
		t.Fatalf("drop chunk rows: %v", err)
	}

	var buf bytes.Buffer

	_, err = fs.Download(t.Context(), "alice", uploaded.ID, &buf)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download without index = %v, want ErrNotFound", err)
	}
}

// TestConcurrentReserveUsage 同一用户并发占用配额不丢更新也不超卖.
// sqlite 内存库在写竞争下会报 busy，这里对 busy 做忙等重试.
func TestConcurrentReserveUsage(t *testing.T) {
	fs, _ := newTestService(t)

	user := model.User{Name: "carol", StorageQuota: 1000}
	if err := fs.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	const (
		workers = 15
		piece   = 100
	)

	var (
		wg       sync.WaitGroup
		granted  atomic.Int64
		rejected atomic.Int64
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				err := reserveUsage(fs.db, "carol", piece)
				switch {
				case err == nil:
					granted.Add(1)
					return
				case errors.Is(err, ErrQuotaExceeded):
					rejected.Add(1)
					return
				case strings.Contains(strings.ToLower(err.Error()), "lock"),
					strings.Contains(strings.ToLower(err.Error()), "busy"):
					time.Sleep(time.Millisecond)
				default:
					t.Errorf("reserveUsage: %v", err)
					return
				}
			}
		}()
	}

	wg.Wait()

	if granted.Load() != 10 || rejected.Load() != 5 {
		t.Errorf("granted %d rejected %d, want 10/5", granted.Load(), rejected.Load())
	}

	var after model.User
	if err := fs.db.First(&after, "name = ?", "carol").Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}

	if after.StorageUsed != granted.Load()*piece {
		t.Errorf("storage_used = %d, want %d", after.StorageUsed, granted.Load()*piece)
	}
}

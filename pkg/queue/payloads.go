package queue

import "time"

// FileRef 标识一个文件及其基础元数据.
type FileRef struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Name     string `json:"name"`
	FolderID *uint  `json:"folder_id,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// FileUploadedPayload 上传完成，文件已可见.
type FileUploadedPayload struct {
	File       FileRef `json:"file"`
	ChunkCount int     `json:"chunk_count"`
	Backend    string  `json:"backend,omitempty"`
}

// FileTrashedPayload 文件移入回收站.
type FileTrashedPayload struct {
	File      FileRef   `json:"file"`
	TrashedAt time.Time `json:"trashed_at"`
}

// FileRestoredPayload 文件从回收站恢复到原文件夹.
type FileRestoredPayload struct {
	File     FileRef `json:"file"`
	FolderID *uint   `json:"folder_id,omitempty"`
}

// FileDeletedPayload 文件被永久删除.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
	// 后端清除失败的分块数，非零时留给人工或后台任务收尾
	FailedChunkDeletes int `json:"failed_chunk_deletes,omitempty"`
}

// TrashPurgedPayload 一次回收站清理完成.
type TrashPurgedPayload struct {
	User    string `json:"user,omitempty"` // 为空表示定时任务的全局清理
	Deleted int    `json:"deleted"`
	Failed  int    `json:"failed,omitempty"`
}

// QuotaExceededPayload 上传因配额不足被拒.
type QuotaExceededPayload struct {
	User      string `json:"user"`
	Requested int64  `json:"requested"`
	Used      int64  `json:"used"`
	Quota     int64  `json:"quota"`
}

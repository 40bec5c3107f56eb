// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：cv.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(文件生命周期)、trash(回收站)、quota(配额)
// 动作：uploaded/trashed/restored/deleted 等过去式表示既成事实

const (
	// 文件生命周期领域.
	TopicFileUploaded = "cv.file.uploaded" // 上传完成，元数据已提交，文件可见
	TopicFileTrashed  = "cv.file.trashed"  // 文件移入回收站
	TopicFileRestored = "cv.file.restored" // 文件从回收站恢复
	TopicFileDeleted  = "cv.file.deleted"  // 文件被永久删除，分块已从后端清除

	// 回收站领域.
	TopicTrashPurged = "cv.trash.purged" // 一次回收站清理（手动或定时）完成

	// 配额领域.
	TopicQuotaExceeded = "cv.quota.exceeded" // 上传因配额不足被拒绝
)

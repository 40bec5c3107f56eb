// Package jobs 定义后台定时任务.
package jobs

import (
	"context"
	"time"

	"github.com/khaznati/chunkvault/pkg/configs"
	ctxPkg "github.com/khaznati/chunkvault/pkg/context"
	"github.com/khaznati/chunkvault/pkg/internal/service"
	"github.com/khaznati/chunkvault/pkg/internal/storage"
	"github.com/khaznati/chunkvault/pkg/log"
	"github.com/khaznati/chunkvault/pkg/scheduler"
)

const (
	// TrashPurgeJobName 回收站自动清理任务名.
	TrashPurgeJobName = "trash-purge"
	// trashPurgeCron 每天凌晨三点执行.
	trashPurgeCron = "0 3 * * *"
)

// RegisterTrashPurge 注册回收站过期清理任务.
// 超过保留期的回收站文件被永久删除，配额随之归还.
func RegisterTrashPurge(sched *scheduler.Scheduler, manager *storage.Manager, cfg configs.StorageConfig) error {
	baseCtx := ctxPkg.WithStorageManager(context.Background(), manager)
	retention := time.Duration(cfg.TrashRetentionDays) * 24 * time.Hour

	return sched.AddCron(TrashPurgeJobName, trashPurgeCron, func(_ context.Context) {
		logger := log.Component("lifecycle")

		svc := service.NewFileService(baseCtx)
		if svc == nil {
			logger.Error().Msg("trash purge: storage manager unavailable")
			return
		}

		cutoff := time.Now().UTC().Add(-retention)

		result, err := svc.PurgeExpired(baseCtx, cutoff)
		if err != nil {
			logger.Error().Err(err).Msg("trash purge failed")
			return
		}

		if result.Deleted > 0 || result.Failed > 0 {
			logger.Info().
				Int("deleted", result.Deleted).
				Int("failed", result.Failed).
				Msg("trash purge run completed")
		}
	})
}

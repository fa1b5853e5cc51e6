package service

import (
	"go.uber.org/zap"

	"phias/backend/config"
	"phias/backend/internal/repository"
	"phias/backend/internal/store"
	"phias/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	// Slot / Reference 仅在 local 模式下可用（repo 非空）
	Slot      SlotService
	Reference ReferenceService

	// Store 是导入、规划与导出共用的排课存储
	Store    store.Store
	Planning PlanningService
	Import   ImportService
	Export   ExportService
}

// NewService 创建 Service 聚合
//
// local 模式下 Store 由本库的时段与参考数据服务组合而成；
// remote 模式下 repo 可为 nil，Store 为指向另一实例的 HTTP 客户端。
// rdb 为 nil 时导入会话快照降级为进程内存储。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	svc := &Service{}

	if cfg.Store.Mode == config.StoreModeRemote {
		svc.Store = store.NewHTTPClient(
			cfg.Store.BaseURL,
			cfg.Store.Token,
			store.DefaultHTTPClient(cfg.Store.HTTPTimeout),
		)
		logger.Info("使用远程排课存储", zap.String("base_url", cfg.Store.BaseURL))
	} else {
		svc.Slot = NewSlotService(repo, logger)
		svc.Reference = NewReferenceService(repo, logger)
		svc.Store = NewLocalStore(svc.Slot, svc.Reference)
	}

	var sessions ImportSessionStore
	if rdb != nil {
		sessions = NewRedisSessionStore(rdb, cfg.Import.SessionTTL)
	} else {
		logger.Warn("Redis 不可用，导入会话快照仅保存在进程内")
		sessions = NewMemorySessionStore(cfg.Import.SessionTTL)
	}

	svc.Planning = NewPlanningService(svc.Store, &cfg.Schedule.Grid, logger)
	svc.Import = NewImportService(svc.Store, sessions, &cfg.Import, logger)
	svc.Export = NewExportService(svc.Store, cfg.Schedule.Timezone, logger)
	return svc
}

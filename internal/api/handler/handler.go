package handler

import (
	"phias/backend/config"
	"phias/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Slot      *SlotHandler
	Reference *ReferenceHandler
	Planning  *PlanningHandler
	Import    *ImportHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合；时段与参考数据统一经 svc.Store 访问，本地与远程模式行为一致
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Slot:      NewSlotHandler(svc.Store),
		Reference: NewReferenceHandler(svc.Store),
		Planning:  NewPlanningHandler(svc.Planning),
		Import:    NewImportHandler(svc.Import, cfg.Import.MaxFileSize),
		Export:    NewExportHandler(svc.Export),
	}
}

package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"phias/backend/config"
	"phias/backend/internal/api/handler"
	"phias/backend/internal/api/middleware"
	"phias/backend/pkg/jwt"
	"phias/backend/pkg/redis"
)

// multipartOverhead 上传文件之外的表单开销
const multipartOverhead = 1 << 20

// Setup 初始化并返回 Gin 路由引擎；db 在 remote 模式下为 nil，rdb 可为 nil
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Import.MaxFileSize + multipartOverhead))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(cfg, db, rdb))

	writer := middleware.RoleAuth(cfg.Auth.WriteRoles...)
	importLimit := middleware.RateLimit(rdb, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 周期时段模块
		slots := v1.Group("/slots")
		{
			slots.GET("", h.Slot.ListSlots)
			slots.GET("/:id", h.Slot.GetSlot)
			slots.POST("", writer, h.Slot.CreateSlot)
			slots.PUT("/:id", writer, h.Slot.UpdateSlot)
			slots.PUT("/:id/active", writer, h.Slot.SetSlotActive)
		}

		// 参考数据（只读）
		v1.GET("/instructors", h.Reference.ListInstructors)
		v1.GET("/rooms", h.Reference.ListRooms)
		v1.GET("/cohorts", h.Reference.ListCohorts)
		v1.GET("/programs/:id/competencies", h.Reference.ListCompetencies)
		v1.GET("/competencies/:id/outcomes", h.Reference.ListLearningOutcomes)

		// 规划模块
		planning := v1.Group("/planning")
		{
			planning.GET("/hours", h.Planning.GetHours)
			planning.GET("/grid", h.Planning.GetGrid)
			planning.GET("/occurrences", h.Planning.GetOccurrences)
		}

		// 导出模块
		v1.GET("/export/ics", h.Export.ExportICS)

		// 批量导入模块（template 须先于 :id 注册）
		imports := v1.Group("/imports")
		{
			imports.GET("/template", h.Import.DownloadTemplate)
			imports.POST("/validate", importLimit, h.Import.ValidateImport)
			imports.POST("", writer, importLimit, h.Import.StartImport)
			imports.GET("/:id", h.Import.GetImport)
			imports.POST("/:id/file", writer, importLimit, h.Import.ResubmitImport)
			imports.POST("/:id/retry", writer, h.Import.RetryImport)
			imports.DELETE("/:id", writer, h.Import.CloseImport)
		}
	}

	return r
}

// healthCheck 检查数据库与 Redis 连通性；Redis 不可用只记为降级
func healthCheck(cfg *config.Config, db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{"status": "ok", "store": cfg.Store.Mode}

		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unavailable"
				body["database"] = err.Error()
			}
		}
		if rdb == nil {
			body["redis"] = "disabled"
		} else if err := rdb.Ping(ctx); err != nil {
			body["redis"] = "degraded"
		}

		c.JSON(status, body)
	}
}

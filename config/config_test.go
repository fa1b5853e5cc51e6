package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret-key-2026-phias\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Store.Mode != StoreModeLocal {
		t.Errorf("期望默认 store.mode=local，实际 %s", cfg.Store.Mode)
	}
	if cfg.Schedule.Grid.ParticipantThreshold != 45 || cfg.Schedule.Grid.LocationThreshold != 75 ||
		cfg.Schedule.Grid.StartTimeThreshold != 105 {
		t.Errorf("网格阈值默认值错误: %+v", cfg.Schedule.Grid)
	}
	if cfg.Import.MaxDisplayedDiagnostics != 50 {
		t.Errorf("期望诊断显示上限 50，实际 %d", cfg.Import.MaxDisplayedDiagnostics)
	}
	if cfg.Import.SessionTTL.Hours() != 2 {
		t.Errorf("期望会话 TTL 2h，实际 %v", cfg.Import.SessionTTL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: test-secret-key-2026-phias\n")
	t.Setenv("PHIAS_STORE_MODE", "remote")
	t.Setenv("PHIAS_STORE_BASE_URL", "http://store.internal/api/v1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Store.Mode != StoreModeRemote || cfg.Store.BaseURL != "http://store.internal/api/v1" {
		t.Errorf("环境变量未覆盖 store 配置: %+v", cfg.Store)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			Auth:   AuthConfig{JWTSecret: "test-secret-key-2026-phias"},
			Store:  StoreConfig{Mode: StoreModeLocal},
			Schedule: ScheduleConfig{Grid: GridConfig{
				OriginHour: 6, EndHour: 22,
				ParticipantThreshold: 45, LocationThreshold: 75, StartTimeThreshold: 105,
			}},
			Import: ImportConfig{MaxRows: 100},
		}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("有效配置不应报错: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"短密钥", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }},
		{"未知存储模式", func(c *Config) { c.Store.Mode = "ftp" }},
		{"remote 缺少地址", func(c *Config) { c.Store.Mode = StoreModeRemote }},
		{"网格终点早于起点", func(c *Config) { c.Schedule.Grid.EndHour = 5 }},
		{"阈值非递增", func(c *Config) { c.Schedule.Grid.LocationThreshold = 30 }},
		{"行数上限为 0", func(c *Config) { c.Import.MaxRows = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}

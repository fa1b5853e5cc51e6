package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Import   ImportConfig   `mapstructure:"import"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 导入接口限流
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 校验配置；令牌由外部身份服务签发
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	WriteRoles     []string      `mapstructure:"write_roles"` // 允许修改时段与导入的角色
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// 排课存储模式
const (
	StoreModeLocal  = "local"
	StoreModeRemote = "remote"
)

// StoreConfig 排课存储配置：local 使用本库 PostgreSQL，remote 调用另一实例的 /api/v1
type StoreConfig struct {
	Mode        string        `mapstructure:"mode"`
	BaseURL     string        `mapstructure:"base_url"`
	Token       string        `mapstructure:"token"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ScheduleConfig 排课展示配置
type ScheduleConfig struct {
	Timezone string     `mapstructure:"timezone"`
	Grid     GridConfig `mapstructure:"grid"`
}

// GridConfig 周视图网格配置（分钟阈值决定块内显示的信息层级）
type GridConfig struct {
	OriginHour           int  `mapstructure:"origin_hour"`
	EndHour              int  `mapstructure:"end_hour"`
	ParticipantThreshold int  `mapstructure:"participant_threshold"`
	LocationThreshold    int  `mapstructure:"location_threshold"`
	StartTimeThreshold   int  `mapstructure:"start_time_threshold"`
	StackOverlaps        bool `mapstructure:"stack_overlaps"`
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	MaxRows                 int           `mapstructure:"max_rows"`
	MaxDisplayedDiagnostics int           `mapstructure:"max_displayed_diagnostics"`
	SessionTTL              time.Duration `mapstructure:"session_ttl"`
	MaxFileSize             int64         `mapstructure:"max_file_size"` // 字节
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PHIAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 30)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "phias")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Bogota")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "phias")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.write_roles", []string{"admin", "coordinator"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.mode", StoreModeLocal)
	v.SetDefault("store.base_url", "")
	v.SetDefault("store.token", "")
	v.SetDefault("store.http_timeout", "10s")

	v.SetDefault("schedule.timezone", "America/Bogota")
	v.SetDefault("schedule.grid.origin_hour", 6)
	v.SetDefault("schedule.grid.end_hour", 22)
	v.SetDefault("schedule.grid.participant_threshold", 45)
	v.SetDefault("schedule.grid.location_threshold", 75)
	v.SetDefault("schedule.grid.start_time_threshold", 105)
	v.SetDefault("schedule.grid.stack_overlaps", false)

	v.SetDefault("import.max_rows", 1000)
	v.SetDefault("import.max_displayed_diagnostics", 50)
	v.SetDefault("import.session_ttl", "2h")
	v.SetDefault("import.max_file_size", 5<<20)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Store.Mode {
	case StoreModeLocal:
	case StoreModeRemote:
		if c.Store.BaseURL == "" {
			return fmt.Errorf("配置校验失败: store.mode=remote 时 store.base_url 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: store.mode 只能是 local 或 remote，实际 %q", c.Store.Mode)
	}
	g := c.Schedule.Grid
	if g.OriginHour < 0 || g.OriginHour > 23 || g.EndHour <= g.OriginHour || g.EndHour > 24 {
		return fmt.Errorf("配置校验失败: schedule.grid 起止小时无效 (%d-%d)", g.OriginHour, g.EndHour)
	}
	if g.ParticipantThreshold > g.LocationThreshold || g.LocationThreshold > g.StartTimeThreshold {
		return fmt.Errorf("配置校验失败: schedule.grid 阈值必须递增")
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("配置校验失败: import.max_rows 必须大于 0")
	}
	return nil
}

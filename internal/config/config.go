package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 3001
	defaultMaxConnections = 10000
	defaultRedisAddr      = "localhost:6379"
	defaultGraceTimeout   = 30 // 秒
	defaultWaitingTick    = 30 // Hz
	defaultRoomTimeout    = 10 // 分钟

	defaultRateMaxPerSecond = 10
	defaultRateMaxPerMinute = 60
	defaultRateBanDuration  = 60 // 秒
	defaultMsgMaxPerSecond  = 120
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxConnections int      `yaml:"max_connections"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	GraceTimeout int `yaml:"grace_timeout"` // 重连宽限期（秒）
	WaitingTick  int `yaml:"waiting_tick"`  // 等待大厅位置广播频率（Hz）
	RoomTimeout  int `yaml:"room_timeout"`  // 空闲房间清理超时（分钟）
}

// SecurityConfig 连接与消息速率限制配置
type SecurityConfig struct {
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 升级端点的按 IP 限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 单连接的消息速率限制
// 上限要容得下等待大厅 30Hz 的位置上报
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// GraceTimeoutDuration 返回重连宽限期时长
func (c *GameConfig) GraceTimeoutDuration() time.Duration {
	return time.Duration(c.GraceTimeout) * time.Second
}

// WaitingTickInterval 返回等待大厅广播间隔
func (c *GameConfig) WaitingTickInterval() time.Duration {
	return time.Second / time.Duration(c.WaitingTick)
}

// RoomTimeoutDuration 返回空闲房间清理超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.loadFromEnv()
	return cfg
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = defaultMaxConnections
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Game.GraceTimeout == 0 {
		c.Game.GraceTimeout = defaultGraceTimeout
	}
	if c.Game.WaitingTick == 0 {
		c.Game.WaitingTick = defaultWaitingTick
	}
	if c.Game.RoomTimeout == 0 {
		c.Game.RoomTimeout = defaultRoomTimeout
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = defaultRateMaxPerSecond
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = defaultRateMaxPerMinute
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = defaultRateBanDuration
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		c.Security.MessageLimit.MaxPerSecond = defaultMsgMaxPerSecond
	}
}

// loadFromEnv 环境变量覆盖（容器部署用）
func (c *Config) loadFromEnv() {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("GAME_GRACE_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			c.Game.GraceTimeout = sec
		}
	}
	if v := os.Getenv("SERVER_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"cantiere/pkg/circuitbreaker"
)

// Config 服务完整配置
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Log      LogConfig             `yaml:"log"`
	DB       DBConfig              `yaml:"db"`
	Redis    RedisConfig           `yaml:"redis"`
	MQ       MQConfig              `yaml:"mq"`
	Storage  StorageConfig         `yaml:"storage"`
	Schedule ScheduleConfig        `yaml:"schedule"`
	Breaker  circuitbreaker.Config `yaml:"breaker"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"sslmode"`
	MaxConns           int32         `yaml:"max_conns"`
	MinConns           int32         `yaml:"min_conns"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// MQConfig 消息队列配置；URL 为空时不发布也不消费事件
type MQConfig struct {
	URL          string        `yaml:"url"`
	MaxRetries   int64         `yaml:"max_retries"`
	RetryTTL     time.Duration `yaml:"retry_ttl"`
	RetryBackend string        `yaml:"retry_backend"` // memory / redis

	OutboxCapacity  int `yaml:"outbox_capacity"`
	OutboxBatchSize int `yaml:"outbox_batch_size"` // 每次扫描最多重发的事件数
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects the backend holding the per-project task snapshots.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // memory / file / redis / postgres / sqlite
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	KeyPrefix  string `yaml:"key_prefix"`
}

type ScheduleConfig struct {
	Locale         string `yaml:"locale"`
	StrictNotFound bool   `yaml:"strict_not_found"`
}

// Default 返回本地开发用的默认配置
func Default() Config {
	return Config{
		Server: ServerConfig{Port: ":8085"},
		Log:    LogConfig{Level: "info"},
		DB: DBConfig{
			Host:               "localhost",
			Port:               5432,
			User:               "postgres",
			Name:               "cantiere",
			SSLMode:            "disable",
			MaxConns:           10,
			MinConns:           2,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		MQ:       MQConfig{MaxRetries: 5, RetryTTL: 24 * time.Hour, RetryBackend: "memory", OutboxCapacity: 10000, OutboxBatchSize: 100},
		Storage:  StorageConfig{Driver: "file", Dir: "data/schedules", SQLitePath: "data/schedules.db", KeyPrefix: "gantt_tasks_"},
		Schedule: ScheduleConfig{Locale: "it"},
		Breaker:  circuitbreaker.DefaultConfig(),
	}
}

// OverrideFromEnv 用系统环境变量覆盖配置（优先级最高）
func OverrideFromEnv(cfg *Config) {
	OverrideDBFromEnv(&cfg.DB)
	OverrideMQFromEnv(&cfg.MQ)
	OverrideRedisFromEnv(&cfg.Redis)
	OverrideServerFromEnv(&cfg.Server)
	OverrideStorageFromEnv(&cfg.Storage)
	OverrideScheduleFromEnv(&cfg.Schedule)
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
	if n := os.Getenv("MQ_MAX_RETRIES"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			cfg.MaxRetries = v
		}
	}
	if backend := os.Getenv("MQ_RETRY_BACKEND"); backend != "" {
		cfg.RetryBackend = backend
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

func OverrideStorageFromEnv(cfg *StorageConfig) {
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if dir := os.Getenv("STORAGE_DIR"); dir != "" {
		cfg.Dir = dir
	}
}

func OverrideScheduleFromEnv(cfg *ScheduleConfig) {
	if locale := os.Getenv("SCHEDULE_LOCALE"); locale != "" {
		cfg.Locale = locale
	}
}

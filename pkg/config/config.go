// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wyfcoding/tradingbot/pkg/logger"
)

// Config 平台配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 调度执行配置
	Execution ExecutionConfig `mapstructure:"execution"`
	// 行情数据源配置
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	// 组合快照配置
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	// 回测配置
	Backtest BacktestConfig `mapstructure:"backtest"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用（价格缓存为可选优化）
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	// 价格缓存 TTL（毫秒）
	PriceTTL int `mapstructure:"price_ttl"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	// 是否启用回测事件桥接
	Enabled bool `mapstructure:"enabled"`
	// Broker 地址列表
	Brokers []string `mapstructure:"brokers"`
	// 回测事件主题
	BacktestTopic string `mapstructure:"backtest_topic"`
	MaxRetries    int    `mapstructure:"max_retries"`
	RetryBackoff  int    `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// ExecutionConfig 调度执行配置
type ExecutionConfig struct {
	// 定时触发的共享密钥（Bearer）
	TriggerSecret string `mapstructure:"trigger_secret"`
	// 单个机器人流水线超时（秒）
	PipelineTimeout int `mapstructure:"pipeline_timeout"`
	// 策略评估服务地址
	EvaluatorAddr string `mapstructure:"evaluator_addr"`
	// 券商网关地址
	BrokerAddr string `mapstructure:"broker_addr"`
	// 券商 API Key
	BrokerAPIKey string `mapstructure:"broker_api_key"`
}

// MarketDataConfig 行情数据源配置
type MarketDataConfig struct {
	// 数据供应商地址
	VendorAddr string `mapstructure:"vendor_addr"`
	// 供应商 API Key
	VendorAPIKey string `mapstructure:"vendor_api_key"`
	// 单个价格源超时（毫秒）
	SourceTimeout int `mapstructure:"source_timeout"`
}

// PortfolioConfig 组合快照配置
type PortfolioConfig struct {
	// 是否启用周期快照
	SnapshotEnabled bool `mapstructure:"snapshot_enabled"`
	// 快照间隔（分钟），同一自然日内重复快照按日期覆盖
	SnapshotInterval int `mapstructure:"snapshot_interval"`
}

// Interval 周期快照的间隔时间
func (c *PortfolioConfig) Interval() time.Duration {
	if c.SnapshotInterval <= 0 {
		return time.Hour
	}
	return time.Duration(c.SnapshotInterval) * time.Minute
}

// BacktestConfig 回测配置
type BacktestConfig struct {
	// 进度事件上报间隔（处理多少根 K 线上报一次）
	ProgressInterval int `mapstructure:"progress_interval"`
}

// Load 从 TOML 文件加载配置，支持 APP_ 前缀环境变量覆盖与默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = "tradingbot"
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Execution.TriggerSecret == "" {
		return fmt.Errorf("execution.trigger_secret is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// Timeout 单个机器人流水线的超时时间
func (c *ExecutionConfig) Timeout() time.Duration {
	if c.PipelineTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PipelineTimeout) * time.Second
}

// Timeout 单个价格源的超时时间
func (c *MarketDataConfig) Timeout() time.Duration {
	if c.SourceTimeout <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.SourceTimeout) * time.Millisecond
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "tradingbot")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)
	v.SetDefault("redis.price_ttl", 2000)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.backtest_topic", "backtest-events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/tradingbot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("execution.pipeline_timeout", 30)

	v.SetDefault("marketdata.source_timeout", 3000)

	v.SetDefault("portfolio.snapshot_enabled", true)
	v.SetDefault("portfolio.snapshot_interval", 60)

	v.SetDefault("backtest.progress_interval", 10)
}

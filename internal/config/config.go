package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QwenConfig 通义千问模型客户端配置
// APIKey 必须提供（文件或环境变量 QWEN_API_KEY），缺失视为启动失败
type QwenConfig struct {
	APIKey         string `yaml:"api_key"`
	APIURL         string `yaml:"api_url"`
	Model          string `yaml:"model"`           // 固定的模型标识，客户端不允许静默降级
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单次调用超时(秒)
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`  // 连接最大生命周期(分钟)
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"` // 空闲连接最大生命周期(分钟)
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"` // 连接超时(秒)
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`    // 读取超时(秒)
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`   // 写入超时(秒)
	// 日志设置
	LogLevel int `yaml:"log_level"` // 日志级别(1-4)
}

// RedisConfig Redis配置结构
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`      // 连接池大小
	MinIdleConns int `yaml:"min_idle_conns"` // 最小空闲连接数
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`  // 连接超时(秒)
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`  // 读取超时(秒)
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"` // 写入超时(秒)
	// 去重记录过期时间(天)
	DedupRecordExpireDays int `yaml:"dedup_record_expire_days"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
}

// RescoreConfig 人才库重评配置
type RescoreConfig struct {
	Workers int `yaml:"workers"` // 并发重评的工作协程数
	QPM     int `yaml:"qpm"`     // 模型提供商的每分钟请求数上限
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// Config 应用程序配置
type Config struct {
	Qwen    QwenConfig    `yaml:"qwen"`
	MySQL   MySQLConfig   `yaml:"mysql"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`
	Rescore RescoreConfig `yaml:"rescore"`
	Logger  LoggerConfig  `yaml:"logger"`
}

// LoadConfig 从文件加载配置，环境变量优先于文件
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate 检查启动所必需的配置项
func (c *Config) Validate() error {
	// 模型凭证缺失是致命的启动错误，不允许带病运行
	if c.Qwen.APIKey == "" {
		return fmt.Errorf("缺少模型API凭证: 请在配置文件设置 qwen.api_key 或通过环境变量 QWEN_API_KEY 提供")
	}
	if c.Qwen.Model == "" {
		return fmt.Errorf("缺少模型标识: qwen.model 不能为空")
	}
	return nil
}

// ModelTimeout 返回单次LLM调用的超时时间
func (c *Config) ModelTimeout() time.Duration {
	if c.Qwen.TimeoutSeconds <= 0 {
		return 90 * time.Second
	}
	return time.Duration(c.Qwen.TimeoutSeconds) * time.Second
}

// applyEnvOverrides 从环境变量覆盖配置（如果存在）
func applyEnvOverrides(config *Config) {
	if envKey := os.Getenv("QWEN_API_KEY"); envKey != "" {
		config.Qwen.APIKey = envKey
	}
	if envURL := os.Getenv("QWEN_API_URL"); envURL != "" {
		config.Qwen.APIURL = envURL
	}
	if envModel := os.Getenv("QWEN_MODEL"); envModel != "" {
		config.Qwen.Model = envModel
	}
}

// defaultConfig 返回带默认值的配置，文件中的字段会在其上覆盖
func defaultConfig() *Config {
	config := &Config{}

	config.Qwen.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	config.Qwen.Model = "qwen-plus"
	config.Qwen.TimeoutSeconds = 90

	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.MySQL.Username = "root"
	config.MySQL.Database = "resume_screener"
	config.MySQL.MaxIdleConns = 10
	config.MySQL.MaxOpenConns = 100
	config.MySQL.ConnMaxLifetimeMinutes = 60
	config.MySQL.ConnMaxIdleTimeMinutes = 30
	config.MySQL.ConnectTimeoutSeconds = 10
	config.MySQL.ReadTimeoutSeconds = 30
	config.MySQL.WriteTimeoutSeconds = 30
	config.MySQL.LogLevel = 2

	config.Redis.Address = "localhost:6379"
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.DedupRecordExpireDays = 30

	config.Server.Address = ":8080"

	config.Rescore.Workers = 4
	config.Rescore.QPM = 1200

	config.Logger.Level = "info"
	config.Logger.Format = "json"
	config.Logger.TimeFormat = time.RFC3339
	config.Logger.ReportCaller = false

	return config
}

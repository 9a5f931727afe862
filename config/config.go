package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	CORS     CORSConfig      `mapstructure:"cors"`
	Ledger   LedgerConfig    `mapstructure:"ledger"`
	Models   []ModelConfig   `mapstructure:"models"`
	Packages []PackageConfig `mapstructure:"packages"`
	Payment  PaymentConfig   `mapstructure:"payment"`
	Admin    AdminConfig     `mapstructure:"admin"`
	Queue    QueueConfig     `mapstructure:"queue"`
	Usage    UsageConfig     `mapstructure:"usage"`
	Email    EmailConfig     `mapstructure:"email"`
	Log      LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// LedgerConfig 积分账本参数
type LedgerConfig struct {
	MonthlyPeriodDays     int                   `mapstructure:"monthly_period_days"`
	WeeklyPeriodDays      int                   `mapstructure:"weekly_period_days"`
	SubscriptionDays      int                   `mapstructure:"subscription_days"`
	FreeOperationCost     int                   `mapstructure:"free_operation_cost"`
	DefaultModelCost      int                   `mapstructure:"default_model_cost"`
	StoreTimeoutSeconds   int                   `mapstructure:"store_timeout_seconds"`
	SpecialAccounts       []string              `mapstructure:"special_accounts"`
	Plans                 map[string]PlanConfig `mapstructure:"plans"`
	PendingOrderTTLHours  int                   `mapstructure:"pending_order_ttl_hours"`
	PublishBalanceChanges bool                  `mapstructure:"publish_balance_changes"`
}

// PlanConfig 套餐额度
type PlanConfig struct {
	MonthlyCredits   int `mapstructure:"monthly_credits"`
	WeeklyCredits    int `mapstructure:"weekly_credits"`
	DailyGenerations int `mapstructure:"daily_generations"`
}

type ModelConfig struct {
	Name          string `mapstructure:"name"`
	DisplayName   string `mapstructure:"display_name"`
	RequiredLevel string `mapstructure:"required_level"`
	Cost          int    `mapstructure:"cost"`
	Description   string `mapstructure:"description"`
}

// PackageConfig 积分包种子数据，启动时写入 credit_packages
type PackageConfig struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	Credits   int    `mapstructure:"credits"`
	Price     string `mapstructure:"price"`
	Active    bool   `mapstructure:"active"`
	SortOrder int    `mapstructure:"sort_order"`
}

type PaymentConfig struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
	ProPlanAmount string `mapstructure:"pro_plan_amount"`
}

type AdminConfig struct {
	KeyHash string `mapstructure:"key_hash"` // bcrypt
}

type QueueConfig struct {
	UsageLogQueue string `mapstructure:"usage_log_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
}

type UsageConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// StoreTimeout 存储调用超时
func (c *LedgerConfig) StoreTimeout() time.Duration {
	if c.StoreTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// Plan 获取套餐配置，未知套餐按 free 处理
func (c *LedgerConfig) Plan(name string) PlanConfig {
	if p, ok := c.Plans[name]; ok {
		return p
	}
	return c.Plans["free"]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expire_hours", 168)

	v.SetDefault("ledger.monthly_period_days", 30)
	v.SetDefault("ledger.weekly_period_days", 7)
	v.SetDefault("ledger.subscription_days", 30)
	v.SetDefault("ledger.free_operation_cost", 15)
	v.SetDefault("ledger.default_model_cost", 20)
	v.SetDefault("ledger.store_timeout_seconds", 5)
	v.SetDefault("ledger.pending_order_ttl_hours", 24)
	v.SetDefault("ledger.publish_balance_changes", true)
	v.SetDefault("ledger.plans.free.monthly_credits", 5000)
	v.SetDefault("ledger.plans.free.weekly_credits", 10)
	v.SetDefault("ledger.plans.free.daily_generations", 3)
	v.SetDefault("ledger.plans.pro.monthly_credits", 25000)
	v.SetDefault("ledger.plans.pro.weekly_credits", 100)
	v.SetDefault("ledger.plans.pro.daily_generations", 50)

	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.pro_plan_amount", "499")

	v.SetDefault("queue.usage_log_queue", "usage_log_queue")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("usage.retention_days", 90)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回仅包含默认值的配置（测试与命令行工具使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
// 使用Viper管理配置，支持YAML文件与环境变量覆盖；本地开发可用.env提供环境变量
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	MQ       MQConfig       `mapstructure:"mq"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Store    StoreConfig    `mapstructure:"store"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnableSwagger   bool          `mapstructure:"enable_swagger"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
// loc参数需要URL编码（Asia/Kolkata → Asia%2FKolkata）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	OrderTTL     time.Duration `mapstructure:"order_ttl"`
	StatsTTL     time.Duration `mapstructure:"stats_ttl"`
	CartTTL      time.Duration `mapstructure:"cart_ttl"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

// PaymentConfig 支付网关配置
type PaymentConfig struct {
	Provider string         `mapstructure:"provider"` // razorpay | stripe | none
	Currency string         `mapstructure:"currency"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
}

type StripeConfig struct {
	APIKey    string `mapstructure:"api_key"`
	AccountID string `mapstructure:"account_id"`
}

// BreakerConfig 网关熔断配置
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// MQConfig RabbitMQ配置（通知与领域事件）
type MQConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Exchange       string        `mapstructure:"exchange"`
	ExchangeType   string        `mapstructure:"exchange_type"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// TracingConfig OpenTelemetry配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"` // OTLP gRPC，如localhost:4317
}

// StoreConfig 店铺业务配置
type StoreConfig struct {
	Name             string        `mapstructure:"name"`
	FrontendURL      string        `mapstructure:"frontend_url"`
	PasswordResetTTL time.Duration `mapstructure:"password_reset_ttl"`
	AdminEmails      []string      `mapstructure:"admin_emails"` // 注册时自动授予管理员角色
}

// CORSConfig 跨域配置（前端与API分域部署时启用）
// AllowCredentials为true时AllowOrigins不能包含"*"
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"` // 秒
}

// Load 加载配置文件
// 支持：
// 1. 先加载.env（不存在时忽略），再读取config/config.yaml
// 2. 通过环境变量SUPPLESTORE_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如SUPPLESTORE_DATABASE_PASSWORD → database.password）
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载.env失败: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if env := os.Getenv("SUPPLESTORE_ENV"); env != "" {
		v.SetConfigName("config." + env)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// SUPPLESTORE_DATABASE_PASSWORD → database.password
	v.SetEnvPrefix("SUPPLESTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 默认值（配置文件缺省项）
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.enable_swagger", true)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.order_ttl", 10*time.Minute)
	v.SetDefault("redis.stats_ttl", time.Minute)
	v.SetDefault("redis.cart_ttl", 7*24*time.Hour)

	v.SetDefault("jwt.access_token_expire", 2*time.Hour)
	v.SetDefault("jwt.refresh_token_expire", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("payment.provider", "razorpay")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.breaker.max_requests", 1)
	v.SetDefault("payment.breaker.interval", time.Minute)
	v.SetDefault("payment.breaker.timeout", 30*time.Second)
	v.SetDefault("payment.breaker.consecutive_failures", 5)

	v.SetDefault("mq.exchange", "supplestore.events")
	v.SetDefault("mq.exchange_type", "topic")
	v.SetDefault("mq.publish_timeout", 3*time.Second)

	v.SetDefault("tracing.service_name", "supplestore-api")
	v.SetDefault("tracing.endpoint", "localhost:4317")

	v.SetDefault("store.name", "Supplestore")
	v.SetDefault("store.password_reset_ttl", 30*time.Minute)

	v.SetDefault("cors.allow_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allow_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.expose_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.max_age", 600)
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.Server.Mode == "release" && (cfg.JWT.Secret == "" || cfg.JWT.Secret == "your-secret-key-change-in-production") {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	switch cfg.Payment.Provider {
	case "razorpay":
		if cfg.Server.Mode == "release" && (cfg.Payment.Razorpay.KeyID == "" || cfg.Payment.Razorpay.KeySecret == "") {
			return fmt.Errorf("razorpay需要配置key_id与key_secret")
		}
	case "stripe":
		if cfg.Server.Mode == "release" && cfg.Payment.Stripe.APIKey == "" {
			return fmt.Errorf("stripe需要配置api_key")
		}
	case "none", "":
	default:
		return fmt.Errorf("不支持的支付网关: %s", cfg.Payment.Provider)
	}

	if cfg.CORS.AllowCredentials {
		for _, o := range cfg.CORS.AllowOrigins {
			if o == "*" {
				return fmt.Errorf("cors.allow_credentials为true时allow_origins不能为*")
			}
		}
	}

	if cfg.MQ.Enabled && cfg.MQ.URL == "" {
		return fmt.Errorf("启用消息队列时必须配置mq.url")
	}

	return nil
}

package auth_api_config

import (
	"time"

	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/outbox"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
	rds "github.com/NordCoder/Warden/internal/repository/redis"
	"github.com/NordCoder/Warden/internal/services/auth-api/httpapi"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type Auth struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	ActionTTL      time.Duration `mapstructure:"action_ttl"`
	ActionCacheTTL time.Duration `mapstructure:"action_cache_ttl"`
	UserCacheTTL   time.Duration `mapstructure:"user_cache_ttl"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App     App                  `mapstructure:"app"`
	Server  Server               `mapstructure:"server"`
	DB      pg.Config            `mapstructure:"db"`
	Redis   rds.Config           `mapstructure:"redis"`
	Kafka   Kafka                `mapstructure:"kafka"`
	Outbox  outbox.Config        `mapstructure:"outbox"`
	OTEL    OTEL                 `mapstructure:"otel"`
	Log     Log                  `mapstructure:"log"`
	Auth    Auth                 `mapstructure:"auth"`
	Session httpapi.CookieConfig `mapstructure:"session"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const (
	ErrNoJWTSecret   ErrConfig = "auth.jwt_secret is required"
	ErrNoDB          ErrConfig = "db.url is required"
	ErrNoRedis       ErrConfig = "redis.addr is required"
	ErrNoBrokers     ErrConfig = "kafka.brokers is required"
	ErrActionTTL     ErrConfig = "auth.action_ttl must be between 15m and 30m"
	ErrActionCache   ErrConfig = "auth.action_cache_ttl must not be shorter than auth.action_ttl"
	ErrTokenLifetime ErrConfig = "auth.access_ttl and auth.refresh_ttl must be positive"
)

package email_notifier_config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

var ErrNoLinks = errors.New("mail.verify_url and mail.reset_url are required")

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("app.name", "warden/email-notifier")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("kafka_in.brokers", []string{"kafka:9092"})
	v.SetDefault("kafka_in.topic", "warden.mail")
	v.SetDefault("kafka_in.group_id", "email-notifier")
	v.SetDefault("kafka_in.from_beginning", true)

	v.SetDefault("smtp.addr", "localhost:1025")
	v.SetDefault("smtp.from", "noreply@warden.dev")
	v.SetDefault("smtp.use_tls", false)
	v.SetDefault("smtp.timeout", "5s")
	v.SetDefault("smtp.subj_prefix", "[Warden]")

	v.SetDefault("mail.verify_url", "http://localhost:3000/verify")
	v.SetDefault("mail.reset_url", "http://localhost:3000/reset")
	v.SetDefault("mail.product", "Warden")
	v.SetDefault("mail.action_ttl", "15m")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "email-notifier")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("server.metrics_addr", ":8084")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Mail.VerifyURL == "" || cfg.Mail.ResetURL == "" {
		return nil, ErrNoLinks
	}
	return &cfg, nil
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/domain"
	"github.com/ignite/send-governor/internal/reputation"
)

// Config holds all configuration for the admission engine.
type Config struct {
	Server     ServerConfig            `yaml:"server"`
	Database   DatabaseConfig          `yaml:"database"`
	Redis      RedisConfig             `yaml:"redis"`
	Tiers      []domain.TierDefinition `yaml:"tiers"`
	Reputation reputation.Config       `yaml:"reputation"`
	Admission  AdmissionConfig         `yaml:"admission"`
	Sendlog    SendlogConfig           `yaml:"sendlog"`
	Alerts     AlertsConfig            `yaml:"alerts"`
	Outcomes   OutcomesConfig          `yaml:"outcomes"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the Redis connection settings. Without a URL the
// engine falls back to in-process counters, which are correct on a
// single node only.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AdmissionConfig holds admission controller policy.
type AdmissionConfig struct {
	WarnRemainingFraction float64       `yaml:"warn_remaining_fraction"`
	StorageTimeout        time.Duration `yaml:"storage_timeout"`
}

// SendlogConfig holds send log settings.
type SendlogConfig struct {
	RecalcEvery int `yaml:"recalc_every"`
}

// AlertsConfig selects and configures the alert notifier.
type AlertsConfig struct {
	SMTP alert.SMTPConfig `yaml:"smtp"`
	SES  SESAlertConfig   `yaml:"ses"`
}

// SESAlertConfig wraps the SES notifier settings with an enable switch.
type SESAlertConfig struct {
	Enabled bool `yaml:"enabled"`
	alert.SESConfig `yaml:",inline"`
}

// OutcomesConfig holds the SQS outcome consumer settings. Empty QueueURL
// disables the consumer; outcomes then arrive over the webhook only.
type OutcomesConfig struct {
	QueueURL  string `yaml:"queue_url"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Admission.WarnRemainingFraction == 0 {
		cfg.Admission.WarnRemainingFraction = 0.2
	}
	if cfg.Admission.StorageTimeout == 0 {
		cfg.Admission.StorageTimeout = 2 * time.Second
	}
	if cfg.Sendlog.RecalcEvery == 0 {
		cfg.Sendlog.RecalcEvery = 25
	}

	defaults := reputation.DefaultConfig()
	if cfg.Reputation.DeliveryWeight == 0 {
		cfg.Reputation.DeliveryWeight = defaults.DeliveryWeight
	}
	if cfg.Reputation.BounceWeight == 0 {
		cfg.Reputation.BounceWeight = defaults.BounceWeight
	}
	if cfg.Reputation.ComplaintWeight == 0 {
		cfg.Reputation.ComplaintWeight = defaults.ComplaintWeight
	}
	if cfg.Reputation.SuspensionFloor == 0 {
		cfg.Reputation.SuspensionFloor = defaults.SuspensionFloor
	}
	if cfg.Reputation.ComplaintCeiling == 0 {
		cfg.Reputation.ComplaintCeiling = defaults.ComplaintCeiling
	}
	if cfg.Reputation.Cooldown == 0 {
		cfg.Reputation.Cooldown = defaults.Cooldown
	}
	if cfg.Reputation.LookbackCount == 0 && cfg.Reputation.LookbackWindow == 0 {
		cfg.Reputation.LookbackCount = defaults.LookbackCount
	}
	if cfg.Reputation.MinSampleSize == 0 {
		cfg.Reputation.MinSampleSize = defaults.MinSampleSize
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		// A missing file is fine; run on defaults plus env.
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("OUTCOMES_QUEUE_URL"); v != "" {
		cfg.Outcomes.QueueURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		if cfg.Outcomes.Region == "" {
			cfg.Outcomes.Region = v
		}
		if cfg.Alerts.SES.Region == "" {
			cfg.Alerts.SES.Region = v
		}
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		if cfg.Outcomes.AccessKey == "" {
			cfg.Outcomes.AccessKey = v
		}
		if cfg.Alerts.SES.AccessKey == "" {
			cfg.Alerts.SES.AccessKey = v
		}
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		if cfg.Outcomes.SecretKey == "" {
			cfg.Outcomes.SecretKey = v
		}
		if cfg.Alerts.SES.SecretKey == "" {
			cfg.Alerts.SES.SecretKey = v
		}
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SchedulerModeTicker   = "ticker"
	SchedulerModeTemporal = "temporal"
	SchedulerModeOff      = "off"

	MobileProviderFCM = "fcm"
	MobileProviderSNS = "sns"
)

type SchedulerConfig struct {
	Mode            string        `mapstructure:"mode"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	RetentionWindow time.Duration `mapstructure:"retention_window"`
}

type WebPushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
	TTL             int    `mapstructure:"ttl"`
}

type FCMConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SNSConfig struct {
	Region string `mapstructure:"region"`
}

type MobileConfig struct {
	Provider string    `mapstructure:"provider"`
	FCM      FCMConfig `mapstructure:"fcm"`
	SNS      SNSConfig `mapstructure:"sns"`
}

type PushConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	WebPush     WebPushConfig `mapstructure:"web_push"`
	Mobile      MobileConfig  `mapstructure:"mobile"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	DatabaseURL    string          `mapstructure:"database_url"`
	ServerPort     string          `mapstructure:"server_port"`
	JWTSecret      string          `mapstructure:"jwt_secret"`
	LogLevel       string          `mapstructure:"log_level"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	Scheduler      SchedulerConfig `mapstructure:"scheduler"`
	Push           PushConfig      `mapstructure:"push"`
	Redis          RedisConfig     `mapstructure:"redis"`
	Temporal       TemporalConfig  `mapstructure:"temporal"`
}

// Load reads config.yaml from the working directory or ./config. Values can
// be overridden with AMI_-prefixed environment variables, optionally loaded
// from a .env file (AMI_PUSH_WEB_PUSH_VAPID_PRIVATE_KEY, ...).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("scheduler.mode", SchedulerModeTicker)
	v.SetDefault("scheduler.publish_interval", time.Minute)
	v.SetDefault("scheduler.sweep_interval", 24*time.Hour)
	// Roughly six months.
	v.SetDefault("scheduler.retention_window", 180*24*time.Hour)

	v.SetDefault("push.concurrency", 8)
	v.SetDefault("push.http_timeout", 30*time.Second)
	v.SetDefault("push.web_push.vapid_public_key", "")
	v.SetDefault("push.web_push.vapid_private_key", "")
	v.SetDefault("push.web_push.subscriber", "")
	v.SetDefault("push.web_push.ttl", 86400)
	v.SetDefault("push.mobile.provider", "")
	v.SetDefault("push.mobile.fcm.project_id", "")
	v.SetDefault("push.mobile.fcm.credentials_file", "")
	v.SetDefault("push.mobile.sns.region", "eu-west-3")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "ami:notification-events")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("database_url must be set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	switch c.Scheduler.Mode {
	case SchedulerModeTicker, SchedulerModeTemporal, SchedulerModeOff:
	default:
		return fmt.Errorf("unknown scheduler mode %q", c.Scheduler.Mode)
	}
	if c.Scheduler.RetentionWindow <= 0 {
		return fmt.Errorf("scheduler.retention_window must be positive")
	}
	switch c.Push.Mobile.Provider {
	case "", MobileProviderFCM, MobileProviderSNS:
	default:
		return fmt.Errorf("unknown mobile push provider %q", c.Push.Mobile.Provider)
	}
	if c.Push.Concurrency <= 0 {
		c.Push.Concurrency = 1
	}
	return nil
}

// WebPushEnabled reports whether VAPID keys are configured.
func (c PushConfig) WebPushEnabled() bool {
	return c.WebPush.VAPIDPublicKey != "" && c.WebPush.VAPIDPrivateKey != ""
}

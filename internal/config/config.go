package config

import (
	"errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"log"
	"strings"
	"time"
)

var ErrMissingTokenSecret = errors.New("no auth.token-secret (AUTH_TOKEN_SECRET) provided")

type Server struct {
	Port         string `mapstructure:"port"`
	TemplatesDir string `mapstructure:"templates-dir"`
}

type Auth struct {
	TokenSecret string `mapstructure:"token-secret"`
}

type Upstream struct {
	CatalogURL         string `mapstructure:"catalog-url"`
	PaymentURL         string `mapstructure:"payment-url"`
	PartnerCallbackURL string `mapstructure:"partner-callback-url"`
	TimeoutMs          int    `mapstructure:"timeout-ms"`
}

type Checkout struct {
	RedirectDelayMs int `mapstructure:"redirect-delay-ms"`
	TTLMinutes      int `mapstructure:"ttl-minutes"`
}

type Catalog struct {
	RefreshSpec string `mapstructure:"refresh-spec"`
}

type Notify struct {
	TimeoutMs int `mapstructure:"timeout-ms"`
}

type Database struct {
	URL string `mapstructure:"url"`
}

type Kafka struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type Metrics struct {
	PushURL      string `mapstructure:"push-url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	LokiURL string `mapstructure:"loki-url"`
	Level   string `mapstructure:"level"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Auth     Auth     `mapstructure:"auth"`
	Upstream Upstream `mapstructure:"upstream"`
	Checkout Checkout `mapstructure:"checkout"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Notify   Notify   `mapstructure:"notify"`
	Database Database `mapstructure:"database"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logs     Logs     `mapstructure:"logs"`
}

func (u Upstream) Timeout() time.Duration {
	return time.Duration(u.TimeoutMs) * time.Millisecond
}

func (c Checkout) RedirectDelay() time.Duration {
	return time.Duration(c.RedirectDelayMs) * time.Millisecond
}

func (c Checkout) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (n Notify) Timeout() time.Duration {
	return time.Duration(n.TimeoutMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.templates-dir", "")
	v.SetDefault("auth.token-secret", "")
	v.SetDefault("upstream.catalog-url", "https://widgetapi.hgg.kz")
	v.SetDefault("upstream.payment-url", "https://widgetapipayment.hgg.kz")
	v.SetDefault("upstream.partner-callback-url", "http://82.115.60.5:5145/payment/partner-callback")
	v.SetDefault("upstream.timeout-ms", 10_000)
	v.SetDefault("checkout.redirect-delay-ms", 2_000)
	v.SetDefault("checkout.ttl-minutes", 30)
	v.SetDefault("catalog.refresh-spec", "@every 5m")
	v.SetDefault("notify.timeout-ms", 5_000)
	v.SetDefault("database.url", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "payment-events")
	v.SetDefault("metrics.push-url", "")
	v.SetDefault("metrics.interval-ms", 10_000)
	v.SetDefault("metrics.common-labels", `service="payment-widget"`)
	v.SetDefault("logs.loki-url", "")
	v.SetDefault("logs.level", "info")
}

// Load reads config.yaml from path (if present) and overlays environment
// variables, e.g. AUTH_TOKEN_SECRET for auth.token-secret.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.TokenSecret == "" {
		return nil, ErrMissingTokenSecret
	}

	return &cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

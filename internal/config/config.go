package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/georgesalomon/umarket2/internal/market"
)

type Config struct {
	ServiceName string         `mapstructure:"service_name" validate:"required"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Log         LogConfig      `mapstructure:"log"`
	Store       StoreConfig    `mapstructure:"store"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Notifier    NotifierConfig `mapstructure:"notifier"`
}

type HTTPConfig struct {
	Addr           string `mapstructure:"addr" validate:"required"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type StoreConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=postgrest postgres"`
	Schema      string        `mapstructure:"schema" validate:"oneof=catalog relational"`
	URL         string        `mapstructure:"url" validate:"omitempty,url"`
	APIKey      string        `mapstructure:"api_key"`
	DatabaseURL string        `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxConns    int32         `mapstructure:"max_conns" validate:"gte=1,lte=100"`
	MinConns    int32         `mapstructure:"min_conns" validate:"gte=0,ltefield=MaxConns"`

	ProductsTable      string `mapstructure:"products_table"`
	ProductIDField     string `mapstructure:"product_id_field"`
	TransactionsTable  string `mapstructure:"transactions_table"`
	TransactionIDField string `mapstructure:"transaction_id_field"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Audience  string `mapstructure:"audience"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
}

type NotifierConfig struct {
	Group   string `mapstructure:"group" validate:"required"`
	Workers int    `mapstructure:"workers" validate:"gte=1,lte=64"`
}

var envKeys = map[string]string{
	"service_name":               "SERVICE_NAME",
	"http.addr":                  "HTTP_ADDR",
	"http.allowed_origins":       "ALLOWED_ORIGINS",
	"log.level":                  "LOG_LEVEL",
	"store.backend":              "STORE_BACKEND",
	"store.schema":               "STORE_SCHEMA",
	"store.url":                  "SUPABASE_URL",
	"store.api_key":              "SUPABASE_API_KEY",
	"store.database_url":         "DATABASE_URL",
	"store.timeout":              "STORE_TIMEOUT",
	"store.max_conns":            "DB_MAX_CONNS",
	"store.min_conns":            "DB_MIN_CONNS",
	"store.products_table":       "SUPABASE_PRODUCTS_TABLE",
	"store.product_id_field":     "SUPABASE_PRODUCT_ID_FIELD",
	"store.transactions_table":   "SUPABASE_TRANSACTIONS_TABLE",
	"store.transaction_id_field": "SUPABASE_TRANSACTION_ID_FIELD",
	"auth.jwt_secret":            "SUPABASE_JWT_SECRET",
	"auth.audience":              "JWT_AUDIENCE",
	"redis.addr":                 "REDIS_ADDR",
	"kafka.brokers":              "KAFKA_BROKERS",
	"notifier.group":             "NOTIFIER_GROUP",
	"notifier.workers":           "NOTIFIER_WORKERS",
}

var defaults = map[string]any{
	"service_name":     "umarket-api",
	"http.addr":        ":8081",
	"log.level":        "info",
	"store.backend":    "postgrest",
	"store.schema":     "catalog",
	"store.timeout":    10 * time.Second,
	"store.max_conns":  8,
	"store.min_conns":  1,
	"notifier.group":   "umarket-notifier",
	"notifier.workers": 8,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from the environment. Callers load .env first.
func Load() (Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for k, env := range envKeys {
		if err := v.BindEnv(k, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// apiKeys are the settings only the api server needs. The notifier and
// migrate commands run without them.
type apiKeys struct {
	Backend   string `env:"STORE_BACKEND"`
	URL       string `env:"SUPABASE_URL" validate:"required_if=Backend postgrest"`
	APIKey    string `env:"SUPABASE_API_KEY" validate:"required_if=Backend postgrest"`
	JWTSecret string `env:"SUPABASE_JWT_SECRET" validate:"required"`
}

var validateAPI = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("env") })
	return v
}()

// LoadAPI is Load plus the store credentials and JWT secret the api
// server cannot start without.
func LoadAPI() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.CheckAPI(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// CheckAPI reports the api keys missing from c, named by their
// environment variables.
func (c Config) CheckAPI() error {
	err := validateAPI.Struct(apiKeys{
		Backend:   c.Store.Backend,
		URL:       c.Store.URL,
		APIKey:    c.Store.APIKey,
		JWTSecret: c.Auth.JWTSecret,
	})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("invalid config: %s required", strings.Join(missing, ", "))
}

func (c HTTPConfig) Origins() []string { return splitCSV(c.AllowedOrigins) }

func (c KafkaConfig) BrokerList() []string { return splitCSV(c.Brokers) }

// MarketSchema resolves the configured layout with any table or id
// overrides applied.
func (c StoreConfig) MarketSchema() (market.Schema, error) {
	s, err := market.SchemaByName(c.Schema)
	if err != nil {
		return market.Schema{}, err
	}
	if c.ProductsTable != "" {
		s.ListingsTable = c.ProductsTable
	}
	if c.ProductIDField != "" {
		s.ListingIDField = c.ProductIDField
	}
	if c.TransactionsTable != "" {
		s.OrdersTable = c.TransactionsTable
	}
	if c.TransactionIDField != "" {
		s.OrderIDField = c.TransactionIDField
	}
	return s, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"librocart/internal/cart"
)

var ErrInvalid = errors.New("config: invalid setting")

var backends = map[string]bool{
	"memory":   true,
	"file":     true,
	"redis":    true,
	"postgres": true,
	"mysql":    true,
}

type Config struct {
	CatalogSource         string
	StorageBackend        string
	StoragePath           string
	RedisAddr             string
	DatabaseURL           string
	StorageFaultRate      float64
	Namespace             string
	Locale                string
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	HTTPAddr              string
	RateLimit             float64
	OTLPEndpoint          string
	LogLevel              string
}

// Load reads an optional .env file and then LIBROCART_* variables.
// Variables already present in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing .env is fine.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix("LIBROCART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	threshold, err := decimal.NewFromString(v.GetString("free_shipping_threshold"))
	if err != nil {
		return nil, fmt.Errorf("%w: free_shipping_threshold: %v", ErrInvalid, err)
	}
	fee, err := decimal.NewFromString(v.GetString("shipping_fee"))
	if err != nil {
		return nil, fmt.Errorf("%w: shipping_fee: %v", ErrInvalid, err)
	}

	cfg := &Config{
		CatalogSource:         v.GetString("catalog_source"),
		StorageBackend:        strings.ToLower(v.GetString("storage_backend")),
		StoragePath:           v.GetString("storage_path"),
		RedisAddr:             v.GetString("redis_addr"),
		DatabaseURL:           v.GetString("database_url"),
		StorageFaultRate:      v.GetFloat64("storage_fault_rate"),
		Namespace:             v.GetString("namespace"),
		Locale:                v.GetString("locale"),
		FreeShippingThreshold: threshold,
		ShippingFee:           fee,
		HTTPAddr:              v.GetString("http_addr"),
		RateLimit:             v.GetFloat64("rate_limit"),
		OTLPEndpoint:          v.GetString("otlp_endpoint"),
		LogLevel:              v.GetString("log_level"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog_source", "./data/libros.json")
	v.SetDefault("storage_backend", "file")
	v.SetDefault("storage_path", "./data/state.json")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("database_url", "")
	v.SetDefault("storage_fault_rate", 0)
	v.SetDefault("namespace", "librocart")
	v.SetDefault("locale", "es-AR")
	v.SetDefault("free_shipping_threshold", "50000")
	v.SetDefault("shipping_fee", "2500")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("rate_limit", 20)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("log_level", "info")
}

func (c *Config) Validate() error {
	if !backends[c.StorageBackend] {
		return fmt.Errorf("%w: storage backend %q", ErrInvalid, c.StorageBackend)
	}
	if (c.StorageBackend == "postgres" || c.StorageBackend == "mysql") && c.DatabaseURL == "" {
		return fmt.Errorf("%w: %s backend needs a database url", ErrInvalid, c.StorageBackend)
	}
	if c.StorageFaultRate < 0 || c.StorageFaultRate > 1 {
		return fmt.Errorf("%w: storage fault rate %v outside [0, 1]", ErrInvalid, c.StorageFaultRate)
	}
	if c.CatalogSource == "" {
		return fmt.Errorf("%w: empty catalog source", ErrInvalid)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: empty namespace", ErrInvalid)
	}
	if c.FreeShippingThreshold.IsNegative() || c.ShippingFee.IsNegative() {
		return fmt.Errorf("%w: negative shipping amounts", ErrInvalid)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalid)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("%w: locale %q: %v", ErrInvalid, c.Locale, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (c *Config) Pricing() cart.Pricing {
	return cart.Pricing{
		FreeShippingThreshold: c.FreeShippingThreshold,
		ShippingFee:           c.ShippingFee,
	}
}

// Language returns the collation locale. Validate has already checked it.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.MustParse("es-AR")
	}
	return tag
}

func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// RemoteCatalog reports whether the catalog source is an HTTP(S) URL.
func (c *Config) RemoteCatalog() bool {
	return strings.HasPrefix(c.CatalogSource, "http://") || strings.HasPrefix(c.CatalogSource, "https://")
}

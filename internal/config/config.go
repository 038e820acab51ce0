package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/database"
	"github.com/spf13/viper"
)

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds the draft store connection.
type RedisConfig struct {
	URL string
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	Provider    string // mock | hosted | stripe
	BaseURL     string
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	StripeKey   string
	RedirectURL string
	Currency    string
}

// VenueConfig describes the opening hours slots are generated from.
type VenueConfig struct {
	Timezone    string
	OpenHour    int
	CloseHour   int
	SlotMinutes int
}

// Location resolves the venue timezone.
func (v VenueConfig) Location() (*time.Location, error) {
	return time.LoadLocation(v.Timezone)
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port                   string
	AppEnv                 string
	CORSOrigins            []string
	DBConfig               database.PostgresConfig
	KafkaConfig            KafkaConfig
	RedisConfig            RedisConfig
	PaymentConfig          PaymentConfig
	VenueConfig            VenueConfig
	DraftTTL               time.Duration
	PendingRecheckInterval time.Duration
	AvailabilityCacheTTL   time.Duration
}

// Load reads configuration from an optional config.yaml and the environment.
// Environment variables win.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &ServiceConfig{
		Port:        normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:      v.GetString("APP_ENV"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RedisConfig: RedisConfig{URL: v.GetString("REDIS_URL")},
		PaymentConfig: PaymentConfig{
			Provider:    strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
			BaseURL:     v.GetString("PAYMENT_BASE_URL"),
			MerchantID:  v.GetString("PAYMENT_MERCHANT_ID"),
			SaltKey:     v.GetString("PAYMENT_SALT_KEY"),
			SaltIndex:   v.GetString("PAYMENT_SALT_INDEX"),
			StripeKey:   v.GetString("STRIPE_SECRET_KEY"),
			RedirectURL: v.GetString("PAYMENT_REDIRECT_URL"),
			Currency:    strings.ToUpper(v.GetString("CURRENCY")),
		},
		VenueConfig: VenueConfig{
			Timezone:    v.GetString("VENUE_TIMEZONE"),
			OpenHour:    v.GetInt("VENUE_OPEN_HOUR"),
			CloseHour:   v.GetInt("VENUE_CLOSE_HOUR"),
			SlotMinutes: v.GetInt("SLOT_MINUTES"),
		},
		DraftTTL:               v.GetDuration("DRAFT_TTL"),
		PendingRecheckInterval: v.GetDuration("PENDING_RECHECK_INTERVAL"),
		AvailabilityCacheTTL:   v.GetDuration("AVAILABILITY_CACHE_TTL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "arcadia_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "arcadia-")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("PAYMENT_PROVIDER", "mock")
	v.SetDefault("PAYMENT_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox")
	v.SetDefault("PAYMENT_SALT_INDEX", "1")
	v.SetDefault("PAYMENT_REDIRECT_URL", "http://localhost:3000/booking/payment-return")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("VENUE_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("VENUE_OPEN_HOUR", 10)
	v.SetDefault("VENUE_CLOSE_HOUR", 23)
	v.SetDefault("SLOT_MINUTES", 60)
	v.SetDefault("DRAFT_TTL", "30m")
	v.SetDefault("PENDING_RECHECK_INTERVAL", "2m")
	v.SetDefault("AVAILABILITY_CACHE_TTL", "30s")
}

func (c *ServiceConfig) validate() error {
	if _, err := c.VenueConfig.Location(); err != nil {
		return fmt.Errorf("invalid VENUE_TIMEZONE %q: %w", c.VenueConfig.Timezone, err)
	}
	if c.VenueConfig.OpenHour < 0 || c.VenueConfig.CloseHour > 24 || c.VenueConfig.OpenHour >= c.VenueConfig.CloseHour {
		return fmt.Errorf("invalid venue hours %d-%d", c.VenueConfig.OpenHour, c.VenueConfig.CloseHour)
	}
	if c.VenueConfig.SlotMinutes <= 0 || 60*24%c.VenueConfig.SlotMinutes != 0 {
		return fmt.Errorf("SLOT_MINUTES must divide a day evenly, got %d", c.VenueConfig.SlotMinutes)
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive")
	}
	switch c.PaymentConfig.Provider {
	case "mock":
	case "hosted":
		if c.PaymentConfig.MerchantID == "" || c.PaymentConfig.SaltKey == "" {
			return fmt.Errorf("hosted payment provider requires PAYMENT_MERCHANT_ID and PAYMENT_SALT_KEY")
		}
	case "stripe":
		if c.PaymentConfig.StripeKey == "" {
			return fmt.Errorf("stripe payment provider requires STRIPE_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentConfig.Provider)
	}
	return nil
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

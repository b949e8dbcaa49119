package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	TaxCloud TaxCloudConfig
	Tax      TaxConfig
	Features FeatureFlags
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	TaxTopic      string
	OrdersTopic   string
	ConsumerGroup string
}

// TaxCloudConfig holds credentials and connection settings for the
// external tax lookup API.
type TaxCloudConfig struct {
	APILoginID string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
}

// Valid reports whether credentials are present. A calculation pass
// must hard-abort without them.
func (t TaxCloudConfig) Valid() bool {
	return t.APILoginID != "" && t.APIKey != ""
}

// TaxConfig holds the calculation policy knobs.
type TaxConfig struct {
	// Basis selects the price basis for product lines: "unit" sends
	// the post-discount unit price at the original quantity,
	// "subtotal" sends the line subtotal at quantity 1.
	Basis string

	DefaultTIC  string
	FeeTIC      string
	ShippingTIC string

	// ShippingTICs maps shipping method IDs to TICs, overriding
	// ShippingTIC per method.
	ShippingTICs map[string]string

	// SupportedCountry gates lookups; destinations outside it are
	// excluded without error.
	SupportedCountry string

	// LocalDeliveryMethods lists shipping method IDs treated as
	// seller-operated local delivery.
	LocalDeliveryMethods []string

	// RatesVersion is the cache epoch token. Bumping it invalidates
	// every cached lookup at once.
	RatesVersion string

	// Origin is the default shipment origin used when the product
	// catalog supplies none of its own.
	Origin models.Address
}

type FeatureFlags struct {
	EnableLookupCache   bool
	EnableCapture       bool
	EnableFallbackRates bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8085),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_tax"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL", 900)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			TaxTopic:      getEnvString("KAFKA_TAX_TOPIC", "tax-events"),
			OrdersTopic:   getEnvString("KAFKA_ORDERS_TOPIC", "order-events"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "tax-service"),
		},
		TaxCloud: TaxCloudConfig{
			APILoginID: getEnvString("TAXCLOUD_API_LOGIN_ID", ""),
			APIKey:     getEnvString("TAXCLOUD_API_KEY", ""),
			BaseURL:    getEnvString("TAXCLOUD_URL", "https://api.taxcloud.example.com/v1"),
			Timeout:    time.Duration(getEnvInt("TAXCLOUD_TIMEOUT", 30)) * time.Second,
		},
		Tax: TaxConfig{
			Basis:                getEnvString("TAX_BASIS", "unit"),
			DefaultTIC:           getEnvString("TAX_DEFAULT_TIC", "00000"),
			FeeTIC:               getEnvString("TAX_FEE_TIC", "10010"),
			ShippingTIC:          getEnvString("TAX_SHIPPING_TIC", "11010"),
			ShippingTICs:         getEnvStringMap("TAX_SHIPPING_TICS", nil),
			SupportedCountry:     getEnvString("TAX_SUPPORTED_COUNTRY", "US"),
			LocalDeliveryMethods: getEnvStringSlice("TAX_LOCAL_DELIVERY_METHODS", nil),
			RatesVersion:         getEnvString("TAX_RATES_VERSION", "1"),
			Origin: models.Address{
				ID:         getEnvString("TAX_ORIGIN_ID", "default"),
				Line1:      getEnvString("TAX_ORIGIN_LINE1", ""),
				City:       getEnvString("TAX_ORIGIN_CITY", ""),
				State:      getEnvString("TAX_ORIGIN_STATE", ""),
				PostalCode: getEnvString("TAX_ORIGIN_POSTAL_CODE", ""),
				Country:    getEnvString("TAX_ORIGIN_COUNTRY", "US"),
			},
		},
		Features: FeatureFlags{
			EnableLookupCache:   getEnvBool("FEATURE_LOOKUP_CACHE", true),
			EnableCapture:       getEnvBool("FEATURE_CAPTURE", true),
			EnableFallbackRates: getEnvBool("FEATURE_FALLBACK_RATES", false),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// getEnvStringMap parses "key1=val1,key2=val2" pairs.
func getEnvStringMap(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && k != "" {
			m[k] = v
		}
	}
	return m
}

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ratehub/internal/domain"
	infraconfig "ratehub/internal/infrastructure/config"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	CORSOrigins []string
	// Storage
	DataDir     string
	RatesFile   string
	HistoryFile string
	// Rates
	BaseCurrency     string
	FiatCurrencies   []string
	CryptoCurrencies []string
	CryptoIDs        map[string]string
	RatesTTL         time.Duration
	// Sources
	Sources            string
	CoinGeckoURL       string
	ExchangeRateAPIURL string
	ExchangeRateAPIKey string
	RequestTimeout     time.Duration
	// Worker
	UpdateInterval time.Duration
	WorkerMode     string
	// Redis (snapshot cache, idempotency)
	CacheBackend       string
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	// Postgres history mirror
	HistoryMirror string
	DatabaseURL   string
	// Kafka update events
	KafkaBrokers []string
	KafkaTopic   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", infraconfig.DefaultHTTPPort)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("RATES_FILE", "rates.json")
	v.SetDefault("HISTORY_FILE", "exchange_rates.json")
	v.SetDefault("BASE_CURRENCY", "USD")
	v.SetDefault("FIAT_CURRENCIES", "EUR,GBP,RUB")
	v.SetDefault("CRYPTO_CURRENCIES", "BTC,ETH,SOL")
	v.SetDefault("CRYPTO_ID_MAP", "BTC:bitcoin,ETH:ethereum,SOL:solana")
	v.SetDefault("RATES_TTL", infraconfig.DefaultRatesTTL.String())
	v.SetDefault("SOURCES", "live")
	v.SetDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3/simple/price")
	v.SetDefault("EXCHANGERATE_API_URL", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("EXCHANGERATE_API_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", infraconfig.DefaultRequestTimeout.String())
	v.SetDefault("UPDATE_INTERVAL", infraconfig.DefaultUpdateInterval.String())
	v.SetDefault("WORKER_MODE", "loop")
	v.SetDefault("CACHE_BACKEND", "none")
	v.SetDefault("IDEMPOTENCY_BACKEND", "none")
	v.SetDefault("IDEMPOTENCY_TTL", infraconfig.DefaultIdempotencyTTL.String())
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("HISTORY_MIRROR", "none")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "rates.updated")
}

// Load reads .env, an optional CONFIG_FILE (json, yaml or toml) and the
// environment, in increasing precedence, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	var errs []error
	dur := func(key string) time.Duration {
		d, err := parseDuration(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	cryptoIDs, err := parseIDMap(v.GetString("CRYPTO_ID_MAP"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CRYPTO_ID_MAP: %w", err))
	}

	cfg := Config{
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Port:               v.GetString("PORT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		DataDir:            v.GetString("DATA_DIR"),
		RatesFile:          v.GetString("RATES_FILE"),
		HistoryFile:        v.GetString("HISTORY_FILE"),
		BaseCurrency:       domain.NormalizeCode(v.GetString("BASE_CURRENCY")),
		FiatCurrencies:     codes(v.GetString("FIAT_CURRENCIES")),
		CryptoCurrencies:   codes(v.GetString("CRYPTO_CURRENCIES")),
		CryptoIDs:          cryptoIDs,
		RatesTTL:           dur("RATES_TTL"),
		Sources:            strings.ToLower(v.GetString("SOURCES")),
		CoinGeckoURL:       v.GetString("COINGECKO_URL"),
		ExchangeRateAPIURL: v.GetString("EXCHANGERATE_API_URL"),
		ExchangeRateAPIKey: v.GetString("EXCHANGERATE_API_KEY"),
		RequestTimeout:     dur("REQUEST_TIMEOUT"),
		UpdateInterval:     dur("UPDATE_INTERVAL"),
		WorkerMode:         strings.ToLower(v.GetString("WORKER_MODE")),
		CacheBackend:       strings.ToLower(v.GetString("CACHE_BACKEND")),
		IdempotencyBackend: strings.ToLower(v.GetString("IDEMPOTENCY_BACKEND")),
		IdempotencyTTL:     dur("IDEMPOTENCY_TTL"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		HistoryMirror:      strings.ToLower(v.GetString("HISTORY_MIRROR")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:         v.GetString("KAFKA_TOPIC"),
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := domain.ValidateCode(c.BaseCurrency); err != nil {
		errs = append(errs, fmt.Errorf("BASE_CURRENCY: %w", err))
	}
	for _, code := range append(append([]string{}, c.FiatCurrencies...), c.CryptoCurrencies...) {
		if _, err := domain.ValidateCode(code); err != nil {
			errs = append(errs, err)
		}
	}
	if c.UpdateInterval <= 0 {
		errs = append(errs, errors.New("UPDATE_INTERVAL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RatesTTL < 0 {
		errs = append(errs, errors.New("RATES_TTL must not be negative"))
	}
	if !oneOf(c.Sources, "live", "static") {
		errs = append(errs, fmt.Errorf("SOURCES: unknown value %q", c.Sources))
	}
	if !oneOf(c.WorkerMode, "loop", "once") {
		errs = append(errs, fmt.Errorf("WORKER_MODE: unknown value %q", c.WorkerMode))
	}
	if !oneOf(c.CacheBackend, "none", "redis") || !oneOf(c.IdempotencyBackend, "none", "redis") {
		errs = append(errs, errors.New("CACHE_BACKEND and IDEMPOTENCY_BACKEND must be none or redis"))
	}
	if !oneOf(c.HistoryMirror, "none", "pg") {
		errs = append(errs, fmt.Errorf("HISTORY_MIRROR: unknown value %q", c.HistoryMirror))
	}
	if c.HistoryMirror == "pg" && c.DatabaseURL == "" {
		errs = append(errs, errors.New("HISTORY_MIRROR=pg requires DATABASE_URL"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// parseDuration accepts Go durations and bare numbers of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func codes(s string) []string {
	out := splitList(s)
	for i := range out {
		out[i] = domain.NormalizeCode(out[i])
	}
	return out
}

func parseIDMap(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range splitList(s) {
		code, id, ok := strings.Cut(part, ":")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("malformed entry %q", part)
		}
		out[domain.NormalizeCode(code)] = strings.TrimSpace(id)
	}
	return out, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

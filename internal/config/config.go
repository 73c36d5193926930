package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	GRPCHost           string
	GRPCPort           int
	GRPCRequestTimeout time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	BackendBaseURL   string
	BackendTimeout   time.Duration
	BackendRateLimit float64
	BackendBurst     int

	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AvailabilityCacheTTL time.Duration

	SlotStep time.Duration

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

func (c Config) GRPCAddr() string {
	return net.JoinHostPort(c.GRPCHost, strconv.Itoa(c.GRPCPort))
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAWCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50061)
	v.SetDefault("grpc.addr", "")
	v.SetDefault("grpc.request_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("backend.base_url", "http://127.0.0.1:5000/api")
	v.SetDefault("backend.timeout", "5s")
	v.SetDefault("backend.rate_limit", 20)
	v.SetDefault("backend.burst", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("availability_cache.ttl", "5m")
	v.SetDefault("slots.step", "15m")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "127.0.0.1:4317")
	v.SetDefault("otel.sample_ratio", 1.0)

	_ = v.BindEnv("grpc.host", "PAWCARE_GRPC_HOST", "GRPC_HOST")
	_ = v.BindEnv("grpc.port", "PAWCARE_GRPC_PORT", "GRPC_PORT", "PORT")
	_ = v.BindEnv("grpc.addr", "PAWCARE_GRPC_ADDR", "GRPC_ADDR")
	_ = v.BindEnv("grpc.request_timeout", "PAWCARE_GRPC_REQUEST_TIMEOUT")
	_ = v.BindEnv("database.url", "PAWCARE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.max_open_conns", "PAWCARE_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "PAWCARE_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "PAWCARE_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "PAWCARE_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("shutdown.timeout", "PAWCARE_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "PAWCARE_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("backend.base_url", "PAWCARE_BACKEND_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("backend.timeout", "PAWCARE_BACKEND_TIMEOUT")
	_ = v.BindEnv("backend.rate_limit", "PAWCARE_BACKEND_RATE_LIMIT")
	_ = v.BindEnv("backend.burst", "PAWCARE_BACKEND_BURST")
	_ = v.BindEnv("redis.addr", "PAWCARE_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "PAWCARE_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "PAWCARE_REDIS_DB")
	_ = v.BindEnv("availability_cache.ttl", "PAWCARE_AVAILABILITY_CACHE_TTL")
	_ = v.BindEnv("slots.step", "PAWCARE_SLOTS_STEP")
	_ = v.BindEnv("otel.enabled", "PAWCARE_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("otel.endpoint", "PAWCARE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("otel.sample_ratio", "PAWCARE_OTEL_SAMPLE_RATIO", "OTEL_SAMPLING_RATIO")

	shutdownTimeout, err := parseDuration(v, "shutdown.timeout")
	if err != nil {
		return Config{}, err
	}
	grpcTimeout, err := parseDuration(v, "grpc.request_timeout")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := parseDuration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}
	connMaxIdleTime, err := parseDuration(v, "database.conn_max_idle_time")
	if err != nil {
		return Config{}, err
	}
	backendTimeout, err := parseDuration(v, "backend.timeout")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "availability_cache.ttl")
	if err != nil {
		return Config{}, err
	}
	slotStep, err := parseDuration(v, "slots.step")
	if err != nil {
		return Config{}, err
	}

	if addr := strings.TrimSpace(v.GetString("grpc.addr")); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err == nil {
			if host != "" {
				v.Set("grpc.host", host)
			}
			if port, err := strconv.Atoi(portStr); err == nil {
				v.Set("grpc.port", port)
			}
		}
	}

	sampleRatio := v.GetFloat64("otel.sample_ratio")
	if sampleRatio < 0 || sampleRatio > 1 {
		return Config{}, fmt.Errorf("otel.sample_ratio must be within [0,1], got %v", sampleRatio)
	}
	if strings.TrimSpace(v.GetString("backend.base_url")) == "" {
		return Config{}, fmt.Errorf("backend.base_url is required")
	}

	return Config{
		GRPCHost:             strings.TrimSpace(v.GetString("grpc.host")),
		GRPCPort:             v.GetInt("grpc.port"),
		GRPCRequestTimeout:   grpcTimeout,
		ShutdownTimeout:      shutdownTimeout,
		LogLevel:             v.GetString("log.level"),
		DatabaseURL:          strings.TrimSpace(v.GetString("database.url")),
		DBMaxOpenConns:       v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:       v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime:    connMaxLifetime,
		DBConnMaxIdleTime:    connMaxIdleTime,
		BackendBaseURL:       strings.TrimSpace(v.GetString("backend.base_url")),
		BackendTimeout:       backendTimeout,
		BackendRateLimit:     v.GetFloat64("backend.rate_limit"),
		BackendBurst:         v.GetInt("backend.burst"),
		RedisAddr:            strings.TrimSpace(v.GetString("redis.addr")),
		RedisPassword:        v.GetString("redis.password"),
		RedisDB:              v.GetInt("redis.db"),
		AvailabilityCacheTTL: cacheTTL,
		SlotStep:             slotStep,
		OTelEnabled:          v.GetBool("otel.enabled"),
		OTelEndpoint:         strings.TrimSpace(v.GetString("otel.endpoint")),
		OTelSampleRatio:      sampleRatio,
	}, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

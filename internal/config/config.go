package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	KeyStoreMemory   = "memory"
	KeyStoreRedis    = "redis"
	KeyStorePostgres = "postgres"
	KeyStoreGRPC     = "grpc"
)

type Config struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	GRPCAddr  string `mapstructure:"grpc_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// AdminAPIKey guards key creation, import and signing over HTTP and
	// every call to the gRPC key store. Those operations are refused when
	// it is empty.
	AdminAPIKey     string `mapstructure:"admin_api_key"`
	GRPCTLSCertFile string `mapstructure:"grpc_tls_cert_file"`
	GRPCTLSKeyFile  string `mapstructure:"grpc_tls_key_file"`

	KeyStoreBackend         string `mapstructure:"keystore_backend"`
	KeyStoreGRPCTarget      string `mapstructure:"keystore_grpc_target"`
	KeyStoreGRPCCAFile      string `mapstructure:"keystore_grpc_ca_file"`
	KeyStoreCacheTTLSeconds int    `mapstructure:"keystore_cache_ttl_seconds"`

	PostgresDSN         string `mapstructure:"postgres_dsn"`
	PostgresAutoMigrate bool   `mapstructure:"postgres_auto_migrate"`

	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`

	DefaultAlgorithm   string   `mapstructure:"default_algorithm"`
	UnpinnedAlgorithms []string `mapstructure:"unpinned_algorithms"`
	SigningPolicyPath  string   `mapstructure:"signing_policy_path"`

	RateLimitRequests      int `mapstructure:"rate_limit_requests"`
	RateLimitWindowSeconds int `mapstructure:"rate_limit_window_seconds"`
	RateLimitMaxKeys       int `mapstructure:"rate_limit_max_keys"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("admin_api_key", "")
	v.SetDefault("grpc_tls_cert_file", "")
	v.SetDefault("grpc_tls_key_file", "")
	v.SetDefault("keystore_grpc_ca_file", "")
	v.SetDefault("keystore_backend", KeyStoreMemory)
	v.SetDefault("keystore_grpc_target", "")
	v.SetDefault("keystore_cache_ttl_seconds", 0)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("postgres_auto_migrate", true)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "jsonsig:keys:")
	v.SetDefault("default_algorithm", "PS256")
	v.SetDefault("unpinned_algorithms", []string{"PS256"})
	v.SetDefault("signing_policy_path", "")
	v.SetDefault("rate_limit_requests", 0)
	v.SetDefault("rate_limit_window_seconds", 60)
	v.SetDefault("rate_limit_max_keys", 10000)
}

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// FromEnv builds the configuration from environment variables and defaults.
func FromEnv() (Config, error) {
	return Load("")
}

// Load reads an optional config file (any format viper understands) and
// overlays environment variables on top of it.
func Load(path string) (Config, error) {
	v := newViperInstance()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.UnpinnedAlgorithms = trimAll(cfg.UnpinnedAlgorithms)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected key store backend has what it needs.
func (c Config) Validate() error {
	switch c.KeyStoreBackend {
	case KeyStoreMemory:
	case KeyStoreRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis key store")
		}
	case KeyStorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres key store")
		}
	case KeyStoreGRPC:
		if c.KeyStoreGRPCTarget == "" {
			return errors.New("KEYSTORE_GRPC_TARGET is required for the grpc key store")
		}
		if c.AdminAPIKey == "" {
			return errors.New("ADMIN_API_KEY is required for the grpc key store")
		}
	default:
		return fmt.Errorf("unknown KEYSTORE_BACKEND %q", c.KeyStoreBackend)
	}
	if (c.GRPCTLSCertFile == "") != (c.GRPCTLSKeyFile == "") {
		return errors.New("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together")
	}
	if c.RateLimitRequests < 0 || c.RateLimitWindowSeconds < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	return nil
}

func (c Config) KeyStoreCacheTTL() time.Duration {
	return time.Duration(c.KeyStoreCacheTTLSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

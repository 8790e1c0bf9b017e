package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Auth      AuthConfig            `mapstructure:"auth"`
	Backends  []BackendConfig       `mapstructure:"backends"`
	RateLimit map[string]RatePolicy `mapstructure:"rate_limit"`
	Health    HealthConfig          `mapstructure:"health"`
	Proxy     ProxyConfig           `mapstructure:"proxy"`
	CORS      CORSConfig            `mapstructure:"cors"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type AuthConfig struct {
	SecretKey  string `mapstructure:"secret_key"`
	CookieName string `mapstructure:"cookie_name"`
}

// BackendConfig binds one path prefix to one upstream service. The set is
// fixed for the process lifetime; the routing table never hot-reloads.
type BackendConfig struct {
	Name        string `mapstructure:"name"`
	Address     string `mapstructure:"address"`
	Prefix      string `mapstructure:"prefix"`
	RequireAuth bool   `mapstructure:"require_auth"`
	HealthPath  string `mapstructure:"health_path"`
}

// RatePolicy is keyed by route prefix in the config file.
type RatePolicy struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type HealthConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
}

type ProxyConfig struct {
	RequestTimeout  time.Duration        `mapstructure:"request_timeout"`
	MaxBodyBytes    int                  `mapstructure:"max_body_bytes"`
	MaxConnsPerHost int                  `mapstructure:"max_conns_per_host"`
	CircuitBreaker  CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxFailures  uint32        `mapstructure:"max_failures"`
	OpenDuration time.Duration `mapstructure:"open_duration"`
}

type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	MaxAge           string   `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var globalConfig Config

func Load(configPath string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No file is fine, environment variables can carry everything.
	}

	if err := viper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaultValues(&globalConfig)

	if err := Validate(&globalConfig); err != nil {
		return err
	}

	return nil
}

func setDefaultValues(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "access_token"
	}
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = 30 * time.Second
	}
	if cfg.Health.Timeout == 0 {
		cfg.Health.Timeout = 2 * time.Second
	}
	if cfg.Health.FailureThreshold == 0 {
		cfg.Health.FailureThreshold = 3
	}
	if cfg.Proxy.RequestTimeout == 0 {
		cfg.Proxy.RequestTimeout = 5 * time.Second
	}
	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = 8 * 1024 * 1024
	}
	if cfg.Proxy.MaxConnsPerHost == 0 {
		cfg.Proxy.MaxConnsPerHost = 512
	}
	if cfg.Proxy.CircuitBreaker.MaxFailures == 0 {
		cfg.Proxy.CircuitBreaker.MaxFailures = 5
	}
	if cfg.Proxy.CircuitBreaker.OpenDuration == 0 {
		cfg.Proxy.CircuitBreaker.OpenDuration = 30 * time.Second
	}
	for i := range cfg.Backends {
		if cfg.Backends[i].HealthPath == "" {
			cfg.Backends[i].HealthPath = "/health/live"
		}
	}
	if len(cfg.CORS.AllowMethods) == 0 {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
}

// Validate rejects configurations that would make dispatch ambiguous or
// authentication impossible. Called once at startup; the table is static
// afterwards.
func Validate(cfg *Config) error {
	if len(cfg.Backends) == 0 {
		return errors.New("config: at least one backend must be configured")
	}

	seen := make(map[string]string, len(cfg.Backends))
	needsAuth := false
	for _, b := range cfg.Backends {
		if b.Name == "" {
			return errors.New("config: backend requires a name")
		}
		if b.Address == "" {
			return fmt.Errorf("config: backend %q requires an address", b.Name)
		}
		if !strings.HasPrefix(b.Prefix, "/") {
			return fmt.Errorf("config: backend %q prefix %q must start with '/'", b.Name, b.Prefix)
		}
		if other, ok := seen[b.Prefix]; ok {
			return fmt.Errorf("config: prefix %q claimed by both %q and %q", b.Prefix, other, b.Name)
		}
		seen[b.Prefix] = b.Name
		if b.RequireAuth {
			needsAuth = true
		}
	}

	if needsAuth && cfg.Auth.SecretKey == "" {
		return errors.New("config: auth.secret_key is required when a backend requires auth")
	}

	for prefix, policy := range cfg.RateLimit {
		if policy.Limit <= 0 {
			return fmt.Errorf("config: rate_limit %q requires a positive limit", prefix)
		}
		if policy.Window <= 0 {
			return fmt.Errorf("config: rate_limit %q requires a positive window", prefix)
		}
	}

	return nil
}

func GetConfig() *Config {
	return &globalConfig
}

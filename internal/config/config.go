package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the optional YAML file read when no explicit path is given.
const ConfigPath = "config.yaml"

const (
	defaultPort           = "5000"
	defaultLogLevel       = "info"
	defaultSessionTTL     = time.Hour
	defaultLoginRateLimit = 10
	defaultCORSOrigin     = "http://localhost:5173"
)

// FileConfig represents configuration loaded from YAML and the environment.
type FileConfig struct {
	Port               string        `yaml:"port"`
	LogLevel           string        `yaml:"logLevel"`
	DatabaseURL        string        `yaml:"databaseURL"`
	DatabaseName       string        `yaml:"databaseName"`
	JWTSecret          string        `yaml:"jwtSecret"`
	JWTIssuer          string        `yaml:"jwtIssuer"`
	JWTLeeway          time.Duration `yaml:"jwtLeeway"`
	SessionTTL         time.Duration `yaml:"sessionTTL"`
	RedisAddr          string        `yaml:"redisAddr"`
	RedisPassword      string        `yaml:"redisPassword"`
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`
	LoginRateLimit     int           `yaml:"loginRateLimitPerMinute"`
	TrustedProxyCIDRs  []string      `yaml:"trustedProxyCIDRs"`
}

// LoadDotEnv exports variables from .env files that exist. Variables already
// present in the process environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the optional YAML file at path (CONFIG_PATH or config.yaml when
// empty), applies environment overrides, then validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DB_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DatabaseName = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: JWT_LEEWAY: %w", err)
		}
		cfg.JWTLeeway = d
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.LoginRateLimit = n
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.LoginRateLimit == 0 {
		cfg.LoginRateLimit = defaultLoginRateLimit
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{defaultCORSOrigin}
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: DB_URL is required")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET_KEY is required")
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("config: invalid port %q", cfg.Port)
	}
	if cfg.SessionTTL < 0 {
		return errors.New("config: sessionTTL must be positive")
	}
	if cfg.JWTLeeway < 0 {
		return errors.New("config: jwtLeeway must not be negative")
	}
	if cfg.LoginRateLimit < 0 {
		return errors.New("config: loginRateLimitPerMinute must not be negative")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

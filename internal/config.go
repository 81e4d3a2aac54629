package internal

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	App           AppConfig           `mapstructure:"app"`
	Mail          MailConfig          `mapstructure:"mail"`
	Storage       StorageConfig       `mapstructure:"storage"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	BaseURL        string `mapstructure:"base_url"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites those headers.
	TrustProxy        bool          `mapstructure:"trust_proxy"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenTTLDays int           `mapstructure:"refresh_token_ttl_days"`
	ResetTokenDuration  time.Duration `mapstructure:"reset_token_duration"`
	Argon2              Argon2Config  `mapstructure:"argon2"`
}

// Argon2Config holds the memory-hard hashing cost. Zero values fall back to
// the library-recommended defaults.
type Argon2Config struct {
	MemoryKiB   uint32 `mapstructure:"memory_kib"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
	// URL is the public frontend address used to build password-reset links.
	URL string `mapstructure:"url"`
}

type MailConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=smtp log"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Secure   bool   `mapstructure:"secure"`
}

// StorageConfig selects where uploaded documents are kept ("local" or "s3").
type StorageConfig struct {
	Driver      string   `mapstructure:"driver"`
	UploadDir   string   `mapstructure:"upload_dir"`
	MaxUploadMB int      `mapstructure:"max_upload_mb"`
	S3          S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	DisableTLS     bool   `mapstructure:"disable_tls"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// MaxUploadBytes is the per-file limit in bytes.
func (c *StorageConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	Prefix         string        `mapstructure:"prefix"`
	Capacity       int           `mapstructure:"capacity"`
	RefillTokens   int           `mapstructure:"refill_tokens"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
	TTL            time.Duration `mapstructure:"ttl"`
}

type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Enabled reports whether both admin credentials were supplied.
func (b BootstrapConfig) Enabled() bool {
	return b.AdminEmail != "" && b.AdminPassword != ""
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

const (
	DefaultAccessTokenDuration = 15 * time.Minute
	DefaultRefreshTokenTTLDays = 15
	DefaultResetTokenDuration  = time.Hour
	DefaultMaxUploadMB         = 25
)

// ApplyDefaults fills unset values with the defaults the auth flow expects.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Security.AccessTokenDuration <= 0 {
		c.Security.AccessTokenDuration = DefaultAccessTokenDuration
	}
	if c.Security.RefreshTokenTTLDays <= 0 {
		c.Security.RefreshTokenTTLDays = DefaultRefreshTokenTTLDays
	}
	if c.Security.ResetTokenDuration <= 0 {
		c.Security.ResetTokenDuration = DefaultResetTokenDuration
	}
	if c.App.URL == "" {
		c.App.URL = "http://localhost:3000"
	}
	if c.Server.AllowedOrigins == "" {
		c.Server.AllowedOrigins = c.App.URL
	}
	if c.Mail.Driver == "" {
		c.Mail.Driver = "log"
	}
	if c.Mail.From == "" {
		c.Mail.From = "no-reply@example.com"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "local"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "./uploads"
	}
	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.RateLimit.Prefix == "" {
		c.RateLimit.Prefix = "rl"
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 10
	}
	if c.RateLimit.RefillTokens <= 0 {
		c.RateLimit.RefillTokens = 1
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = 30 * time.Second
	}
	if c.RateLimit.TTL <= 0 {
		c.RateLimit.TTL = 10 * time.Minute
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// RefreshTokenTTL is the session lifetime, with the day threshold multiplied out.
func (c *SecurityConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used by container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 4000),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", ""),
			TrustProxy:        getEnvAsBool("TRUST_PROXY", false),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AccessTokenDuration: getEnvAsDuration("ACCESS_TOKEN_TTL", DefaultAccessTokenDuration),
			RefreshTokenTTLDays: getEnvAsInt("REFRESH_TOKEN_TTL_DAYS", DefaultRefreshTokenTTLDays),
			ResetTokenDuration:  getEnvAsDuration("RESET_TOKEN_TTL", DefaultResetTokenDuration),
		},
		App: AppConfig{
			Env: getEnv("APP_ENV", "production"),
			URL: getEnv("APP_URL", "http://localhost:3000"),
		},
		Mail: MailConfig{
			Driver:   getEnv("MAIL_DRIVER", "smtp"),
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "no-reply@example.com"),
			Secure:   getEnvAsBool("SMTP_SECURE", false),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "local"),
			UploadDir:   getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", DefaultMaxUploadMB),
			S3: S3Config{
				Endpoint:       getEnv("S3_ENDPOINT", ""),
				Region:         getEnv("S3_REGION", "us-east-1"),
				Bucket:         getEnv("S3_BUCKET", ""),
				AccessKey:      getEnv("S3_ACCESS_KEY", ""),
				SecretKey:      getEnv("S3_SECRET_KEY", ""),
				DisableTLS:     getEnvAsBool("S3_DISABLE_TLS", false),
				ForcePathStyle: getEnvAsBool("S3_FORCE_PATH_STYLE", true),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:      getEnv("REDIS_ADDR", ""),
			RedisPassword:  getEnv("REDIS_PASSWORD", ""),
			RedisDB:        getEnvAsInt("REDIS_DB", 0),
			Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
			Capacity:       getEnvAsInt("RATE_LIMIT_CAPACITY", 10),
			RefillTokens:   getEnvAsInt("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: getEnvAsDuration("RATE_LIMIT_REFILL_INTERVAL", 30*time.Second),
			TTL:            getEnvAsDuration("RATE_LIMIT_TTL", 10*time.Minute),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := ParseTTL(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ParseTTL parses a duration string, additionally accepting a whole-day
// suffix ("7d") and a bare number of seconds ("900").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.App.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("app config: %v", err))
	}

	if err := c.Mail.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("mail config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if err := c.Bootstrap.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("bootstrap config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 characters")
	}
	if c.AccessTokenDuration <= 0 {
		return errors.New("access_token_duration must be positive")
	}
	if c.RefreshTokenTTLDays <= 0 {
		return errors.New("refresh_token_ttl_days must be positive")
	}
	return nil
}

func (c *AppConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid app url %q", c.URL)
	}
	return nil
}

func (c *MailConfig) Validate() error {
	switch c.Driver {
	case "log":
		return nil
	case "smtp":
		if c.Host == "" || c.Port <= 0 {
			return errors.New("smtp host and port are required")
		}
		return nil
	}
	return fmt.Errorf("unknown mail driver %q", c.Driver)
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "local":
		if c.UploadDir == "" {
			return errors.New("upload_dir is required for local storage")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			return errors.New("s3 access_key and secret_key must be set together")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}

// MinAdminPasswordLength matches the shortest password the login endpoint accepts.
const MinAdminPasswordLength = 8

func (c *BootstrapConfig) Validate() error {
	if c.AdminEmail == "" && c.AdminPassword == "" {
		return nil
	}
	if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
		return fmt.Errorf("invalid admin email %q", c.AdminEmail)
	}
	if utf8.RuneCountInString(c.AdminPassword) < MinAdminPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", MinAdminPasswordLength)
	}
	return nil
}

func (c *RateLimitConfig) Validate() error {
	if c.Enabled && c.RedisAddr == "" {
		return errors.New("redis_addr is required when rate limiting is enabled")
	}
	return nil
}

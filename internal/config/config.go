package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // salon zone must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; nested structs group the settings of one
// integration (SMTP, Google, PayPal, object storage, Redis).
type Config struct {
	Env            string // application environment (e.g. "dev", "production")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	CookieSecure   bool   // set the Secure flag on session cookies

	LogLevel  string
	LogFormat string
	LogOutput string

	Timezone     string   // salon local time zone used for day boundaries
	DepositPence int64    // booking deposit taken at reservation time
	AutoConfirm  bool     // confirm bookings immediately when no payment provider is configured
	CORSOrigins  []string // allowed browser origins
	AMQPURL      string   // RabbitMQ broker URL; empty disables event publishing
	PublicURL    string   // where the browser is sent after OAuth login

	Admin     AdminConfig
	Email     EmailConfig
	Worker    WorkerConfig
	Google    GoogleConfig
	PayPal    PayPalConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
}

// AdminConfig seeds the single administrator account.
type AdminConfig struct {
	Username string
	Password string
	Email    string // Google logins with this address are promoted to admin
}

// EmailConfig holds outbound SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool // implicit TLS (port 465) instead of STARTTLS
}

// Enabled reports whether an SMTP relay is configured.
func (e EmailConfig) Enabled() bool { return e.Host != "" }

// WorkerConfig controls the confirmation email sweep.
type WorkerConfig struct {
	Enabled         bool
	Interval        time.Duration
	MaxAttempts     int // 0 retries forever
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration
}

// GoogleConfig holds OAuth client credentials for Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool { return g.ClientID != "" && g.ClientSecret != "" }

// PayPalConfig holds REST API credentials for capturing deposits.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// Enabled reports whether PayPal capture is configured.
func (p PayPalConfig) Enabled() bool { return p.ClientID != "" && p.ClientSecret != "" }

// StorageConfig holds S3-compatible object storage settings for uploads.
type StorageConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UsePathStyle   bool
	PublicBaseURL  string
	MaxUploadBytes int64
	MaxImageWidth  int
}

// Enabled reports whether uploads can be stored.
func (s StorageConfig) Enabled() bool { return s.Bucket != "" && s.AccessKey != "" }

// Load reads a .env file when present, then resolves every setting from the
// environment with built-in defaults. Missing required variables are
// reported together in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		Env:            v.GetString("app_env"),
		Port:           v.GetString("app_port"),
		DBUser:         v.GetString("db_user"),
		DBPass:         v.GetString("db_pass"),
		DBHost:         v.GetString("db_host"),
		DBPort:         v.GetString("db_port"),
		DBName:         v.GetString("db_name"),
		JWTSecret:      v.GetString("jwt_secret"),
		AccessTTLMin:   v.GetInt("access_token_ttl_min"),
		RefreshTTLDays: v.GetInt("refresh_token_ttl_days"),
		BcryptCost:     v.GetInt("bcrypt_cost"),
		CookieSecure:   v.GetBool("cookie_secure"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
		LogOutput:      v.GetString("log_output"),
		Timezone:       v.GetString("salon_timezone"),
		DepositPence:   v.GetInt64("deposit_pence"),
		AutoConfirm:    v.GetBool("booking_auto_confirm"),
		CORSOrigins:    splitList(v.GetString("cors_allowed_origins")),
		AMQPURL:        firstNonEmpty(v.GetString("rabbitmq_url"), v.GetString("amqp_url")),
		PublicURL:      v.GetString("public_url"),
		Admin: AdminConfig{
			Username: v.GetString("admin_username"),
			Password: v.GetString("admin_password"),
			Email:    strings.ToLower(strings.TrimSpace(v.GetString("admin_email"))),
		},
		Email: EmailConfig{
			Host:     v.GetString("email_host"),
			Port:     v.GetInt("email_port"),
			Username: v.GetString("email_user"),
			Password: v.GetString("email_password"),
			From:     v.GetString("email_from"),
			Secure:   v.GetBool("email_secure"),
		},
		Worker: WorkerConfig{
			Enabled:         v.GetBool("email_worker_enabled"),
			Interval:        v.GetDuration("email_worker_interval"),
			MaxAttempts:     v.GetInt("email_max_attempts"),
			RetryBackoff:    v.GetDuration("email_retry_backoff"),
			RetryBackoffMax: v.GetDuration("email_retry_backoff_max"),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("google_client_id"),
			ClientSecret: v.GetString("google_client_secret"),
			RedirectURL:  v.GetString("google_redirect_url"),
		},
		PayPal: PayPalConfig{
			ClientID:     v.GetString("paypal_client_id"),
			ClientSecret: v.GetString("paypal_client_secret"),
			BaseURL:      v.GetString("paypal_base_url"),
		},
		Storage: StorageConfig{
			Endpoint:       v.GetString("s3_endpoint"),
			Region:         v.GetString("s3_region"),
			Bucket:         v.GetString("s3_bucket"),
			AccessKey:      v.GetString("s3_access_key"),
			SecretKey:      v.GetString("s3_secret_key"),
			UsePathStyle:   v.GetBool("s3_use_path_style"),
			PublicBaseURL:  v.GetString("s3_public_base_url"),
			MaxUploadBytes: v.GetInt64("upload_max_bytes"),
			MaxImageWidth:  v.GetInt("upload_max_image_width"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        v.GetBool("rate_limit_enabled"),
			Capacity:       v.GetInt("rate_limit_capacity"),
			RefillTokens:   v.GetInt("rate_limit_refill_tokens"),
			RefillInterval: v.GetDuration("rate_limit_refill_interval"),
			TTL:            v.GetDuration("rate_limit_ttl"),
			KeyStrategy:    v.GetString("rate_limit_key_strategy"),
			Prefix:         v.GetString("rate_limit_prefix"),
			Debug:          v.GetBool("rate_limit_debug"),
		}.normalize(),
		Cache: CacheConfig{
			Enabled:      v.GetBool("cache_enabled"),
			Methods:      parseMethods(v.GetString("cache_methods")),
			TTL:          v.GetDuration("cache_ttl"),
			Prefix:       v.GetString("cache_prefix"),
			MaxBodyBytes: v.GetInt("cache_max_body_bytes"),
		},
		Redis: RedisConfig{
			Addr:     redisAddr(v.GetString("redis_addr"), v.GetString("redis_host"), v.GetString("redis_port")),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
			TLS:      v.GetBool("redis_tls"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("app_port", "5000")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "3306")
	v.SetDefault("access_token_ttl_min", 15)
	v.SetDefault("refresh_token_ttl_days", 7)
	v.SetDefault("bcrypt_cost", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_output", "stdout")
	v.SetDefault("salon_timezone", "Europe/London")
	v.SetDefault("deposit_pence", 1500)
	v.SetDefault("booking_auto_confirm", true)
	v.SetDefault("cors_allowed_origins", "http://localhost:5173")
	v.SetDefault("public_url", "/")
	v.SetDefault("email_port", 587)
	v.SetDefault("email_from", "Jelly Jessy Nails <noreply@jellyjess-nails.com>")
	v.SetDefault("email_worker_enabled", true)
	v.SetDefault("email_worker_interval", "60s")
	v.SetDefault("email_max_attempts", 0)
	v.SetDefault("email_retry_backoff", "1m")
	v.SetDefault("email_retry_backoff_max", "30m")
	v.SetDefault("paypal_base_url", "https://api-m.sandbox.paypal.com")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("upload_max_bytes", 10<<20)
	v.SetDefault("upload_max_image_width", 1600)

	// burst of 10 form submissions per client, one back every 6 seconds
	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit_capacity", 10)
	v.SetDefault("rate_limit_refill_tokens", 1)
	v.SetDefault("rate_limit_refill_interval", "6s")
	v.SetDefault("rate_limit_ttl", "10m")
	v.SetDefault("rate_limit_key_strategy", "ip_route")
	v.SetDefault("rate_limit_prefix", "rl")
	v.SetDefault("rate_limit_debug", false)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_methods", "GET")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("cache_prefix", "cache")
	v.SetDefault("cache_max_body_bytes", 1<<20)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_tls", false)
}

// validate collects every missing required setting so operators can fix the
// environment in one pass.
func (c Config) validate() error {
	var missing []string
	for key, val := range map[string]string{
		"DB_USER":    c.DBUser,
		"DB_NAME":    c.DBName,
		"JWT_SECRET": c.JWTSecret,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Worker.Interval <= 0 {
		return errors.New("EMAIL_WORKER_INTERVAL must be positive")
	}
	if c.DepositPence < 0 {
		return errors.New("DEPOSIT_PENCE must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid SALON_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the salon time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the app runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

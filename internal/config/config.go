// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr        string
	APIURL      string
	Env         string
	CORSOrigins []string

	DB          DBConfig
	Redis       RedisConfig
	Token       TokenConfig
	RateLimiter RateLimiterConfig
	Identity    IdentityConfig
	Plans       PlansConfig
	Contact     ContactConfig
	Mail        MailConfig
	Metrics     BasicAuthConfig
}

type DBConfig struct {
	Addr        string
	MaxConns    int32
	MaxIdleTime string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TokenConfig struct {
	Secret        string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type RateLimiterConfig struct {
	Window      time.Duration
	MaxRequests int
	Enabled     bool
}

type IdentityConfig struct {
	Provider     string // local | gotrue
	BcryptRounds int
	GoTrueURL    string
	ServiceKey   string
	AnonKey      string
}

type PlansConfig struct {
	FreeTrialDays int
	Monthly       float64
	SixMonths     float64
	Yearly        float64
}

type ContactConfig struct {
	Email    string
	Phone    string
	WhatsApp string
}

type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

type BasicAuthConfig struct {
	User string
	Pass string
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads every setting, applying defaults, and validates the result.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Addr:        getEnv("ADDR", ":8080"),
		APIURL:      getEnv("EXTERNAL_URL", "localhost:8080"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: splitList(getEnv("CORS_ORIGIN", "http://localhost:5173")),
		DB: DBConfig{
			Addr:        os.Getenv("DB_ADDR"),
			MaxConns:    int32(p.int("DB_MAX_CONNS", 30)),
			MaxIdleTime: getEnv("DB_MAX_IDLE_TIME", "15m"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.int("REDIS_DB", 0),
		},
		Token: TokenConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:     p.duration("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshTTL:    p.duration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "storedesk"),
		},
		RateLimiter: RateLimiterConfig{
			Window:      p.duration("RATE_LIMIT_WINDOW", 15*time.Minute),
			MaxRequests: p.int("RATE_LIMIT_MAX_REQUESTS", 100),
			Enabled:     p.bool("RATE_LIMITER_ENABLED", true),
		},
		Identity: IdentityConfig{
			Provider:     getEnv("IDENTITY_PROVIDER", "local"),
			BcryptRounds: p.int("BCRYPT_ROUNDS", 12),
			GoTrueURL:    os.Getenv("GOTRUE_URL"),
			ServiceKey:   os.Getenv("GOTRUE_SERVICE_KEY"),
			AnonKey:      os.Getenv("GOTRUE_ANON_KEY"),
		},
		Plans: PlansConfig{
			FreeTrialDays: p.int("FREE_TRIAL_DAYS", 30),
			Monthly:       p.float("PLAN_MONTHLY_PRICE", 5),
			SixMonths:     p.float("PLAN_6MONTHS_PRICE", 30),
			Yearly:        p.float("PLAN_YEARLY_PRICE", 40),
		},
		Contact: ContactConfig{
			Email:    getEnv("CONTACT_EMAIL", "support@storedesk.app"),
			Phone:    os.Getenv("CONTACT_PHONE"),
			WhatsApp: os.Getenv("WHATSAPP_NUMBER"),
		},
		Mail: MailConfig{
			Host:      os.Getenv("SMTP_HOST"),
			Port:      p.int("SMTP_PORT", 587),
			Username:  os.Getenv("SMTP_USERNAME"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			FromEmail: os.Getenv("FROM_EMAIL"),
		},
		Metrics: BasicAuthConfig{
			User: os.Getenv("METRICS_USER"),
			Pass: os.Getenv("METRICS_PASS"),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DB.Addr == "" {
		missing = append(missing, "DB_ADDR")
	}
	if c.Token.Secret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Token.RefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}
	if c.Identity.Provider == "gotrue" {
		if c.Identity.GoTrueURL == "" {
			missing = append(missing, "GOTRUE_URL")
		}
		if c.Identity.ServiceKey == "" {
			missing = append(missing, "GOTRUE_SERVICE_KEY")
		}
		if c.Identity.AnonKey == "" {
			missing = append(missing, "GOTRUE_ANON_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	if c.Token.Secret == c.Token.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	switch c.Identity.Provider {
	case "local", "gotrue":
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.Identity.Provider)
	}
	if c.RateLimiter.Enabled && (c.RateLimiter.MaxRequests <= 0 || c.RateLimiter.Window <= 0) {
		return errors.New("rate limiter needs a positive window and request count")
	}
	if c.Plans.FreeTrialDays <= 0 {
		return errors.New("FREE_TRIAL_DAYS must be positive")
	}
	return nil
}

// parser collects conversion errors so Load reports all bad values at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

// duration accepts Go durations ("15m") and the day suffix used for token
// lifetimes ("7d").
func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func ParseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("bad day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

package app

import (
	"net"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (FOODCART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (FOODCART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (FOODCART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Auth         AuthConfig
	Payment      PaymentConfig
	Discounts    DiscountsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig controls customer bearer tokens.
type AuthConfig struct {
	JWTSecret string `usage:"HS256 secret for customer bearer tokens" flag:"jwt-secret"`
}

// PaymentConfig controls the processor and the payment-intent client.
type PaymentConfig struct {
	StripeSecretKey string        `usage:"Stripe secret key" flag:"stripe-secret-key"`
	Currency        string        `default:"npr" usage:"ISO currency code for payment intents"`
	ReturnURL       string        `default:"foodcart://stripe-redirect" usage:"Redirect URL passed to the payment sheet" flag:"return-url"`
	ServerURL       string        `usage:"Base URL of the payment-intent server; defaults to this server" flag:"payment-server-url"`
	APIKey          string        `usage:"API key sent to the payment-intent server" flag:"payment-api-key"`
	Timeout         time.Duration `default:"10s" usage:"Payment-intent request timeout"`
}

// DiscountsConfig controls the discount code pre-filter.
type DiscountsConfig struct {
	RefreshInterval time.Duration `default:"5m" usage:"How often the discount code filter is rebuilt" flag:"discount-refresh"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FOODCART",
		Files:     []string{"config.yaml", "/etc/foodcart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FOODCART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Payment.ServerURL == "" {
		c.Payment.ServerURL = loopbackURL(c.Addr)
	}
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set FOODCART_DATABASE_URL or DATABASE_URL")
	case c.APIKeyPepper == "":
		return errors.New("API key pepper is required: set FOODCART_API_KEY_PEPPER")
	case c.Auth.JWTSecret == "":
		return errors.New("JWT secret is required: set FOODCART_AUTH_JWT_SECRET")
	case len(c.Payment.Currency) != 3:
		return errors.Errorf("currency %q must be a 3-letter ISO code", c.Payment.Currency)
	}
	return nil
}

// loopbackURL points the intent client at this server when no external
// payment-intent server is configured.
func loopbackURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

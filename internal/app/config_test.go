package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "http://127.0.0.1:9090", cfg.Payment.ServerURL)
}

func TestApplyPlatformDefaults_KeepsExplicit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg := Config{
		Addr:        "127.0.0.1:7000",
		DatabaseURL: "postgres://explicit/db",
		Payment:     PaymentConfig{ServerURL: "https://pay.example.com"},
	}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "https://pay.example.com", cfg.Payment.ServerURL)
}

func TestLoopbackURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"0.0.0.0:8080", "http://127.0.0.1:8080"},
		{":3000", "http://127.0.0.1:3000"},
		{"[::]:3000", "http://127.0.0.1:3000"},
		{"10.0.0.5:8080", "http://10.0.0.5:8080"},
		{"garbage", "http://127.0.0.1:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, loopbackURL(tt.addr))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL:  "postgres://x",
			APIKeyPepper: "pepper",
			Auth:         AuthConfig{JWTSecret: "secret"},
			Payment:      PaymentConfig{Currency: "npr"},
		}
	}
	cfg := valid()
	require.NoError(t, cfg.validate())

	for name, mutate := range map[string]func(*Config){
		"no database":  func(c *Config) { c.DatabaseURL = "" },
		"no pepper":    func(c *Config) { c.APIKeyPepper = "" },
		"no secret":    func(c *Config) { c.Auth.JWTSecret = "" },
		"bad currency": func(c *Config) { c.Payment.Currency = "rupees" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

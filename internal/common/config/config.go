package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// developmentProofSecret signs human-proof tokens when no real secret is
// configured. Local development only; production deployments must set
// HUMAN_PROOF_SECRET or GEMINI_API_KEY.
const developmentProofSecret = "development-human-proof-secret"

const minProofTTL = time.Minute

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port            int      `env:"PORT" envDefault:"3000"`
		AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:","`
		TrustProxy      bool     `env:"TRUST_PROXY" envDefault:"false"`
		SecurityHeaders bool     `env:"SECURITY_HEADERS" envDefault:"true"`
		StaticDir       string   `env:"STATIC_DIR" envDefault:"public"`
	}

	Captcha struct {
		SiteKey   string `env:"TURNSTILE_SITE_KEY" envDefault:""`
		SecretKey string `env:"TURNSTILE_SECRET_KEY" envDefault:""`
		VerifyURL string `env:"TURNSTILE_VERIFY_URL" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
		TimeoutMS int    `env:"TURNSTILE_TIMEOUT_MS" envDefault:"8000"`
	}

	HumanProof struct {
		Secret string `env:"HUMAN_PROOF_SECRET" envDefault:""`
		TTLMS  int64  `env:"HUMAN_PROOF_TTL_MS" envDefault:"1800000"`
	}

	Upstream struct {
		APIKey    string `env:"GEMINI_API_KEY" envDefault:""`
		BaseURL   string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
		Model     string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
		TimeoutMS int    `env:"GEMINI_TIMEOUT_MS" envDefault:"20000"`
	}

	RateLimit struct {
		WindowMS      int64  `env:"RATE_LIMIT_WINDOW_MS" envDefault:"60000"`
		GeneralMax    int    `env:"RATE_LIMIT_GENERAL_MAX" envDefault:"60"`
		APIMax        int    `env:"RATE_LIMIT_API_MAX" envDefault:"25"`
		RedisAddr     string `env:"RATE_LIMIT_REDIS_ADDR" envDefault:""`
		RedisPassword string `env:"RATE_LIMIT_REDIS_PASSWORD" envDefault:""`
		RedisDB       int    `env:"RATE_LIMIT_REDIS_DB" envDefault:"0"`
	}
}

// Load reads the process environment into an immutable Config. A local .env
// file is merged in first when present; in production the variables are
// expected to be set directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Captcha.SiteKey = strings.TrimSpace(cfg.Captcha.SiteKey)
	cfg.Captcha.SecretKey = strings.TrimSpace(cfg.Captcha.SecretKey)

	if cfg.HumanProof.TTLMS <= 0 {
		return nil, fmt.Errorf("HUMAN_PROOF_TTL_MS must be positive, got %d", cfg.HumanProof.TTLMS)
	}
	if cfg.RateLimit.WindowMS <= 0 || cfg.RateLimit.GeneralMax <= 0 || cfg.RateLimit.APIMax <= 0 {
		return nil, fmt.Errorf("rate limit window and counts must be positive")
	}

	return cfg, nil
}

// CaptchaEnabled reports whether the challenge mechanism is active. Both keys
// are required; a partially configured mechanism stays disabled.
func (c *Config) CaptchaEnabled() bool {
	return c.Captcha.SiteKey != "" && c.Captcha.SecretKey != ""
}

// CaptchaPartiallyConfigured reports whether exactly one of the two challenge
// keys is set, which is almost always a deployment mistake worth a warning.
func (c *Config) CaptchaPartiallyConfigured() bool {
	return (c.Captcha.SiteKey != "" || c.Captcha.SecretKey != "") && !c.CaptchaEnabled()
}

// ProofSecret returns the token-signing secret, falling back to the upstream
// API key and finally to a development-only constant.
func (c *Config) ProofSecret() string {
	if c.HumanProof.Secret != "" {
		return c.HumanProof.Secret
	}
	if c.Upstream.APIKey != "" {
		return c.Upstream.APIKey
	}
	return developmentProofSecret
}

// ProofTTL returns the token lifetime, floor-clamped so a misconfigured TTL
// cannot issue instantly-expiring tokens.
func (c *Config) ProofTTL() time.Duration {
	ttl := time.Duration(c.HumanProof.TTLMS) * time.Millisecond
	if ttl < minProofTTL {
		return minProofTTL
	}
	return ttl
}

func (c *Config) CaptchaTimeout() time.Duration {
	return time.Duration(c.Captcha.TimeoutMS) * time.Millisecond
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutMS) * time.Millisecond
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMS) * time.Millisecond
}

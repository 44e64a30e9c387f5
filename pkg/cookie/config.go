package cookie

import (
	"net/http"
	"strings"
)

// Config holds cookie manager configuration
type Config struct {
	Secrets     string        `env:"COOKIE_SECRETS" envDefault:""`
	Path        string        `env:"COOKIE_PATH" envDefault:"/"`
	Domain      string        `env:"COOKIE_DOMAIN" envDefault:""`
	MaxAge      int           `env:"COOKIE_MAX_AGE" envDefault:"0"`
	Secure      bool          `env:"COOKIE_SECURE" envDefault:"false"`
	HttpOnly    bool          `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite    http.SameSite `env:"COOKIE_SAME_SITE" envDefault:"2"` // 2 = SameSiteLaxMode
	Partitioned bool          `env:"COOKIE_PARTITIONED" envDefault:"false"`
}

// ParseSecrets splits a comma separated secret list, dropping blanks.
func ParseSecrets(s string) []string {
	var secrets []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			secrets = append(secrets, part)
		}
	}
	return secrets
}

// NewFromConfig creates a new Manager from the provided Config.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	configOpts := []Option{
		WithPath(cfg.Path),
		WithDomain(cfg.Domain),
		WithMaxAge(cfg.MaxAge),
		WithSecure(cfg.Secure),
		WithHTTPOnly(cfg.HttpOnly),
		WithPartitioned(cfg.Partitioned),
	}
	if cfg.SameSite != 0 {
		configOpts = append(configOpts, WithSameSite(cfg.SameSite))
	}
	if cfg.Path == "" {
		configOpts[0] = WithPath("/")
	}

	return New(ParseSecrets(cfg.Secrets), append(configOpts, opts...)...)
}

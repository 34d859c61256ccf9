package cookie

import "net/http"

// Config provides environment-based configuration for the cookie manager.
type Config struct {
	Name     string        `env:"SESSION_COOKIE_NAME" envDefault:"cart_session"`
	Secret   string        `env:"SESSION_COOKIE_SECRET,required"`
	Path     string        `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	Secure   bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	HttpOnly bool          `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite http.SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"2"` // SameSiteLaxMode
}

// NewFromConfig creates a cookie manager from environment configuration.
func NewFromConfig(cfg Config) (*Manager, error) {
	return New(cfg.Name, cfg.Secret,
		WithPath(cfg.Path),
		WithDomain(cfg.Domain),
		WithSecure(cfg.Secure),
		WithHTTPOnly(cfg.HttpOnly),
		WithSameSite(cfg.SameSite),
	)
}

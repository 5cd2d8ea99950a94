package config

import "time"

// DevAppSecret is the APP_SECRET default. Only the DEV environment may run with it.
const DevAppSecret = "dev-only-insecure-secret"

type SecurityConfig interface {
	GetAppSecret() string
	GetClientSessionTTL() time.Duration
	GetAnonymousClientTTL() time.Duration
}

type Security struct {
	AppSecret          string        `env:"APP_SECRET" envDefault:"dev-only-insecure-secret"`
	ClientSessionTTL   time.Duration `env:"CLIENT_SESSION_TTL" envDefault:"720h"`
	AnonymousClientTTL time.Duration `env:"ANONYMOUS_CLIENT_TTL" envDefault:"1h"`
}

var _ SecurityConfig = Security{}

// GetAppSecret returns the master secret the cookie-signing key is derived from.
func (s Security) GetAppSecret() string {
	return s.AppSecret
}

// GetClientSessionTTL is how long an idle browser client is kept before it is swept.
func (s Security) GetClientSessionTTL() time.Duration {
	return s.ClientSessionTTL
}

// GetAnonymousClientTTL is how long an idle browser client without a session is kept.
func (s Security) GetAnonymousClientTTL() time.Duration {
	return s.AnonymousClientTTL
}

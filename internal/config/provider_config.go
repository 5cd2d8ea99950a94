package config

import (
	"strings"
	"time"
)

type Provider struct {
	AuthProviderURL    string        `env:"AUTH_PROVIDER_URL" envDefault:"http://localhost:3000"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleIssuer       string        `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`
}

var _ ProviderConfig = Provider{}

// GetAuthProviderURL returns the base URL of the auth provider, without the /api/auth suffix.
func (p Provider) GetAuthProviderURL() string {
	return strings.TrimRight(p.AuthProviderURL, "/")
}

func (p Provider) GetRequestTimeout() time.Duration {
	return p.RequestTimeout
}

func (p Provider) GetGoogleClientID() string {
	return p.GoogleClientID
}

func (p Provider) GetGoogleClientSecret() string {
	return p.GoogleClientSecret
}

func (p Provider) GetGoogleIssuer() string {
	return p.GoogleIssuer
}

// GoogleConfigured reports whether the local OIDC exchange can be used.
// Without it, Google sign-in falls back to the provider-driven redirect.
func (p Provider) GoogleConfigured() bool {
	return p.GoogleClientID != "" && p.GoogleClientSecret != ""
}

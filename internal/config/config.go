package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jrsteele09/aural-portal/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	ProviderConfig
	FlowConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type ProviderConfig interface {
	GetAuthProviderURL() string
	GetRequestTimeout() time.Duration
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleIssuer() string
	GoogleConfigured() bool
}

type FlowConfig interface {
	GetGateWait() time.Duration
	GetResetRedirectDelay() time.Duration
	GetSessionMaxAge() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Provider
	Flow
}

// New reads the configuration from the environment.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrapf(err, "[config New] parse env")
	}
	if c.GetEnv() != "DEV" && c.GetAppSecret() == DevAppSecret {
		return nil, errors.Wrapf(errors.ErrInsecureAppSecret, "[config New] set APP_SECRET for %s", c.GetEnv())
	}
	return c, nil
}

package config

import "time"

type Flow struct {
	GateWait           time.Duration `env:"GATE_WAIT" envDefault:"3s"`
	ResetRedirectDelay time.Duration `env:"RESET_REDIRECT_DELAY" envDefault:"1500ms"`
	SessionMaxAge      time.Duration `env:"SESSION_MAX_AGE" envDefault:"30s"`
}

var _ FlowConfig = Flow{}

// GetGateWait bounds how long a gated request blocks on an unresolved session
// before the spinner page is served instead.
func (f Flow) GetGateWait() time.Duration {
	return f.GateWait
}

func (f Flow) GetResetRedirectDelay() time.Duration {
	return f.ResetRedirectDelay
}

// GetSessionMaxAge is how old a resolved session may be before a gated
// request triggers a refresh.
func (f Flow) GetSessionMaxAge() time.Duration {
	return f.SessionMaxAge
}

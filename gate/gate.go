// Package gate decides, per page request, whether the page may render, must redirect,
// or has to wait for the session to resolve.
package gate

import (
	"github.com/jrsteele09/aural-portal/session"
)

// Mode is the authorization mode a route is registered with. The zero value is Neutral.
type Mode int

const (
	Neutral Mode = iota
	Protected
	Unprotected
)

func (m Mode) String() string {
	switch m {
	case Protected:
		return "protected"
	case Unprotected:
		return "unprotected"
	default:
		return "neutral"
	}
}

// State is the outcome of evaluating a Mode against the session.
type State int

const (
	Resolving State = iota
	Allowed
	Redirecting
)

func (s State) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case Redirecting:
		return "redirecting"
	default:
		return "resolving"
	}
}

const (
	// LoginPath is where protected pages send visitors without a session.
	LoginPath = "/login"
	// HomePath is the authenticated landing page unprotected pages send signed-in visitors to.
	HomePath = "/dashboard"
)

// Decision is what the gate does with one request. Target is set only when Redirecting.
type Decision struct {
	State  State
	Target string
}

// Evaluate maps a route mode and the current session state to a decision.
func Evaluate(mode Mode, st session.State) Decision {
	if mode == Neutral {
		return Decision{State: Allowed}
	}
	if st.Pending {
		return Decision{State: Resolving}
	}

	switch {
	case mode == Protected && st.Session == nil:
		return Decision{State: Redirecting, Target: LoginPath}
	case mode == Unprotected && st.Session != nil:
		return Decision{State: Redirecting, Target: HomePath}
	}
	return Decision{State: Allowed}
}

package gateway

import "time"

// OTPPurpose is the kind of one-time code the provider should send.
type OTPPurpose string

const (
	OTPEmailVerification OTPPurpose = "email-verification"
	OTPSignIn            OTPPurpose = "sign-in"
	OTPForgetPassword    OTPPurpose = "forget-password"
)

// StatusUnverifiedEmail is the status the provider uses when a password sign-in
// is refused because the email address has not been verified yet.
const StatusUnverifiedEmail = 403

// User is the provider's view of an account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IDToken is a credential obtained from a completed OIDC exchange.
type IDToken struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken,omitempty"`
	Nonce       string `json:"nonce,omitempty"`
}

type OAuthInput struct {
	Provider    string   `json:"provider"`
	CallbackURL string   `json:"callbackURL,omitempty"`
	IDToken     *IDToken `json:"idToken,omitempty"`
}

// AuthPayload is returned by operations that establish a session.
// Token is empty when the provider withholds the session (e.g. unverified sign-up).
type AuthPayload struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// OAuthPayload either carries a redirect into the provider's own OAuth handshake
// (Redirect=true, URL set) or an established session (Token/User set).
type OAuthPayload struct {
	URL      string `json:"url,omitempty"`
	Redirect bool   `json:"redirect"`
	Token    string `json:"token,omitempty"`
	User     *User  `json:"user,omitempty"`
}

type SignOutPayload struct {
	Success bool `json:"success"`
}

type StatusPayload struct {
	Status  bool   `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProviderSession is the session record held by the provider.
type ProviderSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// SessionPayload is the body of /get-session for a signed-in client.
type SessionPayload struct {
	Session ProviderSession `json:"session"`
	User    User            `json:"user"`
}

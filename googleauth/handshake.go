// Package googleauth runs the Google authorization-code handshake locally (PKCE, state,
// nonce) and yields a verified ID token for the auth provider's ID-token sign-in.
package googleauth

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/aural-portal/gateway"
	"github.com/jrsteele09/aural-portal/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultIssuer = "https://accounts.google.com"

	defaultFlowTTL = 10 * time.Minute
)

type Config struct {
	ClientID     string
	ClientSecret string
	Issuer       string
	RedirectURL  string
	FlowTTL      time.Duration
}

// Handshake starts and completes Google sign-ins. Provider discovery happens on first use.
type Handshake struct {
	cfg   Config
	repo  StateRepo
	now   func() time.Time
	mu    sync.Mutex
	oauth *oauth2.Config
	idv   *oidc.IDTokenVerifier
}

func New(cfg Config, repo StateRepo) *Handshake {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = defaultFlowTTL
	}
	return &Handshake{cfg: cfg, repo: repo, now: time.Now}
}

func (h *Handshake) discover(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.oauth != nil {
		return h.oauth, h.idv, nil
	}

	provider, err := oidc.NewProvider(ctx, h.cfg.Issuer)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "[googleauth discover] failed to create OIDC provider")
	}

	h.oauth = &oauth2.Config{
		ClientID:     h.cfg.ClientID,
		ClientSecret: h.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  h.cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	h.idv = provider.Verifier(&oidc.Config{ClientID: h.cfg.ClientID})
	return h.oauth, h.idv, nil
}

// AuthCodeURL records a new handshake for browserID and returns where to send the browser.
func (h *Handshake) AuthCodeURL(ctx context.Context, browserID, returnURL string) (string, error) {
	oc, _, err := h.discover(ctx)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	flow := &FlowState{
		BrowserID:    browserID,
		CodeVerifier: oauth2.GenerateVerifier(),
		Nonce:        uuid.NewString(),
		ReturnURL:    returnURL,
		CreatedAt:    h.now(),
	}
	if err := h.repo.Upsert(state, flow); err != nil {
		return "", errors.Wrapf(err, "[googleauth AuthCodeURL] store state")
	}

	return oc.AuthCodeURL(state,
		oauth2.S256ChallengeOption(flow.CodeVerifier),
		oidc.Nonce(flow.Nonce),
	), nil
}

// Exchange completes the handshake identified by state. The flow must have been started
// by the same browser and must not be older than the flow TTL.
func (h *Handshake) Exchange(ctx context.Context, browserID, state, code string) (gateway.IDToken, string, error) {
	flow, err := h.repo.Take(state)
	if err != nil {
		return gateway.IDToken{}, "", errors.Wrapf(err, "[googleauth Exchange] %w", errors.ErrInvalidState)
	}
	if flow.BrowserID != browserID {
		return gateway.IDToken{}, "", errors.Wrapf(errors.ErrInvalidState, "[googleauth Exchange] browser mismatch")
	}
	if h.now().Sub(flow.CreatedAt) > h.cfg.FlowTTL {
		return gateway.IDToken{}, "", errors.Wrapf(errors.ErrInvalidState, "[googleauth Exchange] expired")
	}

	oc, idv, err := h.discover(ctx)
	if err != nil {
		return gateway.IDToken{}, "", err
	}

	tok, err := oc.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return gateway.IDToken{}, "", errors.Wrapf(err, "[googleauth Exchange] token exchange failed")
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return gateway.IDToken{}, "", errors.Wrapf(errors.ErrMissingIDToken, "[googleauth Exchange]")
	}

	idToken, err := idv.Verify(ctx, rawIDToken)
	if err != nil {
		return gateway.IDToken{}, "", errors.Wrapf(err, "[googleauth Exchange] ID token verification failed")
	}
	if idToken.Nonce != flow.Nonce {
		return gateway.IDToken{}, "", errors.Wrapf(errors.ErrInvalidNonce, "[googleauth Exchange]")
	}

	log.Debug().Str("subject", idToken.Subject).Msg("google handshake completed")
	return gateway.IDToken{Token: rawIDToken, AccessToken: tok.AccessToken, Nonce: flow.Nonce}, flow.ReturnURL, nil
}

// Sweep drops handshakes that were never completed.
func (h *Handshake) Sweep() int {
	return h.repo.DeleteOlderThan(h.now().Add(-h.cfg.FlowTTL))
}

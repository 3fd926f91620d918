package model

import (
	"errors"
	"time"
)

// ErrRefreshRejected signals that the authorization server explicitly rejected
// the refresh token (invalid or revoked grant). The bot cannot recover from
// this without a new interactive authorization.
var ErrRefreshRejected = errors.New("refresh token invalid or revoked")

// Credential holds the OAuth2 token pair plus the client identity used to
// refresh it. Replaced wholesale on every successful refresh.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// TokenPair is the result of a successful refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// CadenceState tracks posting rhythm. LastPostTime is nil until it has been
// seeded from the platform's post history (or a fallback).
type CadenceState struct {
	LastPostTime  *time.Time `json:"last_post_time,omitempty"`
	LastCheckTime time.Time  `json:"last_check_time"`
}

// CycleOutcome is the transient record of one tick, kept only for the health
// surface.
type CycleOutcome struct {
	TokenValid     bool   `json:"token_valid"`
	BecameEligible bool   `json:"became_eligible"`
	PublishedID    string `json:"published_id,omitempty"`
	Liked          bool   `json:"liked"`
	Error          string `json:"error,omitempty"`
}

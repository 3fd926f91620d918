package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"robopost/domain/model"
	"robopost/domain/repository"
	"robopost/infrastructure/configuration"
	"robopost/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

type IPlatformAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

// platformAuthHandler bootstraps the very first token pair. After the
// operator approves once in a browser, the refresh loop keeps the
// credential alive and this handler is never needed again.
type platformAuthHandler struct {
	store   repository.ICredentialStore
	stateMu sync.Mutex
	states  map[string]pendingAuth // state -> verifier + expiry
}

type pendingAuth struct {
	verifier string
	expires  time.Time
}

func NewPlatformAuthHandler(store repository.ICredentialStore) IPlatformAuthHandler {
	return &platformAuthHandler{store: store, states: map[string]pendingAuth{}}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func oauthConfig() *oauth2.Config {
	conf := configuration.C.Platform
	return &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  conf.RedirectURI,
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "like.write", "offline.access"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://twitter.com/i/oauth2/authorize",
			TokenURL: conf.BaseURL + "/oauth2/token",
		},
	}
}

// GetAuthURL builds the authorization URL (operator must approve in browser)
func (h *platformAuthHandler) GetAuthURL(c *gin.Context) {
	conf := configuration.C.Platform
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform oauth not configured"})
		return
	}
	state := randomState()
	verifier := oauth2.GenerateVerifier()
	// store state with 10 minute expiry
	h.stateMu.Lock()
	h.states[state] = pendingAuth{verifier: verifier, expires: time.Now().Add(10 * time.Minute)}
	h.stateMu.Unlock()

	u := oauthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	c.JSON(http.StatusOK, gin.H{"auth_url": u, "state": state})
}

// Callback exchanges the code for a token pair and persists it.
func (h *platformAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	h.stateMu.Lock()
	pending, ok := h.states[state]
	if ok && time.Now().After(pending.expires) {
		ok = false
	}
	if ok {
		delete(h.states, state)
	}
	h.stateMu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	tok, err := oauthConfig().Exchange(c.Request.Context(), code, oauth2.VerifierOption(pending.verifier))
	if err != nil {
		lg.WithField("error", err).Error("Token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	conf := configuration.C.Platform
	cred := &model.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		ObtainedAt:   time.Now().UTC(),
	}
	if err := h.store.Save(cred); err != nil {
		lg.WithField("error", err).Error("Persisting bootstrapped credential failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential_store_failed"})
		return
	}
	lg.Info("Bootstrapped credential stored")
	c.JSON(http.StatusOK, gin.H{"status": "authorized", "has_refresh_token": tok.RefreshToken != ""})
}

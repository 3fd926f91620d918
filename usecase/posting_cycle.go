package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"robopost/domain/dto"
	"robopost/domain/model"
	"robopost/domain/repository"
	"robopost/infrastructure/logger"
)

// Assumed access token validity, used only for the health surface's freshness
// estimate.
const assumedTokenLifetime = 2 * time.Hour

// IPostingCycle is the orchestrator driven by the outer loop.
type IPostingCycle interface {
	Tick(ctx context.Context)
	Halted() bool
	Snapshot() dto.BotSnapshot
	Credential() (accessToken, accountID string)
}

// PostingCycle owns the credential, the account identity and the cadence
// state. Exactly one Tick runs at a time; the mutex only protects snapshot
// reads from the HTTP surface against the single writer.
type PostingCycle struct {
	store     repository.ICredentialStore
	validator repository.ICredentialValidator
	refresher repository.ICredentialRefresher
	generator repository.IContentGenerator
	gateway   repository.IPublishGateway

	postInterval time.Duration
	now          func() time.Time

	mu          sync.RWMutex
	state       State
	status      string
	cred        *model.Credential
	accountID   string
	cadence     model.CadenceState
	lastRefresh *time.Time
	lastError   string
	lastOutcome model.CycleOutcome
}

func NewPostingCycle(
	store repository.ICredentialStore,
	validator repository.ICredentialValidator,
	refresher repository.ICredentialRefresher,
	generator repository.IContentGenerator,
	gateway repository.IPublishGateway,
	postInterval time.Duration,
) *PostingCycle {
	c := &PostingCycle{
		store:        store,
		validator:    validator,
		refresher:    refresher,
		generator:    generator,
		gateway:      gateway,
		postInterval: postInterval,
		now:          time.Now,
		state:        StateUninitialized,
		status:       "Initializing",
	}
	c.initialize()
	return c
}

func (c *PostingCycle) initialize() {
	lg := logger.GetLogger()
	cred, err := c.store.Load()
	if err != nil {
		lg.WithField("error", err).Error("Loading credential failed")
		cred = &model.Credential{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = cred
	if cred.AccessToken == "" {
		lg.Error("Missing initial access token. Run the bootstrap authorization flow.")
		c.status = "Error: Missing Access Token"
		return
	}
	t := c.now().UTC()
	c.lastRefresh = &t
	c.status = "Initialized"
}

// Tick performs one check cycle. Any residual panic is recorded instead of
// crashing the loop.
func (c *PostingCycle) Tick(ctx context.Context) {
	lg := logger.GetLogger()
	defer func() {
		if r := recover(); r != nil {
			lg.WithField("panic", r).Error("Unhandled failure in check cycle")
			c.mu.Lock()
			c.status = "Error: Unhandled Failure in Cycle"
			c.lastError = fmt.Sprint(r)
			c.mu.Unlock()
		}
	}()

	c.mu.Lock()
	if c.state == StateHalted {
		c.mu.Unlock()
		lg.Warn("Bot is halted, skipping cycle")
		return
	}
	c.state, _ = Transition(c.state, EventTick)
	c.status = "Running Check Cycle"
	c.lastError = ""
	c.cadence.LastCheckTime = c.now().UTC()
	outcome := model.CycleOutcome{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.lastOutcome = outcome
		c.mu.Unlock()
	}()

	// 1. A credential with no access token cannot be recovered here.
	if c.cred == nil || c.cred.AccessToken == "" {
		c.halt("Error: Missing Access Token (Runtime)")
		return
	}

	// 2. Validate, refreshing only on a definitive rejection.
	valid, accountID := c.validator.Validate(ctx, c.cred.AccessToken)
	if accountID != "" && accountID != c.accountID {
		lg.WithField("account_id", accountID).Info("Bot account id confirmed")
		c.mu.Lock()
		c.accountID = accountID
		c.mu.Unlock()
	}

	if !valid {
		if !c.refresh(ctx) {
			return
		}
		valid = true
	}
	c.mu.Lock()
	c.state, _ = Transition(c.state, EventTokenValid)
	c.mu.Unlock()
	outcome.TokenValid = true

	// 3. Cadence check.
	if !c.readyToPost(ctx) {
		c.mu.Lock()
		c.state, _ = Transition(c.state, EventNotEligible)
		c.status = "Idle"
		c.mu.Unlock()
		return
	}
	outcome.BecameEligible = true
	c.mu.Lock()
	c.state, _ = Transition(c.state, EventEligible)
	c.mu.Unlock()

	// 4. Generate, publish, acknowledge.
	c.generatePostAndLike(ctx, &outcome)

	c.mu.Lock()
	c.state, _ = Transition(c.state, EventPublishFinished)
	if c.lastError == "" {
		c.status = "Idle"
	}
	c.mu.Unlock()
}

// refresh exchanges the refresh token for a new pair and re-validates it.
// Returns true when the cycle may continue with a valid token.
func (c *PostingCycle) refresh(ctx context.Context) bool {
	lg := logger.GetLogger()
	if c.cred.RefreshToken == "" {
		lg.Error("Access token invalid and no refresh token available")
		c.mu.Lock()
		c.state, _ = Transition(c.state, EventTokenMissing)
		c.mu.Unlock()
		c.halt("Error: Invalid Access & Refresh Token")
		return false
	}

	c.mu.Lock()
	c.state, _ = Transition(c.state, EventTokenInvalid)
	c.status = "Refreshing Token"
	c.mu.Unlock()

	pair, err := c.refresher.Refresh(ctx, c.cred.RefreshToken, c.cred.ClientID, c.cred.ClientSecret)
	if err != nil {
		if errors.Is(err, model.ErrRefreshRejected) {
			// Clear the dead refresh token so the next start fails fast into
			// the bootstrap instructions.
			c.mu.Lock()
			c.cred.RefreshToken = ""
			c.state, _ = Transition(c.state, EventRefreshTerminal)
			c.mu.Unlock()
			if saveErr := c.store.Save(c.cred); saveErr != nil {
				lg.WithField("error", saveErr).Error("Persisting cleared refresh token failed")
			}
			c.halt("Error: Refresh Token Rejected")
			return false
		}
		lg.WithField("error", err).Error("Token refresh failed, will retry next cycle")
		c.mu.Lock()
		c.state, _ = Transition(c.state, EventRefreshTransient)
		c.status = "Error: Token Refresh Failed (Will Retry)"
		c.lastError = err.Error()
		c.mu.Unlock()
		return false
	}

	now := c.now().UTC()
	c.mu.Lock()
	c.cred.AccessToken = pair.AccessToken
	c.cred.RefreshToken = pair.RefreshToken
	c.cred.ObtainedAt = now
	c.lastRefresh = &now
	c.state, _ = Transition(c.state, EventRefreshSucceeded)
	c.mu.Unlock()
	lg.Info("Token refresh successful")

	// A freshly refreshed token that still fails is unrecoverable here.
	valid, accountID := c.validator.Validate(ctx, pair.AccessToken)
	if accountID != "" {
		c.mu.Lock()
		c.accountID = accountID
		c.mu.Unlock()
	}
	if !valid {
		lg.Error("Newly refreshed token failed validation")
		c.mu.Lock()
		c.state, _ = Transition(c.state, EventRevalidateFailed)
		c.mu.Unlock()
		c.halt("Error: Refreshed Token Invalid")
		return false
	}
	return true
}

// readyToPost seeds the cadence state on first use and checks the interval.
func (c *PostingCycle) readyToPost(ctx context.Context) bool {
	lg := logger.GetLogger()
	now := c.now().UTC()

	if c.cadence.LastPostTime == nil && c.accountID != "" {
		lg.Info("Last post time unknown, fetching from platform history")
		last, err := c.gateway.FetchLastPostTime(ctx, c.accountID, c.cred.AccessToken)
		switch {
		case err != nil:
			// Bias toward not posting immediately after a restart.
			fallback := now.Add(-(c.postInterval - 12*time.Hour))
			lg.WithFields(map[string]interface{}{"error": err, "fallback": fallback}).
				Warn("Post history lookup failed, using conservative fallback")
			c.setLastPostTime(fallback)
		case last != nil:
			lg.WithField("last_post_time", *last).Info("Seeded last post time from platform")
			c.setLastPostTime(last.UTC())
		default:
			// No original posts exist at all: eligible right away.
			lg.Info("Account has no original posts, eligible to post now")
			c.setLastPostTime(now.Add(-c.postInterval))
		}
	}

	c.mu.RLock()
	last := c.cadence.LastPostTime
	c.mu.RUnlock()
	if last == nil {
		lg.Warn("Cannot determine last post time yet, assuming not ready")
		return false
	}
	elapsed := now.Sub(*last)
	if elapsed >= c.postInterval {
		lg.WithField("elapsed", elapsed).Info("Sufficient time passed, ready to post")
		return true
	}
	lg.WithField("elapsed", elapsed).Debug("Waiting for posting interval")
	return false
}

func (c *PostingCycle) generatePostAndLike(ctx context.Context, outcome *model.CycleOutcome) {
	lg := logger.GetLogger()
	c.setStatus("Generating Post")
	text, err := c.generator.Generate(ctx, "")
	if err != nil {
		lg.WithField("error", err).Error("Failed to generate a valid post this cycle")
		c.setError("Failed to generate post")
		outcome.Error = "generate_failed"
		return
	}

	c.setStatus("Publishing Post")
	postID, err := c.gateway.Publish(ctx, c.cred.AccessToken, text)
	if err != nil {
		// Cadence state untouched so the next cycle retries.
		lg.WithField("error", err).Error("Failed to publish the generated post")
		c.setError("Failed to publish post")
		outcome.Error = "publish_failed"
		return
	}
	outcome.PublishedID = postID

	// The post exists now; advance cadence before the like so a like failure
	// can never cause a duplicate post next cycle.
	c.setLastPostTime(c.now().UTC())

	if c.accountID == "" {
		lg.Warn("Post published but account id unknown, cannot like it")
		return
	}
	c.setStatus("Liking Post")
	if err := c.gateway.Like(ctx, c.accountID, postID, c.cred.AccessToken); err != nil {
		lg.WithFields(map[string]interface{}{"error": err, "post_id": postID}).Warn("Liking own post failed")
		return
	}
	outcome.Liked = true
}

func (c *PostingCycle) halt(status string) {
	logger.GetLogger().WithField("status", status).Error("Halting bot loop; manual re-authorization required")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateHalted
	c.status = status
	c.lastError = status
}

func (c *PostingCycle) setStatus(status string) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *PostingCycle) setError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
}

func (c *PostingCycle) setLastPostTime(t time.Time) {
	c.mu.Lock()
	c.cadence.LastPostTime = &t
	c.mu.Unlock()
}

// Halted reports whether the loop reached the terminal state.
func (c *PostingCycle) Halted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateHalted
}

// Credential hands the current access token and account id to collaborators
// such as the reply cycle.
func (c *PostingCycle) Credential() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cred == nil {
		return "", ""
	}
	return c.cred.AccessToken, c.accountID
}

// Snapshot builds the read-only health view of the current state.
func (c *PostingCycle) Snapshot() dto.BotSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now().UTC()
	snap := dto.BotSnapshot{
		Status:            "OK",
		BotStatus:         c.status,
		BotUserID:         c.accountID,
		TimestampUTC:      now.Format(time.RFC3339),
		AccessTokenStatus: "Unknown",
		LastError:         c.lastError,
	}
	if c.state == StateHalted || strings.HasPrefix(c.status, "Error") {
		snap.Status = "Error"
	}
	if !c.cadence.LastCheckTime.IsZero() {
		snap.LastCheckStartTimeUTC = c.cadence.LastCheckTime.Format(time.RFC3339)
	}
	if c.cadence.LastPostTime != nil {
		snap.LastPostTimeUTC = c.cadence.LastPostTime.Format(time.RFC3339)
	}
	if c.lastRefresh != nil {
		snap.LastRefreshTimeUTC = c.lastRefresh.Format(time.RFC3339)
		age := now.Sub(*c.lastRefresh)
		snap.AccessTokenAge = age.String()
		if left := assumedTokenLifetime - age; left > 0 {
			snap.AccessTokenEstTimeLeft = left.Truncate(time.Second).String()
			snap.AccessTokenStatus = "Likely Valid"
		} else {
			snap.AccessTokenEstTimeLeft = "Expired"
			snap.AccessTokenStatus = "Likely Expired"
		}
	}
	return snap
}

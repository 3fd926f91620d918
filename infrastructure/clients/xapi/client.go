package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"robopost/domain/dto"
	"robopost/domain/model"
	"robopost/domain/repository"
	"robopost/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

// Timeouts are the per-endpoint deadlines. Likes and validation are quick;
// refresh and publishing get more headroom.
type Timeouts struct {
	Validate time.Duration
	Fetch    time.Duration
	Publish  time.Duration
	Like     time.Duration
	Refresh  time.Duration
}

// Client talks to the X API v2. It implements credential validation, token
// refresh and the write endpoints the bot needs. Every method converts remote
// failures into typed results; no error escapes with a panic.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      repository.ICredentialStore
	timeouts   Timeouts
}

func NewClient(baseURL string, store repository.ICredentialStore, timeouts Timeouts) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		store:      store,
		timeouts:   timeouts,
	}
}

var _ repository.ICredentialValidator = (*Client)(nil)
var _ repository.ICredentialRefresher = (*Client)(nil)
var _ repository.IPublishGateway = (*Client)(nil)

// Validate checks the access token against /users/me. Only a 401 reports the
// token as invalid with certainty; transient remote trouble assumes validity
// so one flaky response never forces a refresh.
func (c *Client) Validate(ctx context.Context, accessToken string) (bool, string) {
	lg := logger.GetLogger()
	if accessToken == "" {
		lg.Warn("Cannot validate an empty access token")
		return false, ""
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Validate)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me?user.fields=id", nil)
	if err != nil {
		return true, ""
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		lg.WithField("error", err).Error("Network error validating access token, assuming still valid")
		return true, ""
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var me dto.UserMeResponse
		if err := json.Unmarshal(body, &me); err != nil {
			lg.WithField("error", err).Warn("Token valid but /users/me body could not be parsed")
			return true, ""
		}
		return true, me.Data.ID
	case resp.StatusCode == http.StatusUnauthorized:
		lg.Warn("Access token is invalid or expired (401). Needs refresh.")
		return false, ""
	case resp.StatusCode == http.StatusForbidden:
		// Likely a scope or permission problem rather than expiry. A refresh
		// will not fix it, but the two cannot be told apart reliably.
		lg.WithField("body", string(body)).Warn("Access token rejected (403), possible missing scope")
		return false, ""
	default:
		lg.WithFields(map[string]interface{}{"status": resp.StatusCode, "body": string(body)}).
			Warn("Unexpected status validating token, assuming still valid")
		return true, ""
	}
}

// Refresh exchanges the refresh token for a new token pair and persists it
// before returning. An invalid/revoked grant returns an error wrapping
// model.ErrRefreshRejected; everything else is transient.
func (c *Client) Refresh(ctx context.Context, refreshToken, clientID, clientSecret string) (*model.TokenPair, error) {
	lg := logger.GetLogger()
	if refreshToken == "" {
		return nil, fmt.Errorf("cannot refresh: no refresh token")
	}
	if clientID == "" {
		return nil, fmt.Errorf("cannot refresh: no client id")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Refresh)
	defer cancel()

	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if clientSecret != "" {
		req.SetBasicAuth(clientID, clientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized) &&
			(strings.Contains(string(body), "invalid_request") || strings.Contains(string(body), "invalid_grant")) {
			lg.WithField("body", string(body)).Error("Refresh token rejected by authorization server")
			return nil, fmt.Errorf("refresh rejected (%d): %w", resp.StatusCode, model.ErrRefreshRejected)
		}
		lg.WithFields(map[string]interface{}{"status": resp.StatusCode, "body": string(body)}).
			Error("Token refresh failed, will retry next cycle")
		return nil, fmt.Errorf("refresh failed with status %d", resp.StatusCode)
	}

	var tok dto.TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parsing refresh response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("refresh response missing access_token")
	}
	// Refresh tokens are not always rotated; keep the old one when omitted.
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	lg.WithField("expires_in", tok.ExpiresIn).Info("Access token refreshed")

	pair := &model.TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresIn: tok.ExpiresIn}
	if c.store != nil {
		err := c.store.Save(&model.Credential{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			ObtainedAt:   time.Now().UTC(),
		})
		if err != nil {
			// Best-effort durability; the in-memory pair is still usable for
			// the remainder of this run.
			lg.WithField("error", err).Error("Persisting refreshed credential failed")
		}
	}
	return pair, nil
}

// Publish posts text and returns the new post id.
func (c *Client) Publish(ctx context.Context, accessToken, text string) (string, error) {
	return c.publish(ctx, accessToken, text, "")
}

// PublishReply posts text as a reply to another post.
func (c *Client) PublishReply(ctx context.Context, accessToken, text, inReplyToID string) (string, error) {
	if inReplyToID == "" {
		return "", fmt.Errorf("missing post id to reply to")
	}
	return c.publish(ctx, accessToken, text, inReplyToID)
}

func (c *Client) publish(ctx context.Context, accessToken, text, inReplyToID string) (string, error) {
	lg := logger.GetLogger()
	if accessToken == "" || text == "" {
		return "", fmt.Errorf("missing access token or text for publishing")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Publish)
	defer cancel()

	payload := map[string]interface{}{"text": text}
	if inReplyToID != "" {
		payload["reply"] = map[string]string{"in_reply_to_tweet_id": inReplyToID}
	}
	raw, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", strings.NewReader(string(raw)))
	if err != nil {
		return "", fmt.Errorf("building publish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("publish request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("publish failed with status %d: %s", resp.StatusCode, string(body))
	}
	var posted dto.PostResponse
	if err := json.Unmarshal(body, &posted); err != nil || posted.Data.ID == "" {
		// The post may have gone out, but without an id it cannot be liked or
		// traced. Report failure rather than claim an untraceable success.
		lg.WithField("body", string(body)).Error("Post accepted but no id found in response")
		return "", fmt.Errorf("post id missing in publish response")
	}
	lg.WithField("post_id", posted.Data.ID).Info("Post published")
	return posted.Data.ID, nil
}

// Like marks a post as liked for the account. A 403 caused by a previous like
// of the same post is an idempotent success.
func (c *Client) Like(ctx context.Context, accountID, postID, accessToken string) error {
	lg := logger.GetLogger()
	if accountID == "" || postID == "" || accessToken == "" {
		return fmt.Errorf("missing account id, post id or access token for like")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Like)
	defer cancel()

	raw, _ := json.Marshal(map[string]string{"tweet_id": postID})
	likeURL := fmt.Sprintf("%s/users/%s/likes", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, likeURL, strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("building like request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("like request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "already liked") {
		lg.WithField("post_id", postID).Warn("Post was already liked")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("like failed with status %d: %s", resp.StatusCode, string(body))
	}
	var liked dto.LikeResponse
	if err := json.Unmarshal(body, &liked); err != nil || !liked.Data.Liked {
		return fmt.Errorf("like accepted but response did not confirm it")
	}
	return nil
}

type lastPostQuery struct {
	Exclude     string `url:"exclude"`
	MaxResults  int    `url:"max_results"`
	TweetFields string `url:"tweet.fields"`
}

// FetchLastPostTime returns the created time of the account's most recent
// original post, or (nil, nil) when the account has none.
func (c *Client) FetchLastPostTime(ctx context.Context, accountID, accessToken string) (*time.Time, error) {
	if accountID == "" {
		return nil, fmt.Errorf("missing account id for post history lookup")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Fetch)
	defer cancel()

	params, _ := query.Values(lastPostQuery{
		Exclude:     "replies,retweets",
		MaxResults:  5,
		TweetFields: "created_at",
	})
	listURL := fmt.Sprintf("%s/users/%s/tweets?%s", c.baseURL, url.PathEscape(accountID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building post history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post history request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post history fetch failed with status %d: %s", resp.StatusCode, string(body))
	}
	var posts dto.UserPostsResponse
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("parsing post history: %w", err)
	}
	if posts.Meta.ResultCount == 0 || len(posts.Data) == 0 {
		return nil, nil
	}
	if posts.Data[0].CreatedAt == "" {
		return nil, fmt.Errorf("latest post is missing created_at")
	}
	t, err := time.Parse(time.RFC3339, posts.Data[0].CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", posts.Data[0].CreatedAt, err)
	}
	return &t, nil
}

type timelineQuery struct {
	MaxResults  int    `url:"max_results"`
	TweetFields string `url:"tweet.fields"`
	Expansions  string `url:"expansions"`
	UserFields  string `url:"user.fields"`
}

// FetchTimeline returns the most recent items of the account's home timeline.
func (c *Client) FetchTimeline(ctx context.Context, accountID, accessToken string, maxResults int) ([]model.TimelineItem, error) {
	if accountID == "" {
		return nil, fmt.Errorf("missing account id for timeline fetch")
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Fetch)
	defer cancel()

	params, _ := query.Values(timelineQuery{
		MaxResults:  maxResults,
		TweetFields: "created_at,author_id,entities,attachments,referenced_tweets",
		Expansions:  "author_id",
		UserFields:  "username",
	})
	tlURL := fmt.Sprintf("%s/users/%s/timelines/reverse_chronological?%s", c.baseURL, url.PathEscape(accountID), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tlURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building timeline request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timeline request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timeline fetch failed with status %d: %s", resp.StatusCode, string(body))
	}
	var tl dto.UserPostsResponse
	if err := json.Unmarshal(body, &tl); err != nil {
		return nil, fmt.Errorf("parsing timeline: %w", err)
	}

	usernames := map[string]string{}
	for _, u := range tl.Includes.Users {
		usernames[u.ID] = u.Username
	}
	items := make([]model.TimelineItem, 0, len(tl.Data))
	for _, p := range tl.Data {
		item := model.TimelineItem{
			ID:             p.ID,
			Text:           p.Text,
			AuthorID:       p.AuthorID,
			AuthorUsername: usernames[p.AuthorID],
		}
		if p.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
				item.CreatedAt = t
			}
		}
		for _, ref := range p.ReferencedTweets {
			switch ref.Type {
			case "replied_to":
				item.InReplyToID = ref.ID
			case "retweeted":
				item.IsRepost = true
			case "quoted":
				item.IsQuote = true
			}
		}
		if p.Entities != nil && len(p.Entities.URLs) > 0 {
			item.HasLinks = true
		}
		if p.Attachments != nil && len(p.Attachments.MediaKeys) > 0 {
			item.HasMedia = true
		}
		items = append(items, item)
	}
	return items, nil
}

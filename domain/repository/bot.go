package repository

import (
	"context"
	"time"

	"robopost/domain/model"
)

// ICredentialStore is the durable home of the OAuth2 credential. Load is
// called once at startup; Save after every successful refresh and by the
// bootstrap authorization callback.
type ICredentialStore interface {
	Load() (*model.Credential, error)
	Save(cred *model.Credential) error
}

// ICredentialValidator asks the platform whether an access token is still
// usable. The second return value is the authenticated account id when the
// platform reported one. Transient remote failures report valid=true (assume
// valid) with an empty id.
type ICredentialValidator interface {
	Validate(ctx context.Context, accessToken string) (valid bool, accountID string)
}

// ICredentialRefresher exchanges a refresh token for a new token pair.
// A refresh explicitly rejected by the authorization server returns an error
// wrapping model.ErrRefreshRejected; any other error is transient.
type ICredentialRefresher interface {
	Refresh(ctx context.Context, refreshToken, clientID, clientSecret string) (*model.TokenPair, error)
}

// IContentGenerator produces a sanitized, publishable piece of text.
// Any backend failure is returned as an error; it is never fatal to a cycle.
type IContentGenerator interface {
	Generate(ctx context.Context, promptOverride string) (string, error)
	GenerateReply(ctx context.Context, authorName, text string) (string, error)
}

// IPublishGateway wraps the platform's write and history endpoints.
type IPublishGateway interface {
	// Publish posts text and returns the new post id. A response without a
	// traceable id is a failure even when the call nominally succeeded.
	Publish(ctx context.Context, accessToken, text string) (string, error)
	// PublishReply posts text as a reply to another post.
	PublishReply(ctx context.Context, accessToken, text, inReplyToID string) (string, error)
	// Like marks a post as liked. An "already liked" rejection is a success.
	Like(ctx context.Context, accountID, postID, accessToken string) error
	// FetchLastPostTime returns the created time of the account's most recent
	// original post, or (nil, nil) when the account has no original posts.
	FetchLastPostTime(ctx context.Context, accountID, accessToken string) (*time.Time, error)
	// FetchTimeline returns the most recent items of the account's home
	// timeline for the reply cycle.
	FetchTimeline(ctx context.Context, accountID, accessToken string, maxResults int) ([]model.TimelineItem, error)
}

// ISeenStore records timeline items that were already replied to, so the
// reply cycle never handles the same item twice.
type ISeenStore interface {
	Contains(ctx context.Context, id string) (bool, error)
	Add(ctx context.Context, id string) error
}

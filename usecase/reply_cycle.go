package usecase

import (
	"context"

	"robopost/domain/model"
	"robopost/domain/repository"
	"robopost/infrastructure/logger"
)

// CredentialSource hands out the current access token and account id. The
// posting cycle implements it so both loops share one credential model.
type CredentialSource interface {
	Credential() (accessToken, accountID string)
}

// IReplyCycle scans the home timeline and replies to eligible posts.
type IReplyCycle interface {
	Scan(ctx context.Context)
}

// ReplyCycle is the feed-scanning variant. It borrows the posting cycle's
// credential, filters candidates against reply-eligibility rules and records
// handled posts so none is replied to twice.
type ReplyCycle struct {
	creds      CredentialSource
	generator  repository.IContentGenerator
	gateway    repository.IPublishGateway
	seen       repository.ISeenStore
	botHandle  string
	maxFetch   int
	maxReplies int
}

func NewReplyCycle(
	creds CredentialSource,
	generator repository.IContentGenerator,
	gateway repository.IPublishGateway,
	seen repository.ISeenStore,
	botHandle string,
	maxReplies int,
) *ReplyCycle {
	if maxReplies <= 0 {
		maxReplies = 3
	}
	return &ReplyCycle{
		creds:      creds,
		generator:  generator,
		gateway:    gateway,
		seen:       seen,
		botHandle:  botHandle,
		maxFetch:   50,
		maxReplies: maxReplies,
	}
}

// Scan runs one reply pass. Every failure is contained to the item it
// happened on; the pass itself never fails the outer loop.
func (r *ReplyCycle) Scan(ctx context.Context) {
	lg := logger.GetLogger()
	token, accountID := r.creds.Credential()
	if token == "" || accountID == "" {
		lg.Debug("Reply scan skipped, credential or account id not ready")
		return
	}

	items, err := r.gateway.FetchTimeline(ctx, accountID, token, r.maxFetch)
	if err != nil {
		lg.WithField("error", err).Warn("Timeline fetch failed, skipping reply scan")
		return
	}
	lg.WithField("count", len(items)).Debug("Timeline fetched")

	replied := 0
	skipped := 0
	for _, item := range items {
		if replied >= r.maxReplies {
			break
		}
		ok, err := r.eligible(ctx, item)
		if err != nil {
			lg.WithFields(map[string]interface{}{"error": err, "post_id": item.ID}).Warn("Eligibility check failed")
			continue
		}
		if !ok {
			skipped++
			continue
		}
		if r.replyTo(ctx, token, accountID, item) {
			replied++
		}
	}
	lg.WithFields(map[string]interface{}{"replied": replied, "skipped": skipped}).Info("Reply scan finished")
}

// eligible applies the reply rules: original top-level posts only, no links
// or media, never the bot's own posts, never a post handled before.
func (r *ReplyCycle) eligible(ctx context.Context, item model.TimelineItem) (bool, error) {
	if item.ID == "" || item.Text == "" {
		return false, nil
	}
	if item.InReplyToID != "" || item.IsRepost || item.IsQuote {
		return false, nil
	}
	if item.HasLinks || item.HasMedia {
		return false, nil
	}
	if r.botHandle != "" && item.AuthorUsername == r.botHandle {
		return false, nil
	}
	seen, err := r.seen.Contains(ctx, item.ID)
	if err != nil {
		return false, err
	}
	return !seen, nil
}

func (r *ReplyCycle) replyTo(ctx context.Context, token, accountID string, item model.TimelineItem) bool {
	lg := logger.GetLogger().WithField("post_id", item.ID)

	text, err := r.generator.GenerateReply(ctx, item.AuthorUsername, item.Text)
	if err != nil {
		lg.WithField("error", err).Warn("Reply generation failed")
		return false
	}
	replyID, err := r.gateway.PublishReply(ctx, token, text, item.ID)
	if err != nil {
		lg.WithField("error", err).Warn("Publishing reply failed")
		return false
	}

	// The reply is out; record the handled item first so a later failure can
	// never cause a duplicate reply.
	if err := r.seen.Add(ctx, item.ID); err != nil {
		lg.WithField("error", err).Error("Recording handled post failed")
	}

	if err := r.gateway.Like(ctx, accountID, replyID, token); err != nil {
		lg.WithField("error", err).Warn("Liking own reply failed")
	}
	if err := r.gateway.Like(ctx, accountID, item.ID, token); err != nil {
		lg.WithField("error", err).Warn("Liking original post failed")
	}
	lg.WithField("reply_id", replyID).Info("Replied to timeline post")
	return true
}

package model

import "time"

// TimelineItem is a post from the bot's home timeline, as considered by the
// reply cycle.
type TimelineItem struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	InReplyToID    string    `json:"in_reply_to_id,omitempty"`
	IsRepost       bool      `json:"is_repost"`
	IsQuote        bool      `json:"is_quote"`
	HasMedia       bool      `json:"has_media"`
	HasLinks       bool      `json:"has_links"`
	CreatedAt      time.Time `json:"created_at"`
}

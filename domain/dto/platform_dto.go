package dto

// Typed shapes of the X API v2 responses the bot consumes. Missing expected
// fields are treated as failures by the callers (fail closed).

// UserMeResponse is the body of GET /2/users/me.
type UserMeResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// TokenResponse is the body of POST /2/oauth2/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// PostResponse is the body of POST /2/tweets.
type PostResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// LikeResponse is the body of POST /2/users/{id}/likes.
type LikeResponse struct {
	Data struct {
		Liked bool `json:"liked"`
	} `json:"data"`
}

// UserPostsResponse is the body of GET /2/users/{id}/tweets and of the
// reverse-chronological timeline endpoint.
type UserPostsResponse struct {
	Data []PostItem `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// PostItem is a single post entry within a list response.
type PostItem struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id"`
	CreatedAt        string            `json:"created_at"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets"`
	InReplyToUserID  string            `json:"in_reply_to_user_id"`
	Entities         *PostEntities     `json:"entities"`
	Attachments      *PostAttachments  `json:"attachments"`
}

// ReferencedTweet marks a post as a reply, repost or quote.
type ReferencedTweet struct {
	Type string `json:"type"` // replied_to | retweeted | quoted
	ID   string `json:"id"`
}

// PostEntities carries the URL entities of a post.
type PostEntities struct {
	URLs []struct {
		URL string `json:"url"`
	} `json:"urls"`
}

// PostAttachments carries media keys of a post.
type PostAttachments struct {
	MediaKeys []string `json:"media_keys"`
}

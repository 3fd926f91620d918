package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"robopost/domain/model"
)

func testTimeouts() Timeouts {
	return Timeouts{
		Validate: 2 * time.Second,
		Fetch:    2 * time.Second,
		Publish:  2 * time.Second,
		Like:     2 * time.Second,
		Refresh:  2 * time.Second,
	}
}

type memoryStore struct {
	saved *model.Credential
}

func (s *memoryStore) Load() (*model.Credential, error) { return s.saved, nil }
func (s *memoryStore) Save(cred *model.Credential) error {
	s.saved = cred
	return nil
}

func TestClient_Validate(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantOK   bool
		wantUser string
	}{
		{"valid token returns account id", http.StatusOK, `{"data":{"id":"12345","username":"robot"}}`, true, "12345"},
		{"unauthorized is invalid", http.StatusUnauthorized, `{"title":"Unauthorized"}`, false, ""},
		{"forbidden is invalid", http.StatusForbidden, `{"title":"Forbidden"}`, false, ""},
		{"server error assumes valid", http.StatusInternalServerError, `{}`, true, ""},
		{"rate limit assumes valid", http.StatusTooManyRequests, `{}`, true, ""},
		{"unparseable body still valid", http.StatusOK, `not json`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/me", r.URL.Path)
				assert.Equal(t, "Bearer token-a", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil, testTimeouts())
			ok, userID := client.Validate(context.Background(), "token-a")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUser, userID)
		})
	}
}

func TestClient_Validate_NetworkErrorAssumesValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connections now refused

	client := NewClient(srv.URL, nil, testTimeouts())
	ok, userID := client.Validate(context.Background(), "token-a")
	assert.True(t, ok)
	assert.Empty(t, userID)
}

func TestClient_Validate_EmptyToken(t *testing.T) {
	client := NewClient("http://unused", nil, testTimeouts())
	ok, _ := client.Validate(context.Background(), "")
	assert.False(t, ok)
}

func TestClient_Refresh_Success(t *testing.T) {
	store := &memoryStore{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-a", r.PostForm.Get("refresh_token"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "token-b",
			"refresh_token": "refresh-b",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, store, testTimeouts())
	pair, err := client.Refresh(context.Background(), "refresh-a", "client-id", "client-secret")
	require.NoError(t, err)
	assert.Equal(t, "token-b", pair.AccessToken)
	assert.Equal(t, "refresh-b", pair.RefreshToken)
	assert.Equal(t, 7200, pair.ExpiresIn)

	// The new pair is persisted before Refresh returns.
	require.NotNil(t, store.saved)
	assert.Equal(t, "token-b", store.saved.AccessToken)
	assert.Equal(t, "refresh-b", store.saved.RefreshToken)
}

func TestClient_Refresh_KeepsOldRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "token-b"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	pair, err := client.Refresh(context.Background(), "refresh-a", "client-id", "")
	require.NoError(t, err)
	assert.Equal(t, "refresh-a", pair.RefreshToken)
}

func TestClient_Refresh_RejectedGrantIsTerminal(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"revoked"}`))
		}))

		client := NewClient(srv.URL, nil, testTimeouts())
		_, err := client.Refresh(context.Background(), "refresh-a", "client-id", "")
		assert.True(t, errors.Is(err, model.ErrRefreshRejected), "status %d should be terminal", status)
		srv.Close()
	}
}

func TestClient_Refresh_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	_, err := client.Refresh(context.Background(), "refresh-a", "client-id", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrRefreshRejected))
}

func TestClient_Refresh_BadRequestWithoutGrantErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	_, err := client.Refresh(context.Background(), "refresh-a", "client-id", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrRefreshRejected))
}

func TestClient_Refresh_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"refresh_token": "refresh-b"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	_, err := client.Refresh(context.Background(), "refresh-a", "client-id", "")
	assert.Error(t, err)
}

func TestClient_Publish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello world", payload["text"])
		assert.NotContains(t, payload, "reply")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"post-1","text":"hello world"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	id, err := client.Publish(context.Background(), "token-a", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "post-1", id)
}

func TestClient_Publish_MissingIDIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	_, err := client.Publish(context.Background(), "token-a", "hello world")
	assert.Error(t, err)
}

func TestClient_PublishReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text  string `json:"text"`
			Reply struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			} `json:"reply"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "nice one", payload.Text)
		assert.Equal(t, "post-7", payload.Reply.InReplyToTweetID)
		_, _ = w.Write([]byte(`{"data":{"id":"reply-1"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	id, err := client.PublishReply(context.Background(), "token-a", "nice one", "post-7")
	require.NoError(t, err)
	assert.Equal(t, "reply-1", id)

	_, err = client.PublishReply(context.Background(), "token-a", "nice one", "")
	assert.Error(t, err)
}

func TestClient_Like(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/acct-1/likes", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "post-1", payload["tweet_id"])
		_, _ = w.Write([]byte(`{"data":{"liked":true}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	assert.NoError(t, client.Like(context.Background(), "acct-1", "post-1", "token-a"))
}

func TestClient_Like_AlreadyLikedIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"You have already liked this Tweet."}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	assert.NoError(t, client.Like(context.Background(), "acct-1", "post-1", "token-a"))
}

func TestClient_Like_OtherForbiddenIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"You are not permitted to perform this action."}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	assert.Error(t, client.Like(context.Background(), "acct-1", "post-1", "token-a"))
}

func TestClient_FetchLastPostTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/acct-1/tweets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "replies,retweets", q.Get("exclude"))
		assert.Equal(t, "5", q.Get("max_results"))
		assert.Equal(t, "created_at", q.Get("tweet.fields"))
		_, _ = w.Write([]byte(`{"data":[{"id":"p-1","text":"latest","created_at":"2026-08-25T10:00:00Z"}],"meta":{"result_count":1}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	got, err := client.FetchLastPostTime(context.Background(), "acct-1", "token-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), got.UTC())
}

func TestClient_FetchLastPostTime_NoPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	got, err := client.FetchLastPostTime(context.Background(), "acct-1", "token-a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_FetchLastPostTime_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	_, err := client.FetchLastPostTime(context.Background(), "acct-1", "token-a")
	assert.Error(t, err)
}

func TestClient_FetchTimeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/acct-1/timelines/reverse_chronological", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"data":[
				{"id":"p-1","text":"plain post","author_id":"u-1","created_at":"2026-08-25T10:00:00Z"},
				{"id":"p-2","text":"a reply","author_id":"u-2","referenced_tweets":[{"type":"replied_to","id":"p-0"}]},
				{"id":"p-3","text":"rt","author_id":"u-2","referenced_tweets":[{"type":"retweeted","id":"p-9"}]},
				{"id":"p-4","text":"link https://t.co/x","author_id":"u-1","entities":{"urls":[{"url":"https://t.co/x"}]}},
				{"id":"p-5","text":"pic","author_id":"u-1","attachments":{"media_keys":["m-1"]}}
			],
			"includes":{"users":[{"id":"u-1","username":"alice"},{"id":"u-2","username":"bob"}]},
			"meta":{"result_count":5}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, testTimeouts())
	items, err := client.FetchTimeline(context.Background(), "acct-1", "token-a", 50)
	require.NoError(t, err)
	require.Len(t, items, 5)

	assert.Equal(t, "alice", items[0].AuthorUsername)
	assert.False(t, items[0].CreatedAt.IsZero())
	assert.Equal(t, "p-0", items[1].InReplyToID)
	assert.Equal(t, "bob", items[1].AuthorUsername)
	assert.True(t, items[2].IsRepost)
	assert.True(t, items[3].HasLinks)
	assert.True(t, items[4].HasMedia)
}

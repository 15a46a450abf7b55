package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadJSON is a small /comments/{id} response for post "adv001".
const ThreadJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {"id": "adv001", "name": "t3_adv001", "title": "Adversarial thread",
      "author": "tester", "is_self": true, "domain": "self.test", "subreddit": "test",
      "permalink": "/r/test/comments/adv001/adversarial_thread/"}}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {"id": "a1", "name": "t1_a1", "parent_id": "t3_adv001", "link_id": "t3_adv001",
      "author": "one", "body": "first", "score": 2,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {"id": "a1r", "name": "t1_a1r", "parent_id": "t1_a1", "link_id": "t3_adv001",
          "author": "two", "body": "reply", "replies": ""}}
      ]}}}},
    {"kind": "t1", "data": {"id": "a2", "name": "t1_a2", "parent_id": "t3_adv001", "link_id": "t3_adv001",
      "author": "three", "body": "second", "score": 1, "replies": ""}}
  ]}}
]`

// RedditServer is an httptest server that answers the token endpoint and
// /comments/adv001.
type RedditServer struct {
	*httptest.Server

	// TokenDelay slows the token endpoint down.
	TokenDelay time.Duration

	tokenCalls   atomic.Int32
	commentCalls atomic.Int32

	mu    sync.Mutex
	sorts []string
}

// NewRedditServer starts a RedditServer. Callers must Close it.
func NewRedditServer() *RedditServer {
	s := &RedditServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// TokenCalls returns how many token requests were served.
func (s *RedditServer) TokenCalls() int { return int(s.tokenCalls.Load()) }

// CommentCalls returns how many /comments requests were served.
func (s *RedditServer) CommentCalls() int { return int(s.commentCalls.Load()) }

// Sorts returns the "sort" query values of the /comments requests that
// carried one, in arrival order.
func (s *RedditServer) Sorts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sorts...)
}

func (s *RedditServer) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/access_token":
		s.tokenCalls.Add(1)
		if s.TokenDelay > 0 {
			time.Sleep(s.TokenDelay)
		}
		w.Write([]byte(`{"access_token": "adv-token", "token_type": "bearer", "expires_in": 3600}`))
	case strings.HasPrefix(r.URL.Path, "/comments/"):
		s.commentCalls.Add(1)
		if v := r.URL.Query().Get("sort"); v != "" {
			s.mu.Lock()
			s.sorts = append(s.sorts, v)
			s.mu.Unlock()
		}
		if r.Header.Get("Authorization") != "Bearer adv-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/comments/adv001" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found", "error": 404}`))
			return
		}
		w.Write([]byte(ThreadJSON))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

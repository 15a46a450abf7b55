package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/retry"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
	"github.com/jamesprial/go-reddit-extractor/test_utils"
)

const testThreadJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {
      "id": "abc123", "name": "t3_abc123", "title": "How do you structure Go services?",
      "author": "gopher", "selftext": "Asking for a friend.", "is_self": true,
      "domain": "self.golang", "subreddit": "golang", "subreddit_id": "t5_2rc7j",
      "url": "https://www.reddit.com/r/golang/comments/abc123/how_do_you/",
      "permalink": "/r/golang/comments/abc123/how_do_you/",
      "score": 42, "num_comments": 9, "created_utc": 1700000000, "edited": false
    }}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "name": "t1_c1", "parent_id": "t3_abc123", "link_id": "t3_abc123",
      "author": "alice", "body": "Flat packages.", "score": 10,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {
          "id": "r1", "name": "t1_r1", "parent_id": "t1_c1", "link_id": "t3_abc123",
          "author": "bob", "body": "Agreed.", "score": 3, "replies": ""
        }},
        {"kind": "more", "data": {
          "id": "r2", "name": "t1_r2", "parent_id": "t1_c1", "count": 3, "children": ["r2", "r3"]
        }}
      ]}}
    }},
    {"kind": "t1", "data": {
      "id": "c2", "name": "t1_c2", "parent_id": "t3_abc123", "link_id": "t3_abc123",
      "author": "[deleted]", "body": "[deleted]", "score": 1, "replies": ""
    }},
    {"kind": "t1", "data": {
      "id": "c3", "name": "t1_c3", "parent_id": "t3_abc123", "link_id": "t3_abc123",
      "author": "carol", "body": "It depends.", "score": 7,
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "more", "data": {
          "id": "_", "name": "t1__", "parent_id": "t1_c3", "count": 0, "children": []
        }}
      ]}}
    }},
    {"kind": "more", "data": {
      "id": "c9", "name": "t1_c9", "parent_id": "t3_abc123", "count": 1, "children": ["c9"]
    }}
  ]}}
]`

const testFocusedJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {"id": "abc123", "name": "t3_abc123", "title": "How do you structure Go services?", "author": "gopher"}}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c3", "name": "t1_c3", "parent_id": "t3_abc123", "link_id": "t3_abc123",
      "author": "carol", "body": "It depends.",
      "replies": {"kind": "Listing", "data": {"children": [
        {"kind": "t1", "data": {
          "id": "c3a", "name": "t1_c3a", "parent_id": "t1_c3", "link_id": "t3_abc123",
          "author": "dave", "body": "On what?", "replies": ""
        }}
      ]}}
    }}
  ]}}
]`

const testMoreChildrenJSON = `{"json": {"errors": [], "data": {"things": [
  {"kind": "t1", "data": {"id": "r2", "name": "t1_r2", "parent_id": "t1_c1", "link_id": "t3_abc123", "author": "erin", "body": "Hex layout.", "replies": ""}},
  {"kind": "t1", "data": {"id": "r2a", "name": "t1_r2a", "parent_id": "t1_r2", "link_id": "t3_abc123", "author": "frank", "body": "Why?", "replies": ""}},
  {"kind": "t1", "data": {"id": "r3", "name": "t1_r3", "parent_id": "t1_c1", "link_id": "t3_abc123", "author": "grace", "body": "Monorepo.", "replies": ""}}
]}}}`

// fakeReddit serves the token, comments and morechildren endpoints.
type fakeReddit struct {
	mu sync.Mutex

	tokenStatus  int // non-zero fails the token request
	commentsFail int // sorted comment listings answered with 503 before succeeding
	moreStatus   int // non-zero fails morechildren
	revoked      int // comment requests answered 401 before the token is honoured

	tokenCalls int
	queries    []url.Values
	moreForms  []url.Values
	authHeader string
}

func (f *fakeReddit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/v1/access_token":
		f.tokenCalls++
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			w.Write([]byte(`{"error": "invalid_client"}`))
			return
		}
		w.Write([]byte(`{"access_token": "test-token", "token_type": "bearer", "expires_in": 3600}`))

	case strings.HasPrefix(r.URL.Path, "/comments/"):
		f.authHeader = r.Header.Get("Authorization")
		if f.revoked > 0 {
			f.revoked--
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message": "Unauthorized", "error": 401}`))
			return
		}
		q := r.URL.Query()
		f.queries = append(f.queries, q)
		if strings.TrimPrefix(r.URL.Path, "/comments/") != "abc123" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found", "error": 404}`))
			return
		}
		if q.Get("comment") == "c3" {
			w.Write([]byte(testFocusedJSON))
			return
		}
		if q.Get("sort") != "" && f.commentsFail > 0 {
			f.commentsFail--
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message": "Service Unavailable"}`))
			return
		}
		w.Write([]byte(testThreadJSON))

	case r.URL.Path == "/api/morechildren":
		r.ParseForm()
		f.moreForms = append(f.moreForms, r.PostForm)
		if f.moreStatus != 0 {
			w.WriteHeader(f.moreStatus)
			return
		}
		w.Write([]byte(testMoreChildrenJSON))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeReddit) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeReddit) tokens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

func newFakeReddit(t *testing.T) (*fakeReddit, *Config) {
	t.Helper()
	fake := &fakeReddit{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return fake, &Config{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "test-agent/1.0",
		BaseURL:      server.URL,
		AuthURL:      server.URL,
		HTTPClient:   server.Client(),
		RateLimit:    &RateLimitConfig{RequestsPerMinute: 60000, Burst: 100},
		Retry:        retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
}

func newTestSource(t *testing.T, cfg *Config) *RedditSource {
	t.Helper()
	src, err := NewRedditSource(cfg)
	if err != nil {
		t.Fatalf("NewRedditSource: %v", err)
	}
	return src
}

func TestNewRedditSource_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "missing client id", config: &Config{ClientSecret: "s"}},
		{name: "missing client secret", config: &Config{ClientID: "i"}},
		{name: "username without password", config: &Config{ClientID: "i", ClientSecret: "s", Username: "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedditSource(tt.config)
			var cfgErr *pkgerrs.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
		})
	}
}

func TestRedditSource_GetPost(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	src := newTestSource(t, cfg)

	if src.IsConnected() {
		t.Fatal("connected before first request")
	}

	post, err := src.GetPost(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.Title != "How do you structure Go services?" || post.Author != "gopher" || !post.IsSelf {
		t.Errorf("post = %+v", post)
	}
	if !src.IsConnected() {
		t.Error("not connected after successful request")
	}

	q := fake.lastQuery()
	if q.Get("limit") != "1" || q.Get("depth") != "1" || q.Get("raw_json") != "1" {
		t.Errorf("query = %v, want limit=1 depth=1 raw_json=1", q)
	}
	if fake.authHeader != "Bearer test-token" {
		t.Errorf("Authorization = %q", fake.authHeader)
	}

	if _, err := src.GetPost(context.Background(), "abc123"); err != nil {
		t.Fatalf("second GetPost: %v", err)
	}
	if got := fake.tokens(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestRedditSource_GetPost_NotFound(t *testing.T) {
	_, cfg := newFakeReddit(t)
	src := newTestSource(t, cfg)

	_, err := src.GetPost(context.Background(), "zzz999")
	var postErr *pkgerrs.PostRetrievalError
	if !errors.As(err, &postErr) {
		t.Fatalf("err = %v, want PostRetrievalError", err)
	}
	if postErr.PostID != "zzz999" {
		t.Errorf("PostID = %q, want zzz999", postErr.PostID)
	}
	if retry.IsRetryable(err) {
		t.Error("missing post classified as retryable")
	}
}

func TestRedditSource_AuthFailure(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	fake.tokenStatus = http.StatusUnauthorized
	src := newTestSource(t, cfg)

	_, err := src.GetPost(context.Background(), "abc123")
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) || authErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want AuthError 401", err)
	}
	if src.IsConnected() {
		t.Error("connected after failed authentication")
	}

	// The failed connect is attempted again on the next call.
	fake.mu.Lock()
	fake.tokenStatus = 0
	fake.mu.Unlock()
	if _, err := src.GetPost(context.Background(), "abc123"); err != nil {
		t.Fatalf("GetPost after recovery: %v", err)
	}
	if got := fake.tokens(); got != 2 {
		t.Errorf("token requests = %d, want 2", got)
	}
}

func TestRedditSource_RevokedTokenRefreshed(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	fake.revoked = 1
	src := newTestSource(t, cfg)

	post, err := src.GetPost(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.ID != "abc123" {
		t.Errorf("post ID = %q, want abc123", post.ID)
	}
	if got := fake.tokens(); got != 2 {
		t.Errorf("token requests = %d, want 2", got)
	}

	// A token refused twice in a row surfaces as a 401.
	fake.mu.Lock()
	fake.revoked = 2
	fake.mu.Unlock()
	_, err = src.GetPost(context.Background(), "abc123")
	var apiErr *pkgerrs.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want APIError 401", err)
	}
	if got := fake.tokens(); got != 3 {
		t.Errorf("token requests = %d, want 3", got)
	}
}

func TestRedditSource_TopLevelComments(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	src := newTestSource(t, cfg)
	post := &types.RawPost{ThingData: types.ThingData{ID: "abc123", Name: "t3_abc123"}}

	list, err := src.TopLevelComments(context.Background(), post, types.SortBest, 40)
	if err != nil {
		t.Fatalf("TopLevelComments: %v", err)
	}

	q := fake.lastQuery()
	if q.Get("sort") != "confidence" || q.Get("limit") != "40" {
		t.Errorf("query = %v, want sort=confidence limit=40", q)
	}

	var ids []string
	for _, c := range list {
		ids = append(ids, c.Kind+":"+c.ID)
	}
	if got := strings.Join(ids, ","); got != "t1:c1,t1:c2,t1:c3,more:c9" {
		t.Errorf("records = %s", got)
	}

	if _, err := src.TopLevelComments(context.Background(), nil, types.SortBest, 1); err == nil {
		t.Error("expected error for nil post")
	}
}

func TestRedditSource_ExpandReplies(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	src := newTestSource(t, cfg)
	post := &types.RawPost{ThingData: types.ThingData{ID: "abc123", Name: "t3_abc123"}}

	list, err := src.TopLevelComments(context.Background(), post, types.SortNew, 10)
	if err != nil {
		t.Fatalf("TopLevelComments: %v", err)
	}
	c1, c3 := list[0], list[2]

	replies, err := src.ExpandReplies(context.Background(), c1)
	if err != nil {
		t.Fatalf("ExpandReplies(c1): %v", err)
	}
	var ids []string
	for _, r := range replies {
		ids = append(ids, r.ID)
	}
	if got := strings.Join(ids, ","); got != "r1,r2,r3" {
		t.Errorf("replies of c1 = %s, want r1,r2,r3", got)
	}
	for _, r := range replies {
		if err := test_utils.AssertValidFullname(r.Name); err != nil {
			t.Errorf("reply %s: %v", r.ID, err)
		}
	}
	if len(replies[1].Replies) != 1 || replies[1].Replies[0].ID != "r2a" {
		t.Errorf("r2 replies = %+v, want [r2a]", replies[1].Replies)
	}

	fake.mu.Lock()
	form := fake.moreForms[0]
	fake.mu.Unlock()
	if form.Get("link_id") != "t3_abc123" || form.Get("children") != "r2,r3" || form.Get("api_type") != "json" {
		t.Errorf("morechildren form = %v", form)
	}

	replies, err = src.ExpandReplies(context.Background(), c3)
	if err != nil {
		t.Fatalf("ExpandReplies(c3): %v", err)
	}
	if len(replies) != 1 || replies[0].ID != "c3a" {
		t.Errorf("replies of c3 = %+v, want [c3a]", replies)
	}
	if q := fake.lastQuery(); q.Get("comment") != "c3" {
		t.Errorf("continue query = %v, want comment=c3", q)
	}
}

// TestRedditSource_ExpandReplies_ContinueStub feeds the stub Reddit sends
// for "continue this thread": id "_", count 0 and no children.
func TestRedditSource_ExpandReplies_ContinueStub(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	src := newTestSource(t, cfg)

	parent := &types.RawComment{
		ThingData: types.ThingData{ID: "c3", Name: "t1_c3"},
		Kind:      types.KindComment,
		LinkID:    "t3_abc123",
		Author:    "carol",
		Body:      "It depends.",
		Replies: []*types.RawComment{{
			ThingData: types.ThingData{ID: "_", Name: "t1__"},
			Kind:      types.KindMore,
			ParentID:  "t1_c3",
		}},
	}

	replies, err := src.ExpandReplies(context.Background(), parent)
	if err != nil {
		t.Fatalf("ExpandReplies: %v", err)
	}
	if len(replies) != 1 || replies[0].ID != "c3a" {
		t.Fatalf("replies = %+v, want [c3a]", replies)
	}
	if err := test_utils.AssertValidFullname(replies[0].Name); err != nil {
		t.Error(err)
	}

	fake.mu.Lock()
	n := len(fake.queries)
	fake.mu.Unlock()
	if n != 1 {
		t.Errorf("comments requests = %d, want 1", n)
	}
	if q := fake.lastQuery(); q.Get("comment") != "c3" {
		t.Errorf("continue query = %v, want comment=c3", q)
	}
}

func TestRedditSource_ExpandReplies_PartialOnError(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	fake.moreStatus = http.StatusInternalServerError
	src := newTestSource(t, cfg)
	post := &types.RawPost{ThingData: types.ThingData{ID: "abc123", Name: "t3_abc123"}}

	list, err := src.TopLevelComments(context.Background(), post, types.SortBest, 10)
	if err != nil {
		t.Fatalf("TopLevelComments: %v", err)
	}

	replies, err := src.ExpandReplies(context.Background(), list[0])
	var apiErr *pkgerrs.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want APIError 500", err)
	}
	if len(replies) != 1 || replies[0].ID != "r1" {
		t.Errorf("partial replies = %+v, want [r1]", replies)
	}
}

func TestExtractor_EndToEnd(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	fake.commentsFail = 1
	ex, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	thread, err := ex.Fetch(context.Background(), "abc123", DefaultCommentOptions())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if thread.Post.Author == nil || *thread.Post.Author != "gopher" {
		t.Errorf("author = %v", thread.Post.Author)
	}
	if len(thread.Post.Media) != 0 {
		t.Errorf("self post media = %+v, want none", thread.Post.Media)
	}

	tree := NewCommentTree(thread.Comments)
	var top []string
	for _, c := range tree.GetTopLevel() {
		top = append(top, c.ID)
	}
	if got := strings.Join(top, ","); got != "c1,c3" {
		t.Errorf("top level = %s, want c1,c3", got)
	}
	if got := tree.Count(); got != 7 {
		t.Errorf("count = %d, want 7", got)
	}
	if r2a := tree.GetByID("r2a"); r2a == nil || r2a.Depth != 2 {
		t.Errorf("r2a = %+v, want depth 2", r2a)
	}
	if c3a := tree.GetByID("c3a"); c3a == nil || c3a.Depth != 1 {
		t.Errorf("c3a = %+v, want depth 1", c3a)
	}
	if err := test_utils.AssertValidThread(thread, UnlimitedDepth); err != nil {
		t.Error(err)
	}
	if err := test_utils.AssertCommentIDs(thread.Comments, "c1", "r1", "r2", "r2a", "r3", "c3", "c3a"); err != nil {
		t.Error(err)
	}
}

func TestExtractor_EndToEnd_DepthBound(t *testing.T) {
	fake, cfg := newFakeReddit(t)
	ex, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	thread, err := ex.Fetch(context.Background(), "abc123", CommentOptions{Sort: types.SortTop, Limit: 1, MaxDepth: 0})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(thread.Comments) != 1 || thread.Comments[0].ID != "c1" || len(thread.Comments[0].Replies) != 0 {
		t.Errorf("comments = %+v, want c1 without replies", thread.Comments)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.moreForms) != 0 {
		t.Errorf("morechildren calls = %d, want 0", len(fake.moreForms))
	}
}

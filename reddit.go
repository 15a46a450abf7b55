package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jamesprial/go-reddit-extractor/internal"
	"github.com/jamesprial/go-reddit-extractor/pkg/comments"
	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// RemoteSource supplies raw post and comment records. RedditSource is the
// production implementation; tests substitute their own.
type RemoteSource interface {
	// GetPost returns the post with the given base36 ID. A post that does
	// not exist is reported as *errors.PostRetrievalError.
	GetPost(ctx context.Context, id string) (*types.RawPost, error)

	comments.Source
}

// HTTPClient defines the behavior required from the internal HTTP client.
type HTTPClient interface {
	NewRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error)
	Do(req *http.Request, v any) error
	DoRaw(req *http.Request) ([]byte, error)
}

// RedditSource reads threads from the Reddit OAuth API. It authenticates
// lazily on first use and is safe for concurrent use.
type RedditSource struct {
	client    HTTPClient
	auth      *internal.Authenticator
	config    *Config
	parser    *internal.Parser
	validator *internal.Validator
	conn      *internal.ConnectionManager
	logger    *slog.Logger
}

var _ RemoteSource = (*RedditSource)(nil)

// NewRedditSource validates config and prepares the authenticator. No
// network call is made until the first request.
func NewRedditSource(config *Config) (*RedditSource, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}
	cfg := config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auth, err := internal.NewAuthenticator(
		cfg.HTTPClient,
		cfg.Username,
		cfg.Password,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.UserAgent,
		cfg.AuthURL,
		"",
		cfg.Logger,
	)
	if err != nil {
		return nil, err
	}

	return &RedditSource{
		auth:      auth,
		config:    cfg,
		parser:    internal.NewParser(),
		validator: internal.NewValidator(),
		conn:      internal.NewConnectionManager(),
		logger:    cfg.Logger,
	}, nil
}

// Connect authenticates with Reddit and prepares the HTTP client. It is
// called implicitly by every request; a failed attempt is retried on the
// next call.
func (s *RedditSource) Connect(ctx context.Context) error {
	return s.conn.Initialize(ctx, s.initialize)
}

func (s *RedditSource) initialize(ctx context.Context) error {
	if _, err := s.auth.GetToken(ctx); err != nil {
		return err
	}

	client, err := internal.NewClient(
		s.config.HTTPClient,
		s.auth,
		s.config.BaseURL,
		s.config.UserAgent,
		s.config.RateLimit,
		s.logger,
	)
	if err != nil {
		return err
	}

	s.client = client
	s.logger.Debug("connected to reddit", "grant_type", s.auth.GrantType())
	return nil
}

// IsConnected reports whether a Connect call has succeeded.
func (s *RedditSource) IsConnected() bool {
	return s.conn.IsInitialized()
}

// GetPost fetches a post by ID.
func (s *RedditSource) GetPost(ctx context.Context, id string) (*types.RawPost, error) {
	post, _, err := s.thread(ctx, id, url.Values{"limit": {"1"}, "depth": {"1"}})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// TopLevelComments fetches up to limit comment records for post in the
// requested order. Placeholders are returned as they appear.
func (s *RedditSource) TopLevelComments(ctx context.Context, post *types.RawPost, sort types.SortOrder, limit int) ([]*types.RawComment, error) {
	if post == nil {
		return nil, &pkgerrs.ConfigError{Field: "post", Message: "post cannot be nil"}
	}
	query := url.Values{}
	if sort != "" {
		query.Set("sort", sort.APIValue())
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	_, list, err := s.thread(ctx, post.ID, query)
	return list, err
}

// thread requests /comments/{id}. A response without a post, or a 404, is
// a PostRetrievalError.
func (s *RedditSource) thread(ctx context.Context, id string, query url.Values) (*types.RawPost, []*types.RawComment, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, nil, err
	}

	req, err := s.client.NewRequest(ctx, http.MethodGet, "comments/"+id, query, nil)
	if err != nil {
		return nil, nil, err
	}

	var result []*types.Thing
	if err := s.client.Do(req, &result); err != nil {
		var apiErr *pkgerrs.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil, &pkgerrs.PostRetrievalError{PostID: id, Message: "post does not exist", Err: err}
		}
		return nil, nil, err
	}

	post, list, err := s.parser.ExtractPostAndComments(result)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, &pkgerrs.PostRetrievalError{PostID: id, Message: "post is deleted, private, or does not exist"}
	}
	return post, list, nil
}

// ExpandReplies returns the replies of c in source order. Placeholders in
// the embedded reply listing are resolved through /api/morechildren, and a
// "continue this thread" placeholder by re-reading the thread focused on c.
// When a placeholder cannot be resolved the replies gathered so far are
// returned together with the error.
func (s *RedditSource) ExpandReplies(ctx context.Context, c *types.RawComment) ([]*types.RawComment, error) {
	if c == nil {
		return nil, nil
	}

	out := make([]*types.RawComment, 0, len(c.Replies))
	for _, r := range c.Replies {
		if !r.IsPlaceholder() {
			out = append(out, r)
			continue
		}

		var resolved []*types.RawComment
		var err error
		if len(r.Children) == 0 {
			// "continue this thread": id "_", no children, count 0.
			resolved, err = s.continueThread(ctx, c)
		} else {
			resolved, err = s.moreChildren(ctx, c, r.Children)
		}
		out = append(out, resolved...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *RedditSource) moreChildren(ctx context.Context, parent *types.RawComment, ids []string) ([]*types.RawComment, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	linkID, err := s.validator.ValidateLinkID(parent.LinkID)
	if err != nil {
		return nil, err
	}

	var out []*types.RawComment
	for start := 0; start < len(ids); start += internal.MaxMoreChildrenIDs {
		end := min(start+internal.MaxMoreChildrenIDs, len(ids))
		batch := ids[start:end]
		if err := s.validator.ValidateCommentIDs(batch); err != nil {
			return out, err
		}

		form := url.Values{}
		form.Set("link_id", linkID)
		form.Set("children", strings.Join(batch, ","))
		form.Set("api_type", "json")

		req, err := s.client.NewRequest(ctx, http.MethodPost, "api/morechildren", nil, strings.NewReader(form.Encode()))
		if err != nil {
			return out, err
		}
		body, err := s.client.DoRaw(req)
		if err != nil {
			return out, err
		}
		flat, err := s.parser.ParseMoreChildren(body)
		if err != nil {
			return out, err
		}
		out = append(out, internal.NestReplies(parent.Name, flat)...)
	}

	s.logger.Debug("resolved placeholder", "comment_id", parent.ID, "requested", len(ids), "resolved", len(out))
	return out, nil
}

func (s *RedditSource) continueThread(ctx context.Context, parent *types.RawComment) ([]*types.RawComment, error) {
	postID := strings.TrimPrefix(parent.LinkID, types.KindLink+"_")
	_, list, err := s.thread(ctx, postID, url.Values{"comment": {parent.ID}})
	if err != nil {
		return nil, err
	}
	for _, focused := range list {
		if focused.ID == parent.ID {
			return focused.Replies, nil
		}
	}
	return nil, nil
}

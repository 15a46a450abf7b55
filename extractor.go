package extractor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jamesprial/go-reddit-extractor/internal"
	"github.com/jamesprial/go-reddit-extractor/pkg/comments"
	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/media"
	"github.com/jamesprial/go-reddit-extractor/pkg/retry"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
	"github.com/jamesprial/go-reddit-extractor/pkg/validation"
)

// Comment limits and depth bounds.
const (
	// AllComments retrieves every top-level comment.
	AllComments = comments.LimitAll
	// NoComments skips comment retrieval entirely.
	NoComments = 0
	// UnlimitedDepth expands replies at every depth.
	UnlimitedDepth = comments.Unlimited
)

// CommentOptions selects which comments Fetch retrieves.
type CommentOptions struct {
	// Sort defaults to types.SortBest.
	Sort types.SortOrder
	// Limit is the number of top-level comments: AllComments, NoComments or
	// a positive count.
	Limit int
	// MaxDepth bounds reply expansion. 0 keeps only top-level comments.
	MaxDepth int
}

// DefaultCommentOptions returns every comment at every depth in best order.
func DefaultCommentOptions() CommentOptions {
	return CommentOptions{Sort: types.SortBest, Limit: AllComments, MaxDepth: UnlimitedDepth}
}

// Extractor fetches a post and its comment tree from a RemoteSource.
type Extractor struct {
	source    RemoteSource
	retrier   *retry.Retrier
	validator *internal.Validator
	logger    *slog.Logger
}

// New creates an Extractor backed by a RedditSource built from config.
func New(config *Config) (*Extractor, error) {
	source, err := NewRedditSource(config)
	if err != nil {
		return nil, err
	}
	return NewWithSource(source, config)
}

// NewWithSource creates an Extractor over any RemoteSource. Only the
// Retry, Logger and Registerer fields of config are used; config may be nil.
func NewWithSource(source RemoteSource, config *Config) (*Extractor, error) {
	if source == nil {
		return nil, &pkgerrs.ConfigError{Field: "source", Message: "remote source cannot be nil"}
	}
	if config == nil {
		config = &Config{}
	}
	cfg := config.withDefaults()

	retrier := retry.New(cfg.Retry, cfg.Logger)
	if cfg.Registerer != nil {
		metrics, err := retry.NewMetrics(cfg.Registerer)
		if err != nil {
			return nil, &pkgerrs.ConfigError{Field: "Registerer", Message: err.Error()}
		}
		retrier.Metrics = metrics
	}

	return &Extractor{
		source:    source,
		retrier:   retrier,
		validator: internal.NewValidator(),
		logger:    cfg.Logger,
	}, nil
}

// Fetch retrieves the post with the given ID (bare or "t3_" prefixed) and,
// unless opts.Limit is NoComments, its comment tree. The returned error is
// one of *errors.ConfigError, *errors.AuthError, *errors.PostRetrievalError
// or *errors.CommentRetrievalError.
func (e *Extractor) Fetch(ctx context.Context, postID string, opts CommentOptions) (*types.Thread, error) {
	id, err := e.validator.ValidatePostID(postID)
	if err != nil {
		return nil, err
	}
	if err := e.validator.ValidateCommentOptions(opts.Limit, opts.MaxDepth); err != nil {
		return nil, err
	}

	logger := e.logger.With("request_id", uuid.NewString(), "post_id", id)
	r := *e.retrier
	r.Logger = logger

	logger.Info("fetching post")
	raw, err := retry.Do(ctx, &r, retry.KindPost, func(ctx context.Context) (*types.RawPost, error) {
		p, err := e.source.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil || p.Title == "" {
			return nil, &pkgerrs.PostRetrievalError{PostID: id, Message: "post is deleted, private, or does not exist"}
		}
		if p.RemovedByCategory != nil && p.Author == types.DeletedAuthor {
			return nil, &pkgerrs.PostRetrievalError{PostID: id, Message: "post was removed (" + *p.RemovedByCategory + ")"}
		}
		return p, nil
	})
	if err != nil {
		return nil, withPostID(err, id)
	}
	if err := validation.ValidateRawPost(raw); err != nil {
		logger.Warn("post record failed validation", "error", err)
	}

	thread := &types.Thread{
		Post:     convertPost(raw, media.Classify(raw, logger)),
		Comments: []*types.Comment{},
	}

	if opts.Limit == NoComments {
		logger.Info("skipping comments")
		return thread, nil
	}

	builder := comments.NewBuilder(logger)
	tree, err := retry.Do(ctx, &r, retry.KindComments, func(ctx context.Context) ([]*types.Comment, error) {
		return builder.Build(ctx, e.source, raw, comments.Options{
			Sort:     opts.Sort,
			Limit:    opts.Limit,
			MaxDepth: opts.MaxDepth,
		})
	})
	if err != nil {
		return nil, withPostID(err, id)
	}
	thread.Comments = tree

	logger.Info("fetched thread",
		"title", raw.Title,
		"media", len(thread.Post.Media),
		"comments", internal.NewCommentTree(tree).Count(),
	)
	return thread, nil
}

// FetchURL extracts the post ID from a Reddit post URL and calls Fetch.
func (e *Extractor) FetchURL(ctx context.Context, rawURL string, opts CommentOptions) (*types.Thread, error) {
	id, err := validation.ExtractPostID(rawURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "URL", Message: err.Error()}
	}
	return e.Fetch(ctx, id, opts)
}

// withPostID fills in the post ID on retrieval errors that lack one.
func withPostID(err error, id string) error {
	switch e := err.(type) {
	case *pkgerrs.PostRetrievalError:
		if e.PostID == "" {
			e.PostID = id
		}
	case *pkgerrs.CommentRetrievalError:
		if e.PostID == "" {
			e.PostID = id
		}
	}
	return err
}

func convertPost(p *types.RawPost, items []types.MediaItem) *types.Post {
	var author *string
	if p.Author != "" && p.Author != types.DeletedAuthor {
		a := p.Author
		author = &a
	}
	return &types.Post{
		ID:                p.ID,
		Title:             p.Title,
		Author:            author,
		CreatedUTC:        p.CreatedUTC,
		URL:               p.URL,
		Permalink:         types.AbsoluteURL(p.Permalink),
		Domain:            p.Domain,
		SelfText:          p.SelfText,
		Score:             p.Score,
		UpvoteRatio:       p.UpvoteRatio,
		NumComments:       p.NumComments,
		IsOriginalContent: p.IsOriginalContent,
		IsSelf:            p.IsSelf,
		IsVideo:           p.IsVideo,
		Over18:            p.Over18,
		Spoiler:           p.Spoiler,
		Locked:            p.Locked,
		Stickied:          p.Stickied,
		Gilded:            p.Gilded,
		Subreddit:         p.Subreddit,
		SubredditID:       p.SubredditID,
		Media:             items,
	}
}

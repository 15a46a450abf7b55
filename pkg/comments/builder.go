// Package comments materializes a bounded comment tree from a remote source.
package comments

import (
	"context"
	"log/slog"
	"sort"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

const (
	// LimitAll requests every top-level comment.
	LimitAll = -1
	// Unlimited disables the depth bound.
	Unlimited = -1

	// DefaultFetchLimit is requested from the source when Limit is 0.
	DefaultFetchLimit = 20
	// MaxFetchLimit is requested from the source when Limit is LimitAll.
	MaxFetchLimit = 1000
)

// Source supplies raw comment records.
type Source interface {
	// TopLevelComments returns the post's top-level comments in the given
	// order. The result may contain load-more placeholders.
	TopLevelComments(ctx context.Context, post *types.RawPost, sort types.SortOrder, limit int) ([]*types.RawComment, error)
	// ExpandReplies returns the direct replies of comment. It may return a
	// partial list together with an error.
	ExpandReplies(ctx context.Context, comment *types.RawComment) ([]*types.RawComment, error)
}

// Options bounds a Build.
type Options struct {
	Sort     types.SortOrder
	Limit    int // top-level comments to keep, or LimitAll
	MaxDepth int // deepest depth whose replies are expanded is MaxDepth-1, or Unlimited
}

// FetchLimit is the number of top-level records requested from the source
// for a given Limit. Twice the limit leaves room for skipped records.
func FetchLimit(limit int) int {
	switch {
	case limit < 0:
		return MaxFetchLimit
	case limit == 0:
		return DefaultFetchLimit
	case limit > MaxFetchLimit/2:
		return MaxFetchLimit
	}
	return limit * 2
}

// Builder turns raw records into a tree of types.Comment.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger discards output.
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{logger: logger}
}

// Build fetches the top-level comments of post and expands their replies
// depth-first. Placeholders and comments without a live author or body are
// dropped. Only the top-level fetch, or cancellation of ctx, fails Build;
// reply errors are logged and the affected node keeps what was collected.
func (b *Builder) Build(ctx context.Context, src Source, post *types.RawPost, opts Options) ([]*types.Comment, error) {
	order := opts.Sort.Normalize()
	if order == "" {
		order = types.SortBest
	}
	if !order.Valid() {
		b.logger.Warn("unknown comment sort, using best", "sort", string(order))
		order = types.SortBest
	}
	fetchOrder := order
	if order == types.SortScore {
		fetchOrder = types.SortTop
	}

	raw, err := src.TopLevelComments(ctx, post, fetchOrder, FetchLimit(opts.Limit))
	if err != nil {
		return nil, err
	}
	b.logger.Debug("fetched top-level comments", "count", len(raw), "sort", string(fetchOrder))

	out := make([]*types.Comment, 0)
	for _, rc := range raw {
		if opts.Limit >= 0 && len(out) >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if node, ok := b.process(ctx, src, rc, 0, opts.MaxDepth); ok {
			out = append(out, node)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if order == types.SortScore {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
		if opts.Limit >= 0 && len(out) > opts.Limit {
			out = out[:opts.Limit]
		}
	}
	return out, nil
}

func (b *Builder) process(ctx context.Context, src Source, rc *types.RawComment, depth, maxDepth int) (*types.Comment, bool) {
	if rc == nil || rc.IsPlaceholder() || !rc.HasAuthor() || rc.Body == "" {
		return nil, false
	}

	node := convert(rc, depth)
	if maxDepth >= 0 && depth >= maxDepth {
		return node, true
	}
	if ctx.Err() != nil {
		return node, true
	}

	replies, err := src.ExpandReplies(ctx, rc)
	if err != nil {
		b.logger.Warn("failed to expand replies",
			"comment_id", rc.ID,
			"depth", depth,
			"partial", len(replies),
			"error", err,
		)
	}
	for _, reply := range replies {
		if ctx.Err() != nil {
			break
		}
		if child, ok := b.process(ctx, src, reply, depth+1, maxDepth); ok {
			node.Replies = append(node.Replies, child)
		}
	}
	return node, true
}

func convert(rc *types.RawComment, depth int) *types.Comment {
	return &types.Comment{
		ID:          rc.ID,
		Author:      rc.Author,
		Body:        rc.Body,
		CreatedUTC:  rc.CreatedUTC,
		Score:       rc.Score,
		IsSubmitter: rc.IsSubmitter,
		Stickied:    rc.Stickied,
		ParentID:    rc.ParentID,
		Permalink:   types.AbsoluteURL(rc.Permalink),
		Depth:       depth,
		Replies:     []*types.Comment{},
	}
}

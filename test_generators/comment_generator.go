package test_generators

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// CommentGenerator generates raw Reddit comment trees for testing. Trees
// contain deleted comments and load-more placeholders; the comments hidden
// behind placeholders are kept in Hidden so a MemorySource can resolve them.
type CommentGenerator struct {
	rand    *rand.Rand
	nextID  int64
	linkID  string
	replies []string
	users   []string

	// Hidden maps comment IDs to comments reachable only through a placeholder.
	Hidden map[string]*types.RawComment
}

// ThreadOptions controls comment thread generation characteristics.
type ThreadOptions struct {
	TopLevel        int     // top-level comments
	MaxDepth        int     // deepest reply depth generated
	MinReplies      int     // replies per comment, inclusive range
	MaxReplies      int     // replies per comment, inclusive range
	DeletedRatio    float64 // share of comments with a deleted author
	PlaceholderRate float64 // chance that a comment hides some replies behind a placeholder
	ContinueRate    float64 // chance that a placeholder is "continue this thread"
}

// DefaultThreadOptions returns a medium-sized thread with every record kind.
func DefaultThreadOptions() ThreadOptions {
	return ThreadOptions{
		TopLevel:        8,
		MaxDepth:        4,
		MinReplies:      0,
		MaxReplies:      3,
		DeletedRatio:    0.1,
		PlaceholderRate: 0.3,
		ContinueRate:    0.2,
	}
}

// NewCommentGenerator creates a new comment generator. A zero seed uses the
// current time.
func NewCommentGenerator(seed int64, postID string) *CommentGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &CommentGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		nextID: 1000,
		linkID: types.KindLink + "_" + postID,
		replies: []string{
			"You're absolutely right!",
			"I see what you mean, but...",
			"Interesting perspective!",
			"I hadn't thought of it that way.",
			"Thanks for explaining!",
			"Could you provide more details?",
			"I respectfully disagree.",
			"Source: https://i.redd.it/evidence.png",
		},
		users: []string{
			"thoughtful_commenter", "expert_analyst", "casual_observer", "debate_enthusiast",
			"helpful_explainer", "skeptic_user", "supportive_member", "critical_thinker",
		},
		Hidden: make(map[string]*types.RawComment),
	}
}

// GenerateComment creates a single live comment under parentName.
func (cg *CommentGenerator) GenerateComment(parentName string) *types.RawComment {
	id := cg.newID()
	return &types.RawComment{
		ThingData:  types.ThingData{ID: id, Name: types.KindComment + "_" + id},
		Kind:       types.KindComment,
		Author:     cg.randElement(cg.users),
		Body:       cg.randElement(cg.replies),
		Score:      cg.rand.Intn(2000) - 100,
		CreatedUTC: float64(1700000000 + cg.rand.Intn(86400)),
		ParentID:   parentName,
		LinkID:     cg.linkID,
		Permalink:  fmt.Sprintf("/r/test/comments/%s/t/%s/", cg.linkID[3:], id),
	}
}

// GenerateThread creates the top-level records of a thread. The returned
// slice may end with a placeholder for further top-level comments.
func (cg *CommentGenerator) GenerateThread(opts ThreadOptions) []*types.RawComment {
	return cg.generateLevel(cg.linkID, opts.TopLevel, 0, opts)
}

func (cg *CommentGenerator) generateLevel(parentName string, count, depth int, opts ThreadOptions) []*types.RawComment {
	level := make([]*types.RawComment, 0, count)
	for range count {
		c := cg.GenerateComment(parentName)
		if cg.rand.Float64() < opts.DeletedRatio {
			c.Author = types.DeletedAuthor
			c.Body = "[deleted]"
		}
		if depth < opts.MaxDepth {
			n := opts.MinReplies
			if opts.MaxReplies > opts.MinReplies {
				n += cg.rand.Intn(opts.MaxReplies - opts.MinReplies + 1)
			}
			c.Replies = cg.generateLevel(c.Name, n, depth+1, opts)
		}
		level = append(level, c)
	}

	if len(level) < 2 || cg.rand.Float64() >= opts.PlaceholderRate {
		return level
	}

	// Hide the tail of this level behind a placeholder; the first record
	// always stays visible.
	cut := 1 + cg.rand.Intn(len(level)-1)
	hidden := level[cut:]
	more := &types.RawComment{
		ThingData: types.ThingData{ID: hidden[0].ID, Name: hidden[0].Name},
		Kind:      types.KindMore,
		ParentID:  parentName,
		Count:     len(hidden),
	}
	if depth > 0 && cg.rand.Float64() < opts.ContinueRate {
		more.ID, more.Name, more.Count = "_", types.KindComment+"__", 0
	}
	for _, h := range hidden {
		cg.Hidden[h.ID] = h
		if more.ID != "_" {
			more.Children = append(more.Children, h.ID)
		}
	}
	if more.ID == "_" {
		cg.Hidden["_"+parentName] = &types.RawComment{Replies: hidden}
	}
	return append(level[:cut:cut], more)
}

func (cg *CommentGenerator) newID() string {
	cg.nextID++
	return strconv.FormatInt(cg.nextID, 36)
}

func (cg *CommentGenerator) randElement(slice []string) string {
	return slice[cg.rand.Intn(len(slice))]
}

// MemorySource serves a generated thread as a comments.Source.
type MemorySource struct {
	Top    []*types.RawComment
	Hidden map[string]*types.RawComment

	// ExpandErr, when set, is returned by ExpandReplies after the first
	// placeholder it meets, together with the replies gathered so far.
	ExpandErr error
}

// NewMemorySource creates a source for a thread produced by cg.
func NewMemorySource(cg *CommentGenerator, top []*types.RawComment) *MemorySource {
	return &MemorySource{Top: top, Hidden: cg.Hidden}
}

// TopLevelComments returns up to limit top-level records.
func (s *MemorySource) TopLevelComments(ctx context.Context, _ *types.RawPost, _ types.SortOrder, limit int) ([]*types.RawComment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(s.Top) {
		return s.Top[:limit], nil
	}
	return s.Top, nil
}

// ExpandReplies returns the replies of c with placeholders resolved.
func (s *MemorySource) ExpandReplies(ctx context.Context, c *types.RawComment) ([]*types.RawComment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*types.RawComment, 0, len(c.Replies))
	for _, r := range c.Replies {
		if !r.IsPlaceholder() {
			out = append(out, r)
			continue
		}
		if s.ExpandErr != nil {
			return out, s.ExpandErr
		}
		if len(r.Children) == 0 {
			if cont, ok := s.Hidden["_"+c.Name]; ok {
				out = append(out, cont.Replies...)
			}
			continue
		}
		for _, id := range r.Children {
			if h, ok := s.Hidden[id]; ok {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// CountLive returns the number of comments with a live author and body
// reachable from top when replies are expanded down to maxDepth (-1 for
// unlimited), including those behind placeholders. A deleted comment hides
// its subtree.
func CountLive(top []*types.RawComment, hidden map[string]*types.RawComment, maxDepth int) int {
	src := &MemorySource{Top: top, Hidden: hidden}
	var count func(list []*types.RawComment, depth int) int
	count = func(list []*types.RawComment, depth int) int {
		n := 0
		for _, c := range list {
			if c == nil || c.IsPlaceholder() || !c.HasAuthor() || c.Body == "" {
				continue
			}
			n++
			if maxDepth >= 0 && depth >= maxDepth {
				continue
			}
			replies, _ := src.ExpandReplies(context.Background(), c)
			n += count(replies, depth+1)
		}
		return n
	}
	return count(top, 0)
}

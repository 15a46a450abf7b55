// Package test_utils holds shape checks for extracted threads shared by the
// package tests. Each check returns an error describing the first violation.
package test_utils

import (
	"errors"
	"fmt"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
	"github.com/jamesprial/go-reddit-extractor/pkg/validation"
)

func AssertValidID(id string) error {
	if id == "" {
		return fmt.Errorf("id is empty")
	}
	if !validation.IsValidBase36(id) {
		return fmt.Errorf("id has invalid format: %s", id)
	}
	return nil
}

func AssertValidFullname(fullname string) error {
	if fullname == "" {
		return fmt.Errorf("fullname is empty")
	}
	if !validation.IsValidFullname(fullname) {
		return fmt.Errorf("fullname has invalid format: %s", fullname)
	}
	return nil
}

// AssertPermalink checks that a permalink is absolute on www.reddit.com.
// An empty permalink is accepted.
func AssertPermalink(permalink string) error {
	if permalink == "" {
		return nil
	}
	if !strings.HasPrefix(permalink, types.WebBaseURL+"/") {
		return fmt.Errorf("permalink is not absolute: %s", permalink)
	}
	return nil
}

func AssertValidPost(post *types.Post) error {
	if post == nil {
		return fmt.Errorf("post is nil")
	}
	if err := AssertValidID(post.ID); err != nil {
		return fmt.Errorf("post: %w", err)
	}
	if post.Title == "" {
		return fmt.Errorf("post %s has no title", post.ID)
	}
	if post.Author != nil && (*post.Author == "" || *post.Author == types.DeletedAuthor) {
		return fmt.Errorf("post %s author should be nil, got %q", post.ID, *post.Author)
	}
	if err := AssertPermalink(post.Permalink); err != nil {
		return fmt.Errorf("post %s: %w", post.ID, err)
	}
	for i, m := range post.Media {
		if m.Type == "" {
			return fmt.Errorf("post %s media[%d] has no type", post.ID, i)
		}
		if m.URL == "" && m.HLSURL == "" && m.HTMLEmbed == "" {
			return fmt.Errorf("post %s media[%d] (%s) has no location", post.ID, i, m.Type)
		}
	}
	return nil
}

func AssertValidComment(c *types.Comment) error {
	if c == nil {
		return fmt.Errorf("comment is nil")
	}
	if err := AssertValidID(c.ID); err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	if c.Author == "" || c.Author == types.DeletedAuthor {
		return fmt.Errorf("comment %s has a deleted author", c.ID)
	}
	if c.Body == "" {
		return fmt.Errorf("comment %s has no body", c.ID)
	}
	if c.Replies == nil {
		return fmt.Errorf("comment %s has nil replies", c.ID)
	}
	return AssertPermalink(c.Permalink)
}

// AssertCommentThreadValid checks every comment of a tree, that depths
// increase by one per level and stay within maxDepth (negative means
// unbounded), and that each reply points at its parent.
func AssertCommentThreadValid(comments []*types.Comment, maxDepth int) error {
	var walk func(level []*types.Comment, parent *types.Comment, depth int) error
	walk = func(level []*types.Comment, parent *types.Comment, depth int) error {
		for _, c := range level {
			if err := AssertValidComment(c); err != nil {
				return err
			}
			if c.Depth != depth {
				return fmt.Errorf("comment %s depth = %d, want %d", c.ID, c.Depth, depth)
			}
			if maxDepth >= 0 && c.Depth > maxDepth {
				return fmt.Errorf("comment %s depth %d exceeds %d", c.ID, c.Depth, maxDepth)
			}
			if parent != nil && c.ParentID != "" && c.ParentID != types.KindComment+"_"+parent.ID {
				return fmt.Errorf("comment %s parent = %s, want t1_%s", c.ID, c.ParentID, parent.ID)
			}
			if parent == nil && c.ParentID != "" && !strings.HasPrefix(c.ParentID, types.KindLink+"_") {
				return fmt.Errorf("top-level comment %s has parent %s", c.ID, c.ParentID)
			}
			if err := walk(c.Replies, c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(comments, nil, 0)
}

// AssertValidThread checks the post and the comment tree of a thread.
func AssertValidThread(thread *types.Thread, maxDepth int) error {
	if thread == nil {
		return fmt.Errorf("thread is nil")
	}
	if err := AssertValidPost(thread.Post); err != nil {
		return err
	}
	if thread.Comments == nil {
		return fmt.Errorf("thread comments are nil")
	}
	return AssertCommentThreadValid(thread.Comments, maxDepth)
}

// CommentIDs lists the IDs of a tree in depth-first order.
func CommentIDs(comments []*types.Comment) []string {
	var ids []string
	for _, c := range comments {
		ids = append(ids, c.ID)
		ids = append(ids, CommentIDs(c.Replies)...)
	}
	return ids
}

// AssertCommentIDs compares the depth-first IDs of a tree with want.
func AssertCommentIDs(comments []*types.Comment, want ...string) error {
	got := CommentIDs(comments)
	if len(got) != len(want) {
		return fmt.Errorf("comment ids = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("comment ids = %v, want %v", got, want)
		}
	}
	return nil
}

// AssertErrorType checks that err unwraps to one of the extractor error
// kinds, named as "config", "auth", "post" or "comments".
func AssertErrorType(err error, kind string) error {
	if err == nil {
		return fmt.Errorf("expected %s error, got nil", kind)
	}
	var ok bool
	switch kind {
	case "config":
		var target *pkgerrs.ConfigError
		ok = errors.As(err, &target)
	case "auth":
		var target *pkgerrs.AuthError
		ok = errors.As(err, &target)
	case "post":
		var target *pkgerrs.PostRetrievalError
		ok = errors.As(err, &target)
	case "comments":
		var target *pkgerrs.CommentRetrievalError
		ok = errors.As(err, &target)
	default:
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if !ok {
		return fmt.Errorf("expected %s error, got %T: %v", kind, err, err)
	}
	return nil
}

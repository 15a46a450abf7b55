package internal

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// MaxCommentDepth bounds how many levels of embedded replies are parsed.
// Deeper replies are dropped.
const MaxCommentDepth = 50

// Parser handles parsing of Reddit API responses
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseListing extracts a ListingData from a Thing of kind "Listing".
func (p *Parser) ParseListing(thing *types.Thing) (*types.ListingData, error) {
	if thing == nil {
		return nil, fmt.Errorf("thing is nil")
	}
	if thing.Kind != types.KindListing {
		return nil, fmt.Errorf("expected Listing, got %s", thing.Kind)
	}

	var listing types.ListingData
	if err := json.Unmarshal(thing.Data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse Listing data: %w", err)
	}
	return &listing, nil
}

// ParseLink extracts a RawPost from a Thing of kind "t3".
func (p *Parser) ParseLink(thing *types.Thing) (*types.RawPost, error) {
	if thing == nil {
		return nil, fmt.Errorf("thing is nil")
	}
	if thing.Kind != types.KindLink {
		return nil, fmt.Errorf("expected t3 (Link), got %s", thing.Kind)
	}

	var post types.RawPost
	if err := json.Unmarshal(thing.Data, &post); err != nil {
		return nil, fmt.Errorf("failed to parse Link data: %w", err)
	}
	return &post, nil
}

// ParseComment extracts a RawComment from a Thing of kind "t1", including
// its embedded replies.
func (p *Parser) ParseComment(thing *types.Thing) (*types.RawComment, error) {
	return p.parseComment(thing, 0)
}

func (p *Parser) parseComment(thing *types.Thing, depth int) (*types.RawComment, error) {
	if thing == nil {
		return nil, fmt.Errorf("thing is nil")
	}
	if thing.Kind != types.KindComment {
		return nil, fmt.Errorf("expected t1 (Comment), got %s", thing.Kind)
	}

	var comment types.RawComment
	if err := json.Unmarshal(thing.Data, &comment); err != nil {
		return nil, fmt.Errorf("failed to parse Comment data: %w", err)
	}
	comment.Kind = types.KindComment

	// Reddit sends "" instead of a Listing when there are no replies.
	var rawData struct {
		Replies json.RawMessage `json:"replies"`
	}
	if depth+1 >= MaxCommentDepth {
		return &comment, nil
	}
	if err := json.Unmarshal(thing.Data, &rawData); err == nil && len(rawData.Replies) > 0 && rawData.Replies[0] == '{' {
		var repliesThing types.Thing
		if err := json.Unmarshal(rawData.Replies, &repliesThing); err == nil {
			replies, err := p.extractComments(&repliesThing, depth+1)
			if err != nil {
				return nil, fmt.Errorf("failed to parse replies of %s: %w", comment.ID, err)
			}
			comment.Replies = replies
		}
	}

	return &comment, nil
}

// ParseMore extracts a load-more placeholder from a Thing of kind "more".
func (p *Parser) ParseMore(thing *types.Thing) (*types.RawComment, error) {
	if thing == nil {
		return nil, fmt.Errorf("thing is nil")
	}
	if thing.Kind != types.KindMore {
		return nil, fmt.Errorf("expected more, got %s", thing.Kind)
	}

	var more types.RawComment
	if err := json.Unmarshal(thing.Data, &more); err != nil {
		return nil, fmt.Errorf("failed to parse More data: %w", err)
	}
	more.Kind = types.KindMore
	return &more, nil
}

// parseChild parses one listing child. Unknown kinds return nil, nil.
func (p *Parser) parseChild(child *types.Thing, depth int) (*types.RawComment, error) {
	if child == nil {
		return nil, nil
	}
	switch child.Kind {
	case types.KindComment:
		return p.parseComment(child, depth)
	case types.KindMore:
		return p.ParseMore(child)
	}
	return nil, nil
}

// ExtractComments returns the comments and placeholders of a comment
// listing in listing order.
func (p *Parser) ExtractComments(thing *types.Thing) ([]*types.RawComment, error) {
	return p.extractComments(thing, 0)
}

func (p *Parser) extractComments(thing *types.Thing, depth int) ([]*types.RawComment, error) {
	listingData, err := p.ParseListing(thing)
	if err != nil {
		return nil, err
	}

	comments := make([]*types.RawComment, 0, len(listingData.Children))
	for _, child := range listingData.Children {
		c, err := p.parseChild(child, depth)
		if err != nil {
			return nil, err
		}
		if c != nil {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// ExtractPostAndComments parses the response of /comments/{id}, which is
// the array [post_listing, comments_listing]. A post listing without a t3
// child yields a nil post and no error.
func (p *Parser) ExtractPostAndComments(response []*types.Thing) (*types.RawPost, []*types.RawComment, error) {
	if len(response) < 2 {
		return nil, nil, &pkgerrs.ParseError{Operation: "comments", Message: fmt.Sprintf("expected 2 listings, got %d", len(response))}
	}

	postListing, err := p.ParseListing(response[0])
	if err != nil {
		return nil, nil, &pkgerrs.ParseError{Operation: "comments", Message: "invalid post listing", Err: err}
	}

	var post *types.RawPost
	for _, child := range postListing.Children {
		if child == nil || child.Kind != types.KindLink {
			continue
		}
		post, err = p.ParseLink(child)
		if err != nil {
			return nil, nil, &pkgerrs.ParseError{Operation: "comments", Message: "invalid post", Err: err}
		}
		break
	}

	comments, err := p.ExtractComments(response[1])
	if err != nil {
		return post, nil, &pkgerrs.ParseError{Operation: "comments", Message: "invalid comment listing", Err: err}
	}
	return post, comments, nil
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []*types.Thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// ParseMoreChildren parses an /api/morechildren response. The things come
// back as a flat list in tree order; nesting is recovered from parent_id by
// the caller.
func (p *Parser) ParseMoreChildren(body []byte) ([]*types.RawComment, error) {
	var resp moreChildrenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &pkgerrs.ParseError{Operation: "morechildren", Message: "failed to decode response", Err: err}
	}
	if len(resp.JSON.Errors) > 0 {
		msgs := make([]string, 0, len(resp.JSON.Errors))
		for _, e := range resp.JSON.Errors {
			msgs = append(msgs, fmt.Sprintf("%v", e))
		}
		return nil, &pkgerrs.APIError{ErrorCode: "morechildren", Message: strings.Join(msgs, "; ")}
	}

	things := make([]*types.RawComment, 0, len(resp.JSON.Data.Things))
	for _, thing := range resp.JSON.Data.Things {
		c, err := p.parseChild(thing, 0)
		if err != nil {
			return nil, &pkgerrs.ParseError{Operation: "morechildren", Message: "invalid thing", Err: err}
		}
		if c != nil {
			things = append(things, c)
		}
	}
	return things, nil
}

// NestReplies arranges a flat morechildren result under parent, using each
// record's parent_id. Records whose parent is parentFullname become the
// returned top level; records whose parent is not in the set are dropped.
func NestReplies(parentFullname string, flat []*types.RawComment) []*types.RawComment {
	byName := make(map[string]*types.RawComment, len(flat))
	for _, c := range flat {
		if c.Kind == types.KindComment && c.Name != "" {
			byName[c.Name] = c
		}
	}

	var top []*types.RawComment
	for _, c := range flat {
		if c.ParentID == parentFullname {
			top = append(top, c)
			continue
		}
		if parent, ok := byName[c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return top
}

package internal

import (
	"fmt"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
	"github.com/jamesprial/go-reddit-extractor/pkg/validation"
)

const (
	// Comment ID constraints. /api/morechildren accepts at most 100 IDs per call.
	MaxMoreChildrenIDs = 100
	maxCommentIDLength = 100

	// User agent constraints
	maxUserAgentLength = 256
)

// Validator provides validation operations for Reddit API parameters.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePostID normalizes a post ID, accepting a bare base36 ID or a t3_
// fullname.
func (v *Validator) ValidatePostID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &pkgerrs.ConfigError{Field: "PostID", Message: "post ID is required"}
	}
	normalized, err := validation.NormalizePostID(id)
	if err != nil {
		return "", &pkgerrs.ConfigError{Field: "PostID", Message: err.Error()}
	}
	return normalized, nil
}

// ValidateCommentOptions checks the limit and depth bounds. -1 means
// unbounded for both. The sort order is not checked here: the comment
// builder falls back to best for an unknown one.
func (v *Validator) ValidateCommentOptions(limit, maxDepth int) error {
	if limit < -1 {
		return &pkgerrs.ConfigError{Field: "Limit", Message: fmt.Sprintf("limit must be -1 (all), 0 (none) or positive, got %d", limit)}
	}
	if maxDepth < -1 {
		return &pkgerrs.ConfigError{Field: "MaxDepth", Message: fmt.Sprintf("max depth must be -1 (unlimited) or non-negative, got %d", maxDepth)}
	}
	return nil
}

// ValidateLinkID normalizes a link ID to its t3_ fullname form.
func (v *Validator) ValidateLinkID(linkID string) (string, error) {
	if linkID == "" {
		return "", &pkgerrs.ConfigError{Field: "LinkID", Message: "link ID is required"}
	}
	prefix := types.KindLink + "_"
	if len(linkID) > 3 && linkID[0] == 't' && linkID[2] == '_' && !strings.HasPrefix(linkID, prefix) {
		return "", &pkgerrs.ConfigError{Field: "LinkID", Message: fmt.Sprintf("link ID %q has wrong type prefix", linkID)}
	}
	if linkID == prefix {
		return "", &pkgerrs.ConfigError{Field: "LinkID", Message: "link ID has no content after t3_ prefix"}
	}
	if strings.HasPrefix(linkID, prefix) {
		return linkID, nil
	}
	return prefix + linkID, nil
}

// ValidateCommentIDs checks if the comment IDs slice is within Reddit's API limits.
// Returns an error if there are too many IDs or if any ID is invalid.
func (v *Validator) ValidateCommentIDs(ids []string) error {
	if len(ids) > MaxMoreChildrenIDs {
		return &pkgerrs.ConfigError{Field: "CommentIDs", Message: fmt.Sprintf("cannot request more than %d comment IDs at once (got %d)", MaxMoreChildrenIDs, len(ids))}
	}

	for i, id := range ids {
		if err := validateCommentID(id); err != nil {
			return &pkgerrs.ConfigError{
				Field:   fmt.Sprintf("CommentIDs[%d]", i),
				Message: fmt.Sprintf("invalid comment ID at index %d: %v", i, err),
			}
		}
	}

	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}

	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}

	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}

	return nil
}

// validateCommentID validates the format and content of a single comment ID.
func validateCommentID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("comment ID cannot be empty")
	}

	if len(id) > maxCommentIDLength {
		return fmt.Errorf("comment ID too long (max %d characters)", maxCommentIDLength)
	}

	// Reddit comment IDs are alphanumeric base36 strings
	for _, char := range id {
		if !((char >= '0' && char <= '9') ||
			(char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z')) {
			return fmt.Errorf("comment ID contains invalid character: %c (only alphanumeric allowed)", char)
		}
	}

	return nil
}

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// MaxPostTitleLength is Reddit's limit on post titles.
const MaxPostTitleLength = 300

// Regular expressions for validating Reddit data formats
var (
	// base36Regex matches base36 encoded IDs (0-9, a-z)
	base36Regex = regexp.MustCompile(`^[0-9a-z]+$`)

	// subredditRegex matches valid subreddit names (3-21 chars, alphanumeric + underscore)
	subredditRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,21}$`)

	// usernameRegex matches valid Reddit usernames (3-20 chars, alphanumeric + underscore + hyphen)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

	// fullnameRegex matches Reddit fullname IDs (type prefix + base36 ID)
	fullnameRegex = regexp.MustCompile(`^t[1-6]_[0-9a-z]+$`)

	// Post URL forms: www/bare, old, and the redd.it short link. Each
	// tolerates a trailing title slug, query string and fragment.
	postURLRegexes = []*regexp.Regexp{
		regexp.MustCompile(`^https?://(?:www\.)?reddit\.com/r/[\w]+/comments/[\w]+(?:/[^\s/?#]*)*/?(?:\?[^\s#]*)?(?:#\S*)?$`),
		regexp.MustCompile(`^https?://old\.reddit\.com/r/[\w]+/comments/[\w]+(?:/[^\s/?#]*)*/?(?:\?[^\s#]*)?(?:#\S*)?$`),
		regexp.MustCompile(`^https?://(?:www\.)?redd\.it/[\w]+/?(?:\?[^\s#]*)?(?:#\S*)?$`),
	}

	commentsIDRegex = regexp.MustCompile(`/comments/([\w]+)(?:/|$|\?|#)`)
	shortIDRegex    = regexp.MustCompile(`redd\.it/([\w]+)(?:/|$|\?|#)`)
)

// IsValidBase36 checks if a string is a valid base36 encoded ID
func IsValidBase36(s string) bool {
	return s != "" && base36Regex.MatchString(s)
}

// IsValidSubreddit checks if a string is a valid subreddit name
func IsValidSubreddit(s string) bool {
	return subredditRegex.MatchString(s)
}

// IsValidUsername checks if a string is a valid Reddit username
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidFullname checks if a string is a valid Reddit fullname ID
func IsValidFullname(s string) bool {
	return fullnameRegex.MatchString(s)
}

// IsPostURL reports whether rawURL is a Reddit post URL in one of the
// www.reddit.com, old.reddit.com or redd.it forms.
func IsPostURL(rawURL string) bool {
	for _, re := range postURLRegexes {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// ExtractPostID returns the post ID embedded in a Reddit post URL.
func ExtractPostID(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !IsPostURL(rawURL) {
		return "", fmt.Errorf("not a Reddit post URL: %q", rawURL)
	}
	if m := commentsIDRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	if m := shortIDRegex.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no post ID in URL: %q", rawURL)
}

// NormalizePostID strips an optional "t3_" prefix and checks the result is
// a base36 ID.
func NormalizePostID(id string) (string, error) {
	id = strings.TrimPrefix(strings.TrimSpace(id), types.KindLink+"_")
	if !IsValidBase36(id) {
		return "", fmt.Errorf("post ID has invalid format: %q", id)
	}
	return id, nil
}

// ValidateRawPost checks a post record for fields a well-formed listing
// always carries. Deleted authors are allowed.
func ValidateRawPost(p *types.RawPost) error {
	if p == nil {
		return fmt.Errorf("post is nil")
	}

	var errs []error

	if p.ID == "" {
		errs = append(errs, fmt.Errorf("ID is required"))
	} else if !IsValidBase36(p.ID) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %s", p.ID))
	}
	if p.Name != "" && !IsValidFullname(p.Name) {
		errs = append(errs, fmt.Errorf("Name has invalid fullname format: %s", p.Name))
	}

	if p.Title == "" {
		errs = append(errs, fmt.Errorf("Title is required"))
	} else if len(p.Title) > MaxPostTitleLength {
		errs = append(errs, fmt.Errorf("Title exceeds %d character limit (%d chars)", MaxPostTitleLength, len(p.Title)))
	}

	if p.Subreddit != "" && !IsValidSubreddit(p.Subreddit) {
		errs = append(errs, fmt.Errorf("Subreddit has invalid format: %s", p.Subreddit))
	}
	if p.SubredditID != "" && !IsValidFullname(p.SubredditID) {
		errs = append(errs, fmt.Errorf("SubredditID has invalid fullname format: %s", p.SubredditID))
	}

	if p.Author != "" && p.Author != types.DeletedAuthor && !IsValidUsername(p.Author) {
		errs = append(errs, fmt.Errorf("Author has invalid username format: %s", p.Author))
	}

	if p.UpvoteRatio < 0 || p.UpvoteRatio > 1 {
		errs = append(errs, fmt.Errorf("UpvoteRatio must be between 0 and 1, got %f", p.UpvoteRatio))
	}
	if p.NumComments < 0 {
		errs = append(errs, fmt.Errorf("NumComments cannot be negative, got %d", p.NumComments))
	}

	if len(errs) > 0 {
		return fmt.Errorf("post validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidatePlaceholder validates a load-more record's child IDs.
func ValidatePlaceholder(c *types.RawComment) error {
	if c == nil {
		return fmt.Errorf("placeholder is nil")
	}
	if !c.IsPlaceholder() {
		return fmt.Errorf("record %q is not a placeholder", c.ID)
	}

	var errs []error
	for i, childID := range c.Children {
		if !IsValidBase36(childID) {
			errs = append(errs, fmt.Errorf("Child ID at index %d has invalid format: %s", i, childID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("placeholder validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

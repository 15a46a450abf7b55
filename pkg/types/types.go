package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kinds of Reddit things the extractor understands.
const (
	KindComment = "t1"
	KindLink    = "t3"
	KindListing = "Listing"
	KindMore    = "more"
)

// DeletedAuthor is the author name Reddit reports for deleted accounts.
const DeletedAuthor = "[deleted]"

// ThingData holds the common identifier fields for Reddit objects.
type ThingData struct {
	ID   string `json:"id"`   // ID (without prefix)
	Name string `json:"name"` // Full name (e.g., "t3_abc123")
}

// GetID returns the object's ID.
func (td ThingData) GetID() string {
	return td.ID
}

// GetName returns the object's full name.
func (td ThingData) GetName() string {
	return td.Name
}

// Thing is the envelope Reddit wraps every API object in.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// ListingData contains the data for a Listing.
type ListingData struct {
	BeforeFullname string   `json:"before"`
	AfterFullname  string   `json:"after"`
	Children       []*Thing `json:"children"` // Raw Things with kind+data, parsed by caller
}

// Edited represents a field that can be a boolean or a timestamp.
type Edited struct {
	IsEdited  bool
	Timestamp float64
}

// UnmarshalJSON implements json.Unmarshaler to handle mixed types for the "edited" field.
func (e *Edited) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(string(data))
	switch s {
	case "false", "null":
		e.IsEdited, e.Timestamp = false, 0
		return nil
	case "true":
		e.IsEdited, e.Timestamp = true, 0
		return nil
	}

	var timestamp float64
	if err := json.Unmarshal(data, &timestamp); err == nil {
		e.IsEdited = true
		e.Timestamp = timestamp
		return nil
	}

	return fmt.Errorf("unrecognized type for 'edited' field: %s", string(data))
}

// RawPost is a post ("t3") record as delivered by a RemoteSource.
// Media-related fields are kept raw; media.Classify interprets them.
type RawPost struct {
	ThingData
	Title             string          `json:"title"`
	Author            string          `json:"author"`
	CreatedUTC        float64         `json:"created_utc"`
	URL               string          `json:"url"`
	Permalink         string          `json:"permalink"`
	Domain            string          `json:"domain"`
	SelfText          string          `json:"selftext"`
	Score             int             `json:"score"`
	UpvoteRatio       float64         `json:"upvote_ratio"`
	NumComments       int             `json:"num_comments"`
	IsOriginalContent bool            `json:"is_original_content"`
	IsSelf            bool            `json:"is_self"`
	IsVideo           bool            `json:"is_video"`
	IsGallery         bool            `json:"is_gallery"`
	Over18            bool            `json:"over_18"`
	Spoiler           bool            `json:"spoiler"`
	Locked            bool            `json:"locked"`
	Stickied          bool            `json:"stickied"`
	Gilded            int             `json:"gilded"`
	Subreddit         string          `json:"subreddit"`
	SubredditID       string          `json:"subreddit_id"`
	RemovedByCategory *string         `json:"removed_by_category"`
	Edited            Edited          `json:"edited"`
	Media             json.RawMessage `json:"media"`
	SecureMedia       json.RawMessage `json:"secure_media"`
	MediaEmbed        json.RawMessage `json:"media_embed"`
	Preview           json.RawMessage `json:"preview"`
	MediaMetadata     json.RawMessage `json:"media_metadata"`
	GalleryData       json.RawMessage `json:"gallery_data"`
}

// RawComment is a comment ("t1") or a load-more placeholder ("more") as
// delivered by a RemoteSource.
type RawComment struct {
	ThingData
	Kind        string  `json:"-"`
	Author      string  `json:"author"`
	Body        string  `json:"body"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	IsSubmitter bool    `json:"is_submitter"`
	Stickied    bool    `json:"stickied"`
	ParentID    string  `json:"parent_id"`
	LinkID      string  `json:"link_id"`
	Permalink   string  `json:"permalink"`
	Depth       int     `json:"depth"`
	Edited      Edited  `json:"edited"`

	// Replies holds the embedded reply listing, placeholders included.
	Replies []*RawComment `json:"-"`

	// Children and Count are only set on placeholders.
	Children []string `json:"children"`
	Count    int      `json:"count"`
}

// IsPlaceholder reports whether the record stands in for unexpanded replies.
func (c *RawComment) IsPlaceholder() bool {
	return c != nil && c.Kind == KindMore
}

// HasAuthor reports whether the comment still has a live author.
func (c *RawComment) HasAuthor() bool {
	return c != nil && c.Author != "" && c.Author != DeletedAuthor
}

// Post is the structured snapshot of a root post.
type Post struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Author            *string     `json:"author"`
	CreatedUTC        float64     `json:"created_utc"`
	URL               string      `json:"url"`
	Permalink         string      `json:"permalink"`
	Domain            string      `json:"domain"`
	SelfText          string      `json:"selftext"`
	Score             int         `json:"score"`
	UpvoteRatio       float64     `json:"upvote_ratio"`
	NumComments       int         `json:"num_comments"`
	IsOriginalContent bool        `json:"is_original_content"`
	IsSelf            bool        `json:"is_self"`
	IsVideo           bool        `json:"is_video"`
	Over18            bool        `json:"over_18"`
	Spoiler           bool        `json:"spoiler"`
	Locked            bool        `json:"locked"`
	Stickied          bool        `json:"stickied"`
	Gilded            int         `json:"gilded"`
	Subreddit         string      `json:"subreddit"`
	SubredditID       string      `json:"subreddit_id"`
	Media             []MediaItem `json:"media_info"`
}

// Comment is one node of the materialized comment tree.
type Comment struct {
	ID          string     `json:"id"`
	Author      string     `json:"author"`
	Body        string     `json:"body"`
	CreatedUTC  float64    `json:"created_utc"`
	Score       int        `json:"score"`
	IsSubmitter bool       `json:"is_submitter"`
	Stickied    bool       `json:"stickied"`
	ParentID    string     `json:"parent_id"`
	Permalink   string     `json:"permalink"`
	Depth       int        `json:"depth"`
	Replies     []*Comment `json:"replies"`
}

// Thread is the result of one extraction: the post and its comment tree.
type Thread struct {
	Post     *Post      `json:"post_details"`
	Comments []*Comment `json:"comments"`
}

// MediaType tags a MediaItem.
type MediaType string

const (
	MediaImageGalleryItem    MediaType = "image_gallery_item"
	MediaAnimatedGalleryItem MediaType = "animated_gallery_item"
	MediaRedditVideo         MediaType = "reddit_video"
	MediaImage               MediaType = "image"
	MediaImageLink           MediaType = "image_link"
	MediaYouTubeEmbed        MediaType = "youtube_video_embed"
	MediaExternalImageLink   MediaType = "external_image_link"
)

// MediaItem describes one piece of media attached to a post. Only the
// fields relevant to Type are populated.
type MediaItem struct {
	Type MediaType `json:"type"`
	ID   string    `json:"id,omitempty"`
	URL  string    `json:"url,omitempty"`

	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	MimeType string `json:"mimetype,omitempty"`

	// reddit_video
	HLSURL            string `json:"hls_url,omitempty"`
	DashURL           string `json:"dash_url,omitempty"`
	DurationSeconds   int    `json:"duration_seconds,omitempty"`
	IsGIF             bool   `json:"is_gif,omitempty"`
	TranscodingStatus string `json:"transcoding_status,omitempty"`

	// image_link
	PreviewURL string `json:"preview_url,omitempty"`

	// youtube_video_embed
	HTMLEmbed    string `json:"html_embed,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// SortOrder selects how comments are ordered.
type SortOrder string

const (
	SortBest          SortOrder = "best"
	SortTop           SortOrder = "top"
	SortNew           SortOrder = "new"
	SortControversial SortOrder = "controversial"
	SortOld           SortOrder = "old"
	SortQA            SortOrder = "q&a"
	// SortScore is fetched as SortTop and re-sorted locally by score.
	SortScore SortOrder = "score"
)

// SortOrders lists every accepted sort order.
var SortOrders = []SortOrder{SortBest, SortTop, SortNew, SortControversial, SortOld, SortQA, SortScore}

// Normalize lowercases s and trims surrounding whitespace, so "TOP" and
// " top" both name SortTop.
func (s SortOrder) Normalize() SortOrder {
	return SortOrder(strings.ToLower(strings.TrimSpace(string(s))))
}

// Valid reports whether s is one of the accepted sort orders. Case is
// significant; call Normalize first for user input.
func (s SortOrder) Valid() bool {
	for _, o := range SortOrders {
		if s == o {
			return true
		}
	}
	return false
}

// APIValue returns the value Reddit's "sort" query parameter expects.
func (s SortOrder) APIValue() string {
	switch s {
	case SortBest:
		return "confidence"
	case SortQA:
		return "qa"
	case SortScore:
		return "top"
	}
	return string(s)
}

// WebBaseURL prefixes relative permalinks.
const WebBaseURL = "https://www.reddit.com"

// AbsoluteURL turns a site-relative path such as a permalink into an
// absolute URL. Absolute inputs and empty strings are returned unchanged.
func AbsoluteURL(path string) string {
	if strings.HasPrefix(path, "/") {
		return WebBaseURL + path
	}
	return path
}

package test_generators

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// MediaShape names the kind of media a generated post carries.
type MediaShape int

const (
	ShapeSelf MediaShape = iota
	ShapeImage
	ShapeGallery
	ShapeRedditVideo
	ShapeYouTube
	ShapeImageLink
	ShapeExternalImage
)

// Shapes lists every MediaShape.
var Shapes = []MediaShape{ShapeSelf, ShapeImage, ShapeGallery, ShapeRedditVideo, ShapeYouTube, ShapeImageLink, ShapeExternalImage}

// ExpectedType is the media type Classify reports for a post of this shape,
// or "" when no media is expected.
func (s MediaShape) ExpectedType() types.MediaType {
	switch s {
	case ShapeImage:
		return types.MediaImage
	case ShapeGallery:
		return types.MediaImageGalleryItem
	case ShapeRedditVideo:
		return types.MediaRedditVideo
	case ShapeYouTube:
		return types.MediaYouTubeEmbed
	case ShapeImageLink:
		return types.MediaImageLink
	case ShapeExternalImage:
		return types.MediaExternalImageLink
	}
	return ""
}

func (s MediaShape) String() string {
	if t := s.ExpectedType(); t != "" {
		return string(t)
	}
	return "self"
}

// PostGenerator generates raw Reddit posts for testing
type PostGenerator struct {
	rand       *rand.Rand
	titles     []string
	subreddits []string
	users      []string
}

// NewPostGenerator creates a new post generator. A zero seed uses the
// current time.
func NewPostGenerator(seed int64) *PostGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &PostGenerator{
		rand: rand.New(rand.NewSource(seed)),
		titles: []string{
			"[Discussion] What is your favourite pattern?",
			"PSA: update your dependencies",
			"TIL about struct embedding",
			"Look what I made this weekend",
			"Unpopular Opinion: tabs are fine",
		},
		subreddits: []string{"programming", "pics", "videos", "golang", "earthporn"},
		users:      []string{"tech_enthusiast", "casual_redditor", "curious_mind", "power_user"},
	}
}

// GeneratePost creates a post with the given media shape.
func (pg *PostGenerator) GeneratePost(shape MediaShape) *types.RawPost {
	id := fmt.Sprintf("p%05d", pg.rand.Intn(100000))
	sub := pg.randElement(pg.subreddits)
	post := &types.RawPost{
		ThingData:   types.ThingData{ID: id, Name: types.KindLink + "_" + id},
		Title:       pg.randElement(pg.titles),
		Author:      pg.randElement(pg.users),
		Subreddit:   sub,
		Score:       pg.rand.Intn(50000),
		NumComments: pg.rand.Intn(500),
		CreatedUTC:  float64(1700000000 + pg.rand.Intn(86400)),
		Permalink:   fmt.Sprintf("/r/%s/comments/%s/generated/", sub, id),
	}
	w, h := 320+pg.rand.Intn(3000), 240+pg.rand.Intn(3000)

	switch shape {
	case ShapeSelf:
		post.IsSelf = true
		post.Domain = "self." + sub
		post.URL = types.AbsoluteURL(post.Permalink)
		post.SelfText = "Body text."
	case ShapeImage:
		post.Domain = "i.redd.it"
		post.URL = "https://i.redd.it/" + id + ".jpg"
		post.Preview = previewJSON(post.URL, w, h)
	case ShapeGallery:
		post.IsGallery = true
		post.Domain = "reddit.com"
		post.URL = "https://www.reddit.com/gallery/" + id
		n := 2 + pg.rand.Intn(4)
		meta := make(map[string]any, n)
		var items []map[string]string
		for i := range n {
			mid := fmt.Sprintf("m%d%s", i, id)
			meta[mid] = map[string]any{
				"e": "Image",
				"m": "image/jpg",
				"s": map[string]any{"u": "https://preview.redd.it/" + mid + ".jpg", "x": w, "y": h},
			}
			items = append(items, map[string]string{"media_id": mid})
		}
		post.MediaMetadata = mustJSON(meta)
		post.GalleryData = mustJSON(map[string]any{"items": items})
	case ShapeRedditVideo:
		post.IsVideo = true
		post.Domain = "v.redd.it"
		post.URL = "https://v.redd.it/" + id
		post.Media = mustJSON(map[string]any{"reddit_video": map[string]any{
			"fallback_url":       "https://v.redd.it/" + id + "/DASH_720.mp4",
			"hls_url":            "https://v.redd.it/" + id + "/HLSPlaylist.m3u8",
			"dash_url":           "https://v.redd.it/" + id + "/DASHPlaylist.mpd",
			"duration":           1 + pg.rand.Intn(600),
			"width":              w,
			"height":             h,
			"transcoding_status": "completed",
		}})
	case ShapeYouTube:
		post.Domain = "youtube.com"
		post.URL = "https://www.youtube.com/watch?v=" + id
		post.SecureMedia = mustJSON(map[string]any{"oembed": map[string]any{
			"type":          "video",
			"provider_name": "YouTube",
			"html":          "<iframe></iframe>",
			"thumbnail_url": "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
			"title":         post.Title,
		}})
	case ShapeImageLink:
		post.Domain = "example.com"
		post.URL = "https://example.com/" + id + ".png"
		post.Preview = previewJSON("https://preview.redd.it/"+id+".png", w, h)
	case ShapeExternalImage:
		post.Domain = "example.org"
		post.URL = "https://example.org/" + id + ".gif"
	}
	return post
}

// Corrupt replaces one media field of post with malformed JSON.
// It returns false for shapes that carry no media fields.
func (pg *PostGenerator) Corrupt(post *types.RawPost) bool {
	broken := json.RawMessage(pg.randElement([]string{`{"x":`, `[1,2`, `{"s": {"u": 5}`, `{"images": 7}`}))
	switch {
	case post.IsGallery:
		post.MediaMetadata = broken
	case post.IsVideo:
		post.Media = broken
	case len(post.SecureMedia) > 0:
		post.SecureMedia = broken
	case len(post.Preview) > 0:
		post.Preview = broken
	default:
		return false
	}
	return true
}

func (pg *PostGenerator) randElement(slice []string) string {
	return slice[pg.rand.Intn(len(slice))]
}

func previewJSON(url string, w, h int) json.RawMessage {
	return mustJSON(map[string]any{"images": []any{
		map[string]any{"source": map[string]any{"url": url, "width": w, "height": h}},
	}})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

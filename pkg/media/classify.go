// Package media classifies the media attached to a Reddit post.
package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// Domains with special handling.
const (
	domainRedditImage = "i.redd.it"
	domainRedditVideo = "v.redd.it"
	domainImgur       = "i.imgur.com"
)

type galleryItem struct {
	E string         `json:"e"`
	M string         `json:"m"`
	S *gallerySource `json:"s"`
}

type gallerySource struct {
	U   string `json:"u"`
	MP4 string `json:"mp4"`
	GIF string `json:"gif"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

type galleryData struct {
	Items []struct {
		MediaID string `json:"media_id"`
	} `json:"items"`
}

type redditVideo struct {
	FallbackURL       string `json:"fallback_url"`
	HLSURL            string `json:"hls_url"`
	DashURL           string `json:"dash_url"`
	Duration          int    `json:"duration"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	IsGIF             bool   `json:"is_gif"`
	TranscodingStatus string `json:"transcoding_status"`
}

type postMedia struct {
	RedditVideo *redditVideo `json:"reddit_video"`
	OEmbed      *oEmbed      `json:"oembed"`
}

type oEmbed struct {
	Type         string `json:"type"`
	ProviderName string `json:"provider_name"`
	URL          string `json:"url"`
	HTML         string `json:"html"`
	ThumbnailURL string `json:"thumbnail_url"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
}

type preview struct {
	Images []struct {
		Source struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"source"`
	} `json:"images"`
}

// Classify returns the media items attached to post, in rule order:
// gallery, native video, preview image, YouTube embed, external image link.
// Malformed media fields produce an empty list and an error log; Classify
// never fails.
func Classify(post *types.RawPost, logger *slog.Logger) (items []types.MediaItem) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if post == nil {
		return []types.MediaItem{}
	}
	logger = logger.With("post_id", post.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("media extraction panicked", "panic", r)
			items = []types.MediaItem{}
		}
	}()

	items, err := classify(post, logger)
	if err != nil {
		logger.Error("media extraction failed", "error", err)
		return []types.MediaItem{}
	}
	if len(items) == 0 {
		logger.Debug("no media identified")
		return []types.MediaItem{}
	}
	return items
}

func classify(post *types.RawPost, logger *slog.Logger) ([]types.MediaItem, error) {
	var items []types.MediaItem

	if post.IsGallery && present(post.MediaMetadata) {
		gallery, err := galleryItems(post.MediaMetadata, post.GalleryData)
		if err != nil {
			return nil, err
		}
		if len(gallery) > 0 {
			logger.Info("extracted gallery", "items", len(gallery))
			return gallery, nil
		}
	}

	if post.IsVideo && present(post.Media) {
		var m postMedia
		if err := json.Unmarshal(post.Media, &m); err != nil {
			return nil, fmt.Errorf("decode media: %w", err)
		}
		if v := m.RedditVideo; v != nil {
			logger.Info("extracted reddit video")
			return []types.MediaItem{{
				Type:              types.MediaRedditVideo,
				URL:               v.FallbackURL,
				HLSURL:            v.HLSURL,
				DashURL:           v.DashURL,
				DurationSeconds:   v.Duration,
				Width:             v.Width,
				Height:            v.Height,
				IsGIF:             v.IsGIF,
				TranscodingStatus: v.TranscodingStatus,
			}}, nil
		}
	}

	if present(post.Preview) {
		var p preview
		if err := json.Unmarshal(post.Preview, &p); err != nil {
			return nil, fmt.Errorf("decode preview: %w", err)
		}
		if len(p.Images) > 0 {
			source := p.Images[0].Source
			switch {
			case post.Domain == domainRedditImage || post.Domain == domainImgur:
				logger.Info("extracted direct image")
				return []types.MediaItem{{
					Type:   types.MediaImage,
					URL:    post.URL,
					Width:  source.Width,
					Height: source.Height,
				}}, nil
			case !post.IsSelf && !post.IsVideo && hasImageExtension(post.URL) && post.Domain != domainRedditVideo:
				items = append(items, types.MediaItem{
					Type:       types.MediaImageLink,
					URL:        post.URL,
					Width:      source.Width,
					Height:     source.Height,
					PreviewURL: source.URL,
				})
			}
		}
	}

	if present(post.SecureMedia) {
		var m postMedia
		if err := json.Unmarshal(post.SecureMedia, &m); err != nil {
			return nil, fmt.Errorf("decode secure_media: %w", err)
		}
		if o := m.OEmbed; o != nil && o.Type == "video" && o.ProviderName == "YouTube" {
			logger.Info("extracted youtube embed")
			return []types.MediaItem{{
				Type:         types.MediaYouTubeEmbed,
				URL:          o.URL,
				HTMLEmbed:    o.HTML,
				ThumbnailURL: o.ThumbnailURL,
				Title:        o.Title,
				AuthorName:   o.AuthorName,
				ProviderName: o.ProviderName,
			}}, nil
		}
	}

	if len(items) == 0 && !post.IsSelf && !post.IsVideo && !post.IsGallery &&
		hasImageExtension(post.URL) &&
		post.Domain != domainRedditImage && post.Domain != domainRedditVideo {
		items = append(items, types.MediaItem{
			Type: types.MediaExternalImageLink,
			URL:  post.URL,
		})
	}

	return items, nil
}

// galleryItems decodes media_metadata and returns items in gallery_data
// order, or in the metadata's document order when gallery_data is absent.
func galleryItems(metadata, data json.RawMessage) ([]types.MediaItem, error) {
	ids, byID, err := decodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	if present(data) {
		var gd galleryData
		if err := json.Unmarshal(data, &gd); err != nil {
			return nil, fmt.Errorf("decode gallery_data: %w", err)
		}
		if len(gd.Items) > 0 {
			ids = ids[:0]
			for _, it := range gd.Items {
				ids = append(ids, it.MediaID)
			}
		}
	}

	var items []types.MediaItem
	for _, id := range ids {
		g, ok := byID[id]
		if !ok || g.S == nil {
			continue
		}
		switch g.E {
		case "Image":
			items = append(items, types.MediaItem{
				Type:     types.MediaImageGalleryItem,
				ID:       id,
				URL:      g.S.U,
				Width:    g.S.X,
				Height:   g.S.Y,
				MimeType: g.M,
			})
		case "AnimatedImage", "Video":
			url := g.S.MP4
			if url == "" {
				url = g.S.GIF
			}
			items = append(items, types.MediaItem{
				Type:     types.MediaAnimatedGalleryItem,
				ID:       id,
				URL:      url,
				Width:    g.S.X,
				Height:   g.S.Y,
				MimeType: g.M,
			})
		}
	}
	return items, nil
}

// decodeMetadata reads the media_metadata object, keeping key order.
func decodeMetadata(raw json.RawMessage) ([]string, map[string]galleryItem, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode media_metadata: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("decode media_metadata: expected object, got %v", tok)
	}

	var ids []string
	byID := make(map[string]galleryItem)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode media_metadata: %w", err)
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("decode media_metadata: unexpected key %v", tok)
		}
		var item galleryItem
		if err := dec.Decode(&item); err != nil {
			return nil, nil, fmt.Errorf("decode media_metadata[%s]: %w", id, err)
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = item
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("decode media_metadata: %w", err)
	}
	return ids, byID, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 &&
		!bytes.Equal(trimmed, []byte("null")) &&
		!bytes.Equal(trimmed, []byte("{}"))
}

func hasImageExtension(url string) bool {
	return hasSuffix(strings.ToLower(url), imageExtensions)
}

package media

import (
	"net/url"
	"strings"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

var (
	directMediaExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".mp4"}
	videoExtensions       = []string{".mp4", ".gif"}
	commentMediaPrefixes  = []string{"https://preview.redd.it/", "https://i.redd.it/"}
)

// DownloadableURLs returns the direct file URLs among items, de-duplicated
// in first-seen order. YouTube links and pages that are not direct media
// files are skipped.
func DownloadableURLs(items []types.MediaItem) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		path := stripQuery(item.URL)

		var ok bool
		switch item.Type {
		case types.MediaRedditVideo:
			ok = hasSuffix(path, videoExtensions)
		case types.MediaYouTubeEmbed:
			ok = false
		default:
			ok = !isYouTube(item.URL) && hasSuffix(path, directMediaExtensions)
		}
		if ok && !seen[item.URL] {
			seen[item.URL] = true
			urls = append(urls, item.URL)
		}
	}
	return urls
}

// CommentMediaURLs walks comments depth-first and returns the Reddit-hosted
// image links found in their bodies, de-duplicated in first-seen order.
func CommentMediaURLs(comments []*types.Comment) []string {
	var urls []string
	seen := make(map[string]bool)

	var walk func([]*types.Comment)
	walk = func(list []*types.Comment) {
		for _, c := range list {
			if c == nil {
				continue
			}
			for _, word := range strings.Fields(c.Body) {
				if !isCommentMediaURL(word) || seen[word] {
					continue
				}
				seen[word] = true
				urls = append(urls, word)
			}
			walk(c.Replies)
		}
	}
	walk(comments)
	return urls
}

func isCommentMediaURL(word string) bool {
	if !hasPrefix(word, commentMediaPrefixes) {
		return false
	}
	u, err := url.Parse(word)
	if err != nil {
		return false
	}
	return hasSuffix(u.Path, imageExtensions)
}

func isYouTube(u string) bool {
	return strings.Contains(u, "youtube.com/watch") || strings.Contains(u, "youtu.be/")
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func hasSuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func hasPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

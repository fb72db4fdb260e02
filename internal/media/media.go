// Package media resolves the best-available preview image for a post.
package media

import (
	"strings"

	"reddit_bot/internal/reddit"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// PreviewImage returns the preview image URL for a post, or "" when the
// post has none. Videos never get an image preview, even when preview
// metadata is present. Resolution tries, in order: gallery source,
// preview source, direct image URL. A malformed or missing field at any
// step means that step does not match; resolution falls through to the
// next rule and never errors.
func PreviewImage(p *reddit.Post) string {
	if p.IsVideo {
		return ""
	}

	if u := galleryImage(p); u != "" {
		return unescape(u)
	}
	if u := previewImage(p); u != "" {
		return unescape(u)
	}
	if isImageURL(p.URL) {
		return unescape(p.URL)
	}
	return ""
}

func galleryImage(p *reddit.Post) string {
	if !p.IsGallery || p.GalleryData == nil || len(p.GalleryData.Items) == 0 {
		return ""
	}
	mediaID := p.GalleryData.Items[0].MediaID
	if mediaID == "" || p.MediaMetadata == nil {
		return ""
	}
	meta, ok := p.MediaMetadata[mediaID]
	if !ok || meta.S == nil {
		return ""
	}
	return meta.S.U
}

func previewImage(p *reddit.Post) string {
	if p.Preview == nil || len(p.Preview.Images) == 0 {
		return ""
	}
	return p.Preview.Images[0].Source.URL
}

func isImageURL(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range imageExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Reddit HTML-escapes ampersands in media URLs.
func unescape(u string) string {
	return strings.ReplaceAll(u, "&amp;", "&")
}

package reddit

// Listing is the envelope Reddit wraps around every listing response.
type Listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Post is a single submission from a subreddit listing. The media
// fields are all optional; absence at any level means that kind of
// media is not present, never an error.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Score     int    `json:"score"`
	Permalink string `json:"permalink"`
	URL       string `json:"url"`
	IsVideo   bool   `json:"is_video"`
	IsGallery bool   `json:"is_gallery"`

	GalleryData   *GalleryData         `json:"gallery_data,omitempty"`
	MediaMetadata map[string]MediaMeta `json:"media_metadata,omitempty"`
	Preview       *Preview             `json:"preview,omitempty"`
}

// GalleryData lists a gallery's media ids in display order.
type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItem references one entry of a gallery by its media id.
type GalleryItem struct {
	MediaID string `json:"media_id"`
}

// MediaMeta describes one gallery entry. S holds the source resolution
// variant when Reddit provides one.
type MediaMeta struct {
	S *MediaSource `json:"s,omitempty"`
}

// MediaSource is the source resolution variant of a gallery entry.
type MediaSource struct {
	U string `json:"u"`
}

// Preview holds the preview image candidates of a post.
type Preview struct {
	Images []PreviewImage `json:"images"`
}

// PreviewImage is one preview candidate with its source rendition.
type PreviewImage struct {
	Source ImageSource `json:"source"`
}

// ImageSource is the URL of a preview rendition.
type ImageSource struct {
	URL string `json:"url"`
}

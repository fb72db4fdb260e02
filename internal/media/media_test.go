package media

import (
	"testing"

	"reddit_bot/internal/reddit"
)

func galleryPost(mediaID, sourceURL string) reddit.Post {
	return reddit.Post{
		ID:          "g1",
		IsGallery:   true,
		GalleryData: &reddit.GalleryData{Items: []reddit.GalleryItem{{MediaID: mediaID}}},
		MediaMetadata: map[string]reddit.MediaMeta{
			mediaID: {S: &reddit.MediaSource{U: sourceURL}},
		},
	}
}

func previewPost(sourceURL string) reddit.Post {
	return reddit.Post{
		ID: "p1",
		Preview: &reddit.Preview{
			Images: []reddit.PreviewImage{{Source: reddit.ImageSource{URL: sourceURL}}},
		},
	}
}

func TestPreviewImage(t *testing.T) {
	tests := []struct {
		name string
		post reddit.Post
		want string
	}{
		{
			name: "video never gets an image even with preview metadata",
			post: func() reddit.Post {
				p := previewPost("http://x/img.jpg")
				p.IsVideo = true
				return p
			}(),
			want: "",
		},
		{
			name: "gallery source wins",
			post: galleryPost("m1", "http://x/y?a=1&amp;b=2"),
			want: "http://x/y?a=1&b=2",
		},
		{
			name: "gallery wins over preview and direct url",
			post: func() reddit.Post {
				p := galleryPost("m1", "http://x/gallery.jpg")
				p.Preview = &reddit.Preview{Images: []reddit.PreviewImage{{Source: reddit.ImageSource{URL: "http://x/preview.jpg"}}}}
				p.URL = "http://x/direct.jpg"
				return p
			}(),
			want: "http://x/gallery.jpg",
		},
		{
			name: "preview source",
			post: previewPost("http://x/img.png?s=1&amp;t=2"),
			want: "http://x/img.png?s=1&t=2",
		},
		{
			name: "direct image url",
			post: reddit.Post{ID: "d1", URL: "http://x/pic.webp"},
			want: "http://x/pic.webp",
		},
		{
			name: "direct image url extension is case-insensitive",
			post: reddit.Post{ID: "d2", URL: "http://x/PIC.JPG"},
			want: "http://x/PIC.JPG",
		},
		{
			name: "non-image direct url",
			post: reddit.Post{ID: "d3", URL: "http://x/article.html"},
			want: "",
		},
		{
			name: "gallery flag without gallery data falls through to preview",
			post: func() reddit.Post {
				p := previewPost("http://x/fallback.jpg")
				p.IsGallery = true
				return p
			}(),
			want: "http://x/fallback.jpg",
		},
		{
			name: "gallery item missing from metadata falls through",
			post: reddit.Post{
				ID:          "g2",
				IsGallery:   true,
				GalleryData: &reddit.GalleryData{Items: []reddit.GalleryItem{{MediaID: "missing"}}},
				URL:         "http://x/direct.gif",
			},
			want: "http://x/direct.gif",
		},
		{
			name: "gallery metadata without source variant falls through",
			post: reddit.Post{
				ID:            "g3",
				IsGallery:     true,
				GalleryData:   &reddit.GalleryData{Items: []reddit.GalleryItem{{MediaID: "m1"}}},
				MediaMetadata: map[string]reddit.MediaMeta{"m1": {}},
			},
			want: "",
		},
		{
			name: "empty preview image list",
			post: reddit.Post{ID: "p2", Preview: &reddit.Preview{}},
			want: "",
		},
		{
			name: "nothing resolvable",
			post: reddit.Post{ID: "n1", Title: "text post"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviewImage(&tt.post); got != tt.want {
				t.Errorf("PreviewImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

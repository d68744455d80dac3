// Package domain provides domain models used across the application.
package domain

import "time"

// Kind identifies which upstream post shape a record was normalized from.
// It is immutable once a record is created.
type Kind string

const (
	// KindImagePost is an image-and-text post.
	KindImagePost Kind = "DYNAMIC_TYPE_DRAW"
	// KindTextPost is a text-only post.
	KindTextPost Kind = "DYNAMIC_TYPE_WORD"
	// KindVideoPost is a video publication post.
	KindVideoPost Kind = "DYNAMIC_TYPE_AV"
	// KindArticlePost is a long-form article post.
	KindArticlePost Kind = "DYNAMIC_TYPE_ARTICLE"
)

// Valid reports whether k is one of the known post kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindImagePost, KindTextPost, KindVideoPost, KindArticlePost:
		return true
	}
	return false
}

// Media is one attached media reference. Order within a ContentItem is
// significant and preserved end-to-end.
type Media struct {
	// URL of the media resource.
	URL string `json:"url"`
	// MimeKind is the MIME type inferred from the URL's file extension.
	MimeKind string `json:"mime_kind"`
}

// ContentItem is the uniform record every upstream post shape normalizes
// into. DetailURL is the sole identity: globally unique and stable per post.
type ContentItem struct {
	// CreatorName is the display name of the creator who published the post.
	CreatorName string `json:"creator_name"`
	// DetailURL is the canonical permalink and the unique identity key.
	DetailURL string `json:"detail_url"`
	// Title of the post.
	Title string `json:"title"`
	// PublishedAt is the canonical UTC publish instant.
	PublishedAt time.Time `json:"published_at"`
	// Body is the post's text content.
	Body string `json:"body"`
	// Media is the ordered list of attached media.
	Media []Media `json:"media,omitempty"`
	// Kind is the post kind this record was normalized from.
	Kind Kind `json:"kind"`
	// Tags holds the matched tag set. Populated only in the filtered
	// projection and fully recomputed on every filter pass.
	Tags []string `json:"tags,omitempty"`
}

// MediaURLs returns the media URLs in their original order.
func (c *ContentItem) MediaURLs() []string {
	if len(c.Media) == 0 {
		return nil
	}
	urls := make([]string, 0, len(c.Media))
	for _, m := range c.Media {
		urls = append(urls, m.URL)
	}
	return urls
}

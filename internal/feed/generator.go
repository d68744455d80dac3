// Package feed assembles content records into RSS syndication documents.
package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
)

const (
	// rssVersion is the emitted document version.
	rssVersion = "2.0"
	// playerTemplate is the playback embed for video entries.
	playerTemplate = "https://player.bilibili.com/player.html" +
		"?aid=&bvid=%s&cid=&p=1&as_wide=1&high_quality=1&danmaku=0&t=0"
	// FilteredFileName is the output name of the aggregate filtered feed.
	FilteredFileName = "filtered.xml"
)

// Metadata is the feed-level identity block.
type Metadata struct {
	ID          string
	Title       string
	Link        string
	Description string
}

// CreatorMetadata derives feed metadata from a creator's identifier and
// display name. Entries of such a feed live in the creator-scoped
// permalink namespace carried by each record's DetailURL.
func CreatorMetadata(creatorID, creatorName string) Metadata {
	link := fmt.Sprintf("https://space.bilibili.com/%s", creatorID)
	return Metadata{
		ID:          link,
		Title:       fmt.Sprintf("%s的B站动态", creatorName),
		Link:        link,
		Description: fmt.Sprintf("%s的B站动态", creatorName),
	}
}

// FilteredMetadata is the static identity of the aggregate filtered feed.
func FilteredMetadata() Metadata {
	return Metadata{
		ID:          "https://bilibili.com",
		Title:       "筛选后的B站动态",
		Link:        "https://bilibili.com",
		Description: "经tags筛选后的B站动态",
	}
}

// Synthesizer builds feed documents. Assembly is a pure function of the
// record collection and metadata; only the build timestamp reads the clock.
type Synthesizer struct {
	dates *dates.Normalizer
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(dateNormalizer *dates.Normalizer) *Synthesizer {
	return &Synthesizer{dates: dateNormalizer}
}

// Synthesize assembles the records into one document, in the order
// received. Callers decide ordering; the synthesizer never re-sorts.
func (s *Synthesizer) Synthesize(meta Metadata, items []domain.ContentItem) *Document {
	entries := make([]Entry, 0, len(items))
	for i := range items {
		entries = append(entries, s.entry(&items[i]))
	}

	return &Document{
		Version: rssVersion,
		Channel: Channel{
			Title:         meta.Title,
			Link:          meta.Link,
			Description:   meta.Description,
			LastBuildDate: s.dates.CanonicalNow(),
			Entries:       entries,
		},
	}
}

// entry builds one feed entry. Identity is the record's DetailURL.
func (s *Synthesizer) entry(item *domain.ContentItem) Entry {
	entry := Entry{
		Title:   item.Title,
		Link:    item.DetailURL,
		GUID:    GUID{Value: item.DetailURL, IsPermaLink: true},
		PubDate: dates.Format(item.PublishedAt),
	}

	if item.Kind == domain.KindVideoPost {
		entry.Description = videoDescription(item)
		return entry
	}

	var description strings.Builder
	description.WriteString(item.Body)
	for _, media := range item.Media {
		fmt.Fprintf(&description, `<br><img src="%s">`, media.URL)
		entry.Enclosures = append(entry.Enclosures, Enclosure{
			URL:    media.URL,
			Length: "0",
			Type:   media.MimeKind,
		})
	}
	entry.Description = description.String()

	return entry
}

// videoDescription appends the playback embed and cover image to the video
// description. The embed exists only in the rendered document, never in
// the stored record.
func videoDescription(item *domain.ContentItem) string {
	var description strings.Builder
	description.WriteString(item.Body)

	playerURL := fmt.Sprintf(playerTemplate, videoID(item.DetailURL))
	fmt.Fprintf(&description,
		`<br><iframe width="560" height="315" src="%s" frameborder="0" allowfullscreen></iframe>`,
		playerURL)

	if len(item.Media) > 0 {
		fmt.Fprintf(&description, `<br><img src="%s">`, item.Media[0].URL)
	}

	return description.String()
}

// videoID extracts the video identifier from a video permalink.
func videoID(detailURL string) string {
	trimmed := strings.TrimRight(detailURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// Render serializes a document with the XML header.
func Render(doc *Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// WriteFile renders the document to <dir>/<name>, creating the directory
// on demand. The file is later served verbatim as a static file.
func WriteFile(doc *Document, dir, name string) (string, error) {
	rendered, err := Render(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return "", fmt.Errorf("failed to write feed document: %w", err)
	}

	return path, nil
}

// CreatorFileName returns the output name of a creator-scoped feed.
func CreatorFileName(creatorID string) string {
	return creatorID + ".xml"
}

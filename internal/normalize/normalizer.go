// Package normalize maps the upstream's heterogeneous post payloads into
// the uniform ContentItem record.
package normalize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
)

// Permalink templates. The synthesized URL is the store's primary key, so
// changing a template is a backward-incompatible data migration.
const (
	opusPermalink    = "https://www.bilibili.com/opus/%s"
	videoPermalink   = "https://www.bilibili.com/video/%s"
	articlePermalink = "https://www.bilibili.com/read/cv%s"
)

// OpusURL returns the permalink for an image or text post identifier.
func OpusURL(id string) string {
	return fmt.Sprintf(opusPermalink, id)
}

// VideoURL returns the permalink for a video identifier.
func VideoURL(bvid string) string {
	return fmt.Sprintf(videoPermalink, bvid)
}

// ArticleURL returns the permalink for an article identifier.
func ArticleURL(id string) string {
	return fmt.Sprintf(articlePermalink, id)
}

// ArticleFetcher fetches one article body by identifier. The production
// implementation paces itself; callers must not parallelize fetches.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, articleID string) (*bili.Article, error)
}

// Normalizer converts raw upstream items into ContentItems. Normalization
// of a single record is all-or-nothing: any failure invalidates only that
// record and the caller skips it.
type Normalizer struct {
	dates    *dates.Normalizer
	articles ArticleFetcher
	logger   logger.Interface
}

// New creates a Normalizer.
func New(dateNormalizer *dates.Normalizer, articles ArticleFetcher, log logger.Interface) *Normalizer {
	return &Normalizer{
		dates:    dateNormalizer,
		articles: articles,
		logger:   log.WithComponent("normalize"),
	}
}

// Normalize maps one raw item into a ContentItem. The match over post kinds
// is closed: a payload outside the known kinds returns
// domain.ErrSchemaMismatch rather than being coerced to a nearby kind.
func (n *Normalizer) Normalize(ctx context.Context, item bili.Item) (*domain.ContentItem, error) {
	kind := domain.Kind(item.Type)

	switch kind {
	case domain.KindImagePost, domain.KindTextPost:
		return n.normalizeOpus(item, kind)
	case domain.KindVideoPost:
		return n.normalizeVideo(item)
	case domain.KindArticlePost:
		return n.normalizeArticle(ctx, item)
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrSchemaMismatch, item.Type)
}

// normalizeOpus handles image and text posts.
func (n *Normalizer) normalizeOpus(item bili.Item, kind domain.Kind) (*domain.ContentItem, error) {
	opus := item.Modules.Dynamic.Major.Opus
	if opus == nil {
		return nil, fmt.Errorf("%w: %s item without opus body", domain.ErrSchemaMismatch, kind)
	}

	publishedAt, err := n.dates.Resolve(item.Modules.Author.PubTime)
	if err != nil {
		return nil, err
	}

	media := make([]domain.Media, 0, len(opus.Pics))
	for _, pic := range opus.Pics {
		media = append(media, domain.Media{URL: pic.URL, MimeKind: MimeKind(pic.URL)})
	}

	return &domain.ContentItem{
		CreatorName: item.Modules.Author.Name,
		DetailURL:   OpusURL(item.IDStr),
		Title:       opus.Title,
		PublishedAt: publishedAt,
		Body:        opus.Summary.Text,
		Media:       media,
		Kind:        kind,
	}, nil
}

// normalizeVideo handles video posts. The permalink is synthesized from the
// video identifier; the playback embed is appended to the description by
// the feed synthesizer at render time, not here.
func (n *Normalizer) normalizeVideo(item bili.Item) (*domain.ContentItem, error) {
	archive := item.Modules.Dynamic.Major.Archive
	if archive == nil {
		return nil, fmt.Errorf("%w: video item without archive body", domain.ErrSchemaMismatch)
	}

	publishedAt, err := n.dates.Resolve(item.Modules.Author.PubTime)
	if err != nil {
		return nil, err
	}

	return &domain.ContentItem{
		CreatorName: item.Modules.Author.Name,
		DetailURL:   VideoURL(archive.Bvid),
		Title:       archive.Title,
		PublishedAt: publishedAt,
		Body:        archive.Desc,
		Media:       []domain.Media{{URL: archive.Cover, MimeKind: MimeKind(archive.Cover)}},
		Kind:        domain.KindVideoPost,
	}, nil
}

// normalizeArticle handles article posts, which need a second fetch keyed
// by the article identifier from the listing entry.
func (n *Normalizer) normalizeArticle(ctx context.Context, item bili.Item) (*domain.ContentItem, error) {
	articleID := item.Basic.RidStr
	if articleID == "" {
		return nil, fmt.Errorf("%w: article item without identifier", domain.ErrSchemaMismatch)
	}

	article, err := n.articles.FetchArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", articleID, err)
	}

	body, media := articleBody(article)

	return &domain.ContentItem{
		CreatorName: item.Modules.Author.Name,
		DetailURL:   ArticleURL(articleID),
		Title:       article.Title,
		PublishedAt: n.publishedAt(article),
		Body:        body,
		Media:       media,
		Kind:        domain.KindArticlePost,
	}, nil
}

// publishedAt resolves the article's integer publish timestamp.
func (n *Normalizer) publishedAt(article *bili.Article) time.Time {
	return n.dates.ResolveUnix(article.PublishTime)
}

// articleBody extracts the body text and ordered media from an article,
// branching on which of the two layouts is present. Modern articles carry
// typed paragraphs; legacy articles carry a flat string body and no images.
func articleBody(article *bili.Article) (string, []domain.Media) {
	if article.Opus == nil {
		return article.Content, nil
	}

	var body strings.Builder
	var media []domain.Media

	for _, paragraph := range article.Opus.Content.Paragraphs {
		switch paragraph.ParaType {
		case bili.ParagraphText:
			if paragraph.Text != nil && len(paragraph.Text.Nodes) > 0 {
				body.WriteString(paragraph.Text.Nodes[0].Word.Words)
			}
		case bili.ParagraphImage:
			if paragraph.Pic != nil && len(paragraph.Pic.Pics) > 0 {
				pic := paragraph.Pic.Pics[0]
				media = append(media, domain.Media{URL: pic.URL, MimeKind: MimeKind(pic.URL)})
			}
		}
	}

	return body.String(), media
}

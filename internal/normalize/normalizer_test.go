package normalize_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/dates"
	"github.com/reouo/bilifeed/internal/domain"
	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/normalize"
)

// fixedClock pins the reference instant to 2024-03-25T10:00:00+08:00.
type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2024, time.March, 25, 10, 0, 0, 0, time.FixedZone("UTC+8", 8*60*60))
}

// fakeArticleFetcher serves canned article bodies.
type fakeArticleFetcher struct {
	articles map[string]*bili.Article
	err      error
	calls    []string
}

func (f *fakeArticleFetcher) FetchArticle(_ context.Context, articleID string) (*bili.Article, error) {
	f.calls = append(f.calls, articleID)
	if f.err != nil {
		return nil, f.err
	}
	article, ok := f.articles[articleID]
	if !ok {
		return nil, errors.New("unknown article")
	}
	return article, nil
}

func newTestNormalizer(t *testing.T, fetcher normalize.ArticleFetcher) *normalize.Normalizer {
	t.Helper()
	return normalize.New(dates.New(fixedClock{}), fetcher, logger.NewNoOp())
}

func opusItem(itemType, id, title, pubTime, text string, picURLs ...string) bili.Item {
	pics := make([]bili.Pic, 0, len(picURLs))
	for _, u := range picURLs {
		pics = append(pics, bili.Pic{URL: u})
	}
	return bili.Item{
		Type:  itemType,
		IDStr: id,
		Modules: bili.Modules{
			Author: bili.Author{Name: "some creator", PubTime: pubTime},
			Dynamic: bili.Dynamic{Major: bili.Major{Opus: &bili.Opus{
				Title:   title,
				Summary: bili.Summary{Text: text},
				Pics:    pics,
			}}},
		},
	}
}

func TestNormalizeImagePost(t *testing.T) {
	n := newTestNormalizer(t, &fakeArticleFetcher{})

	item := opusItem("DYNAMIC_TYPE_DRAW", "912345", "two cats", "3天前", "look at them",
		"https://i0.hdslb.com/bfs/a.jpg",
		"https://i0.hdslb.com/bfs/b.png",
	)

	got, err := n.Normalize(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "some creator", got.CreatorName)
	assert.Equal(t, "https://www.bilibili.com/opus/912345", got.DetailURL)
	assert.Equal(t, "two cats", got.Title)
	assert.Equal(t, "look at them", got.Body)
	assert.Equal(t, domain.KindImagePost, got.Kind)
	assert.True(t, got.PublishedAt.Equal(time.Date(2024, time.March, 22, 2, 0, 0, 0, time.UTC)))

	// Media order is preserved end-to-end.
	require.Len(t, got.Media, 2)
	assert.Equal(t, domain.Media{URL: "https://i0.hdslb.com/bfs/a.jpg", MimeKind: "image/jpeg"}, got.Media[0])
	assert.Equal(t, domain.Media{URL: "https://i0.hdslb.com/bfs/b.png", MimeKind: "image/png"}, got.Media[1])
}

func TestNormalizeTextPost(t *testing.T) {
	n := newTestNormalizer(t, &fakeArticleFetcher{})

	item := opusItem("DYNAMIC_TYPE_WORD", "912346", "just words", "45分钟前", "no pictures today")

	got, err := n.Normalize(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, domain.KindTextPost, got.Kind)
	assert.Empty(t, got.Media)
	assert.Equal(t, "https://www.bilibili.com/opus/912346", got.DetailURL)
}

func TestNormalizeVideoPost(t *testing.T) {
	n := newTestNormalizer(t, &fakeArticleFetcher{})

	item := bili.Item{
		Type: "DYNAMIC_TYPE_AV",
		Modules: bili.Modules{
			Author: bili.Author{Name: "some creator", PubTime: "2024-03-20"},
			Dynamic: bili.Dynamic{Major: bili.Major{Archive: &bili.Archive{
				Title: "new video",
				Bvid:  "BV1xx411c7mD",
				Desc:  "watch this",
				Cover: "https://i0.hdslb.com/bfs/cover.jpg",
			}}},
		},
	}

	got, err := n.Normalize(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "https://www.bilibili.com/video/BV1xx411c7mD", got.DetailURL)
	assert.Equal(t, domain.KindVideoPost, got.Kind)
	assert.Equal(t, "watch this", got.Body)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "https://i0.hdslb.com/bfs/cover.jpg", got.Media[0].URL)
}

func articleItem(articleID string) bili.Item {
	return bili.Item{
		Type:  "DYNAMIC_TYPE_ARTICLE",
		Basic: bili.Basic{RidStr: articleID},
		Modules: bili.Modules{
			Author: bili.Author{Name: "some creator", PubTime: "昨天 08:00"},
		},
	}
}

func TestNormalizeArticleWithParagraphs(t *testing.T) {
	fetcher := &fakeArticleFetcher{articles: map[string]*bili.Article{
		"777": {
			Title:       "long read",
			PublishTime: 1711332000,
			Opus: &bili.ArticleOpus{Content: bili.ArticleContent{Paragraphs: []bili.Paragraph{
				{ParaType: bili.ParagraphText, Text: &bili.ParagraphBody{Nodes: []bili.TextNode{
					{Word: bili.Word{Words: "first part, "}},
				}}},
				{ParaType: bili.ParagraphImage, Pic: &bili.ParagraphPics{Pics: []bili.Pic{
					{URL: "https://i0.hdslb.com/bfs/inline.png"},
					{URL: "https://i0.hdslb.com/bfs/ignored.png"},
				}}},
				{ParaType: bili.ParagraphText, Text: &bili.ParagraphBody{Nodes: []bili.TextNode{
					{Word: bili.Word{Words: "second part"}},
				}}},
			}}},
		},
	}}
	n := newTestNormalizer(t, fetcher)

	got, err := n.Normalize(context.Background(), articleItem("777"))
	require.NoError(t, err)

	assert.Equal(t, "https://www.bilibili.com/read/cv777", got.DetailURL)
	assert.Equal(t, "long read", got.Title)
	assert.Equal(t, "first part, second part", got.Body)
	assert.Equal(t, domain.KindArticlePost, got.Kind)

	// Only the first image of an image paragraph contributes media.
	require.Len(t, got.Media, 1)
	assert.Equal(t, "https://i0.hdslb.com/bfs/inline.png", got.Media[0].URL)

	assert.Equal(t, []string{"777"}, fetcher.calls)
}

func TestNormalizeLegacyArticle(t *testing.T) {
	// Legacy flat-body articles keep the raw string verbatim and carry no media.
	fetcher := &fakeArticleFetcher{articles: map[string]*bili.Article{
		"888": {
			Title:       "old column",
			PublishTime: 1711332000,
			Content:     "plain text body, exactly as served",
		},
	}}
	n := newTestNormalizer(t, fetcher)

	got, err := n.Normalize(context.Background(), articleItem("888"))
	require.NoError(t, err)

	assert.Equal(t, "plain text body, exactly as served", got.Body)
	assert.Empty(t, got.Media)
}

func TestNormalizeUnknownKind(t *testing.T) {
	n := newTestNormalizer(t, &fakeArticleFetcher{})

	_, err := n.Normalize(context.Background(), bili.Item{Type: "DYNAMIC_TYPE_FORWARD"})
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestNormalizeUnrecognizedDate(t *testing.T) {
	n := newTestNormalizer(t, &fakeArticleFetcher{})

	item := opusItem("DYNAMIC_TYPE_DRAW", "912347", "title", "not a timestamp", "body")

	_, err := n.Normalize(context.Background(), item)
	require.ErrorIs(t, err, domain.ErrUnrecognizedDateFormat)
}

func TestNormalizeArticleFetchFailure(t *testing.T) {
	fetchErr := errors.New("upstream unreachable")
	n := newTestNormalizer(t, &fakeArticleFetcher{err: fetchErr})

	_, err := n.Normalize(context.Background(), articleItem("999"))
	require.ErrorIs(t, err, fetchErr)
}

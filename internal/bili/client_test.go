package bili_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reouo/bilifeed/internal/bili"
	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/ratelimit"
)

const spaceFeedBody = `{
	"code": 0,
	"message": "0",
	"data": {
		"items": [
			{
				"type": "DYNAMIC_TYPE_DRAW",
				"id_str": "900000000000000001",
				"modules": {
					"module_author": {"name": "some creator", "pub_time": "3小时前"},
					"module_dynamic": {
						"major": {
							"opus": {
								"title": "two cats",
								"summary": {"text": "look at them"},
								"pics": [{"url": "https://i0.hdslb.com/bfs/a.jpg"}]
							}
						}
					}
				}
			}
		]
	}
}`

const articleBody = `{
	"code": 0,
	"message": "0",
	"data": {
		"title": "a long read",
		"publish_time": 1711332000,
		"content": "flat legacy content"
	}
}`

func newClient(t *testing.T, handler http.Handler) (*bili.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := bili.NewClient(bili.Config{
		BaseURL: server.URL,
		Cookie:  "SESSDATA=abc",
	}, ratelimit.Nop{}, logger.NewNoOp())

	return client, server
}

func TestFetchSpaceFeed(t *testing.T) {
	var gotHeaders http.Header
	var gotQuery map[string][]string

	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotQuery = r.URL.Query()
		w.Write([]byte(spaceFeedBody))
	}))

	items, err := client.FetchSpaceFeed(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "DYNAMIC_TYPE_DRAW", items[0].Type)
	assert.Equal(t, "900000000000000001", items[0].IDStr)
	assert.Equal(t, "some creator", items[0].Modules.Author.Name)
	assert.Equal(t, "3小时前", items[0].Modules.Author.PubTime)
	require.NotNil(t, items[0].Modules.Dynamic.Major.Opus)
	assert.Equal(t, "two cats", items[0].Modules.Dynamic.Major.Opus.Title)

	// Session identity travels on every request.
	assert.Equal(t, "SESSDATA=abc", gotHeaders.Get("Cookie"))
	assert.Equal(t, "https://space.bilibili.com/12345/dynamic", gotHeaders.Get("Referer"))
	assert.Equal(t, "https://space.bilibili.com", gotHeaders.Get("Origin"))
	assert.NotEmpty(t, gotHeaders.Get("User-Agent"))

	assert.Equal(t, []string{"12345"}, gotQuery["host_mid"])
	assert.Equal(t, []string{"-480"}, gotQuery["timezone_offset"])
	assert.Contains(t, gotQuery["features"][0], "itemOpusStyle")
}

func TestFetchSpaceFeedUpstreamCode(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code": -352, "message": "risk control"}`))
	}))

	_, err := client.FetchSpaceFeed(context.Background(), "12345")
	require.ErrorIs(t, err, bili.ErrUpstreamStatus)
	assert.Contains(t, err.Error(), "-352")
}

func TestFetchSpaceFeedHTTPError(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.FetchSpaceFeed(context.Background(), "12345")
	require.ErrorIs(t, err, bili.ErrUpstreamStatus)
}

func TestFetchSpaceFeedRetriesServerErrors(t *testing.T) {
	var calls int
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(spaceFeedBody))
	}))

	items, err := client.FetchSpaceFeed(context.Background(), "12345")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchArticle(t *testing.T) {
	var gotPath, gotReferer string
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte(articleBody))
	}))

	article, err := client.FetchArticle(context.Background(), "777")
	require.NoError(t, err)

	assert.Equal(t, "/x/article/view", gotPath)
	assert.Equal(t, "https://www.bilibili.com/read/cv777/", gotReferer)
	assert.Equal(t, "a long read", article.Title)
	assert.Equal(t, int64(1711332000), article.PublishTime)
	assert.Equal(t, "flat legacy content", article.Content)
}

func TestFetchArticleHonorsPacerCancellation(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(articleBody))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchArticle(ctx, "777")
	require.Error(t, err)
}

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/cache"
	"bookmarkfeed/internal/template"
	"bookmarkfeed/internal/widget"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upstreamBody = `[
  {"u":"http://example.com/a","d":"Tom & Jerry","n":"a <cartoon>","t":["tv","c++"],"dt":"2009-05-29T11:10:44Z"},
  {"u":"http://example.com/b","d":"Second","n":"","t":[],"dt":"2009-05-28T09:00:00Z"}
]`

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) requested() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()
	return newTitledServer(t, "Alice", status, body)
}

func newTitledServer(t *testing.T, title string, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()

	paths := &requestLog{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.RequestURI())
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(upstream.Close)

	loader, err := bookmarks.NewLoader(bookmarks.LoaderConfig{BaseURL: upstream.URL}, cache.NewMemory[[]bookmarks.Bookmark](cache.Config{}))
	require.NoError(t, err)

	tmpl, err := template.Load("", nil)
	require.NoError(t, err)

	renderer, err := widget.New(widget.Config{
		Params:   bookmarks.Params{Account: "alice", Count: 15, CacheTTL: 1800},
		Loader:   loader,
		Template: tmpl,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(Config{FeedTitle: title}, renderer).Handler())
	t.Cleanup(srv.Close)
	return srv, paths
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestWidgetRoute(t *testing.T) {
	srv, paths := newTestServer(t, http.StatusOK, upstreamBody)

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Tom &amp; Jerry")
	assert.Contains(t, body, "http://example.com/b")

	_, _ = get(t, srv.URL+"/?account=bob&tags=go&count=3")
	assert.Equal(t, []string{"/alice?count=15", "/bob/go?count=3"}, paths.requested())
}

func TestWidgetRouteShowsMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, upstreamBody)

	resp, body := get(t, srv.URL+"/?account=not%20valid")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, bookmarks.MessageNotConfigured)
}

func TestFeedRoutes(t *testing.T) {
	srv, paths := newTestServer(t, http.StatusOK, upstreamBody)

	resp, body := get(t, srv.URL+"/bookmarks.rss")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/rss+xml")
	assert.Equal(t, "public, max-age=1800", resp.Header.Get("Cache-Control"))
	assert.Contains(t, body, "<title>Tom &amp; Jerry</title>")
	assert.NotContains(t, body, "&amp;amp;")

	resp, body = get(t, srv.URL+"/bookmarks.atom")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http://example.com/a")

	resp, body = get(t, srv.URL+"/bookmarks.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var feed struct {
		Title string `json:"title"`
		Items []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &feed))
	assert.Equal(t, "Alice", feed.Title)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Tom & Jerry", feed.Items[0].Title)
	assert.Equal(t, "http://example.com/a", feed.Items[0].URL)

	assert.Len(t, paths.requested(), 1, "feeds are served from cache after the first fetch")
}

func TestFeedFollowsAccountOverride(t *testing.T) {
	srv, paths := newTitledServer(t, "", http.StatusOK, upstreamBody)

	resp, body := get(t, srv.URL+"/bookmarks.rss?account=bob")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<title>Bookmarks of bob</title>")
	assert.Contains(t, body, "<description>Bookmarks of bob</description>")
	assert.NotContains(t, body, "alice")
	assert.Contains(t, body, "<pubDate>Fri, 29 May 2009 11:10:44 +0000</pubDate>")
	assert.Equal(t, []string{"/bob?count=15"}, paths.requested())
}

func TestFeedRouteErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, "oops")

	resp, body := get(t, srv.URL+"/bookmarks.rss")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, bookmarks.MessageUnavailable)

	resp, body = get(t, srv.URL+"/bookmarks.json?account=no-dash")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, bookmarks.MessageNotConfigured)

	malformed, _ := newTestServer(t, http.StatusOK, `{"not":"a list"}`)
	resp, body = get(t, malformed.URL+"/bookmarks.atom")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, bookmarks.MessageMalformed)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, upstreamBody)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, upstreamBody)

	resp, _ := get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

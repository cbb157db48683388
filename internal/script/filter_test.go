package script

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookmarkfeed/internal/bookmarks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBookmarks() []bookmarks.Bookmark {
	return []bookmarks.Bookmark{
		bookmarks.NewBookmark(bookmarks.Post{URL: "http://a", Description: "Go tips", Tags: []string{"go", "tips"}}),
		bookmarks.NewBookmark(bookmarks.Post{URL: "http://b", Description: "Cat pictures", Tags: []string{"cats"}}),
		bookmarks.NewBookmark(bookmarks.Post{URL: "http://c", Description: "More Go", Tags: []string{"go"}}),
	}
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func urls(records []bookmarks.Bookmark) []string {
	out := make([]string, 0, len(records))
	for _, b := range records {
		out = append(out, b.URL)
	}
	return out
}

func TestFilterByTag(t *testing.T) {
	path := writeScript(t, t.TempDir(), "filter.lua", `
function keep(bookmark)
  for _, tag in ipairs(bookmark.tags) do
    if tag == "go" then return true end
  end
  return false
end
`)
	filter, err := NewFilter(path, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Equal(t, []string{"http://a", "http://c"}, urls(filter.Apply(context.Background(), sampleBookmarks())))
}

func TestFilterSeesAllFields(t *testing.T) {
	filter, err := newFilter("", `
function keep(b)
  return b.url ~= "" and b.title == "Go tips" and b.tags_joined == "go tips" and b.description == "" and b.timestamp == ""
end
`, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Equal(t, []string{"http://a"}, urls(filter.Apply(context.Background(), sampleBookmarks())))
}

func TestFilterErrorsKeepBookmark(t *testing.T) {
	filter, err := newFilter("", `
function keep(b)
  if b.url == "http://b" then error("boom") end
  if b.url == "http://c" then return "yes" end
  return true
end
`, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Equal(t, []string{"http://a", "http://b", "http://c"}, urls(filter.Apply(context.Background(), sampleBookmarks())))
}

func TestFilterNilResultDrops(t *testing.T) {
	filter, err := newFilter("", `function keep(b) end`, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Empty(t, filter.Apply(context.Background(), sampleBookmarks()))
}

func TestFilterRequireJSONAndLocalModules(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "blocklist.lua", `return { ["http://b"] = true }`)
	path := writeScript(t, dir, "filter.lua", `
local json = require("json")
local blocked = require("blocklist")
log.debug("encoded " .. json.encode({ok = true}))
function keep(b)
  return not blocked[b.url]
end
`)
	filter, err := NewFilter(path, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Equal(t, []string{"http://a", "http://c"}, urls(filter.Apply(context.Background(), sampleBookmarks())))
}

func TestFilterSecureMode(t *testing.T) {
	filter, err := newFilter("", `
function keep(b)
  return os == nil and io == nil and dofile == nil
end
`, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Len(t, filter.Apply(context.Background(), sampleBookmarks()), 3)
}

func TestNewFilterErrors(t *testing.T) {
	_, err := NewFilter(filepath.Join(t.TempDir(), "missing.lua"), FilterConfig{}, nil)
	require.Error(t, err)

	_, err = newFilter("", `function keep(b) return true`, FilterConfig{}, slog.Default())
	require.Error(t, err)

	_, err = newFilter("", `function other(b) return true end`, FilterConfig{}, slog.Default())
	require.Error(t, err)
}

func TestFilterUnsafeMode(t *testing.T) {
	filter, err := newFilter("", `
function keep(b)
  return os ~= nil and io ~= nil
end
`, FilterConfig{Unsafe: true}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	assert.Len(t, filter.Apply(context.Background(), sampleBookmarks()), 3)
}

func TestFilterRunawayScriptIsBounded(t *testing.T) {
	filter, err := newFilter("", `
function keep(b)
  if b.url == "http://b" then
    while true do end
  end
  return b.url ~= "http://c"
end
`, FilterConfig{Timeout: 100 * time.Millisecond}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	done := make(chan []string, 1)
	go func() {
		done <- urls(filter.Apply(context.Background(), sampleBookmarks()))
	}()

	select {
	case got := <-done:
		assert.Equal(t, []string{"http://a", "http://b", "http://c"}, got)
	case <-time.After(3 * time.Second):
		t.Fatal("Apply did not return after the filter timeout")
	}

	// The runtime stays usable once the deadline is cleared.
	records := sampleBookmarks()
	got := filter.Apply(context.Background(), []bookmarks.Bookmark{records[0], records[2]})
	assert.Equal(t, []string{"http://a"}, urls(got))
}

func TestFilterCancelledContextKeepsBookmarks(t *testing.T) {
	filter, err := newFilter("", `function keep(b) return false end`, FilterConfig{}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { filter.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Len(t, filter.Apply(ctx, sampleBookmarks()), 3)
	assert.Empty(t, filter.Apply(context.Background(), sampleBookmarks()))
}

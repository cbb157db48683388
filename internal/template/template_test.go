package template

import (
	"bytes"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookmarkfeed/internal/bookmarks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	Bookmarks []bookmarks.Bookmark
	Message   string
	Params    bookmarks.Params
}

func render(t *testing.T, tmpl *Template, data any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, data))
	return buf.String()
}

func TestDefaultTemplateRendersBookmarks(t *testing.T) {
	tmpl, err := Load("", nil)
	require.NoError(t, err)

	out := render(t, tmpl, view{
		Params: bookmarks.Params{Account: "alice"},
		Bookmarks: []bookmarks.Bookmark{
			bookmarks.NewBookmark(bookmarks.Post{
				URL:         "http://example.com/a",
				Description: `Tom & "Jerry"`,
				Notes:       "<b>bold</b>",
				Tags:        []string{"c++", "web dev"},
			}),
		},
	})

	assert.Contains(t, out, `href="http://example.com/a"`)
	assert.Contains(t, out, `>Tom &amp; &#34;Jerry&#34;</a>`)
	assert.NotContains(t, out, "&amp;amp;")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, `href="http://delicious.com/alice/c&#43;&#43;"`)
	assert.Contains(t, out, `href="http://delicious.com/alice/web%20dev"`)
	assert.Contains(t, out, `rel="tag">web dev</a>`)
}

func TestDefaultTemplateMessageAndEmpty(t *testing.T) {
	tmpl, err := Load("", nil)
	require.NoError(t, err)

	out := render(t, tmpl, view{Message: bookmarks.MessageUnavailable})
	assert.Contains(t, out, "Unable to contact the bookmark service.")
	assert.NotContains(t, out, "<ul")

	out = render(t, tmpl, view{})
	assert.Contains(t, out, "No bookmarks yet.")
}

func TestLoadCustomTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Bookmarks}}[{{shout .URL}}]{{end}}`), 0o644))

	tmpl, err := Load(path, htmltemplate.FuncMap{"shout": strings.ToUpper})
	require.NoError(t, err)

	out := render(t, tmpl, view{Bookmarks: []bookmarks.Bookmark{{URL: "http://a"}, {URL: "http://b"}}})
	assert.Equal(t, "[HTTP://A][HTTP://B]", out)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.html"), nil)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.html")
	require.NoError(t, os.WriteFile(path, []byte(`{{range .Bookmarks}`), 0o644))
	_, err = Load(path, nil)
	require.Error(t, err)
}

func TestTagURL(t *testing.T) {
	assert.Equal(t, "http://delicious.com/alice/a&b", tagURL("alice", "a&amp;b"))
	assert.Equal(t, "http://delicious.com/alice/a%2Fb", tagURL("alice", "a/b"))
}

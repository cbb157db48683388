package bookmarks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

// Decoder turns an upstream response body into bookmarks. Any error it
// returns is reported as a malformed response.
type Decoder interface {
	Format() string
	Decode(body []byte) ([]Bookmark, error)
}

func NewDecoder(format string) (Decoder, error) {
	switch format {
	case "", FormatJSON:
		return JSONDecoder{}, nil
	case FormatRSS:
		return NewRSSDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", format)
	}
}

type JSONDecoder struct{}

func (JSONDecoder) Format() string {
	return FormatJSON
}

func (JSONDecoder) Decode(body []byte) ([]Bookmark, error) {
	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode bookmark list: %w", err)
	}

	// "null" decodes without error but is not a list.
	if posts == nil {
		return nil, errors.New("response is not a JSON array")
	}

	return newBookmarks(posts), nil
}

type RSSDecoder struct {
	parser *gofeed.Parser
}

func NewRSSDecoder() *RSSDecoder {
	return &RSSDecoder{parser: gofeed.NewParser()}
}

func (d *RSSDecoder) Format() string {
	return FormatRSS
}

func (d *RSSDecoder) Decode(body []byte) ([]Bookmark, error) {
	feed, err := d.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		notes := item.Description
		if notes == "" {
			notes = item.Content
		}

		published := item.Published
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC().Format(time.RFC3339)
		}

		posts = append(posts, Post{
			URL:         item.Link,
			Description: item.Title,
			Notes:       stripMarkup(notes),
			Tags:        item.Categories,
			Time:        published,
		})
	}

	return newBookmarks(posts), nil
}

var markupStripper = bluemonday.StrictPolicy()

// stripMarkup reduces RSS description HTML to plain text; NewBookmark escapes
// it again for display.
func stripMarkup(s string) string {
	s = markupStripper.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

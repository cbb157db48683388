package bookmarks

import (
	"html"
	"strings"
)

// Post is one element of the upstream JSON array. Field names follow the
// feed's short keys.
type Post struct {
	URL         string   `json:"u"`
	Description string   `json:"d"`
	Notes       string   `json:"n"`
	Tags        []string `json:"t"`
	Time        string   `json:"dt"`
}

// Bookmark is the display form of a Post. Title, Description and Tags are
// HTML-escaped with html.EscapeString, so quotes become &#34; and &#39;
// rather than &quot;. Timestamp is the upstream "dt" value, or RFC 3339 for
// RSS items.
type Bookmark struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	TagsJoined  string   `json:"tags_joined"`
	Timestamp   string   `json:"timestamp"`
}

func NewBookmark(p Post) Bookmark {
	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		tags = append(tags, html.EscapeString(tag))
	}

	return Bookmark{
		URL:         p.URL,
		Title:       html.EscapeString(p.Description),
		Description: html.EscapeString(p.Notes),
		Tags:        tags,
		TagsJoined:  strings.Join(tags, " "),
		Timestamp:   p.Time,
	}
}

func newBookmarks(posts []Post) []Bookmark {
	records := make([]Bookmark, 0, len(posts))
	for _, p := range posts {
		records = append(records, NewBookmark(p))
	}
	return records
}

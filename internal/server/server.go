package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/widget"

	"github.com/gorilla/feeds"
)

// Config configures a Server. An empty FeedTitle titles each feed after the
// account it was loaded for.
type Config struct {
	Port      string
	FeedTitle string
	Logger    *slog.Logger
}

type Server struct {
	config   Config
	renderer *widget.Renderer
	logger   *slog.Logger
	server   *http.Server
	started  time.Time
}

func New(config Config, renderer *widget.Renderer) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Server{
		config:   config,
		renderer: renderer,
		logger:   config.Logger,
		started:  time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleWidget)
	mux.HandleFunc("GET /bookmarks.rss", s.handleFeed(formatRSS))
	mux.HandleFunc("GET /bookmarks.atom", s.handleFeed(formatAtom))
	mux.HandleFunc("GET /bookmarks.json", s.handleFeed(formatJSON))
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start listens in the background and returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.config.Port, err)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Feed server error", "error", err)
		}
	}()

	s.logger.Info("Feed server listening", "address", "http://localhost:"+s.config.Port)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Feed server shutdown error", "error", err)
		return err
	}
	return nil
}

// overrides reads account, tags and count from the query string. An
// unparsable count is ignored.
func overrides(r *http.Request) widget.Overrides {
	query := r.URL.Query()

	var o widget.Overrides
	o.Account = query.Get("account")
	if query.Has("tags") {
		tags := query.Get("tags")
		o.Tags = &tags
	}
	if count, err := strconv.Atoi(query.Get("count")); err == nil {
		o.Count = count
	}
	return o
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := s.renderer.Render(r.Context(), w, overrides(r))
	if err != nil && !isLoadError(err) {
		s.logger.Error("Failed to render widget", "error", err)
	}
}

type feedFormat int

const (
	formatRSS feedFormat = iota
	formatAtom
	formatJSON
)

func (s *Server) handleFeed(format feedFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.renderer.View(r.Context(), overrides(r))
		if err != nil {
			writeLoadError(w, view.Message, err)
			return
		}

		feed := s.buildFeed(view)

		var (
			body        string
			contentType string
		)
		switch format {
		case formatAtom:
			body, err = feed.ToAtom()
			contentType = "application/atom+xml; charset=utf-8"
		case formatJSON:
			body, err = feed.ToJSON()
			contentType = "application/feed+json; charset=utf-8"
		default:
			body, err = feed.ToRss()
			contentType = "application/rss+xml; charset=utf-8"
		}
		if err != nil {
			s.logger.Error("Failed to generate feed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", view.Params.CacheTTL))
		fmt.Fprint(w, body)
	}
}

func isLoadError(err error) bool {
	return bookmarks.IsNotConfigured(err) || bookmarks.IsUpstreamError(err)
}

func writeLoadError(w http.ResponseWriter, message string, err error) {
	status := http.StatusBadGateway
	if bookmarks.IsNotConfigured(err) {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, message)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"started": s.started.Format(time.RFC3339),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// buildFeed converts bookmarks back to plain text; gorilla/feeds escapes
// for its own output formats.
func (s *Server) buildFeed(view widget.View) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(view.Bookmarks))
	for _, b := range view.Bookmarks {
		created, _ := time.Parse(time.RFC3339, b.Timestamp)
		item := &feeds.Item{
			Id:          b.URL,
			Title:       html.UnescapeString(b.Title),
			Link:        &feeds.Link{Href: b.URL},
			Description: html.UnescapeString(b.Description),
			Created:     created,
		}
		if len(b.Tags) > 0 {
			item.Content = "Tags: " + html.UnescapeString(b.TagsJoined)
		}
		items = append(items, item)
	}

	title := s.config.FeedTitle
	if title == "" {
		title = "Bookmarks of " + view.Params.Account
	}
	if view.Params.Tags != "" {
		title += " (" + view.Params.Tags + ")"
	}

	return &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: "http://delicious.com/" + view.Params.Account},
		Description: "Bookmarks of " + view.Params.Account,
		Author:      &feeds.Author{Name: view.Params.Account},
		Created:     time.Now().UTC(),
		Items:       items,
	}
}

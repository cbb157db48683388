package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bookmarkfeed/internal/bookmarks"
)

const (
	filterFunction = "keep"

	// DefaultFilterTimeout bounds one Apply over a whole bookmark list.
	DefaultFilterTimeout = 2 * time.Second
)

// FilterConfig tunes a Filter. Unsafe exposes os, io and debug to the
// script; a zero Timeout means DefaultFilterTimeout.
type FilterConfig struct {
	Timeout time.Duration
	Unsafe  bool
}

// Filter runs a user script's keep(bookmark) over loaded bookmarks. The
// bookmark table has url, title, description, tags, tags_joined and
// timestamp; a false or nil result drops the bookmark.
type Filter struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
	runtime *Runtime
}

func NewFilter(path string, config FilterConfig, logger *slog.Logger) (*Filter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter script %s: %w", path, err)
	}

	return newFilter(path, string(content), config, logger)
}

func newFilter(path, content string, config FilterConfig, logger *slog.Logger) (*Filter, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultFilterTimeout
	}

	dir := ""
	if path != "" {
		dir = filepath.Dir(path)
	}

	runtime := NewRuntime(WithModuleDir(dir), WithSecureMode(!config.Unsafe))
	if err := runtime.Register(NewLogModule(logger)); err != nil {
		runtime.Close()
		return nil, err
	}

	if err := runtime.LoadScript(content); err != nil {
		runtime.Close()
		return nil, fmt.Errorf("filter script %s: %w", path, err)
	}

	if !runtime.HasFunction(filterFunction) {
		runtime.Close()
		return nil, fmt.Errorf("filter script %s: function %s not defined", path, filterFunction)
	}

	logger.Info("Filter script loaded", "path", path, "timeout", config.Timeout, "unsafe", config.Unsafe)
	return &Filter{
		path:    path,
		timeout: config.Timeout,
		logger:  logger,
		runtime: runtime,
	}, nil
}

// Apply returns the bookmarks the script keeps, in order. A bookmark whose
// evaluation fails is kept, including every bookmark left unevaluated when
// ctx ends or the filter timeout passes.
func (f *Filter) Apply(ctx context.Context, records []bookmarks.Bookmark) []bookmarks.Bookmark {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	kept := make([]bookmarks.Bookmark, 0, len(records))
	for _, b := range records {
		keep, err := f.keep(ctx, b)
		if err != nil {
			f.logger.Warn("Filter script failed, keeping bookmark", "path", f.path, "url", b.URL, "error", err)
			kept = append(kept, b)
			continue
		}
		if keep {
			kept = append(kept, b)
		}
	}

	if dropped := len(records) - len(kept); dropped > 0 {
		f.logger.Debug("Filter script dropped bookmarks", "path", f.path, "dropped", dropped, "kept", len(kept))
	}
	return kept
}

func (f *Filter) keep(ctx context.Context, b bookmarks.Bookmark) (bool, error) {
	results, err := f.runtime.Call(ctx, filterFunction, bookmarkTable(b))
	if err != nil {
		return false, err
	}
	if len(results) == 0 {
		return false, nil
	}

	switch v := results[0].(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%s returned %T, want boolean", filterFunction, v)
	}
}

func bookmarkTable(b bookmarks.Bookmark) map[string]any {
	return map[string]any{
		"url":         b.URL,
		"title":       b.Title,
		"description": b.Description,
		"tags":        b.Tags,
		"tags_joined": b.TagsJoined,
		"timestamp":   b.Timestamp,
	}
}

func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runtime.Close()
}

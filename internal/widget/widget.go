package widget

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/template"
)

type Loader interface {
	Load(ctx context.Context, params bookmarks.Params) ([]bookmarks.Bookmark, error)
}

type Filter interface {
	Apply(ctx context.Context, records []bookmarks.Bookmark) []bookmarks.Bookmark
}

// Overrides replace configured params for a single render. Zero values
// keep the configured value; a non-nil Tags pointer to "" clears tags.
type Overrides struct {
	Account string
	Tags    *string
	Count   int
}

// View is the data the widget template is executed with. Message is set
// instead of Bookmarks when loading failed.
type View struct {
	Bookmarks []bookmarks.Bookmark
	Message   string
	Params    bookmarks.Params
}

type Config struct {
	Params   bookmarks.Params
	Loader   Loader
	Template *template.Template
	Filter   Filter
	Logger   *slog.Logger
}

type Renderer struct {
	params bookmarks.Params
	loader Loader
	tmpl   *template.Template
	filter Filter
	logger *slog.Logger
}

func New(config Config) (*Renderer, error) {
	if config.Loader == nil {
		return nil, fmt.Errorf("widget: loader is required")
	}
	if config.Template == nil {
		return nil, fmt.Errorf("widget: template is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Renderer{
		params: config.Params,
		loader: config.Loader,
		tmpl:   config.Template,
		filter: config.Filter,
		logger: config.Logger,
	}, nil
}

func (r *Renderer) Params(overrides Overrides) bookmarks.Params {
	params := r.params
	if overrides.Account != "" {
		params.Account = overrides.Account
	}
	if overrides.Tags != nil {
		params.Tags = *overrides.Tags
	}
	if overrides.Count > 0 {
		params.Count = overrides.Count
	}
	return params
}

// View loads bookmarks for the merged params. The returned View is always
// renderable; err is the load failure the Message was derived from.
func (r *Renderer) View(ctx context.Context, overrides Overrides) (View, error) {
	params := r.Params(overrides)
	view := View{Params: params}

	records, err := r.loader.Load(ctx, params)
	if err != nil {
		r.logger.Warn("Bookmarks unavailable", "account", params.Account, "tags", params.Tags, "error", err)
		view.Message = bookmarks.Message(err)
		return view, err
	}

	if r.filter != nil {
		records = r.filter.Apply(ctx, records)
	}
	view.Bookmarks = records
	return view, nil
}

// Render writes the widget HTML. Load failures are rendered as the
// placeholder message and returned; only template errors leave w incomplete.
func (r *Renderer) Render(ctx context.Context, w io.Writer, overrides Overrides) error {
	view, loadErr := r.View(ctx, overrides)
	if err := r.tmpl.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render widget: %w", err)
	}
	return loadErr
}

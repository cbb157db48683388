package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/cache"
	"bookmarkfeed/internal/script"
	"bookmarkfeed/internal/template"
	"bookmarkfeed/internal/widget"
)

// App holds every component built from one Config.
type App struct {
	Config   *Config
	Cache    cache.Store[[]bookmarks.Bookmark]
	Loader   *bookmarks.Loader
	Filter   *script.Filter
	Template *template.Template
	Renderer *widget.Renderer

	logger *slog.Logger
}

type Loader struct {
	config *Config
	logger *slog.Logger
	app    *App
}

func NewLoader(cfg *Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: cfg,
		logger: logger,
	}
}

func (l *Loader) Initialize(ctx context.Context) (*App, error) {
	l.logger.Info("Initializing components", "cache", l.config.Cache.Type, "format", l.config.Feed.Format)
	l.app = &App{Config: l.config, logger: l.logger}

	store, err := cache.Open[[]bookmarks.Bookmark](ctx, l.config.CacheOptions())
	if err != nil {
		return nil, fmt.Errorf("cache initialization failed: %w", err)
	}
	l.app.Cache = store

	loader, err := bookmarks.NewLoader(bookmarks.LoaderConfig{
		BaseURL: l.config.Feed.BaseURL,
		Format:  l.config.Feed.Format,
		Logger:  l.logger,
	}, store)
	if err != nil {
		l.Shutdown()
		return nil, err
	}
	l.app.Loader = loader

	if path := l.config.Render.FilterScript; path != "" {
		filter, err := script.NewFilter(path, l.config.FilterOptions(), l.logger)
		if err != nil {
			l.Shutdown()
			return nil, fmt.Errorf("filter initialization failed: %w", err)
		}
		l.app.Filter = filter
	}

	tmpl, err := template.Load(l.config.Render.Template, nil)
	if err != nil {
		l.Shutdown()
		return nil, fmt.Errorf("template initialization failed: %w", err)
	}
	l.app.Template = tmpl

	renderConfig := widget.Config{
		Params:   l.config.Params(),
		Loader:   loader,
		Template: tmpl,
		Logger:   l.logger,
	}
	if l.app.Filter != nil {
		renderConfig.Filter = l.app.Filter
	}
	renderer, err := widget.New(renderConfig)
	if err != nil {
		l.Shutdown()
		return nil, err
	}
	l.app.Renderer = renderer

	l.logger.Info("All components initialized")
	return l.app, nil
}

func (l *Loader) Shutdown() {
	if l.app != nil {
		l.app.Close()
	}
}

// Close releases the filter runtime and the cache connection.
func (a *App) Close() {
	if a.Filter != nil {
		if err := a.Filter.Close(); err != nil {
			a.logger.Error("Error closing filter", "error", err)
		}
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Error("Error closing cache", "error", err)
		}
	}
}

// LoadOrDefault reads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func LoadAndBuild(ctx context.Context, configPath string, logger *slog.Logger) (*App, error) {
	cfg, err := LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewLoader(cfg, logger).Initialize(ctx)
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"ContentRadar/internal/api"
	"ContentRadar/internal/classify"
	"ContentRadar/internal/collector"
	"ContentRadar/internal/config"
	"ContentRadar/internal/ingest"
	"ContentRadar/internal/logging"
	"ContentRadar/internal/ports"
	"ContentRadar/internal/signals"
	"ContentRadar/internal/storage"
	"ContentRadar/internal/tagging"
)

// Application is the explicit composition root: every component receives
// its dependencies from here instead of reaching for process globals.
type Application struct {
	Cfg         config.Config
	Logger      *slog.Logger
	DB          *sql.DB
	Store       *storage.Store
	Tagger      *tagging.KeywordTagger
	Registry    *collector.Registry
	Coordinator *ingest.Coordinator
	Aggregator  *signals.Aggregator
	Reasoner    ports.Reasoner
}

// New opens storage, ensures the schema, and wires every collector and
// pipeline component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Ensure(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store := storage.NewStore(db)
	tagger := tagging.NewKeywordTagger(cfg.Keywords.MaxTags)

	registry := collector.NewRegistry()
	registry.Register(collector.NewHackerNews(nil, cfg.Sources.HackerNews,
		baseLogger.With("component", "collector.hackernews")))
	registry.Register(collector.NewNewsletter(nil, cfg.Sources.Newsletters,
		baseLogger.With("component", "collector.newsletter")))
	registry.Register(collector.NewVideo(nil, cfg.Sources.Videos,
		baseLogger.With("component", "collector.video")))
	registry.Register(collector.NewForum(nil, cfg.Sources.Forum,
		baseLogger.With("component", "collector.forum")))
	registry.Register(collector.NewSocial(cfg.Sources.Social,
		baseLogger.With("component", "collector.social")))

	var reasoner ports.Reasoner
	if cfg.Classifier.APIKey != "" {
		reasoner = classify.NewChatReasoner(cfg.Classifier)
	}

	return &Application{
		Cfg:         cfg,
		Logger:      baseLogger,
		DB:          db,
		Store:       store,
		Tagger:      tagger,
		Registry:    registry,
		Coordinator: ingest.NewCoordinator(store, tagger, baseLogger.With("component", "ingest")),
		Aggregator:  signals.NewAggregator(store, signals.PolicyFromConfig(cfg.Signals)),
		Reasoner:    reasoner,
	}, nil
}

// Close releases the storage handle.
func (a *Application) Close() error {
	return a.DB.Close()
}

// Handler builds the HTTP API bound to this application's components.
func (a *Application) Handler() http.Handler {
	server := api.NewServer(a.Cfg, a.Logger.With("component", "api"),
		a.Store, a.Registry, a.Coordinator, a.Aggregator, a.Reasoner)
	return server.Handler()
}

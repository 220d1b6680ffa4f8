package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carniceria-aranda/backend/config"
	httpDelivery "github.com/carniceria-aranda/backend/internal/delivery/http"
	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/carniceria-aranda/backend/internal/infrastructure/archive"
	"github.com/carniceria-aranda/backend/internal/infrastructure/catalog"
	"github.com/carniceria-aranda/backend/internal/infrastructure/embedding"
	"github.com/carniceria-aranda/backend/internal/infrastructure/logging"
	"github.com/carniceria-aranda/backend/internal/infrastructure/metrics"
	"github.com/carniceria-aranda/backend/internal/infrastructure/session"
	"github.com/carniceria-aranda/backend/internal/usecase"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting Aranda order backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("session_store", cfg.Session.Type),
		zap.String("catalog", cfg.Catalog.Path))

	m := metrics.New()

	// Catalog and matching engine
	var embedder domain.Embedder
	if cfg.Semantic.Enabled {
		embedder = embedding.NewClient(embedding.Config{
			BaseURL:           cfg.Semantic.BaseURL,
			Model:             cfg.Semantic.Model,
			RequestsPerSecond: cfg.RateLimit.Embedding,
		}, logger.Named("embedding"))
		logger.Info("semantic matching enabled",
			zap.String("base_url", cfg.Semantic.BaseURL),
			zap.String("model", cfg.Semantic.Model))
	}

	source := catalog.FileSource{
		CatalogPath:  cfg.Catalog.Path,
		SynonymsPath: cfg.Catalog.SynonymsPath,
		Logger:       logger.Named("catalog"),
	}
	catalogs := usecase.NewCatalogService(source, embedder, engineConfig(cfg), logger.Named("engine"), m)
	if _, err := catalogs.Reload(ctx); err != nil {
		// The server still starts; /health reports degraded until a reload succeeds.
		logger.Error("initial catalog load failed", zap.Error(err))
	}

	// Conversation state
	sessions, closeSessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Confirmed orders
	orders, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("opening order archive: %w", err)
	}
	defer func() { _ = orders.Close() }()

	dialogue := usecase.NewDialogueService(sessions, orders, catalogs,
		usecase.DialogueConfig{
			SessionTTL:   cfg.Session.TTL,
			OpeningHours: cfg.Server.OpeningHours,
		},
		usecase.WithDialogueLogger(logger.Named("dialogue")),
		usecase.WithDialogueRecorder(m))

	handler := httpDelivery.NewHandler(dialogue, catalogs, orders, logger.Named("handler"))
	router := httpDelivery.SetupRouter(cfg, handler, logger, m)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func engineConfig(cfg *config.Config) usecase.EngineConfig {
	return usecase.EngineConfig{
		Resolver: usecase.ResolverConfig{
			AcceptThreshold:          cfg.Matching.AcceptThreshold,
			SuggestThreshold:         cfg.Matching.SuggestThreshold,
			MaxSuggestions:           cfg.Matching.MaxSuggestions,
			ExtraWordPenalty:         cfg.Matching.ExtraWordPenalty,
			FirstTokenBonus:          cfg.Matching.FirstTokenBonus,
			SemanticAcceptThreshold:  cfg.Semantic.AcceptThreshold,
			SemanticSuggestThreshold: cfg.Semantic.SuggestThreshold,
			SupersetMatching:         cfg.Matching.SupersetMatching,
			EnableFuzzyMatching:      cfg.Matching.EnableFuzzyMatching,
		},
		StripPlural:         cfg.Matching.StripPlural,
		SemanticConcurrency: cfg.Semantic.Concurrency,
		SeparatorWords:      cfg.Matching.SeparatorWords,
		EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.SessionStore, func(), error) {
	switch cfg.Session.Type {
	case "redis":
		rdb, err := session.NewRedisClient(ctx, cfg.Session.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store := session.NewRedisStore(rdb, session.WithLogger(logger.Named("session")))
		return store, func() { _ = rdb.Close() }, nil
	default:
		store := session.NewMemoryStore(0)
		return store, func() { _ = store.Close() }, nil
	}
}

func init() {
	// Messages from log are only printed before the zap logger exists.
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}

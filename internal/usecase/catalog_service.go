package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/carniceria-aranda/backend/internal/domain"
	"go.uber.org/zap"
)

// EngineConfig holds configuration for building catalog snapshots
type EngineConfig struct {
	Resolver            ResolverConfig
	StripPlural         bool
	SeparatorWords      []string
	SemanticConcurrency int
	EnableDebugLogging  bool
}

// CatalogService loads catalogs, derives the matching engine from them and
// publishes the result as an immutable snapshot.
type CatalogService struct {
	source   domain.CatalogSource
	embedder domain.Embedder
	cfg      EngineConfig
	store    *SnapshotStore
	logger   *zap.Logger
	metrics  Recorder

	reloadMu sync.Mutex
}

// NewCatalogService creates a service; call Reload once before serving.
// embedder may be nil to disable the semantic stage.
func NewCatalogService(
	source domain.CatalogSource,
	embedder domain.Embedder,
	cfg EngineConfig,
	logger *zap.Logger,
	metrics Recorder,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	return &CatalogService{
		source:   source,
		embedder: embedder,
		cfg:      cfg,
		store:    NewSnapshotStore(nil),
		logger:   logger,
		metrics:  metrics,
	}
}

// Snapshot returns the published snapshot, nil before the first Reload.
func (s *CatalogService) Snapshot() *CatalogSnapshot {
	return s.store.Load()
}

// Reload loads the catalog again and swaps the snapshot. On failure the
// previous snapshot stays published.
func (s *CatalogService) Reload(ctx context.Context) (*CatalogSnapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	catalog, err := s.source.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	synonyms, err := s.source.LoadSynonyms(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading synonyms: %w", err)
	}

	snapshot := BuildSnapshot(ctx, catalog, synonyms, s.embedder, s.cfg, s.logger, s.metrics)
	s.store.Swap(snapshot)

	s.logger.Info("catalog published",
		zap.Int("products", catalog.Len()),
		zap.Int("synonyms", len(synonyms)),
		zap.Bool("semantic", snapshot.Resolver.semantic != nil))
	return snapshot, nil
}

// BuildSnapshot derives index, resolver and extractor from a catalog. When
// the semantic index cannot be built the snapshot is published without it.
func BuildSnapshot(
	ctx context.Context,
	catalog *domain.Catalog,
	synonyms map[string]string,
	embedder domain.Embedder,
	cfg EngineConfig,
	logger *zap.Logger,
	metrics Recorder,
) *CatalogSnapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}

	normalizer := Normalizer{StripPlural: cfg.StripPlural}
	index := BuildIndex(catalog, normalizer)
	for key, names := range index.Collisions() {
		logger.Warn("catalog names share a lookup key", zap.String("key", key), zap.Strings("names", names))
	}

	table := NewSynonymTable(normalizer, DefaultSynonyms, synonyms)

	resolverCfg := cfg.Resolver
	resolverCfg.EnableDebugLogging = resolverCfg.EnableDebugLogging || cfg.EnableDebugLogging
	opts := []ResolverOption{
		WithResolverLogger(logger.Named("resolver")),
		WithResolverRecorder(metrics),
	}
	if embedder != nil {
		semantic, err := BuildSemanticIndex(ctx, embedder, catalog, cfg.SemanticConcurrency)
		if err != nil {
			logger.Warn("semantic index unavailable", zap.Error(err))
		} else {
			logger.Info("semantic index built", zap.Int("embedded", semantic.Len()))
			opts = append(opts, WithSemanticMatcher(semantic))
		}
	}
	resolver := NewProductResolver(index, table, resolverCfg, opts...)

	preprocessor := NewMessagePreprocessor(cfg.SeparatorWords, logger.Named("preprocess"), cfg.EnableDebugLogging)
	extractor := NewOrderExtractor(resolver, preprocessor,
		WithExtractorLogger(logger.Named("extractor")),
		WithExtractorRecorder(metrics))

	return &CatalogSnapshot{
		Catalog:   catalog,
		Index:     index,
		Resolver:  resolver,
		Extractor: extractor,
	}
}

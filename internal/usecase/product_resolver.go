package usecase

import (
	"context"
	"math"
	"sort"

	"github.com/carniceria-aranda/backend/internal/domain"
	"go.uber.org/zap"
)

// Default resolver tuning. The fuzzy thresholds are calibrated for short
// Spanish product names; change them through configuration, not here.
const (
	DefaultAcceptThreshold          = 0.85
	DefaultSuggestThreshold         = 0.60
	DefaultMaxSuggestions           = 3
	DefaultExtraWordPenalty         = 0.15
	DefaultFirstTokenBonus          = 0.05
	DefaultSemanticAcceptThreshold  = 0.80
	DefaultSemanticSuggestThreshold = 0.65

	scoreEpsilon = 1e-9
)

// ResolverConfig holds configuration for the product resolver
type ResolverConfig struct {
	AcceptThreshold          float64
	SuggestThreshold         float64
	MaxSuggestions           int
	ExtraWordPenalty         float64
	FirstTokenBonus          float64
	SemanticAcceptThreshold  float64
	SemanticSuggestThreshold float64
	SupersetMatching         bool
	EnableFuzzyMatching      bool
	EnableDebugLogging       bool
}

// DefaultResolverConfig returns the tuning used when nothing is configured.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		AcceptThreshold:          DefaultAcceptThreshold,
		SuggestThreshold:         DefaultSuggestThreshold,
		MaxSuggestions:           DefaultMaxSuggestions,
		ExtraWordPenalty:         DefaultExtraWordPenalty,
		FirstTokenBonus:          DefaultFirstTokenBonus,
		SemanticAcceptThreshold:  DefaultSemanticAcceptThreshold,
		SemanticSuggestThreshold: DefaultSemanticSuggestThreshold,
		SupersetMatching:         true,
		EnableFuzzyMatching:      true,
	}
}

// ScoredName is a canonical product name with a similarity score.
type ScoredName struct {
	Name  string
	Score float64
}

// SemanticMatcher is the optional last resolver stage.
type SemanticMatcher interface {
	Nearest(ctx context.Context, phrase string, k int) ([]ScoredName, error)
}

// ResolverOption customizes a ProductResolver.
type ResolverOption func(*ProductResolver)

// WithSemanticMatcher enables the embedding fallback stage.
func WithSemanticMatcher(m SemanticMatcher) ResolverOption {
	return func(r *ProductResolver) { r.semantic = m }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *ProductResolver) { r.logger = l }
}

// WithResolverRecorder sets the metrics recorder.
func WithResolverRecorder(m Recorder) ResolverOption {
	return func(r *ProductResolver) { r.metrics = m }
}

// ProductResolver maps a free-text product phrase to a canonical catalog
// name through an ordered cascade: exact key, synonym, keyword subset,
// fuzzy similarity and, when configured, semantic similarity. The first
// stage that is confident wins.
type ProductResolver struct {
	index    *CatalogIndex
	synonyms SynonymTable
	semantic SemanticMatcher
	cfg      ResolverConfig
	logger   *zap.Logger
	metrics  Recorder
}

// NewProductResolver creates a resolver over index. Unset thresholds and
// limits fall back to the defaults; a zero penalty or bonus disables it.
func NewProductResolver(index *CatalogIndex, synonyms SynonymTable, cfg ResolverConfig, opts ...ResolverOption) *ProductResolver {
	if cfg.AcceptThreshold <= 0 {
		cfg.AcceptThreshold = DefaultAcceptThreshold
	}
	if cfg.SuggestThreshold <= 0 {
		cfg.SuggestThreshold = DefaultSuggestThreshold
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultMaxSuggestions
	}
	if cfg.ExtraWordPenalty < 0 {
		cfg.ExtraWordPenalty = DefaultExtraWordPenalty
	}
	if cfg.FirstTokenBonus < 0 {
		cfg.FirstTokenBonus = DefaultFirstTokenBonus
	}
	if cfg.SemanticAcceptThreshold <= 0 {
		cfg.SemanticAcceptThreshold = DefaultSemanticAcceptThreshold
	}
	if cfg.SemanticSuggestThreshold <= 0 {
		cfg.SemanticSuggestThreshold = DefaultSemanticSuggestThreshold
	}

	r := &ProductResolver{
		index:    index,
		synonyms: synonyms,
		cfg:      cfg,
		logger:   zap.NewNop(),
		metrics:  NopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index returns the catalog index the resolver works on.
func (r *ProductResolver) Index() *CatalogIndex {
	return r.index
}

// Resolve never fails: a phrase that cannot be matched resolves to NotFound,
// possibly with suggestions.
func (r *ProductResolver) Resolve(ctx context.Context, phrase string) domain.Resolution {
	key := r.index.Key(phrase)
	if key == "" {
		return domain.NoMatch(nil)
	}

	res := r.resolve(ctx, phrase, key)
	r.metrics.ObserveResolution(res.Stage, res.Kind)

	if r.cfg.EnableDebugLogging {
		r.logger.Debug("product resolved",
			zap.String("phrase", phrase),
			zap.String("key", key),
			zap.Stringer("kind", res.Kind),
			zap.String("stage", string(res.Stage)),
			zap.String("product", res.Product),
			zap.Strings("candidates", res.Candidates),
			zap.Strings("suggestions", res.Suggestions),
			zap.Float64("score", res.Score))
	}
	return res
}

func (r *ProductResolver) resolve(ctx context.Context, phrase, key string) domain.Resolution {
	if res, ok := r.matchExact(key); ok {
		return res
	}
	if res, ok := r.matchSynonym(key); ok {
		return res
	}

	query := contentTokens(key)
	if res, ok := r.matchKeywords(query); ok {
		return res
	}

	var suggestions []string
	if r.cfg.EnableFuzzyMatching {
		res, ok := r.matchFuzzy(query)
		if ok {
			return res
		}
		suggestions = res.Suggestions
	}

	if r.semantic != nil {
		res, ok := r.matchSemantic(ctx, phrase)
		if ok {
			return res
		}
		if len(suggestions) == 0 {
			suggestions = res.Suggestions
		}
	}

	return domain.NoMatch(suggestions)
}

func (r *ProductResolver) matchExact(key string) (domain.Resolution, bool) {
	names := r.index.Lookup(key)
	switch len(names) {
	case 0:
		return domain.Resolution{}, false
	case 1:
		return domain.ExactMatch(names[0], domain.StageExact, 1), true
	default:
		return domain.AmbiguousMatch(sortedCopy(names), domain.StageExact), true
	}
}

func (r *ProductResolver) matchSynonym(key string) (domain.Resolution, bool) {
	canonical, ok := r.synonyms.Lookup(key)
	if !ok {
		return domain.Resolution{}, false
	}
	if _, exists := r.index.Catalog().Get(canonical); exists {
		return domain.ExactMatch(canonical, domain.StageSynonym, 1), true
	}
	// The synonym file may spell the target differently from the catalog.
	names := r.index.Lookup(r.index.Key(canonical))
	if len(names) == 1 {
		return domain.ExactMatch(names[0], domain.StageSynonym, 1), true
	}
	return domain.Resolution{}, false
}

// matchKeywords prefers catalog entries fully mentioned by the query; only
// when there are none does it look for entries containing the whole query.
func (r *ProductResolver) matchKeywords(query []string) (domain.Resolution, bool) {
	if len(query) == 0 {
		return domain.Resolution{}, false
	}

	var matches []string
	for _, e := range r.index.entries {
		if isSubset(e.Tokens, query) {
			matches = append(matches, e.Canonical)
		}
	}
	if len(matches) == 0 && r.cfg.SupersetMatching {
		for _, e := range r.index.entries {
			if isSubset(query, e.Tokens) {
				matches = append(matches, e.Canonical)
			}
		}
	}

	switch len(matches) {
	case 0:
		return domain.Resolution{}, false
	case 1:
		return domain.ExactMatch(matches[0], domain.StageKeyword, 1), true
	default:
		return domain.AmbiguousMatch(sortedCopy(matches), domain.StageKeyword), true
	}
}

// matchFuzzy returns ok=false with the suggestions when nothing reaches the
// accept threshold.
func (r *ProductResolver) matchFuzzy(query []string) (domain.Resolution, bool) {
	if len(query) == 0 {
		return domain.NoMatch(nil), false
	}

	scored := make([]ScoredName, 0, len(r.index.entries))
	for _, e := range r.index.entries {
		score := r.fuzzyScore(query, e)
		if r.cfg.EnableDebugLogging {
			r.logger.Debug("fuzzy candidate",
				zap.Strings("query", query),
				zap.String("candidate", e.Canonical),
				zap.Float64("score", score))
		}
		if score > 0 {
			scored = append(scored, ScoredName{Name: e.Canonical, Score: score})
		}
	}
	sortScored(scored)

	if len(scored) > 0 && scored[0].Score >= r.cfg.AcceptThreshold {
		best := scored[0].Score
		var tied []string
		for _, s := range scored {
			if math.Abs(s.Score-best) < scoreEpsilon {
				tied = append(tied, s.Name)
			}
		}
		if len(tied) == 1 {
			return domain.ExactMatch(tied[0], domain.StageFuzzy, best), true
		}
		return domain.AmbiguousMatch(tied, domain.StageFuzzy), true
	}

	return domain.NoMatch(topNames(scored, r.cfg.SuggestThreshold, r.cfg.MaxSuggestions)), false
}

// fuzzyScore is the token-set ratio of query and entry, divided by
// 1+extra*penalty where extra counts catalog tokens with no exact or
// one-edit counterpart in the query, plus a bonus when a single-word query
// equals the first catalog token. Capped at 1.
func (r *ProductResolver) fuzzyScore(query []string, e indexEntry) float64 {
	if len(query) == 0 || len(e.Tokens) == 0 {
		return 0
	}

	score := tokenSetRatio(query, e.Tokens)

	extra := 0
	for _, t := range e.Tokens {
		if !matchesAnyToken(t, query) {
			extra++
		}
	}
	score /= 1 + float64(extra)*r.cfg.ExtraWordPenalty

	if len(query) == 1 && e.Tokens[0] == query[0] {
		score += r.cfg.FirstTokenBonus
	}

	return math.Min(score, 1)
}

func matchesAnyToken(token string, candidates []string) bool {
	for _, c := range candidates {
		if fuzzyTokenMatch(token, c, 1) {
			return true
		}
	}
	return false
}

func (r *ProductResolver) matchSemantic(ctx context.Context, phrase string) (domain.Resolution, bool) {
	nearest, err := r.semantic.Nearest(ctx, phrase, r.cfg.MaxSuggestions)
	if err != nil {
		r.logger.Warn("semantic stage skipped", zap.String("phrase", phrase), zap.Error(err))
		return domain.NoMatch(nil), false
	}
	if len(nearest) == 0 {
		return domain.NoMatch(nil), false
	}

	sortScored(nearest)
	if nearest[0].Score >= r.cfg.SemanticAcceptThreshold {
		return domain.ExactMatch(nearest[0].Name, domain.StageSemantic, nearest[0].Score), true
	}
	return domain.NoMatch(topNames(nearest, r.cfg.SemanticSuggestThreshold, r.cfg.MaxSuggestions)), false
}

// sortScored orders by score descending, then by name.
func sortScored(s []ScoredName) {
	sort.SliceStable(s, func(i, j int) bool {
		if math.Abs(s[i].Score-s[j].Score) >= scoreEpsilon {
			return s[i].Score > s[j].Score
		}
		return s[i].Name < s[j].Name
	})
}

func topNames(sorted []ScoredName, threshold float64, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range sorted {
		if len(out) == limit {
			break
		}
		if s.Score < threshold || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s.Name)
	}
	return out
}

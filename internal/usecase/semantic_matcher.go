package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/carniceria-aranda/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultEmbeddingConcurrency bounds parallel embedding requests while
// building a semantic index.
const DefaultEmbeddingConcurrency = 4

// SemanticIndex holds one embedding per catalog product. It is read-only
// after BuildSemanticIndex returns.
type SemanticIndex struct {
	embedder domain.Embedder
	names    []string
	vectors  [][]float32
}

// BuildSemanticIndex embeds every catalog name, at most concurrency at a
// time. Any failure aborts the build.
func BuildSemanticIndex(ctx context.Context, embedder domain.Embedder, catalog *domain.Catalog, concurrency int) (*SemanticIndex, error) {
	if concurrency <= 0 {
		concurrency = DefaultEmbeddingConcurrency
	}

	names := catalog.Names()
	vectors := make([][]float32, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, name := range names {
		g.Go(func() error {
			v, err := embedder.Embed(gctx, name)
			if err != nil {
				return fmt.Errorf("embedding %q: %w", name, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SemanticIndex{embedder: embedder, names: names, vectors: vectors}, nil
}

// Nearest embeds phrase and returns the k most similar products by cosine
// similarity, best first.
func (s *SemanticIndex) Nearest(ctx context.Context, phrase string, k int) ([]ScoredName, error) {
	query, err := s.embedder.Embed(ctx, phrase)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredName, 0, len(s.names))
	for i, v := range s.vectors {
		scored = append(scored, ScoredName{Name: s.names[i], Score: cosineSimilarity(query, v)})
	}
	sortScored(scored)

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Len returns the number of embedded products.
func (s *SemanticIndex) Len() int {
	return len(s.names)
}

// cosineSimilarity returns 0 for vectors of different length or zero norm.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package domain

import (
	"context"
	"time"
)

// SessionStore persists conversation state per user.
// Get returns ErrSessionNotFound when the user has no live session.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}

// OrderArchive stores confirmed orders.
type OrderArchive interface {
	Save(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CatalogSource loads the product catalog and the colloquial synonym table.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	LoadSynonyms(ctx context.Context) (map[string]string, error)
}

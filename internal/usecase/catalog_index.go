package usecase

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/carniceria-aranda/backend/internal/domain"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	nonKeyCharRegex     = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, strips diacritics, replaces every character other
// than letters, digits, whitespace and hyphens with a space and collapses
// runs of whitespace.
func Normalize(s string) string {
	s = stripDiacritics(strings.ToLower(s))
	s = nonKeyCharRegex.ReplaceAllString(s, " ")
	s = multipleSpacesRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalizer produces lookup keys. The same Normalizer must be used for
// catalog names and for customer phrases.
type Normalizer struct {
	// StripPlural drops a trailing "s" from every token longer than 3 runes.
	StripPlural bool
}

// Key returns the lookup key of s.
func (n Normalizer) Key(s string) string {
	key := Normalize(s)
	if !n.StripPlural || key == "" {
		return key
	}
	words := strings.Fields(key)
	for i, w := range words {
		words[i] = singular(w)
	}
	return strings.Join(words, " ")
}

func singular(w string) string {
	if utf8.RuneCountInString(w) > 3 && strings.HasSuffix(w, "s") {
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// indexEntry is one catalog product as seen by the resolver.
type indexEntry struct {
	Canonical string
	Key       string
	Tokens    []string
}

// CatalogIndex maps normalized keys to canonical product names. It is built
// once per catalog and never mutated afterwards.
type CatalogIndex struct {
	normalizer Normalizer
	catalog    *domain.Catalog
	byKey      map[string][]string
	entries    []indexEntry
}

// BuildIndex indexes every product of catalog under normalizer.Key(name).
// Names that collide on the same key are all kept under that key.
func BuildIndex(catalog *domain.Catalog, normalizer Normalizer) *CatalogIndex {
	idx := &CatalogIndex{
		normalizer: normalizer,
		catalog:    catalog,
		byKey:      make(map[string][]string, catalog.Len()),
	}

	for _, name := range catalog.Names() {
		key := normalizer.Key(name)
		if key == "" {
			continue
		}
		idx.byKey[key] = append(idx.byKey[key], name)
		idx.entries = append(idx.entries, indexEntry{
			Canonical: name,
			Key:       key,
			Tokens:    contentTokens(key),
		})
	}

	return idx
}

// Key normalizes a customer phrase the same way catalog names were.
func (idx *CatalogIndex) Key(phrase string) string {
	return idx.normalizer.Key(phrase)
}

// Lookup returns the canonical names stored under key.
func (idx *CatalogIndex) Lookup(key string) []string {
	return idx.byKey[key]
}

// Catalog returns the indexed catalog.
func (idx *CatalogIndex) Catalog() *domain.Catalog {
	return idx.catalog
}

// Collisions lists keys shared by more than one canonical name.
func (idx *CatalogIndex) Collisions() map[string][]string {
	out := make(map[string][]string)
	for key, names := range idx.byKey {
		if len(names) > 1 {
			out[key] = append([]string(nil), names...)
		}
	}
	return out
}

// Len returns the number of indexed products.
func (idx *CatalogIndex) Len() int {
	return len(idx.entries)
}

// CatalogSnapshot bundles everything derived from one catalog version.
type CatalogSnapshot struct {
	Catalog   *domain.Catalog
	Index     *CatalogIndex
	Resolver  *ProductResolver
	Extractor *OrderExtractor
}

// SnapshotStore publishes catalog snapshots. Readers always see a complete
// snapshot; Swap replaces it atomically.
type SnapshotStore struct {
	current atomic.Pointer[CatalogSnapshot]
}

// NewSnapshotStore returns a store holding initial.
func NewSnapshotStore(initial *CatalogSnapshot) *SnapshotStore {
	s := &SnapshotStore{}
	s.current.Store(initial)
	return s
}

// Load returns the current snapshot.
func (s *SnapshotStore) Load() *CatalogSnapshot {
	return s.current.Load()
}

// Swap publishes next and returns the snapshot it replaced.
func (s *SnapshotStore) Swap(next *CatalogSnapshot) *CatalogSnapshot {
	return s.current.Swap(next)
}

// sortedCopy returns a sorted copy of names.
func sortedCopy(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

package usecase

import (
	"context"
	"testing"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func product(name, price string, unit domain.Unit) domain.Product {
	return domain.Product{Name: name, Price: decimal.RequireFromString(price), PriceUnit: unit}
}

func newCatalog(t *testing.T, products ...domain.Product) *domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog(products)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

// shopCatalog is a small butcher's counter used across the engine tests.
func shopCatalog(t *testing.T) *domain.Catalog {
	return newCatalog(t,
		product("Pollo", "4.50", domain.UnitKilograms),
		product("Pechuga de pollo", "7.95", domain.UnitKilograms),
		product("Chorizo", "9.90", domain.UnitKilograms),
		product("Lomo de cerdo", "8.90", domain.UnitKilograms),
		product("Chuleta de cerdo", "7.50", domain.UnitKilograms),
		product("Hamburguesa", "1.20", domain.UnitPieces),
		product("Paella", "12.00", domain.UnitPieces),
	)
}

func newResolver(t *testing.T, catalog *domain.Catalog, synonyms map[string]string, cfg ResolverConfig, opts ...ResolverOption) *ProductResolver {
	t.Helper()
	n := Normalizer{StripPlural: true}
	return NewProductResolver(BuildIndex(catalog, n), NewSynonymTable(n, synonyms), cfg, opts...)
}

func newShopSnapshot(t *testing.T) *CatalogSnapshot {
	t.Helper()
	return BuildSnapshot(context.Background(), shopCatalog(t), nil, nil, EngineConfig{
		Resolver:    DefaultResolverConfig(),
		StripPlural: true,
	}, nil, nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// countingRecorder counts what the engine reports.
type countingRecorder struct {
	NopRecorder
	resolutions map[domain.MatchStage]int
	diagnostics map[domain.DiagnosticKind]int
	orders      int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		resolutions: make(map[domain.MatchStage]int),
		diagnostics: make(map[domain.DiagnosticKind]int),
	}
}

func (r *countingRecorder) ObserveResolution(stage domain.MatchStage, kind domain.ResolutionKind) {
	r.resolutions[stage]++
}

func (r *countingRecorder) ObserveDiagnostic(kind domain.DiagnosticKind) {
	r.diagnostics[kind]++
}

func (r *countingRecorder) ObserveOrder(lines int) {
	r.orders++
}

// equateDecimals compares decimals by value so that 2 and 2.0 are equal.
var equateDecimals = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

package usecase

import (
	"testing"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases and strips accents", input: "Jamón Ibérico", want: "jamon iberico"},
		{name: "drops punctuation", input: "  Pollo   (entero)!! ", want: "pollo entero"},
		{name: "keeps hyphens", input: "Carne-Picada", want: "carne-picada"},
		{name: "strips tilde of eñe", input: "Ñandú", want: "nandu"},
		{name: "keeps digits", input: "Chorizo 2x1", want: "chorizo 2x1"},
		{name: "empty", input: "", want: ""},
		{name: "only symbols", input: "¡¿?!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizer_Key(t *testing.T) {
	tests := []struct {
		name        string
		stripPlural bool
		input       string
		want        string
	}{
		{name: "plural kept when disabled", stripPlural: false, input: "Hamburguesas", want: "hamburguesas"},
		{name: "plural stripped", stripPlural: true, input: "Hamburguesas", want: "hamburguesa"},
		{name: "every word", stripPlural: true, input: "Chuletas de Cerdos", want: "chuleta de cerdo"},
		{name: "short words kept", stripPlural: true, input: "los mas", want: "los mas"},
		{name: "four runes stripped", stripPlural: true, input: "pies", want: "pie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalizer{StripPlural: tt.stripPlural}
			if got := n.Key(tt.input); got != tt.want {
				t.Errorf("Key(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildIndex(t *testing.T) {
	catalog := newCatalog(t,
		product("Jamón", "20.00", domain.UnitKilograms),
		product("Jamon", "18.00", domain.UnitKilograms),
		product("Chorizo", "9.90", domain.UnitKilograms),
	)
	idx := BuildIndex(catalog, Normalizer{})

	t.Run("lookup by key", func(t *testing.T) {
		if diff := cmp.Diff([]string{"Chorizo"}, idx.Lookup(idx.Key("CHORIZO"))); diff != "" {
			t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("colliding names share a key", func(t *testing.T) {
		want := map[string][]string{"jamon": {"Jamon", "Jamón"}}
		if diff := cmp.Diff(want, idx.Collisions()); diff != "" {
			t.Errorf("Collisions mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("len counts every product", func(t *testing.T) {
		if idx.Len() != 3 {
			t.Errorf("Len() = %d, want 3", idx.Len())
		}
	})
}

func TestSnapshotStore(t *testing.T) {
	store := NewSnapshotStore(nil)
	if store.Load() != nil {
		t.Fatal("Load() on empty store should be nil")
	}

	first := &CatalogSnapshot{}
	second := &CatalogSnapshot{}

	if old := store.Swap(first); old != nil {
		t.Errorf("Swap() returned %p, want nil", old)
	}
	if old := store.Swap(second); old != first {
		t.Errorf("Swap() returned %p, want first snapshot", old)
	}
	if store.Load() != second {
		t.Error("Load() should return the last swapped snapshot")
	}
}

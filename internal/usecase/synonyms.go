package usecase

// DefaultSynonyms maps colloquial names used at the counter to catalog
// names. Entries whose target is missing from the loaded catalog are ignored.
var DefaultSynonyms = map[string]string{
	"filetes de pollo":     "Pechuga de pollo",
	"filete de pollo":      "Pechuga de pollo",
	"pechuga":              "Pechuga de pollo",
	"carne picada":         "Carne picada mixta",
	"picada":               "Carne picada mixta",
	"picadillo":            "Carne picada mixta",
	"burger":               "Hamburguesa",
	"burguer":              "Hamburguesa",
	"hamburguesas caseras": "Hamburguesa",
	"chuletas":             "Chuleta de cerdo",
	"chuletillas":          "Chuletillas de cordero",
	"costilla":             "Costilla de cerdo",
	"panceta":              "Panceta fresca",
	"bacon":                "Bacon ahumado",
	"beicon":               "Bacon ahumado",
	"longaniza":            "Longaniza fresca",
	"salchichas":           "Salchicha fresca",
	"alitas":               "Alas de pollo",
	"muslitos":             "Muslo de pollo",
	"contramuslo":          "Contramuslo de pollo",
	"solomillo":            "Solomillo de cerdo",
	"entrecot":             "Entrecot de ternera",
	"filete de ternera":    "Filete de ternera",
	"carne para guisar":    "Ternera para guisar",
	"morcilla de arroz":    "Morcilla",
}

// SynonymTable maps normalized colloquial phrases to canonical product names.
type SynonymTable map[string]string

// NewSynonymTable normalizes the keys of raw with n. Later sources override
// earlier ones, so pass the defaults first.
func NewSynonymTable(n Normalizer, sources ...map[string]string) SynonymTable {
	table := make(SynonymTable)
	for _, src := range sources {
		for phrase, canonical := range src {
			key := n.Key(phrase)
			if key == "" || canonical == "" {
				continue
			}
			table[key] = canonical
		}
	}
	return table
}

// Lookup returns the canonical name registered for key.
func (t SynonymTable) Lookup(key string) (string, bool) {
	canonical, ok := t[key]
	return canonical, ok
}

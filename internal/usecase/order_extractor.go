package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"go.uber.org/zap"
)

// GrammarVersion identifies the segment grammar table below. Bump it when a
// rule is added, removed or reordered.
const GrammarVersion = "2"

const (
	numericQtyPattern  = `(\d+(?:\.\d+)?|\d+\s+\d+/\d+|\d+/\d+|[½¼¾])`
	wordQtyPattern     = `(un\s+cuarto|tres\s+cuartos|dieciséis|dieciseis|diecisiete|dieciocho|diecinueve|catorce|quince|veinte|cuatro|cinco|seis|siete|ocho|nueve|diez|once|doce|trece|tres|dos|una|uno|un|medio|media|cuarto|docena)`
	integerQtyPattern  = `(\d+(?:\.\d+)?|\d+/\d+|dieciséis|dieciseis|diecisiete|dieciocho|diecinueve|catorce|quince|veinte|cuatro|cinco|seis|siete|ocho|nueve|diez|once|doce|trece|tres|dos|una|uno|un)`
	fractionQtyPattern = `(tres\s+cuartos|medio|media|cuarto|\d+/\d+|[½¼¾])`
	productPattern     = `(\p{L}[\p{L}\s-]*?)`
	unitGroup          = `(` + unitPattern + `)`
)

// grammarMatch is what a grammar rule captured from a segment.
type grammarMatch struct {
	Quantity string
	Unit     string
	Product  string
}

// grammarRule is one row of the segment grammar table. match returns false
// when the segment does not fit the rule, letting the next rule try.
type grammarRule struct {
	Name string
	// BareUnit is the unit class used when the segment has no unit token.
	BareUnit domain.Unit
	// FractionKilos reads a fractional amount without unit as kilograms,
	// so that "medio de lomo" is half a kilo rather than half a piece.
	FractionKilos bool
	// RetrySingular re-resolves a plural product phrase in singular form.
	RetrySingular bool
	re            *regexp.Regexp
	match         func(m []string) (grammarMatch, bool)
}

// grammarTable is tried in order; the first rule that matches wins.
var grammarTable = []grammarRule{
	{
		// "2 kg de pollo", "500g chorizo", "2 de pollo"
		Name:          "quantity-first",
		BareUnit:      domain.UnitPieces,
		FractionKilos: true,
		re:            regexp.MustCompile(`^` + numericQtyPattern + `\s*(?:` + unitGroup + `\s+(?:de\s+)?|de\s+)` + productPattern + `$`),
		match: func(m []string) (grammarMatch, bool) {
			return grammarMatch{Quantity: m[1], Unit: m[2], Product: m[3]}, true
		},
	},
	{
		// "pollo 2 kg", "pollo 2"; a fraction after the product needs a unit
		Name:          "product-first",
		BareUnit:      domain.UnitPieces,
		FractionKilos: true,
		re:            regexp.MustCompile(`^` + productPattern + `\s+` + `(\d+(?:\.\d+)?|\d+/\d+|[½¼¾]|tres\s+cuartos|medio|media|cuarto)` + `(?:\s*` + unitGroup + `)?$`),
		match: func(m []string) (grammarMatch, bool) {
			if m[3] == "" && !decimalNumberRegex.MatchString(m[2]) {
				return grammarMatch{}, false
			}
			return grammarMatch{Quantity: m[2], Unit: m[3], Product: m[1]}, true
		},
	},
	{
		// "un kilo de pollo", "medio de lomo"
		Name:          "spelled-quantity-first",
		BareUnit:      domain.UnitPieces,
		FractionKilos: true,
		re:            regexp.MustCompile(`^` + wordQtyPattern + `\s+(?:` + unitGroup + `\s+(?:de\s+)?|de\s+)` + productPattern + `$`),
		match: func(m []string) (grammarMatch, bool) {
			return grammarMatch{Quantity: m[1], Unit: m[2], Product: m[3]}, true
		},
	},
	{
		// "pollo medio", "lomo 1/2": always kilograms
		Name:     "fraction-suffix",
		BareUnit: domain.UnitKilograms,
		re:       regexp.MustCompile(`^` + productPattern + `\s+` + fractionQtyPattern + `$`),
		match: func(m []string) (grammarMatch, bool) {
			return grammarMatch{Quantity: m[2], Product: m[1]}, true
		},
	},
	{
		// "2 hamburguesas", "una paella"
		Name:          "piece-count",
		BareUnit:      domain.UnitPieces,
		RetrySingular: true,
		re:            regexp.MustCompile(`^` + integerQtyPattern + `\s+` + productPattern + `$`),
		match: func(m []string) (grammarMatch, bool) {
			return grammarMatch{Quantity: m[1], Product: m[2]}, true
		},
	},
}

// GrammarRules returns the rule names in evaluation order.
func GrammarRules() []string {
	names := make([]string, len(grammarTable))
	for i, g := range grammarTable {
		names[i] = g.Name
	}
	return names
}

var leadingArticlePattern = regexp.MustCompile(`^(?:el|la|los|las|unos|unas)\s+`)

// ExtractorOption customizes an OrderExtractor.
type ExtractorOption func(*OrderExtractor)

// WithExtractorLogger sets the logger.
func WithExtractorLogger(l *zap.Logger) ExtractorOption {
	return func(e *OrderExtractor) { e.logger = l }
}

// WithExtractorRecorder sets the metrics recorder.
func WithExtractorRecorder(m Recorder) ExtractorOption {
	return func(e *OrderExtractor) { e.metrics = m }
}

// OrderExtractor turns a free-text message into line items.
type OrderExtractor struct {
	resolver     *ProductResolver
	preprocessor *MessagePreprocessor
	logger       *zap.Logger
	metrics      Recorder
}

// NewOrderExtractor wires an extractor to a resolver and a preprocessor.
func NewOrderExtractor(resolver *ProductResolver, preprocessor *MessagePreprocessor, opts ...ExtractorOption) *OrderExtractor {
	e := &OrderExtractor{
		resolver:     resolver,
		preprocessor: preprocessor,
		logger:       zap.NewNop(),
		metrics:      NopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver returns the resolver used for product phrases.
func (e *OrderExtractor) Resolver() *ProductResolver {
	return e.resolver
}

// Extract returns the line items found in message together with a
// diagnostic for every segment that produced none. It never fails.
func (e *OrderExtractor) Extract(ctx context.Context, message string) domain.ExtractionResult {
	start := time.Now()
	result := domain.ExtractionResult{
		Items:       []domain.LineItem{},
		Diagnostics: []domain.Diagnostic{},
	}

	cleaned := e.preprocessor.Preprocess(message)
	for _, segment := range e.preprocessor.Split(cleaned) {
		item, diag, ok := e.extractSegment(ctx, segment)
		if ok {
			result.Items = append(result.Items, item)
			continue
		}
		result.Diagnostics = append(result.Diagnostics, diag)
		e.metrics.ObserveDiagnostic(diag.Kind)
	}

	e.metrics.ObserveExtraction(len(result.Items), len(result.Diagnostics), time.Since(start))
	e.logger.Debug("message extracted",
		zap.String("message", message),
		zap.Int("items", len(result.Items)),
		zap.Int("diagnostics", len(result.Diagnostics)))
	return result
}

func (e *OrderExtractor) extractSegment(ctx context.Context, segment string) (domain.LineItem, domain.Diagnostic, bool) {
	body, note := SplitServingNote(segment)

	for _, rule := range grammarTable {
		m := rule.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		gm, ok := rule.match(m)
		if !ok {
			continue
		}

		product := leadingArticlePattern.ReplaceAllString(strings.TrimSpace(gm.Product), "")
		qty := rule.quantity(gm)
		if !qty.Valid() {
			return domain.LineItem{}, domain.Diagnostic{
				Kind:    domain.DiagnosticInvalidQuantity,
				Segment: segment,
				Phrase:  product,
			}, false
		}

		res := e.resolver.Resolve(ctx, product)
		if res.Kind == domain.ResolutionNotFound && rule.RetrySingular {
			if singularPhrase := singularize(product); singularPhrase != product {
				if retry := e.resolver.Resolve(ctx, singularPhrase); retry.Kind != domain.ResolutionNotFound {
					res = retry
				}
			}
		}

		switch res.Kind {
		case domain.ResolutionExact:
			return domain.LineItem{
				Product:  res.Product,
				Quantity: qty,
				Segment:  segment,
				Grammar:  rule.Name,
				Note:     note,
			}, domain.Diagnostic{}, true
		case domain.ResolutionAmbiguous:
			return domain.LineItem{}, domain.Diagnostic{
				Kind:       domain.DiagnosticAmbiguous,
				Segment:    segment,
				Phrase:     product,
				Candidates: res.Candidates,
			}, false
		default:
			return domain.LineItem{}, domain.Diagnostic{
				Kind:       domain.DiagnosticNotFound,
				Segment:    segment,
				Phrase:     product,
				Candidates: res.Suggestions,
			}, false
		}
	}

	return domain.LineItem{}, domain.Diagnostic{
		Kind:    domain.DiagnosticUnparsed,
		Segment: segment,
	}, false
}

// quantity applies the unit-defaulting rule: without a unit token the rule's
// bare unit decides between pieces and kilograms.
func (g grammarRule) quantity(gm grammarMatch) domain.Quantity {
	if gm.Unit != "" {
		return ParseQuantity(gm.Quantity, gm.Unit)
	}
	if g.BareUnit != domain.UnitPieces {
		return ParseQuantity(gm.Quantity, "")
	}
	q := ParseQuantity(gm.Quantity, string(domain.UnitPieces))
	if !q.Valid() && g.FractionKilos {
		return ParseQuantity(gm.Quantity, "")
	}
	return q
}

// singularize drops a trailing plural "s" from every word of a phrase.
func singularize(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = singular(w)
	}
	return strings.Join(words, " ")
}

package usecase

import (
	"regexp"
	"strings"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	decimalNumberRegex = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	fractionRegex      = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)
	mixedFractionRegex = regexp.MustCompile(`^(\d+)\s+(\d+)\s*/\s*(\d+)$`)
	andHalfRegex       = regexp.MustCompile(`^(\S+)\s+y\s+medio$`)

	thousand = decimal.NewFromInt(1000)
)

// numberWords is the spelled-out quantity vocabulary, multi-word phrases
// included.
var numberWords = map[string]decimal.Decimal{
	"un": decimal.NewFromInt(1), "una": decimal.NewFromInt(1), "uno": decimal.NewFromInt(1),
	"dos": decimal.NewFromInt(2), "tres": decimal.NewFromInt(3), "cuatro": decimal.NewFromInt(4),
	"cinco": decimal.NewFromInt(5), "seis": decimal.NewFromInt(6), "siete": decimal.NewFromInt(7),
	"ocho": decimal.NewFromInt(8), "nueve": decimal.NewFromInt(9), "diez": decimal.NewFromInt(10),
	"once": decimal.NewFromInt(11), "doce": decimal.NewFromInt(12), "trece": decimal.NewFromInt(13),
	"catorce": decimal.NewFromInt(14), "quince": decimal.NewFromInt(15), "dieciseis": decimal.NewFromInt(16),
	"dieciséis": decimal.NewFromInt(16), "diecisiete": decimal.NewFromInt(17), "dieciocho": decimal.NewFromInt(18),
	"diecinueve": decimal.NewFromInt(19), "veinte": decimal.NewFromInt(20),

	"medio": decimal.RequireFromString("0.5"), "media": decimal.RequireFromString("0.5"),
	"un medio": decimal.RequireFromString("0.5"), "cuarto": decimal.RequireFromString("0.25"),
	"un cuarto": decimal.RequireFromString("0.25"), "tres cuartos": decimal.RequireFromString("0.75"),
	"cuarto y mitad": decimal.RequireFromString("0.375"), "un cuarto y mitad": decimal.RequireFromString("0.375"),
	"docena": decimal.NewFromInt(12), "una docena": decimal.NewFromInt(12),
	"media docena": decimal.NewFromInt(6), "par": decimal.NewFromInt(2), "un par": decimal.NewFromInt(2),
	"½": decimal.RequireFromString("0.5"), "¼": decimal.RequireFromString("0.25"), "¾": decimal.RequireFromString("0.75"),
}

type unitFamily struct {
	class  domain.Unit
	factor decimal.Decimal
}

var (
	kilogramFamily = unitFamily{class: domain.UnitKilograms, factor: decimal.NewFromInt(1)}
	gramFamily     = unitFamily{class: domain.UnitKilograms, factor: decimal.NewFromInt(1).Div(thousand)}
	pieceFamily    = unitFamily{class: domain.UnitPieces, factor: decimal.NewFromInt(1)}
)

// unitWords maps every accepted unit spelling to its family.
var unitWords = map[string]unitFamily{
	"k": kilogramFamily, "kg": kilogramFamily, "kgs": kilogramFamily, "kilo": kilogramFamily,
	"kilos": kilogramFamily, "kilogramo": kilogramFamily, "kilogramos": kilogramFamily,

	"g": gramFamily, "gr": gramFamily, "grs": gramFamily, "gramo": gramFamily, "gramos": gramFamily,

	"u": pieceFamily, "ud": pieceFamily, "uds": pieceFamily, "unidad": pieceFamily,
	"unidades": pieceFamily, "pieza": pieceFamily, "piezas": pieceFamily,
}

// unitPattern is the alternation used by the grammar table, longest
// spellings first so that RE2 does not stop at a prefix.
const unitPattern = `kilogramos|kilogramo|unidades|unidad|gramos|gramo|piezas|pieza|kilos|kilo|kgs|kg|grs|gr|uds|ud|k|g|u`

// ParseAmount converts a quantity token (digits, decimal with comma or
// point, vulgar fraction or Spanish number word) to a decimal.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	token := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if token == "" {
		return decimal.Zero, false
	}

	if v, ok := numberWords[token]; ok {
		return v, true
	}

	if decimalNumberRegex.MatchString(token) {
		v, err := decimal.NewFromString(strings.Replace(token, ",", ".", 1))
		if err != nil {
			return decimal.Zero, false
		}
		return v, true
	}

	if m := fractionRegex.FindStringSubmatch(token); m != nil {
		return fraction(m[1], m[2])
	}

	if m := mixedFractionRegex.FindStringSubmatch(token); m != nil {
		whole, err := decimal.NewFromString(m[1])
		if err != nil {
			return decimal.Zero, false
		}
		part, ok := fraction(m[2], m[3])
		if !ok {
			return decimal.Zero, false
		}
		return whole.Add(part), true
	}

	if m := andHalfRegex.FindStringSubmatch(token); m != nil {
		whole, ok := ParseAmount(m[1])
		if !ok {
			return decimal.Zero, false
		}
		return whole.Add(decimal.RequireFromString("0.5")), true
	}

	return decimal.Zero, false
}

func fraction(num, den string) (decimal.Decimal, bool) {
	n, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(den)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return n.DivRound(d, 6), true
}

// ParseQuantity converts a quantity token and an optional unit token into a
// normalized quantity. An empty unit means kilograms; callers that know a
// unit was absent from a piece-count grammar pass "u" instead.
// Any unparsable input yields a zero quantity, as does a fractional piece
// count.
func ParseQuantity(rawQuantity, rawUnit string) domain.Quantity {
	family := kilogramFamily
	if unit := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(rawUnit)), "."); unit != "" {
		f, ok := unitWords[unit]
		if !ok {
			return domain.Quantity{Value: decimal.Zero, Unit: domain.UnitKilograms}
		}
		family = f
	}

	amount, ok := ParseAmount(rawQuantity)
	if !ok || !amount.IsPositive() {
		return domain.Quantity{Value: decimal.Zero, Unit: family.class}
	}

	value := amount.Mul(family.factor)
	if family.class == domain.UnitPieces {
		if !value.IsInteger() {
			return domain.Quantity{Value: decimal.Zero, Unit: domain.UnitPieces}
		}
		return domain.Pieces(value)
	}
	return domain.Kilograms(value)
}

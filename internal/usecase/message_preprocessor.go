package usecase

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultSeparatorWords split a message into segments in addition to the
// punctuation separators.
var DefaultSeparatorWords = []string{"y", "e", "con"}

// Compiled regex patterns for message preprocessing
var (
	// Ordering verbs, greetings and courtesy that precede an order
	leadingFillerPattern = regexp.MustCompile(`^(?:me\s+pones|me\s+pone|ponme|póngame|pongame|pon|quisiera|quiero|querría|querria|quería|queria|qerria|` +
		`me\s+gustaría|me\s+gustaria|necesito|apúntame|apuntame|añade|anade|añádeme|agrega|agrégame|súmame|sumame|mete|métele|` +
		`encárgame|encargame|para\s+llevar|para\s+hoy|para\s+mañana|para\s+manana|podrías|podrias|me\s+podrías\s+poner|` +
		`me\s+añades|me\s+agregas|me\s+metes|me\s+traes|me\s+das|me\s+preparas|tráeme|traeme|sírveme|sirveme|dame|` +
		`colócame|colocame|prepárame|preparame|resérvame|reservame|apártame|apartame|guárdame|guardame|` +
		`por\s+favor|porfa|hola|buenas\s+tardes|buenas\s+noches|buenas|buenos\s+días|buenos\s+dias|oye|mira|también|tambien|además|ademas|muchas\s+gracias|gracias|y|e)(?:[\s,.:;!]+|$)`)

	// Courtesy closing an order
	trailingCourtesyPattern = regexp.MustCompile(`(?:[\s,.!]+(?:por\s+favor|porfavor|porfa|gracias|muchas\s+gracias))+[\s.!]*$`)

	trailingPunctuationPattern = regexp.MustCompile(`[\s.!?¡¿]+$`)
	leadingPunctuationPattern  = regexp.MustCompile(`^[\s.!?¡¿,;:]+`)

	// Serving-size notes like "para 4" or "para seis personas"
	servingNotePattern = regexp.MustCompile(`\s+(para\s+(?:\d+|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|doce)(?:\s+personas?)?)$`)

	decimalCommaPattern = regexp.MustCompile(`(\d),(\d)`)
)

// colloquialRewrite turns a spoken quantity into a numeric one. Rewrites run
// before splitting so that "kilo y medio" is not cut at " y ".
type colloquialRewrite struct {
	re      *regexp.Regexp
	replace func(m []string) string
}

var colloquialRewrites = []colloquialRewrite{
	{
		re: regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:kilos?|kg)\s+y\s+medio\b`),
		replace: func(m []string) string {
			v, err := decimal.NewFromString(m[1])
			if err != nil {
				return m[0]
			}
			return v.Add(decimal.RequireFromString("0.5")).String() + " kg"
		},
	},
	{
		re: regexp.MustCompile(`\b(dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)\s+kilos\s+y\s+medio\b`),
		replace: func(m []string) string {
			return numberWords[m[1]].Add(decimal.RequireFromString("0.5")).String() + " kg"
		},
	},
	{
		re: regexp.MustCompile(`\b(\d+(?:\.\d+)?|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)\s+y\s+medio\s+(?:kilos?|kg)\b`),
		replace: func(m []string) string {
			v, ok := numberWords[m[1]]
			if !ok {
				var err error
				if v, err = decimal.NewFromString(m[1]); err != nil {
					return m[0]
				}
			}
			return v.Add(decimal.RequireFromString("0.5")).String() + " kg"
		},
	},
	{
		re:      regexp.MustCompile(`\b(?:un\s+)?kilo\s+y\s+medio\b`),
		replace: func([]string) string { return "1.5 kg" },
	},
	{
		re:      regexp.MustCompile(`\b(?:un\s+)?medio\s+kilo\b`),
		replace: func([]string) string { return "0.5 kg" },
	},
	{
		re:      regexp.MustCompile(`\b(?:un\s+)?cuarto\s+y\s+mitad(?:\s+de\s+kilo)?\b`),
		replace: func([]string) string { return "0.375 kg" },
	},
	{
		re:      regexp.MustCompile(`\btres\s+cuartos\s+de\s+kilo\b`),
		replace: func([]string) string { return "0.75 kg" },
	},
	{
		re:      regexp.MustCompile(`\b(?:un\s+)?cuarto\s+de\s+kilo\b`),
		replace: func([]string) string { return "0.25 kg" },
	},
	{
		re:      regexp.MustCompile(`\bmedia\s+docena\b`),
		replace: func([]string) string { return "6" },
	},
	{
		re:      regexp.MustCompile(`\buna\s+docena\b`),
		replace: func([]string) string { return "12" },
	},
	{
		re:      regexp.MustCompile(`\bun\s+par\b`),
		replace: func([]string) string { return "2" },
	},
}

// MessagePreprocessor cleans a customer message and cuts it into segments,
// one product request each.
type MessagePreprocessor struct {
	separator          *regexp.Regexp
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewMessagePreprocessor creates a preprocessor splitting on punctuation and
// on the given separator words (DefaultSeparatorWords when empty).
func NewMessagePreprocessor(separatorWords []string, logger *zap.Logger, enableDebugLogging bool) *MessagePreprocessor {
	if len(separatorWords) == 0 {
		separatorWords = DefaultSeparatorWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	quoted := make([]string, 0, len(separatorWords))
	for _, w := range separatorWords {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	pattern := `\s*[,;+]\s*|\s+/\s*|\s*/\s+`
	if len(quoted) > 0 {
		pattern += `|\s+(?:` + strings.Join(quoted, "|") + `)\s+`
	}

	return &MessagePreprocessor{
		separator:          regexp.MustCompile(pattern),
		logger:             logger,
		enableDebugLogging: enableDebugLogging,
	}
}

// Preprocess lowercases the message, drops leading ordering phrases and
// trailing courtesy, and rewrites spoken quantities into numbers.
func (p *MessagePreprocessor) Preprocess(message string) string {
	original := message
	s := collapseSpaces(strings.ToLower(norm.NFC.String(message)))
	s = trailingCourtesyPattern.ReplaceAllString(s, "")
	s = trailingPunctuationPattern.ReplaceAllString(s, "")
	s = stripLeadingFillers(s)

	s = decimalCommaPattern.ReplaceAllString(s, "$1.$2")
	for _, rw := range colloquialRewrites {
		s = rw.re.ReplaceAllStringFunc(s, func(match string) string {
			return rw.replace(rw.re.FindStringSubmatch(match))
		})
	}
	s = collapseSpaces(s)

	if p.enableDebugLogging {
		p.logger.Debug("message preprocessed", zap.String("input", original), zap.String("output", s))
	}
	return s
}

// Split cuts a preprocessed message into cleaned, non-empty segments.
func (p *MessagePreprocessor) Split(message string) []string {
	var segments []string
	for _, part := range p.separator.Split(message, -1) {
		if seg := CleanSegment(part); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// CleanSegment strips fillers and stray punctuation left around a segment.
func CleanSegment(seg string) string {
	seg = leadingPunctuationPattern.ReplaceAllString(seg, "")
	seg = trailingPunctuationPattern.ReplaceAllString(seg, "")
	seg = stripLeadingFillers(collapseSpaces(seg))
	return strings.TrimSpace(seg)
}

// stripLeadingFillers removes leading filler phrases until none is left,
// so that "hola, por favor ponme" is fully consumed.
func stripLeadingFillers(s string) string {
	for {
		next := strings.TrimSpace(leadingFillerPattern.ReplaceAllString(s, ""))
		if next == s {
			return s
		}
		s = next
	}
}

// SplitServingNote separates a trailing "para N personas" note from a
// segment.
func SplitServingNote(seg string) (string, string) {
	m := servingNotePattern.FindStringSubmatchIndex(seg)
	if m == nil {
		return seg, ""
	}
	return strings.TrimSpace(seg[:m[0]]), seg[m[2]:m[3]]
}

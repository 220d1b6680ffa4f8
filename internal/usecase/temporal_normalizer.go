package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// temporalRule is one rewrite of the temporal normalizer. apply receives
// the whole string and the submatch indexes of a match and returns the
// replacement, or false to leave that match untouched.
type temporalRule struct {
	name  string
	re    *regexp.Regexp
	apply func(s string, m []int) (string, bool)
}

var spellingVariants = strings.NewReplacer(
	"próximo", "proximo",
	"próxima", "proxima",
	"míercoles", "miércoles",
	"miercoles", "miércoles",
	"sabado", "sábado",
	"mediodia", "mediodía",
	"medio día", "mediodía",
	"media noche", "medianoche",
)

var minuteWords = map[string]int{
	"cinco": 5, "diez": 10, "cuarto": 15, "veinte": 20,
	"veinticinco": 25, "media": 30, "treinta": 30,
}

// temporalRules run in this order; later rules rely on the canonical
// "H:MM" form produced by earlier ones.
var temporalRules = []temporalRule{
	{
		name: "filler",
		re:   regexp.MustCompile(`\b(?:sobre|tipo|hacia|aproximadamente|alrededor\s+de|a\s+eso\s+de)\s+las\b`),
		apply: func(s string, m []int) (string, bool) {
			return "las", true
		},
	},
	{
		name: "noon-midnight",
		re:   regexp.MustCompile(`(?:\b(a\s+las|al|a|las)\s+)?(mediodía|medianoche)`),
		apply: func(s string, m []int) (string, bool) {
			if !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			hhmm := "13:00"
			if group(s, m, 2) == "medianoche" {
				hhmm = "0:00"
			}
			if group(s, m, 1) != "" {
				return "a las " + hhmm, true
			}
			return hhmm, true
		},
	},
	{
		name: "h-minutes",
		re:   regexp.MustCompile(`(\d{1,2})\s*h\s*([0-5]\d)`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			return hhmm(atoi(group(s, m, 1)), atoi(group(s, m, 2))), true
		},
	},
	{
		name:  "hours-suffix",
		re:    regexp.MustCompile(`(\d{1,2})(?:[.,:]([0-5]\d))?\s*(?:horas|hora|hrs|hr|hs|h)`),
		apply: stripHourSuffix,
	},
	{
		name: "dotted",
		re:   regexp.MustCompile(`(\d{1,2})[.,]([0-5]\d)`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !numberEnds(s, m[1]) {
				return "", false
			}
			return hhmm(atoi(group(s, m, 1)), atoi(group(s, m, 2))), true
		},
	},
	{
		name: "minute-words",
		re:   regexp.MustCompile(`(\d{1,2})\s+(y|menos)\s+(veinticinco|veinte|cuarto|media|cinco|diez|treinta)`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			h := atoi(group(s, m, 1))
			offset := minuteWords[group(s, m, 3)]
			if group(s, m, 2) == "y" {
				return hhmm(h, offset), true
			}
			if offset >= 30 {
				return "", false
			}
			return hhmm((clampHour(h)+23)%24, 60-offset), true
		},
	},
	{
		name: "en-punto",
		re:   regexp.MustCompile(`(\d{1,2})\s+en\s+punto`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			return hhmm(atoi(group(s, m, 1)), 0), true
		},
	},
	{
		name: "am-pm",
		re:   regexp.MustCompile(`(\d{1,2})(?::([0-5]\d))?\s*([ap])\.?\s?m\.?`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			return meridiem(atoi(group(s, m, 1)), atoi(group(s, m, 2)), group(s, m, 3) == "p"), true
		},
	},
	{
		name: "day-part-hour",
		re:   regexp.MustCompile(`(\d{1,2})(?::([0-5]\d))?\s+de\s+la\s+(mañana|madrugada|tarde|noche)`),
		apply: func(s string, m []int) (string, bool) {
			if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			part := group(s, m, 3)
			pm := part == "tarde" || part == "noche"
			return meridiem(atoi(group(s, m, 1)), atoi(group(s, m, 2)), pm), true
		},
	},
	{
		// "5 pm h" and "5 de la tarde hrs" only reach H:MM above
		name:  "trailing-suffix",
		re:    regexp.MustCompile(`(\d{1,2}):([0-5]\d)\s*(?:horas|hora|hrs|hr|hs|h)`),
		apply: stripHourSuffix,
	},
	{
		name: "day-part",
		re:   regexp.MustCompile(`\b(?:por|en|de|a)\s+la\s+(mañana|madrugada|tarde|noche)`),
		apply: func(s string, m []int) (string, bool) {
			if !wordEnds(s, m[0], m[1]) {
				return "", false
			}
			return "por la " + group(s, m, 1), true
		},
	},
}

// maxTemporalPasses bounds the fixed-point loop of NormalizeTemporalText.
const maxTemporalPasses = 8

// NormalizeTemporalText rewrites colloquial Spanish date and time phrases
// into the canonical forms understood by ParsePickupTime: "H:MM" in 24-hour
// notation and "por la mañana|madrugada|tarde|noche" for parts of the day.
// It never fails and is idempotent.
func NormalizeTemporalText(text string) string {
	s := collapseSpaces(norm.NFC.String(strings.ToLower(text)))
	for range maxTemporalPasses {
		next := normalizeTemporalPass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizeTemporalPass(s string) string {
	s = spellingVariants.Replace(s)
	for _, rule := range temporalRules {
		s = rewriteMatches(rule.re, s, rule.apply)
	}
	return collapseSpaces(s)
}

func stripHourSuffix(s string, m []int) (string, bool) {
	if !numberStarts(s, m[0]) || !wordEnds(s, m[0], m[1]) {
		return "", false
	}
	return hhmm(atoi(group(s, m, 1)), atoi(group(s, m, 2))), true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// rewriteMatches replaces matches of re for which apply returns true. A
// rejected match does not consume its text: scanning resumes one rune past
// its start, so "17:30 h 18h30" still finds "18h30".
func rewriteMatches(re *regexp.Regexp, s string, apply func(string, []int) (string, bool)) string {
	var b strings.Builder
	last, pos, replaced := 0, 0, false
	for pos <= len(s) {
		m := matchFrom(re, s, pos)
		if m == nil {
			break
		}
		repl, ok := apply(s, m)
		if !ok {
			_, size := utf8.DecodeRuneInString(s[m[0]:])
			pos = m[0] + max(size, 1)
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(repl)
		last = m[1]
		pos = max(m[1], m[0]+1)
		replaced = true
	}
	if !replaced {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// matchFrom returns the first match of re at or after pos, with indexes
// into s. A match that starts exactly at pos in the middle of a word is
// skipped, since a leading \b would not hold there in the whole string.
func matchFrom(re *regexp.Regexp, s string, pos int) []int {
	for pos <= len(s) {
		m := re.FindStringSubmatchIndex(s[pos:])
		if m == nil {
			return nil
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += pos
			}
		}
		if m[0] != pos || !midWord(s, pos) {
			return m
		}
		_, size := utf8.DecodeRuneInString(s[pos:])
		pos += max(size, 1)
	}
	return nil
}

func midWord(s string, pos int) bool {
	if pos == 0 || pos >= len(s) {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:pos])
	next, _ := utf8.DecodeRuneInString(s[pos:])
	return isWordRune(prev) && isWordRune(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func group(s string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

// numberStarts reports whether a number starting at pos is not the tail of
// a longer number, time or date.
func numberStarts(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return !unicode.IsDigit(r) && !strings.ContainsRune(":.,/-", r) && !unicode.IsLetter(r)
}

// numberEnds reports whether the number ending at pos is not followed by
// more digits or by a separator that continues it.
func numberEnds(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	r, size := utf8.DecodeRuneInString(s[pos:])
	if unicode.IsDigit(r) || unicode.IsLetter(r) {
		return false
	}
	if strings.ContainsRune(".,:/", r) && pos+size < len(s) {
		next, _ := utf8.DecodeRuneInString(s[pos+size:])
		return !unicode.IsDigit(next)
	}
	return true
}

// wordEnds reports whether the match s[start:end] is not glued to a
// following letter or digit.
func wordEnds(s string, start, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func clampHour(h int) int {
	return min(max(h, 0), 23)
}

func clampMinute(m int) int {
	return min(max(m, 0), 59)
}

// hhmm formats a clamped time of day as H:MM.
func hhmm(h, m int) string {
	return fmt.Sprintf("%d:%02d", clampHour(h), clampMinute(m))
}

// meridiem converts a 12-hour reading to 24 hours: afternoon readings add
// 12 unless already past noon, morning readings map 12 to 0.
func meridiem(h, m int, pm bool) string {
	switch {
	case pm && h < 12:
		h += 12
	case !pm && h == 12:
		h = 0
	}
	return hhmm(h, m)
}

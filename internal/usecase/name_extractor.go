package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCustomerName is used when no name can be read from the message.
const DefaultCustomerName = "Cliente"

const nameWords = `(\p{L}+(?:\s+\p{L}+){0,2})`

var (
	introducedNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\s)mi\s+nombre\s+es\s+` + nameWords),
		regexp.MustCompile(`(?:^|\s)me\s+llamo\s+` + nameWords),
		regexp.MustCompile(`(?:^|[\s,!.])soy\s+` + nameWords),
	}
	greetingPrefixRegex = regexp.MustCompile(`^(?:hola|buenas\s+tardes|buenas\s+noches|buenas|buenos\s+días|buenos\s+dias)[,!.\s]+`)
	bareNameRegex       = regexp.MustCompile(`^` + nameWords)
	nonNameCharRegex    = regexp.MustCompile(`[^\p{L}\s-]`)
)

// ExtractCustomerName reads the customer's name from phrases such as
// "mi nombre es Pablo", "me llamo María José", "hola, soy Ana" or a bare
// name. At most three words are kept, each capitalized.
func ExtractCustomerName(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return DefaultCustomerName
	}

	candidate := ""
	for _, re := range introducedNamePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			candidate = m[1]
			break
		}
	}

	if candidate == "" {
		rest := greetingPrefixRegex.ReplaceAllString(lower, "")
		if m := bareNameRegex.FindStringSubmatch(rest); m != nil {
			candidate = m[1]
		} else {
			candidate = rest
		}
	}

	candidate = nonNameCharRegex.ReplaceAllString(candidate, "")
	words := strings.Fields(candidate)
	if len(words) == 0 {
		return DefaultCustomerName
	}
	if len(words) > 3 {
		words = words[:3]
	}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

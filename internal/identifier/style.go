package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Style is the case convention inferred from an identifier's spelling.
type Style string

const (
	StyleSnake     Style = "snake_case"
	StyleCamel     Style = "camelCase"
	StylePascal    Style = "PascalCase"
	StyleAmbiguous Style = "ambiguous"
)

// ErrInvalidIdentifier marks names that are not valid Python identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var validNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects empty or malformed identifier names.
func Validate(name string) error {
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// InferStyle classifies an identifier's case convention. Leading and
// trailing underscores carry no style signal (Python privacy markers),
// so `_private_var` classifies the same as `private_var`. All-uppercase
// names with underscores classify snake_case: the base-form comparison
// is what carries meaning, and SCREAMING_SNAKE shares snake's word shape.
func InferStyle(name string) Style {
	core := strings.Trim(name, "_")
	if core == "" {
		return StyleAmbiguous
	}

	hasUnderscore := strings.Contains(core, "_")
	hasLower, hasUpper := false, false
	for _, r := range core {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	switch {
	case hasUnderscore && hasLower && hasUpper:
		return StyleAmbiguous
	case hasUnderscore:
		return StyleSnake
	case !hasUpper:
		return StyleAmbiguous
	case !hasLower:
		return StyleAmbiguous
	case unicode.IsUpper([]rune(core)[0]):
		return StylePascal
	default:
		return StyleCamel
	}
}

// BaseForm reduces an identifier to its semantic base: words split on
// underscores and case boundaries, lowercased, joined with single
// spaces. Acronym runs split before their final capital, so
// `HTTPServer` and `http_server` share the base "http server".
func BaseForm(name string) string {
	return strings.Join(splitWords(name), " ")
}

func splitWords(name string) []string {
	var words []string
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			boundary := unicode.IsUpper(cur) && !unicode.IsUpper(prev)
			if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				boundary = true
			}
			if boundary {
				words = append(words, strings.ToLower(string(runes[start:i])))
				start = i
			}
		}
		words = append(words, strings.ToLower(string(runes[start:])))
	}
	return words
}

// synonymPrefixes are verb prefixes commonly swapped for one another.
// Names differing only by one of these are related, never conflicting.
var synonymPrefixes = []string{"get", "fetch", "retrieve"}

// relatedBases returns the base forms reachable from base by swapping
// its leading synonym verb, excluding base itself.
func relatedBases(base string) []string {
	words := strings.SplitN(base, " ", 2)
	if len(words) < 2 {
		return nil
	}
	idx := -1
	for i, p := range synonymPrefixes {
		if words[0] == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var out []string
	for i, p := range synonymPrefixes {
		if i == idx {
			continue
		}
		out = append(out, p+" "+words[1])
	}
	return out
}

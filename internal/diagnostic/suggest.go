package diagnostic

import (
	"fmt"
	"regexp"
	"strings"
)

// quotedNameRe pulls the first quoted identifier out of a checker
// message, e.g. `undefined name 'calcluate_total'`.
var quotedNameRe = regexp.MustCompile(`'(\w+)'`)

// Lookup reports known identifiers similar to name. A nil Lookup
// disables "did you mean" candidates.
type Lookup func(name string) []string

// SuggestFixes maps a checker message onto remediation hints. Every
// matching heuristic contributes its hints, so a message touching both
// imports and attributes collects both groups. The returned category
// is the classification of the message as a whole.
func SuggestFixes(message string, lookup Lookup) ([]string, Category) {
	var suggestions []string
	lower := strings.ToLower(message)

	typeMismatch := strings.Contains(lower, "expected") && strings.Contains(lower, "got")
	if typeMismatch {
		suggestions = append(suggestions,
			"Check the types of arguments being passed to functions",
			"Consider adding type annotations to make expectations clear",
		)
	}

	if strings.Contains(lower, "undefined name") || strings.Contains(lower, "name error") {
		name := ""
		if m := quotedNameRe.FindStringSubmatch(message); m != nil {
			name = m[1]
		}
		var candidates []string
		if name != "" && lookup != nil {
			candidates = lookup(name)
		}
		switch {
		case len(candidates) > 0:
			suggestions = append(suggestions,
				fmt.Sprintf("Did you mean '%s'? (found similar identifier)", candidates[0]))
		case name != "":
			suggestions = append(suggestions,
				fmt.Sprintf("Make sure '%s' is defined before use", name),
				"Check for typos in the identifier name",
			)
		default:
			suggestions = append(suggestions,
				"Make sure the name is defined before use",
				"Check for typos in the identifier name",
			)
		}
	}

	if strings.Contains(lower, "import") {
		suggestions = append(suggestions,
			"Verify the module is installed: pip install <module>",
			"Check the import path is correct",
			"Ensure you're using the correct Python environment",
		)
	}

	if strings.Contains(lower, "attribute") {
		suggestions = append(suggestions,
			"Verify the object has the attribute you're trying to access",
			"Check the object type matches your expectations",
			"Look for typos in the attribute name",
		)
	}

	if strings.Contains(lower, "indent") {
		suggestions = append(suggestions,
			"Check that all code blocks are properly indented",
			"Ensure consistent use of spaces (not tabs)",
			"Verify indentation matches the logical structure",
		)
	}

	// "expected X, got Y" messages often carry none of the keyword
	// triggers Classify looks for, so fall back to the type category
	// when the mismatch heuristic fired.
	category := Classify("", message)
	if category == CategoryOther && typeMismatch {
		category = CategoryType
	}

	return suggestions, category
}

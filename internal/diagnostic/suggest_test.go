package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestFixesTypeMismatch(t *testing.T) {
	suggestions, category := SuggestFixes("Expected int, got str", nil)

	require.Len(t, suggestions, 2)
	assert.Contains(t, suggestions[0], "types of arguments")
	assert.Equal(t, CategoryType, category)
}

func TestSuggestFixesUndefinedName(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		lookup    Lookup
		wantFirst string
		wantLen   int
	}{
		{
			name:      "similar identifier known",
			message:   "undefined name 'calcluate_total'",
			lookup:    func(string) []string { return []string{"calculate_total"} },
			wantFirst: "Did you mean 'calculate_total'? (found similar identifier)",
			wantLen:   1,
		},
		{
			name:      "no similar identifier",
			message:   "undefined name 'frobnicate'",
			lookup:    func(string) []string { return nil },
			wantFirst: "Make sure 'frobnicate' is defined before use",
			wantLen:   2,
		},
		{
			name:      "nil lookup",
			message:   "undefined name 'frobnicate'",
			lookup:    nil,
			wantFirst: "Make sure 'frobnicate' is defined before use",
			wantLen:   2,
		},
		{
			name:      "no quoted name",
			message:   "name error in module body",
			lookup:    nil,
			wantFirst: "Make sure the name is defined before use",
			wantLen:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, category := SuggestFixes(tt.message, tt.lookup)
			require.Len(t, suggestions, tt.wantLen)
			assert.Equal(t, tt.wantFirst, suggestions[0])
			assert.Equal(t, CategoryName, category)
		})
	}
}

func TestSuggestFixesAccumulatesBranches(t *testing.T) {
	// Touches both the import and attribute heuristics.
	suggestions, category := SuggestFixes("ImportError: module has no attribute 'get'", nil)

	assert.Len(t, suggestions, 6)
	assert.Contains(t, suggestions, "Verify the module is installed: pip install <module>")
	assert.Contains(t, suggestions, "Look for typos in the attribute name")
	assert.Equal(t, CategoryImport, category)
}

func TestSuggestFixesIndentation(t *testing.T) {
	suggestions, category := SuggestFixes("IndentationError: unindent does not match any outer level", nil)

	require.Len(t, suggestions, 3)
	assert.Contains(t, suggestions[0], "properly indented")
	assert.Equal(t, CategorySyntax, category)
}

func TestSuggestFixesNoMatch(t *testing.T) {
	suggestions, category := SuggestFixes("something inscrutable happened", nil)

	assert.Empty(t, suggestions)
	assert.Equal(t, CategoryOther, category)
}

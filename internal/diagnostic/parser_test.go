package diagnostic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullOutput(t *testing.T) {
	stdout := "ERROR Cannot find module `requests` [import-error]\n" +
		" --> /work/api.py:3:8\n" +
		"   |\n" +
		" 3 | import requests\n" +
		"   |        ^^^^^^^^\n" +
		"WARNING Unused variable 'x' [unused-var]\n" +
		" --> /work/api.py:10:5\n" +
		"INFO 2 issues found\n"

	report := NewParser().Parse(stdout, "", "/work/api.py")

	want := []Diagnostic{
		{
			Severity: SeverityError,
			File:     "/work/api.py",
			Line:     3,
			Column:   8,
			Message:  "Cannot find module `requests`",
			Code:     "import-error",
			Category: CategoryImport,
		},
		{
			Severity: SeverityWarning,
			File:     "/work/api.py",
			Line:     10,
			Column:   5,
			Message:  "Unused variable 'x'",
			Code:     "unused-var",
			Category: CategoryOther,
		},
		{
			Severity: SeverityInfo,
			File:     "/work/api.py",
			Message:  "2 issues found",
			Category: CategoryOther,
		},
	}
	if diff := cmp.Diff(want, report.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, report.FullyParsed)
	assert.Equal(t, 1, report.ErrorCount())
	assert.Equal(t, 1, report.WarningCount())
	assert.Equal(t, 1, report.ImportTaggedCount())
}

func TestParseInfoExcludedFromCounts(t *testing.T) {
	stdout := "INFO import resolution cached [import-cache]\n" +
		"INFO revealed type is int\n"

	report := NewParser().Parse(stdout, "", "a.py")

	require.Len(t, report.Diagnostics, 2)
	assert.Equal(t, 0, report.ErrorCount())
	assert.Equal(t, 0, report.WarningCount())
	// Import-tagged but info severity: never counted.
	assert.Equal(t, CategoryImport, report.Diagnostics[0].Category)
	assert.Equal(t, 0, report.ImportTaggedCount())
}

func TestParseDegradesOnUnknownLines(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		wantDiag int
	}{
		{
			name:     "traceback junk",
			stdout:   "Traceback (most recent call last):\n  raise RuntimeError\n",
			wantDiag: 0,
		},
		{
			name:     "orphan location line",
			stdout:   "--> /work/api.py:3:8\n",
			wantDiag: 0,
		},
		{
			name:     "frame line with no open record",
			stdout:   "   |        ^^^^^^^^\n",
			wantDiag: 0,
		},
		{
			name:     "junk between valid records",
			stdout:   "ERROR bad thing [oops]\nsome random chatter\nWARNING lesser thing\n",
			wantDiag: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewParser().Parse(tt.stdout, "", "a.py")
			assert.False(t, report.FullyParsed)
			assert.Len(t, report.Diagnostics, tt.wantDiag)
		})
	}
}

func TestParseEmptyOutputIsClean(t *testing.T) {
	report := NewParser().Parse("", "", "a.py")
	assert.True(t, report.FullyParsed)
	assert.Empty(t, report.Diagnostics)
	assert.Equal(t, 0, report.ErrorCount())
}

func TestParseStderrErrors(t *testing.T) {
	stderr := "INFO checking 1 file\n" +
		"warning: deprecated flag\n" +
		"pyrefly crashed: internal error while parsing\n" +
		"progress 50%\n"

	report := NewParser().Parse("", stderr, "/work/api.py")

	require.Len(t, report.Diagnostics, 1)
	got := report.Diagnostics[0]
	assert.Equal(t, SeverityError, got.Severity)
	assert.Equal(t, "/work/api.py", got.File)
	assert.Equal(t, "pyrefly crashed: internal error while parsing", got.Message)
	// stderr scanning never degrades the parse flag.
	assert.True(t, report.FullyParsed)
}

func TestParseColonSeparatedSeverity(t *testing.T) {
	report := NewParser().Parse("ERROR: unbound name 'foo' [unbound-name]\n", "", "a.py")

	require.Len(t, report.Diagnostics, 1)
	got := report.Diagnostics[0]
	assert.Equal(t, SeverityError, got.Severity)
	assert.Equal(t, "unbound name 'foo'", got.Message)
	assert.Equal(t, "unbound-name", got.Code)
	assert.Equal(t, CategoryName, got.Category)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    Category
	}{
		{"import code", "import-error", "anything", CategoryImport},
		{"missing module message", "", "No module named 'foo'", CategoryImport},
		{"parse code", "parse-error", "unexpected token", CategorySyntax},
		{"indent message", "", "IndentationError: unexpected indent", CategorySyntax},
		{"unbound code", "unbound-name", "x used before binding", CategoryName},
		{"not defined message", "", "name 'frobnicate' is not defined", CategoryName},
		{"attribute code", "missing-attribute", "no such attribute 'y'", CategoryAttribute},
		{"assignment code", "bad-assignment", "expected int, got str", CategoryType},
		{"type message", "", "revealed type does not match", CategoryType},
		{"nothing matches", "", "weird message", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code, tt.message))
		})
	}
}

// Package diagnostic parses raw checker output into structured diagnostic
// records and classifies them into stable categories. The parser never fails
// on malformed input; degraded parses are reported through the FullyParsed
// flag so callers can distinguish "no issues" from "could not read output".
package diagnostic

// Severity classifies a diagnostic line.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category is a stable tag derived from the diagnostic's code and message.
// The import tag drives reward bonus weighting; the rest feed fix suggestions.
type Category string

const (
	CategoryImport    Category = "import"
	CategorySyntax    Category = "syntax"
	CategoryName      Category = "name"
	CategoryAttribute Category = "attribute"
	CategoryType      Category = "type"
	CategoryOther     Category = "other"
)

// Diagnostic is a single structured record from checker output.
// Immutable once parsed; produced fresh per check call.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
	Category Category `json:"category"`
}

// Report is the parser's output: diagnostics in source order plus a flag
// recording whether every line of input was understood.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	FullyParsed bool         `json:"fully_parsed"`
}

// ErrorCount returns the number of error-severity diagnostics.
// Info severity never contributes to any count fed to the reward engine.
func (r Report) ErrorCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity diagnostics.
func (r Report) WarningCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// ImportTaggedCount returns the number of error/warning diagnostics carrying
// the import category tag. Info diagnostics are excluded even when tagged.
func (r Report) ImportTaggedCount() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityInfo {
			continue
		}
		if d.Category == CategoryImport {
			n++
		}
	}
	return n
}

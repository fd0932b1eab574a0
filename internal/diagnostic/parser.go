package diagnostic

import (
	"regexp"
	"strconv"
	"strings"

	"candycheck/internal/logging"
)

// Checker output shape:
//
//	ERROR message text [error-code]
//	 --> /path/to/file.py:12:5
//	   |
//	12 | x = undefined_var
//	   |     ^^^^^^^^^^^^^
//
// Severity lines open a record, --> lines attach the location, frame lines
// are decoration. Anything else is counted as unparsed.
var (
	severityRe = regexp.MustCompile(`(?i)^(ERROR|WARNING|WARN|INFO)\b[: ]*`)
	locationRe = regexp.MustCompile(`^-->\s*(.+):(\d+):(\d+)\s*$`)
	frameRe    = regexp.MustCompile(`^(\d+\s*)?\|`)
)

// Parser converts raw checker text into a Report.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the checker's stdout and stderr streams. The filename is
// attached to diagnostics whose location line did not carry a path.
// Malformed input never fails: unknown lines are dropped and FullyParsed
// flips to false.
func (p *Parser) Parse(stdout, stderr, filename string) Report {
	report := Report{FullyParsed: true}

	var current *Diagnostic
	flush := func() {
		if current != nil {
			report.Diagnostics = append(report.Diagnostics, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(stdout, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := severityRe.FindStringSubmatch(line); m != nil {
			flush()
			d := parseSeverityLine(line, m[1], filename)
			current = &d
			continue
		}

		if m := locationRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				report.FullyParsed = false
				continue
			}
			if ln, err := strconv.Atoi(m[2]); err == nil {
				current.Line = ln
			}
			if col, err := strconv.Atoi(m[3]); err == nil {
				current.Column = col
			}
			if path := strings.TrimSpace(m[1]); path != "" {
				current.File = path
			}
			continue
		}

		// Code-frame decoration under an open diagnostic
		if current != nil && frameRe.MatchString(line) {
			continue
		}

		report.FullyParsed = false
		logging.CheckerDebug("unparsed checker line: %q", line)
	}
	flush()

	// The checker writes some failures to stderr only (crashes, bad
	// invocations). Scan for error-looking lines; everything else on
	// stderr is progress chatter and is ignored without degrading.
	for _, raw := range strings.Split(stderr, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "INFO") || strings.HasPrefix(upper, "WARNING") || strings.HasPrefix(upper, "WARN") {
			continue
		}
		if !strings.Contains(strings.ToLower(line), "error") {
			continue
		}
		msg, code := splitCode(strings.TrimSpace(severityRe.ReplaceAllString(line, "")))
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Severity: SeverityError,
			File:     filename,
			Message:  msg,
			Code:     code,
			Category: Classify(code, msg),
		})
	}

	return report
}

// parseSeverityLine builds a diagnostic from a severity-prefixed line.
func parseSeverityLine(line, token, filename string) Diagnostic {
	var sev Severity
	switch strings.ToUpper(token) {
	case "ERROR":
		sev = SeverityError
	case "WARNING", "WARN":
		sev = SeverityWarning
	default:
		sev = SeverityInfo
	}

	rest := strings.TrimSpace(severityRe.ReplaceAllString(line, ""))
	msg, code := splitCode(rest)

	return Diagnostic{
		Severity: sev,
		File:     filename,
		Message:  msg,
		Code:     code,
		Category: Classify(code, msg),
	}
}

// splitCode separates a trailing [error-code] suffix from the message.
func splitCode(s string) (msg, code string) {
	if strings.HasSuffix(s, "]") {
		if open := strings.LastIndex(s, "["); open >= 0 {
			return strings.TrimSpace(s[:open]), s[open+1 : len(s)-1]
		}
	}
	return s, ""
}

// Classify maps a diagnostic's code and message to a stable category.
// Import detection comes first: the reward engine weights import-tagged
// diagnostics higher because unresolved imports block everything downstream.
func Classify(code, message string) Category {
	c := strings.ToLower(code)
	m := strings.ToLower(message)

	switch {
	case strings.Contains(c, "import") || strings.Contains(c, "module") ||
		strings.Contains(m, "import") || strings.Contains(m, "no module named") ||
		strings.Contains(m, "cannot find module"):
		return CategoryImport
	case strings.Contains(c, "syntax") || strings.Contains(c, "parse") ||
		strings.Contains(m, "syntax") || strings.Contains(m, "indent"):
		return CategorySyntax
	case strings.Contains(c, "unbound") || strings.Contains(m, "not defined") ||
		strings.Contains(m, "undefined name") || strings.Contains(m, "name error") ||
		strings.Contains(m, "unbound"):
		return CategoryName
	case strings.Contains(c, "attribute") || strings.Contains(m, "attribute"):
		return CategoryAttribute
	case strings.Contains(c, "type") || strings.Contains(c, "assignment") ||
		strings.Contains(c, "argument") || strings.Contains(c, "return") ||
		strings.Contains(m, "type"):
		return CategoryType
	default:
		return CategoryOther
	}
}

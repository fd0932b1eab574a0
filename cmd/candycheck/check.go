package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"candycheck/internal/checker"
	"candycheck/internal/diagnostic"
)

// Severity styling for the one-shot report
var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	fileStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// checkCmd runs the checker once, without the MCP server
var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Check Python files and print a report",
	Long: `One-shot checking without the MCP server or the reward economy: runs the
configured checker across the given files in parallel, parses the output
and prints a styled report. Exits 1 when errors are found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := checker.NewRunner(runnerConfig(cfg))
	results, err := runner.CheckPaths(cmd.Context(), args)
	if err != nil {
		return err
	}

	// Deterministic output order regardless of completion order
	files := make([]string, 0, len(results))
	for f := range results {
		files = append(files, f)
	}
	sort.Strings(files)

	parser := diagnostic.NewParser()
	totalErrors, totalWarnings := 0, 0
	var errorMessages []string

	for _, file := range files {
		res := results[file]
		report := parser.Parse(res.Stdout, res.Stderr, file)
		printFileReport(file, report)

		totalErrors += report.ErrorCount()
		totalWarnings += report.WarningCount()
		for _, d := range report.Diagnostics {
			if d.Severity == diagnostic.SeverityError {
				errorMessages = append(errorMessages, d.Message)
			}
		}
	}

	fmt.Println(summaryLine(len(files), totalErrors, totalWarnings))

	if totalErrors > 0 {
		printSuggestions(errorMessages)
		cmd.SilenceUsage = true
		return fmt.Errorf("%d error(s) in %d file(s)", totalErrors, len(files))
	}
	return nil
}

// printFileReport prints one file's diagnostics with severity styling.
func printFileReport(file string, report diagnostic.Report) {
	fmt.Println(fileStyle.Render(file))

	if len(report.Diagnostics) == 0 {
		fmt.Printf("  %s\n", okStyle.Render("clean"))
	}
	for _, d := range report.Diagnostics {
		var tag string
		switch d.Severity {
		case diagnostic.SeverityError:
			tag = errorStyle.Render("ERROR")
		case diagnostic.SeverityWarning:
			tag = warnStyle.Render("WARN ")
		default:
			tag = infoStyle.Render("INFO ")
		}

		loc := ""
		if d.Line > 0 {
			loc = fmt.Sprintf("%d:%d: ", d.Line, d.Column)
		}
		code := ""
		if d.Code != "" {
			code = " " + dimStyle.Render("["+d.Code+"]")
		}
		fmt.Printf("  %s %s%s%s\n", tag, dimStyle.Render(loc), d.Message, code)
	}

	if !report.FullyParsed {
		fmt.Printf("  %s\n", dimStyle.Render("(some checker output could not be parsed)"))
	}
}

// summaryLine renders the closing tally.
func summaryLine(files, errors, warnings int) string {
	line := fmt.Sprintf("%d file(s): %d error(s), %d warning(s)", files, errors, warnings)
	if errors > 0 {
		return errorStyle.Render(line)
	}
	if warnings > 0 {
		return warnStyle.Render(line)
	}
	return okStyle.Render(line)
}

// printSuggestions renders fix hints for the collected error messages,
// as markdown through glamour on a terminal and as plain text
// otherwise.
func printSuggestions(messages []string) {
	var b strings.Builder
	b.WriteString("## Suggested fixes\n\n")

	seen := make(map[string]bool)
	total := 0
	for _, msg := range messages {
		hints, category := diagnostic.SuggestFixes(msg, nil)
		for _, h := range hints {
			if seen[h] {
				continue
			}
			seen[h] = true
			fmt.Fprintf(&b, "- %s _(%s)_\n", h, category)
			total++
		}
	}
	if total == 0 {
		return
	}

	md := b.String()
	if !stdoutIsTerminal() {
		fmt.Print(strings.ReplaceAll(md, "_", ""))
		return
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// stdoutIsTerminal reports whether stdout is attached to a terminal.
func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

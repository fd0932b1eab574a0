// Package checker shells out to the external Python checker and
// extracts declared identifiers from source text. Everything that does
// I/O for a check lives here so the core engine stays pure.
package checker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"candycheck/internal/logging"
)

const (
	// DefaultMainFile names the staged source when the caller gives no
	// filename.
	DefaultMainFile = "check.py"

	defaultTimeout        = 30 * time.Second
	defaultMaxOutputBytes = 1 << 20
	defaultConcurrency    = 4
)

// RunnerConfig controls how the checker binary is invoked.
type RunnerConfig struct {
	// Binary is the checker executable, resolved through PATH.
	Binary string
	// Args is the argument template; the file under check is appended.
	Args []string
	// Timeout bounds one checker run.
	Timeout time.Duration
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int64
	// Workdir, when set, parents the staging temp dirs.
	Workdir string
	// Concurrency limits parallel runs in CheckPaths.
	Concurrency int
}

// DefaultRunnerConfig returns the stock pyrefly invocation.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Binary:         "pyrefly",
		Args:           []string{"check"},
		Timeout:        defaultTimeout,
		MaxOutputBytes: defaultMaxOutputBytes,
		Concurrency:    defaultConcurrency,
	}
}

// RunResult is the raw outcome of one checker run. A non-zero exit is
// a normal result here: the checker exits non-zero whenever it finds
// problems, which is exactly what callers want to parse.
type RunResult struct {
	File      string
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
	Duration  time.Duration
}

// Runner stages source into temp dirs and invokes the checker binary.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner builds a runner, filling zero config fields with defaults.
func NewRunner(cfg RunnerConfig) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Binary == "" {
		cfg.Binary = def.Binary
	}
	if cfg.Args == nil {
		cfg.Args = def.Args
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Runner{cfg: cfg}
}

// CheckSource writes code (and any context files) into a fresh temp
// dir, runs the checker against the main file with the temp dir as
// working directory, and returns the captured output. The temp dir is
// removed before returning.
func (r *Runner) CheckSource(ctx context.Context, code, filename string, contextFiles map[string]string) (*RunResult, error) {
	dir, err := os.MkdirTemp(r.cfg.Workdir, "candycheck-*")
	if err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	main, ok := safeRelPath(filename)
	if !ok {
		logging.CheckerWarn("unsafe filename %q, using %s", filename, DefaultMainFile)
		main = DefaultMainFile
	}
	if err := stageFile(dir, main, code); err != nil {
		return nil, err
	}
	for name, content := range contextFiles {
		rel, ok := safeRelPath(name)
		if !ok || rel == main {
			logging.CheckerWarn("skipping context file %q", name)
			continue
		}
		if err := stageFile(dir, rel, content); err != nil {
			return nil, err
		}
	}

	return r.run(ctx, dir, filepath.Join(dir, main))
}

// CheckFile runs the checker against an existing file on disk.
func (r *Runner) CheckFile(ctx context.Context, path string) (*RunResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}
	return r.run(ctx, filepath.Dir(abs), abs)
}

// CheckPaths checks many files concurrently under the configured
// limit. The result map is keyed by the input path; the first failed
// run cancels the rest.
func (r *Runner) CheckPaths(ctx context.Context, paths []string) (map[string]*RunResult, error) {
	results := make(map[string]*RunResult, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, path := range paths {
		g.Go(func() error {
			res, err := r.CheckFile(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			results[path] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// run executes the checker for one file. Timeouts and unstartable
// binaries are errors; any exit code from a started checker is not.
func (r *Runner) run(ctx context.Context, dir, file string) (*RunResult, error) {
	timer := logging.StartTimer(logging.CategoryChecker, "checker run")
	defer timer.Stop()

	execCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := append(append([]string(nil), r.cfg.Args...), file)
	logging.Checker("running %s %s", r.cfg.Binary, strings.Join(args, " "))

	cmd := exec.CommandContext(execCtx, r.cfg.Binary, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: r.cfg.MaxOutputBytes}
	stderr := &limitedWriter{w: &stderrBuf, max: r.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	result := &RunResult{
		File:      file,
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(started),
	}

	switch {
	case err == nil:
	case execCtx.Err() == context.DeadlineExceeded:
		logging.CheckerWarn("checker timed out after %s: %s", r.cfg.Timeout, file)
		return nil, fmt.Errorf("checker timed out after %s", r.cfg.Timeout)
	case execCtx.Err() == context.Canceled:
		return nil, execCtx.Err()
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			logging.CheckerError("checker failed to run: %v", err)
			return nil, fmt.Errorf("running checker %s: %w", r.cfg.Binary, err)
		}
	}

	if result.Truncated {
		logging.CheckerWarn("checker output truncated: %d bytes discarded",
			stdout.discarded+stderr.discarded)
	}
	logging.CheckerDebug("checker exit=%d stdout=%d stderr=%d duration=%s",
		result.ExitCode, len(result.Stdout), len(result.Stderr), result.Duration)
	return result, nil
}

// stageFile writes one staged source file, creating parent dirs.
func stageFile(dir, rel, content string) error {
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("staging %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("staging %s: %w", rel, err)
	}
	return nil
}

// safeRelPath normalizes a caller-supplied filename and rejects
// anything that would escape the staging dir.
func safeRelPath(name string) (string, bool) {
	if name == "" {
		return DefaultMainFile, true
	}
	name = filepath.ToSlash(filepath.Clean(name))
	if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}

// limitedWriter caps total bytes written, swallowing the overflow so
// the child process never sees a write error.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}
	if remaining := lw.max - lw.written; int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

package agentloop

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// DirEntry represents a filesystem directory entry.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// SearchOptions configures a code search.
type SearchOptions struct {
	FileType string
}

// FetchResult is the body of a fetched web page.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Text        string
	Truncated   bool
}

// ExecutionEnvironment abstracts where tool operations run. Relative paths
// resolve against WorkingDirectory.
type ExecutionEnvironment interface {
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	FileExists(path string) bool
	ListDirectory(path string) ([]DirEntry, error)

	// ExecCommand runs command through the shell. A non-zero exit is not an
	// error; only a failure to start or wait is.
	ExecCommand(ctx context.Context, command string) (*ExecResult, error)

	// Search runs ripgrep and reports its exit code. A missing rg binary is an error.
	Search(ctx context.Context, pattern, path string, opts SearchOptions) (*ExecResult, error)

	Fetch(ctx context.Context, url string) (*FetchResult, error)

	WorkingDirectory() string
	Platform() string
	OSVersion() string
}

// sensitiveEnvPatterns are case-insensitive suffixes for environment variables
// that are not passed to spawned commands.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always included regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalExecutionEnvironment runs tools on the local machine.
type LocalExecutionEnvironment struct {
	workingDir     string
	commandTimeout time.Duration
	fetchTimeout   time.Duration
	maxFetchChars  int
}

// LocalOption configures a LocalExecutionEnvironment.
type LocalOption func(*LocalExecutionEnvironment)

// WithCommandTimeout bounds each shell command and search. Zero disables it.
func WithCommandTimeout(d time.Duration) LocalOption {
	return func(e *LocalExecutionEnvironment) { e.commandTimeout = d }
}

// WithFetchTimeout bounds each web fetch.
func WithFetchTimeout(d time.Duration) LocalOption {
	return func(e *LocalExecutionEnvironment) { e.fetchTimeout = d }
}

// NewLocalExecutionEnvironment creates a local execution environment rooted
// at workingDir, or the process working directory when empty.
func NewLocalExecutionEnvironment(workingDir string, opts ...LocalOption) *LocalExecutionEnvironment {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	e := &LocalExecutionEnvironment{
		workingDir:     workingDir,
		commandTimeout: 2 * time.Minute,
		fetchTimeout:   30 * time.Second,
		maxFetchChars:  100000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *LocalExecutionEnvironment) WorkingDirectory() string {
	return e.workingDir
}

func (e *LocalExecutionEnvironment) Platform() string {
	return runtime.GOOS
}

func (e *LocalExecutionEnvironment) OSVersion() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

func (e *LocalExecutionEnvironment) resolvePath(path string) string {
	if path == "" {
		return e.workingDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

func (e *LocalExecutionEnvironment) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(e.resolvePath(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *LocalExecutionEnvironment) WriteFile(path string, content string) error {
	resolved := e.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return errors.Wrap(err, "create parent directory")
	}
	return os.WriteFile(resolved, []byte(content), 0644)
}

func (e *LocalExecutionEnvironment) FileExists(path string) bool {
	_, err := os.Stat(e.resolvePath(path))
	return err == nil
}

// ListDirectory lists path sorted by name.
func (e *LocalExecutionEnvironment) ListDirectory(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(e.resolvePath(path))
	if err != nil {
		return nil, err
	}

	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		de := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if !de.IsDir {
			if info, err := entry.Info(); err == nil {
				de.Size = info.Size()
			}
		}
		result = append(result, de)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (e *LocalExecutionEnvironment) ExecCommand(ctx context.Context, command string) (*ExecResult, error) {
	return e.run(ctx, "/bin/sh", "-c", command)
}

func (e *LocalExecutionEnvironment) Search(ctx context.Context, pattern, path string, opts SearchOptions) (*ExecResult, error) {
	if path == "" {
		path = "."
	}

	rgPath, err := exec.LookPath("rg")
	if err != nil {
		return nil, err
	}
	args := []string{pattern}
	if opts.FileType != "" {
		args = append(args, "--type", opts.FileType)
	}
	args = append(args, path, "--line-number", "--column", "--color=never")
	return e.run(ctx, rgPath, args...)
}

// run executes a process in its own process group so a timeout kills
// everything it spawned.
func (e *LocalExecutionEnvironment) run(ctx context.Context, name string, args ...string) (*ExecResult, error) {
	if e.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.commandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.workingDir
	cmd.Env = filterEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			result.TimedOut = true
			result.ExitCode = -1
			if result.Stderr == "" {
				result.Stderr = "command timed out after " + e.commandTimeout.String()
			}
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return nil, err
		}
	}
	return result, nil
}

package structure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/source"
)

// DefaultCommand is the analysis tool invoked when none is configured.
const DefaultCommand = "sourcekitten"

// DefaultCompilerArgs are passed after the file path in cursor-info requests.
var DefaultCompilerArgs = []string{
	"-target", "arm64-apple-ios",
	"-sdk", "/Applications/Xcode.app/Contents/Developer/Platforms/iPhoneSimulator.platform/Developer/SDKs/iPhoneSimulator.sdk",
}

// Runner executes one external process and returns its output.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Config configures an Index.
type Config struct {
	// Command is the tool command line, split shell-style
	// (e.g. "xcrun sourcekitten"). Defaults to DefaultCommand.
	Command string

	// CompilerArgs follow the file path in cursor-info requests.
	// Nil means DefaultCompilerArgs.
	CompilerArgs []string

	// Timeout bounds each invocation. 0 disables it.
	Timeout time.Duration

	// CacheSize enables memoization of type lookups keyed on (path, offset).
	// 0 disables it and every lookup re-invokes the tool.
	CacheSize int

	// Runner executes the tool. Defaults to ExecRunner.
	Runner Runner

	Logger *slog.Logger
}

type lookupKey struct {
	path   string
	offset int
}

// Index invokes the analysis tool for whole-file structure dumps and
// per-offset type lookups. Calls are blocking.
type Index struct {
	argv         []string
	compilerArgs []string
	timeout      time.Duration
	runner       Runner
	cache        *lru.Cache[lookupKey, definition.FunctionSignature]
	logger       *slog.Logger

	invocations atomic.Int64
}

// NewIndex validates cfg and creates an Index.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	argv, err := shellquote.Split(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid tool command %q: %w", cfg.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("invalid tool command %q: empty", cfg.Command)
	}
	if cfg.CompilerArgs == nil {
		cfg.CompilerArgs = DefaultCompilerArgs
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	idx := &Index{
		argv:         argv,
		compilerArgs: cfg.CompilerArgs,
		timeout:      cfg.Timeout,
		runner:       cfg.Runner,
		logger:       cfg.Logger,
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[lookupKey, definition.FunctionSignature](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create lookup cache: %w", err)
		}
		idx.cache = cache
	}
	return idx, nil
}

// Tree dumps the declaration tree of the file at path.
func (idx *Index) Tree(ctx context.Context, path string) (*Node, error) {
	stdout, err := idx.invoke(ctx, path, "structure", "--file", path)
	if err != nil {
		return nil, err
	}

	tree, err := ParseTree(stdout)
	if err != nil {
		return nil, &ToolInvocationError{Command: idx.commandName(), File: path, Err: err}
	}
	return tree, nil
}

// cursorInfoRequest is the YAML request for a type lookup.
type cursorInfoRequest struct {
	Request      string   `yaml:"key.request"`
	SourceFile   string   `yaml:"key.sourcefile"`
	Offset       int      `yaml:"key.offset"`
	CompilerArgs []string `yaml:"key.compilerargs"`
}

// ResolveType looks up the declaration at span.Offset in file and parses its
// signature. A payload without an annotated declaration is not an error: the
// result carries Raw and an Unknown return type.
func (idx *Index) ResolveType(ctx context.Context, span Span, file *source.File) (definition.FunctionSignature, error) {
	key := lookupKey{path: file.Path, offset: span.Offset}
	if idx.cache != nil {
		if sig, ok := idx.cache.Get(key); ok {
			return sig, nil
		}
	}

	req := cursorInfoRequest{
		Request:      "source.request.cursorinfo",
		SourceFile:   file.Path,
		Offset:       span.Offset,
		CompilerArgs: append([]string{file.Path}, idx.compilerArgs...),
	}
	reqPath, err := writeRequest(req)
	if err != nil {
		return definition.FunctionSignature{}, &ToolInvocationError{Command: idx.commandName(), File: file.Path, Err: err}
	}
	defer func() { _ = os.Remove(reqPath) }()

	stdout, err := idx.invoke(ctx, file.Path, "request", "--yaml", reqPath)
	if err != nil {
		return definition.FunctionSignature{}, err
	}

	sig, err := ParseCursorInfo(stdout)
	if err != nil {
		return definition.FunctionSignature{}, &ToolInvocationError{Command: idx.commandName(), File: file.Path, Err: err}
	}

	if idx.cache != nil {
		idx.cache.Add(key, sig)
	}
	return sig, nil
}

// Invocations returns how many tool processes have been started.
func (idx *Index) Invocations() int64 {
	return idx.invocations.Load()
}

func (idx *Index) invoke(ctx context.Context, file string, args ...string) ([]byte, error) {
	if idx.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, idx.timeout)
		defer cancel()
	}

	argv := append(append([]string{}, idx.argv[1:]...), args...)
	idx.invocations.Add(1)

	start := time.Now()
	stdout, stderr, err := idx.runner.Run(ctx, idx.argv[0], argv)
	idx.logger.Debug("tool invoked",
		"command", idx.commandName(),
		"args", argv,
		"ms", time.Since(start).Milliseconds())

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", idx.timeout, err)
		}
		return nil, &ToolInvocationError{
			Command: idx.commandName(),
			File:    file,
			Stderr:  string(stderr),
			Err:     err,
		}
	}
	return stdout, nil
}

func (idx *Index) commandName() string {
	return shellquote.Join(idx.argv...)
}

func writeRequest(req cursorInfoRequest) (string, error) {
	data, err := yaml.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	tmp, err := os.CreateTemp("", "nativestub-cursorinfo-*.yaml")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write request: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write request: %w", err)
	}
	return tmp.Name(), nil
}

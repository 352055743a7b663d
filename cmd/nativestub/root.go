package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gnana997/nativestub/pkg/scanner"
	"github.com/gnana997/nativestub/pkg/structure"
	"github.com/gnana997/nativestub/pkg/util"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nativestub",
		Short: "Extract native module definitions and generate TypeScript stubs",
		Long: `nativestub reads the module definitions declared in native Swift sources
and generates one TypeScript stub per module, with placeholder types and
trivial bodies, for type-checking and testing code that calls the module.

Examples:
  nativestub generate ./ios            # Write stubs to ./ios/mocks
  nativestub generate --out src/mocks  # Custom output directory
  nativestub inspect --json            # Dump extracted definitions
  nativestub watch                     # Regenerate on change
  nativestub serve                     # MCP server on stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file (default <root>/"+configFile+")")
	flags.String("tool", structure.DefaultCommand, `Analysis tool command, split shell-style (e.g. "xcrun sourcekitten")`)
	flags.Duration("timeout", 0, "Per-invocation tool timeout (0 disables)")
	flags.Int("cache-size", 0, "Memoize up to N type lookups (0 disables)")
	flags.StringSlice("include", nil, "Include globs, relative to the root (replaces the default)")
	flags.StringSlice("exclude", nil, "Additional exclude globs, relative to the root")
	flags.String("log-level", string(util.LevelInfo), "Log level: debug, info, warn, error")
	flags.String("log-format", string(util.FormatText), "Log format: text or json")

	root.AddCommand(
		newGenerateCmd(),
		newInspectCmd(),
		newWatchCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// app is the state shared by every pipeline command.
type app struct {
	root     string
	settings settings
	log      *slog.Logger
	scanner  *scanner.Scanner
}

// setupApp resolves the project root and settings and builds the pipeline.
// The caller must call close.
func setupApp(cmd *cobra.Command, args []string) (*app, error) {
	rootArg := "."
	if len(args) > 0 {
		rootArg = args[0]
	}
	root, err := filepath.Abs(rootArg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	st, err := resolveSettings(cmd, root)
	if err != nil {
		return nil, err
	}

	logger := util.NewLogger(util.LoggerConfig{
		Level:  util.ParseLogLevel(st.LogLevel),
		Format: util.LogFormat(st.LogFormat),
		Output: cmd.ErrOrStderr(),
	})

	index, err := structure.NewIndex(structure.Config{
		Command:      st.Tool,
		CompilerArgs: st.CompilerArgs,
		Timeout:      st.Timeout,
		CacheSize:    st.CacheSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("settings resolved",
		"root", root,
		"tool", st.Tool,
		"out", st.OutDir,
		"verify", st.Verify,
		"cache_size", st.CacheSize)

	return &app{
		root:     root,
		settings: st,
		log:      logger,
		scanner:  scanner.NewScanner(index, logger),
	}, nil
}

func (a *app) close() {
	a.scanner.Close()
}

func (a *app) generateOptions() scanner.GenerateOptions {
	return scanner.GenerateOptions{OutDir: a.outDir(), Verify: a.settings.Verify}
}

// outDir returns the output directory. Relative paths, from flags or the
// config file, are taken relative to the project root.
func (a *app) outDir() string {
	if filepath.IsAbs(a.settings.OutDir) {
		return a.settings.OutDir
	}
	return filepath.Join(a.root, a.settings.OutDir)
}

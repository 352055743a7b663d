package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnana997/nativestub/pkg/mockgen"
	"github.com/gnana997/nativestub/pkg/scanner"
	"github.com/gnana997/nativestub/pkg/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Generate stubs, then regenerate them as sources change",
		Long: `Runs a full generation, then watches root and regenerates the stub of
each changed file. Removing a module's source removes its stub. Stops on
Ctrl-C or SIGTERM.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
	cmd.Flags().String("out", scanner.DefaultOutDir, "Output directory, relative to the root")
	cmd.Flags().Bool("verify", false, "Parse each generated stub and warn on syntax errors")
	cmd.Flags().Int("debounce", 200, "Milliseconds to wait for a file to settle")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := a.generateOptions()
	result, err := a.scanner.Generate(ctx, a.root, a.settings.Scan, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printWarnings(cmd.ErrOrStderr(), result.Warnings)
	fmt.Fprintf(out, "Wrote %d stub(s) to %s\n", result.Stats.StubsWritten, opts.OutDir)

	debounce, _ := cmd.Flags().GetInt("debounce")
	fw, err := watcher.New(a.scanner, watcher.Options{
		DebounceMs: debounce,
		Scan:       a.settings.Scan,
		Generate:   opts,
		OnUpdate:   func(u watcher.Update) { printUpdate(out, cmd.ErrOrStderr(), u) },
	}, a.log)
	if err != nil {
		return err
	}

	written := make(map[string]bool, len(result.Written))
	for _, path := range result.Written {
		written[path] = true
	}
	for _, m := range result.Modules {
		if stub := mockgen.OutputPath(opts.OutDir, m); written[stub] {
			fw.Track(m.SourcePath, stub)
		}
	}

	if err := fw.Start(ctx, a.root); err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", a.root)

	<-ctx.Done()
	return fw.Stop()
}

func printUpdate(out, errOut io.Writer, u watcher.Update) {
	printWarnings(errOut, u.Warnings)
	switch {
	case u.Err != nil:
		fmt.Fprintf(errOut, "error: %s: %v\n", u.Source, u.Err)
	case u.Removed:
		fmt.Fprintf(out, "removed stub for %s\n", u.Source)
	case u.Stub != "":
		fmt.Fprintf(out, "%s -> %s\n", u.Source, u.Stub)
	}
}

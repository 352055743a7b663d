package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/scanner"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [root]",
		Short: "Generate one TypeScript stub per native module",
		Long: `Scans the Swift sources under root (default: current directory), extracts
every module definition and writes <out>/<Name>.ts for each.

Files that fail to analyze are reported as warnings and skipped; the run
still writes every stub it could produce.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGenerate,
	}
	cmd.Flags().String("out", scanner.DefaultOutDir, "Output directory, relative to the root")
	cmd.Flags().Bool("verify", false, "Parse each generated stub and warn on syntax errors")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.scanner.Generate(cmd.Context(), a.root, a.settings.Scan, a.generateOptions())
	if err != nil {
		return err
	}

	printWarnings(cmd.ErrOrStderr(), result.Warnings)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d stub(s) to %s (%d module(s) in %d file(s), %d warning(s), %dms)\n",
		result.Stats.StubsWritten,
		a.outDir(),
		result.Stats.ModulesFound,
		result.Stats.FilesDiscovered,
		len(result.Warnings),
		result.Stats.TotalTimeMs)
	return nil
}

func printWarnings(w io.Writer, warnings []definition.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

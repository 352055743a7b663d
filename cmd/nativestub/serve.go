package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/gnana997/nativestub/pkg/mcp"
	"github.com/gnana997/nativestub/pkg/mcplog"
	"github.com/gnana997/nativestub/pkg/scanner"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve module definitions and stubs over MCP (stdio)",
		Long: `Starts an MCP server on stdin/stdout exposing the tools list_modules,
get_module_definition and generate_stub for the sources under root.
Logs go to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runServe,
	}
	cmd.Flags().String("out", scanner.DefaultOutDir, "Output directory for generate_stub writes, relative to the root")
	cmd.Flags().Bool("verify", false, "Parse each written stub and warn on syntax errors")
	cmd.Flags().String("call-log", "", "Append one JSON line per tool call to this file")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.close()

	callLog, err := mcplog.Open(a.settings.CallLog)
	if err != nil {
		return err
	}
	defer callLog.Close()

	srv := mcpserver.NewServer(a.scanner, mcpserver.Config{
		Root:     a.root,
		Scan:     a.settings.Scan,
		Generate: a.generateOptions(),
		Logger:   a.log,
		CallLog:  callLog,
	})

	a.log.Info("mcp server starting", "root", a.root, "call_log", a.settings.CallLog)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

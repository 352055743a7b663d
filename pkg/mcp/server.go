package mcp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/mcplog"
	"github.com/gnana997/nativestub/pkg/scanner"
)

const serverVersion = "0.1.0-dev"

// ModuleSource is the part of *scanner.Scanner the server queries.
type ModuleSource interface {
	Run(ctx context.Context, rootDir string, cfg scanner.ScanConfig) (*scanner.Result, error)
	WriteStub(m definition.ModuleDefinition, opts scanner.GenerateOptions, warnings *definition.Warnings) (string, error)
}

// Config configures a Server.
type Config struct {
	// Root is the source tree scanned on first use and on refresh.
	Root     string
	Scan     scanner.ScanConfig
	Generate scanner.GenerateOptions
	Logger   *slog.Logger
	// CallLog, if set, receives one entry per tool call.
	CallLog *mcplog.Logger
}

// Server exposes extracted module definitions and stub generation as MCP
// tools.
type Server struct {
	mcpServer *server.MCPServer
	src       ModuleSource
	cfg       Config
	log       *slog.Logger

	// mu serializes scans; the source is not safe for concurrent use.
	mu       sync.Mutex
	loaded   bool
	modules  []definition.ModuleDefinition
	warnings []definition.Warning
}

// NewServer creates a server backed by src.
func NewServer(src ModuleSource, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Generate.OutDir == "" {
		cfg.Generate.OutDir = scanner.DefaultOutDir
	}
	s := &Server{src: src, cfg: cfg, log: cfg.Logger}

	s.mcpServer = server.NewMCPServer(
		"nativestub",
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware()),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: listModulesTool(), Handler: s.handleListModules},
		server.ServerTool{Tool: getModuleDefinitionTool(), Handler: s.handleGetModuleDefinition},
		server.ServerTool{Tool: generateStubTool(), Handler: s.handleGenerateStub},
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// load scans the root on first use, or again when refresh is set.
func (s *Server) load(ctx context.Context, refresh bool) ([]definition.ModuleDefinition, []definition.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && !refresh {
		return s.modules, s.warnings, nil
	}

	result, err := s.src.Run(ctx, s.cfg.Root, s.cfg.Scan)
	if err != nil {
		return nil, nil, err
	}
	s.modules = result.Modules
	s.warnings = result.Warnings
	s.loaded = true
	s.log.Info("modules loaded", "root", s.cfg.Root, "modules", len(s.modules), "warnings", len(s.warnings))
	return s.modules, s.warnings, nil
}

// find returns the module named name.
func (s *Server) find(ctx context.Context, name string) (definition.ModuleDefinition, bool, error) {
	modules, _, err := s.load(ctx, false)
	if err != nil {
		return definition.ModuleDefinition{}, false, err
	}
	for _, m := range modules {
		if m.Name == name {
			return m, true, nil
		}
	}
	return definition.ModuleDefinition{}, false, nil
}

// writeStub writes m under the configured output directory.
func (s *Server) writeStub(m definition.ModuleDefinition) (string, []definition.Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings definition.Warnings
	path, err := s.src.WriteStub(m, s.cfg.Generate, &warnings)
	return path, warnings.Items(), err
}

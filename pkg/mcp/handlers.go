package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/mockgen"
)

type moduleSummary struct {
	Name           string `json:"name"`
	SourcePath     string `json:"source_path"`
	Functions      int    `json:"functions"`
	AsyncFunctions int    `json:"async_functions"`
	Events         int    `json:"events"`
	Properties     int    `json:"properties"`
	Props          int    `json:"props"`
	HasView        bool   `json:"has_view"`
}

type listModulesResponse struct {
	Modules  []moduleSummary      `json:"modules"`
	Warnings []definition.Warning `json:"warnings"`
}

type generateStubResponse struct {
	Module   string               `json:"module"`
	Path     string               `json:"path,omitempty"`
	Content  string               `json:"content"`
	Warnings []definition.Warning `json:"warnings,omitempty"`
}

func (s *Server) handleListModules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modules, warnings, err := s.load(ctx, req.GetBool("refresh", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	resp := listModulesResponse{
		Modules:  make([]moduleSummary, 0, len(modules)),
		Warnings: warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []definition.Warning{}
	}
	for _, m := range modules {
		resp.Modules = append(resp.Modules, moduleSummary{
			Name:           m.Name,
			SourcePath:     m.SourcePath,
			Functions:      len(m.Functions),
			AsyncFunctions: len(m.AsyncFunctions),
			Events:         len(m.Events),
			Properties:     len(m.Properties),
			Props:          len(m.Props),
			HasView:        m.View != nil,
		})
	}
	return jsonResult(resp)
}

func (s *Server) handleGetModuleDefinition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, ok, err := s.find(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("module %q not found", name)), nil
	}
	return jsonResult(m)
}

func (s *Server) handleGenerateStub(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, ok, err := s.find(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("module %q not found", name)), nil
	}

	resp := generateStubResponse{Module: m.Name, Content: mockgen.GenerateModule(m)}
	if req.GetBool("write", false) {
		path, warnings, err := s.writeStub(m)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("write failed: %v", err)), nil
		}
		resp.Path = path
		resp.Warnings = warnings
	}
	return jsonResult(resp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/nativestub/pkg/mcplog"
)

// loggingMiddleware logs every tool call to slog and, when configured, to
// the JSONL call log.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := mcplog.Now()
			result, err := next(ctx, req)
			elapsed := time.Since(start).Milliseconds()

			isError := err != nil || (result != nil && result.IsError)
			var errStr *string
			if err != nil {
				msg := err.Error()
				errStr = &msg
			}

			s.log.Debug("tool call",
				"tool", req.Params.Name,
				"ms", elapsed,
				"error", isError)

			_ = s.cfg.CallLog.Write(mcplog.Entry{
				Ts:            start.UTC().Format(time.RFC3339),
				Tool:          req.Params.Name,
				Module:        req.GetString("name", ""),
				Params:        mcplog.SanitizeParams(req.GetArguments()),
				DurationMs:    elapsed,
				ResponseBytes: mcplog.ResponseBytes(result),
				IsError:       isError,
				Error:         errStr,
			})

			return result, err
		}
	}
}

// Package mcp provides the stdio MCP server exposing shelf context tools for coding agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/docshelf-dev/docshelf/internal/buildinfo"
	"github.com/docshelf-dev/docshelf/internal/service"
	"github.com/docshelf-dev/docshelf/internal/status"
)

const shelfStatusDescription = `Look up the current state of a shelf. Returns whether it exists, whether setup has completed, how many boxes it holds, and the recommended next command. Call this before operating on a shelf so you do not act on stale assumptions.` //nolint:lll

const boxStatusDescription = `Look up the current state of a box, optionally scoped to its owning shelf. Returns existence, setup state, content summary, and the recommended next command for its box type (drag = web crawl, rag = document upload, bag = raw storage).` //nolint:lll

const cacheStatsDescription = `Report hit/miss accounting for the durable context cache. Useful for diagnosing repeated slow lookups.`

// NewServer creates and registers all shelf tools on a new MCP server.
// It is intentionally separate from Serve so that tests and other callers can
// obtain a fully configured server without committing to the stdio transport.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("docshelf", buildinfo.Version)
	registerTools(s, svc)
	return s
}

// Serve starts the stdio MCP server, blocking until stdin closes.
func Serve(_ context.Context, shelfHome string) error {
	svc, err := service.New(shelfHome)
	if err != nil {
		return fmt.Errorf("mcp: init service: %w", err)
	}
	defer svc.Close()

	return mcpserver.ServeStdio(NewServer(svc))
}

// registerTools wires all three MCP tools into the server.
func registerTools(s *mcpserver.MCPServer, svc *service.Service) {
	s.AddTool(mcp.NewTool("shelf_status",
		mcp.WithDescription(shelfStatusDescription),
		mcp.WithString("name",
			mcp.Description("Shelf name."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleShelfStatus(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("box_status",
		mcp.WithDescription(boxStatusDescription),
		mcp.WithString("name",
			mcp.Description("Box name."),
			mcp.Required(),
		),
		mcp.WithString("shelf",
			mcp.Description("Owning shelf. Omit to match the box on any shelf."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleBoxStatus(ctx, svc, req)
	})

	s.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription(cacheStatsDescription),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCacheStats(ctx, svc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleShelfStatus(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")

	st, err := svc.ShelfStatus(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(statusPayload(st))
}

func handleBoxStatus(ctx context.Context, svc *service.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	shelf := req.GetString("shelf", "")

	st, err := svc.BoxStatus(ctx, name, shelf)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payload := statusPayload(st)
	if st.BoxType != "" {
		payload["box_type"] = string(st.BoxType)
	}
	return jsonResult(payload)
}

func handleCacheStats(_ context.Context, svc *service.Service, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := svc.CacheStats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(stats)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// statusPayload flattens an EntityStatus into the wire shape shared by the
// shelf_status and box_status tools.
func statusPayload(st *service.EntityStatus) map[string]any {
	actions := make([]map[string]any, 0, len(st.Actions))
	for _, a := range st.Actions {
		actions = append(actions, map[string]any{
			"id":      a.ID,
			"label":   a.Label,
			"command": a.Command,
		})
	}

	payload := map[string]any{
		"name":    st.Context.EntityName,
		"type":    string(st.Context.EntityType),
		"exists":  st.Context.EntityExists,
		"status":  st.Status.String(),
		"actions": actions,
	}
	if st.Context.EntityExists {
		payload["configured"] = st.Context.Config.IsConfigured
		payload["summary"] = st.Context.ContentSummary
		if st.Context.IsEmpty != nil {
			payload["empty"] = *st.Context.IsEmpty
		}
		if !st.Context.LastModified.IsZero() {
			payload["last_modified"] = st.Context.LastModified.UTC().Format(time.RFC3339)
		}
	}
	if st.Status == status.NeedsMigration {
		payload["config_version"] = st.Context.Config.ConfigVersion
	}
	return payload
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

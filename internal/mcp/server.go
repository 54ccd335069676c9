// Package mcp exposes InsightPilot's learning loop as Model Context Protocol
// tools: enrich a draft, give feedback on a suggestion, learn from a saved
// record and inspect learned patterns.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/insightpilot/insightpilot/internal/collector"
	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/internal/learning"
	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/internal/store"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store    *store.Store
	Learning confidence.Config
	Version  string
	Logger   *logger.Logger
}

// NewServer creates a configured MCP server with every InsightPilot tool
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"InsightPilot",
		ver,
		server.WithToolCapabilities(false),
	)

	log := logger.OrNop(cfg.Logger).With("component", "mcp")
	engine := learning.NewEngine(cfg.Store, cfg.Learning, log)
	coll := collector.New(cfg.Store, log)

	registerEnrichTool(s, engine)
	registerContextTool(s, engine)
	registerFeedbackTools(s, engine)
	registerLearnTool(s, coll)
	registerPatternsTool(s, cfg.Store)

	return s
}

// ServeStdio runs s over stdin and stdout until stdin closes
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerEnrichTool(s *server.MCPServer, engine *learning.Engine) {
	tool := mcp.NewTool("insight_enrich",
		mcp.WithDescription("Fill in a capture draft from learned habits. Returns the enriched draft, what was auto-applied, and suggestions to confirm with the user."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The raw capture text, e.g. \"gym workout with @alex at !la fitness\""),
		),
		mcp.WithString("category", mcp.Description("Category already chosen; never overwritten")),
		mcp.WithString("subcategory", mcp.Description("Subcategory already chosen; never overwritten")),
		mcp.WithString("skills", mcp.Description("Comma-separated skills already chosen; never overwritten")),
		mcp.WithString("goal", mcp.Description("Goal already chosen; never overwritten")),
		mcp.WithString("location", mcp.Description("Location already known; disables location-based fills")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		var draft models.Draft
		if v, ok := optionalString(req, "category"); ok {
			draft.Category = models.Some(v)
		}
		if v, ok := optionalString(req, "subcategory"); ok {
			draft.Subcategory = models.Some(v)
		}
		if v, ok := optionalString(req, "skills"); ok {
			draft.Skills = models.Some(splitList(v))
		}
		if v, ok := optionalString(req, "goal"); ok {
			draft.Goal = models.Some(v)
		}
		if v, ok := optionalString(req, "location"); ok {
			draft.Location = models.Some(v)
		}

		res, err := engine.Enrich(ctx, draft, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("enrich error: %v", err)), nil
		}
		return jsonResult(res)
	})
}

func registerContextTool(s *server.MCPServer, engine *learning.Engine) {
	tool := mcp.NewTool("insight_context",
		mcp.WithDescription("Describe the user's learned habits relevant to a piece of text, as plain-text hints for a parser or assistant."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The raw capture text"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		pc, err := engine.Context(ctx, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("context error: %v", err)), nil
		}
		hints := learning.FormatHints(pc)
		if hints == "" {
			hints = "No learned habits match this text yet."
		}
		return mcp.NewToolResultText(hints), nil
	})
}

func registerFeedbackTools(s *server.MCPServer, engine *learning.Engine) {
	for _, t := range []struct {
		name, description string
		record            func(context.Context, string) error
		verb              string
	}{
		{"insight_accept", "Record that the user accepted a suggestion. Raises the pattern's confidence.", engine.AcceptSuggestion, "accepted"},
		{"insight_reject", "Record that the user dismissed a suggestion. Lowers the pattern's confidence.", engine.RejectSuggestion, "rejected"},
	} {
		tool := mcp.NewTool(t.name,
			mcp.WithDescription(t.description),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("pattern_id",
				mcp.Required(),
				mcp.Description("The pattern id carried by the suggestion"),
			),
		)

		s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("pattern_id")
			if err != nil || strings.TrimSpace(id) == "" {
				return mcp.NewToolResultError("pattern_id is required"), nil
			}
			if err := t.record(ctx, id); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("feedback error: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Feedback recorded: %s %s", id, t.verb)), nil
		})
	}
}

func registerLearnTool(s *server.MCPServer, coll *collector.Collector) {
	tool := mcp.NewTool("insight_learn",
		mcp.WithDescription("Learn from a saved event, task or raw capture. Call after the user saves so future captures are filled in automatically."),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The capture text the record was created from"),
		),
		mcp.WithString("kind", mcp.Description("event (default), task or text")),
		mcp.WithString("category", mcp.Description("Category the user saved")),
		mcp.WithString("subcategory", mcp.Description("Subcategory the user saved")),
		mcp.WithString("skills", mcp.Description("Comma-separated skills the user saved")),
		mcp.WithString("goal", mcp.Description("Goal the user saved")),
		mcp.WithString("people", mcp.Description("Comma-separated people on the record")),
		mcp.WithString("location", mcp.Description("Location the user saved")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		rec := models.Record{Kind: models.RecordKindEvent, Text: text}
		if v, ok := optionalString(req, "kind"); ok {
			rec.Kind = models.RecordKind(strings.ToLower(v))
		}
		if !rec.Kind.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q: use event, task or text", rec.Kind)), nil
		}
		rec.Category, _ = optionalString(req, "category")
		rec.Subcategory, _ = optionalString(req, "subcategory")
		rec.Goal, _ = optionalString(req, "goal")
		rec.Location, _ = optionalString(req, "location")
		if v, ok := optionalString(req, "skills"); ok {
			rec.Skills = splitList(v)
		}
		if v, ok := optionalString(req, "people"); ok {
			rec.People = splitList(v)
		}

		return jsonResult(coll.Collect(ctx, rec))
	})
}

func registerPatternsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("insight_patterns",
		mcp.WithDescription("List learned patterns, strongest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithNumber("min_confidence", mcp.Description("Only patterns at or above this confidence (default: 0.5)")),
		mcp.WithString("type", mcp.Description("activity_category, activity_skill, goal_category, person_context or location_fill")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of patterns to return (default: 50, max: 500)")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		opts := store.ListOpts{MinConfidence: 0.5, Limit: 50}
		if v, err := req.RequireFloat("min_confidence"); err == nil {
			opts.MinConfidence = v
		}
		if v, err := req.RequireFloat("limit"); err == nil && v > 0 {
			opts.Limit = min(int(v), 500)
		}
		if v, ok := optionalString(req, "type"); ok {
			opts.Type = models.PatternType(v)
			if !opts.Type.Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("invalid type %q", v)), nil
			}
		}

		patterns, err := st.List(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list error: %v", err)), nil
		}
		if patterns == nil {
			patterns = []models.Pattern{}
		}
		return jsonResult(patterns)
	})
}

// optionalString returns a trimmed, non-empty string argument
func optionalString(req mcp.CallToolRequest, name string) (string, bool) {
	v, err := req.RequireString(name)
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

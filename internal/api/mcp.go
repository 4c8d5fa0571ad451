package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mammadli/askdesk/internal/resolver"
	"github.com/mammadli/askdesk/internal/storage"
	"github.com/mammadli/askdesk/internal/userstore"
)

// NewMCPServer creates an MCP server exposing the question-answering and
// document tools over stdio. It shares AppDeps with the HTTP layer, so
// subsystem outages degrade both surfaces the same way.
func NewMCPServer(deps AppDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"askdesk",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("askdesk — question answering over an organization's internal documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question about the organization's internal documents."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("role", mcp.Description("Caller role: admin, analyst, or standard")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("search_docs",
			mcp.WithDescription("Search the document base directly without AI generation."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
		),
		mcpSearchDocs(deps),
	)

	s.AddTool(
		mcp.NewTool("add_document",
			mcp.WithDescription("Store a plain-text document into the searchable document base."),
			mcp.WithString("title", mcp.Description("Title for the document")),
			mcp.WithString("content", mcp.Description("The text content to store"), mcp.Required()),
			mcp.WithArray("tags", mcp.Description("Optional tags for categorization")),
		),
		mcpAddDocument(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"askdesk://recent",
			"Recent Questions",
			mcp.WithResourceDescription("Last 10 answered questions (question and tier only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAsk(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		if deps.Resolver == nil || !deps.State.ComponentsReady() {
			return mcpError("question answering unavailable: core components not initialized"), nil
		}

		caller := demoCaller
		if role := req.GetString("role", ""); userstore.ValidRole(role) {
			caller.Role = role
		}

		outcome := deps.Resolver.Resolve(ctx, question, caller)
		recordInteraction(deps, question, caller, outcome)

		if outcome.Tier == resolver.TierFailed {
			return mcpError(outcome.Answer), nil
		}

		b, err := json.Marshal(map[string]any{
			"answer": outcome.Answer,
			"tier":   outcome.Tier,
			"errors": outcome.Errors,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal outcome: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchDocs(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		if deps.State.Knowledge == nil {
			return mcpError("knowledge index unavailable"), nil
		}

		synopsis, err := deps.State.Knowledge.Search(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcpText(synopsis), nil
	}
}

func mcpAddDocument(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		if deps.Store == nil {
			return mcpError("document storage unavailable"), nil
		}

		title := req.GetString("title", "")
		tags := req.GetStringSlice("tags", nil)

		tagsJSON := "[]"
		if len(tags) > 0 {
			b, err := json.Marshal(tags)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to marshal tags: %v", err)), nil
			}
			tagsJSON = string(b)
		}

		docID := uuid.New().String()
		doc := storage.Document{
			ID:        docID,
			Title:     title,
			Content:   content,
			Source:    "mcp",
			MimeType:  "text/plain",
			Tags:      tagsJSON,
			Status:    "indexed",
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveDocument(doc); err != nil {
			return mcpError(fmt.Sprintf("failed to save: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Stored document %s", docID)), nil
	}
}

func mcpResourceRecent(deps AppDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Store == nil {
			return nil, fmt.Errorf("interaction log unavailable")
		}

		interactions, err := deps.Store.GetRecentInteractions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Question  string `json:"question"`
			Tier      string `json:"tier"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			question := ix.Question
			if utf8.RuneCountInString(question) > 200 {
				runes := []rune(question)
				question = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:        ix.ID,
				CreatedAt: ix.CreatedAt.Format(time.RFC3339),
				Question:  question,
				Tier:      ix.Tier,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// Package mcp exposes the fetched reddit archive over the Model Context
// Protocol so editor assistants can search it and ask questions through the
// same narrowing and context pipeline as the interactive session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/reddit"
	"github.com/kalambet/redsight/internal/session"
)

// Deps holds the dependencies for the MCP server. The index and context are
// populated before the server starts listening; credentials are already
// dropped by then.
type Deps struct {
	Index   *archive.Index
	Account reddit.Account
	Asker   session.Asker
	Sctx    *session.Context
	// NarrowLimit caps how many items back one question. Zero means 25.
	NarrowLimit int
}

// NewServer creates an MCP server with the redsight tools and resources
// registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"redsight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("redsight — question answering over one reddit account's posts, comments, and saved items."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_content",
			mcp.WithDescription("Substring search over the fetched reddit items (posts, comments, saved)."),
			mcp.WithString("query", mcp.Description("Search text"), mcp.Required()),
			mcp.WithString("kind", mcp.Description("Restrict to one kind: post, comment, or saved")),
			mcp.WithString("subreddit", mcp.Description("Restrict to one subreddit")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		toolSearchContent(deps),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a natural-language question about the account; the answer is grounded in the fetched items."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
		),
		toolAsk(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"reddit://overview",
			"Account Overview",
			mcp.WithResourceDescription("Account summary, item counts, and most active subreddits as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		resourceOverview(deps),
	)

	return s
}

// Serve runs the server over stdio until the context is cancelled or stdin
// closes.
func Serve(ctx context.Context, deps Deps) error {
	return server.NewStdioServer(NewServer(deps)).Listen(ctx, os.Stdin, os.Stdout)
}

func toolSearchContent(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return toolError("query is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		f := archive.Filter{
			Query:     query,
			Subreddit: req.GetString("subreddit", ""),
			Kind:      archive.Kind(req.GetString("kind", "")),
			Limit:     limit,
		}
		items, err := deps.Index.Search(f)
		if err != nil {
			return toolError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(items) == 0 {
			return toolText("[]"), nil
		}

		type itemResult struct {
			ID        string `json:"id"`
			Kind      string `json:"kind"`
			Subreddit string `json:"subreddit"`
			Title     string `json:"title,omitempty"`
			Body      string `json:"body,omitempty"`
			Score     int    `json:"score"`
			CreatedAt string `json:"created_at"`
		}

		results := make([]itemResult, len(items))
		for i, it := range items {
			results[i] = itemResult{
				ID:        it.ID,
				Kind:      string(it.Kind),
				Subreddit: it.Subreddit,
				Title:     it.Title,
				Body:      it.Body,
				Score:     it.Score,
				CreatedAt: it.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func toolAsk(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return toolError("question is required"), nil
		}

		limit := deps.NarrowLimit
		if limit <= 0 {
			limit = 25
		}

		items, err := session.Narrow(deps.Index, question, limit)
		if err != nil {
			return toolError(fmt.Sprintf("search failed: %v", err)), nil
		}
		top, err := deps.Index.TopSubreddits(10)
		if err != nil {
			return toolError(fmt.Sprintf("activity tally failed: %v", err)), nil
		}

		text := deps.Sctx.Render(items, top, deps.Index.Missing())
		ans, err := deps.Asker.Ask(ctx, text, question)
		if err != nil {
			return toolError(fmt.Sprintf("failed to get an answer: %v", err)), nil
		}

		deps.Sctx.Append(question, ans.Text, ans.TokensUsed)
		return toolText(ans.Text), nil
	}
}

func resourceOverview(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		top, err := deps.Index.TopSubreddits(10)
		if err != nil {
			return nil, fmt.Errorf("failed to tally subreddits: %w", err)
		}

		type kindCount struct {
			Kind  string `json:"kind"`
			Count int    `json:"count"`
		}
		var counts []kindCount
		for _, k := range []archive.Kind{archive.KindPost, archive.KindComment, archive.KindSaved} {
			n, err := deps.Index.Count(k)
			if err != nil {
				return nil, fmt.Errorf("failed to count %s items: %w", k, err)
			}
			counts = append(counts, kindCount{Kind: string(k), Count: n})
		}

		overview := struct {
			Username      string                   `json:"username"`
			Created       string                   `json:"created,omitempty"`
			LinkKarma     int                      `json:"link_karma"`
			CommentKarma  int                      `json:"comment_karma"`
			Items         []kindCount              `json:"items"`
			TopSubreddits []archive.SubredditCount `json:"top_subreddits"`
			Missing       []string                 `json:"missing,omitempty"`
		}{
			Username:      deps.Account.Username,
			LinkKarma:     deps.Account.LinkKarma,
			CommentKarma:  deps.Account.CommentKarma,
			Items:         counts,
			TopSubreddits: top,
			Missing:       deps.Index.Missing(),
		}
		if !deps.Account.Created.IsZero() {
			overview.Created = deps.Account.Created.Format(time.RFC3339)
		}

		b, err := json.Marshal(overview)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal overview: %w", err)
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

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

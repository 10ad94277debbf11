package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/llm"
	"github.com/kalambet/redsight/internal/reddit"
	"github.com/kalambet/redsight/internal/session"
)

type mockAsker struct {
	lastContext  string
	lastQuestion string
	reply        string
	err          error
}

func (m *mockAsker) Ask(_ context.Context, contextText, question string) (llm.Answer, error) {
	m.lastContext = contextText
	m.lastQuestion = question
	if m.err != nil {
		return llm.Answer{}, m.err
	}
	return llm.Answer{Text: m.reply, TokensUsed: 17}, nil
}

func (m *mockAsker) Ping(context.Context) error { return nil }

func newTestDeps(t *testing.T) (Deps, *mockAsker) {
	t.Helper()
	ix, err := archive.Open()
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	base := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	items := []archive.Item{
		{ID: "t3_a", Kind: archive.KindPost, Subreddit: "golang",
			Title: "Profiling allocations", Score: 30, CreatedAt: base},
		{ID: "t1_b", Kind: archive.KindComment, Subreddit: "golang",
			Body: "pprof makes this easy", Score: 5, ParentTitle: "Profiling allocations",
			CreatedAt: base.Add(-time.Hour)},
		{ID: "t3_c", Kind: archive.KindSaved, Subreddit: "cooking",
			Title: "Cast iron care", Score: 200, CreatedAt: base.Add(-2 * time.Hour)},
	}
	if err := ix.Put(items); err != nil {
		t.Fatalf("seeding index: %v", err)
	}

	acct := reddit.Account{Username: "gopher42", LinkKarma: 100, CommentKarma: 900}
	asker := &mockAsker{reply: "grounded answer"}
	return Deps{
		Index:   ix,
		Account: acct,
		Asker:   asker,
		Sctx:    session.NewContext(acct, 4000, 1),
	}, asker
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func callToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestSearchContent(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := toolSearchContent(deps)

	result, err := handler(context.Background(), callToolRequest("search_content", map[string]interface{}{
		"query": "profiling",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", textOf(t, result))
	}

	var got []map[string]any
	if err := json.Unmarshal([]byte(textOf(t, result)), &got); err != nil {
		t.Fatalf("unmarshaling results: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0]["id"] != "t3_a" {
		t.Errorf("first result id = %v, want t3_a (newest first)", got[0]["id"])
	}
}

func TestSearchContentKindFilter(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := toolSearchContent(deps)

	result, err := handler(context.Background(), callToolRequest("search_content", map[string]interface{}{
		"query": "profiling",
		"kind":  "comment",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal([]byte(textOf(t, result)), &got); err != nil {
		t.Fatalf("unmarshaling results: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "t1_b" {
		t.Fatalf("results = %v, want only t1_b", got)
	}
}

func TestSearchContentMissingQuery(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := toolSearchContent(deps)

	result, err := handler(context.Background(), callToolRequest("search_content", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing query")
	}
}

func TestAsk(t *testing.T) {
	deps, asker := newTestDeps(t)
	handler := toolAsk(deps)

	result, err := handler(context.Background(), callToolRequest("ask", map[string]interface{}{
		"question": "What did I say about profiling?",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", textOf(t, result))
	}

	if textOf(t, result) != "grounded answer" {
		t.Errorf("answer = %q", textOf(t, result))
	}
	if !strings.Contains(asker.lastContext, "Profiling allocations") {
		t.Error("context missing the matching post")
	}
	if strings.Contains(asker.lastContext, "Cast iron") {
		t.Error("context contains unrelated item")
	}
	if len(deps.Sctx.Turns()) != 1 {
		t.Errorf("turns recorded = %d, want 1", len(deps.Sctx.Turns()))
	}
}

func TestAskFailureIsToolError(t *testing.T) {
	deps, asker := newTestDeps(t)
	asker.err = &llm.Error{Status: 500, Message: "backend down"}
	handler := toolAsk(deps)

	result, err := handler(context.Background(), callToolRequest("ask", map[string]interface{}{
		"question": "anything at all really",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when the model call fails")
	}
	if len(deps.Sctx.Turns()) != 0 {
		t.Error("failed exchange must not be recorded")
	}
}

func TestResourceOverview(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Index.MarkFailed("saved", &reddit.FetchError{Op: "saved"})
	handler := resourceOverview(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "reddit://overview"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}

	text := contents[0].(mcp.TextResourceContents).Text
	var overview struct {
		Username      string                   `json:"username"`
		Items         []map[string]any         `json:"items"`
		TopSubreddits []archive.SubredditCount `json:"top_subreddits"`
		Missing       []string                 `json:"missing"`
	}
	if err := json.Unmarshal([]byte(text), &overview); err != nil {
		t.Fatalf("unmarshaling overview: %v", err)
	}

	if overview.Username != "gopher42" {
		t.Errorf("username = %q", overview.Username)
	}
	if len(overview.TopSubreddits) == 0 || overview.TopSubreddits[0].Subreddit != "golang" {
		t.Errorf("top subreddits = %v, want golang first", overview.TopSubreddits)
	}
	if len(overview.Missing) != 1 {
		t.Errorf("missing = %v, want the failed saved fetch", overview.Missing)
	}
}

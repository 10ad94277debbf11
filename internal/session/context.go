package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/reddit"
)

const (
	defaultMaxContextTokens = 4000
	defaultKeepTurns        = 1
)

// Turn is one question/answer exchange in the running conversation.
type Turn struct {
	ID       string
	Question string
	Answer   string
	Tokens   int
}

// Context is the session context sent to the model with each question: the
// account overview, a selection of content items, and the conversation so
// far. It grows by appending turns and is discarded at process exit.
type Context struct {
	Account   reddit.Account
	MaxTokens int
	KeepTurns int

	history []Turn
}

// NewContext creates a context with the given token budget for the rendered
// payload. Non-positive arguments take defaults.
func NewContext(acct reddit.Account, maxTokens, keepTurns int) *Context {
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}
	if keepTurns <= 0 {
		keepTurns = defaultKeepTurns
	}
	return &Context{Account: acct, MaxTokens: maxTokens, KeepTurns: keepTurns}
}

// Append records a completed exchange and returns it.
func (c *Context) Append(question, answer string, tokens int) Turn {
	t := Turn{ID: uuid.New().String(), Question: question, Answer: answer, Tokens: tokens}
	c.history = append(c.history, t)
	return t
}

// Turns returns the conversation history in order.
func (c *Context) Turns() []Turn {
	return append([]Turn(nil), c.history...)
}

// EstimateTokens is the rough 4-chars-per-token heuristic used to keep the
// rendered context inside the provider's input budget.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Render serializes the context deterministically. items must be in recency
// order (newest first). When the estimate exceeds the token budget the
// payload is truncated in a fixed order: oldest conversation turns first
// (never below KeepTurns), then least-recent content items. Identical inputs
// produce identical bytes.
func (c *Context) Render(items []archive.Item, top []archive.SubredditCount, missing []string) string {
	turns := c.history
	kept := append([]archive.Item(nil), items...)

	render := func() string {
		return c.renderParts(kept, top, missing, turns)
	}

	out := render()
	for EstimateTokens(out) > c.MaxTokens && len(turns) > c.KeepTurns {
		turns = turns[1:]
		out = render()
	}
	for EstimateTokens(out) > c.MaxTokens && len(kept) > 0 {
		kept = kept[:len(kept)-1]
		out = render()
	}
	return out
}

func (c *Context) renderParts(items []archive.Item, top []archive.SubredditCount, missing []string, turns []Turn) string {
	var sb strings.Builder

	a := c.Account
	fmt.Fprintf(&sb, "Reddit account summary for %s:\n\n", a.Username)
	sb.WriteString("ACCOUNT OVERVIEW:\n")
	fmt.Fprintf(&sb, "- Username: %s\n", a.Username)
	if !a.Created.IsZero() {
		fmt.Fprintf(&sb, "- Account created: %s\n", a.Created.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "- Total karma: %d (comment: %d, link: %d)\n", a.TotalKarma(), a.CommentKarma, a.LinkKarma)
	fmt.Fprintf(&sb, "- Gold: %s, Moderator: %s\n", yesNo(a.IsGold), yesNo(a.IsMod))

	if len(top) > 0 {
		sb.WriteString("\nMOST ACTIVE COMMUNITIES:\n")
		for _, sc := range top {
			fmt.Fprintf(&sb, "- r/%s: %d interactions\n", sc.Subreddit, sc.Count)
		}
	}

	if len(missing) > 0 {
		sb.WriteString("\nMISSING DATA (these fetches failed; answers may be incomplete):\n")
		for _, m := range missing {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}

	if len(items) > 0 {
		sb.WriteString("\nCONTENT:\n")
		for _, it := range items {
			writeItem(&sb, it)
		}
	}

	if len(turns) > 0 {
		sb.WriteString("\nCONVERSATION SO FAR:\n")
		for _, t := range turns {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n", t.Question, t.Answer)
		}
	}

	return sb.String()
}

func writeItem(sb *strings.Builder, it archive.Item) {
	switch {
	case it.Title != "":
		fmt.Fprintf(sb, "- [%s] [r/%s] %s (score %d, comments %d)\n", it.Kind, it.Subreddit, it.Title, it.Score, it.NumComments)
	case it.ParentTitle != "":
		fmt.Fprintf(sb, "- [%s] [r/%s] on %q (score %d)\n", it.Kind, it.Subreddit, it.ParentTitle, it.Score)
	default:
		fmt.Fprintf(sb, "- [%s] [r/%s] (score %d)\n", it.Kind, it.Subreddit, it.Score)
	}
	if it.Body != "" {
		fmt.Fprintf(sb, "  %s\n", oneLine(it.Body))
	}
	if len(it.Replies) > 0 {
		fmt.Fprintf(sb, "  Replies:\n")
		for _, r := range it.Replies {
			fmt.Fprintf(sb, "    - %s: %s (%d pts)\n", r.Author, oneLine(r.Body), r.Score)
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Package session runs the interactive question loop: it drives credential
// acquisition, authentication, data fetching, and the console menu, and it
// guarantees the credential store is wiped on entry to the terminated state
// no matter how the loop ends.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/creds"
	"github.com/kalambet/redsight/internal/llm"
	"github.com/kalambet/redsight/internal/reddit"
)

// State is the loop's position in its lifecycle.
type State int

const (
	StateAwaitingCredentials State = iota
	StateAuthenticated
	StateFetching
	StateReady
	StateTerminated
)

// Platform is the narrow surface of the reddit adapter the loop needs,
// kept as an interface so tests can substitute a double.
type Platform interface {
	Authenticate(ctx context.Context, cr *creds.Store) (*reddit.Session, error)
	Me(ctx context.Context, s *reddit.Session) (reddit.Account, error)
	FetchPosts(ctx context.Context, s *reddit.Session, limit int) ([]archive.Item, error)
	FetchComments(ctx context.Context, s *reddit.Session, limit int) ([]archive.Item, error)
	FetchSaved(ctx context.Context, s *reddit.Session, limit int) ([]archive.Item, error)
}

// Asker is the narrow surface of the LLM adapter. Ping validates the key at
// startup so a bad key fails the session before any data is fetched.
type Asker interface {
	Ask(ctx context.Context, contextText, question string) (llm.Answer, error)
	Ping(ctx context.Context) error
}

// CredSource produces credential stores. Interactive sources may be asked
// again after an authentication failure; non-interactive sources are asked
// exactly once.
type CredSource interface {
	Credentials(attempt int) (*creds.Store, error)
	Interactive() bool
}

// Limits bounds the fetch sizes and the narrowing selection.
type Limits struct {
	Posts    int
	Comments int
	Saved    int
	Narrow   int
}

// Loop owns one interactive session.
type Loop struct {
	Platform Platform
	Source   CredSource
	// NewAsker builds the LLM adapter once the API key is available.
	NewAsker func(apiKey string) Asker
	Index    *archive.Index
	In       io.Reader
	Out      io.Writer
	Limits   Limits

	ContextTokens int
	KeepTurns     int
	// MaxAuthAttempts caps interactive re-prompts. Zero means 3.
	MaxAuthAttempts int

	state State
	store *creds.Store
	sess  *reddit.Session
	llm   Asker
	sctx  *Context
	lines chan string
}

// State reports the loop's current lifecycle state.
func (l *Loop) State() State { return l.state }

// Shutdown wipes the active credential store. It is idempotent and is also
// called from Run itself; callers defer it so interrupts and panics still
// pass through the wipe.
func (l *Loop) Shutdown() {
	if l.store != nil {
		l.store.Zero()
	}
}

// Run drives the session to completion. The credential wipe runs on every
// return path.
//
// Stdin is read by a separate goroutine so an interrupt delivered while the
// loop waits at a prompt still unblocks it and passes through the wipe.
func (l *Loop) Run(ctx context.Context) error {
	defer l.terminate()

	l.lines = make(chan string)
	go func() {
		sc := bufio.NewScanner(l.In)
		for sc.Scan() {
			select {
			case l.lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
		close(l.lines)
	}()

	if err := l.authenticate(ctx); err != nil {
		return err
	}
	l.fetchAll(ctx)
	l.state = StateReady

	return l.menuLoop(ctx)
}

func (l *Loop) terminate() {
	l.state = StateTerminated
	l.Shutdown()
}

func (l *Loop) authenticate(ctx context.Context) error {
	l.state = StateAwaitingCredentials

	attempts := l.MaxAuthAttempts
	if attempts <= 0 {
		attempts = 3
	}
	if !l.Source.Interactive() {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		store, err := l.Source.Credentials(attempt)
		if err != nil {
			return err
		}
		if err := store.Validate(); err != nil {
			store.Zero()
			return err
		}

		sess, err := l.Platform.Authenticate(ctx, store)
		if err != nil {
			store.Zero()
			var authErr *reddit.AuthError
			if errors.As(err, &authErr) && attempt < attempts {
				fmt.Fprintln(l.Out, "authentication failed, please try again")
				continue
			}
			return err
		}

		l.store = store
		l.sess = sess
		l.llm = l.NewAsker(store.LLMKey())
		// The bearer token replaces the password from here on.
		store.DropPassword()

		// Validate the LLM key before fetching anything so a bad key
		// fails the session now, not on the first question.
		if err := l.llm.Ping(ctx); err != nil {
			return fmt.Errorf("llm connection check: %w", err)
		}
		l.state = StateAuthenticated

		acct, err := l.Platform.Me(ctx, sess)
		if err != nil {
			fmt.Fprintf(l.Out, "warning: could not load account overview: %v\n", err)
			acct = reddit.Account{Username: sess.Username}
		} else {
			fmt.Fprintf(l.Out, "connected as u/%s (%d karma)\n", acct.Username, acct.TotalKarma())
		}
		l.sctx = NewContext(acct, l.ContextTokens, l.KeepTurns)
		return nil
	}
	return &reddit.AuthError{}
}

// fetchAll runs the three listing fetches sequentially. A failed operation
// is recorded and reported; successful collections stay available.
func (l *Loop) fetchAll(ctx context.Context) {
	l.state = StateFetching
	l.Index.ClearFailed()

	type fetch struct {
		op    string
		limit int
		fn    func(context.Context, *reddit.Session, int) ([]archive.Item, error)
	}
	fetches := []fetch{
		{"posts", l.Limits.Posts, l.Platform.FetchPosts},
		{"comments", l.Limits.Comments, l.Platform.FetchComments},
		{"saved", l.Limits.Saved, l.Platform.FetchSaved},
	}

	for _, f := range fetches {
		items, err := f.fn(ctx, l.sess, f.limit)
		if err != nil {
			l.Index.MarkFailed(f.op, err)
			fmt.Fprintf(l.Out, "warning: could not fetch %s: %v\n", f.op, err)
			continue
		}
		if err := l.Index.Put(items); err != nil {
			l.Index.MarkFailed(f.op, err)
			fmt.Fprintf(l.Out, "warning: could not index %s: %v\n", f.op, err)
			continue
		}
		fmt.Fprintf(l.Out, "fetched %d %s\n", len(items), f.op)
	}
}

const menu = `
What would you like to know about your reddit account?
  1. Ask a custom question
  2. Get AI insights about your activity patterns
  3. Get improvement suggestions
  4. Compare two subreddits
  5. Get content suggestions for a subreddit
  6. Reload reddit data
  7. Exit
`

func (l *Loop) menuLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(l.Out, menu)

		choice, ok := l.readLine(ctx, "Enter your choice (1-7): ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			q, ok := l.readLine(ctx, "Ask about your reddit account: ")
			if !ok {
				return nil
			}
			if q != "" {
				l.answer(ctx, q)
			}
		case "2":
			l.answer(ctx, insightsPrompt)
		case "3":
			l.answer(ctx, improvementPrompt)
		case "4":
			sub1, ok := l.readLine(ctx, "First subreddit: ")
			if !ok {
				return nil
			}
			sub2, ok := l.readLine(ctx, "Second subreddit: ")
			if !ok {
				return nil
			}
			if sub1 != "" && sub2 != "" {
				l.answer(ctx, comparePrompt(sub1, sub2))
			}
		case "5":
			sub, ok := l.readLine(ctx, "Subreddit for content suggestions: ")
			if !ok {
				return nil
			}
			if sub != "" {
				l.answer(ctx, contentPrompt(sub))
			}
		case "6":
			l.fetchAll(ctx)
			l.state = StateReady
		case "7", "exit", "quit", "q":
			fmt.Fprintln(l.Out, "goodbye")
			return nil
		default:
			// Malformed input is not fatal; show the menu again.
			fmt.Fprintln(l.Out, "please enter a number between 1 and 7")
		}
	}
}

// answer narrows the context to the question, dispatches to the LLM, prints
// the result, and records the turn. Failures report inline; the loop stays
// ready.
func (l *Loop) answer(ctx context.Context, question string) {
	items, err := Narrow(l.Index, question, l.Limits.Narrow)
	if err != nil {
		fmt.Fprintf(l.Out, "search failed: %v\n", err)
		return
	}
	top, err := l.Index.TopSubreddits(10)
	if err != nil {
		fmt.Fprintf(l.Out, "activity tally failed: %v\n", err)
		return
	}

	text := l.sctx.Render(items, top, l.Index.Missing())
	ans, err := l.llm.Ask(ctx, text, question)
	if err != nil {
		fmt.Fprintf(l.Out, "failed to get an answer: %v\n", err)
		return
	}

	fmt.Fprintf(l.Out, "\n%s\n", ans.Text)
	if ans.TokensUsed > 0 {
		fmt.Fprintf(l.Out, "(%d tokens)\n", ans.TokensUsed)
	}
	l.sctx.Append(question, ans.Text, ans.TokensUsed)
}

// readLine prompts and reads one trimmed line. ok is false on EOF or when the
// context is cancelled while waiting.
func (l *Loop) readLine(ctx context.Context, prompt string) (line string, ok bool) {
	fmt.Fprint(l.Out, prompt)
	select {
	case line, ok = <-l.lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/config"
	"github.com/kalambet/redsight/internal/creds"
	"github.com/kalambet/redsight/internal/llm"
	"github.com/kalambet/redsight/internal/mcp"
	"github.com/kalambet/redsight/internal/reddit"
	"github.com/kalambet/redsight/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the fetched account data over MCP (stdio)",
	Long: `Serve the fetched account data to an MCP client over stdio.

Stdin carries the protocol, so credentials cannot be prompted: all five
REDSIGHT_* variables must be set in the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the redsight version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("redsight version %s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value, restoring the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ix, err := archive.Open()
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer ix.Close()

	loop := &session.Loop{
		Platform: newRedditClient(cfg),
		Source:   newCredSource(),
		NewAsker: newAskerFactory(cfg),
		Index:    ix,
		In:       os.Stdin,
		Out:      os.Stdout,
		Limits: session.Limits{
			Posts:    cfg.Reddit.PostLimit,
			Comments: cfg.Reddit.CommentLimit,
			Saved:    cfg.Reddit.SavedLimit,
			Narrow:   cfg.Session.NarrowLimit,
		},
		ContextTokens: cfg.Session.ContextTokens,
		KeepTurns:     cfg.Session.KeepTurns,
	}
	// Run wipes credentials itself; this covers error paths before Run.
	defer loop.Shutdown()

	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stdout, "goodbye")
			return nil
		}
		return err
	}
	return nil
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, ok := creds.FromEnv()
	if !ok {
		return fmt.Errorf("mcp mode requires credentials in the environment: set %s, %s, %s, %s, %s",
			creds.EnvClientID, creds.EnvClientSecret, creds.EnvUsername, creds.EnvPassword, creds.EnvLLMKey)
	}
	defer store.Zero()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc := newRedditClient(cfg)
	sess, err := rc.Authenticate(ctx, store)
	if err != nil {
		return err
	}
	asker := newAskerFactory(cfg)(store.LLMKey())
	store.DropPassword()

	if err := asker.Ping(ctx); err != nil {
		return fmt.Errorf("llm connection check: %w", err)
	}

	acct, err := rc.Me(ctx, sess)
	if err != nil {
		printWarning("could not load account overview: %v", err)
		acct = reddit.Account{Username: sess.Username}
	}

	ix, err := archive.Open()
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer ix.Close()

	type fetch struct {
		op    string
		limit int
		fn    func(context.Context, *reddit.Session, int) ([]archive.Item, error)
	}
	for _, f := range []fetch{
		{"posts", cfg.Reddit.PostLimit, rc.FetchPosts},
		{"comments", cfg.Reddit.CommentLimit, rc.FetchComments},
		{"saved", cfg.Reddit.SavedLimit, rc.FetchSaved},
	} {
		items, err := f.fn(ctx, sess, f.limit)
		if err != nil {
			ix.MarkFailed(f.op, err)
			printWarning("could not fetch %s: %v", f.op, err)
			continue
		}
		if err := ix.Put(items); err != nil {
			ix.MarkFailed(f.op, err)
			printWarning("could not index %s: %v", f.op, err)
			continue
		}
		printStep("fetched %d %s", len(items), f.op)
	}

	printStep("serving MCP on stdio for u/%s", acct.Username)
	err = mcp.Serve(ctx, mcp.Deps{
		Index:       ix,
		Account:     acct,
		Asker:       asker,
		Sctx:        session.NewContext(acct, cfg.Session.ContextTokens, cfg.Session.KeepTurns),
		NarrowLimit: cfg.Session.NarrowLimit,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRedditClient(cfg config.Config) *reddit.Client {
	return reddit.NewClient(reddit.Options{
		AuthURL:    cfg.Reddit.AuthURL,
		APIURL:     cfg.Reddit.APIURL,
		UserAgent:  cfg.Reddit.UserAgent,
		ReplyDepth: cfg.Reddit.ReplyDepth,
		ReplyLimit: cfg.Reddit.ReplyLimit,
	})
}

func newAskerFactory(cfg config.Config) func(apiKey string) session.Asker {
	return func(apiKey string) session.Asker {
		return llm.NewClient(apiKey, llm.Options{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	}
}

package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "redsight",
	Short: "Ask questions about your reddit account",
	Long: `redsight fetches your reddit posts, comments, and saved items and lets you
ask natural-language questions about them. Nothing is written to disk:
credentials and fetched content live only for the duration of the session.

Credentials come from environment variables when all five are set:
  REDSIGHT_REDDIT_CLIENT_ID, REDSIGHT_REDDIT_CLIENT_SECRET,
  REDSIGHT_REDDIT_USERNAME, REDSIGHT_REDDIT_PASSWORD, REDSIGHT_LLM_API_KEY
Otherwise redsight prompts for them interactively.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func main() {
	// A .env next to the binary is a convenience for development; a missing
	// file is not an error.
	godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

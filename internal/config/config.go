package config

type Config struct {
	Reddit  RedditConfig
	LLM     LLMConfig
	Session SessionConfig
}

type RedditConfig struct {
	AuthURL      string
	APIURL       string
	UserAgent    string
	PostLimit    int
	CommentLimit int
	SavedLimit   int
	ReplyDepth   int
	ReplyLimit   int
}

type LLMConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

type SessionConfig struct {
	ContextTokens int
	KeepTurns     int
	NarrowLimit   int
}

func defaults() Config {
	return Config{
		Reddit: RedditConfig{
			AuthURL:      "https://www.reddit.com",
			APIURL:       "https://oauth.reddit.com",
			UserAgent:    "redsight:v0.1 (command line)",
			PostLimit:    25,
			CommentLimit: 25,
			SavedLimit:   25,
			ReplyDepth:   4,
			ReplyLimit:   10,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1000,
			Temperature: 0.7,
		},
		Session: SessionConfig{
			ContextTokens: 4000,
			KeepTurns:     1,
			NarrowLimit:   25,
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/redsight/config.json, then applies environment variable
// overrides (REDSIGHT_*).
//
// Credentials are not configuration: they never appear in the file backend
// and are read separately at startup (environment variables or interactive
// prompts).
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

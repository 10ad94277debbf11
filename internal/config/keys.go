package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "reddit.auth_url", typ: kString, env: "REDSIGHT_REDDIT_AUTH_URL",
		apply:   func(cfg *Config, v any) { cfg.Reddit.AuthURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.AuthURL },
	},
	{
		key: "reddit.api_url", typ: kString, env: "REDSIGHT_REDDIT_API_URL",
		apply:   func(cfg *Config, v any) { cfg.Reddit.APIURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.APIURL },
	},
	{
		key: "reddit.user_agent", typ: kString, env: "REDSIGHT_REDDIT_USER_AGENT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.UserAgent = v.(string) },
		extract: func(cfg Config) any { return cfg.Reddit.UserAgent },
	},
	{
		key: "reddit.post_limit", typ: kInt, env: "REDSIGHT_REDDIT_POST_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.PostLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Reddit.PostLimit },
	},
	{
		key: "reddit.comment_limit", typ: kInt, env: "REDSIGHT_REDDIT_COMMENT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.CommentLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Reddit.CommentLimit },
	},
	{
		key: "reddit.saved_limit", typ: kInt, env: "REDSIGHT_REDDIT_SAVED_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.SavedLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Reddit.SavedLimit },
	},
	{
		key: "reddit.reply_depth", typ: kInt, env: "REDSIGHT_REDDIT_REPLY_DEPTH",
		apply:   func(cfg *Config, v any) { cfg.Reddit.ReplyDepth = v.(int) },
		extract: func(cfg Config) any { return cfg.Reddit.ReplyDepth },
	},
	{
		key: "reddit.reply_limit", typ: kInt, env: "REDSIGHT_REDDIT_REPLY_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Reddit.ReplyLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Reddit.ReplyLimit },
	},
	{
		key: "llm.base_url", typ: kString, env: "REDSIGHT_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "REDSIGHT_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.max_tokens", typ: kInt, env: "REDSIGHT_LLM_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxTokens },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "REDSIGHT_LLM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.api_key", typ: kString, env: "REDSIGHT_LLM_API_KEY",
		secret: true,
	},
	{
		key: "session.context_tokens", typ: kInt, env: "REDSIGHT_SESSION_CONTEXT_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Session.ContextTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.ContextTokens },
	},
	{
		key: "session.keep_turns", typ: kInt, env: "REDSIGHT_SESSION_KEEP_TURNS",
		apply:   func(cfg *Config, v any) { cfg.Session.KeepTurns = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.KeepTurns },
	},
	{
		key: "session.narrow_limit", typ: kInt, env: "REDSIGHT_SESSION_NARROW_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Session.NarrowLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.NarrowLimit },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		// Secret env vars belong to the credential store, not the config.
		if s.env == "" || s.secret {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory test double for the file backend.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", true, nil
	}
	return s, true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, true, nil
	}
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error  { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *mapBackend) Delete(key string) error          { delete(b.data, key); return nil }

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Reddit.AuthURL != "https://www.reddit.com" {
		t.Errorf("Reddit.AuthURL = %q", cfg.Reddit.AuthURL)
	}
	if cfg.Reddit.APIURL != "https://oauth.reddit.com" {
		t.Errorf("Reddit.APIURL = %q", cfg.Reddit.APIURL)
	}
	if cfg.Reddit.PostLimit != 25 {
		t.Errorf("Reddit.PostLimit = %d, want 25", cfg.Reddit.PostLimit)
	}
	if cfg.Reddit.ReplyDepth != 4 || cfg.Reddit.ReplyLimit != 10 {
		t.Errorf("reply caps = %d/%d, want 4/10", cfg.Reddit.ReplyDepth, cfg.Reddit.ReplyLimit)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("LLM.Temperature = %v, want 0.7", cfg.LLM.Temperature)
	}
	if cfg.Session.ContextTokens != 4000 || cfg.Session.KeepTurns != 1 {
		t.Errorf("session budget = %d/%d, want 4000/1", cfg.Session.ContextTokens, cfg.Session.KeepTurns)
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := &mapBackend{data: map[string]any{
		"reddit.user_agent": "redsight:test",
		"reddit.post_limit": 50,
		"llm.model":         "gpt-4o",
		"llm.temperature":   "0.2",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Reddit.UserAgent != "redsight:test" {
		t.Errorf("Reddit.UserAgent = %q", cfg.Reddit.UserAgent)
	}
	if cfg.Reddit.PostLimit != 50 {
		t.Errorf("Reddit.PostLimit = %d, want 50", cfg.Reddit.PostLimit)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("LLM.Temperature = %v, want 0.2", cfg.LLM.Temperature)
	}
}

func TestEnvOverride(t *testing.T) {
	b := &mapBackend{data: map[string]any{
		"llm.model": "file-model",
	}}
	t.Setenv("REDSIGHT_LLM_MODEL", "env-model")
	t.Setenv("REDSIGHT_REDDIT_COMMENT_LIMIT", "7")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Model != "env-model" {
		t.Errorf("LLM.Model = %q, want env-model", cfg.LLM.Model)
	}
	if cfg.Reddit.CommentLimit != 7 {
		t.Errorf("Reddit.CommentLimit = %d, want 7", cfg.Reddit.CommentLimit)
	}
}

func TestSecretEnvNotReadIntoConfig(t *testing.T) {
	t.Setenv("REDSIGHT_LLM_API_KEY", "sk-secret")

	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, info := range ShowAll(cfg) {
		if strings.Contains(info.Value, "sk-secret") {
			t.Fatalf("secret leaked into config key %s", info.Key)
		}
		if info.Key == "llm.api_key" {
			t.Fatal("secret key listed by ShowAll")
		}
	}
}

func TestSetKeyRefusesSecrets(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	err := SetKey("llm.api_key", "sk-secret")
	if err == nil {
		t.Fatal("expected error setting a secret key")
	}
	if !strings.Contains(err.Error(), "REDSIGHT_LLM_API_KEY") {
		t.Errorf("error should point at the env var: %v", err)
	}
	if strings.Contains(err.Error(), "sk-secret") {
		t.Error("error must not echo the secret value")
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := SetKey("reddit.post_limit", "99"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := SetKey("llm.model", "gpt-4o"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "redsight", "config.json")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reddit.PostLimit != 99 {
		t.Errorf("Reddit.PostLimit = %d, want 99", cfg.Reddit.PostLimit)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %q, want gpt-4o", cfg.LLM.Model)
	}
}

func TestUnsetKeyRestoresDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := SetKey("llm.model", "gpt-4o"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := UnsetKey("llm.model"); err != nil {
		t.Fatalf("UnsetKey: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model = %q, want the default gpt-4o-mini", cfg.LLM.Model)
	}

	if err := UnsetKey("nope.nothing"); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err := UnsetKey("llm.api_key"); err == nil {
		t.Fatal("expected error for secret key")
	}
}

func TestSetKeyUnknown(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("nope.nothing", "1"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

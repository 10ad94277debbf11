package creds

import (
	"strings"
	"testing"
)

func TestValidate_AllPresent(t *testing.T) {
	s := New("id", "secret", "user", "pass", "key")
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	s := New("id", "", "user", "", "key")
	err := s.Validate()
	if err == nil {
		t.Fatal("Validate: expected error for missing fields")
	}
	if !strings.Contains(err.Error(), "client secret") || !strings.Contains(err.Error(), "password") {
		t.Errorf("error should name missing fields, got %q", err)
	}
}

func TestValidate_NeverEchoesValues(t *testing.T) {
	s := New("", "hunter2-secret", "", "hunter2-pass", "")
	err := s.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("error leaked a credential value: %q", err)
	}
}

func TestZero_ClearsEverything(t *testing.T) {
	s := New("id", "secret", "user", "pass", "key")
	s.Zero()

	if !s.Wiped() {
		t.Error("Wiped() = false after Zero")
	}
	for name, got := range map[string]string{
		"ClientID":     s.ClientID(),
		"ClientSecret": s.ClientSecret(),
		"Username":     s.Username(),
		"Password":     s.Password(),
		"LLMKey":       s.LLMKey(),
	} {
		if got != "" {
			t.Errorf("%s = %q after Zero, want empty", name, got)
		}
	}
}

func TestZero_OverwritesBackingBytes(t *testing.T) {
	s := New("id", "secret", "user", "pass", "key")
	backing := s.password
	s.Zero()

	for i, b := range backing {
		if b != 0 {
			t.Fatalf("password byte %d = %q after Zero, want 0", i, b)
		}
	}
}

func TestZero_Idempotent(t *testing.T) {
	s := New("id", "secret", "user", "pass", "key")
	s.Zero()
	s.Zero()
	if !s.Wiped() {
		t.Error("Wiped() = false after double Zero")
	}
}

func TestDropPassword(t *testing.T) {
	s := New("id", "secret", "user", "pass", "key")
	backing := s.password
	s.DropPassword()

	if s.Password() != "" {
		t.Errorf("Password() = %q after DropPassword, want empty", s.Password())
	}
	for i, b := range backing {
		if b != 0 {
			t.Fatalf("password byte %d not wiped", i)
		}
	}
	// Other fields survive.
	if s.ClientID() != "id" || s.LLMKey() != "key" {
		t.Error("DropPassword wiped unrelated fields")
	}
}

func TestFromEnv_Complete(t *testing.T) {
	t.Setenv(EnvClientID, "cid")
	t.Setenv(EnvClientSecret, "csecret")
	t.Setenv(EnvUsername, "alice")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvLLMKey, "sk-123")

	s, ok := FromEnv()
	if !ok {
		t.Fatal("FromEnv: ok = false, want true")
	}
	if s.Username() != "alice" || s.LLMKey() != "sk-123" {
		t.Errorf("unexpected values: user=%q key=%q", s.Username(), s.LLMKey())
	}
}

func TestFromEnv_Incomplete(t *testing.T) {
	t.Setenv(EnvClientID, "cid")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvUsername, "alice")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvLLMKey, "sk-123")

	if _, ok := FromEnv(); ok {
		t.Error("FromEnv: ok = true with missing secret, want false")
	}
}

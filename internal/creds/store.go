// Package creds holds the runtime secrets for one process run.
//
// Credentials live only in process memory. They are never serialized, never
// written to disk, and the backing bytes are overwritten on every exit path.
package creds

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables that supersede interactive prompts when all secrets
// among them are present.
const (
	EnvClientID     = "REDSIGHT_REDDIT_CLIENT_ID"
	EnvClientSecret = "REDSIGHT_REDDIT_CLIENT_SECRET"
	EnvUsername     = "REDSIGHT_REDDIT_USERNAME"
	EnvPassword     = "REDSIGHT_REDDIT_PASSWORD"
	EnvLLMKey       = "REDSIGHT_LLM_API_KEY"
)

// Store keeps the five secrets as byte slices so Zero can overwrite the
// backing memory instead of relying on garbage collection timing.
type Store struct {
	clientID     []byte
	clientSecret []byte
	username     []byte
	password     []byte
	llmKey       []byte
	wiped        bool
}

// New copies the given values into a fresh store.
func New(clientID, clientSecret, username, password, llmKey string) *Store {
	return &Store{
		clientID:     []byte(clientID),
		clientSecret: []byte(clientSecret),
		username:     []byte(username),
		password:     []byte(password),
		llmKey:       []byte(llmKey),
	}
}

// FromEnv builds a store from environment variables. ok is false when any of
// the five variables is unset or empty, in which case the caller should fall
// back to interactive prompts.
func FromEnv() (s *Store, ok bool) {
	vals := make([]string, 5)
	for i, name := range []string{EnvClientID, EnvClientSecret, EnvUsername, EnvPassword, EnvLLMKey} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return nil, false
		}
		vals[i] = v
	}
	return New(vals[0], vals[1], vals[2], vals[3], vals[4]), true
}

// Validate reports which required fields are missing. Field values are never
// included in the error.
func (s *Store) Validate() error {
	var missing []string
	if len(s.clientID) == 0 {
		missing = append(missing, "reddit client id")
	}
	if len(s.clientSecret) == 0 {
		missing = append(missing, "reddit client secret")
	}
	if len(s.username) == 0 {
		missing = append(missing, "reddit username")
	}
	if len(s.password) == 0 {
		missing = append(missing, "reddit password")
	}
	if len(s.llmKey) == 0 {
		missing = append(missing, "llm api key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *Store) ClientID() string     { return string(s.clientID) }
func (s *Store) ClientSecret() string { return string(s.clientSecret) }
func (s *Store) Username() string     { return string(s.username) }
func (s *Store) Password() string     { return string(s.password) }
func (s *Store) LLMKey() string       { return string(s.llmKey) }

// DropPassword wipes the reddit password once a bearer token has replaced it.
// The other fields stay available for the remainder of the session.
func (s *Store) DropPassword() {
	wipe(s.password)
	s.password = nil
}

// Zero overwrites all backing bytes and clears every field. Safe to call more
// than once; the store is unusable afterwards.
func (s *Store) Zero() {
	for _, b := range [][]byte{s.clientID, s.clientSecret, s.username, s.password, s.llmKey} {
		wipe(b)
	}
	s.clientID, s.clientSecret, s.username, s.password, s.llmKey = nil, nil, nil, nil, nil
	s.wiped = true
}

// Wiped reports whether Zero has run.
func (s *Store) Wiped() bool { return s.wiped }

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kalambet/redsight/internal/creds"
	"github.com/kalambet/redsight/internal/session"
)

// newCredSource returns the environment source when all five credential
// variables are set, otherwise the interactive prompt source.
func newCredSource() session.CredSource {
	if store, ok := creds.FromEnv(); ok {
		return &envSource{store: store}
	}
	return &promptSource{}
}

// envSource hands out the store built from environment variables. It is
// non-interactive: a rejected login fails the run instead of re-prompting.
type envSource struct {
	store *creds.Store
}

func (s *envSource) Credentials(int) (*creds.Store, error) { return s.store, nil }
func (s *envSource) Interactive() bool                     { return false }

// promptSource reads credentials from the terminal. Secrets are read without
// echo when stdin is a terminal.
type promptSource struct{}

func (s *promptSource) Interactive() bool { return true }

func (s *promptSource) Credentials(attempt int) (*creds.Store, error) {
	if attempt == 1 {
		printStep("Enter your reddit API credentials (https://www.reddit.com/prefs/apps)")
	}

	clientID, err := promptLine("Reddit client id: ")
	if err != nil {
		return nil, err
	}
	clientSecret, err := promptSecret("Reddit client secret: ")
	if err != nil {
		return nil, err
	}
	username, err := promptLine("Reddit username: ")
	if err != nil {
		return nil, err
	}
	password, err := promptSecret("Reddit password: ")
	if err != nil {
		return nil, err
	}
	llmKey, err := promptSecret("LLM API key: ")
	if err != nil {
		return nil, err
	}

	return creds.New(clientID, clientSecret, username, password, llmKey), nil
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echoing it. When stdin is not a terminal
// (tests, pipes) it falls back to a plain read.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLineNoLabel()
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func promptLineNoLabel() (string, error) {
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

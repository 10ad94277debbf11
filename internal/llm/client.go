// Package llm wraps an OpenAI-compatible chat completions API behind a single
// Ask operation used by the session loop.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

// systemPrompt frames every request: the model answers questions about the
// user's reddit account from the context we provide.
const systemPrompt = `You are a helpful assistant that analyzes reddit account data.
You have been provided with a user's reddit account summary including their posts,
comments, saved items, karma, and active communities.

Answer the user's questions about their account based on this data. Be specific,
helpful, and provide insights when possible. If the data doesn't contain enough
information to answer a question, say so clearly.

Keep responses conversational and engaging while staying accurate to the provided data.`

// Error is returned when the provider rejects or fails a request: bad key,
// rate limit, oversized input, or a 5xx.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm request failed (HTTP %d): %s", e.Status, e.Message)
}

// Answer is the model's response to one question.
type Answer struct {
	Text       string
	TokensUsed int
	Model      string
}

// Client communicates with the provider's chat completions endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// Options configures a Client. Zero fields take defaults.
type Options struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// NewClient creates a client with the given API key.
func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Model != "" {
		c.model = opts.Model
	}
	if opts.MaxTokens > 0 {
		c.maxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		c.temperature = opts.Temperature
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// Ask sends the serialized session context plus the user's question and
// returns the model's answer. There is no retry: a rate limit or provider
// failure surfaces as *Error and the caller decides what to do.
func (c *Client) Ask(ctx context.Context, contextText, question string) (Answer, error) {
	user := fmt.Sprintf("Here is my reddit account data:\n\n%s\n\nMy question: %s", contextText, question)
	return c.chat(ctx, []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}, c.maxTokens)
}

// Ping sends a minimal request to verify the key and endpoint before the
// session starts.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.chat(ctx, []message{{Role: "user", Content: "Hello"}}, 10)
	return err
}

func (c *Client) chat(ctx context.Context, messages []message, maxTokens int) (Answer, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Answer{}, &Error{Status: resp.StatusCode, Message: providerMessage(respBody)}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Answer{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return Answer{}, fmt.Errorf("response contains no choices")
	}

	model := result.Model
	if model == "" {
		model = c.model
	}
	return Answer{
		Text:       result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
		Model:      model,
	}, nil
}

// providerMessage pulls the human-readable error out of the provider's error
// envelope, falling back to the raw body.
func providerMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

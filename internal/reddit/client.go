// Package reddit wraps the reddit data API: password-grant authentication and
// the listing endpoints for a user's posts, comments, and saved items.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/redsight/internal/archive"
	"github.com/kalambet/redsight/internal/creds"
)

const (
	defaultAuthURL   = "https://www.reddit.com"
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultUserAgent = "redsight:v0.1 (command line)"
	defaultTimeout   = 30 * time.Second

	defaultReplyDepth = 4
	defaultReplyLimit = 10

	postBodyLimit    = 500
	commentBodyLimit = 300
)

// Client talks to the reddit API. Construct with NewClient.
type Client struct {
	authURL    string
	apiURL     string
	userAgent  string
	replyDepth int
	replyLimit int
	httpClient *http.Client
}

// Options configures a Client. Zero fields take defaults; AuthURL and APIURL
// are overridable for tests.
type Options struct {
	AuthURL    string
	APIURL     string
	UserAgent  string
	ReplyDepth int
	ReplyLimit int
	HTTPClient *http.Client
}

// NewClient creates a reddit client.
func NewClient(opts Options) *Client {
	c := &Client{
		authURL:    defaultAuthURL,
		apiURL:     defaultAPIURL,
		userAgent:  defaultUserAgent,
		replyDepth: defaultReplyDepth,
		replyLimit: defaultReplyLimit,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	if opts.AuthURL != "" {
		c.authURL = strings.TrimRight(opts.AuthURL, "/")
	}
	if opts.APIURL != "" {
		c.apiURL = strings.TrimRight(opts.APIURL, "/")
	}
	if opts.UserAgent != "" {
		c.userAgent = opts.UserAgent
	}
	if opts.ReplyDepth > 0 {
		c.replyDepth = opts.ReplyDepth
	}
	if opts.ReplyLimit > 0 {
		c.replyLimit = opts.ReplyLimit
	}
	if opts.HTTPClient != nil {
		c.httpClient = opts.HTTPClient
	}
	return c
}

// Authenticate exchanges credentials for a bearer token via the password
// grant. The returned session carries the token; the adapter does not retain
// the password.
func (c *Client) Authenticate(ctx context.Context, cr *creds.Store) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", cr.Username())
	form.Set("password", cr.Password())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(cr.ClientID(), cr.ClientSecret())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return nil, &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	// reddit reports bad passwords as 200 + {"error": "invalid_grant"}.
	if tok.Error != "" || tok.AccessToken == "" {
		return nil, &AuthError{Status: resp.StatusCode}
	}

	return &Session{
		Username: cr.Username(),
		token:    tok.AccessToken,
		expires:  time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// Me fetches the authenticated user's account overview.
func (c *Client) Me(ctx context.Context, s *Session) (Account, error) {
	var me meResponse
	if err := c.getJSON(ctx, s, "/api/v1/me?raw_json=1", &me); err != nil {
		return Account{}, err
	}
	return Account{
		Username:     me.Name,
		Created:      fromUnix(me.CreatedUTC),
		LinkKarma:    me.LinkKarma,
		CommentKarma: me.CommentKarma,
		IsGold:       me.IsGold,
		IsMod:        me.IsMod,
	}, nil
}

// FetchPosts returns the user's most recent submissions.
func (c *Client) FetchPosts(ctx context.Context, s *Session, limit int) ([]archive.Item, error) {
	path := fmt.Sprintf("/user/%s/submitted?limit=%d&sort=new&raw_json=1", url.PathEscape(s.Username), limit)
	var env thing
	if err := c.getJSON(ctx, s, path, &env); err != nil {
		return nil, &FetchError{Op: "posts", Err: err}
	}
	items, err := c.listingToItems(env, archive.KindPost)
	if err != nil {
		return nil, &FetchError{Op: "posts", Err: err}
	}
	return items, nil
}

// FetchComments returns the user's most recent comments.
func (c *Client) FetchComments(ctx context.Context, s *Session, limit int) ([]archive.Item, error) {
	path := fmt.Sprintf("/user/%s/comments?limit=%d&sort=new&raw_json=1", url.PathEscape(s.Username), limit)
	var env thing
	if err := c.getJSON(ctx, s, path, &env); err != nil {
		return nil, &FetchError{Op: "comments", Err: err}
	}
	items, err := c.listingToItems(env, archive.KindComment)
	if err != nil {
		return nil, &FetchError{Op: "comments", Err: err}
	}
	return items, nil
}

// FetchSaved returns the user's saved posts and comments. For each saved post
// the comment thread is fetched and flattened into ordered replies, bounded
// by the configured depth and count caps. A failed thread fetch leaves that
// item without replies rather than failing the whole operation.
func (c *Client) FetchSaved(ctx context.Context, s *Session, limit int) ([]archive.Item, error) {
	path := fmt.Sprintf("/user/%s/saved?limit=%d&raw_json=1", url.PathEscape(s.Username), limit)
	var env thing
	if err := c.getJSON(ctx, s, path, &env); err != nil {
		return nil, &FetchError{Op: "saved", Err: err}
	}

	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil, &FetchError{Op: "saved", Err: fmt.Errorf("decoding listing: %w", err)}
	}

	var items []archive.Item
	for _, child := range listing.Children {
		switch child.Kind {
		case kindPost:
			var p postData
			if err := json.Unmarshal(child.Data, &p); err != nil {
				return items, &FetchError{Op: "saved", Err: fmt.Errorf("decoding saved post: %w", err)}
			}
			it := postToItem(p, archive.KindSaved)
			if replies, err := c.fetchReplies(ctx, s, p.ID); err == nil {
				it.Replies = replies
			}
			items = append(items, it)
		case kindComment:
			var cm commentData
			if err := json.Unmarshal(child.Data, &cm); err != nil {
				return items, &FetchError{Op: "saved", Err: fmt.Errorf("decoding saved comment: %w", err)}
			}
			it := commentToItem(cm, archive.KindSaved)
			items = append(items, it)
		}
	}
	return items, nil
}

// fetchReplies loads the comment thread of one post and flattens it.
func (c *Client) fetchReplies(ctx context.Context, s *Session, postID string) ([]archive.Reply, error) {
	path := fmt.Sprintf("/comments/%s?limit=%d&depth=%d&raw_json=1",
		url.PathEscape(postID), c.replyLimit, c.replyDepth)

	// The endpoint returns a two-element array: [post listing, comment listing].
	var pair []thing
	if err := c.getJSON(ctx, s, path, &pair); err != nil {
		return nil, err
	}
	if len(pair) < 2 {
		return nil, fmt.Errorf("comments response for %s has %d elements", postID, len(pair))
	}

	var listing listingData
	if err := json.Unmarshal(pair[1].Data, &listing); err != nil {
		return nil, fmt.Errorf("decoding comment listing: %w", err)
	}

	return c.flattenThread(listing), nil
}

// flattenThread walks a comment tree iteratively with an explicit stack,
// preserving the API's insertion order and never exceeding the depth and
// count caps regardless of how deep the source thread nests.
func (c *Client) flattenThread(root listingData) []archive.Reply {
	type frame struct {
		node  thing
		depth int
	}

	var stack []frame
	// Push in reverse so pop order matches the listing order.
	for i := len(root.Children) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: root.Children[i], depth: 1})
	}

	var out []archive.Reply
	for len(stack) > 0 && len(out) < c.replyLimit {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.Kind != kindComment || f.depth > c.replyDepth {
			continue
		}

		var cm commentData
		if err := json.Unmarshal(f.node.Data, &cm); err != nil {
			continue
		}

		body := commentBody(cm)
		if body != "" && body != "[deleted]" && body != "[removed]" {
			out = append(out, archive.Reply{
				Author: authorOrDeleted(cm.Author),
				Body:   truncate(body, commentBodyLimit),
				Score:  cm.Score,
				Depth:  f.depth,
			})
		}

		if f.depth >= c.replyDepth {
			continue
		}
		children := replyChildren(cm.Replies)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}
	return out
}

// replyChildren decodes a comment's replies field, which is either an empty
// string or a Listing thing.
func replyChildren(raw json.RawMessage) []thing {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == `""` || trimmed == "null" {
		return nil
	}
	var env thing
	if err := json.Unmarshal(raw, &env); err != nil || env.Kind != kindListing {
		return nil
	}
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil
	}
	return listing.Children
}

func (c *Client) listingToItems(env thing, kind archive.Kind) ([]archive.Item, error) {
	var listing listingData
	if err := json.Unmarshal(env.Data, &listing); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	var items []archive.Item
	for _, child := range listing.Children {
		switch child.Kind {
		case kindPost:
			var p postData
			if err := json.Unmarshal(child.Data, &p); err != nil {
				return nil, fmt.Errorf("decoding post: %w", err)
			}
			items = append(items, postToItem(p, kind))
		case kindComment:
			var cm commentData
			if err := json.Unmarshal(child.Data, &cm); err != nil {
				return nil, fmt.Errorf("decoding comment: %w", err)
			}
			items = append(items, commentToItem(cm, kind))
		}
	}
	return items, nil
}

func postToItem(p postData, kind archive.Kind) archive.Item {
	body := p.SelfText
	if body == "" && p.SelfTextHTML != "" {
		body = htmlToText(p.SelfTextHTML)
	}
	u := ""
	if !p.IsSelf {
		u = p.URL
	}
	return archive.Item{
		ID:          p.Name,
		Kind:        kind,
		Subreddit:   p.Subreddit,
		Title:       p.Title,
		Body:        truncate(body, postBodyLimit),
		Author:      authorOrDeleted(p.Author),
		Score:       p.Score,
		NumComments: p.NumComments,
		CreatedAt:   fromUnix(p.CreatedUTC),
		URL:         u,
	}
}

func commentToItem(cm commentData, kind archive.Kind) archive.Item {
	return archive.Item{
		ID:          cm.Name,
		Kind:        kind,
		Subreddit:   cm.Subreddit,
		Body:        truncate(commentBody(cm), commentBodyLimit),
		Author:      authorOrDeleted(cm.Author),
		Score:       cm.Score,
		CreatedAt:   fromUnix(cm.CreatedUTC),
		ParentTitle: cm.LinkTitle,
	}
}

func commentBody(cm commentData) string {
	if cm.Body != "" {
		return cm.Body
	}
	if cm.BodyHTML != "" {
		return htmlToText(cm.BodyHTML)
	}
	return ""
}

func authorOrDeleted(author string) string {
	if author == "" {
		return "[deleted]"
	}
	return author
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// getJSON performs an authenticated GET against the data API and decodes the
// response into v. Expired or revoked tokens surface as AuthError.
func (c *Client) getJSON(ctx context.Context, s *Session, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return &AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

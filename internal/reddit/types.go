package reddit

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuthError means the platform rejected the supplied credentials or token.
// Its message is deliberately generic: submitted secrets never appear in it.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return "authentication failed"
}

// FetchError wraps a failure of one data-retrieval operation. Op names the
// operation ("posts", "comments", "saved") so callers can report exactly what
// is missing.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Session is an authenticated API session. The bearer token replaces the
// password for all subsequent calls.
type Session struct {
	Username string
	token    string
	expires  time.Time
}

// Account is the authenticated user's overview from /api/v1/me.
type Account struct {
	Username     string
	Created      time.Time
	LinkKarma    int
	CommentKarma int
	IsGold       bool
	IsMod        bool
}

// TotalKarma is the sum of link and comment karma.
func (a Account) TotalKarma() int {
	return a.LinkKarma + a.CommentKarma
}

// --- wire shapes ---

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   float64 `json:"expires_in"`
	Error       string  `json:"error"`
}

type meResponse struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
	IsGold       bool    `json:"is_gold"`
	IsMod        bool    `json:"is_mod"`
}

// thing is reddit's polymorphic envelope: kind discriminates the payload.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

const (
	kindComment = "t1"
	kindPost    = "t3"
	kindListing = "Listing"
)

type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
}

type postData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title"`
	Subreddit    string  `json:"subreddit"`
	Author       string  `json:"author"`
	SelfText     string  `json:"selftext"`
	SelfTextHTML string  `json:"selftext_html"`
	URL          string  `json:"url"`
	Permalink    string  `json:"permalink"`
	Score        int     `json:"score"`
	NumComments  int     `json:"num_comments"`
	CreatedUTC   float64 `json:"created_utc"`
	IsSelf       bool    `json:"is_self"`
}

type commentData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	BodyHTML   string  `json:"body_html"`
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	LinkTitle  string  `json:"link_title"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	// Replies is "" for leaves or a Listing thing for branches, so it has
	// to stay raw until traversal.
	Replies json.RawMessage `json:"replies"`
}

func fromUnix(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

package archive

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an item id is not in the index.
var ErrNotFound = errors.New("item not found")

// Kind classifies where a content item came from.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindSaved   Kind = "saved"
)

// Reply is one flattened comment from a saved post's thread. Depth is the
// nesting level below the post (top-level replies have depth 1).
type Reply struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
	Depth  int    `json:"depth"`
}

// Item is one normalized piece of fetched content. Items are immutable once
// stored; the index holds them until the process exits.
type Item struct {
	ID          string
	Kind        Kind
	Subreddit   string
	Title       string
	Body        string
	Author      string
	Score       int
	NumComments int
	CreatedAt   time.Time
	// ParentTitle is the submission title a comment belongs to.
	ParentTitle string
	URL         string
	// Replies is the bounded, insertion-ordered comment thread under a
	// saved post. Nil for posts and comments.
	Replies []Reply
}

// SubredditCount is one entry of the activity tally.
type SubredditCount struct {
	Subreddit string `json:"subreddit"`
	Count     int    `json:"count"`
}

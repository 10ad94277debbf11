// Package archive aggregates fetched content into one in-memory index that is
// addressable by id and searchable by substring, community, and kind.
//
// The index is backed by an in-memory SQLite database. Nothing is ever
// written to disk; the database vanishes with the process.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE items (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	subreddit    TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	author       TEXT NOT NULL DEFAULT '',
	score        INTEGER NOT NULL DEFAULT 0,
	num_comments INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	parent_title TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	replies      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX idx_items_kind ON items(kind);
CREATE INDEX idx_items_subreddit ON items(subreddit);
`

// Index is the single-writer aggregation store. The whole program runs one
// logical task at a time, so no locking is needed.
type Index struct {
	db     *sql.DB
	failed []string
}

// Open creates a fresh in-memory index.
func Open() (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	// A second connection would see a different empty :memory: database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Put stores items, replacing any existing item with the same id.
func (ix *Index) Put(items []Item) error {
	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning put: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO items
			(id, kind, subreddit, title, body, author, score, num_comments, created_at, parent_title, url, replies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing put: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		replies := "[]"
		if len(it.Replies) > 0 {
			b, err := json.Marshal(it.Replies)
			if err != nil {
				return fmt.Errorf("marshalling replies for %s: %w", it.ID, err)
			}
			replies = string(b)
		}
		if _, err := stmt.Exec(
			it.ID, string(it.Kind), it.Subreddit, it.Title, it.Body, it.Author,
			it.Score, it.NumComments, it.CreatedAt.UTC().Format(time.RFC3339),
			it.ParentTitle, it.URL, replies,
		); err != nil {
			return fmt.Errorf("storing item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns the item with the given id, or ErrNotFound.
func (ix *Index) Get(id string) (Item, error) {
	row := ix.db.QueryRow(selectCols+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	return it, err
}

// Filter narrows a search. Zero values mean "no constraint". Query is a
// case-insensitive substring matched against title, body, parent title, and
// reply bodies.
type Filter struct {
	Query     string
	Subreddit string
	Kind      Kind
	Limit     int
}

// Search returns matching items in recency order (newest first).
func (ix *Index) Search(f Filter) ([]Item, error) {
	q := selectCols + " FROM items WHERE 1=1"
	var args []any

	if f.Query != "" {
		q += ` AND (instr(lower(title), lower(?)) > 0
			OR instr(lower(body), lower(?)) > 0
			OR instr(lower(parent_title), lower(?)) > 0
			OR instr(lower(replies), lower(?)) > 0)`
		args = append(args, f.Query, f.Query, f.Query, f.Query)
	}
	if f.Subreddit != "" {
		q += " AND lower(subreddit) = lower(?)"
		args = append(args, f.Subreddit)
	}
	if f.Kind != "" {
		q += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	q += " ORDER BY created_at DESC, id ASC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return ix.queryItems(q, args...)
}

// Recent returns the newest items across all kinds.
func (ix *Index) Recent(limit int) ([]Item, error) {
	return ix.Search(Filter{Limit: limit})
}

// Count returns the number of stored items, optionally restricted to a kind.
func (ix *Index) Count(kind Kind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = ix.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n)
	} else {
		err = ix.db.QueryRow("SELECT COUNT(*) FROM items WHERE kind = ?", string(kind)).Scan(&n)
	}
	return n, err
}

// TopSubreddits tallies activity per community across posts and comments,
// most active first. Ties break alphabetically so the order is stable.
func (ix *Index) TopSubreddits(n int) ([]SubredditCount, error) {
	rows, err := ix.db.Query(`
		SELECT subreddit, COUNT(*) AS c FROM items
		WHERE kind IN (?, ?)
		GROUP BY subreddit
		ORDER BY c DESC, subreddit ASC
		LIMIT ?`, string(KindPost), string(KindComment), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubredditCount
	for rows.Next() {
		var sc SubredditCount
		if err := rows.Scan(&sc.Subreddit, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// MarkFailed records a fetch operation that did not complete, so questions
// can be answered against partial data without silently hiding the gap.
func (ix *Index) MarkFailed(op string, err error) {
	ix.failed = append(ix.failed, fmt.Sprintf("%s (%v)", op, err))
}

// Missing lists the operations recorded by MarkFailed.
func (ix *Index) Missing() []string {
	return append([]string(nil), ix.failed...)
}

// ClearFailed resets the failure record, used when data is reloaded.
func (ix *Index) ClearFailed() {
	ix.failed = nil
}

const selectCols = "SELECT id, kind, subreddit, title, body, author, score, num_comments, created_at, parent_title, url, replies"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var it Item
	var kind, createdAt, replies string
	err := row.Scan(&it.ID, &kind, &it.Subreddit, &it.Title, &it.Body, &it.Author,
		&it.Score, &it.NumComments, &createdAt, &it.ParentTitle, &it.URL, &replies)
	if err != nil {
		return Item{}, err
	}
	it.Kind = Kind(kind)
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Item{}, fmt.Errorf("parsing created_at for %s: %w", it.ID, err)
	}
	it.CreatedAt = t
	if replies != "" && replies != "[]" {
		if err := json.Unmarshal([]byte(replies), &it.Replies); err != nil {
			return Item{}, fmt.Errorf("parsing replies for %s: %w", it.ID, err)
		}
	}
	return it, nil
}

func (ix *Index) queryItems(q string, args ...any) ([]Item, error) {
	rows, err := ix.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

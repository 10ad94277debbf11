package session

import (
	"sort"
	"strings"

	"github.com/kalambet/redsight/internal/archive"
)

// stopwords are question words that carry no content and would match nothing
// useful as search keywords.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {},
	"did": {}, "does": {}, "do": {}, "have": {}, "has": {}, "had": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"you": {}, "your": {}, "my": {}, "me": {}, "our": {}, "their": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"about": {}, "into": {}, "over": {}, "can": {}, "could": {}, "would": {},
	"should": {}, "will": {}, "not": {}, "all": {}, "any": {}, "some": {},
	"tell": {}, "show": {}, "give": {}, "list": {}, "most": {}, "more": {},
}

// Keywords extracts the content-bearing words of a question: lowercased,
// punctuation stripped, stopwords and short words dropped, order preserved,
// duplicates removed.
func Keywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	seen := make(map[string]struct{})
	var out []string
	for _, w := range fields {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Narrow selects the content items relevant to a question before it is sent
// to the model: each keyword is matched as a substring over the index, and
// the union is returned in recency order. A keyword's trailing "s" is also
// tried without, so plural questions still hit singular text. When nothing
// matches, the most recent items are returned so the model sees some data.
func Narrow(ix *archive.Index, question string, limit int) ([]archive.Item, error) {
	if limit <= 0 {
		limit = 25
	}

	seen := make(map[string]struct{})
	var matched []archive.Item
	for _, kw := range Keywords(question) {
		candidates := []string{kw}
		if strings.HasSuffix(kw, "s") && len(kw) > 3 {
			candidates = append(candidates, strings.TrimSuffix(kw, "s"))
		}
		for _, cand := range candidates {
			items, err := ix.Search(archive.Filter{Query: cand, Limit: limit})
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				if _, dup := seen[it.ID]; dup {
					continue
				}
				seen[it.ID] = struct{}{}
				matched = append(matched, it)
			}
		}
	}

	if len(matched) == 0 {
		return ix.Recent(limit)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

package reddit

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText extracts readable text from an HTML body, used when the API only
// provides the rendered form of a post or comment.
func htmlToText(s string) string {
	tok := html.NewTokenizer(strings.NewReader(s))

	var sb strings.Builder
	skip := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return collapseSpace(sb.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "li", "blockquote":
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if n := string(name); n == "script" || n == "style" {
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(tok.Text())
			}
		}
	}
}

// collapseSpace trims lines and squeezes runs of blank lines and spaces.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

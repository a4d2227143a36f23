// Package highlight marks every case-insensitive occurrence of a literal
// query inside a piece of text.
package highlight

import (
	"regexp"
	"strings"
)

// Segment is a run of text that either matched the query or did not.
type Segment struct {
	Text  string
	Match bool
}

// Pattern compiles query into a case-insensitive matcher for the literal
// text. It returns nil for an empty query.
func Pattern(query string) *regexp.Regexp {
	if query == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
}

// Segments splits text around every match of query. Concatenating the Text
// of all segments gives back text unchanged.
func Segments(text, query string) []Segment {
	re := Pattern(query)
	if re == nil || text == "" {
		return []Segment{{Text: text}}
	}

	var out []Segment
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			out = append(out, Segment{Text: text[last:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Match: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	if len(out) == 0 {
		out = append(out, Segment{Text: text})
	}
	return out
}

// Render joins segments, passing matched runs through mark.
func Render(segs []Segment, mark func(string) string) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Match {
			b.WriteString(mark(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Mark wraps every match of query in text with open and close, keeping the
// original casing of the matched text.
func Mark(text, query, open, close string) string {
	return Render(Segments(text, query), func(s string) string {
		return open + s + close
	})
}

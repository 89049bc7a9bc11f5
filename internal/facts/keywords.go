package facts

import (
	"strings"
	"unicode/utf16"
)

var stopWords = map[string]struct{}{
	"what":  {},
	"when":  {},
	"where": {},
	"which": {},
	"this":  {},
	"that":  {},
	"with":  {},
	"from":  {},
}

// Keywords extracts the search terms from a user message: whitespace split,
// lower-cased, keeping tokens longer than three UTF-16 code units that are
// not stop words. Order and duplicates are preserved.
func Keywords(input string) []string {
	fields := strings.Fields(input)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if utf16Len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps a keyword for a LIKE/ILIKE containment match with the
// wildcard characters escaped.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

package generation

import (
	"regexp"
	"strings"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// Normalize is the lenient stage: it turns whatever the oracle returned into
// text that should be a bare JSON array.  It never fails; Parse decides
// whether the result is acceptable.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\u00a0", " ")
	s = strings.TrimSpace(s)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// Prose or a stray fence on either side: keep the outermost array.
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

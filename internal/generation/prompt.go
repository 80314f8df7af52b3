package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSourceRunes caps how much document text is embedded in a prompt.
const maxSourceRunes = 20000

// Request describes one quiz to generate.
type Request struct {
	Topic      string
	Difficulty string
	Count      int
	// Source is optional reference text (e.g. extracted from an uploaded
	// document) the questions must be based on.
	Source string
}

// BuildPrompt renders the instruction sent to the oracle.
func BuildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d quiz questions about %q with difficulty %q.\n", req.Count, req.Topic, req.Difficulty)
	b.WriteString("Each question must use exactly this JSON shape:\n")
	b.WriteString(`{
  "question": "Question text",
  "options": ["Option 1", "Option 2", "Option 3", "Option 4"],
  "correct_option": 0,
  "point": 2,
  "explanation": "Detailed explanation of the correct answer"
}`)
	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "- Return exactly %d questions.\n", req.Count)
	b.WriteString("- Every question has exactly 4 non-empty options.\n")
	b.WriteString("- correct_option is the zero-based index (0 to 3) of the right option.\n")
	b.WriteString("- point is a positive integer.\n")
	b.WriteString("- The explanation is clear and educational.\n")
	b.WriteString("- The output is a single JSON array containing every question object and nothing else.\n")

	if src := strings.TrimSpace(req.Source); src != "" {
		if utf8.RuneCountInString(src) > maxSourceRunes {
			src = string([]rune(src)[:maxSourceRunes])
		}
		b.WriteString("\nBase every question strictly on the following document:\n<<<\n")
		b.WriteString(src)
		b.WriteString("\n>>>\n")
	}
	return b.String()
}

package servicetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Oracle is a scripted generation.TextGenerator.  When Text is empty it
// answers with QuizJSON for the count found in the prompt.
type Oracle struct {
	mu      sync.Mutex
	Text    string
	Err     error
	Prompts []string
}

func (o *Oracle) Complete(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Prompts = append(o.Prompts, prompt)
	if o.Err != nil {
		return "", o.Err
	}
	if o.Text != "" {
		return o.Text, nil
	}
	var n int
	if _, err := fmt.Sscanf(prompt, "Generate %d quiz questions", &n); err != nil || n <= 0 {
		n = 1
	}
	return "```json\n" + QuizJSON(n) + "\n```", nil
}

// Calls reports how many prompts the oracle received.
func (o *Oracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Prompts)
}

// QuizJSON returns a well-formed oracle payload with n questions.
func QuizJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"question":"Question %d?","options":["A%d","B%d","C%d","D%d"],"correct_option":%d,"point":%d,"explanation":"Explanation %d."}`,
			i+1, i, i, i, i, i%4, 1+i%3, i+1)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/quizgen/internal/model"
)

// RawElement mirrors one oracle object.  Pointers tell a missing number
// apart from zero.
type RawElement struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option"`
	Point         *int     `json:"point"`
	Explanation   string   `json:"explanation"`
}

// Parse decodes cleaned oracle text into raw elements.  Anything other than
// a JSON array of objects is rejected as a whole.
func Parse(cleaned string) ([]RawElement, error) {
	dec := json.NewDecoder(strings.NewReader(cleaned))
	var elems []RawElement
	if err := dec.Decode(&elems); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json array: trailing data after array")
	}
	if elems == nil {
		return nil, fmt.Errorf("decode json array: payload is null")
	}
	return elems, nil
}

// Validate applies the schema to every element and converts them into quiz
// elements.  The first violation fails the whole batch.
func Validate(elems []RawElement) ([]model.QuizElement, error) {
	if len(elems) == 0 {
		return nil, &ValidationError{Index: -1, Field: "elements", Reason: "empty array"}
	}
	out := make([]model.QuizElement, 0, len(elems))
	for i, e := range elems {
		question := strings.TrimSpace(e.Question)
		if question == "" {
			return nil, &ValidationError{Index: i, Field: "question", Reason: "empty"}
		}
		explanation := strings.TrimSpace(e.Explanation)
		if explanation == "" {
			return nil, &ValidationError{Index: i, Field: "explanation", Reason: "empty"}
		}
		if len(e.Options) != model.OptionCount {
			return nil, &ValidationError{Index: i, Field: "options", Reason: fmt.Sprintf("got %d options, want %d", len(e.Options), model.OptionCount)}
		}
		options := make([]string, len(e.Options))
		for j, opt := range e.Options {
			options[j] = strings.TrimSpace(opt)
			if options[j] == "" {
				return nil, &ValidationError{Index: i, Field: "options", Reason: fmt.Sprintf("option %d is empty", j)}
			}
		}
		if e.CorrectOption == nil {
			return nil, &ValidationError{Index: i, Field: "correct_option", Reason: "missing"}
		}
		if *e.CorrectOption < 0 || *e.CorrectOption >= model.OptionCount {
			return nil, &ValidationError{Index: i, Field: "correct_option", Reason: fmt.Sprintf("%d out of range", *e.CorrectOption)}
		}
		if e.Point == nil {
			return nil, &ValidationError{Index: i, Field: "point", Reason: "missing"}
		}
		if *e.Point <= 0 {
			return nil, &ValidationError{Index: i, Field: "point", Reason: fmt.Sprintf("%d is not positive", *e.Point)}
		}
		out = append(out, model.QuizElement{
			Position:      i,
			Question:      question,
			Options:       options,
			CorrectOption: *e.CorrectOption,
			Point:         *e.Point,
			Explanation:   explanation,
		})
	}
	return out, nil
}

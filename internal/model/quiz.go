package model

import (
	"encoding/json"
	"time"
)

// OptionCount is the number of answer options every quiz element carries.
const OptionCount = 4

// Quiz is a generated quiz owned by a user.  Title holds the requested
// topic.  Result is the only field that changes after creation.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the quiz.
//  Title     – requested topic.
//  Result    – free-form outcome set after the quiz was taken (nullable).
//  CreatedAt – creation timestamp.
//  Elements  – questions in display order (not always loaded).
type Quiz struct {
	ID        uint64        // quizzes.id
	UserID    uint64        // quizzes.user_id
	Title     string        // quizzes.title
	Result    *string       // quizzes.result (nullable)
	CreatedAt time.Time     // quizzes.created_at
	Elements  []QuizElement // quiz_elements rows ordered by position
}

// QuizSummary is the history view of a quiz without its elements.
type QuizSummary struct {
	ID            uint64
	Title         string
	Result        *string
	CreatedAt     time.Time
	QuestionCount int
}

// QuizElement is a single multiple-choice question.  Rows are immutable
// and are deleted together with their quiz.
//
// Fields:
//  ID            – primary key identifier.
//  QuizID        – parent quiz.
//  Position      – zero-based order within the quiz.
//  Question      – question text.
//  Options       – exactly OptionCount answer options.
//  CorrectOption – zero-based index into Options.
//  Point         – positive point value.
//  Explanation   – why the correct option is correct.
type QuizElement struct {
	ID            uint64   // quiz_elements.id
	QuizID        uint64   // quiz_elements.quiz_id
	Position      int      // quiz_elements.position
	Question      string   // quiz_elements.question
	Options       []string // quiz_elements.options (JSON array)
	CorrectOption int      // quiz_elements.correct_option
	Point         int      // quiz_elements.point
	Explanation   string   // quiz_elements.explanation
}

// EncodeOptions serializes the options list for the `options` column.
func (e QuizElement) EncodeOptions() (string, error) {
	b, err := json.Marshal(e.Options)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOptions parses the `options` column back into a list.
func DecodeOptions(raw string) ([]string, error) {
	var opts []string
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

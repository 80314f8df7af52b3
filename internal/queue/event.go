// Package queue carries quiz events over RabbitMQ: a publisher used after a
// quiz is committed and a consumer that writes one log line per event.
package queue

import "time"

// QuizGeneratedQueue is the durable queue quiz events are routed to.
const QuizGeneratedQueue = "quiz.generated"

// QuizGeneratedEvent is published after a quiz and its quota charge were
// committed.  Consumers get enough to log or run analytics without reading
// the primary database.
type QuizGeneratedEvent struct {
	EventID       string    `json:"event_id"`
	QuizID        uint64    `json:"quiz_id"`
	UserID        uint64    `json:"user_id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"question_count"`
	Remaining     int       `json:"remaining"`
	OccurredAt    time.Time `json:"occurred_at"`
}

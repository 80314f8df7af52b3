package handler

import (
	"time"

	"github.com/iliyamo/quizgen/internal/model"
	"github.com/iliyamo/quizgen/internal/service"
)

// ----- requests -----

type signUpReq struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
	Password string  `json:"password"`
}

type tokenReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type generateReq struct {
	Topic             string `json:"topic"`
	Difficulty        string `json:"difficulty"`
	NumberOfQuestions int    `json:"number_of_questions"`
}

type resultReq struct {
	Result string `json:"result"`
}

// ----- responses -----

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type summaryResp struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Result        *string   `json:"result"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionCount int       `json:"question_count"`
}

type elementResp struct {
	Position      int      `json:"position"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Point         int      `json:"point"`
	Explanation   string   `json:"explanation"`
}

type quizResp struct {
	ID        uint64        `json:"id"`
	Title     string        `json:"title"`
	Result    *string       `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	Elements  []elementResp `json:"elements"`
}

type generatedResp struct {
	quizResp
	Quota service.QuotaView `json:"quota"`
}

type sessionResp struct {
	User          userResp          `json:"user"`
	Quota         service.QuotaView `json:"quota"`
	Quizzes       []summaryResp     `json:"quizzes"`
	AccessToken   string            `json:"access_token"`
	AccessExpires time.Time         `json:"access_expires_at"`
}

type accessResp struct {
	AccessToken   string    `json:"access_token"`
	AccessExpires time.Time `json:"access_expires_at"`
}

func toUser(u model.User) userResp {
	return userResp{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toSummaries(list []model.QuizSummary) []summaryResp {
	out := make([]summaryResp, 0, len(list))
	for _, q := range list {
		out = append(out, summaryResp{
			ID:            q.ID,
			Title:         q.Title,
			Result:        q.Result,
			CreatedAt:     q.CreatedAt,
			QuestionCount: q.QuestionCount,
		})
	}
	return out
}

func toQuiz(q model.Quiz) quizResp {
	elems := make([]elementResp, 0, len(q.Elements))
	for _, e := range q.Elements {
		elems = append(elems, elementResp{
			Position:      e.Position,
			Question:      e.Question,
			Options:       e.Options,
			CorrectOption: e.CorrectOption,
			Point:         e.Point,
			Explanation:   e.Explanation,
		})
	}
	return quizResp{ID: q.ID, Title: q.Title, Result: q.Result, CreatedAt: q.CreatedAt, Elements: elems}
}

func toSession(s service.Session) sessionResp {
	return sessionResp{
		User:          toUser(s.User),
		Quota:         s.Quota,
		Quizzes:       toSummaries(s.Quizzes),
		AccessToken:   s.Tokens.Access.Value,
		AccessExpires: s.Tokens.Access.ExpiresAt,
	}
}

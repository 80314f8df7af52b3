package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/middleware"
	"github.com/iliyamo/quizgen/internal/pdf"
	"github.com/iliyamo/quizgen/internal/service"
)

// QuizHandler serves generation, history, results and export.
type QuizHandler struct {
	Svc              *service.Service
	MaxDocumentBytes int64
	Log              *slog.Logger
}

func NewQuizHandler(svc *service.Service, maxDocumentBytes int64, log *slog.Logger) *QuizHandler {
	if maxDocumentBytes <= 0 {
		maxDocumentBytes = pdf.DefaultMaxBytes
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &QuizHandler{Svc: svc, MaxDocumentBytes: maxDocumentBytes, Log: log}
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// Generate: POST /api/generate-quiz
func (h *QuizHandler) Generate(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.generate(c, claims, service.GenerateInput{
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Count:      req.NumberOfQuestions,
	})
}

// GenerateFromDocument: POST /api/generate-quiz/document (multipart).
// The topic falls back to the file name.
func (h *QuizHandler) GenerateFromDocument(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fh.Size > h.MaxDocumentBytes {
		return respondError(c, h.Log, pdf.ErrTooLarge)
	}
	count, err := strconv.Atoi(strings.TrimSpace(c.FormValue("number_of_questions")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "number_of_questions must be a number"})
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, h.Log, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()
	text, err := pdf.ExtractText(f, h.MaxDocumentBytes)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	topic := strings.TrimSpace(c.FormValue("topic"))
	if topic == "" {
		topic = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}
	return h.generate(c, claims, service.GenerateInput{
		Topic:      topic,
		Difficulty: c.FormValue("difficulty"),
		Count:      count,
		Source:     text,
	})
}

func (h *QuizHandler) generate(c echo.Context, claims auth.Claims, in service.GenerateInput) error {
	out, err := h.Svc.Generate(c.Request().Context(), claims, in)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, generatedResp{quizResp: toQuiz(out.Quiz), Quota: out.Quota})
}

// History: GET /api/quizzes-history
func (h *QuizHandler) History(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Svc.History(c.Request().Context(), claims)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toSummaries(list))
}

// Get: GET /api/quizzes/:id
func (h *QuizHandler) Get(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	quiz, err := h.Svc.Quiz(c.Request().Context(), claims, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toQuiz(quiz))
}

// UpdateResult: PATCH /api/quizzes-result/:id.  Claims are optional here;
// the service decides whether the caller must own the quiz.
func (h *QuizHandler) UpdateResult(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resultReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var actor *auth.Claims
	if claims, ok := middleware.ClaimsFrom(c); ok {
		actor = &claims
	}
	quiz, err := h.Svc.UpdateResult(c.Request().Context(), id, req.Result, actor)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "result updated", "quiz": toQuiz(quiz)})
}

// Export: GET /api/quizzes/:id/export renders the quiz with an answer key.
func (h *QuizHandler) Export(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	quiz, err := h.Svc.Quiz(c.Request().Context(), claims, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	doc, err := pdf.RenderQuiz(quiz)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="quiz-%d.pdf"`, quiz.ID))
	return c.Blob(http.StatusOK, "application/pdf", doc)
}

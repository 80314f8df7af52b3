package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/quizgen/internal/model"
)

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 60 * time.Second

// rawLogLimit caps how much of a rejected payload ends up in the logs.
const rawLogLimit = 2048

// TextGenerator is the external oracle: a prompt goes in, free-form text
// comes out.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline runs prompt construction, the oracle call and both ingestion
// stages.  It does not persist anything.
type Pipeline struct {
	gen     TextGenerator
	timeout time.Duration
	log     *slog.Logger
}

// NewPipeline returns a Pipeline.  A non-positive timeout uses
// DefaultTimeout; a nil logger discards output.
func NewPipeline(gen TextGenerator, timeout time.Duration, log *slog.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{gen: gen, timeout: timeout, log: log}
}

// Generate asks the oracle for req.Count questions and returns them only if
// every element is valid.  Errors are always *Error.
//
// The oracle call is detached from ctx cancellation: once started it runs
// until it answers or the pipeline timeout expires.
func (p *Pipeline) Generate(ctx context.Context, req Request) ([]model.QuizElement, error) {
	prompt := BuildPrompt(req)

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	started := time.Now()
	text, err := p.gen.Complete(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.log.Warn("oracle timed out", "timeout", p.timeout, "topic", req.Topic)
		}
		return nil, upstream(err)
	}
	p.log.Debug("oracle answered", "topic", req.Topic, "took", time.Since(started), "bytes", len(text))

	cleaned := Normalize(text)
	raw, err := Parse(cleaned)
	if err != nil {
		p.log.Warn("oracle payload rejected", "stage", "parse", "err", err, "raw", truncate(cleaned, rawLogLimit))
		return nil, malformed(cleaned, err)
	}
	elems, err := Validate(raw)
	if err != nil {
		p.log.Warn("oracle payload rejected", "stage", "validate", "err", err, "raw", truncate(cleaned, rawLogLimit))
		return nil, malformed(cleaned, err)
	}
	if len(elems) != req.Count {
		p.log.Info("oracle returned a different question count", "requested", req.Count, "got", len(elems))
	}
	return elems, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

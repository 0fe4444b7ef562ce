// Package summary reduces a session transcript to a short summary, asking a
// remote summarizer first and falling back to a deterministic extractive
// summary when the remote path fails for any reason.
package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/resilience"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Source reports which path produced a Result.
type Source string

const (
	SourceRemote       Source = "remote"
	SourceFallback     Source = "fallback"
	SourceInsufficient Source = "insufficient"
)

// Result is a delivered summary. Text is never empty.
type Result struct {
	Text      string
	Source    Source
	Sentences int
	Words     int
}

// Remote is a summarization service.
type Remote interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Generator produces summaries. It is safe for concurrent use.
type Generator struct {
	remote   Remote
	breaker  *resilience.Breaker
	minChars int
}

// Option configures a Generator.
type Option func(*Generator)

// WithBreaker guards remote calls with b.
func WithBreaker(b *resilience.Breaker) Option {
	return func(g *Generator) { g.breaker = b }
}

// WithMinChars sets the minimum trimmed transcript length.
func WithMinChars(n int) Option {
	return func(g *Generator) { g.minChars = n }
}

// NewGenerator creates a generator. A nil remote always uses the fallback.
func NewGenerator(remote Remote, opts ...Option) *Generator {
	g := &Generator{remote: remote, minChars: DefaultMinChars}
	for _, o := range opts {
		o(g)
	}
	if g.breaker == nil {
		cfg := resilience.DefaultConfig()
		cfg.Name = "summarizer"
		g.breaker = resilience.New(cfg)
	}
	return g
}

// Summarize summarizes text. Short input yields a fixed message without any
// network call; remote failures are absorbed by the fallback.
func (g *Generator) Summarize(ctx context.Context, text string) Result {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < g.minChars {
		return Result{
			Text:   fmt.Sprintf("Not enough content to summarize. Need at least %d characters.", g.minChars),
			Source: SourceInsufficient,
		}
	}

	ctx, span := trace.StartSpan(ctx, "summarize")
	defer span.End()
	span.SetAttr("chars", len(trimmed))

	log := trace.Logger(ctx)
	words := len(strings.Fields(trimmed))

	summary, err := g.remoteSummary(ctx, trimmed)
	if err == nil {
		span.SetAttr("source", string(SourceRemote))
		return Result{
			Text:   fmt.Sprintf("AI Summary:\n\n%s\n\nWords captured: %d", summary, words),
			Source: SourceRemote,
			Words:  words,
		}
	}

	log.Info("remote summary unavailable, using fallback", "error", err)
	span.SetAttr("source", string(SourceFallback))
	res := Fallback(trimmed)
	res.Words = words
	return res
}

func (g *Generator) remoteSummary(ctx context.Context, text string) (string, error) {
	if g.remote == nil {
		return "", errors.New(errors.ConfigInvalid, "no summarizer configured")
	}
	summary, err := resilience.Do(ctx, g.breaker, func(ctx context.Context) (string, error) {
		return g.remote.Summarize(ctx, text)
	})
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New(errors.Remote, "empty summary_text")
	}
	return summary, nil
}

// Fallback builds an extractive summary: up to five evenly spaced sentences
// of at least MinSentenceChars characters, in transcript order.
func Fallback(text string) Result {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return Result{Text: "Not enough content to summarize.", Source: SourceFallback}
	}

	count := len(sentences)
	n := min(MaxSentences, count)
	step := count / n
	picked := make([]string, 0, n)
	for i := 0; i < n; i++ {
		picked = append(picked, sentences[min(i*step, count-1)])
	}

	excerpt := strings.Join(picked, ". ") + "."
	return Result{
		Text:      fmt.Sprintf("Summary:\n\n%s\n\nTotal: %d sentences captured.", excerpt, count),
		Source:    SourceFallback,
		Sentences: count,
	}
}

// Sentences splits text on runs of sentence terminators and keeps trimmed
// fragments of at least MinSentenceChars characters.
func Sentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if utf8.RuneCountInString(f) >= MinSentenceChars {
			out = append(out, f)
		}
	}
	return out
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/storesage/storesage/internal/prompt"
)

var errEmptyCompletion = errors.New("llm: completion returned no choices")

// StaticGenerator answers without an upstream model. It is used when the
// chat model is disabled in config, and in tests. The reply echoes enough
// of the prompt to keep the rest of the pipeline exercised.
type StaticGenerator struct {
	mu      sync.Mutex
	calls   int
	replies []string
	err     error
}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// WithReplies makes the generator return the given replies in order,
// falling back to the echo behavior once exhausted.
func (g *StaticGenerator) WithReplies(replies ...string) *StaticGenerator {
	g.replies = replies
	return g
}

// WithError makes every Generate call fail.
func (g *StaticGenerator) WithError(err error) *StaticGenerator {
	g.err = err
	return g
}

func (g *StaticGenerator) Model() string {
	return "static"
}

// Calls reports how many times Generate ran.
func (g *StaticGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *StaticGenerator) Generate(ctx context.Context, p prompt.Prompt) (Reply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	if g.err != nil {
		return Reply{Content: FallbackResponse, Fallback: true}, nil
	}
	if len(g.replies) > 0 {
		reply := g.replies[0]
		g.replies = g.replies[1:]
		return Reply{Content: reply, Model: g.Model()}, nil
	}

	content := fmt.Sprintf("Thanks for asking! %s", summarizeContext(p.System))
	return Reply{Content: content, Model: g.Model()}, nil
}

// summarizeContext repeats the first context line so static answers still
// mention retrieved products and stores by name.
func summarizeContext(system string) string {
	for _, line := range strings.Split(system, "\n") {
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			return rest
		}
	}
	return "How can I help you with products, stores or promotions today?"
}

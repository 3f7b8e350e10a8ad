package llm

import (
	"context"

	"github.com/storesage/storesage/internal/prompt"
)

// FallbackResponse is returned when every generation attempt fails. A turn
// answered with it must not feed the adaptive profile update.
const FallbackResponse = "I'm sorry, I'm having trouble answering right now. " +
	"Please try again in a moment, or drop by your nearest store and our staff will be happy to help."

// Reply is one model response. Fallback marks replies that did not come
// from the model.
type Reply struct {
	Content  string
	Model    string
	Fallback bool
}

// Generator produces an assistant reply for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) (Reply, error)
	Model() string
}

package prompt

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/model"
	"github.com/storesage/storesage/internal/redaction"
	"github.com/storesage/storesage/internal/retrieval"
)

var (
	// ErrUnredactedRecord means a record reached the assembler without
	// passing through the redaction filter first.
	ErrUnredactedRecord = errors.New("prompt: record has not been redacted")

	// ErrSensitiveLeak means the final sweep found a sensitive pattern in
	// the assembled prompt. The turn must not reach the model.
	ErrSensitiveLeak = errors.New("prompt: sensitive data detected in assembled prompt")
)

const systemInstructions = `You are StoreSage, the shopping assistant for a Malaysian sportswear retailer.
Answer using only the context below. Be concise and friendly. Prices are in RM.
If the context does not cover the question, say so and suggest visiting a store.
Never invent stock numbers, prices or store details.`

// Input is everything one turn contributes to the prompt. Records must be
// redacted and ordered best-first.
type Input struct {
	Query     string
	Intent    classifier.Intent
	Sentiment classifier.Sentiment
	Records   []retrieval.Record
	Profile   *retrieval.Record
	History   []model.ChatLog
}

// Prompt is the assembled conversation ready for the model client.
type Prompt struct {
	System      string
	History     []model.ChatLog
	UserMessage string
}

// Size is the total byte length of everything sent to the model.
func (p Prompt) Size() int {
	n := len(p.System) + len(p.UserMessage)
	for _, turn := range p.History {
		n += len(turn.Content)
	}
	return n
}

// Assembler composes the outbound prompt within a byte budget, dropping the
// lowest-ranked context first when over.
type Assembler struct {
	cfg    config.PromptConfig
	logger *zap.Logger
}

func NewAssembler(cfg config.PromptConfig, logger *zap.Logger) *Assembler {
	return &Assembler{cfg: cfg, logger: logger}
}

// Build assembles the prompt. It refuses unredacted records and refuses to
// emit a prompt that still matches a sensitive pattern.
func (a *Assembler) Build(in Input) (Prompt, error) {
	for _, rec := range in.Records {
		if !rec.Redacted {
			return Prompt{}, fmt.Errorf("%w: %s/%s", ErrUnredactedRecord, rec.Source, rec.ID)
		}
	}
	if in.Profile != nil && !in.Profile.Redacted {
		return Prompt{}, fmt.Errorf("%w: %s/%s", ErrUnredactedRecord, in.Profile.Source, in.Profile.ID)
	}

	records := in.Records
	history := in.History
	if a.cfg.HistoryWindow > 0 && len(history) > a.cfg.HistoryWindow {
		history = history[len(history)-a.cfg.HistoryWindow:]
	}

	p := a.compose(in, records, history)
	dropped := 0
	for a.cfg.MaxBytes > 0 && p.Size() > a.cfg.MaxBytes && len(records) > 0 {
		records = records[:len(records)-1]
		dropped++
		p = a.compose(in, records, history)
	}
	for a.cfg.MaxBytes > 0 && p.Size() > a.cfg.MaxBytes && len(history) > 0 {
		history = history[1:]
		dropped++
		p = a.compose(in, records, history)
	}
	if dropped > 0 {
		a.logger.Debug("trimmed prompt to budget",
			zap.Int("dropped", dropped),
			zap.Int("bytes", p.Size()))
	}

	if redaction.ContainsSensitive(p.System) {
		return Prompt{}, ErrSensitiveLeak
	}
	return p, nil
}

func (a *Assembler) compose(in Input, records []retrieval.Record, history []model.ChatLog) Prompt {
	var b strings.Builder
	b.WriteString(systemInstructions)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Detected intent: %s. Customer tone: %s.\n", in.Intent, in.Sentiment)
	switch in.Sentiment {
	case classifier.SentimentUrgent:
		b.WriteString("The customer is in a hurry; lead with the direct answer.\n")
	case classifier.SentimentFrustrated:
		b.WriteString("The customer sounds frustrated; acknowledge that before answering.\n")
	}

	if len(records) > 0 {
		b.WriteString("\nContext:\n")
		// Rank order decides what survives the budget; rendering groups by
		// source so each section header appears exactly once.
		for _, source := range sectionOrder {
			header := false
			for _, rec := range records {
				if rec.Source != source {
					continue
				}
				if !header {
					fmt.Fprintf(&b, "[%s]\n", sectionTitle(source))
					header = true
				}
				b.WriteString("- ")
				b.WriteString(rec.Text)
				b.WriteString("\n")
			}
		}
	}

	if in.Profile != nil {
		b.WriteString("\nCustomer profile:\n")
		b.WriteString(in.Profile.Text)
		b.WriteString("\n")
	}

	return Prompt{
		System:      b.String(),
		History:     history,
		UserMessage: in.Query,
	}
}

// sectionOrder fixes how context sections appear in the prompt.
var sectionOrder = []retrieval.Source{
	retrieval.SourceProduct,
	retrieval.SourceStore,
	retrieval.SourceInventory,
	retrieval.SourcePromotion,
	retrieval.SourceProfile,
}

func sectionTitle(source retrieval.Source) string {
	switch source {
	case retrieval.SourceProduct:
		return "Products"
	case retrieval.SourceStore:
		return "Stores"
	case retrieval.SourceInventory:
		return "Stock"
	case retrieval.SourcePromotion:
		return "Promotions"
	default:
		return string(source)
	}
}

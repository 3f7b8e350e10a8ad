// Package pipeline runs one assistant turn end to end: classify, retrieve,
// redact, assemble, generate, enrich, persist, learn.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesage/storesage/internal/adaptive"
	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/enrich"
	"github.com/storesage/storesage/internal/llm"
	"github.com/storesage/storesage/internal/memory"
	"github.com/storesage/storesage/internal/model"
	"github.com/storesage/storesage/internal/prompt"
	"github.com/storesage/storesage/internal/redaction"
	"github.com/storesage/storesage/internal/retrieval"
)

// ErrEmptyMessage rejects requests with nothing to answer.
var ErrEmptyMessage = errors.New("pipeline: message is empty")

// Request is one incoming customer message.
type Request struct {
	SessionID string               `json:"session_id"`
	UserID    string               `json:"user_id"`
	Message   string               `json:"message" binding:"required"`
	Location  *classifier.Location `json:"location,omitempty"`
}

// Response is one completed turn.
type Response struct {
	SessionID  string               `json:"session_id"`
	Reply      string               `json:"reply"`
	Intent     classifier.Intent    `json:"intent"`
	Sentiment  classifier.Sentiment `json:"sentiment"`
	Confidence float64              `json:"confidence"`
	Keywords   []string             `json:"keywords,omitempty"`
	Fallback   bool                 `json:"fallback"`
	Model      string               `json:"model,omitempty"`
	enrich.Enrichment
}

// Pipeline wires the turn stages together. All stages are injected so
// tests can swap the generator without touching the rest.
type Pipeline struct {
	classifier *classifier.Classifier
	engine     *retrieval.Engine
	redactor   *redaction.Redactor
	assembler  *prompt.Assembler
	generator  llm.Generator
	enricher   *enrich.Enricher
	updater    *adaptive.Updater
	history    *memory.Manager
	cfg        *config.Config
	logger     *zap.Logger
}

func New(
	cls *classifier.Classifier,
	engine *retrieval.Engine,
	redactor *redaction.Redactor,
	assembler *prompt.Assembler,
	generator llm.Generator,
	enricher *enrich.Enricher,
	updater *adaptive.Updater,
	history *memory.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		classifier: cls,
		engine:     engine,
		redactor:   redactor,
		assembler:  assembler,
		generator:  generator,
		enricher:   enricher,
		updater:    updater,
		history:    history,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process runs one turn. It only returns an error for broken requests or a
// cancelled context; degraded turns (model down, prompt rejected) resolve
// to a fallback reply instead.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	if req.Message == "" {
		return nil, ErrEmptyMessage
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := p.classifier.Classify(req.Message, req.Location)
	log := p.logger.With(
		zap.String("session_id", req.SessionID),
		zap.String("intent", string(result.Intent)),
		zap.String("sentiment", string(result.Sentiment)))

	rs, err := p.engine.Retrieve(ctx, retrieval.Query{
		Text:     req.Message,
		Intent:   result.Intent,
		Location: req.Location,
		UserID:   req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	log.Debug("context retrieved", zap.Any("counts", rs.Counts()))

	// Insights are taken before redaction strips the structured fields the
	// updater needs; they never leave the process.
	insights := adaptive.Extract(req.Message, rs)

	p.redactor.RedactSet(rs)

	history, err := p.history.History(ctx, req.SessionID, p.cfg.Prompt.HistoryWindow)
	if err != nil {
		log.Warn("history unavailable for this turn", zap.Error(err))
		history = nil
	}

	// Abandon the turn before the model call if the caller is already
	// gone; once a reply exists it must be persisted either way.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := p.generate(ctx, req, result, rs, history, log)

	// A caller disconnecting during generation must not lose a produced
	// reply, so everything after the model call runs detached.
	persistCtx := context.WithoutCancel(ctx)

	enrichment := p.enricher.Enrich(reply.Content, rs)

	if err := p.history.SaveTurn(persistCtx, req.SessionID, req.UserID,
		req.Message, reply.Content, string(result.Intent), string(result.Sentiment)); err != nil {
		log.Warn("failed to persist turn", zap.Error(err))
	}

	// A fallback reply reflects nothing the customer was actually told, so
	// it must not teach the profile anything.
	if !reply.Fallback && req.UserID != "" {
		if err := p.updater.Update(persistCtx, req.UserID, insights); err != nil {
			log.Warn("profile update failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
	}

	log.Info("turn completed",
		zap.Bool("fallback", reply.Fallback),
		zap.String("enrichment", enrichment.Summary()))

	return &Response{
		SessionID:  req.SessionID,
		Reply:      reply.Content,
		Intent:     result.Intent,
		Sentiment:  result.Sentiment,
		Confidence: result.Confidence,
		Keywords:   result.Keywords,
		Fallback:   reply.Fallback,
		Model:      reply.Model,
		Enrichment: enrichment,
	}, nil
}

// generate assembles the prompt and calls the model. Any assembly refusal
// is treated like a model outage: the canned fallback goes out and the
// reason stays in the logs.
func (p *Pipeline) generate(
	ctx context.Context,
	req Request,
	result classifier.Result,
	rs *retrieval.ResultSet,
	history []model.ChatLog,
	log *zap.Logger,
) llm.Reply {
	// The profile gets its own prompt section, so rank the catalog hits
	// without it.
	hits := retrieval.ResultSet{
		Products:   rs.Products,
		Stores:     rs.Stores,
		Inventory:  rs.Inventory,
		Promotions: rs.Promotions,
	}
	assembled, err := p.assembler.Build(prompt.Input{
		Query:     req.Message,
		Intent:    result.Intent,
		Sentiment: result.Sentiment,
		Records:   hits.Ranked(p.cfg.Retrieval.TopK),
		Profile:   rs.Profile,
		History:   history,
	})
	if err != nil {
		log.Error("prompt rejected", zap.Error(err))
		return llm.Reply{Content: llm.FallbackResponse, Fallback: true}
	}
	log.Debug("prompt assembled", zap.Int("bytes", assembled.Size()))

	reply, err := p.generator.Generate(ctx, assembled)
	if err != nil {
		log.Error("generation aborted", zap.Error(err))
		return llm.Reply{Content: llm.FallbackResponse, Fallback: true}
	}
	return reply
}

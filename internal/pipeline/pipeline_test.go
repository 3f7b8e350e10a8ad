package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/adaptive"
	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/database"
	"github.com/storesage/storesage/internal/embedding"
	"github.com/storesage/storesage/internal/enrich"
	"github.com/storesage/storesage/internal/llm"
	"github.com/storesage/storesage/internal/memory"
	"github.com/storesage/storesage/internal/model"
	"github.com/storesage/storesage/internal/prompt"
	"github.com/storesage/storesage/internal/redaction"
	"github.com/storesage/storesage/internal/retrieval"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Retrieval = config.RetrievalConfig{
		ProductTopK:   3,
		StoreTopK:     2,
		PromotionTopK: 3,
		TopK:          5,
		MinScore:      0.05,
		KeywordBoost:  0.5,
	}
	cfg.Prompt = config.PromptConfig{MaxBytes: 6144, HistoryWindow: 5}
	return cfg
}

func newTestPipeline(t *testing.T, generator llm.Generator) (*Pipeline, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedIfEmpty(db, zap.NewNop()))

	cfg := testConfig()
	logger := zap.NewNop()
	engine, err := retrieval.NewEngine(db, embedding.NewLocalProvider(64), cfg.Retrieval, logger)
	require.NoError(t, err)

	p := New(
		classifier.New(classifier.DefaultVocabulary()),
		engine,
		redaction.New(logger),
		prompt.NewAssembler(cfg.Prompt, logger),
		generator,
		enrich.New(logger),
		adaptive.NewUpdater(db, logger),
		memory.NewManager(db, nil, time.Hour, logger),
		cfg,
		logger,
	)
	return p, db
}

func TestProcessAvailabilityTurn(t *testing.T) {
	p, db := newTestPipeline(t, llm.NewStaticGenerator())

	resp, err := p.Process(context.Background(), Request{
		UserID:   "U1001",
		Message:  "Do you have the Air Zoom Pegasus 41 in size 10 near KLCC?",
		Location: &classifier.Location{Latitude: 3.157, Longitude: 101.712},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID, "session id generated when absent")
	assert.Equal(t, classifier.IntentProductAvailability, resp.Intent)
	assert.False(t, resp.Fallback)

	require.NotEmpty(t, resp.Products)
	assert.Equal(t, "P001", resp.Products[0].ID)
	assert.True(t, resp.ShowMap, "store hit with coordinates warrants a map")
	assert.True(t, resp.ShowCTA)
	assert.Contains(t, resp.LoyaltyNote, "15%", "Gold member sees their discount")

	var profile model.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", "U1001").Error)
	assert.Equal(t, 13, profile.ConversationCount, "seeded count of 12 plus this turn")

	var logs int64
	require.NoError(t, db.Model(&model.ChatLog{}).Where("session_id = ?", resp.SessionID).Count(&logs).Error)
	assert.EqualValues(t, 2, logs)
}

func TestProcessReplyNeverLeaksSensitiveDetail(t *testing.T) {
	// The static generator echoes retrieved context verbatim, so anything
	// sensitive surviving redaction would surface in the reply.
	p, _ := newTestPipeline(t, llm.NewStaticGenerator())

	resp, err := p.Process(context.Background(), Request{
		Message: "Where is your Flagship KLCC store and do you have the Pegasus?",
	})
	require.NoError(t, err)
	assert.False(t, redaction.ContainsSensitive(resp.Reply))
	assert.NotContains(t, resp.Reply, "SRC-")
	assert.NotContains(t, resp.Reply, "storesage.example.com")
}

func TestProcessShowsMapWithoutRequestLocation(t *testing.T) {
	p, _ := newTestPipeline(t, llm.NewStaticGenerator())

	resp, err := p.Process(context.Background(), Request{
		UserID:  "U1001",
		Message: "Do you have Pegasus size 10 at KLCC?",
	})
	require.NoError(t, err)

	assert.True(t, resp.ShowMap, "the matched store has coordinates even if the customer sent none")
}

func TestProcessFallbackSkipsProfileUpdate(t *testing.T) {
	p, db := newTestPipeline(t, llm.NewStaticGenerator().WithError(errors.New("model down")))

	resp, err := p.Process(context.Background(), Request{
		UserID:  "U1002",
		Message: "Do you have the Metcon 9 in size 9?",
	})
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, llm.FallbackResponse, resp.Reply)

	var profile model.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", "U1002").Error)
	assert.Equal(t, 3, profile.ConversationCount, "fallback turns teach the profile nothing")
}

// droppingGenerator simulates a caller that disconnects while the model is
// still answering: it cancels the request context, then returns a reply.
type droppingGenerator struct {
	cancel context.CancelFunc
	inner  llm.Generator
}

func (g *droppingGenerator) Generate(ctx context.Context, p prompt.Prompt) (llm.Reply, error) {
	g.cancel()
	return g.inner.Generate(context.Background(), p)
}

func (g *droppingGenerator) Model() string { return g.inner.Model() }

func TestProcessPersistsReplyAfterCallerDisconnects(t *testing.T) {
	gen := &droppingGenerator{inner: llm.NewStaticGenerator()}
	p, db := newTestPipeline(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen.cancel = cancel

	resp, err := p.Process(ctx, Request{
		UserID:  "U1002",
		Message: "Do you have the Metcon 9 in size 9?",
	})
	require.NoError(t, err, "a produced reply completes the turn")
	assert.False(t, resp.Fallback)

	var logs int64
	require.NoError(t, db.Model(&model.ChatLog{}).Where("session_id = ?", resp.SessionID).Count(&logs).Error)
	assert.EqualValues(t, 2, logs, "the turn is saved despite the disconnect")

	var profile model.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", "U1002").Error)
	assert.Equal(t, 4, profile.ConversationCount, "seeded count of 3 plus this turn")
}

func TestProcessAbortsBeforeGenerationWhenCancelled(t *testing.T) {
	p, db := newTestPipeline(t, llm.NewStaticGenerator())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, Request{
		SessionID: "sess-cancelled",
		UserID:    "U1002",
		Message:   "Do you have the Metcon 9?",
	})
	require.Error(t, err)

	var logs int64
	require.NoError(t, db.Model(&model.ChatLog{}).Where("session_id = ?", "sess-cancelled").Count(&logs).Error)
	assert.Zero(t, logs, "no reply was produced, so nothing is saved")
}

func TestProcessKeepsSessionHistoryAcrossTurns(t *testing.T) {
	p, db := newTestPipeline(t, llm.NewStaticGenerator())

	first, err := p.Process(context.Background(), Request{Message: "Recommend running shoes"})
	require.NoError(t, err)

	second, err := p.Process(context.Background(), Request{
		SessionID: first.SessionID,
		Message:   "Any promo on those?",
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	var logs int64
	require.NoError(t, db.Model(&model.ChatLog{}).Where("session_id = ?", first.SessionID).Count(&logs).Error)
	assert.EqualValues(t, 4, logs)
}

func TestProcessRejectsEmptyMessage(t *testing.T) {
	p, _ := newTestPipeline(t, llm.NewStaticGenerator())

	_, err := p.Process(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

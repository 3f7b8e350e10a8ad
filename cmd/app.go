package cmd

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/adaptive"
	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/database"
	"github.com/storesage/storesage/internal/embedding"
	"github.com/storesage/storesage/internal/enrich"
	"github.com/storesage/storesage/internal/llm"
	"github.com/storesage/storesage/internal/memory"
	"github.com/storesage/storesage/internal/pipeline"
	"github.com/storesage/storesage/internal/prompt"
	"github.com/storesage/storesage/internal/redaction"
	"github.com/storesage/storesage/internal/retrieval"
)

// app holds every wired component. Both the server and the one-shot query
// command run through the same construction path.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	cache   *redis.Client
	pipe    *pipeline.Pipeline
	history *memory.Manager
}

func buildApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := time.Duration(cfg.Redis.TTL) * time.Second

	embedder := buildEmbedder(cfg, cache, cacheTTL, logger)

	engine, err := retrieval.NewEngine(db, embedder, cfg.Retrieval, logger)
	if err != nil {
		return nil, err
	}

	var generator llm.Generator
	if cfg.LLM.Enabled {
		generator = llm.NewClient(cfg.LLM, logger)
	} else {
		logger.Warn("chat model disabled, using static replies")
		generator = llm.NewStaticGenerator()
	}

	history := memory.NewManager(db, cache, cacheTTL, logger)

	pipe := pipeline.New(
		classifier.New(classifier.DefaultVocabulary()),
		engine,
		redaction.New(logger),
		prompt.NewAssembler(cfg.Prompt, logger),
		generator,
		enrich.New(logger),
		adaptive.NewUpdater(db, logger),
		history,
		cfg,
		logger,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		cache:   cache,
		pipe:    pipe,
		history: history,
	}, nil
}

func buildEmbedder(cfg *config.Config, cache *redis.Client, ttl time.Duration, logger *zap.Logger) embedding.Provider {
	if cfg.Embedding.Provider == "openai" {
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		}, cache, ttl, logger)
	}
	return embedding.NewLocalProvider(cfg.Embedding.Dimension)
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/model"
)

const historyKeyPrefix = "chat:history:"

// Manager persists conversation history. SQLite is the source of truth; a
// Redis list per session serves reads when available. Redis being down
// never fails a turn.
type Manager struct {
	db     *gorm.DB
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager wires the history store. cache may be nil when Redis is
// disabled in config.
func NewManager(db *gorm.DB, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{db: db, cache: cache, ttl: ttl, logger: logger}
}

// SaveTurn records one completed exchange: the user message and the
// assistant reply, tagged with the turn's classification.
func (m *Manager) SaveTurn(ctx context.Context, sessionID, userID, userMessage, assistantReply, intent, sentiment string) error {
	logs := []model.ChatLog{
		{
			SessionID: sessionID,
			UserID:    userID,
			ChatType:  model.ChatTypeUser,
			Content:   userMessage,
			Intent:    intent,
			Sentiment: sentiment,
		},
		{
			SessionID: sessionID,
			UserID:    userID,
			ChatType:  model.ChatTypeAssistant,
			Content:   assistantReply,
			Intent:    intent,
			Sentiment: sentiment,
		},
	}
	if err := m.db.WithContext(ctx).Create(&logs).Error; err != nil {
		return fmt.Errorf("failed to save chat turn: %w", err)
	}

	if m.cache != nil {
		m.appendCache(ctx, sessionID, logs)
	}
	return nil
}

func (m *Manager) appendCache(ctx context.Context, sessionID string, logs []model.ChatLog) {
	key := historyKeyPrefix + sessionID
	pipe := m.cache.Pipeline()
	for _, entry := range logs {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		m.logger.Warn("failed to cache chat history", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// History returns the most recent messages of a session in chronological
// order. Redis is tried first; any cache failure falls through to SQLite.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]model.ChatLog, error) {
	if limit <= 0 {
		limit = 10
	}

	if m.cache != nil {
		if logs, ok := m.cachedHistory(ctx, sessionID, limit); ok {
			return logs, nil
		}
	}

	var logs []model.ChatLog
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

func (m *Manager) cachedHistory(ctx context.Context, sessionID string, limit int) ([]model.ChatLog, bool) {
	key := historyKeyPrefix + sessionID
	raw, err := m.cache.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil || len(raw) == 0 {
		if err != nil && err != redis.Nil {
			m.logger.Warn("chat history cache read failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, false
	}

	logs := make([]model.ChatLog, 0, len(raw))
	for _, item := range raw {
		var entry model.ChatLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, false
		}
		logs = append(logs, entry)
	}
	return logs, true
}

// Clear removes a session's history from both stores.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.ChatLog{}).Error; err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	if m.cache != nil {
		if err := m.cache.Del(ctx, historyKeyPrefix+sessionID).Err(); err != nil {
			m.logger.Warn("failed to clear cached history", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

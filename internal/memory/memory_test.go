package memory

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.ChatLog{}))
	return NewManager(db, nil, time.Hour, zap.NewNop())
}

func TestSaveTurnAndHistoryRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveTurn(ctx, "sess-1", "U1001",
		"Do you have the Pegasus?", "Yes, the Air Zoom Pegasus 41 is in stock.",
		"product_availability", "neutral"))

	logs, err := m.History(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ChatTypeUser, logs[0].ChatType)
	assert.Equal(t, "Do you have the Pegasus?", logs[0].Content)
	assert.Equal(t, model.ChatTypeAssistant, logs[1].ChatType)
	assert.Equal(t, "product_availability", logs[1].Intent)
}

func TestHistoryReturnsMostRecentInOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		require.NoError(t, m.SaveTurn(ctx, "sess-1", "U1001", q, "reply to "+q, "general", "neutral"))
	}

	logs, err := m.History(ctx, "sess-1", 4)
	require.NoError(t, err)
	require.Len(t, logs, 4, "limit trims the oldest messages")
	assert.Equal(t, "second", logs[0].Content)
	assert.Equal(t, "reply to third", logs[3].Content)
}

func TestHistoryIsolatedPerSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveTurn(ctx, "sess-1", "U1001", "hello", "hi", "general", "neutral"))
	require.NoError(t, m.SaveTurn(ctx, "sess-2", "U1002", "deals?", "here are deals", "promotion", "excited"))

	logs, err := m.History(ctx, "sess-2", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "deals?", logs[0].Content)
}

func TestClearRemovesSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.SaveTurn(ctx, "sess-1", "U1001", "hello", "hi", "general", "neutral"))
	require.NoError(t, m.Clear(ctx, "sess-1"))

	logs, err := m.History(ctx, "sess-1", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

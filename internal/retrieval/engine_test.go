package retrieval

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/database"
	"github.com/storesage/storesage/internal/embedding"
)

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		ProductTopK:   3,
		StoreTopK:     5,
		PromotionTopK: 3,
		TopK:          5,
		MinScore:      0.05,
		KeywordBoost:  0.5,
	}
}

func newTestEngine(t *testing.T, cfg config.RetrievalConfig) *Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedIfEmpty(db, zap.NewNop()))

	engine, err := NewEngine(db, embedding.NewLocalProvider(64), cfg, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestRetrieveExactProductOutranksSemantic(t *testing.T) {
	engine := newTestEngine(t, testRetrievalConfig())

	rs, err := engine.Retrieve(context.Background(), Query{
		Text:   "Do you have the Pegasus in size 10?",
		Intent: classifier.IntentProductAvailability,
	})
	require.NoError(t, err)

	require.NotEmpty(t, rs.Products)
	assert.Equal(t, "P001", rs.Products[0].ID)
	assert.True(t, rs.Products[0].ExactMatch)

	require.Len(t, rs.Inventory, 2, "both stores carrying the Pegasus")
	assert.Equal(t, "I001", rs.Inventory[0].ID, "size-matched lines tie, lower ID first")
	assert.Equal(t, "10", rs.Inventory[0].Fields["matched_size"])
	assert.Contains(t, rs.Inventory[0].Text, "Size 10:")
}

func TestRetrieveStoreByDistinctiveToken(t *testing.T) {
	engine := newTestEngine(t, testRetrievalConfig())

	rs, err := engine.Retrieve(context.Background(), Query{
		Text:   "Is there a store in Sunway Pyramid?",
		Intent: classifier.IntentStoreLocator,
	})
	require.NoError(t, err)

	require.NotEmpty(t, rs.Stores)
	assert.Equal(t, "S005", rs.Stores[0].ID)
	assert.True(t, rs.Stores[0].ExactMatch)
	assert.Empty(t, rs.Inventory, "inventory only joins availability queries")
}

func TestRetrieveGeoOrdersByProximity(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.MinScore = -1 // keep every store so ordering is observable

	engine := newTestEngine(t, cfg)

	// Just south of Sunway Pyramid.
	rs, err := engine.Retrieve(context.Background(), Query{
		Text:     "where is your nearest branch",
		Intent:   classifier.IntentStoreLocator,
		Location: &classifier.Location{Latitude: 3.07, Longitude: 101.60},
	})
	require.NoError(t, err)

	require.Len(t, rs.Stores, 5)
	assert.Equal(t, "S005", rs.Stores[0].ID)
	assert.Equal(t, "S004", rs.Stores[1].ID)
	for _, store := range rs.Stores {
		assert.GreaterOrEqual(t, store.Distance, 0.0)
	}
	for i := 1; i < len(rs.Stores); i++ {
		assert.LessOrEqual(t, rs.Stores[i-1].Distance, rs.Stores[i].Distance)
	}
}

func TestRetrieveUnknownProductNoKeywordHits(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.MinScore = 0.30

	engine := newTestEngine(t, cfg)

	rs, err := engine.Retrieve(context.Background(), Query{
		Text:   "Do you have the Zyzzx Quantum Boot in stock?",
		Intent: classifier.IntentProductAvailability,
	})
	require.NoError(t, err)

	assert.Empty(t, rs.Inventory)
	for _, rec := range rs.Products {
		assert.False(t, rec.ExactMatch, "nothing in the catalog is named Zyzzx")
	}
}

func TestRetrieveIntentRouting(t *testing.T) {
	cfg := testRetrievalConfig()
	cfg.MinScore = -1

	engine := newTestEngine(t, cfg)

	rs, err := engine.Retrieve(context.Background(), Query{
		Text:   "any discounts this week?",
		Intent: classifier.IntentPromotion,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rs.Promotions)
	assert.Empty(t, rs.Products)
	assert.Empty(t, rs.Stores)
	assert.Empty(t, rs.Inventory)
}

func TestRetrieveDeterministicOnFixedCatalog(t *testing.T) {
	engine := newTestEngine(t, testRetrievalConfig())

	query := Query{
		Text:     "Do you have the Pegasus in size 10 near KLCC?",
		Intent:   classifier.IntentProductAvailability,
		UserID:   "U1001",
		Location: &classifier.Location{Latitude: 3.157, Longitude: 101.712},
	}

	first, err := engine.Retrieve(context.Background(), query)
	require.NoError(t, err)
	second, err := engine.Retrieve(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same catalog and query, same results")
}

func TestRetrieveAttachesUserProfile(t *testing.T) {
	engine := newTestEngine(t, testRetrievalConfig())

	rs, err := engine.Retrieve(context.Background(), Query{
		Text:   "Do you have the Pegasus?",
		Intent: classifier.IntentProductAvailability,
		UserID: "U1001",
	})
	require.NoError(t, err)

	require.NotNil(t, rs.Profile)
	assert.Equal(t, "Gold", rs.Profile.Fields["loyalty_tier"])

	rs, err = engine.Retrieve(context.Background(), Query{
		Text:   "Do you have the Pegasus?",
		Intent: classifier.IntentProductAvailability,
		UserID: "U9999",
	})
	require.NoError(t, err)
	assert.Nil(t, rs.Profile, "unknown user just means no personalization")
}

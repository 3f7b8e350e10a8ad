package adaptive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/model"
	"github.com/storesage/storesage/internal/retrieval"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.UserProfile{}))
	return db
}

func newTestUpdater(t *testing.T) (*Updater, *gorm.DB) {
	db := newTestDB(t)
	u := NewUpdater(db, zap.NewNop())
	u.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return u, db
}

func loadProfile(t *testing.T, db *gorm.DB, userID string) *model.UserProfile {
	t.Helper()
	var profile model.UserProfile
	require.NoError(t, db.First(&profile, "user_id = ?", userID).Error)
	return &profile
}

func TestUpdateCreatesProfileOnFirstContact(t *testing.T) {
	u, db := newTestUpdater(t)

	err := u.Update(context.Background(), "U2001", Insights{
		Signals:  []string{"running"},
		Products: []ProductRef{{ID: "P001", Name: "Air Zoom Pegasus 41", Category: "Running Shoes"}},
		Sizes:    []string{"10"},
	})
	require.NoError(t, err)

	profile := loadProfile(t, db, "U2001")
	assert.Equal(t, 1, profile.ConversationCount)
	assert.Equal(t, "Member", profile.LoyaltyTier)

	prefs := profile.ProductPreferenceList()
	require.Len(t, prefs, 1)
	assert.Equal(t, "P001", prefs[0].ProductID)
	assert.Equal(t, 1, prefs[0].Mentions)
	assert.Equal(t, "2026-08-30", prefs[0].LastMentioned)

	size := profile.SizePreferenceValue()
	assert.Equal(t, "10", size.Shoes)
	assert.InDelta(t, 0.6, size.Confidence, 1e-9)

	assert.Equal(t, []string{"running"}, profile.IntentSignalList())
	assert.Equal(t, 1, profile.IntentKeywordCounts()["running"])
}

func TestUpdateAccumulatesPurchaseSignals(t *testing.T) {
	u, db := newTestUpdater(t)
	ctx := context.Background()

	require.NoError(t, u.Update(ctx, "U2001", Insights{Signals: []string{"marathon", "running"}}))
	require.NoError(t, u.Update(ctx, "U2001", Insights{Signals: []string{"running", "casual"}}))

	profile := loadProfile(t, db, "U2001")
	assert.Equal(t, []string{"casual", "marathon", "running"}, profile.IntentSignalList())
	assert.Equal(t, 2, profile.IntentKeywordCounts()["running"], "repeat mentions keep counting")
	assert.Equal(t, 1, profile.IntentKeywordCounts()["casual"])
}

func TestUpdateRanksRepeatedMentionsFirst(t *testing.T) {
	u, db := newTestUpdater(t)
	ctx := context.Background()

	pegasus := ProductRef{ID: "P001", Name: "Air Zoom Pegasus 41", Category: "Running Shoes"}
	metcon := ProductRef{ID: "P003", Name: "Metcon 9", Category: "Training Shoes"}

	require.NoError(t, u.Update(ctx, "U2001", Insights{Products: []ProductRef{metcon}}))
	require.NoError(t, u.Update(ctx, "U2001", Insights{Products: []ProductRef{pegasus}}))
	require.NoError(t, u.Update(ctx, "U2001", Insights{Products: []ProductRef{pegasus}}))

	prefs := loadProfile(t, db, "U2001").ProductPreferenceList()
	require.Len(t, prefs, 2)
	assert.Equal(t, "P001", prefs[0].ProductID)
	assert.Equal(t, 2, prefs[0].Mentions)
	assert.Equal(t, "P003", prefs[1].ProductID)
}

func TestUpdateSizeConfidenceGrowsAndResets(t *testing.T) {
	u, db := newTestUpdater(t)
	ctx := context.Background()

	require.NoError(t, u.Update(ctx, "U2001", Insights{Sizes: []string{"10"}}))
	require.NoError(t, u.Update(ctx, "U2001", Insights{Sizes: []string{"10"}}))

	size := loadProfile(t, db, "U2001").SizePreferenceValue()
	assert.Equal(t, "10", size.Shoes)
	assert.InDelta(t, 0.7, size.Confidence, 1e-9)

	require.NoError(t, u.Update(ctx, "U2001", Insights{Sizes: []string{"9.5"}}))
	size = loadProfile(t, db, "U2001").SizePreferenceValue()
	assert.Equal(t, "9.5", size.Shoes)
	assert.InDelta(t, 0.6, size.Confidence, 1e-9, "size change resets confidence")
}

func TestUpdateFavoriteStoreFrequency(t *testing.T) {
	u, db := newTestUpdater(t)
	ctx := context.Background()

	klcc := StoreRef{ID: "S001", Name: "Flagship KLCC"}
	pavilion := StoreRef{ID: "S002", Name: "Pavilion KL"}

	require.NoError(t, u.Update(ctx, "U2001", Insights{Stores: []StoreRef{klcc}}))
	require.NoError(t, u.Update(ctx, "U2001", Insights{Stores: []StoreRef{klcc}}))

	fav := loadProfile(t, db, "U2001").FavoriteStoreValue()
	assert.Equal(t, "S001", fav.StoreID)
	assert.Equal(t, 2, fav.VisitFrequency)

	require.NoError(t, u.Update(ctx, "U2001", Insights{Stores: []StoreRef{pavilion}}))
	fav = loadProfile(t, db, "U2001").FavoriteStoreValue()
	assert.Equal(t, "S002", fav.StoreID)
	assert.Equal(t, 1, fav.VisitFrequency)
}

func TestUpdateConcurrentTurnsLoseNothing(t *testing.T) {
	u, db := newTestUpdater(t)

	const turns = 20
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, u.Update(context.Background(), "U2001", Insights{
				Products: []ProductRef{{ID: "P001", Name: "Air Zoom Pegasus 41"}},
			}))
		}()
	}
	wg.Wait()

	profile := loadProfile(t, db, "U2001")
	assert.Equal(t, turns, profile.ConversationCount)
	prefs := profile.ProductPreferenceList()
	require.Len(t, prefs, 1)
	assert.Equal(t, turns, prefs[0].Mentions)
}

func TestUpdateEmptyUserIDIsNoop(t *testing.T) {
	u, db := newTestUpdater(t)

	require.NoError(t, u.Update(context.Background(), "", Insights{Sizes: []string{"10"}}))

	var count int64
	require.NoError(t, db.Model(&model.UserProfile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestExtractOnlyCountsNamedRecords(t *testing.T) {
	rs := &retrieval.ResultSet{
		Products: []retrieval.Record{
			{Source: retrieval.SourceProduct, ID: "P001", ExactMatch: true,
				Fields: map[string]string{"name": "Air Zoom Pegasus 41", "category": "Running Shoes"}},
			{Source: retrieval.SourceProduct, ID: "P002", ExactMatch: false,
				Fields: map[string]string{"name": "Vaporfly 3", "category": "Running Shoes"}},
		},
		Stores: []retrieval.Record{
			{Source: retrieval.SourceStore, ID: "S001", ExactMatch: true,
				Fields: map[string]string{"name": "Flagship KLCC"}},
		},
	}

	in := Extract("do you have the pegasus in size 10 at KLCC", rs)

	require.Len(t, in.Products, 1, "semantic-only hits are not stated preferences")
	assert.Equal(t, "P001", in.Products[0].ID)
	require.Len(t, in.Stores, 1)
	assert.Equal(t, "S001", in.Stores[0].ID)
	assert.Equal(t, []string{"10"}, in.Sizes)
	assert.False(t, in.Empty())
}

func TestExtractPurchaseIntentSignals(t *testing.T) {
	in := Extract("I need running shoes for a marathon, plus something casual", nil)
	assert.Equal(t, []string{"casual", "marathon", "running"}, in.Signals)
	assert.False(t, in.Empty())

	in = Extract("where is your nearest store", nil)
	assert.Empty(t, in.Signals, "no activity or style word in the query")
}

package adaptive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/model"
)

const (
	sizeConfidenceStep  = 0.1
	sizeConfidenceStart = 0.6
	sizeConfidenceMax   = 1.0
	maxTrackedProducts  = 20
	maxTrackedKeywords  = 50
)

// Updater folds per-turn insights into user profiles. Updates for the same
// user are serialized with a per-user lock so concurrent turns cannot lose
// increments; different users never contend.
type Updater struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUpdater(db *gorm.DB, logger *zap.Logger) *Updater {
	return &Updater{
		db:     db,
		logger: logger,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (u *Updater) userLock(userID string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[userID] = lock
	}
	return lock
}

// Update applies one turn's insights to the user's profile, creating the
// profile on first contact. A transient write failure gets one retry with
// a fresh read.
func (u *Updater) Update(ctx context.Context, userID string, in Insights) error {
	if userID == "" {
		return nil
	}

	lock := u.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = u.applyOnce(ctx, userID, in); lastErr == nil {
			return nil
		}
		u.logger.Warn("profile update attempt failed",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return fmt.Errorf("failed to update profile for %s: %w", userID, lastErr)
}

func (u *Updater) applyOnce(ctx context.Context, userID string, in Insights) error {
	db := u.db.WithContext(ctx)

	var profile model.UserProfile
	err := db.First(&profile, "user_id = ?", userID).Error
	created := false
	if err == gorm.ErrRecordNotFound {
		profile = model.UserProfile{UserID: userID, LoyaltyTier: "Member"}
		created = true
	} else if err != nil {
		return err
	}

	u.merge(&profile, in)

	if created {
		return db.Create(&profile).Error
	}
	return db.Save(&profile).Error
}

// merge is the pure part of the update: profile in, profile out. All list
// mutations keep deterministic order so two identical histories produce
// byte-identical profiles.
func (u *Updater) merge(profile *model.UserProfile, in Insights) {
	today := u.now().Format("2006-01-02")

	profile.ConversationCount++

	if len(in.Products) > 0 {
		prefs := profile.ProductPreferenceList()
		for _, ref := range in.Products {
			prefs = bumpProduct(prefs, ref, today)
		}
		sortProductPrefs(prefs)
		if len(prefs) > maxTrackedProducts {
			prefs = prefs[:maxTrackedProducts]
		}
		profile.PreferredProducts = mustJSON(prefs)

		cats := profile.CategoryPreferenceList()
		for _, ref := range in.Products {
			if ref.Category != "" {
				cats = bumpCategory(cats, ref.Category, today)
			}
		}
		sortCategoryPrefs(cats)
		profile.PreferredCategories = mustJSON(cats)
	}

	if len(in.Sizes) > 0 {
		size := profile.SizePreferenceValue()
		latest := in.Sizes[0]
		if size.Shoes == latest {
			size.Confidence = min(sizeConfidenceMax, size.Confidence+sizeConfidenceStep)
		} else {
			size.Shoes = latest
			size.Confidence = sizeConfidenceStart
		}
		profile.SizePreferences = mustJSON(size)
	}

	if len(in.Stores) > 0 {
		favorite := profile.FavoriteStoreValue()
		ref := in.Stores[0]
		if favorite.StoreID == ref.ID {
			favorite.VisitFrequency++
		} else {
			favorite = model.StorePreference{StoreID: ref.ID, StoreName: ref.Name, VisitFrequency: 1}
		}
		favorite.LastVisit = today
		profile.FavoriteStore = mustJSON(favorite)
	}

	if len(in.Signals) > 0 {
		signals := profile.IntentSignalList()
		changed := false
		for _, signal := range in.Signals {
			if !containsString(signals, signal) {
				signals = append(signals, signal)
				changed = true
			}
		}
		if changed {
			sort.Strings(signals)
			profile.IntentSignals = mustJSON(signals)
		}

		counts := profile.IntentKeywordCounts()
		for _, signal := range in.Signals {
			counts[signal]++
		}
		if len(counts) > maxTrackedKeywords {
			counts = topKeywords(counts, maxTrackedKeywords)
		}
		profile.IntentKeywords = mustJSON(counts)
	}
}

func bumpProduct(prefs []model.ProductPreference, ref ProductRef, today string) []model.ProductPreference {
	for i := range prefs {
		if prefs[i].ProductID == ref.ID {
			prefs[i].Mentions++
			prefs[i].LastMentioned = today
			return prefs
		}
	}
	return append(prefs, model.ProductPreference{
		ProductID:     ref.ID,
		ProductName:   ref.Name,
		Category:      ref.Category,
		Mentions:      1,
		LastMentioned: today,
	})
}

func bumpCategory(cats []model.CategoryPreference, category, today string) []model.CategoryPreference {
	for i := range cats {
		if cats[i].Category == category {
			cats[i].Mentions++
			cats[i].LastMentioned = today
			return cats
		}
	}
	return append(cats, model.CategoryPreference{Category: category, Mentions: 1, LastMentioned: today})
}

func sortProductPrefs(prefs []model.ProductPreference) {
	sort.SliceStable(prefs, func(i, j int) bool {
		if prefs[i].Mentions != prefs[j].Mentions {
			return prefs[i].Mentions > prefs[j].Mentions
		}
		if prefs[i].LastMentioned != prefs[j].LastMentioned {
			return prefs[i].LastMentioned > prefs[j].LastMentioned
		}
		return prefs[i].ProductID < prefs[j].ProductID
	})
}

func sortCategoryPrefs(cats []model.CategoryPreference) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Mentions != cats[j].Mentions {
			return cats[i].Mentions > cats[j].Mentions
		}
		if cats[i].LastMentioned != cats[j].LastMentioned {
			return cats[i].LastMentioned > cats[j].LastMentioned
		}
		return cats[i].Category < cats[j].Category
	})
}

// topKeywords keeps the n highest counters, ties broken alphabetically.
func topKeywords(counts map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	all := make([]kv, 0, len(counts))
	for k, v := range counts {
		all = append(all, kv{k, v})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].v != all[j].v {
			return all[i].v > all[j].v
		}
		return all[i].k < all[j].k
	})
	out := make(map[string]int, n)
	for i := 0; i < n && i < len(all); i++ {
		out[all[i].k] = all[i].v
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// All inputs are plain structs and maps of strings and numbers.
		panic(err)
	}
	return string(data)
}

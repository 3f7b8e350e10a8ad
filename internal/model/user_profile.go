package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UserProfile accumulates per-user preference signals across turns. It is
// the only mutable record in the system; the adaptive updater owns it.
type UserProfile struct {
	UserID              string    `gorm:"primaryKey;size:64" json:"user_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Name                string    `json:"name" gorm:"size:100"`
	Email               string    `json:"email" gorm:"size:255"`
	LoyaltyTier         string    `json:"loyalty_tier" gorm:"size:20;default:Member"` // Member, Silver, Gold
	ConversationCount   int       `json:"conversation_count"`
	PreferredProducts   string    `json:"preferred_products" gorm:"type:text"`   // JSON []ProductPreference
	PreferredCategories string    `json:"preferred_categories" gorm:"type:text"` // JSON []CategoryPreference
	SizePreferences     string    `json:"size_preferences" gorm:"type:text"`     // JSON SizePreference
	FavoriteStore       string    `json:"favorite_store" gorm:"type:text"`       // JSON StorePreference
	IntentSignals       string    `json:"intent_signals" gorm:"type:text"`       // JSON []string
	IntentKeywords      string    `json:"intent_keywords" gorm:"type:text"`      // JSON map[string]int
	Embedding           string    `json:"-" gorm:"type:text"`
	EmbeddingModel      string    `json:"-" gorm:"size:64"`
}

// TableName sets the table name.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// ProductPreference is one entry of the preferred-product ranking.
type ProductPreference struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Category      string `json:"category,omitempty"`
	Mentions      int    `json:"mentions"`
	LastMentioned string `json:"last_mentioned"` // YYYY-MM-DD
}

// CategoryPreference is one entry of the preferred-category ranking.
type CategoryPreference struct {
	Category      string `json:"category"`
	Mentions      int    `json:"mentions"`
	LastMentioned string `json:"last_mentioned"`
}

// SizePreference tracks the user's shoe size with a confidence score that
// grows as the same size is repeated.
type SizePreference struct {
	Shoes      string  `json:"shoes,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// StorePreference tracks the user's most visited store.
type StorePreference struct {
	StoreID        string `json:"store_id"`
	StoreName      string `json:"store_name"`
	VisitFrequency int    `json:"visit_frequency"`
	LastVisit      string `json:"last_visit"`
}

// ProductPreferenceList parses the JSON-encoded product preferences.
func (u *UserProfile) ProductPreferenceList() []ProductPreference {
	var out []ProductPreference
	if u.PreferredProducts != "" {
		_ = json.Unmarshal([]byte(u.PreferredProducts), &out)
	}
	return out
}

// CategoryPreferenceList parses the JSON-encoded category preferences.
func (u *UserProfile) CategoryPreferenceList() []CategoryPreference {
	var out []CategoryPreference
	if u.PreferredCategories != "" {
		_ = json.Unmarshal([]byte(u.PreferredCategories), &out)
	}
	return out
}

// SizePreferenceValue parses the JSON-encoded size preference.
func (u *UserProfile) SizePreferenceValue() SizePreference {
	var out SizePreference
	if u.SizePreferences != "" {
		_ = json.Unmarshal([]byte(u.SizePreferences), &out)
	}
	return out
}

// FavoriteStoreValue parses the JSON-encoded favorite store.
func (u *UserProfile) FavoriteStoreValue() StorePreference {
	var out StorePreference
	if u.FavoriteStore != "" {
		_ = json.Unmarshal([]byte(u.FavoriteStore), &out)
	}
	return out
}

// IntentSignalList parses the JSON-encoded purchase-intent signals.
func (u *UserProfile) IntentSignalList() []string {
	return parseJSONList(u.IntentSignals)
}

// IntentKeywordCounts parses the JSON-encoded intent keyword counters.
func (u *UserProfile) IntentKeywordCounts() map[string]int {
	out := make(map[string]int)
	if u.IntentKeywords != "" {
		_ = json.Unmarshal([]byte(u.IntentKeywords), &out)
	}
	return out
}

// EmbeddingText is the canonical rendering used to match the profile as a
// retrieval record. Contact fields are deliberately excluded.
func (u *UserProfile) EmbeddingText() string {
	parts := []string{"User preferences:"}
	if size := u.SizePreferenceValue(); size.Shoes != "" {
		parts = append(parts, fmt.Sprintf("Prefers size %s in shoes.", size.Shoes))
	}
	if fav := u.FavoriteStoreValue(); fav.StoreName != "" {
		parts = append(parts, fmt.Sprintf("Favorite store: %s.", fav.StoreName))
	}
	parts = append(parts, fmt.Sprintf("Loyalty tier: %s.", u.LoyaltyTier))
	if prods := u.ProductPreferenceList(); len(prods) > 0 {
		names := make([]string, 0, 3)
		for i, p := range prods {
			if i == 3 {
				break
			}
			names = append(names, p.ProductName)
		}
		parts = append(parts, fmt.Sprintf("Interested in %s.", strings.Join(names, ", ")))
	}
	return strings.Join(parts, " ")
}

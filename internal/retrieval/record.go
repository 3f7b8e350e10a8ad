// Package retrieval ranks catalog records against a query using embedding
// similarity plus exact keyword matching, bounded per source by top-k.
package retrieval

import (
	"sort"

	"github.com/storesage/storesage/internal/classifier"
)

// Source identifies which structured dataset a record came from.
type Source string

// Known record sources.
const (
	SourceProduct   Source = "product"
	SourceStore     Source = "store"
	SourceInventory Source = "inventory"
	SourcePromotion Source = "promotion"
	SourceProfile   Source = "user_profile"
)

// Record is one retrieved context fact. Fields holds the structured view
// by field name; Text is the rendering that ends up in the prompt after
// redaction.
type Record struct {
	Source     Source            `json:"source"`
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Fields     map[string]string `json:"fields"`
	Score      float64           `json:"score"`
	ExactMatch bool              `json:"exact_match"`
	Distance   float64           `json:"distance_km"` // store-to-user distance, -1 when unknown
	Redacted   bool              `json:"redacted"`
}

// Query is one retrieval request.
type Query struct {
	Text     string
	Intent   classifier.Intent
	Location *classifier.Location
	UserID   string
}

// ResultSet holds ranked records per source.
type ResultSet struct {
	Products   []Record
	Stores     []Record
	Inventory  []Record
	Promotions []Record
	Profile    *Record
}

// Ranked merges all sources into one list ordered by score descending,
// ties broken by record ID, capped at limit (0 means no cap).
func (rs *ResultSet) Ranked(limit int) []Record {
	var all []Record
	all = append(all, rs.Products...)
	all = append(all, rs.Stores...)
	all = append(all, rs.Inventory...)
	all = append(all, rs.Promotions...)
	if rs.Profile != nil {
		all = append(all, *rs.Profile)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].ID < all[j].ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Counts reports per-source result sizes for logging.
func (rs *ResultSet) Counts() map[string]int {
	counts := map[string]int{
		"products":   len(rs.Products),
		"stores":     len(rs.Stores),
		"inventory":  len(rs.Inventory),
		"promotions": len(rs.Promotions),
	}
	if rs.Profile != nil {
		counts["profile"] = 1
	}
	return counts
}

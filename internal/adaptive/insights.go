package adaptive

import (
	"sort"
	"strings"

	"github.com/storesage/storesage/internal/retrieval"
)

// ProductRef is a product the turn showed interest in.
type ProductRef struct {
	ID       string
	Name     string
	Category string
}

// StoreRef is a store the turn showed interest in.
type StoreRef struct {
	ID   string
	Name string
}

// Insights is what one completed turn contributes to the user's profile.
type Insights struct {
	Products []ProductRef
	Stores   []StoreRef
	Sizes    []string
	Signals  []string // purchase-intent words found in the query, sorted
}

// Empty reports whether the turn carried no signal worth persisting beyond
// the conversation counter.
func (in Insights) Empty() bool {
	return len(in.Products) == 0 && len(in.Stores) == 0 &&
		len(in.Sizes) == 0 && len(in.Signals) == 0
}

// purchaseIntentVocab are the activity and style words that reveal what a
// customer shops for. Matches land on the profile verbatim.
var purchaseIntentVocab = []string{
	"marathon", "running", "training", "gym", "workout",
	"casual", "lifestyle", "racing", "beginner", "professional",
}

func purchaseSignals(lowered string) []string {
	var out []string
	for _, word := range purchaseIntentVocab {
		if strings.Contains(lowered, word) {
			out = append(out, word)
		}
	}
	sort.Strings(out)
	return out
}

// Extract derives insights from the query and the retrieval hits. Only
// records the query names directly count as interest; a record that merely
// scored well semantically is not a stated preference.
func Extract(query string, rs *retrieval.ResultSet) Insights {
	lowered := strings.ToLower(query)
	in := Insights{
		Sizes:   retrieval.ExtractSizes(query),
		Signals: purchaseSignals(lowered),
	}
	if rs == nil {
		return in
	}

	seenProducts := map[string]bool{}
	for _, rec := range rs.Products {
		if rec.ExactMatch && !seenProducts[rec.ID] {
			seenProducts[rec.ID] = true
			in.Products = append(in.Products, ProductRef{
				ID:       rec.ID,
				Name:     rec.Fields["name"],
				Category: rec.Fields["category"],
			})
		}
	}
	// Inventory lines name products too and survive when the product list
	// was capped.
	for _, rec := range rs.Inventory {
		id := rec.Fields["product_id"]
		name := rec.Fields["product_name"]
		if id == "" || seenProducts[id] || name == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(name)) {
			seenProducts[id] = true
			in.Products = append(in.Products, ProductRef{ID: id, Name: name})
		}
	}
	sort.Slice(in.Products, func(i, j int) bool { return in.Products[i].ID < in.Products[j].ID })

	seenStores := map[string]bool{}
	for _, rec := range rs.Stores {
		if rec.ExactMatch && !seenStores[rec.ID] {
			seenStores[rec.ID] = true
			in.Stores = append(in.Stores, StoreRef{ID: rec.ID, Name: rec.Fields["name"]})
		}
	}
	sort.Slice(in.Stores, func(i, j int) bool { return in.Stores[i].ID < in.Stores[j].ID })

	return in
}

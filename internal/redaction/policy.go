package redaction

import "github.com/storesage/storesage/internal/retrieval"

// publicFields is the per-source allow-list. Any field not listed here is
// dropped before the record crosses the trust boundary, so a newly added
// column is hidden until someone deliberately allows it.
var publicFields = map[retrieval.Source]map[string]bool{
	retrieval.SourceProduct: {
		"id":          true,
		"name":        true,
		"category":    true,
		"price":       true,
		"description": true,
		"sizes":       true,
		"colors":      true,
		"image_url":   true,
	},
	retrieval.SourceStore: {
		"id":        true,
		"name":      true,
		"mall_name": true,
		"city":      true,
		"hours":     true,
		"services":  true,
		"latitude":  true,
		"longitude": true,
	},
	retrieval.SourceInventory: {
		"id":                 true,
		"product_id":         true,
		"product_name":       true,
		"store_id":           true,
		"store_name":         true,
		"total_units":        true,
		"matched_size":       true,
		"matched_size_units": true,
	},
	retrieval.SourcePromotion: {
		"id":          true,
		"name":        true,
		"description": true,
		"type":        true,
		"promo_code":  true, // customer-facing by definition
		"start_date":  true,
		"end_date":    true,
	},
	retrieval.SourceProfile: {
		"user_id":        true,
		"loyalty_tier":   true,
		"preferred_size": true,
		"favorite_store": true,
	},
}

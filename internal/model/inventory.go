package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// InventoryEntry records per-store stock for one product. RestockSourceID
// and LastOrderID are internal identifiers and must never reach the model.
type InventoryEntry struct {
	ID              string    `gorm:"primaryKey;size:20" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ProductID       string    `json:"product_id" gorm:"size:20;index"`
	ProductName     string    `json:"product_name" gorm:"size:255"`
	StoreID         string    `json:"store_id" gorm:"size:20;index"`
	StoreName       string    `json:"store_name" gorm:"size:255"`
	TotalUnits      int       `json:"total_units"`
	StockBySize     string    `json:"stock_by_size" gorm:"type:text"` // JSON object {"10": 4}
	RestockSourceID string    `json:"restock_source_id" gorm:"size:64"`
	LastOrderID     string    `json:"last_order_id" gorm:"size:64"`
}

// TableName sets the table name.
func (InventoryEntry) TableName() string {
	return "inventory_entries"
}

// SizeStock parses the JSON-encoded per-size stock map.
func (e *InventoryEntry) SizeStock() map[string]int {
	if e.StockBySize == "" {
		return nil
	}
	out := make(map[string]int)
	if err := json.Unmarshal([]byte(e.StockBySize), &out); err != nil {
		return nil
	}
	return out
}

// EmbeddingText is the canonical rendering for an inventory line.
func (e *InventoryEntry) EmbeddingText() string {
	return fmt.Sprintf("Inventory: %s at %s. Total stock: %d units.",
		e.ProductName, e.StoreName, e.TotalUnits)
}

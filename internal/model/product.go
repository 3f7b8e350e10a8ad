package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Product is a catalog item. Sizes and Colors are stored as JSON arrays,
// matching how the seed data ships them.
type Product struct {
	ID             string    `gorm:"primaryKey;size:20" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `json:"name" gorm:"size:255;index"`
	Category       string    `json:"category" gorm:"size:100;index"` // running, training, lifestyle, apparel
	Price          float64   `json:"price"`
	Description    string    `json:"description" gorm:"type:text"`
	Sizes          string    `json:"sizes" gorm:"type:text"`  // JSON array ["8","9","10"]
	Colors         string    `json:"colors" gorm:"type:text"` // JSON array ["black","volt"]
	ImageURL       string    `json:"image_url" gorm:"size:255"`
	SupplierCode   string    `json:"supplier_code" gorm:"size:64"` // internal sourcing key, never leaves the trust boundary
	Embedding      string    `json:"-" gorm:"type:text"`           // JSON vector
	EmbeddingModel string    `json:"-" gorm:"size:64"`
}

// TableName sets the table name.
func (Product) TableName() string {
	return "products"
}

// SizeList parses the JSON-encoded sizes.
func (p *Product) SizeList() []string {
	return parseJSONList(p.Sizes)
}

// ColorList parses the JSON-encoded colors.
func (p *Product) ColorList() []string {
	return parseJSONList(p.Colors)
}

// EmbeddingText is the canonical rendering used to build the product's
// embedding and the context text shown to the model.
func (p *Product) EmbeddingText() string {
	return fmt.Sprintf("Product: %s (%s) - RM%.2f. %s Available sizes: %s. Colors: %s.",
		p.Name, p.Category, p.Price, p.Description,
		strings.Join(p.SizeList(), ", "), strings.Join(p.ColorList(), ", "))
}

func parseJSONList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

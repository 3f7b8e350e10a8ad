package model

import (
	"fmt"
	"time"
)

// Promotion is a marketing offer. The promo code is public by contract;
// the campaign key is an internal identifier.
type Promotion struct {
	ID             string    `gorm:"primaryKey;size:20" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `json:"name" gorm:"size:255"`
	Description    string    `json:"description" gorm:"type:text"`
	Type           string    `json:"type" gorm:"size:50"` // percentage, bundle, loyalty
	PromoCode      string    `json:"promo_code" gorm:"size:32"`
	CampaignKey    string    `json:"campaign_key" gorm:"size:64"`
	StartDate      string    `json:"start_date" gorm:"size:10"`
	EndDate        string    `json:"end_date" gorm:"size:10"`
	Embedding      string    `json:"-" gorm:"type:text"`
	EmbeddingModel string    `json:"-" gorm:"size:64"`
}

// TableName sets the table name.
func (Promotion) TableName() string {
	return "promotions"
}

// EmbeddingText is the canonical rendering for the promotion's embedding.
func (p *Promotion) EmbeddingText() string {
	return fmt.Sprintf("Promotion: %s - %s Type: %s. Code: %s.",
		p.Name, p.Description, p.Type, p.PromoCode)
}

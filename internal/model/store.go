package model

import (
	"fmt"
	"strings"
	"time"
)

// Store is a retail location. AddressLine, contact details and the manager
// name are sensitive; the mall name, city, hours and coordinates are public.
type Store struct {
	ID             string    `gorm:"primaryKey;size:20" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Name           string    `json:"name" gorm:"size:255;index"`
	MallName       string    `json:"mall_name" gorm:"size:255;index"`
	AddressLine    string    `json:"address_line" gorm:"size:255"` // lot/level street detail
	City           string    `json:"city" gorm:"size:100"`
	PostalCode     string    `json:"postal_code" gorm:"size:10"`
	Phone          string    `json:"phone" gorm:"size:32"`
	Email          string    `json:"email" gorm:"size:255"`
	ManagerName    string    `json:"manager_name" gorm:"size:100"`
	Hours          string    `json:"hours" gorm:"size:100"`     // e.g. "10:00 AM - 10:00 PM"
	Services       string    `json:"services" gorm:"type:text"` // JSON array
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Embedding      string    `json:"-" gorm:"type:text"`
	EmbeddingModel string    `json:"-" gorm:"size:64"`
}

// TableName sets the table name.
func (Store) TableName() string {
	return "stores"
}

// ServiceList parses the JSON-encoded services.
func (s *Store) ServiceList() []string {
	return parseJSONList(s.Services)
}

// EmbeddingText is the canonical rendering used for the store's embedding.
// It deliberately excludes the street address and contact fields.
func (s *Store) EmbeddingText() string {
	return fmt.Sprintf("Store: %s at %s, %s. Hours: %s. Services: %s.",
		s.Name, s.MallName, s.City, s.Hours, strings.Join(s.ServiceList(), ", "))
}

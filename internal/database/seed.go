package database

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/data"
	"github.com/storesage/storesage/internal/model"
)

// The embedded mock files use natural JSON (arrays, objects) while the
// database columns store those as encoded text, so seeding goes through
// intermediate shapes.

type seedProduct struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	Description  string   `json:"description"`
	Sizes        []string `json:"sizes"`
	Colors       []string `json:"colors"`
	ImageURL     string   `json:"image_url"`
	SupplierCode string   `json:"supplier_code"`
}

type seedStore struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MallName    string   `json:"mall_name"`
	AddressLine string   `json:"address_line"`
	City        string   `json:"city"`
	PostalCode  string   `json:"postal_code"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	ManagerName string   `json:"manager_name"`
	Hours       string   `json:"hours"`
	Services    []string `json:"services"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
}

type seedInventory struct {
	ID              string         `json:"id"`
	ProductID       string         `json:"product_id"`
	ProductName     string         `json:"product_name"`
	StoreID         string         `json:"store_id"`
	StoreName       string         `json:"store_name"`
	TotalUnits      int            `json:"total_units"`
	StockBySize     map[string]int `json:"stock_by_size"`
	RestockSourceID string         `json:"restock_source_id"`
	LastOrderID     string         `json:"last_order_id"`
}

type seedProfile struct {
	UserID              string                     `json:"user_id"`
	Name                string                     `json:"name"`
	Email               string                     `json:"email"`
	LoyaltyTier         string                     `json:"loyalty_tier"`
	ConversationCount   int                        `json:"conversation_count"`
	PreferredProducts   []model.ProductPreference  `json:"preferred_products"`
	PreferredCategories []model.CategoryPreference `json:"preferred_categories"`
	SizePreferences     model.SizePreference       `json:"size_preferences"`
	FavoriteStore       model.StorePreference      `json:"favorite_store"`
	IntentSignals       []string                   `json:"intent_signals"`
	IntentKeywords      map[string]int             `json:"intent_keywords"`
}

// SeedIfEmpty loads the embedded mock catalog when the product table is
// empty. Re-running on a populated database is a no-op.
func SeedIfEmpty(db *gorm.DB, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&model.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check seed state: %w", err)
	}
	if count > 0 {
		return nil
	}

	products, err := loadSeed[seedProduct]("mock/products.json")
	if err != nil {
		return err
	}
	for _, p := range products {
		row := model.Product{
			ID:           p.ID,
			Name:         p.Name,
			Category:     p.Category,
			Price:        p.Price,
			Description:  p.Description,
			Sizes:        encode(p.Sizes),
			Colors:       encode(p.Colors),
			ImageURL:     p.ImageURL,
			SupplierCode: p.SupplierCode,
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}

	stores, err := loadSeed[seedStore]("mock/stores.json")
	if err != nil {
		return err
	}
	for _, s := range stores {
		row := model.Store{
			ID:          s.ID,
			Name:        s.Name,
			MallName:    s.MallName,
			AddressLine: s.AddressLine,
			City:        s.City,
			PostalCode:  s.PostalCode,
			Phone:       s.Phone,
			Email:       s.Email,
			ManagerName: s.ManagerName,
			Hours:       s.Hours,
			Services:    encode(s.Services),
			Latitude:    s.Latitude,
			Longitude:   s.Longitude,
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to seed store %s: %w", s.ID, err)
		}
	}

	inventory, err := loadSeed[seedInventory]("mock/inventory.json")
	if err != nil {
		return err
	}
	for _, e := range inventory {
		row := model.InventoryEntry{
			ID:              e.ID,
			ProductID:       e.ProductID,
			ProductName:     e.ProductName,
			StoreID:         e.StoreID,
			StoreName:       e.StoreName,
			TotalUnits:      e.TotalUnits,
			StockBySize:     encode(e.StockBySize),
			RestockSourceID: e.RestockSourceID,
			LastOrderID:     e.LastOrderID,
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to seed inventory %s: %w", e.ID, err)
		}
	}

	promotions, err := loadSeed[model.Promotion]("mock/promotions.json")
	if err != nil {
		return err
	}
	for i := range promotions {
		if err := db.Create(&promotions[i]).Error; err != nil {
			return fmt.Errorf("failed to seed promotion %s: %w", promotions[i].ID, err)
		}
	}

	profiles, err := loadSeed[seedProfile]("mock/user_profiles.json")
	if err != nil {
		return err
	}
	for _, u := range profiles {
		row := model.UserProfile{
			UserID:              u.UserID,
			Name:                u.Name,
			Email:               u.Email,
			LoyaltyTier:         u.LoyaltyTier,
			ConversationCount:   u.ConversationCount,
			PreferredProducts:   encode(u.PreferredProducts),
			PreferredCategories: encode(u.PreferredCategories),
			SizePreferences:     encode(u.SizePreferences),
			FavoriteStore:       encode(u.FavoriteStore),
			IntentSignals:       encode(u.IntentSignals),
			IntentKeywords:      encode(u.IntentKeywords),
		}
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to seed profile %s: %w", u.UserID, err)
		}
	}

	logger.Info("seeded mock catalog",
		zap.Int("products", len(products)),
		zap.Int("stores", len(stores)),
		zap.Int("inventory", len(inventory)),
		zap.Int("promotions", len(promotions)),
		zap.Int("profiles", len(profiles)))
	return nil
}

func loadSeed[T any](name string) ([]T, error) {
	raw, err := data.MockFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", name, err)
	}
	return out, nil
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

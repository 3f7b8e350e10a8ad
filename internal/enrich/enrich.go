package enrich

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/storesage/storesage/internal/retrieval"
)

const maxCards = 3

// ProductCard is the structured product payload attached to a reply.
type ProductCard struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	ImageURL string   `json:"image_url,omitempty"`
	Sizes    []string `json:"sizes,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// StoreInfo is the structured store payload attached to a reply.
type StoreInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	MallName   string  `json:"mall_name"`
	City       string  `json:"city"`
	Hours      string  `json:"hours"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Enrichment is everything the response carries beyond the reply text.
type Enrichment struct {
	Products    []ProductCard `json:"products,omitempty"`
	Stores      []StoreInfo   `json:"stores,omitempty"`
	ShowMap     bool          `json:"show_map"`
	ShowCTA     bool          `json:"show_cta"`
	LoyaltyNote string        `json:"loyalty_note,omitempty"`
}

// Enricher derives structured payloads from the reply text and the redacted
// retrieval hits. It never modifies the reply text itself.
type Enricher struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Enricher {
	return &Enricher{logger: logger}
}

// Enrich builds the structured payload for one turn. Product cards prefer
// records the reply actually mentions; when the reply names none, the top
// hits stand in so the UI still has something to render.
func (e *Enricher) Enrich(replyText string, rs *retrieval.ResultSet) Enrichment {
	lowered := strings.ToLower(replyText)
	out := Enrichment{}

	out.Products = e.productCards(lowered, rs.Products)
	out.Stores = e.storeInfo(lowered, rs.Stores)

	// Any store hit with coordinates is mappable; a user location on the
	// request only refines the ordering, it is not required.
	for _, store := range rs.Stores {
		if store.Fields["latitude"] != "" && store.Fields["longitude"] != "" {
			out.ShowMap = true
			break
		}
	}

	out.ShowCTA = e.actionable(out.Products, rs.Inventory)

	if len(out.Products) > 0 && rs.Profile != nil {
		out.LoyaltyNote = loyaltyNote(rs.Profile.Fields["loyalty_tier"])
	}

	return out
}

func (e *Enricher) productCards(lowered string, hits []retrieval.Record) []ProductCard {
	mentioned := make([]retrieval.Record, 0, len(hits))
	for _, rec := range hits {
		if name := rec.Fields["name"]; name != "" && strings.Contains(lowered, strings.ToLower(name)) {
			mentioned = append(mentioned, rec)
		}
	}
	if len(mentioned) == 0 {
		mentioned = hits
	}
	if len(mentioned) > maxCards {
		mentioned = mentioned[:maxCards]
	}

	cards := make([]ProductCard, 0, len(mentioned))
	for _, rec := range mentioned {
		price, err := strconv.ParseFloat(rec.Fields["price"], 64)
		if err != nil {
			e.logger.Warn("unparseable product price", zap.String("id", rec.ID), zap.String("price", rec.Fields["price"]))
		}
		cards = append(cards, ProductCard{
			ID:       rec.ID,
			Name:     rec.Fields["name"],
			Category: rec.Fields["category"],
			Price:    price,
			ImageURL: rec.Fields["image_url"],
			Sizes:    splitList(rec.Fields["sizes"]),
			Colors:   splitList(rec.Fields["colors"]),
		})
	}
	return cards
}

func (e *Enricher) storeInfo(lowered string, hits []retrieval.Record) []StoreInfo {
	mentioned := make([]retrieval.Record, 0, len(hits))
	for _, rec := range hits {
		name := strings.ToLower(rec.Fields["name"])
		mall := strings.ToLower(rec.Fields["mall_name"])
		if (name != "" && strings.Contains(lowered, name)) || (mall != "" && strings.Contains(lowered, mall)) {
			mentioned = append(mentioned, rec)
		}
	}
	if len(mentioned) == 0 {
		mentioned = hits
	}
	if len(mentioned) > maxCards {
		mentioned = mentioned[:maxCards]
	}

	infos := make([]StoreInfo, 0, len(mentioned))
	for _, rec := range mentioned {
		lat, _ := strconv.ParseFloat(rec.Fields["latitude"], 64)
		lng, _ := strconv.ParseFloat(rec.Fields["longitude"], 64)
		info := StoreInfo{
			ID:        rec.ID,
			Name:      rec.Fields["name"],
			MallName:  rec.Fields["mall_name"],
			City:      rec.Fields["city"],
			Hours:     rec.Fields["hours"],
			Latitude:  lat,
			Longitude: lng,
		}
		if rec.Distance >= 0 {
			info.DistanceKm = rec.Distance
		}
		infos = append(infos, info)
	}
	return infos
}

// actionable reports whether the turn warrants a call-to-action button:
// at least one product card, or a stock line with units on hand.
func (e *Enricher) actionable(cards []ProductCard, inventory []retrieval.Record) bool {
	if len(cards) > 0 {
		return true
	}
	for _, rec := range inventory {
		if units, err := strconv.Atoi(rec.Fields["total_units"]); err == nil && units > 0 {
			return true
		}
	}
	return false
}

func loyaltyNote(tier string) string {
	switch tier {
	case "Gold":
		return "As a Gold member you get 15% off these items."
	case "Silver":
		return "As a Silver member you get 10% off these items."
	default:
		return ""
	}
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Summary is a short human-readable line for logs.
func (en Enrichment) Summary() string {
	return fmt.Sprintf("products=%d stores=%d map=%t cta=%t",
		len(en.Products), len(en.Stores), en.ShowMap, en.ShowCTA)
}

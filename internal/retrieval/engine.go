package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/classifier"
	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/embedding"
	"github.com/storesage/storesage/internal/model"
)

// indexed pairs a prepared record with its precomputed embedding.
type indexed struct {
	rec    Record
	vector []float64
}

// Engine answers retrieval queries over the in-memory catalog index.
// The index is read-only after construction; refreshing the catalog means
// building a new Engine.
type Engine struct {
	db       *gorm.DB
	embedder embedding.Provider
	cfg      config.RetrievalConfig
	logger   *zap.Logger

	products   []indexed
	stores     []indexed
	promotions []indexed
	inventory  []model.InventoryEntry
}

// NewEngine loads the catalog, ensuring every record has an embedding for
// the active model (missing ones are computed in batch and persisted).
func NewEngine(db *gorm.DB, embedder embedding.Provider, cfg config.RetrievalConfig, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		db:       db,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}

	ctx := context.Background()

	var products []model.Product
	if err := db.Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	for i := range products {
		vector, err := e.recordVector(ctx, &products[i].Embedding, &products[i].EmbeddingModel, products[i].EmbeddingText(), &model.Product{}, products[i].ID)
		if err != nil {
			return nil, err
		}
		e.products = append(e.products, indexed{rec: productRecord(&products[i]), vector: vector})
	}

	var stores []model.Store
	if err := db.Order("id").Find(&stores).Error; err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	for i := range stores {
		vector, err := e.recordVector(ctx, &stores[i].Embedding, &stores[i].EmbeddingModel, stores[i].EmbeddingText(), &model.Store{}, stores[i].ID)
		if err != nil {
			return nil, err
		}
		e.stores = append(e.stores, indexed{rec: storeRecord(&stores[i]), vector: vector})
	}

	var promotions []model.Promotion
	if err := db.Order("id").Find(&promotions).Error; err != nil {
		return nil, fmt.Errorf("failed to load promotions: %w", err)
	}
	for i := range promotions {
		vector, err := e.recordVector(ctx, &promotions[i].Embedding, &promotions[i].EmbeddingModel, promotions[i].EmbeddingText(), &model.Promotion{}, promotions[i].ID)
		if err != nil {
			return nil, err
		}
		e.promotions = append(e.promotions, indexed{rec: promotionRecord(&promotions[i]), vector: vector})
	}

	if err := db.Order("id").Find(&e.inventory).Error; err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	logger.Info("retrieval index built",
		zap.Int("products", len(e.products)),
		zap.Int("stores", len(e.stores)),
		zap.Int("promotions", len(e.promotions)),
		zap.Int("inventory", len(e.inventory)),
		zap.String("embedding_model", embedder.Model()))

	return e, nil
}

// recordVector returns the stored embedding when it matches the active
// model, otherwise computes and persists a fresh one.
func (e *Engine) recordVector(ctx context.Context, stored *string, storedModel *string, text string, table interface{ TableName() string }, id string) ([]float64, error) {
	if *stored != "" && *storedModel == e.embedder.Model() {
		vector, err := embedding.JSONToVector(*stored)
		if err == nil && vector != nil {
			return vector, nil
		}
		e.logger.Warn("stored embedding unreadable, recomputing", zap.String("id", id), zap.Error(err))
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed record %s: %w", id, err)
	}

	encoded, err := embedding.VectorToJSON(vector)
	if err == nil {
		if err := e.db.Model(table).Where("id = ?", id).
			Updates(map[string]any{"embedding": encoded, "embedding_model": e.embedder.Model()}).Error; err != nil {
			e.logger.Warn("failed to persist embedding", zap.String("id", id), zap.Error(err))
		}
	}

	*stored = encoded
	*storedModel = e.embedder.Model()
	return vector, nil
}

// Retrieve returns ranked records per source for a classified query. An
// empty result set is valid; it is never an error.
func (e *Engine) Retrieve(ctx context.Context, q Query) (*ResultSet, error) {
	lowered := strings.ToLower(q.Text)
	sizes := ExtractSizes(q.Text)

	var queryVector []float64
	if strings.TrimSpace(q.Text) != "" {
		vector, err := e.embedder.Embed(ctx, q.Text)
		if err != nil {
			// Degrade to keyword-only matching rather than failing the turn.
			e.logger.Warn("query embedding failed, keyword matching only", zap.Error(err))
		} else {
			queryVector = vector
		}
	}

	rs := &ResultSet{}

	if intentIn(q.Intent, classifier.IntentProductAvailability, classifier.IntentRecommendation, classifier.IntentGeneral) {
		rs.Products = e.rankIndexed(e.products, queryVector, lowered, e.cfg.ProductTopK, nil)
	}

	if intentIn(q.Intent, classifier.IntentStoreLocator, classifier.IntentProductAvailability, classifier.IntentGeneral) {
		rs.Stores = e.rankIndexed(e.stores, queryVector, lowered, e.cfg.StoreTopK, q.Location)
	}

	if intentIn(q.Intent, classifier.IntentPromotion, classifier.IntentGeneral) {
		rs.Promotions = e.rankIndexed(e.promotions, queryVector, lowered, e.cfg.PromotionTopK, nil)
	}

	if q.Intent == classifier.IntentProductAvailability {
		rs.Inventory = e.matchInventory(lowered, sizes)
	}

	if q.UserID != "" {
		rs.Profile = e.profileRecord(q.UserID)
	}

	return rs, nil
}

// rankIndexed scores one source: cosine similarity plus the keyword boost
// for exact name matches, threshold filter, deterministic ordering, top-k.
func (e *Engine) rankIndexed(source []indexed, queryVector []float64, lowered string, topK int, location *classifier.Location) []Record {
	var hits []Record
	for _, ix := range source {
		rec := ix.rec
		rec.Score = cosineSimilarity(queryVector, ix.vector)
		if e.exactMatch(rec, lowered) {
			rec.Score += e.cfg.KeywordBoost
			rec.ExactMatch = true
		}
		if rec.Score < e.cfg.MinScore {
			continue
		}
		if location != nil && rec.Source == SourceStore {
			lat, _ := strconv.ParseFloat(rec.Fields["latitude"], 64)
			lng, _ := strconv.ParseFloat(rec.Fields["longitude"], 64)
			rec.Distance = haversineKm(location.Latitude, location.Longitude, lat, lng)
		}
		hits = append(hits, rec)
	}

	sortRecords(hits, location != nil)

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// exactMatch reports whether the query names the record directly.
func (e *Engine) exactMatch(rec Record, lowered string) bool {
	switch rec.Source {
	case SourceProduct:
		return nameMentioned(lowered, rec.Fields["name"])
	case SourceStore:
		return nameMentioned(lowered, rec.Fields["name"], rec.Fields["mall_name"])
	case SourcePromotion:
		return nameMentioned(lowered, rec.Fields["name"]) || containsName(lowered, rec.Fields["promo_code"])
	}
	return false
}

// matchInventory keyword-matches inventory lines for availability queries.
// A line qualifies when the query names its product or store; a size match
// adds the keyword boost and the per-size stock detail.
func (e *Engine) matchInventory(lowered string, sizes []string) []Record {
	var hits []Record
	for i := range e.inventory {
		entry := &e.inventory[i]
		if !nameMentioned(lowered, entry.ProductName, entry.StoreName) {
			continue
		}

		rec := inventoryRecord(entry)
		rec.Score = 0.9

		stock := entry.SizeStock()
		for _, size := range sizes {
			if units, ok := stock[size]; ok {
				rec.Score += e.cfg.KeywordBoost
				rec.ExactMatch = true
				rec.Text += fmt.Sprintf(" Size %s: %d units available.", size, units)
				rec.Fields["matched_size"] = size
				rec.Fields["matched_size_units"] = strconv.Itoa(units)
				break
			}
		}

		hits = append(hits, rec)
	}

	sortRecords(hits, false)
	return hits
}

// profileRecord looks up the user's preference profile. A missing profile
// is not an error; the turn simply proceeds without personalization.
func (e *Engine) profileRecord(userID string) *Record {
	var profile model.UserProfile
	if err := e.db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			e.logger.Warn("failed to load user profile", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	rec := profileRecordFrom(&profile)
	rec.Score = 1.0
	return &rec
}

// sortRecords orders hits deterministically: exact matches first, then
// store proximity when geolocation applies, then score, then record ID.
func sortRecords(hits []Record, byDistance bool) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].ExactMatch != hits[j].ExactMatch {
			return hits[i].ExactMatch
		}
		if byDistance && hits[i].Distance >= 0 && hits[j].Distance >= 0 && hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

func intentIn(intent classifier.Intent, candidates ...classifier.Intent) bool {
	for _, c := range candidates {
		if intent == c {
			return true
		}
	}
	return false
}

// ==================== record construction ====================

func productRecord(p *model.Product) Record {
	return Record{
		Source:   SourceProduct,
		ID:       p.ID,
		Text:     p.EmbeddingText(),
		Distance: -1,
		Fields: map[string]string{
			"id":            p.ID,
			"name":          p.Name,
			"category":      p.Category,
			"price":         strconv.FormatFloat(p.Price, 'f', 2, 64),
			"description":   p.Description,
			"sizes":         strings.Join(p.SizeList(), ", "),
			"colors":        strings.Join(p.ColorList(), ", "),
			"image_url":     p.ImageURL,
			"supplier_code": p.SupplierCode,
		},
	}
}

func storeRecord(s *model.Store) Record {
	// The rendered text includes contact and address detail on purpose:
	// the redaction filter owns stripping it before the trust boundary.
	text := s.EmbeddingText() +
		fmt.Sprintf(" Contact: %s, %s.", s.Phone, s.Email) +
		fmt.Sprintf(" Address: %s, %s %s.", s.AddressLine, s.PostalCode, s.City)
	return Record{
		Source:   SourceStore,
		ID:       s.ID,
		Text:     text,
		Distance: -1,
		Fields: map[string]string{
			"id":           s.ID,
			"name":         s.Name,
			"mall_name":    s.MallName,
			"city":         s.City,
			"hours":        s.Hours,
			"services":     strings.Join(s.ServiceList(), ", "),
			"latitude":     strconv.FormatFloat(s.Latitude, 'f', 6, 64),
			"longitude":    strconv.FormatFloat(s.Longitude, 'f', 6, 64),
			"address_line": s.AddressLine,
			"postal_code":  s.PostalCode,
			"phone":        s.Phone,
			"email":        s.Email,
			"manager_name": s.ManagerName,
		},
	}
}

func inventoryRecord(e *model.InventoryEntry) Record {
	return Record{
		Source:   SourceInventory,
		ID:       e.ID,
		Text:     e.EmbeddingText(),
		Distance: -1,
		Fields: map[string]string{
			"id":                e.ID,
			"product_id":        e.ProductID,
			"product_name":      e.ProductName,
			"store_id":          e.StoreID,
			"store_name":        e.StoreName,
			"total_units":       strconv.Itoa(e.TotalUnits),
			"restock_source_id": e.RestockSourceID,
			"last_order_id":     e.LastOrderID,
		},
	}
}

func promotionRecord(p *model.Promotion) Record {
	return Record{
		Source:   SourcePromotion,
		ID:       p.ID,
		Text:     p.EmbeddingText(),
		Distance: -1,
		Fields: map[string]string{
			"id":           p.ID,
			"name":         p.Name,
			"description":  p.Description,
			"type":         p.Type,
			"promo_code":   p.PromoCode,
			"campaign_key": p.CampaignKey,
			"start_date":   p.StartDate,
			"end_date":     p.EndDate,
		},
	}
}

func profileRecordFrom(u *model.UserProfile) Record {
	size := u.SizePreferenceValue()
	favorite := u.FavoriteStoreValue()
	return Record{
		Source:   SourceProfile,
		ID:       u.UserID,
		Text:     u.EmbeddingText(),
		Distance: -1,
		Fields: map[string]string{
			"user_id":        u.UserID,
			"name":           u.Name,
			"email":          u.Email,
			"loyalty_tier":   u.LoyaltyTier,
			"preferred_size": size.Shoes,
			"favorite_store": favorite.StoreName,
		},
	}
}

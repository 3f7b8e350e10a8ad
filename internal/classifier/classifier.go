// Package classifier maps free-text customer queries to a coarse intent
// and sentiment using an injected, immutable trigger vocabulary.
package classifier

import (
	"sort"
	"strings"
)

// Intent is the coarse category of user purpose.
type Intent string

// Known intents, most specific first. Declaration order doubles as the
// tie-break priority when several intents score equally.
const (
	IntentProductAvailability Intent = "product_availability"
	IntentStoreLocator        Intent = "store_locator"
	IntentRecommendation      Intent = "recommendation"
	IntentPromotion           Intent = "promotion"
	IntentGeneral             Intent = "general"
)

// Sentiment is the coarse affect classification of the query text.
type Sentiment string

// Known sentiments.
const (
	SentimentUrgent     Sentiment = "urgent"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentExcited    Sentiment = "excited"
	SentimentNeutral    Sentiment = "neutral"
)

// confidenceSaturation is the trigger-match count at which confidence
// reaches 1.0. Three distinct triggers is as sure as this classifier gets.
const confidenceSaturation = 3.0

// intentPriority resolves score ties: lower index wins.
var intentPriority = []Intent{
	IntentProductAvailability,
	IntentStoreLocator,
	IntentRecommendation,
	IntentPromotion,
	IntentGeneral,
}

// Result is the outcome of classifying one query.
type Result struct {
	Intent     Intent    `json:"intent"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Keywords   []string  `json:"keywords"` // trigger terms that matched, longest first
}

// Location is an optional user geolocation hint.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Classifier scores queries against an immutable vocabulary.
type Classifier struct {
	intents    []entry // sorted by term length desc, then declaration order
	sentiments []entry
}

type entry struct {
	term      string
	intent    Intent
	sentiment Sentiment
	order     int
}

// New builds a Classifier from the given vocabulary. The vocabulary is
// copied; later mutation of the input maps does not affect the classifier.
func New(vocab Vocabulary) *Classifier {
	c := &Classifier{}
	order := 0
	for _, intent := range intentPriority {
		for _, term := range vocab.Intents[intent] {
			c.intents = append(c.intents, entry{term: strings.ToLower(term), intent: intent, order: order})
			order++
		}
	}
	for _, sentiment := range []Sentiment{SentimentUrgent, SentimentFrustrated, SentimentExcited} {
		for _, term := range vocab.Sentiments[sentiment] {
			c.sentiments = append(c.sentiments, entry{term: strings.ToLower(term), sentiment: sentiment, order: order})
			order++
		}
	}
	// Longest term first so the most specific trigger wins overlaps.
	byLength := func(entries []entry) {
		sort.SliceStable(entries, func(i, j int) bool {
			if len(entries[i].term) != len(entries[j].term) {
				return len(entries[i].term) > len(entries[j].term)
			}
			return entries[i].order < entries[j].order
		})
	}
	byLength(c.intents)
	byLength(c.sentiments)
	return c
}

// Classify maps a message to intent and sentiment. It never fails: empty
// or unmatched input classifies as general/neutral.
func (c *Classifier) Classify(message string, location *Location) Result {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Result{Intent: IntentGeneral, Sentiment: SentimentNeutral, Confidence: 0.5}
	}

	scores := make(map[Intent]int)
	var keywords []string
	matched := text
	for _, e := range c.intents {
		if !strings.Contains(matched, e.term) {
			continue
		}
		scores[e.intent]++
		keywords = append(keywords, e.term)
		// Consume the match so a shorter term embedded in a longer one
		// ("store" inside "find store") does not double count.
		matched = strings.Replace(matched, e.term, " ", 1)
	}

	// A provided location nudges store_locator when it already matched.
	if location != nil && scores[IntentStoreLocator] > 0 {
		scores[IntentStoreLocator]++
	}

	intent := IntentGeneral
	confidence := 0.5
	best := 0
	for _, candidate := range intentPriority {
		if scores[candidate] > best {
			best = scores[candidate]
			intent = candidate
		}
	}
	if best > 0 {
		confidence = float64(best) / confidenceSaturation
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	sentiment := SentimentNeutral
	sentScores := make(map[Sentiment]int)
	sentMatched := text
	for _, e := range c.sentiments {
		if strings.Contains(sentMatched, e.term) {
			sentScores[e.sentiment]++
			sentMatched = strings.Replace(sentMatched, e.term, " ", 1)
		}
	}
	bestSent := 0
	for _, candidate := range []Sentiment{SentimentUrgent, SentimentFrustrated, SentimentExcited} {
		if sentScores[candidate] > bestSent {
			bestSent = sentScores[candidate]
			sentiment = candidate
		}
	}

	if len(keywords) > 5 {
		keywords = keywords[:5]
	}

	return Result{
		Intent:     intent,
		Sentiment:  sentiment,
		Confidence: confidence,
		Keywords:   keywords,
	}
}

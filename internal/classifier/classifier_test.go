package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	c := New(DefaultVocabulary())

	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{"availability", "Do you have the Pegasus in stock?", IntentProductAvailability},
		{"store locator", "Where is your nearest store?", IntentStoreLocator},
		{"recommendation", "Recommend something best for marathon training", IntentRecommendation},
		{"promotion", "Any discount or promo codes this week?", IntentPromotion},
		{"general", "Tell me about your brand", IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message, nil)
			assert.Equal(t, tt.want, got.Intent)
		})
	}
}

func TestClassifySentiment(t *testing.T) {
	c := New(DefaultVocabulary())

	assert.Equal(t, SentimentUrgent, c.Classify("I need these shoes asap for race day", nil).Sentiment)
	assert.Equal(t, SentimentFrustrated, c.Classify("I'm really disappointed, my order is still waiting", nil).Sentiment)
	assert.Equal(t, SentimentExcited, c.Classify("Can't wait for the new drop, love it", nil).Sentiment)
	assert.Equal(t, SentimentNeutral, c.Classify("what are your opening hours", nil).Sentiment)
}

func TestClassifyEmptyMessage(t *testing.T) {
	c := New(DefaultVocabulary())

	got := c.Classify("   ", nil)
	assert.Equal(t, IntentGeneral, got.Intent)
	assert.Equal(t, SentimentNeutral, got.Sentiment)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Empty(t, got.Keywords)
}

func TestClassifyLocationNudgesStoreLocator(t *testing.T) {
	c := New(DefaultVocabulary())

	// "available" (availability) and "nearest" + location tip the balance
	// to the locator.
	msg := "is it available at your nearest branch"
	without := c.Classify(msg, nil)
	with := c.Classify(msg, &Location{Latitude: 3.15, Longitude: 101.71})

	assert.Equal(t, IntentProductAvailability, without.Intent, "tie resolves to the more specific intent")
	assert.Equal(t, IntentStoreLocator, with.Intent)
}

func TestClassifyConsumesOverlappingTerms(t *testing.T) {
	c := New(DefaultVocabulary())

	// "find store" must not also count its substring "store".
	got := c.Classify("help me find store locations", nil)
	assert.Equal(t, IntentStoreLocator, got.Intent)
	for i, kw := range got.Keywords {
		for j, other := range got.Keywords {
			if i != j {
				assert.False(t, kw == other, "keyword %q counted twice", kw)
			}
		}
	}
}

func TestClassifyConfidenceScalesWithMatches(t *testing.T) {
	c := New(DefaultVocabulary())

	one := c.Classify("any promo?", nil)
	three := c.Classify("any promo, discount or member deal?", nil)
	assert.Greater(t, three.Confidence, one.Confidence)
	assert.LessOrEqual(t, three.Confidence, 1.0)
}

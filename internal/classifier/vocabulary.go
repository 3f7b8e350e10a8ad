package classifier

// Vocabulary maps trigger terms to intent and sentiment tags. It is plain
// data so deployments and tests can swap it out wholesale.
type Vocabulary struct {
	Intents    map[Intent][]string
	Sentiments map[Sentiment][]string
}

// DefaultVocabulary returns the built-in retail vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Intents: map[Intent][]string{
			IntentProductAvailability: {
				"do you have", "in stock", "check stock", "availability",
				"available", "size", "color", "variant",
			},
			IntentStoreLocator: {
				"where", "location", "nearest", "store", "address",
				"directions", "how to get", "find store", "near me",
			},
			IntentRecommendation: {
				"recommend", "suggest", "what should", "best for",
				"looking for", "help me find", "show me", "need", "want",
			},
			IntentPromotion: {
				"sale", "discount", "promo", "offer", "deal",
				"coupon", "loyalty", "member", "save", "cheap",
			},
		},
		Sentiments: map[Sentiment][]string{
			SentimentUrgent: {
				"asap", "urgent", "immediately", "right now", "hurry",
				"need soon", "time sensitive", "quick",
			},
			SentimentFrustrated: {
				"frustrated", "annoyed", "disappointed", "unhappy",
				"terrible", "worst", "still waiting",
			},
			SentimentExcited: {
				"excited", "can't wait", "awesome", "amazing", "fantastic",
				"love", "perfect", "great",
			},
		},
	}
}

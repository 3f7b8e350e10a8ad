package retrieval

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// cosineSimilarity computes the cosine similarity of two vectors. Mismatched
// dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// haversineKm computes the great-circle distance between two points in km.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

var sizePattern = regexp.MustCompile(`(?i)\b(?:size\s+)?(\d{1,2}(?:\.5)?|XS|S|M|L|XL|XXL)\b`)

// ExtractSizes pulls size mentions ("size 10", "XL") out of a query.
func ExtractSizes(text string) []string {
	matches := sizePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	var sizes []string
	for _, m := range matches {
		size := strings.ToUpper(m[1])
		if !seen[size] {
			seen[size] = true
			sizes = append(sizes, size)
		}
	}
	return sizes
}

// containsName reports whether the lowercased query mentions name.
func containsName(loweredQuery, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name != "" && strings.Contains(loweredQuery, name)
}

// genericNameWords are name tokens too common to identify a record on
// their own ("KLCC" pins a store, "store" does not).
var genericNameWords = map[string]bool{
	"store": true, "outlet": true, "flagship": true, "shopping": true,
	"centre": true, "center": true, "mall": true, "kuala": true,
	"lumpur": true, "shoe": true, "shoes": true, "running": true,
	"training": true, "lifestyle": true,
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func tokenSet(lowered string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(lowered, notAlnum) {
		set[tok] = true
	}
	return set
}

// nameMentioned reports whether the query names one of the given records,
// either by full name or by a distinctive token of at least four runes
// ("pegasus", "klcc", "vaporfly").
func nameMentioned(loweredQuery string, names ...string) bool {
	for _, name := range names {
		if containsName(loweredQuery, name) {
			return true
		}
	}
	queryTokens := tokenSet(loweredQuery)
	for _, name := range names {
		for _, tok := range strings.FieldsFunc(strings.ToLower(name), notAlnum) {
			if len(tok) >= 4 && !genericNameWords[tok] && queryTokens[tok] {
				return true
			}
		}
	}
	return false
}

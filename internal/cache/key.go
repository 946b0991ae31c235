package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

// searchKeyPrefix namespaces search result entries in the shared store.
const searchKeyPrefix = "flights:search:"

// SearchKey derives the cache key for a normalized search request: a
// sha256 of its canonical JSON serialization, prefixed with the search
// namespace. Maps marshal with lexicographically sorted keys, so field
// insertion order can never change the hash; date canonicalization has
// already happened in SearchRequest.Normalize. Leg order is preserved:
// reversed trips are different searches.
func SearchKey(req model.SearchRequest) string {
	legs := make([]map[string]string, len(req.Legs))
	for i, leg := range req.Legs {
		legs[i] = map[string]string{
			"date":        leg.Date,
			"destination": leg.Destination,
			"origin":      leg.Origin,
		}
	}
	canonical := map[string]any{
		"ADT":   req.Adults,
		"CNN":   req.Children,
		"INF":   req.Infants,
		"cabin": req.Cabin,
		"legs":  legs,
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return searchKeyPrefix + hex.EncodeToString(sum[:])
}

package search

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/geocoder"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// strategyPass is one rung of the degrade-gracefully ladder: prefer the
// authentic entity, fall back to a generic category, then relax the radius
// once for essential keywords, and finally give up. Fabrication is never an
// option.
type strategyPass struct {
	name        types.StrategyPass
	query       string
	radiusKm    float64
	generalized bool
}

// buildPasses assembles the ordered pass list for one keyword against one
// destination.
func buildPasses(kw types.SearchKeyword, dest types.Destination, expansionFactor float64) []strategyPass {
	noun := NounFor(kw)
	nounQuery := fmt.Sprintf("%s, %s", noun, dest.Name)

	passes := []strategyPass{
		{
			name:     types.PassSpecificEntity,
			query:    fmt.Sprintf("%s, %s", kw.Term, dest.Name),
			radiusKm: dest.RadiusKm,
		},
		{
			name:        types.PassNounFallback,
			query:       nounQuery,
			radiusKm:    dest.RadiusKm,
			generalized: true,
		},
	}
	if kw.Essential {
		passes = append(passes, strategyPass{
			name:        types.PassRelaxedRadius,
			query:       nounQuery,
			radiusKm:    dest.RadiusKm * expansionFactor,
			generalized: true,
		})
	}
	return passes
}

// nounTable maps fragments of a keyword to the generic category noun used by
// the fallback pass.
var nounTable = []struct {
	fragment string
	noun     string
}{
	{"bookshop", "bookshop"},
	{"bookstore", "bookshop"},
	{"library", "library"},
	{"museum", "museum"},
	{"gallery", "art gallery"},
	{"ruin", "historic site"},
	{"castle", "castle"},
	{"palace", "palace"},
	{"fort", "fort"},
	{"temple", "temple"},
	{"church", "church"},
	{"cathedral", "cathedral"},
	{"mosque", "mosque"},
	{"cave", "cave"},
	{"beach", "beach"},
	{"hotel", "hotel"},
	{"hostel", "hostel"},
	{"restaurant", "restaurant"},
	{"seafood", "restaurant"},
	{"food", "restaurant"},
	{"cafe", "cafe"},
	{"coffee", "cafe"},
	{"bar", "bar"},
	{"pub", "pub"},
	{"market", "market"},
	{"park", "park"},
	{"garden", "garden"},
	{"viewpoint", "viewpoint"},
	{"waterfall", "waterfall"},
	{"lake", "lake"},
	{"theatre", "theatre"},
	{"theater", "theatre"},
	{"cemetery", "cemetery"},
	{"monument", "monument"},
	{"bridge", "bridge"},
	{"tower", "tower"},
	{"zoo", "zoo"},
	{"aquarium", "aquarium"},
}

// CategoryNoun maps a single word to a known category noun, when one exists.
// The orchestrator uses it to decide whether feedback introduces a place
// category the current draft does not cover.
func CategoryNoun(word string) (string, bool) {
	word = strings.ToLower(strings.TrimSuffix(word, "s"))
	for _, entry := range nounTable {
		if strings.Contains(word, entry.fragment) {
			return entry.noun, true
		}
	}
	return "", false
}

// NounFor derives the generic category noun for the fallback pass. The
// interpreter's category hint wins; otherwise a fragment lookup, and as a
// last resort the keyword's final word.
func NounFor(kw types.SearchKeyword) string {
	if c := strings.TrimSpace(kw.Category); c != "" {
		return strings.ToLower(c)
	}

	term := strings.ToLower(kw.Term)
	for _, entry := range nounTable {
		if strings.Contains(term, entry.fragment) {
			return entry.noun
		}
	}

	words := strings.Fields(term)
	if len(words) == 0 {
		return term
	}
	return strings.Trim(words[len(words)-1], ".,!?\"'")
}

// bestMatch picks the place nearest to the center; on a near-tie it prefers
// the one with the more complete metadata.
func bestMatch(center types.Coordinate, places []geocoder.Place) geocoder.Place {
	best := places[0]
	bestDist := types.DistanceKm(center, best.Coordinate)
	for _, p := range places[1:] {
		dist := types.DistanceKm(center, p.Coordinate)
		switch {
		case dist < bestDist-0.001:
			best, bestDist = p, dist
		case dist <= bestDist+0.001 && completeness(p) > completeness(best):
			best, bestDist = p, dist
		}
	}
	return best
}

func completeness(p geocoder.Place) int {
	score := 0
	for _, field := range []string{p.Name, p.DisplayName, p.Category, p.Type} {
		if field != "" {
			score++
		}
	}
	return score
}

func categoryOf(kw types.SearchKeyword, p geocoder.Place) string {
	if p.Type != "" {
		return p.Type
	}
	if p.Category != "" {
		return p.Category
	}
	return NounFor(kw)
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/geocoder"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func TestBuildPasses(t *testing.T) {
	t.Run("non-essential keyword gets two passes", func(t *testing.T) {
		passes := buildPasses(types.SearchKeyword{Term: "street food tour", Category: "market"}, vizag, 1.5)
		require.Len(t, passes, 2)

		assert.Equal(t, types.PassSpecificEntity, passes[0].name)
		assert.Equal(t, "street food tour, Visakhapatnam", passes[0].query)
		assert.Equal(t, 200.0, passes[0].radiusKm)
		assert.False(t, passes[0].generalized)

		assert.Equal(t, types.PassNounFallback, passes[1].name)
		assert.Equal(t, "market, Visakhapatnam", passes[1].query)
		assert.Equal(t, 200.0, passes[1].radiusKm)
		assert.True(t, passes[1].generalized)
	})

	t.Run("essential keyword adds a relaxed-radius pass", func(t *testing.T) {
		passes := buildPasses(types.SearchKeyword{Term: "Borra Caves", Category: "cave", Essential: true}, vizag, 1.5)
		require.Len(t, passes, 3)

		assert.Equal(t, types.PassRelaxedRadius, passes[2].name)
		assert.Equal(t, "cave, Visakhapatnam", passes[2].query)
		assert.Equal(t, 300.0, passes[2].radiusKm)
		assert.True(t, passes[2].generalized)
	})
}

func TestNounFor(t *testing.T) {
	t.Run("category hint wins", func(t *testing.T) {
		assert.Equal(t, "bookshop", NounFor(types.SearchKeyword{Term: "anything at all", Category: "Bookshop"}))
	})

	t.Run("fragment lookup", func(t *testing.T) {
		assert.Equal(t, "bookshop", NounFor(types.SearchKeyword{Term: "The Old Curiosity Bookshop"}))
		assert.Equal(t, "restaurant", NounFor(types.SearchKeyword{Term: "seafood dinner spots"}))
		assert.Equal(t, "historic site", NounFor(types.SearchKeyword{Term: "ancient ruins"}))
		assert.Equal(t, "cafe", NounFor(types.SearchKeyword{Term: "third wave coffee"}))
	})

	t.Run("falls back to the last word", func(t *testing.T) {
		assert.Equal(t, "promenade", NounFor(types.SearchKeyword{Term: "sunset promenade"}))
	})
}

func TestCategoryNoun(t *testing.T) {
	noun, ok := CategoryNoun("bookshops")
	assert.True(t, ok)
	assert.Equal(t, "bookshop", noun)

	noun, ok = CategoryNoun("beaches")
	assert.True(t, ok)
	assert.Equal(t, "beach", noun)

	_, ok = CategoryNoun("relaxed")
	assert.False(t, ok)
}

func TestBestMatch(t *testing.T) {
	center := types.Coordinate{Latitude: 51.5074, Longitude: -0.1278}

	t.Run("picks the nearest place", func(t *testing.T) {
		near := geocoder.Place{Name: "Near", Coordinate: types.Coordinate{Latitude: 51.51, Longitude: -0.13}}
		far := geocoder.Place{Name: "Far", Coordinate: types.Coordinate{Latitude: 52.2, Longitude: 0.12}}

		assert.Equal(t, "Near", bestMatch(center, []geocoder.Place{far, near}).Name)
	})

	t.Run("near-tie prefers the more complete record", func(t *testing.T) {
		bare := geocoder.Place{Coordinate: center}
		rich := geocoder.Place{
			Name:        "Rich",
			DisplayName: "Rich, London",
			Category:    "tourism",
			Type:        "attraction",
			Coordinate:  center,
		}

		assert.Equal(t, "Rich", bestMatch(center, []geocoder.Place{bare, rich}).Name)
	})
}

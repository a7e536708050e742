package itinerary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

func verifiedAt(name string, lat, lon float64) types.Candidate {
	return types.Candidate{
		Keyword:    name,
		Name:       name,
		Coordinate: types.Coordinate{Latitude: lat, Longitude: lon},
		Status:     types.VerificationVerified,
	}
}

func names(group []types.Candidate) []string {
	out := make([]string, 0, len(group))
	for _, c := range group {
		out = append(out, c.Name)
	}
	return out
}

func TestClusterByProximity(t *testing.T) {
	distance := HaversineDistancer{}

	t.Run("nearby places land on the same day", func(t *testing.T) {
		// Two tight pairs roughly 100km apart.
		candidates := []types.Candidate{
			verifiedAt("North A", 52.00, 0.00),
			verifiedAt("South A", 51.00, 0.00),
			verifiedAt("North B", 52.01, 0.01),
			verifiedAt("South B", 51.01, 0.01),
		}

		groups := ClusterByProximity(candidates, 2, distance)
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"North A", "North B"}, names(groups[0]))
		assert.Equal(t, []string{"South A", "South B"}, names(groups[1]))
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		candidates := []types.Candidate{
			verifiedAt("a", 51.50, -0.12),
			verifiedAt("b", 51.51, -0.10),
			verifiedAt("c", 51.49, -0.15),
			verifiedAt("d", 51.52, -0.08),
			verifiedAt("e", 51.48, -0.18),
		}

		first := ClusterByProximity(candidates, 2, distance)
		second := ClusterByProximity(candidates, 2, distance)
		assert.Equal(t, first, second)
	})

	t.Run("every candidate is assigned exactly once", func(t *testing.T) {
		candidates := []types.Candidate{
			verifiedAt("a", 51.50, -0.12),
			verifiedAt("b", 51.51, -0.10),
			verifiedAt("c", 48.85, 2.35),
			verifiedAt("d", 48.86, 2.34),
			verifiedAt("e", 41.15, -8.61),
		}

		groups := ClusterByProximity(candidates, 3, distance)
		require.Len(t, groups, 3)

		seen := make(map[string]int)
		total := 0
		for _, g := range groups {
			for _, c := range g {
				seen[c.Name]++
				total++
			}
		}
		assert.Equal(t, len(candidates), total)
		for name, count := range seen {
			assert.Equalf(t, 1, count, "candidate %s assigned %d times", name, count)
		}
	})

	t.Run("more days than candidates leaves free days", func(t *testing.T) {
		groups := ClusterByProximity([]types.Candidate{verifiedAt("only", 51.5, -0.12)}, 3, distance)
		require.Len(t, groups, 3)
		assert.Len(t, groups[0], 1)
		assert.Empty(t, groups[1])
		assert.Empty(t, groups[2])
	})

	t.Run("no candidates", func(t *testing.T) {
		groups := ClusterByProximity(nil, 2, distance)
		require.Len(t, groups, 2)
		assert.Empty(t, groups[0])
		assert.Empty(t, groups[1])
	})
}

package itinerary

import (
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ClusterByProximity groups candidates into day-sized clusters of nearby
// places. Greedy nearest-neighbour: each day is seeded with the highest-
// priority unassigned candidate, then filled with whichever remaining
// candidate is closest to the day's running centroid. Ties keep the earlier
// candidate, so identical inputs always produce identical grouping.
func ClusterByProximity(candidates []types.Candidate, days int, distance Distancer) [][]types.Candidate {
	if days <= 0 {
		days = 1
	}
	if len(candidates) == 0 {
		out := make([][]types.Candidate, days)
		for i := range out {
			out[i] = []types.Candidate{}
		}
		return out
	}

	capacity := (len(candidates) + days - 1) / days

	remaining := make([]types.Candidate, len(candidates))
	copy(remaining, candidates)

	groups := make([][]types.Candidate, 0, days)
	for day := 0; day < days; day++ {
		if len(remaining) == 0 {
			groups = append(groups, []types.Candidate{})
			continue
		}

		group := []types.Candidate{remaining[0]}
		remaining = remaining[1:]

		for len(group) < capacity && len(remaining) > 0 {
			center := centroid(group)
			bestIdx := 0
			bestDist := distance.DistanceKm(center, remaining[0].Coordinate)
			for i := 1; i < len(remaining); i++ {
				d := distance.DistanceKm(center, remaining[i].Coordinate)
				if d < bestDist {
					bestIdx, bestDist = i, d
				}
			}
			group = append(group, remaining[bestIdx])
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		}
		groups = append(groups, group)
	}

	// Overflow from rounding lands on the last day.
	if len(remaining) > 0 {
		groups[len(groups)-1] = append(groups[len(groups)-1], remaining...)
	}
	return groups
}

func centroid(group []types.Candidate) types.Coordinate {
	var lat, lon float64
	for _, c := range group {
		lat += c.Coordinate.Latitude
		lon += c.Coordinate.Longitude
	}
	n := float64(len(group))
	return types.Coordinate{Latitude: lat / n, Longitude: lon / n}
}

package search

import "sort"

// RankPlaces computes the ranking for a relevance matrix: the mean of each
// place column across all participant rows, sorted descending. Ties break by
// ascending place index so identical matrices always yield identical rankings.
//
// The full recompute is O(participants x places); both dimensions are small.
func RankPlaces(matrix [][]float64, placeCount int) []int {
	type placeScore struct {
		index int
		mean  float64
	}

	scores := make([]placeScore, placeCount)
	for j := 0; j < placeCount; j++ {
		total := 0.0
		for _, row := range matrix {
			total += row[j]
		}
		mean := 0.0
		if len(matrix) > 0 {
			mean = total / float64(len(matrix))
		}
		scores[j] = placeScore{index: j, mean: mean}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].mean > scores[b].mean
	})

	ranking := make([]int, placeCount)
	for i, s := range scores {
		ranking[i] = s.index
	}
	return ranking
}

// IdentityRanking returns the initial ranking 0..n-1 used when every matrix
// cell still holds the neutral seed.
func IdentityRanking(n int) []int {
	ranking := make([]int, n)
	for i := range ranking {
		ranking[i] = i
	}
	return ranking
}

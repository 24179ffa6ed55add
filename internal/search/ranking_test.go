package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankPlacesMeansAndOrder(t *testing.T) {
	matrix := [][]float64{
		{9, 2, 5},
		{1, 1, 1},
	}
	// means: [5, 1.5, 3]
	assert.Equal(t, []int{0, 2, 1}, RankPlaces(matrix, 3))
}

func TestRankPlacesTieBreaksByPlaceIndex(t *testing.T) {
	matrix := [][]float64{
		{4, 4, 7, 4},
	}
	assert.Equal(t, []int{2, 0, 1, 3}, RankPlaces(matrix, 4))
}

func TestRankPlacesIdempotent(t *testing.T) {
	matrix := [][]float64{
		{3, 8, 8, 1},
		{6, 2, 9, 5},
	}
	first := RankPlaces(matrix, 4)
	second := RankPlaces(matrix, 4)
	assert.Equal(t, first, second)
}

func TestRankPlacesIsPermutation(t *testing.T) {
	matrix := [][]float64{
		{2, 7, 4, 9, 1},
	}
	ranking := RankPlaces(matrix, 5)
	seen := make(map[int]bool)
	for _, idx := range ranking {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 5)
		assert.False(t, seen[idx], "place index %d ranked twice", idx)
		seen[idx] = true
	}
	assert.Len(t, ranking, 5)
}

func TestIdentityRanking(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, IdentityRanking(3))
	assert.Empty(t, IdentityRanking(0))
}

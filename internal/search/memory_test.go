package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

func seededSearch(id string) *domain.Search {
	now := time.Now().UTC()
	return &domain.Search{
		ID:              id,
		Query:           "pizza in rotterdam",
		CreatedBy:       "A",
		CreatedAt:       now,
		UpdatedAt:       now,
		Participants:    []string{"A"},
		Places:          testPlaces(),
		UserPrompts:     map[string]string{"A": ""},
		RelevanceMatrix: [][]float64{{1, 1, 1}},
		Ranking:         []int{0, 1, 2},
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s1")))

	got, err := store.GetSearch(ctx, "s1")
	require.NoError(t, err)

	// Mutating the returned session must not leak into store state.
	got.RelevanceMatrix[0][0] = 99
	got.Participants[0] = "evil"
	got.UserPrompts["A"] = "tampered"

	fresh, err := store.GetSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, fresh.RelevanceMatrix[0][0])
	assert.Equal(t, "A", fresh.Participants[0])
	assert.Equal(t, "", fresh.UserPrompts["A"])
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetSearch(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSearchNotFound)
}

func TestMemoryStoreMatrixInvariants(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s1")))

	for _, participant := range []string{"B", "C", "D"} {
		session, err := store.JoinSearch(ctx, "s1", participant)
		require.NoError(t, err)
		require.Len(t, session.RelevanceMatrix, len(session.Participants))
		for _, row := range session.RelevanceMatrix {
			require.Len(t, row, len(session.Places))
		}
	}
}

func TestMemoryStoreCommitAdjustmentAtomicSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s1")))
	_, err := store.JoinSearch(ctx, "s1", "B")
	require.NoError(t, err)

	session, err := store.CommitAdjustment(ctx, "s1", "B", "cheap eats", []float64{2, 8, 4})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1}, session.RelevanceMatrix[0])
	assert.Equal(t, []float64{2, 8, 4}, session.RelevanceMatrix[1])
	assert.Equal(t, "cheap eats", session.UserPrompts["B"])
	// means: [1.5, 4.5, 2.5]
	assert.Equal(t, []int{1, 2, 0}, session.Ranking)
	assert.False(t, session.UpdatedAt.Before(session.CreatedAt))
}

func TestMemoryStoreCommitAdjustmentCopiesRow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s1")))

	row := []float64{7, 7, 7}
	_, err := store.CommitAdjustment(ctx, "s1", "A", "p", row)
	require.NoError(t, err)

	row[0] = 0
	session, err := store.GetSearch(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 7.0, session.RelevanceMatrix[0][0])
}

func TestMemoryStoreListSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s1")))
	require.NoError(t, store.CreateSearch(ctx, seededSearch("s2")))

	sessions, err := store.ListSearches(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

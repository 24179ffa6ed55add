// Package search owns all collaborative search state: the session store, the
// relevance matrix, and the ranking algorithm. Every mutation funnels through
// a Store implementation, which is the sole writer of session fields.
package search

import (
	"context"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// Store persists search sessions. Implementations must apply each mutation
// atomically with respect to other mutations on the same session, and must
// return copies so callers never alias store-owned state.
type Store interface {
	// CreateSearch stores a fully initialized session.
	CreateSearch(ctx context.Context, search *domain.Search) error

	// GetSearch returns a copy of the session, or domain.ErrSearchNotFound.
	GetSearch(ctx context.Context, id string) (*domain.Search, error)

	// JoinSearch appends the participant with a neutral-seeded matrix row and
	// an empty prompt. Joining an unknown session is a silent no-op returning
	// (nil, nil); joining a session the participant is already in is likewise
	// a no-op that returns the unchanged session.
	JoinSearch(ctx context.Context, id, participantID string) (*domain.Search, error)

	// CommitAdjustment atomically replaces the participant's matrix row,
	// appends the prompt increment to the cumulative prompt, recomputes the
	// ranking from the post-commit matrix, and stamps UpdatedAt.
	CommitAdjustment(ctx context.Context, id, participantID, prompt string, row []float64) (*domain.Search, error)

	// AppendMessage appends a chat message to the session's history.
	AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Search, error)

	// DeleteSearch removes the session, reporting whether it existed.
	DeleteSearch(ctx context.Context, id string) (bool, error)

	// ListSearches returns a snapshot of all sessions, in no guaranteed order.
	ListSearches(ctx context.Context) ([]*domain.Search, error)

	Close() error
}

// accumulatePrompt joins a new preference increment onto the stored cumulative
// prompt. The first increment becomes the prompt verbatim.
func accumulatePrompt(previous, increment string) string {
	if previous == "" {
		return increment
	}
	return previous + "\n" + increment
}

package search

import (
	"context"
	"sync"
	"time"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// MemoryStore is the default process-lifetime Store. All state lives in a
// single map guarded by one mutex, which makes every mutation atomic with
// respect to concurrent adjustments on the same session.
type MemoryStore struct {
	mu       sync.RWMutex
	searches map[string]*domain.Search
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{searches: make(map[string]*domain.Search)}
}

// CreateSearch stores a copy of the session.
func (m *MemoryStore) CreateSearch(ctx context.Context, search *domain.Search) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[search.ID] = search.Clone()
	return nil
}

// GetSearch returns a copy of the session.
func (m *MemoryStore) GetSearch(ctx context.Context, id string) (*domain.Search, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search, ok := m.searches[id]
	if !ok {
		return nil, domain.ErrSearchNotFound
	}
	return search.Clone(), nil
}

// JoinSearch appends the participant with a neutral-seeded row.
func (m *MemoryStore) JoinSearch(ctx context.Context, id, participantID string) (*domain.Search, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search, ok := m.searches[id]
	if !ok {
		// Silent no-op: callers that need an error must check existence first.
		return nil, nil
	}
	if search.HasParticipant(participantID) {
		return search.Clone(), nil
	}
	search.Participants = append(search.Participants, participantID)
	search.UserPrompts[participantID] = ""
	row := make([]float64, len(search.Places))
	for j := range row {
		row[j] = domain.NeutralRelevance
	}
	search.RelevanceMatrix = append(search.RelevanceMatrix, row)
	search.UpdatedAt = time.Now().UTC()
	return search.Clone(), nil
}

// CommitAdjustment replaces the participant's row and recomputes the ranking
// under the store lock, so the ranking is always derived from the post-commit
// matrix even when two participants adjust simultaneously.
func (m *MemoryStore) CommitAdjustment(ctx context.Context, id, participantID, prompt string, row []float64) (*domain.Search, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search, ok := m.searches[id]
	if !ok {
		return nil, domain.ErrSearchNotFound
	}
	idx := search.ParticipantIndex(participantID)
	if idx < 0 {
		return nil, domain.ErrParticipantNotFound
	}
	search.UserPrompts[participantID] = accumulatePrompt(search.UserPrompts[participantID], prompt)
	search.RelevanceMatrix[idx] = append([]float64(nil), row...)
	search.Ranking = RankPlaces(search.RelevanceMatrix, len(search.Places))
	search.UpdatedAt = time.Now().UTC()
	return search.Clone(), nil
}

// AppendMessage appends a chat message to the session history.
func (m *MemoryStore) AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Search, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search, ok := m.searches[id]
	if !ok {
		return nil, domain.ErrSearchNotFound
	}
	search.ChatHistory = append(search.ChatHistory, msg)
	search.UpdatedAt = time.Now().UTC()
	return search.Clone(), nil
}

// DeleteSearch removes the session, reporting whether it existed.
func (m *MemoryStore) DeleteSearch(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.searches[id]
	delete(m.searches, id)
	return ok, nil
}

// ListSearches returns copies of all sessions.
func (m *MemoryStore) ListSearches(ctx context.Context) ([]*domain.Search, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Search, 0, len(m.searches))
	for _, search := range m.searches {
		out = append(out, search.Clone())
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

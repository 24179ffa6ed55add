package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// Scorer is the external relevance oracle: given a place, the original search
// query, and a participant's preference text, it estimates how relevant the
// place is. Calls may be slow and may fail; the service treats any failure as
// terminal for the adjustment.
type Scorer interface {
	Score(ctx context.Context, place domain.Place, query, preference string) (domain.Relevance, error)
}

// Service coordinates search session mutations and the scoring fan-out. It is
// the only component that talks to the Store.
type Service struct {
	store  Store
	scorer Scorer
	log    *zap.SugaredLogger
}

// NewService creates the search service.
func NewService(store Store, scorer Scorer, log *zap.SugaredLogger) *Service {
	return &Service{store: store, scorer: scorer, log: log}
}

// Create builds and stores a new search session: the creator is the sole
// participant, every matrix cell holds the neutral seed, and the ranking is
// the identity order over the places.
func (s *Service) Create(ctx context.Context, query, creatorID string, places []domain.Place) (*domain.Search, error) {
	now := time.Now().UTC()
	row := make([]float64, len(places))
	for j := range row {
		row[j] = domain.NeutralRelevance
	}
	search := &domain.Search{
		ID:              uuid.New().String(),
		Query:           query,
		CreatedBy:       creatorID,
		CreatedAt:       now,
		UpdatedAt:       now,
		Participants:    []string{creatorID},
		Places:          places,
		UserPrompts:     map[string]string{creatorID: ""},
		RelevanceMatrix: [][]float64{row},
		Ranking:         IdentityRanking(len(places)),
	}
	if err := s.store.CreateSearch(ctx, search); err != nil {
		return nil, err
	}
	s.log.Infow("search created", "search_id", search.ID, "created_by", creatorID, "places", len(places))
	return search, nil
}

// Get returns the session, or domain.ErrSearchNotFound.
func (s *Service) Get(ctx context.Context, id string) (*domain.Search, error) {
	return s.store.GetSearch(ctx, id)
}

// Join adds the participant to the session. Unknown sessions are a silent
// no-op returning (nil, nil); repeated joins return the unchanged session.
func (s *Service) Join(ctx context.Context, id, participantID string) (*domain.Search, error) {
	search, err := s.store.JoinSearch(ctx, id, participantID)
	if err != nil {
		return nil, err
	}
	if search != nil {
		s.log.Infow("participant joined search", "search_id", id, "participant", participantID)
	}
	return search, nil
}

// Adjust scores every place against the participant's new preference text and
// commits the resulting row. The scoring calls fan out concurrently and are
// joined before the commit: if any call fails, nothing is written and the
// participant's previous row stays intact.
func (s *Service) Adjust(ctx context.Context, id, participantID, prompt string) (*domain.Search, error) {
	search, err := s.store.GetSearch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !search.HasParticipant(participantID) {
		return nil, domain.ErrParticipantNotFound
	}

	row := make([]float64, len(search.Places))
	g, gctx := errgroup.WithContext(ctx)
	for j, place := range search.Places {
		j, place := j, place
		g.Go(func() error {
			result, err := s.scorer.Score(gctx, place, search.Query, prompt)
			if err != nil {
				return fmt.Errorf("score place %d: %w", j, err)
			}
			row[j] = result.Relevance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warnw("adjustment aborted", "search_id", id, "participant", participantID, "error", err)
		return nil, err
	}

	updated, err := s.store.CommitAdjustment(ctx, id, participantID, prompt, row)
	if err != nil {
		return nil, err
	}
	s.log.Infow("search adjusted", "search_id", id, "participant", participantID, "ranking", updated.Ranking)
	return updated, nil
}

// PostMessage appends a chat message to the session history. Chat is carried
// state only; it never influences the ranking.
func (s *Service) PostMessage(ctx context.Context, id, senderID, content string) (*domain.Search, error) {
	msg := domain.Message{
		ID:        uuid.New().String(),
		SearchID:  id,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return s.store.AppendMessage(ctx, id, msg)
}

// Delete removes the session, reporting whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteSearch(ctx, id)
}

// List returns a snapshot of all sessions.
func (s *Service) List(ctx context.Context) ([]*domain.Search, error) {
	return s.store.ListSearches(ctx)
}

// Package domain defines the core models for collaborative place searches.
package domain

import (
	"errors"
	"time"
)

// NeutralRelevance seeds every matrix row before a participant has scored
// anything, so unscored participants do not bias the ranking.
const NeutralRelevance = 1.0

var (
	// ErrSearchNotFound is returned when a search session id does not resolve.
	ErrSearchNotFound = errors.New("search session not found")

	// ErrParticipantNotFound is returned when an adjustment names a participant
	// that never joined the search.
	ErrParticipantNotFound = errors.New("participant not in search session")
)

// Message is one chat entry in a search session's history.
type Message struct {
	ID        string    `json:"id"`
	SearchID  string    `json:"sessionId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Search is a collaborative search session shared by several participants.
//
// Participants is append-only: the index of a participant is stable for the
// lifetime of the session and doubles as the row index into RelevanceMatrix.
// Places is fixed at creation; a place is identified by its column index.
type Search struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Participants []string `json:"participants"`
	Places       []Place  `json:"places"`

	// UserPrompts holds each participant's cumulative preference text,
	// newline-joined in the order the preferences arrived.
	UserPrompts map[string]string `json:"userPrompts"`

	// RelevanceMatrix has one row per participant and one column per place;
	// cell [i][j] is participant i's relevance estimate for place j.
	RelevanceMatrix [][]float64 `json:"relevanceMatrix"`

	// Ranking is a permutation of place indices, most relevant first.
	Ranking []int `json:"ranking"`

	ChatHistory []Message `json:"chatHistory"`
}

// ParticipantIndex returns the row index of a participant, or -1 when the
// participant never joined. First occurrence wins; joins are deduplicated so
// there is at most one.
func (s *Search) ParticipantIndex(participantID string) int {
	for i, id := range s.Participants {
		if id == participantID {
			return i
		}
	}
	return -1
}

// HasParticipant reports whether the participant is part of the search.
func (s *Search) HasParticipant(participantID string) bool {
	return s.ParticipantIndex(participantID) >= 0
}

// Clone returns a deep copy of the search so callers can hand sessions across
// goroutine boundaries without aliasing store-owned state.
func (s *Search) Clone() *Search {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = append([]string(nil), s.Participants...)
	c.Places = append([]Place(nil), s.Places...)
	c.Ranking = append([]int(nil), s.Ranking...)
	c.ChatHistory = append([]Message(nil), s.ChatHistory...)
	c.UserPrompts = make(map[string]string, len(s.UserPrompts))
	for k, v := range s.UserPrompts {
		c.UserPrompts[k] = v
	}
	c.RelevanceMatrix = make([][]float64, len(s.RelevanceMatrix))
	for i, row := range s.RelevanceMatrix {
		c.RelevanceMatrix[i] = append([]float64(nil), row...)
	}
	return &c
}

package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// SQLiteStore implements Store on SQLite, so the in-memory default can be
// swapped for a durable backend without touching the core's call sites.
// Sessions are stored as one row per search with JSON-encoded collaborative
// state; chat messages get their own table.
type SQLiteStore struct {
	db *sql.DB

	// SQLite has a single writer anyway; the mutex makes each
	// read-modify-write mutation atomic without SERIALIZABLE gymnastics.
	mu sync.Mutex
}

// NewSQLiteStore opens (and migrates) a SQLite-backed store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so the schema survives across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			search_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			created_by TEXT NOT NULL,
			participants TEXT NOT NULL,
			places TEXT NOT NULL,
			user_prompts TEXT NOT NULL,
			relevance_matrix TEXT NOT NULL,
			ranking TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			message_id TEXT PRIMARY KEY,
			search_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (search_id) REFERENCES searches(search_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_search ON chat_messages(search_id, created_at)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// CreateSearch stores the session.
func (s *SQLiteStore) CreateSearch(ctx context.Context, search *domain.Search) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSearch(ctx, search)
}

func (s *SQLiteStore) insertSearch(ctx context.Context, search *domain.Search) error {
	participants, err := json.Marshal(search.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	places, err := json.Marshal(search.Places)
	if err != nil {
		return fmt.Errorf("failed to encode places: %w", err)
	}
	prompts, err := json.Marshal(search.UserPrompts)
	if err != nil {
		return fmt.Errorf("failed to encode prompts: %w", err)
	}
	matrix, err := json.Marshal(search.RelevanceMatrix)
	if err != nil {
		return fmt.Errorf("failed to encode matrix: %w", err)
	}
	ranking, err := json.Marshal(search.Ranking)
	if err != nil {
		return fmt.Errorf("failed to encode ranking: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO searches (search_id, query, created_by, participants, places, user_prompts, relevance_matrix, ranking, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(search_id) DO UPDATE SET
			participants = excluded.participants,
			user_prompts = excluded.user_prompts,
			relevance_matrix = excluded.relevance_matrix,
			ranking = excluded.ranking,
			updated_at = excluded.updated_at`,
		search.ID, search.Query, search.CreatedBy,
		string(participants), string(places), string(prompts), string(matrix), string(ranking),
		search.CreatedAt, search.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store search: %w", err)
	}
	return nil
}

// GetSearch loads the session and its chat history.
func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*domain.Search, error) {
	return s.loadSearch(ctx, id)
}

func (s *SQLiteStore) loadSearch(ctx context.Context, id string) (*domain.Search, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT search_id, query, created_by, participants, places, user_prompts, relevance_matrix, ranking, created_at, updated_at
		FROM searches WHERE search_id = ?`, id)

	var search domain.Search
	var participants, places, prompts, matrix, ranking string
	err := row.Scan(&search.ID, &search.Query, &search.CreatedBy,
		&participants, &places, &prompts, &matrix, &ranking,
		&search.CreatedAt, &search.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSearchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load search: %w", err)
	}

	if err := json.Unmarshal([]byte(participants), &search.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	if err := json.Unmarshal([]byte(places), &search.Places); err != nil {
		return nil, fmt.Errorf("failed to decode places: %w", err)
	}
	if err := json.Unmarshal([]byte(prompts), &search.UserPrompts); err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	if err := json.Unmarshal([]byte(matrix), &search.RelevanceMatrix); err != nil {
		return nil, fmt.Errorf("failed to decode matrix: %w", err)
	}
	if err := json.Unmarshal([]byte(ranking), &search.Ranking); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}

	messages, err := s.loadMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	search.ChatHistory = messages
	return &search, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, searchID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, search_id, sender_id, content, created_at
		FROM chat_messages WHERE search_id = ? ORDER BY created_at, message_id`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SearchID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// JoinSearch appends the participant with a neutral-seeded row.
func (s *SQLiteStore) JoinSearch(ctx context.Context, id, participantID string) (*domain.Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search, err := s.loadSearch(ctx, id)
	if err == domain.ErrSearchNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if search.HasParticipant(participantID) {
		return search, nil
	}
	search.Participants = append(search.Participants, participantID)
	search.UserPrompts[participantID] = ""
	row := make([]float64, len(search.Places))
	for j := range row {
		row[j] = domain.NeutralRelevance
	}
	search.RelevanceMatrix = append(search.RelevanceMatrix, row)
	search.UpdatedAt = time.Now().UTC()
	if err := s.insertSearch(ctx, search); err != nil {
		return nil, err
	}
	return search, nil
}

// CommitAdjustment replaces the participant's row and recomputes the ranking.
func (s *SQLiteStore) CommitAdjustment(ctx context.Context, id, participantID, prompt string, row []float64) (*domain.Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search, err := s.loadSearch(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := search.ParticipantIndex(participantID)
	if idx < 0 {
		return nil, domain.ErrParticipantNotFound
	}
	search.UserPrompts[participantID] = accumulatePrompt(search.UserPrompts[participantID], prompt)
	search.RelevanceMatrix[idx] = append([]float64(nil), row...)
	search.Ranking = RankPlaces(search.RelevanceMatrix, len(search.Places))
	search.UpdatedAt = time.Now().UTC()
	if err := s.insertSearch(ctx, search); err != nil {
		return nil, err
	}
	return search, nil
}

// AppendMessage appends a chat message to the session history.
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg domain.Message) (*domain.Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.loadSearch(ctx, id); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (message_id, search_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, id, msg.SenderID, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE searches SET updated_at = ? WHERE search_id = ?`, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("failed to stamp search: %w", err)
	}
	return s.loadSearch(ctx, id)
}

// DeleteSearch removes the session and its messages.
func (s *SQLiteStore) DeleteSearch(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE search_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE search_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete search: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListSearches returns all stored sessions.
func (s *SQLiteStore) ListSearches(ctx context.Context) ([]*domain.Search, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT search_id FROM searches`)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	searches := make([]*domain.Search, 0, len(ids))
	for _, id := range ids {
		search, err := s.loadSearch(ctx, id)
		if err != nil {
			return nil, err
		}
		searches = append(searches, search)
	}
	return searches, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

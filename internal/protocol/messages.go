// Package protocol defines the WebSocket message protocol between
// participants and the server.
package protocol

import "github.com/Sagar-CK/pinpoint-ai/internal/domain"

// Message types from participant to server
const (
	TypeCreateSearch = "create-search"
	TypeJoinSearch   = "join-search"
	TypeAdjustSearch = "adjust-search"
	TypeChatMessage  = "chat-message"
)

// Message types from server to participant
const (
	TypeSessionCreated = "session-created"
	TypeSearchCreated  = "search-created"
	TypeSearchAdjusted = "search-adjusted"
	TypeSearchUpdated  = "search-updated"
	TypeChatReceived   = "chat-received"
	TypeError          = "error"
)

// BaseMessage is the envelope used to dispatch on message type.
type BaseMessage struct {
	Type string `json:"type"`
}

// CreateSearchMessage starts a new collaborative search.
type CreateSearchMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// JoinSearchMessage adds the sender to an existing search.
type JoinSearchMessage struct {
	Type            string `json:"type"`
	SearchSessionID string `json:"searchSessionId"`
}

// AdjustSearchMessage submits the sender's new preference text.
type AdjustSearchMessage struct {
	Type            string `json:"type"`
	SearchSessionID string `json:"searchSessionId"`
	Prompt          string `json:"prompt"`
}

// ChatMessageMessage posts a chat message into a search session.
type ChatMessageMessage struct {
	Type            string `json:"type"`
	SearchSessionID string `json:"searchSessionId"`
	Content         string `json:"content"`
}

// SessionCreatedMessage tells a freshly connected participant its id.
type SessionCreatedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// SearchMessage carries a full search session snapshot. Used for
// search-created, search-adjusted, and search-updated messages.
type SearchMessage struct {
	Type    string         `json:"type"`
	Session *domain.Search `json:"session"`
}

// ChatReceivedMessage fans a chat message out to all participants.
type ChatReceivedMessage struct {
	Type            string         `json:"type"`
	SearchSessionID string         `json:"searchSessionId"`
	Message         domain.Message `json:"message"`
}

// ErrorMessage reports a request failure to the sender only.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeSearchNotFound = "search_not_found"
	ErrorCodeOracleFailure  = "oracle_failure"
	ErrorCodePolicyDenied   = "policy_denied"
)

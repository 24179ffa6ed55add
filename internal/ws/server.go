// Package ws hosts the WebSocket dispatcher: it parses inbound participant
// requests, routes them to the search service, and fans resulting state out
// through the hub.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Sagar-CK/pinpoint-ai/internal/config"
	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
	"github.com/Sagar-CK/pinpoint-ai/internal/hub"
	"github.com/Sagar-CK/pinpoint-ai/internal/policy"
	"github.com/Sagar-CK/pinpoint-ai/internal/protocol"
	"github.com/Sagar-CK/pinpoint-ai/internal/search"
)

// requestTimeout bounds each dispatched request, oracle calls included.
const requestTimeout = 30 * time.Second

// PlaceSearcher is the place lookup oracle.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]domain.Place, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	svc      *search.Service
	places   PlaceSearcher
	guard    *policy.Engine
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *search.Service, places PlaceSearcher, guard *policy.Engine, log *zap.SugaredLogger) *Server {
	return &Server{
		cfg:    cfg,
		hub:    h,
		svc:    svc,
		places: places,
		guard:  guard,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Participants connect from arbitrary origins.
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Errorw("failed to upgrade websocket", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Tell the participant its id before anything else.
	if err := s.hub.SendJSONToConnection(conn, protocol.SessionCreatedMessage{
		Type:      protocol.TypeSessionCreated,
		SessionID: conn.ID,
	}); err != nil {
		s.log.Warnw("failed to queue session id", "participant", conn.ID, "error", err)
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warnw("websocket read error", "participant", conn.ID, "error", err)
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.SendDirect(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.SendDirect(websocket.TextMessage, message); err != nil {
				s.log.Warnw("failed to write message", "participant", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.SendDirect(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches an inbound message. A handler failure only ever
// produces an error reply to the sender; it never tears down other sessions.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Invalid message format")
		return
	}

	// Merge whatever the client sent into its connection metadata.
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err == nil {
		s.hub.UpdateData(conn.ID, meta)
	}

	decision, err := s.guard.Evaluate(context.Background(), meta)
	if err != nil {
		s.log.Errorw("policy evaluation failed", "error", err)
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Error processing request")
		return
	}
	if decision != "allow" {
		s.sendError(conn, protocol.ErrorCodePolicyDenied, "Request rejected by policy")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeCreateSearch:
		s.handleCreateSearch(conn, data)
	case protocol.TypeJoinSearch:
		s.handleJoinSearch(conn, data)
	case protocol.TypeAdjustSearch:
		s.handleAdjustSearch(conn, data)
	case protocol.TypeChatMessage:
		s.handleChatMessage(conn, data)
	default:
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Unrecognized message type")
	}
}

// handleCreateSearch looks up places for the query and creates the session.
// The reply goes to the requester only.
func (s *Server) handleCreateSearch(conn *hub.Connection, data []byte) {
	var msg protocol.CreateSearchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Invalid create-search message")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		placeList, err := s.places.Search(ctx, msg.Query)
		if err != nil {
			s.log.Warnw("place lookup failed", "participant", conn.ID, "error", err)
			s.sendError(conn, protocol.ErrorCodeOracleFailure, "Error fetching places")
			return
		}

		session, err := s.svc.Create(ctx, msg.Query, conn.ID, placeList)
		if err != nil {
			s.log.Errorw("create search failed", "participant", conn.ID, "error", err)
			s.sendError(conn, protocol.ErrorCodeOracleFailure, "Error processing search request")
			return
		}

		s.hub.SendJSONTo(conn.ID, protocol.SearchMessage{
			Type:    protocol.TypeSearchCreated,
			Session: session,
		})
	}()
}

// handleJoinSearch adds the sender to the session and broadcasts the updated
// session to every participant.
func (s *Server) handleJoinSearch(conn *hub.Connection, data []byte) {
	var msg protocol.JoinSearchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Invalid join-search message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// The store treats unknown sessions as a silent no-op; the sender still
	// deserves an explicit error, so check existence first.
	if _, err := s.svc.Get(ctx, msg.SearchSessionID); err != nil {
		s.sendError(conn, protocol.ErrorCodeSearchNotFound, "Search session not found")
		return
	}

	session, err := s.svc.Join(ctx, msg.SearchSessionID, conn.ID)
	if err != nil || session == nil {
		s.sendError(conn, protocol.ErrorCodeSearchNotFound, "Search session not found")
		return
	}

	s.hub.BroadcastTo(session.Participants, protocol.SearchMessage{
		Type:    protocol.TypeSearchUpdated,
		Session: session,
	})
}

// handleAdjustSearch scores the sender's preference against every place,
// replies to the sender, and broadcasts the updated session.
func (s *Server) handleAdjustSearch(conn *hub.Connection, data []byte) {
	var msg protocol.AdjustSearchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Invalid adjust-search message")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		session, err := s.svc.Adjust(ctx, msg.SearchSessionID, conn.ID, msg.Prompt)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrSearchNotFound):
				s.sendError(conn, protocol.ErrorCodeSearchNotFound, "Search session not found")
			case errors.Is(err, domain.ErrParticipantNotFound):
				s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Join the search before adjusting it")
			default:
				s.log.Warnw("adjust search failed", "participant", conn.ID, "error", err)
				s.sendError(conn, protocol.ErrorCodeOracleFailure, "Error processing search request")
			}
			return
		}

		s.hub.SendJSONTo(conn.ID, protocol.SearchMessage{
			Type:    protocol.TypeSearchAdjusted,
			Session: session,
		})
		s.hub.BroadcastTo(session.Participants, protocol.SearchMessage{
			Type:    protocol.TypeSearchUpdated,
			Session: session,
		})
	}()
}

// handleChatMessage appends a chat message and fans it out to participants.
func (s *Server) handleChatMessage(conn *hub.Connection, data []byte) {
	var msg protocol.ChatMessageMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "Invalid chat-message message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	session, err := s.svc.PostMessage(ctx, msg.SearchSessionID, conn.ID, msg.Content)
	if err != nil {
		s.sendError(conn, protocol.ErrorCodeSearchNotFound, "Search session not found")
		return
	}

	posted := session.ChatHistory[len(session.ChatHistory)-1]
	s.hub.BroadcastTo(session.Participants, protocol.ChatReceivedMessage{
		Type:            protocol.TypeChatReceived,
		SearchSessionID: session.ID,
		Message:         posted,
	})
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	s.hub.SendJSONTo(conn.ID, protocol.ErrorMessage{
		Type:    protocol.TypeError,
		Code:    code,
		Message: message,
	})
}

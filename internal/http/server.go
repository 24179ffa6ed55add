// Package http provides the HTTP surface next to the WebSocket route: health,
// search administration, and conversation-to-query planning.
package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
	"github.com/Sagar-CK/pinpoint-ai/internal/hub"
	"github.com/Sagar-CK/pinpoint-ai/internal/oracle/llm"
	"github.com/Sagar-CK/pinpoint-ai/internal/search"
)

// PlaceSearcher is the place lookup oracle.
type PlaceSearcher interface {
	Search(ctx context.Context, query string) ([]domain.Place, error)
}

// QueryPlanner turns a conversation into a place-search query and explains
// lookup results.
type QueryPlanner interface {
	BuildQuery(ctx context.Context, history []llm.ChatMessage) (string, error)
	Justify(ctx context.Context, history []llm.ChatMessage, query string, places []domain.Place) (string, error)
}

// Handler registers the HTTP routes.
type Handler struct {
	hub     *hub.Hub
	svc     *search.Service
	places  PlaceSearcher
	planner QueryPlanner
	log     *zap.SugaredLogger
}

// NewHandler creates a new HTTP handler.
func NewHandler(h *hub.Hub, svc *search.Service, places PlaceSearcher, planner QueryPlanner, log *zap.SugaredLogger) *Handler {
	return &Handler{hub: h, svc: svc, places: places, planner: planner, log: log}
}

// RegisterRoutes registers all HTTP routes on the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/searches", h.handleListSearches)
	e.DELETE("/searches/:search_id", h.handleDeleteSearch)
	e.POST("/places/chat", h.handlePlacesChat)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.hub.ConnectionCount(),
	})
}

func (h *Handler) handleListSearches(c echo.Context) error {
	searches, err := h.svc.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list searches"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"searches": searches})
}

func (h *Handler) handleDeleteSearch(c echo.Context) error {
	existed, err := h.svc.Delete(c.Request().Context(), c.Param("search_id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete search"})
	}
	if !existed {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "search session not found"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": true})
}

// ChatRequest is a conversation to plan a place search from.
type ChatRequest struct {
	Messages []llm.ChatMessage `json:"messages"`
}

// ChatResponse carries the planned query, its results, and a narrative
// justification.
type ChatResponse struct {
	Query         string         `json:"query"`
	Places        []domain.Place `json:"places"`
	Justification string         `json:"justification"`
}

// handlePlacesChat condenses a multi-user conversation into a search query,
// runs the lookup, and asks the planner to justify the results.
func (h *Handler) handlePlacesChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "messages are required"})
	}

	ctx := c.Request().Context()

	query, err := h.planner.BuildQuery(ctx, req.Messages)
	if err != nil {
		h.log.Warnw("query planning failed", "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to build search query"})
	}

	placeList, err := h.places.Search(ctx, query)
	if err != nil {
		h.log.Warnw("place lookup failed", "query", query, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to fetch places"})
	}

	justification, err := h.planner.Justify(ctx, req.Messages, query, placeList)
	if err != nil {
		h.log.Warnw("justification failed", "query", query, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to justify results"})
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Query:         query,
		Places:        placeList,
		Justification: justification,
	})
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
	"github.com/Sagar-CK/pinpoint-ai/internal/hub"
	"github.com/Sagar-CK/pinpoint-ai/internal/oracle/llm"
	"github.com/Sagar-CK/pinpoint-ai/internal/search"
)

type stubPlaces struct {
	places []domain.Place
	err    error
}

func (s *stubPlaces) Search(ctx context.Context, query string) ([]domain.Place, error) {
	return s.places, s.err
}

type stubPlanner struct {
	query         string
	justification string
	err           error
}

func (s *stubPlanner) BuildQuery(ctx context.Context, history []llm.ChatMessage) (string, error) {
	return s.query, s.err
}

func (s *stubPlanner) Justify(ctx context.Context, history []llm.ChatMessage, query string, places []domain.Place) (string, error) {
	return s.justification, s.err
}

type stubScorer struct{}

func (stubScorer) Score(ctx context.Context, place domain.Place, query, preference string) (domain.Relevance, error) {
	return domain.Relevance{Relevance: 5}, nil
}

func newTestHandler(t *testing.T, places *stubPlaces, planner *stubPlanner) (*Handler, *search.Service) {
	t.Helper()
	log := zap.NewNop().Sugar()
	connectionHub := hub.NewHub(log)
	go connectionHub.Run()
	svc := search.NewService(search.NewMemoryStore(), stubScorer{}, log)
	return NewHandler(connectionHub, svc, places, planner, log), svc
}

func TestHandleHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, &stubPlaces{}, &stubPlanner{})

	req := httptest.NewRequest(nethttp.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.handleHealth(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHandleListSearches(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, &stubPlaces{}, &stubPlanner{})

	_, err := svc.Create(context.Background(), "q", "A", []domain.Place{{ID: "p0"}})
	require.NoError(t, err)

	req := httptest.NewRequest(nethttp.MethodGet, "/searches", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.handleListSearches(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var resp struct {
		Searches []domain.Search `json:"searches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Searches, 1)
	assert.Equal(t, "q", resp.Searches[0].Query)
}

func TestHandleDeleteSearch(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t, &stubPlaces{}, &stubPlanner{})

	session, err := svc.Create(context.Background(), "q", "A", []domain.Place{{ID: "p0"}})
	require.NoError(t, err)

	req := httptest.NewRequest(nethttp.MethodDelete, "/searches/"+session.ID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("search_id")
	c.SetParamValues(session.ID)

	require.NoError(t, h.handleDeleteSearch(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(nethttp.MethodDelete, "/searches/"+session.ID, nil), rec)
	c.SetParamNames("search_id")
	c.SetParamValues(session.ID)

	require.NoError(t, h.handleDeleteSearch(c))
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestHandlePlacesChat(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t,
		&stubPlaces{places: []domain.Place{{ID: "p1", DisplayName: "Joe's Pizza"}}},
		&stubPlanner{query: "pizza in new york", justification: "because you wanted pizza"},
	)

	body := `{"messages":[{"role":"user","content":"I want pizza"}]}`
	req := httptest.NewRequest(nethttp.MethodPost, "/places/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.handlePlacesChat(c))
	assert.Equal(t, nethttp.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pizza in new york", resp.Query)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Joe's Pizza", resp.Places[0].DisplayName)
	assert.Equal(t, "because you wanted pizza", resp.Justification)
}

func TestHandlePlacesChatRequiresMessages(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, &stubPlaces{}, &stubPlanner{})

	req := httptest.NewRequest(nethttp.MethodPost, "/places/chat", strings.NewReader(`{"messages":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.handlePlacesChat(c))
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestHandlePlacesChatPlannerFailure(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, &stubPlaces{}, &stubPlanner{err: errors.New("model down")})

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(nethttp.MethodPost, "/places/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.handlePlacesChat(c))
	assert.Equal(t, nethttp.StatusBadGateway, rec.Code)
}

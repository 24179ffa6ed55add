package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

func completionWith(content string) string {
	msg, _ := json.Marshal(content)
	return fmt.Sprintf(`{"id":"c1","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, msg)
}

func TestClientScore(t *testing.T) {
	var gotReq chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionWith(`{"relevance":7.5,"reason":"close to the hotel"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1", "gpt-4o", time.Second)
	result, err := client.Score(context.Background(), domain.Place{ID: "p1", DisplayName: "Joe's Pizza"}, "pizza in new york", "cheap and close")
	require.NoError(t, err)

	assert.Equal(t, 7.5, result.Relevance)
	assert.Equal(t, "close to the hotel", result.Reason)
	assert.Equal(t, "gpt-4o", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[0].Content, "pizza in new york")
	assert.Contains(t, gotReq.Messages[0].Content, "Joe's Pizza")
	assert.Equal(t, "cheap and close", gotReq.Messages[1].Content)
	assert.NotNil(t, gotReq.ResponseFormat)
}

func TestClientScoreAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o", time.Second)
	_, err := client.Score(context.Background(), domain.Place{}, "q", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestClientScoreMalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("not json at all"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o", time.Second)
	_, err := client.Score(context.Background(), domain.Place{}, "q", "p")
	assert.Error(t, err)
}

func TestClientScoreEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c1","model":"gpt-4o","choices":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o", time.Second)
	_, err := client.Score(context.Background(), domain.Place{}, "q", "p")
	assert.Error(t, err)
}

func TestClientBuildQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionWith("  pizza restaurants in New York\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o", time.Second)
	query, err := client.BuildQuery(context.Background(), []ChatMessage{
		{Role: "user", Content: "I want pizza"},
		{Role: "user", Content: "somewhere in new york"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pizza restaurants in New York", query)
}

func TestClientJustify(t *testing.T) {
	var gotReq chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, completionWith("I recommended Joe's Pizza because you wanted something cheap."))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "gpt-4o", time.Second)
	justification, err := client.Justify(context.Background(),
		[]ChatMessage{{Role: "user", Content: "cheap pizza please"}},
		"pizza restaurants in New York",
		[]domain.Place{{ID: "p1", DisplayName: "Joe's Pizza"}},
	)
	require.NoError(t, err)
	assert.Contains(t, justification, "Joe's Pizza")
	require.Len(t, gotReq.Messages, 2)
	assert.Contains(t, gotReq.Messages[1].Content, "pizza restaurants in New York")
	assert.Contains(t, gotReq.Messages[1].Content, "cheap pizza please")
}

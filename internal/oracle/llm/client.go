// Package llm provides an OpenAI-compatible chat-completions client used as
// the relevance scoring oracle and for prompt-to-query planning.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// Client talks to an OpenAI-compatible /v1/chat/completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new LLM client. The timeout bounds every call; the
// client never retries.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatMessage is one turn of a chat-completions conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the OpenAI chat completion request.
type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []ChatMessage          `json:"messages"`
	Temperature    *float64               `json:"temperature,omitempty"`
	ResponseFormat map[string]interface{} `json:"response_format,omitempty"`
}

// chatCompletionResponse is the OpenAI chat completion response.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int          `json:"index"`
		Message      *ChatMessage `json:"message,omitempty"`
		FinishReason string       `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// errorResponse is an API error envelope.
type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const scoringSystemPrompt = `You are a judge of relevance. You are looking for a place that matches the following prompt: %s.
Given the information about a place below and specific preferences from the user, evaluate the relevance of the place on a scale from 1.0 to 10.0.

Place: %s`

// relevanceSchema constrains scoring responses to a {relevance, reason} object.
var relevanceSchema = map[string]interface{}{
	"type": "json_schema",
	"json_schema": map[string]interface{}{
		"name":   "relevance_result",
		"strict": true,
		"schema": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"relevance": map[string]interface{}{
					"type":        "number",
					"description": "A number between 1.0 and 10.0 indicating the relevance of the place to the user prompt.",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "A string explaining the relevance of the place to the search and user prompt.",
				},
			},
			"required":             []string{"relevance", "reason"},
			"additionalProperties": false,
		},
	},
}

// Score asks the model to judge how relevant a place is to the user's
// preference text, given the original search query.
func (c *Client) Score(ctx context.Context, place domain.Place, query, preference string) (domain.Relevance, error) {
	placeJSON, err := json.Marshal(place)
	if err != nil {
		return domain.Relevance{}, fmt.Errorf("failed to encode place: %w", err)
	}

	resp, err := c.createChatCompletion(ctx, &chatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: fmt.Sprintf(scoringSystemPrompt, query, placeJSON)},
			{Role: "user", Content: preference},
		},
		ResponseFormat: relevanceSchema,
	})
	if err != nil {
		return domain.Relevance{}, err
	}

	content, err := firstMessageContent(resp)
	if err != nil {
		return domain.Relevance{}, err
	}

	var result domain.Relevance
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return domain.Relevance{}, fmt.Errorf("failed to parse relevance response: %w", err)
	}
	return result, nil
}

const buildQuerySystemPrompt = `Based on the conversation history of multiple users, create a search query to find preferred activities for them.

Here are some examples, with explanations as to how they were created:
"10 High Street, UK" or "123 Main Street, US"	Multiple "High Street"s in the UK; multiple "Main Street"s in the US. Query doesn't return desirable results unless a location restriction is set.
"ChainRestaurant New York"	Multiple "ChainRestaurant" locations in New York; no street address or even street name.
"pizza restaurants in New York"	This query contains its location restriction, and "pizza restaurants" is a well-defined place type. It returns multiple results.

In your response, ONLY RESPOND WITH THE QUERY, NOTHING ELSE.`

// BuildQuery condenses a multi-user conversation into a place-search query.
func (c *Client) BuildQuery(ctx context.Context, history []ChatMessage) (string, error) {
	messages := append([]ChatMessage{{Role: "system", Content: buildQuerySystemPrompt}}, history...)
	resp, err := c.createChatCompletion(ctx, &chatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	content, err := firstMessageContent(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

const justificationSystemPrompt = `Based on the conversation history of multiple users, the created search query, and the list of places returned, create a justification for the results in a casual narrative format.
The justification should be based on the RESULTS, not the search query.

Here is an example of the format you should follow:
I recommended Joe's Pizza because you guys mentioned you wanted something cheap and close to the hotel. I also included Thai Food 2 because Dan mentioned he likes thai food.

In your response, ONLY RESPOND WITH THE JUSTIFICATION, NOTHING ELSE.`

// Justify produces a narrative explanation of why the returned places fit the
// conversation that led to the query.
func (c *Client) Justify(ctx context.Context, history []ChatMessage, query string, places []domain.Place) (string, error) {
	placesJSON, err := json.Marshal(places)
	if err != nil {
		return "", fmt.Errorf("failed to encode places: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("Conversation History:\n")
	for _, msg := range history {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nSearch Query:\n%s\n\nPlaces:\n%s\n", query, placesJSON)

	resp, err := c.createChatCompletion(ctx, &chatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: justificationSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
	})
	if err != nil {
		return "", err
	}
	content, err := firstMessageContent(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) createChatCompletion(ctx context.Context, req *chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("LLM API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("LLM API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func firstMessageContent(resp *chatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content received from LLM")
	}
	return resp.Choices[0].Message.Content, nil
}

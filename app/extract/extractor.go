package extract

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
)

// Extractor abstracts the opaque text-to-structured-data capability. It
// performs no retries; a failed extraction discards that one item only.
type Extractor interface {
	Extract(ctx context.Context, caption, imageDescription string) (*Candidate, error)
}

const eventPrompt = `The following is an Instagram post caption and image description for an event organized by a McGill University club. Extract the event details following the Event Schema below and output it strictly as a JSON object without any additional text or formatting.

Caption: %s
Image Description: %s

Event Schema:
- IsAnEvent (Yes/No)
- IsInPerson (Yes/No)
- Location (if in-person)
- Link (if online)
- Host (organization)
- IsFullday (Yes/No)
- Day
- Start time, End time (in 24-hour format, e.g., 14:00, 16:00)
- Event name
- Event description
- Event Category (one of these 5: Social, Academic, Sports, Club, Professional)

Ensure the response is a valid JSON object with no additional comments, formatting, or code block syntax.`

func buildPrompt(caption, imageDescription string) string {
	return fmt.Sprintf(eventPrompt, caption, imageDescription)
}

// NewExtractor returns an extractor based on the configured provider keys,
// preferring Cohere when configured. Returns nil when no provider is
// available.
func NewExtractor() Extractor {
	cfg := cfg.Get()

	if cfg.CohereAPIKey != "" {
		// Force HTTP/1.1 to avoid HTTP/2 protocol errors against the
		// Cohere endpoint
		httpClient := &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
				ForceAttemptHTTP2: false,
			},
		}
		client := cohereclient.NewClient(
			cohereclient.WithToken(cfg.CohereAPIKey),
			cohereclient.WithHTTPClient(httpClient),
		)
		return &CohereExtractor{client: client, model: "command-r"}
	}

	if cfg.OpenAIAPIKey != "" {
		return &OpenAIExtractor{apiKey: cfg.OpenAIAPIKey, model: "gpt-3.5-turbo"}
	}

	return nil
}

// CohereExtractor implements Extractor using the Cohere Chat API.
type CohereExtractor struct {
	client *cohereclient.Client
	model  string
}

func (e *CohereExtractor) Extract(ctx context.Context, caption, imageDescription string) (*Candidate, error) {
	resp, err := e.client.Chat(ctx, &cohere.ChatRequest{
		Message:     buildPrompt(caption, imageDescription),
		Model:       cohere.String(e.model),
		Temperature: cohere.Float64(0.5),
	})
	if err != nil {
		return nil, fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return nil, errors.New("cohere chat returned empty response")
	}

	return decodeCandidate(resp.Text)
}

// OpenAIExtractor implements Extractor using the OpenAI Chat Completions API
// Endpoint: POST https://api.openai.com/v1/chat/completions
type OpenAIExtractor struct {
	apiKey   string
	model    string
	endpoint string
}

func (e *OpenAIExtractor) Extract(ctx context.Context, caption, imageDescription string) (*Candidate, error) {
	endpoint := e.endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	payload := map[string]interface{}{
		"model": e.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are a helpful assistant."},
			{"role": "user", "content": buildPrompt(caption, imageDescription)},
		},
		"max_tokens":  500,
		"temperature": 0.5,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("openai chat error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("openai chat returned no choices")
	}

	return decodeCandidate(parsed.Choices[0].Message.Content)
}

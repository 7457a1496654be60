package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/denizkarakus123/EventHive-backend/app/cfg"
)

func TestNewExtractorProviderSelection(t *testing.T) {
	cfg.Set(&cfg.Cfg{CohereAPIKey: "cohere-key", OpenAIAPIKey: "openai-key"})
	if _, ok := NewExtractor().(*CohereExtractor); !ok {
		t.Error("Expected Cohere extractor when both keys are set")
	}

	cfg.Set(&cfg.Cfg{OpenAIAPIKey: "openai-key"})
	if _, ok := NewExtractor().(*OpenAIExtractor); !ok {
		t.Error("Expected OpenAI extractor when only the OpenAI key is set")
	}

	cfg.Set(&cfg.Cfg{})
	if NewExtractor() != nil {
		t.Error("Expected nil extractor when no provider is configured")
	}
}

func TestOpenAIExtractorParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		// Model output wrapped in a code fence the adapter must strip
		content := "```json\\n{\\\"IsAnEvent\\\": \\\"Yes\\\", \\\"Day\\\": \\\"2024-11-20\\\", \\\"Event name\\\": \\\"Samosa Sale\\\"}\\n```"
		fmt.Fprintf(w, `{"choices": [{"message": {"content": "%s"}}]}`, content)
	}))
	defer server.Close()

	extractor := &OpenAIExtractor{apiKey: "test-key", model: "gpt-3.5-turbo", endpoint: server.URL}

	candidate, err := extractor.Extract(context.Background(), "Samosa sale tomorrow!", "")
	if err != nil {
		t.Fatal(err)
	}
	if candidate.EventName != "Samosa Sale" {
		t.Errorf("Expected event name 'Samosa Sale', got '%s'", candidate.EventName)
	}
}

func TestOpenAIExtractorNonConformingResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [{"message": {"content": "Sure! Here is what I found about the post."}}]}`)
	}))
	defer server.Close()

	extractor := &OpenAIExtractor{apiKey: "test-key", model: "gpt-3.5-turbo", endpoint: server.URL}

	if _, err := extractor.Extract(context.Background(), "caption", ""); err == nil {
		t.Error("Expected error for non-conforming response")
	}
}

func TestOpenAIExtractorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	extractor := &OpenAIExtractor{apiKey: "test-key", model: "gpt-3.5-turbo", endpoint: server.URL}

	if _, err := extractor.Extract(context.Background(), "caption", ""); err == nil {
		t.Error("Expected error for HTTP failure")
	}
}

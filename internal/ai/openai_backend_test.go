package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

func makeTestServer(t *testing.T, statusCode int, body any) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func okResponse(content string) chatResponse {
	return chatResponse{
		Choices: []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{
			{Message: struct {
				Content string `json:"content"`
			}{Content: content}},
		},
	}
}

func testRequest() Request {
	return Request{
		System:     "extract",
		Prompt:     "postings here",
		SchemaName: "salary_batch",
		Schema:     salaryBatchSchema,
	}
}

func TestComplete_Success(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, okResponse(`{"results":[]}`))

	backend := NewOpenAIBackend(srv.URL, "test-key", "test-model", client)
	got, err := backend.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"results":[]}` {
		t.Errorf("got %q, want json string", got)
	}
}

func TestComplete_HTTPError_ReturnsBackendError(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusInternalServerError, map[string]string{"error": "server error"})

	backend := NewOpenAIBackend(srv.URL, "test-key", "test-model", client)
	_, err := backend.Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error on 5xx response")
	}

	var backendErr *model.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error %v is not a *model.BackendError", err)
	}
	if backendErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", backendErr.StatusCode)
	}
}

func TestComplete_RateLimited_CarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	backend := NewOpenAIBackend(srv.URL, "test-key", "test-model", srv.Client())
	_, err := backend.Complete(context.Background(), testRequest())

	var backendErr *model.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error %v is not a *model.BackendError", err)
	}
	if backendErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", backendErr.StatusCode)
	}
	if backendErr.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", backendErr.RetryAfter)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, chatResponse{Choices: nil})

	backend := NewOpenAIBackend(srv.URL, "test-key", "test-model", client)
	_, err := backend.Complete(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestComplete_SetsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("ok"))
	}))
	defer srv.Close()

	backend := NewOpenAIBackend(srv.URL, "my-secret-key", "test-model", srv.Client())
	_, _ = backend.Complete(context.Background(), testRequest())

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer my-secret-key")
	}
}

func TestComplete_SendsStructuredOutputFormat(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(okResponse("{}"))
	}))
	defer srv.Close()

	backend := NewOpenAIBackend(srv.URL, "key", "gpt-4o-mini", srv.Client())
	_, _ = backend.Complete(context.Background(), testRequest())

	if gotReq.ResponseFormat.Type != "json_schema" {
		t.Errorf("response_format.type = %q, want json_schema", gotReq.ResponseFormat.Type)
	}
	if gotReq.ResponseFormat.JSONSchema.Name != "salary_batch" {
		t.Errorf("response_format.json_schema.name = %q, want salary_batch", gotReq.ResponseFormat.JSONSchema.Name)
	}
	if gotReq.Temperature != 0 {
		t.Errorf("temperature = %d, want 0", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system + user pair", gotReq.Messages)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("120"); got != 120*time.Second {
		t.Errorf("parseRetryAfter(120) = %v, want 2m", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("parseRetryAfter(empty) = %v, want 0", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v, want 0", got)
	}
}

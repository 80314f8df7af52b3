package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiTestServer(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGemini(server.Client(), server.URL, "gemini-1.5-flash", "test-key")
}

func TestGeminiComplete(t *testing.T) {
	t.Parallel()

	gemini := geminiTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %q", request.URL.Path)
		}
		if got := request.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var wire geminiRequest
		if err := json.NewDecoder(request.Body).Decode(&wire); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(wire.Contents) != 1 || wire.Contents[0].Parts[0].Text != "make a quiz" {
			t.Errorf("request contents = %+v", wire.Contents)
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[1,"},{"text":"2]"}]},"finishReason":"STOP"}]}`))
	})

	text, err := gemini.Complete(context.Background(), "make a quiz")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "[1,2]" {
		t.Errorf("text = %q, want [1,2]", text)
	}
}

func TestGeminiErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`, wantErr: "Resource exhausted"},
		{name: "plain error", status: http.StatusBadGateway, body: "bad gateway", wantErr: "HTTP 502"},
		{name: "no candidates", status: http.StatusOK, body: `{"candidates":[]}`, wantErr: "no candidates"},
		{name: "blocked", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: "SAFETY"},
		{name: "empty text", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[]},"finishReason":"MAX_TOKENS"}]}`, wantErr: "MAX_TOKENS"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			gemini := geminiTestServer(t, func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(test.status)
				writer.Write([]byte(test.body))
			})
			_, err := gemini.Complete(context.Background(), "p")
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, test.wantErr)
			}
		})
	}
}

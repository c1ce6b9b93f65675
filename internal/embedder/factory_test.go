package embedder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newEmbedServer returns a fake embeddings endpoint that records the last
// Authorization header it saw and returns one 3-dim vector per input.
func newEmbedServer(t *testing.T, lastAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*lastAuth = r.Header.Get("Authorization")

		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var resp openaiEmbedResponse
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{1, 0, 0}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestFactoryFromEnv_OpenAICredentialOverride(t *testing.T) {
	var lastAuth string
	srv := newEmbedServer(t, &lastAuth)
	defer srv.Close()

	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "configured-key")
	t.Setenv("EMBEDDING_ENDPOINT", srv.URL)

	factory, err := FactoryFromEnv()
	if err != nil {
		t.Fatalf("factory from env: %v", err)
	}

	// Without an override the configured key is used.
	if _, err := factory("").Embed(t.Context(), []string{"hello"}); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if lastAuth != "Bearer configured-key" {
		t.Errorf("want configured key, got %q", lastAuth)
	}

	// A per-request credential replaces the key for that embedder only.
	if _, err := factory("caller-key").Embed(t.Context(), []string{"hello"}); err != nil {
		t.Fatalf("embed with override: %v", err)
	}
	if lastAuth != "Bearer caller-key" {
		t.Errorf("want caller key, got %q", lastAuth)
	}

	// The override must not leak into later requests.
	if _, err := factory("").Embed(t.Context(), []string{"hello"}); err != nil {
		t.Fatalf("embed after override: %v", err)
	}
	if lastAuth != "Bearer configured-key" {
		t.Errorf("override leaked, got %q", lastAuth)
	}
}

func TestFactoryFromEnv_RequiresOpenAIKey(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	if _, err := FactoryFromEnv(); err == nil {
		t.Fatal("want error when no API key is configured")
	}
}

func TestFactoryFromEnv_UnknownBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "carrier-pigeon")

	if _, err := FactoryFromEnv(); err == nil {
		t.Fatal("want error for unknown backend")
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/ingestion"
	"github.com/lorehq/lore/internal/rag"
)

// ---------------------------------------------------------------------------
// Fakes shared across handler tests
// ---------------------------------------------------------------------------

// fakeAnswerer implements the answerer interface for tests.
type fakeAnswerer struct {
	// answer is returned on success.
	answer string
	// err is returned as the error value.
	err error
	// got records the last request received.
	got convo.Request
}

func (f *fakeAnswerer) Answer(_ context.Context, req convo.Request) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// fakeIngestor implements the ingestor interface for tests.
type fakeIngestor struct {
	res ingestion.Result
	err error
	got ingestion.Request
}

func (f *fakeIngestor) Ingest(_ context.Context, req ingestion.Request) (ingestion.Result, error) {
	f.got = req
	if f.err != nil {
		return ingestion.Result{}, f.err
	}
	return f.res, nil
}

// fakeDeleter implements the deleter interface for tests.
type fakeDeleter struct {
	err error
	got string
}

func (f *fakeDeleter) Delete(_ context.Context, url string) error {
	f.got = url
	return f.err
}

// newTestServer builds a *Server over fresh fakes and a hermetic Prometheus
// registry. Pass nil for any collaborator to get a zero-value fake.
func newTestServer(t *testing.T, a answerer, i ingestor, d deleter) *Server {
	t.Helper()
	if a == nil {
		a = &fakeAnswerer{}
	}
	if i == nil {
		i = &fakeIngestor{}
	}
	if d == nil {
		d = &fakeDeleter{}
	}
	s, err := New(Deps{Answerer: a, Ingestor: i, Deleter: d}, &Config{
		Logger:   slog.Default(),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) messageResponse {
	t.Helper()
	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// ---------------------------------------------------------------------------
// POST /api/query
// ---------------------------------------------------------------------------

func TestHandleQuery_Success(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{answer: "Paris is the capital of France."}
	s := newTestServer(t, a, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"capital of France?","session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeMessage(t, w)
	if resp.Message != "Paris is the capital of France." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if a.got.SessionID != "s1" || a.got.Question != "capital of France?" {
		t.Errorf("request not forwarded: %+v", a.got)
	}
}

func TestHandleQuery_MissingQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"session_id":"s1"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_MissingSessionID(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"hello?"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleQuery_InvalidJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`not-json`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// TestHandleQuery_EmptyKnowledgeBase verifies the informational 200 returned
// when nothing has been ingested yet. A fresh deployment is not an error.
func TestHandleQuery_EmptyKnowledgeBase(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{err: rag.ErrNoCollections}
	s := newTestServer(t, a, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"anything?","session_id":"s1"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty knowledge base, got %d", w.Code)
	}
	resp := decodeMessage(t, w)
	if resp.Message != emptyKnowledgeBaseMessage {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestHandleQuery_PipelineError(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{err: errors.New("model unavailable")}
	s := newTestServer(t, a, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"q","session_id":"s1"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	// Internal error details never reach the client.
	resp := decodeMessage(t, w)
	if strings.Contains(resp.Message, "model unavailable") {
		t.Errorf("internal error leaked to client: %q", resp.Message)
	}
}

func TestHandleQuery_CredentialForwarded(t *testing.T) {
	t.Parallel()

	a := &fakeAnswerer{answer: "ok"}
	s := newTestServer(t, a, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"question":"q","session_id":"s1","api_key":"sk-user"}`))
	w := httptest.NewRecorder()

	s.handleQuery(w, req)

	if a.got.Credential != "sk-user" {
		t.Errorf("credential not forwarded, got %q", a.got.Credential)
	}
}

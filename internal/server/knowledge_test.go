package server

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lorehq/lore/internal/catalog"
	"github.com/lorehq/lore/internal/ingestion"
)

// multipartUpload builds a multipart/form-data request body containing a
// single file field plus any extra form values.
func multipartUpload(t *testing.T, filename, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range extra {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleKnowledgeCreate_Success(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{res: ingestion.Result{
		URL:            "file:///blobs/knowledges/abc_notes.txt",
		CollectionName: "kb_abc",
		Chunks:         3,
	}}
	s := newTestServer(t, nil, ing, nil)

	body, contentType := multipartUpload(t, "notes.txt", "alpha beta gamma", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleKnowledgeCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeMessage(t, w)
	if resp.Message != "File uploaded successfully" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.URL != "file:///blobs/knowledges/abc_notes.txt" {
		t.Errorf("unexpected url: %q", resp.URL)
	}
	if ing.got.Filename != "notes.txt" {
		t.Errorf("filename not forwarded: %q", ing.got.Filename)
	}
}

func TestHandleKnowledgeCreate_CredentialForwarded(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{}
	s := newTestServer(t, nil, ing, nil)

	body, contentType := multipartUpload(t, "notes.md", "# heading", map[string]string{"api_key": "sk-user"})
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleKnowledgeCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if ing.got.Credential != "sk-user" {
		t.Errorf("credential not forwarded, got %q", ing.got.Credential)
	}
}

func TestHandleKnowledgeCreate_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{}
	s := newTestServer(t, nil, ing, nil)

	body, contentType := multipartUpload(t, "report.pdf", "%PDF-1.4", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleKnowledgeCreate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported file format") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	// The pipeline is never invoked for rejected formats.
	if ing.got.Filename != "" {
		t.Errorf("ingest should not run, got request %+v", ing.got)
	}
}

func TestHandleKnowledgeCreate_MissingFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	s.handleKnowledgeCreate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleKnowledgeCreate_PipelineError(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{err: errors.New("qdrant unreachable")}
	s := newTestServer(t, nil, ing, nil)

	body, contentType := multipartUpload(t, "notes.txt", "content", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleKnowledgeCreate(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "qdrant") {
		t.Errorf("internal error leaked to client: %s", w.Body.String())
	}
}

func TestHandleKnowledgeDelete_Success(t *testing.T) {
	t.Parallel()

	del := &fakeDeleter{}
	s := newTestServer(t, nil, nil, del)

	req := httptest.NewRequest(http.MethodDelete, "/api/knowledge",
		strings.NewReader(`{"url":"file:///blobs/knowledges/abc_notes.txt"}`))
	w := httptest.NewRecorder()

	s.handleKnowledgeDelete(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeMessage(t, w)
	if resp.Message != "Knowledge deleted successfully" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if del.got != "file:///blobs/knowledges/abc_notes.txt" {
		t.Errorf("url not forwarded: %q", del.got)
	}
}

func TestHandleKnowledgeDelete_NotFound(t *testing.T) {
	t.Parallel()

	del := &fakeDeleter{err: catalog.ErrNotFound}
	s := newTestServer(t, nil, nil, del)

	req := httptest.NewRequest(http.MethodDelete, "/api/knowledge",
		strings.NewReader(`{"url":"file:///blobs/knowledges/missing.txt"}`))
	w := httptest.NewRecorder()

	s.handleKnowledgeDelete(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleKnowledgeDelete_MissingURL(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/knowledge",
		strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleKnowledgeDelete(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleKnowledgeDelete_PipelineError(t *testing.T) {
	t.Parallel()

	del := &fakeDeleter{err: errors.New("catalog locked")}
	s := newTestServer(t, nil, nil, del)

	req := httptest.NewRequest(http.MethodDelete, "/api/knowledge",
		strings.NewReader(`{"url":"file:///x"}`))
	w := httptest.NewRecorder()

	s.handleKnowledgeDelete(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

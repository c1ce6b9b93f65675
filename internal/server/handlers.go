package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lorehq/lore/internal/catalog"
	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/ingestion"
	"github.com/lorehq/lore/internal/loader"
	"github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/rag"
)

// emptyKnowledgeBaseMessage is returned (with HTTP 200) when a question
// arrives before any document has been ingested. An empty knowledge base is
// a normal state for a fresh deployment, not a server fault.
const emptyKnowledgeBaseMessage = "No knowledge has been ingested yet. Upload a document first, then ask again."

// handleQuery handles POST /api/query: one question within a session.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if req.Question == "" {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "question is required"})
		return
	}
	if req.SessionID == "" {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "session_id is required"})
		return
	}

	start := time.Now()
	answer, err := s.deps.Answerer.Answer(r.Context(), convo.Request{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Credential: req.APIKey,
	})
	switch {
	case errors.Is(err, rag.ErrNoCollections):
		s.metrics.queryRequestsTotal.WithLabelValues("empty").Inc()
		writeMessage(w, http.StatusOK, messageResponse{Message: emptyKnowledgeBaseMessage})
		return
	case err != nil:
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		log.Error("query failed", slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, messageResponse{Message: "failed to answer the question"})
		return
	}

	s.metrics.queryRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.queryDurationSeconds.Observe(time.Since(start).Seconds())
	writeMessage(w, http.StatusOK, messageResponse{Message: answer})
}

// handleKnowledgeCreate handles POST /api/knowledge: a multipart upload of
// one document. The file is staged to a temp directory so the ingestion
// pipeline can re-read it, then the staging dir is removed.
func (s *Server) handleKnowledgeCreate(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "file field is required"})
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if _, err := loader.ForExtension(filename); err != nil {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "unsupported file format"})
		return
	}

	staged, cleanup, err := stageUpload(file, filename)
	if err != nil {
		log.Error("staging upload failed", slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, messageResponse{Message: "failed to store the upload"})
		return
	}
	defer cleanup()

	res, err := s.deps.Ingestor.Ingest(r.Context(), ingestion.Request{
		Path:       staged,
		Filename:   filename,
		Credential: r.FormValue("api_key"),
	})
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedFormat) {
			writeMessage(w, http.StatusBadRequest, messageResponse{Message: "unsupported file format"})
			return
		}
		s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
		log.Error("ingestion failed", slog.String("filename", filename), slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, messageResponse{Message: "failed to ingest the document"})
		return
	}

	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
	writeMessage(w, http.StatusCreated, messageResponse{
		Message: "File uploaded successfully",
		URL:     res.URL,
	})
}

// handleKnowledgeDelete handles DELETE /api/knowledge: removal of one
// document by the URL returned at upload time.
func (s *Server) handleKnowledgeDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if req.URL == "" {
		writeMessage(w, http.StatusBadRequest, messageResponse{Message: "url is required"})
		return
	}

	err := s.deps.Deleter.Delete(r.Context(), req.URL)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeMessage(w, http.StatusNotFound, messageResponse{Message: "no knowledge found for that url"})
		return
	case err != nil:
		log.Error("deletion failed", slog.String("url", req.URL), slog.Any("error", err))
		writeMessage(w, http.StatusInternalServerError, messageResponse{Message: "failed to delete the document"})
		return
	}

	writeMessage(w, http.StatusOK, messageResponse{Message: "Knowledge deleted successfully"})
}

// stageUpload copies the multipart file into a fresh temp directory and
// returns the staged path plus a cleanup func that removes the directory.
func stageUpload(file io.Reader, filename string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "lore-upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filename)
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		cleanup()
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-notes/inkwell/internal/cloud"
	"github.com/inkwell-notes/inkwell/internal/config"
	"github.com/inkwell-notes/inkwell/internal/diff"
	"github.com/inkwell-notes/inkwell/internal/editor"
	"github.com/inkwell-notes/inkwell/internal/export"
	"github.com/inkwell-notes/inkwell/internal/prompt"
	"github.com/inkwell-notes/inkwell/internal/session"
	"github.com/inkwell-notes/inkwell/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// Version is the API server version.
	Version = "0.1.0"

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 100000

	// MaxHistoryMessages caps the conversation history in one request.
	MaxHistoryMessages = 100
)

// validRoles is the accepted set for history message roles.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the inkwell HTTP API server. It owns the edit session state and
// wires the document store, the upstream AI client and the export layer
// behind a chi router.
type Server struct {
	addr       string
	router     chi.Router
	httpServer *http.Server

	store      *storage.Store
	ai         *cloud.Client
	sess       *session.Context
	controller *session.Controller
	limiter    *RateLimiter

	mu          sync.RWMutex
	exportOpts  export.Options
	tokenBudget int
}

// New creates a server from the given configuration, store and AI client.
func New(cfg *config.Config, store *storage.Store, ai *cloud.Client) *Server {
	sess := session.NewContext(store)
	sess.SetHistoryLimit(cfg.Session.HistoryLimit)

	s := &Server{
		addr:       cfg.Server.Addr(),
		store:      store,
		ai:         ai,
		sess:       sess,
		controller: session.NewController(sess),
		limiter:    NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		exportOpts: export.Options{
			OutputDir:       cfg.Export.OutputDir,
			IncludeMetadata: cfg.Export.IncludeMetadata,
			Theme:           cfg.Export.Theme,
		},
		tokenBudget: cfg.AI.TokenBudget,
	}
	s.router = s.buildRouter()
	return s
}

// Session exposes the edit session context, mainly for command wiring.
func (s *Server) Session() *session.Context {
	return s.sess
}

// ApplyConfig applies a freshly reloaded configuration to the running server.
// Listen address changes require a restart and are ignored here.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.limiter.SetLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	s.ai.SetModel(cfg.AI.Model)
	s.sess.SetHistoryLimit(cfg.Session.HistoryLimit)

	s.mu.Lock()
	s.exportOpts = export.Options{
		OutputDir:       cfg.Export.OutputDir,
		IncludeMetadata: cfg.Export.IncludeMetadata,
		Theme:           cfg.Export.Theme,
	}
	s.tokenBudget = cfg.AI.TokenBudget
	s.mu.Unlock()
}

func (s *Server) exportOptions() *export.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opts := s.exportOpts
	return &opts
}

// buildRouter assembles the chi router with middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(CORSMiddleware(DefaultAllowedOrigins()))
	r.Use(RateLimitMiddleware(s.limiter))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleCreateDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Put("/documents/{id}", s.handleUpdateDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/documents/{id}/open", s.handleOpenDocument)
		r.Get("/documents/{id}/export", s.handleExportDocument)

		r.Post("/chat", s.handleChat)

		r.Post("/edit/undo", s.handleUndo)
		r.Post("/edit/revert", s.handleRevert)
		r.Post("/edit/finish", s.handleFinish)
		r.Get("/edit/pending", s.handlePending)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// Handler returns the root HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Streaming responses can legitimately run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s model=%s", s.addr, Version, s.ai.GetModel())
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         Version,
		"model":           s.ai.GetModel(),
		"ai_configured":   s.ai.IsConfigured(),
		"active_document": s.sess.ActiveDocumentID(),
	})
}

// ============================================================================
// DOCUMENT HANDLERS
// ============================================================================

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List()
	if err != nil {
		s.storageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type createDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "Untitled note"
	}

	doc, err := s.store.Create(req.Title, req.Content)
	if err != nil {
		s.storageError(w, err)
		return
	}

	// A freshly created note becomes the active document.
	s.sess.SetActiveDocument(doc.ID, editor.NewBuffer(doc.Content))
	s.writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.storageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

type updateDocumentRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateDocumentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Title == nil && req.Content == nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Nothing to update")
		return
	}

	if req.Title != nil {
		if err := s.store.Rename(id, *req.Title); err != nil {
			s.storageError(w, err)
			return
		}
	}
	if req.Content != nil {
		if err := s.store.Update(id, *req.Content); err != nil {
			s.storageError(w, err)
			return
		}
		// Keep the live buffer in sync when the active document is edited
		// through the API.
		if id == s.sess.ActiveDocumentID() {
			editor.Apply(s.sess.Handle(), *req.Content)
		}
	}

	doc, err := s.store.Get(id)
	if err != nil {
		s.storageError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		s.storageError(w, err)
		return
	}
	if id == s.sess.ActiveDocumentID() {
		s.sess.SetActiveDocument("", nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.storageError(w, err)
		return
	}
	s.sess.SetActiveDocument(doc.ID, editor.NewBuffer(doc.Content))
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.storageError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}

	data, exporter, err := export.Export(doc, format, s.exportOptions())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	w.Header().Set("Content-Type", exporter.MimeType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "note"+exporter.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ============================================================================
// CHAT STREAMING
// ============================================================================

type chatRequest struct {
	Message string              `json:"message"`
	Mode    string              `json:"mode"`
	History []cloud.ChatMessage `json:"history"`
}

// chatEvent is one SSE payload sent to the frontend.
type chatEvent struct {
	Content         string     `json:"content,omitempty"`
	Done            bool       `json:"done,omitempty"`
	Pending         bool       `json:"pending,omitempty"`
	DocumentContent string     `json:"document_content,omitempty"`
	Error           *errorBody `json:"error,omitempty"`
}

// sseStream writes chat events as SSE, setting headers lazily so an error
// before the first event can still be a plain JSON response.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseStream) send(ev chatEvent) {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no")
		s.started = true
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "data: %s\n\n", data)
	s.flusher.Flush()
}

func (s *sseStream) close() {
	if s.started {
		fmt.Fprintf(s.w, "data: [DONE]\n\n")
		s.flusher.Flush()
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Message must not be empty")
		return
	}
	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}
	if len(req.History) > MaxHistoryMessages {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Sprintf("Too many history messages: maximum is %d", MaxHistoryMessages))
		return
	}
	for i, msg := range req.History {
		if !validRoles[msg.Role] {
			s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("Invalid role %q at history message %d", msg.Role, i))
			return
		}
	}

	if !s.ai.IsConfigured() {
		s.aiError(w, cloud.ErrNotConfigured)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Streaming not supported")
		return
	}

	mode := session.ParseMode(req.Mode)
	docHTML := ""
	if h := s.sess.Handle(); h != nil {
		docHTML = h.GetContent()
	}

	if err := s.controller.BeginTurn(mode); err != nil {
		s.writeError(w, http.StatusConflict, "TURN_IN_PROGRESS", "An assistant turn is already streaming")
		return
	}

	s.mu.RLock()
	budget := s.tokenBudget
	s.mu.RUnlock()
	messages := prompt.BuildMessagesBudget(mode, docHTML, req.History, req.Message, budget)
	stream := &sseStream{w: w, flusher: flusher}

	err := s.ai.ChatStream(r.Context(), messages, func(chunk cloud.StreamChunk) {
		delta := chunk.GetContent()
		if delta == "" {
			return
		}
		s.controller.ProcessDelta(delta)
		stream.send(chatEvent{Content: delta})
	})

	// Client cancellation aborts the turn: whatever already applied stands,
	// no fallback runs.
	if r.Context().Err() != nil {
		s.controller.Abort()
		log.Printf("CHAT_CANCELLED | mode=%s", mode)
		return
	}

	if err != nil {
		s.controller.Abort()
		code := cloud.ClassifyError(err)
		log.Printf("CHAT_STREAM_ERROR | mode=%s code=%s error=%v", mode, code, err)
		if !stream.started {
			s.aiError(w, err)
			return
		}
		stream.send(chatEvent{Error: &errorBody{Message: userMessage(code), Code: string(code)}})
		stream.close()
		return
	}

	s.controller.Finalize()

	current := ""
	if h := s.sess.Handle(); h != nil {
		current = h.GetContent()
	}
	stream.send(chatEvent{
		Done:            true,
		Pending:         s.sess.PendingEdit() != nil,
		DocumentContent: current,
	})
	stream.close()
}

// ============================================================================
// EDIT CONTROL HANDLERS
// ============================================================================

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ok := s.sess.Undo()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      ok,
		"content": s.activeContent(),
	})
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	ok := s.sess.RevertPendingEdit()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":      ok,
		"content": s.activeContent(),
	})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.sess.FinishPendingEdit()
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	p := s.sess.PendingEdit()
	resp := map[string]any{"pending": p != nil}
	if p != nil {
		title := "note"
		if doc, err := s.store.Get(s.sess.ActiveDocumentID()); err == nil {
			title = doc.Title
		}
		d := diff.Compute(title, p.OriginalHTML, s.activeContent())
		resp["original_html"] = p.OriginalHTML
		resp["summary"] = d.Summary()
		resp["diff"] = d.Unified()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"history": s.sess.History()})
}

func (s *Server) activeContent() string {
	if h := s.sess.Handle(); h != nil {
		return h.GetContent()
	}
	return ""
}

// ============================================================================
// HELPERS
// ============================================================================

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// decodeBody parses a size-capped JSON body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": errorBody{Message: message, Code: code},
	})
}

// aiError writes the error envelope for an upstream AI failure.
func (s *Server) aiError(w http.ResponseWriter, err error) {
	code := cloud.ClassifyError(err)
	s.writeError(w, code.HTTPStatus(), string(code), userMessage(code))
}

// storageError maps document store failures onto HTTP responses.
func (s *Server) storageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrDocumentNotFound) {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Document not found")
		return
	}
	log.Printf("STORAGE_ERROR | error=%v", err)
	s.writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Storage operation failed")
}

// userMessage is the client-facing text for an AI error code. The underlying
// error detail stays in the server log.
func userMessage(code cloud.ErrorCode) string {
	switch code {
	case cloud.CodeAPIKeyMissing:
		return "AI service is not configured"
	case cloud.CodeRateLimited:
		return "Too many requests, please wait a moment"
	case cloud.CodeQuotaExhausted:
		return "AI service quota exhausted"
	case cloud.CodeTimeout:
		return "The AI service took too long to respond"
	case cloud.CodeUpstream:
		return "The AI service returned an error"
	case cloud.CodeNetwork:
		return "Could not reach the AI service"
	default:
		return "Internal server error"
	}
}

// Package server exposes the crawl, search and vector-admin operations
// over HTTP for webhook-style integration.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jacklau/scout/internal/provider"
	"github.com/jacklau/scout/internal/search"
	"github.com/jacklau/scout/internal/store"
	"github.com/jacklau/scout/internal/vector"
)

// chatMaxTokens bounds completions on the /chat route.
const chatMaxTokens = 100

const chatSystemPrompt = "you're an AI assistant"

// Runner triggers one crawl+summarize+index refresh cycle.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Searcher answers natural-language queries.
type Searcher interface {
	Hybrid(ctx context.Context, question string) ([]search.Result, error)
	Plain(ctx context.Context, question string) ([]search.Result, error)
}

// VectorAdmin manages the vector collection.
type VectorAdmin interface {
	EnsureCollection(ctx context.Context, dimensions int) error
	DropCollection(ctx context.Context) error
	Info(ctx context.Context) (*vector.CollectionInfo, error)
	Collection() string
}

// CommentStore reads stored issue comments.
type CommentStore interface {
	CommentsForIssue(issueID string) ([]store.Comment, error)
}

// Deps holds the server's collaborators.
type Deps struct {
	Runner     Runner
	Searcher   Searcher
	Completer  provider.Completer
	Vector     VectorAdmin
	Comments   CommentStore
	Logger     *slog.Logger
	Dimensions int
}

// Server is the HTTP control surface.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Server with its routes registered.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /run", s.handleRun)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /comment", s.handleComment)
	s.mux.HandleFunc("POST /vector", s.handleVector)
	s.mux.HandleFunc("POST /vector/create", s.handleVectorCreate)
	s.mux.HandleFunc("POST /vector/delete", s.handleVectorDelete)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving on addr until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.deps.Logger.Info("http server listening", "addr", addr)
	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// writeJSON sends a JSON response with a permissive CORS header so
// browser-based consumers can call the surface directly.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends a JSON error payload. Malformed requests get a 400
// instead of being silently dropped.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody parses a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Runner.RunCycle(r.Context()); err != nil {
		s.deps.Logger.Error("run cycle failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	results, err := s.deps.Searcher.Hybrid(r.Context(), req.Text)
	if err != nil {
		s.deps.Logger.Error("hybrid search failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := s.deps.Completer.Complete(r.Context(), chatSystemPrompt, req.Text, chatMaxTokens)
	if err != nil {
		s.deps.Logger.Error("chat completion failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssueID string `json:"issue_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IssueID == "" {
		writeError(w, http.StatusBadRequest, "issue_id is required")
		return
	}

	comments, err := s.deps.Comments.CommentsForIssue(req.IssueID)
	if err != nil {
		s.deps.Logger.Error("listing comments failed", "issue", req.IssueID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type commentOut struct {
		IssueID string `json:"issue_id"`
		Creator string `json:"comment_creator"`
		Date    string `json:"comment_date"`
		Body    string `json:"comment_body"`
	}
	out := make([]commentOut, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentOut{
			IssueID: c.IssueID,
			Creator: c.Creator,
			Date:    c.Date,
			Body:    c.Body,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleVector reports collection stats, or runs a plain search when the
// body carries a text field.
func (s *Server) handleVector(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Text != "" {
		results, err := s.deps.Searcher.Plain(r.Context(), req.Text)
		if err != nil {
			s.deps.Logger.Error("plain search failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	s.writeCollectionInfo(w, r)
}

func (s *Server) handleVectorCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dimensions int `json:"dimensions"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	dims := req.Dimensions
	if dims <= 0 {
		dims = s.deps.Dimensions
	}

	if err := s.deps.Vector.EnsureCollection(r.Context(), dims); err != nil {
		s.deps.Logger.Error("creating collection failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeCollectionInfo(w, r)
}

func (s *Server) handleVectorDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Vector.DropCollection(r.Context()); err != nil {
		s.deps.Logger.Error("deleting collection failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "collection": s.deps.Vector.Collection()})
}

func (s *Server) writeCollectionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Vector.Info(r.Context())
	if err != nil {
		s.deps.Logger.Error("collection info failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection":   s.deps.Vector.Collection(),
		"points_count": info.PointsCount,
	})
}

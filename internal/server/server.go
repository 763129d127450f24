// Package server exposes the banking tool catalog over HTTP as a thin
// REST layer: a health probe, the tool listing, and a call endpoint
// mirroring MCP tools/call semantics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/buildinfo"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/tools"
)

// Config holds the HTTP server parameters.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// APIKey, when non-empty, requires clients to present the same
	// value in the X-API-Key header on /v1/ routes.
	APIKey string

	Registry *tools.Registry
	Logger   *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
	apiKey   string
	inner    *http.Server
}

// New builds the server and its routes. A nil logger discards logs.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		registry: cfg.Registry,
		logger:   logger,
		apiKey:   cfg.APIKey,
	}
	s.inner = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/tools", s.requireAPIKey(s.handleToolsList))
	mux.HandleFunc("POST /v1/tools/call", s.requireAPIKey(s.handleToolsCall))
	return s.withRequestLog(mux)
}

// ListenAndServe blocks until the context is canceled or the listener
// fails, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.inner.ListenAndServe()
	}()

	s.logger.Info("http server listening", "addr", s.inner.Addr, "version", buildinfo.Version)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return s.inner.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// toolSummary is the /v1/tools listing entry.
type toolSummary struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema tools.Schema `json:"input_schema"`
	ReadOnly    bool         `json:"read_only"`
}

func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request) {
	summaries := make([]toolSummary, 0, len(s.registry.List()))
	for _, tool := range s.registry.List() {
		summaries = append(summaries, toolSummary{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
			ReadOnly:    tool.ReadOnly,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": summaries})
}

// callRequest is the /v1/tools/call request body, mirroring the MCP
// tools/call params.
type callRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "validation", "malformed request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "validation", "tool name is required")
		return
	}

	result, err := s.registry.Call(r.Context(), req.Name, req.Arguments)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", req.Name, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

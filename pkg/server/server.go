// Package server exposes the chatbot over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ragline/ragline/pkg/config"
	"github.com/ragline/ragline/pkg/history"
	"github.com/ragline/ragline/pkg/llm"
)

// AgentRunner runs one conversation turn.
type AgentRunner interface {
	Ask(ctx context.Context, msgs []llm.Message) (string, error)
	Stream(ctx context.Context, msgs []llm.Message, sink func(delta string)) (string, error)
}

// Server is the ragline HTTP/WebSocket API.
type Server struct {
	cfg     config.ServerConfig
	agent   AgentRunner
	history *history.Store
	window  int
	counter history.TokenCounter
}

// New creates a server.
func New(cfg config.ServerConfig, agent AgentRunner, store *history.Store, historyCfg config.HistoryConfig, counter history.TokenCounter) *Server {
	return &Server{
		cfg:     cfg,
		agent:   agent,
		history: store,
		window:  historyCfg.MaxTokens,
		counter: counter,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(corsMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stream_answer", s.handleStreamAnswer)
	r.Post("/ask", s.handleAsk)
	r.Get("/api/history", s.handleHistory)
	r.Post("/api/clear", s.handleClear)
	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runTurn replays history, runs the agent and persists the new turn. It runs
// on a background-derived context on purpose: a client disconnect must not
// cancel a turn in flight, and the history write happens even if nobody is
// listening anymore.
func (s *Server) runTurn(query string, sink func(delta string)) (string, error) {
	turns, err := s.history.Load()
	if err != nil {
		return "", err
	}

	msgs := history.Window(history.Messages(turns), s.window, s.counter)
	msgs = append(msgs, llm.UserMessage(query))

	ctx := context.Background()
	var answer string
	if sink != nil {
		answer, err = s.agent.Stream(ctx, msgs, sink)
	} else {
		answer, err = s.agent.Ask(ctx, msgs)
	}
	if err != nil {
		return "", err
	}

	if err := s.history.Append(query, answer); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the ChatBot API!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "query is required"})
		return
	}

	answer, err := s.runTurn(req.Query, nil)
	if err != nil {
		slog.Error("turn failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("Error processing request: %v", err),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleStreamAnswer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "query is required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	_, err := s.runTurn(query, func(delta string) {
		fmt.Fprintf(w, "data: %s\n\n", delta)
		flusher.Flush()
	})
	if err != nil {
		slog.Error("stream turn failed", "error", err)
		fmt.Fprintf(w, "data: Error processing request: %v\n\n", err)
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	// The frontend expects the [{}] sentinel when no history exists yet.
	if !s.history.Exists() {
		respondJSON(w, http.StatusOK, []map[string]string{{}})
		return
	}

	turns, err := s.history.Load()
	if err != nil {
		slog.Error("failed to load history", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}
	respondJSON(w, http.StatusOK, turns)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(); err != nil {
		slog.Error("failed to clear history", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear history"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "history cleared"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Package api exposes the HTTP interface for the content engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socialpulse/content-engine/internal/config"
	"github.com/socialpulse/content-engine/internal/content"
	"github.com/socialpulse/content-engine/internal/dispatcher"
	"github.com/socialpulse/content-engine/internal/metrics"
	"github.com/socialpulse/content-engine/internal/middleware"
	"github.com/socialpulse/content-engine/internal/platform"
)

const (
	serviceName    = "content-engine"
	serviceVersion = "1.0.0"

	enqueueTimeout = 5 * time.Second
)

// Server wires HTTP handlers to the dispatcher and the task store.
type Server struct {
	router    chi.Router
	taskStore content.TaskStore
	dispatch  *dispatcher.Dispatcher
	idGen     content.IDGenerator
	clock     content.Clock
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	taskStore content.TaskStore,
	dispatch *dispatcher.Dispatcher,
	idGen content.IDGenerator,
	clock content.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		taskStore: taskStore,
		dispatch:  dispatch,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(middleware.Metrics)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/", s.root)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.submitTask)
			r.Get("/{task_id}", s.getTask)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Queue and stores are wired at startup; report ready once serving.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitTaskRequest struct {
	URLs []string `json:"urls"`
}

type submitTaskResponse struct {
	TaskID          string                `json:"task_id"`
	Status          content.TaskStatus    `json:"status"`
	Message         string                `json:"message"`
	URLsDetected    []content.URLAnalysis `json:"urls_detected"`
	PlatformsNeeded []content.Platform    `json:"platforms_needed"`
}

func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateURLs(req.URLs, s.cfg.Pipeline.MaxURLsPerTask); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis := platform.Analyze(req.URLs)
	platforms := platform.Needed(analysis)

	taskID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate task id: %v", err))
		return
	}
	now := s.clock.Now()
	task := content.Task{
		ID:           taskID,
		Status:       content.TaskStatusStarted,
		Submitted:    now,
		URLs:         req.URLs,
		URLsDetected: analysis,
		Platforms:    platforms,
	}
	if err := s.taskStore.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("create task: %v", err))
		return
	}

	queueCtx, cancel := context.WithTimeout(r.Context(), enqueueTimeout)
	defer cancel()
	item := content.QueueItem{
		TaskID:    taskID,
		URLs:      req.URLs,
		Analysis:  analysis,
		Submitted: now.Unix(),
	}
	if err := s.dispatch.Enqueue(queueCtx, item); err != nil {
		s.logger.Error("task enqueue failed", zap.String("task_id", taskID), zap.Error(err))
		if uerr := s.taskStore.UpdateTaskStatus(r.Context(), taskID, content.TaskStatusError, "failed to queue task"); uerr != nil {
			s.logger.Error("task status update failed", zap.String("task_id", taskID), zap.Error(uerr))
		}
		writeError(w, http.StatusServiceUnavailable, "task queue is full, try again later")
		return
	}

	s.logger.Info("task submitted",
		zap.String("task_id", taskID),
		zap.Int("urls", len(req.URLs)),
		zap.Int("platforms", len(platforms)))

	writeJSON(w, http.StatusAccepted, submitTaskResponse{
		TaskID:          taskID,
		Status:          content.TaskStatusStarted,
		Message:         statusMessage(task),
		URLsDetected:    analysis,
		PlatformsNeeded: platforms,
	})
}

type taskResponse struct {
	content.Task
	Message string `json:"message"`
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	task, err := s.taskStore.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, content.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}
	if task.Status != content.TaskStatusCompleted {
		task.Result = nil
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: task, Message: statusMessage(task)})
}

func validateURLs(urls []string, maxURLs int) error {
	if len(urls) == 0 {
		return errors.New("at least one url is required")
	}
	if len(urls) > maxURLs {
		return fmt.Errorf("at most %d urls per task", maxURLs)
	}
	for i, url := range urls {
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("url %d is empty", i+1)
		}
	}
	return nil
}

// statusMessage renders the human-readable progress line returned alongside
// the task record.
func statusMessage(task content.Task) string {
	switch task.Status {
	case content.TaskStatusStarted:
		return "Task accepted and queued for processing"
	case content.TaskStatusProcessing:
		return "Scraping and analyzing content, check back shortly"
	case content.TaskStatusCompleted:
		return fmt.Sprintf("Task completed, %d posts selected", len(task.Result))
	case content.TaskStatusError:
		if task.ErrorText != "" {
			return "Task failed: " + task.ErrorText
		}
		return "Task failed"
	default:
		return "Unknown task status"
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

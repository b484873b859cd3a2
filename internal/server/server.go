// Package server exposes the assembly service over HTTP: job
// submission, status polling, and a websocket stream of job events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"reelstitch/internal/pipeline"
	"reelstitch/internal/queue"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	queue  *queue.Queue

	upgrader websocket.Upgrader
}

func New(q *queue.Queue, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		queue:  q,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.registerRoutes()
	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests
// and returns. http.ErrServerClosed is normal shutdown, not an error.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server starting", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /stitch", s.handleStitch)
	s.mux.HandleFunc("POST /stitch/folder", s.handleStitchFolder)
	s.mux.HandleFunc("GET /jobs/{job_id}", s.handleGetJob)
	s.mux.HandleFunc("GET /jobs/{job_id}/events", s.handleJobEvents)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		status["status"] = "degraded"
		status["ffmpeg"] = "not found"
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStitch(w http.ResponseWriter, r *http.Request) {
	var req queue.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.enqueue(w, req)
}

type folderRequest struct {
	FolderPath       string `json:"folder_path"`
	SubtitlePosition string `json:"subtitle_position,omitempty"`
}

func (s *Server) handleStitchFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FolderPath == "" {
		writeError(w, http.StatusBadRequest, "'folder_path' is required")
		return
	}
	voice, clips, err := pipeline.ScanRunFolder(req.FolderPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.enqueue(w, queue.Request{
		Voiceover: voice,
		Videos:    clips,
		Subtitles: req.SubtitlePosition,
	})
}

func (s *Server) enqueue(w http.ResponseWriter, req queue.Request) {
	job, err := s.queue.Enqueue(req)
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Get(r.PathValue("job_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobEvents upgrades to a websocket and streams job snapshots
// until the job reaches a terminal state.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")
	ch, cancel, ok := s.queue.Subscribe(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Warn("websocket upgrade failed", "job_id", id, "err", err)
		return
	}
	defer conn.Close()

	for job := range ch {
		if err := conn.WriteJSON(job); err != nil {
			s.logger.Warn("websocket write failed", "job_id", id, "err", err)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
}

func validateRequest(req queue.Request) error {
	if req.Voiceover == "" && strings.TrimSpace(req.Script) == "" {
		return errors.New("'voiceover' or 'script' is required")
	}
	if len(req.Videos) == 0 {
		return errors.New("'videos' must contain at least one item")
	}
	switch strings.ToLower(req.Subtitles) {
	case "", "top", "middle", "bottom":
	default:
		return errors.New("'subtitles' must be top, middle or bottom")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/agentfs/agentfs/internal/models"
	"github.com/agentfs/agentfs/pkg/logging"
)

type writeFileRequest struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type symlinkRequest struct {
	Target   string `json:"target"`
	LinkPath string `json:"link_path"`
}

// statsResponse widens Stats with the mode-derived type flags so clients
// need not know the mode bit layout.
type statsResponse struct {
	models.Stats
	IsFile      bool `json:"is_file"`
	IsDirectory bool `json:"is_directory"`
	IsSymlink   bool `json:"is_symlink"`
}

func newStatsResponse(stats *models.Stats) statsResponse {
	return statsResponse{
		Stats:       *stats,
		IsFile:      stats.IsFile(),
		IsDirectory: stats.IsDirectory(),
		IsSymlink:   stats.IsSymlink(),
	}
}

func (h *Handler) HandleWriteFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleWriteFile"

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req writeFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Write request", slog.String("path", req.Path), slog.Int("size", len(req.Content)))

	if err := h.agent.FS.WriteFile(ctx, req.Path, req.Content); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"path": req.Path})
}

func (h *Handler) HandleReadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	content, err := h.agent.FS.ReadFile(ctx, path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if content == nil {
		respondNotFound(w, "file not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"path": path, "content": content})
}

func (h *Handler) HandleExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	exists, err := h.agent.FS.Exists(ctx, path)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) HandleReadDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	entries, err := h.agent.FS.ReadDir(ctx, path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if entries == nil {
		respondNotFound(w, "directory not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"path": path, "entries": entries})
}

func (h *Handler) HandleMkdir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	if err := h.agent.FS.Mkdir(ctx, req.Path); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"path": req.Path})
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleRemove"

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req pathRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Remove request", slog.String("path", req.Path))

	if err := h.agent.FS.Remove(ctx, req.Path); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"path": req.Path})
}

func (h *Handler) HandleStat(w http.ResponseWriter, r *http.Request) {
	h.handleStat(w, r, h.agent.FS.Stat)
}

func (h *Handler) HandleLstat(w http.ResponseWriter, r *http.Request) {
	h.handleStat(w, r, h.agent.FS.Lstat)
}

func (h *Handler) handleStat(w http.ResponseWriter, r *http.Request, stat func(ctx context.Context, path string) (*models.Stats, error)) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	stats, err := stat(ctx, path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if stats == nil {
		respondNotFound(w, "path not found")
		return
	}

	respondJSON(w, http.StatusOK, newStatsResponse(stats))
}

func (h *Handler) HandleSymlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req symlinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Target == "" || req.LinkPath == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "target and link_path are required"})
		return
	}

	if err := h.agent.FS.Symlink(ctx, req.Target, req.LinkPath); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"link_path": req.LinkPath, "target": req.Target})
}

func (h *Handler) HandleReadLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	target, ok, err := h.agent.FS.ReadLink(ctx, path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondNotFound(w, "symlink not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"path": path, "target": target})
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type toolStartRequest struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
}

type toolSuccessRequest struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
}

type toolErrorRequest struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

type toolRecordRequest struct {
	Name        string          `json:"name"`
	StartedAt   int64           `json:"started_at"`
	CompletedAt int64           `json:"completed_at"`
	Params      json.RawMessage `json:"params"`
	Result      json.RawMessage `json:"result"`
	Error       string          `json:"error"`
}

func (h *Handler) HandleToolStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req toolStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	id, err := h.agent.Tools.Start(ctx, req.Name, req.Params)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) HandleToolSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req toolSuccessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.agent.Tools.Success(ctx, req.ID, req.Result); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"id": req.ID})
}

func (h *Handler) HandleToolError(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req toolErrorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Error == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "error message is required"})
		return
	}

	if err := h.agent.Tools.Error(ctx, req.ID, req.Error); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"id": req.ID})
}

func (h *Handler) HandleToolRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req toolRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	id, err := h.agent.Tools.Record(ctx, req.Name, req.StartedAt, req.CompletedAt, req.Params, req.Result, req.Error)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) HandleToolGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	idStr := r.URL.Query().Get("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "id must be an integer"})
		return
	}

	call, err := h.agent.Tools.Get(ctx, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if call == nil {
		respondNotFound(w, "tool call not found")
		return
	}

	respondJSON(w, http.StatusOK, call)
}

func (h *Handler) HandleToolList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		limit = parsed
	}

	calls, err := h.agent.Tools.List(ctx, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (h *Handler) HandleToolStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	stats, err := h.agent.Tools.StatsFor(ctx, name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if stats == nil {
		respondNotFound(w, "no calls recorded for tool")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

package handler

import (
	"net/http"
)

type kvSetRequest struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type kvKeyRequest struct {
	Key string `json:"key"`
}

func (h *Handler) HandleKVSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req kvSetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}

	if err := h.agent.KV.Set(ctx, req.Key, req.Value); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"key": req.Key})
}

func (h *Handler) HandleKVGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}

	value, ok, err := h.agent.KV.Get(ctx, key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !ok {
		respondNotFound(w, "key not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (h *Handler) HandleKVDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req kvKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}

	if err := h.agent.KV.Delete(ctx, req.Key); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"key": req.Key})
}

func (h *Handler) HandleKVExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}

	exists, err := h.agent.KV.Exists(ctx, key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) HandleKVScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	// An empty prefix lists every key in the agent's namespace.
	prefix := r.URL.Query().Get("prefix")

	keys, err := h.agent.KV.Scan(ctx, prefix)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"prefix": prefix, "keys": keys})
}

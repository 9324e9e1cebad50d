package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentfs/agentfs/internal/pkg/fserrors"
	"github.com/agentfs/agentfs/internal/service"
	"github.com/agentfs/agentfs/pkg/logging"
	"github.com/agentfs/agentfs/pkg/logging/slogext"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondNotFound(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusNotFound, errorResponse{Error: message})
}

// respondError maps the error taxonomy onto HTTP statuses. Store failures
// never leak their detail to clients.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var fsErr *fserrors.Error
	if errors.As(err, &fsErr) {
		status := http.StatusInternalServerError
		body := errorResponse{Error: fsErr.Error(), Kind: fsErr.Kind.String()}

		switch fsErr.Kind {
		case fserrors.KindFileNotFound, fserrors.KindDirectoryNotFound:
			status = http.StatusNotFound
		case fserrors.KindPathExists:
			status = http.StatusConflict
		case fserrors.KindInvalidPath, fserrors.KindSerialization:
			status = http.StatusBadRequest
		case fserrors.KindPathTraversal:
			status = http.StatusForbidden
		case fserrors.KindDatabase:
			body.Error = "internal storage error"
		}

		if status == http.StatusInternalServerError {
			logger := logging.GetLoggerFromContext(r.Context())
			logger.Error("Request failed", slogext.Err(err))
		}

		respondJSON(w, status, body)
		return
	}

	switch {
	case errors.Is(err, service.ErrToolCallNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: service.ErrToolCallNotFound.Error()})
	case errors.Is(err, service.ErrToolCallCompleted):
		respondJSON(w, http.StatusConflict, errorResponse{Error: service.ErrToolCallCompleted.Error()})
	default:
		logger := logging.GetLoggerFromContext(r.Context())
		logger.Error("Request failed", slogext.Err(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

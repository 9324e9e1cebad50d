package handler

import (
	"net/http"

	"github.com/agentfs/agentfs/internal/service"
)

type Handler struct {
	agent *service.AgentFS
}

func NewHandler(agent *service.AgentFS) *Handler {
	return &Handler{agent: agent}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"service":  "agentfs-server",
		"agent_id": h.agent.AgentID,
	})
}

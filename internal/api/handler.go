// Package api exposes the REST and websocket surface of the world.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/theogony/demiurge/internal/agent"
	"github.com/theogony/demiurge/internal/chat"
	"github.com/theogony/demiurge/internal/debate"
	"github.com/theogony/demiurge/internal/hub"
	"github.com/theogony/demiurge/internal/memory"
	"github.com/theogony/demiurge/internal/world"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	agents       map[string]*agent.Agent
	orchestrator *debate.Orchestrator
	world        *world.State
	chat         *chat.Manager
	ws           *hub.WSServer
	logger       *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	agents map[string]*agent.Agent,
	orchestrator *debate.Orchestrator,
	w *world.State,
	chatMgr *chat.Manager,
	ws *hub.WSServer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		agents:       agents,
		orchestrator: orchestrator,
		world:        w,
		chat:         chatMgr,
		ws:           ws,
		logger:       logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.healthCheck)
	if h.ws != nil {
		r.Handle("/ws", h.ws)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.worldState)
		r.Get("/agents", h.listAgents)
		r.Get("/agents/{id}", h.getAgent)
		r.Get("/agents/{id}/interactions", h.agentInteractions)
		r.Post("/agents/paradoxia/metamorphose", h.metamorphose)
		r.Post("/chat", h.sendChat)
		r.Get("/doctrines", h.listDoctrines)
		r.Get("/structures", h.listStructures)
		r.Get("/users", h.listUsers)
		r.Get("/conversations", h.listConversations)
		r.Get("/debate/status", h.debateStatus)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "world": "demiurge"})
}

// WorldSnapshot is the full state payload for /api/state and for new
// websocket connections.
func (h *Handler) WorldSnapshot() map[string]interface{} {
	agents := make([]map[string]interface{}, 0, len(h.agents))
	for _, ag := range h.agents {
		agents = append(agents, ag.Snapshot())
	}
	return map[string]interface{}{
		"agents": agents,
		"world":  h.world.Snapshot(),
		"debate": h.orchestrator.Status(),
	}
}

func (h *Handler) worldState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.WorldSnapshot())
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := make([]map[string]interface{}, 0, len(h.agents))
	for _, ag := range h.agents {
		agents = append(agents, ag.Snapshot())
	}
	writeJSON(w, http.StatusOK, agents)
}

// findAgent resolves an agent by name or ID, case-insensitive on name.
func (h *Handler) findAgent(key string) (*agent.Agent, bool) {
	if ag, ok := h.agents[key]; ok {
		return ag, true
	}
	for name, ag := range h.agents {
		if strings.EqualFold(name, key) || ag.ID == key {
			return ag, true
		}
	}
	return nil, false
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	ag, ok := h.findAgent(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, ag.Snapshot())
}

func (h *Handler) agentInteractions(w http.ResponseWriter, r *http.Request) {
	ag, ok := h.findAgent(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}

	filter := memory.RecallFilter{Limit: 50}
	if with := r.URL.Query().Get("with"); with != "" {
		filter.WithEntity = with
	}
	writeJSON(w, http.StatusOK, ag.Memory.Recall(filter))
}

func (h *Handler) metamorphose(w http.ResponseWriter, r *http.Request) {
	ag, ok := h.findAgent("Paradoxia")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	if !ag.Metamorphose() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "agent cannot metamorphose"})
		return
	}
	writeJSON(w, http.StatusOK, ag.Snapshot())
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
	Message string `json:"message"`
}

func (h *Handler) sendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" || req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id and message are required"})
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	response, err := h.chat.SendUserMessage(r.Context(), req.UserID, req.AgentID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "unknown agent") {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent_id": req.AgentID,
		"response": response,
	})
}

func (h *Handler) listDoctrines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Doctrines())
}

func (h *Handler) listStructures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.world.Structures())
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chat.ActiveUsers())
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chat.Conversations())
}

func (h *Handler) debateStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Status())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Package httpapi exposes the persona trigger API over plain HTTP.
// All lifecycle commands are validated synchronously and mutate nothing when
// rejected; the actual cycle work happens asynchronously in the scheduler.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/domain"
)

// Lifecycle is the command surface of the scheduler.
type Lifecycle interface {
	Start(ctx context.Context, personaID uuid.UUID) error
	Pause(ctx context.Context, personaID uuid.UUID) error
	Stop(ctx context.Context, personaID uuid.UUID) error
	ManualTrigger(ctx context.Context, personaID uuid.UUID, location domain.ManualLocation) error
	Recover(ctx context.Context, personaID uuid.UUID) (bool, error)
}

// PersonaStore is the read/create surface the API needs.
type PersonaStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error)
	Create(ctx context.Context, p domain.Persona) (domain.Persona, error)
}

// MemoryStore lists a persona's recent memories.
type MemoryStore interface {
	ListRecent(ctx context.Context, personaID uuid.UUID, limit int) ([]domain.Memory, error)
}

// PostStore lists a persona's posts.
type PostStore interface {
	ListByPersona(ctx context.Context, personaID uuid.UUID, limit int) ([]domain.Post, error)
}

// Handler serves the v1 API.
type Handler struct {
	lifecycle Lifecycle
	personas  PersonaStore
	memories  MemoryStore
	posts     PostStore
	version   string
	log       *slog.Logger
}

// New creates the API handler.
func New(lifecycle Lifecycle, personas PersonaStore, memories MemoryStore, posts PostStore, version string, logger *slog.Logger) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		personas:  personas,
		memories:  memories,
		posts:     posts,
		version:   version,
		log:       logger.With("component", "httpapi"),
	}
}

// Router builds the route table.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.health)

	mux.HandleFunc("POST /v1/personas", h.createPersona)
	mux.HandleFunc("GET /v1/personas/{id}", h.getPersona)
	mux.HandleFunc("GET /v1/personas/{id}/memories", h.listMemories)
	mux.HandleFunc("GET /v1/personas/{id}/posts", h.listPosts)

	mux.HandleFunc("POST /v1/personas/{id}/start", h.command(h.lifecycle.Start))
	mux.HandleFunc("POST /v1/personas/{id}/pause", h.command(h.lifecycle.Pause))
	mux.HandleFunc("POST /v1/personas/{id}/stop", h.command(h.lifecycle.Stop))
	mux.HandleFunc("POST /v1/personas/{id}/manual-trigger", h.manualTrigger)
	mux.HandleFunc("POST /v1/personas/{id}/recover", h.recover)

	return mux
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// command wraps the uniform "POST + id → run, 204 or error" lifecycle routes.
func (h *Handler) command(run func(ctx context.Context, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := run(r.Context(), id); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type manualTriggerRequest struct {
	Location string `json:"location"`
}

func (h *Handler) manualTrigger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req manualTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.NewValidationError("body", "invalid JSON"))
		return
	}

	if err := h.lifecycle.ManualTrigger(r.Context(), id, domain.ManualLocation(req.Location)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) recover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	recovered, err := h.lifecycle.Recover(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recovered": recovered})
}

type createPersonaRequest struct {
	Name           string  `json:"name"`
	City           string  `json:"city"`
	Bio            *string `json:"bio"`
	InitialBalance float64 `json:"initial_balance"`
}

func (h *Handler) createPersona(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.NewValidationError("body", "invalid JSON"))
		return
	}
	if req.Name == "" {
		h.writeError(w, r, domain.NewValidationError("name", "is required"))
		return
	}
	if req.City == "" {
		h.writeError(w, r, domain.NewValidationError("city", "is required"))
		return
	}

	p, err := h.personas.Create(r.Context(), domain.Persona{
		Name:           req.Name,
		City:           req.City,
		Bio:            req.Bio,
		CurrentBalance: req.InitialBalance,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPersonaResponse(p))
}

func (h *Handler) getPersona(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.personas.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonaResponse(p))
}

func (h *Handler) listMemories(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	memories, err := h.memories.ListRecent(r.Context(), id, queryLimit(r, 50))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemoryResponses(memories))
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	posts, err := h.posts.ListByPersona(r.Context(), id, queryLimit(r, 50))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResponses(posts))
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid persona id"})
		return uuid.Nil, false
	}
	return id, true
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 200 {
		return def
	}
	return n
}

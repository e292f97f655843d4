package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pulseworks/vita-backend/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain sentinels to HTTP status codes. Internal errors are
// logged with detail but returned opaque.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type personaResponse struct {
	ID                 uuid.UUID      `json:"id"`
	Name               string         `json:"name"`
	City               string         `json:"city"`
	Bio                *string        `json:"bio,omitempty"`
	LifecycleStatus    string         `json:"lifecycle_status"`
	LifecycleStartedAt *time.Time     `json:"lifecycle_started_at,omitempty"`
	CurrentActivity    string         `json:"current_activity,omitempty"`
	ActivityDetails    *string        `json:"activity_details,omitempty"`
	ActivityStartedAt  *time.Time     `json:"activity_started_at,omitempty"`
	CurrentBalance     float64        `json:"current_balance"`
	DailyOutfit        *domain.Outfit `json:"daily_outfit,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func toPersonaResponse(p domain.Persona) personaResponse {
	return personaResponse{
		ID:                 p.ID,
		Name:               p.Name,
		City:               p.City,
		Bio:                p.Bio,
		LifecycleStatus:    p.LifecycleStatus.String(),
		LifecycleStartedAt: p.LifecycleStartedAt,
		CurrentActivity:    p.CurrentActivity.String(),
		ActivityDetails:    p.ActivityDetails,
		ActivityStartedAt:  p.ActivityStartedAt,
		CurrentBalance:     p.CurrentBalance,
		DailyOutfit:        p.DailyOutfit,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type memoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Importance  int       `json:"importance"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMemoryResponses(memories []domain.Memory) []memoryResponse {
	out := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		out = append(out, memoryResponse{
			ID:          m.ID,
			Kind:        m.Kind.String(),
			Description: m.Description,
			Importance:  m.Importance,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out
}

type postResponse struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	ContentURL string    `json:"content_url"`
	Caption    *string   `json:"caption,omitempty"`
	PostedAt   time.Time `json:"posted_at"`
}

func toPostResponses(posts []domain.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{
			ID:         p.ID,
			Type:       p.Type,
			ContentURL: p.ContentURL,
			Caption:    p.Caption,
			PostedAt:   p.PostedAt,
		})
	}
	return out
}

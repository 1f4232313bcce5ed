// Package handler exposes the achievement catalog over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	achievementmodels "certo/internal/achievement/models"
	achievementservice "certo/internal/achievement/service"
	"certo/internal/platform/middleware"
	"certo/internal/transport/http/shared"
	dErrors "certo/pkg/domain-errors"
)

// Service is the achievement surface the handler depends on.
type Service interface {
	Create(ctx context.Context, in achievementservice.CreateInput) (*achievementmodels.Achievement, error)
	Get(ctx context.Context, id int64) (*achievementmodels.Achievement, error)
	List(ctx context.Context) ([]*achievementmodels.Achievement, error)
}

// Handler handles achievement endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{service: service, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the achievement routes. Reads are public; catalog
// changes require a token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/achievements", h.handleList)
	r.Get("/achievements/{id}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/achievements", h.handleCreate)
	})
}

type createRequest struct {
	AchievementID   string                        `json:"achievementId"`
	Name            string                        `json:"name"`
	Description     string                        `json:"description"`
	AchievementType string                        `json:"achievementType"`
	Criteria        achievementmodels.Criteria    `json:"criteria"`
	Alignments      []achievementmodels.Alignment `json:"alignments"`
	Skills          []string                      `json:"skills"`
	ImageURL        string                        `json:"imageUrl"`
	CreatorID       int64                         `json:"creatorId"`
	Published       bool                          `json:"published"`
	Tags            []string                      `json:"tags"`
}

type achievementResponse struct {
	ID              int64                         `json:"id"`
	AchievementID   string                        `json:"achievementId"`
	Name            string                        `json:"name"`
	Description     string                        `json:"description,omitempty"`
	AchievementType string                        `json:"achievementType"`
	Criteria        achievementmodels.Criteria    `json:"criteria"`
	Alignments      []achievementmodels.Alignment `json:"alignments,omitempty"`
	Skills          []string                      `json:"skills,omitempty"`
	ImageURL        string                        `json:"imageUrl,omitempty"`
	CreatorID       int64                         `json:"creatorId,omitempty"`
	Published       bool                          `json:"published"`
	Tags            []string                      `json:"tags,omitempty"`
}

func toResponse(achievement *achievementmodels.Achievement) achievementResponse {
	return achievementResponse{
		ID:              achievement.ID,
		AchievementID:   achievement.AchievementID,
		Name:            achievement.Name,
		Description:     achievement.Description,
		AchievementType: achievement.AchievementType,
		Criteria:        achievement.Criteria,
		Alignments:      achievement.Alignments,
		Skills:          achievement.Skills,
		ImageURL:        achievement.ImageURL,
		CreatorID:       achievement.CreatorID,
		Published:       achievement.Published,
		Tags:            achievement.Tags,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	achievement, err := h.service.Create(r.Context(), achievementservice.CreateInput{
		AchievementID:   req.AchievementID,
		Name:            req.Name,
		Description:     req.Description,
		AchievementType: req.AchievementType,
		Criteria:        req.Criteria,
		Alignments:      req.Alignments,
		Skills:          req.Skills,
		ImageURL:        req.ImageURL,
		CreatorID:       req.CreatorID,
		Published:       req.Published,
		Tags:            req.Tags,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(achievement))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid achievement id"))
		return
	}
	achievement, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(achievement))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]achievementResponse, 0, len(achievements))
	for _, achievement := range achievements {
		out = append(out, toResponse(achievement))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// Package handler exposes profile management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-jose/go-jose/v4"

	"certo/internal/platform/middleware"
	profilemodels "certo/internal/profile/models"
	profileservice "certo/internal/profile/service"
	"certo/internal/transport/http/shared"
	dErrors "certo/pkg/domain-errors"
)

// Service is the profile surface the handler depends on.
type Service interface {
	CreateProfile(ctx context.Context, in profileservice.CreateInput) (*profilemodels.Profile, error)
	GetProfile(ctx context.Context, id int64) (*profilemodels.Profile, error)
	ListProfiles(ctx context.Context) ([]*profilemodels.Profile, error)
	Keys(ctx context.Context, id int64) ([]profilemodels.KeyDescriptor, error)
	JWKS(ctx context.Context, id int64) (*jose.JSONWebKeySet, error)
}

// Handler handles profile endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{service: service, logger: logger, jwtValidator: jwtValidator}
}

// Register mounts the profile routes. Key documents are public so
// external verifiers can fetch them; registration requires a token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profiles/{id}", h.handleGet)
	r.Get("/profiles/{id}/keys", h.handleKeys)
	r.Get("/profiles/{id}/jwks", h.handleJWKS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/profiles", h.handleCreate)
		r.Get("/profiles", h.handleList)
	})
}

type createRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	URL         string `json:"url"`
	DID         string `json:"did"`
	Description string `json:"description"`
	ProfileType string `json:"profileType"`
}

type profileResponse struct {
	ID          int64                         `json:"id"`
	Name        string                        `json:"name"`
	Email       string                        `json:"email,omitempty"`
	URL         string                        `json:"url,omitempty"`
	DID         string                        `json:"did,omitempty"`
	Description string                        `json:"description,omitempty"`
	ProfileType string                        `json:"profileType"`
	PublicKeys  []profilemodels.KeyDescriptor `json:"publicKeys,omitempty"`
}

func toResponse(profile *profilemodels.Profile) profileResponse {
	return profileResponse{
		ID:          profile.ID,
		Name:        profile.Name,
		Email:       profile.Email,
		URL:         profile.URL,
		DID:         profile.DID,
		Description: profile.Description,
		ProfileType: string(profile.ProfileType),
		PublicKeys:  profile.PublicKeys,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	profile, err := h.service.CreateProfile(r.Context(), profileservice.CreateInput{
		Name:        req.Name,
		Email:       req.Email,
		URL:         req.URL,
		DID:         req.DID,
		Description: req.Description,
		ProfileType: profilemodels.ProfileType(req.ProfileType),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(profile))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(profile))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListProfiles(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]profileResponse, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, toResponse(profile))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	keys, err := h.service.Keys(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, keys)
}

func (h *Handler) handleJWKS(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	set, err := h.service.JWKS(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, set)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid profile id")
	}
	return id, nil
}

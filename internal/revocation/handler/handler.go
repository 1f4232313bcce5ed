// Package handler exposes status lists and the public revocation status
// endpoint over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	credentialmodels "certo/internal/credential/models"
	"certo/internal/platform/middleware"
	"certo/internal/revocation/models"
	"certo/internal/revocation/service"
	"certo/internal/transport/http/shared"
	dErrors "certo/pkg/domain-errors"
)

// Service is the status list surface the handler depends on.
type Service interface {
	CreateStatusList(ctx context.Context, issuerID int64, purpose string) (*models.StatusList, error)
	GetStatusList(ctx context.Context, id int64) (*models.StatusList, error)
	RevokeEntry(ctx context.Context, listID int64, entry string) (*models.StatusList, error)
	CheckCredentialStatus(ctx context.Context, issuerID int64, credentialID string) (bool, error)
}

// CredentialResolver locates a stored credential so its issuer's status
// list can be consulted.
type CredentialResolver interface {
	ResolveByIdentifier(ctx context.Context, identifier string) (*credentialmodels.Credential, error)
}

// Handler handles status list endpoints.
type Handler struct {
	service      Service
	credentials  CredentialResolver
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, credentials CredentialResolver, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		credentials:  credentials,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the routes. The status endpoint is public so external
// verifiers can poll it; list management requires a token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/status/{credentialId}", h.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/status-lists", h.handleCreate)
		r.Get("/status-lists/{id}", h.handleGet)
		r.Post("/status-lists/{id}/revoke", h.handleRevoke)
	})
}

type listResponse struct {
	ID                   int64    `json:"id"`
	IssuerID             int64    `json:"issuerId"`
	StatusListCredential string   `json:"statusListCredential"`
	StatusPurpose        string   `json:"statusPurpose"`
	EncodedList          string   `json:"encodedList"`
	Entries              []string `json:"entries"`
}

func toResponse(list *models.StatusList) listResponse {
	return listResponse{
		ID:                   list.ID,
		IssuerID:             list.IssuerID,
		StatusListCredential: list.StatusListCredential,
		StatusPurpose:        list.StatusPurpose,
		EncodedList:          list.EncodedList,
		Entries:              list.Entries(),
	}
}

type createRequest struct {
	IssuerID int64  `json:"issuerId"`
	Purpose  string `json:"statusPurpose"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	list, err := h.service.CreateStatusList(r.Context(), req.IssuerID, req.Purpose)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(list))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid status list id"))
		return
	}
	list, err := h.service.GetStatusList(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(list))
}

// revokeRequest accepts either a literal list entry or a numeric status
// index, matching how callers track entries.
type revokeRequest struct {
	Entry string `json:"entry"`
	Index *int64 `json:"index"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid status list id"))
		return
	}
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	entry := req.Entry
	if entry == "" && req.Index != nil {
		entry = service.EntryForIndex(*req.Index)
	}
	list, err := h.service.RevokeEntry(r.Context(), id, entry)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(list))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credential, err := h.credentials.ResolveByIdentifier(ctx, chi.URLParam(r, "credentialId"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	listed, err := h.service.CheckCredentialStatus(ctx, credential.IssuerID, credential.CredentialID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"credentialId": credential.CredentialID,
		"revoked":      credential.Revoked || listed,
	})
}

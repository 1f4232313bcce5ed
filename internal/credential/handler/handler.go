// Package handler exposes the credential lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credentialmodels "certo/internal/credential/models"
	credentialservice "certo/internal/credential/service"
	"certo/internal/openbadge"
	"certo/internal/platform/middleware"
	"certo/internal/transport/http/shared"
	"certo/internal/vc/verify"
	dErrors "certo/pkg/domain-errors"
)

// Service is the credential lifecycle surface the handler depends on.
type Service interface {
	Issue(ctx context.Context, in credentialservice.IssueInput) (*credentialmodels.IssueResult, error)
	BatchIssue(ctx context.Context, in credentialservice.BatchInput) []credentialmodels.BatchItem
	Revoke(ctx context.Context, identifier, reason string) (*credentialmodels.Credential, error)
	Export(ctx context.Context, identifier string) (openbadge.Credential, error)
	Import(ctx context.Context, raw json.RawMessage) (*credentialmodels.Credential, error)
}

// Verifier runs stored-credential verification.
type Verifier interface {
	Verify(ctx context.Context, identifier string) (verify.Verdict, error)
}

// ExternalValidator validates credential documents submitted by callers.
type ExternalValidator interface {
	Validate(ctx context.Context, raw json.RawMessage) verify.Verdict
}

// Handler handles credential endpoints.
type Handler struct {
	service      Service
	verifier     Verifier
	external     ExternalValidator
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(service Service, verifier Verifier, external ExternalValidator, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		verifier:     verifier,
		external:     external,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the credential routes. Verification and export are
// public; issuance, revocation, and import require an issuer token.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credentials/{id}/verify", h.handleVerify)
	r.Get("/credentials/{id}/export", h.handleExport)
	r.Post("/credentials/validate", h.handleValidate)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/credentials/issue", h.handleIssue)
		r.Post("/credentials/batch-issue", h.handleBatchIssue)
		r.Post("/credentials/import", h.handleImport)
		r.Post("/credentials/{id}/revoke", h.handleRevoke)
	})
}

type recipientPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type issueRequest struct {
	AchievementID  int64                            `json:"achievementId"`
	IssuerID       int64                            `json:"issuerId"`
	Recipient      recipientPayload                 `json:"recipient"`
	Name           string                           `json:"name"`
	Description    string                           `json:"description"`
	ExpirationDate string                           `json:"expirationDate"`
	Evidence       []credentialmodels.EvidenceInput `json:"evidence"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	expiration, err := optionalDate(req.ExpirationDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid expirationDate"))
		return
	}
	result, err := h.service.Issue(ctx, credentialservice.IssueInput{
		AchievementID:  req.AchievementID,
		IssuerID:       req.IssuerID,
		Recipient:      credentialmodels.RecipientInput(req.Recipient),
		Name:           req.Name,
		Description:    req.Description,
		ExpirationDate: expiration,
		Evidence:       req.Evidence,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "credential issuance failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result.Document)
}

type batchIssueRequest struct {
	AchievementID  int64              `json:"achievementId"`
	IssuerID       int64              `json:"issuerId"`
	Recipients     []recipientPayload `json:"recipients"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	ExpirationDate string             `json:"expirationDate"`
}

func (h *Handler) handleBatchIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req batchIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.Recipients) == 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "recipients array must not be empty"))
		return
	}
	expiration, err := optionalDate(req.ExpirationDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid expirationDate"))
		return
	}
	recipients := make([]credentialmodels.RecipientInput, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		recipients = append(recipients, credentialmodels.RecipientInput(recipient))
	}
	items := h.service.BatchIssue(ctx, credentialservice.BatchInput{
		AchievementID:  req.AchievementID,
		IssuerID:       req.IssuerID,
		Recipients:     recipients,
		Name:           req.Name,
		Description:    req.Description,
		ExpirationDate: expiration,
	})
	shared.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.verifier.Verify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	document, err := h.service.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, document)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	credential, err := h.service.Revoke(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"credentialId":     credential.CredentialID,
		"revoked":          credential.Revoked,
		"revocationReason": credential.RevocationReason,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	verdict := h.external.Validate(r.Context(), raw)
	shared.WriteJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	credential, err := h.service.Import(ctx, raw)
	if err != nil {
		h.logger.WarnContext(ctx, "credential import failed", "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":           credential.ID,
		"credentialId": credential.CredentialID,
	})
}

func optionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}
